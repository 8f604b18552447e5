package realtime

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	inbound chan []byte
	closed  chan struct{}
	once    sync.Once

	mu      sync.Mutex
	written []Envelope
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{inbound: make(chan []byte, 8), closed: make(chan struct{})}
}

func (f *fakeTransport) ReadMessage() (int, []byte, error) {
	select {
	case frame, ok := <-f.inbound:
		if !ok {
			return 0, nil, io.EOF
		}
		return 1, frame, nil
	case <-f.closed:
		return 0, nil, io.EOF
	}
}

func (f *fakeTransport) WriteJSON(v interface{}) error {
	select {
	case <-f.closed:
		return errors.New("closed")
	default:
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if envelope, ok := v.(Envelope); ok {
		f.written = append(f.written, envelope)
	}
	return nil
}

func (f *fakeTransport) WriteMessage(int, []byte) error { return nil }

func (f *fakeTransport) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeTransport) events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return eventNames(f.written)
}

func TestServeDispatchesFramesAndCleansUpOnClose(t *testing.T) {
	gateway := newTestGateway(Options{PingInterval: time.Hour})
	observer := mustConnect(t, gateway, "lawyer-token")
	gateway.Dispatch(context.Background(), observer, JoinPresenceRoom{RoomID: "R"})
	drain(observer)

	client := mustConnect(t, gateway, "client-token")
	transport := newFakeTransport()

	done := make(chan struct{})
	go func() {
		defer close(done)
		gateway.Serve(context.Background(), client, transport)
	}()

	transport.inbound <- []byte(`{"event":"not-an-event","data":1}`)
	transport.inbound <- []byte(`{"event":"join-presence-room","data":"R"}`)

	require.Eventually(t, func() bool {
		return len(transport.events()) == 2
	}, time.Second, 10*time.Millisecond)
	require.Equal(t, []string{EventPresenceMemberAdded, EventPresenceState}, transport.events())
	require.Equal(t, []string{"5", "9"}, gateway.Registry().SnapshotMembers(PresenceRoom("R")))

	close(transport.inbound)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("serve did not return after the transport closed")
	}

	require.Equal(t, []string{"9"}, gateway.Registry().SnapshotMembers(PresenceRoom("R")))
	envelopes := drain(observer)
	require.Equal(t, []string{EventPresenceMemberAdded, EventPresenceState, EventPresenceMemberRemoved, EventPresenceState}, eventNames(envelopes))
}
