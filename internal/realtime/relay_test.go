package realtime

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingEmitter struct {
	mu     sync.Mutex
	rooms  []string
	events []Event
}

func (r *recordingEmitter) Emit(room string, event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms = append(r.rooms, room)
	r.events = append(r.events, event)
}

type panickingEmitter struct{}

func (panickingEmitter) Emit(string, Event) { panic("boom") }

func TestEmitBeforeInstallIsNoop(t *testing.T) {
	ResetRelay()
	require.NotPanics(t, func() {
		Emit(NotificationRoom("9"), NotificationCount{Count: 1})
		Relay{}.Emit(NotificationRoom("9"), NotificationCount{Count: 1})
	})
}

func TestEmitForwardsToInstalledTarget(t *testing.T) {
	recorder := &recordingEmitter{}
	InstallRelay(recorder)
	t.Cleanup(ResetRelay)

	Relay{}.Emit(ChatRoom("12"), NewMessage{ID: 1, ChatRoomID: 12, SenderID: "5", Type: "text"})
	Emit(NotificationRoom("9"), nil)

	require.Equal(t, []string{ChatRoom("12")}, recorder.rooms)

	ResetRelay()
	Emit(ChatRoom("12"), NewMessage{ID: 2, ChatRoomID: 12, SenderID: "5", Type: "text"})
	require.Len(t, recorder.events, 1)
}

func TestEmitSwallowsTargetPanics(t *testing.T) {
	InstallRelay(panickingEmitter{})
	t.Cleanup(ResetRelay)

	require.NotPanics(t, func() {
		Emit(NotificationRoom("9"), NotificationCount{Count: 1})
	})
}

func TestEmitThroughGatewayWithoutSubscribers(t *testing.T) {
	gateway := newTestGateway(Options{})
	InstallRelay(gateway)
	t.Cleanup(ResetRelay)

	require.NotPanics(t, func() {
		Emit(NotificationRoom("404"), NotificationCount{Count: 1})
	})
	require.Equal(t, RegistryStats{}, gateway.Registry().Stats())

	conn := mustConnect(t, gateway, "lawyer-token")
	gateway.Dispatch(context.Background(), conn, JoinNotifications{UserID: "9"})
	Emit(NotificationRoom("9"), NotificationCount{Count: 4})
	require.Equal(t, []string{EventNotificationCount}, eventNames(drain(conn)))
}
