package realtime

import (
	"sync"

	"github.com/noah-isme/casedesk-api/internal/auth"
)

type staticVerifier map[string]auth.Identity

func (v staticVerifier) Verify(token string) (auth.Identity, error) {
	identity, ok := v[token]
	if !ok {
		return auth.Identity{}, auth.ErrUnauthorized
	}
	return identity, nil
}

type fakeSubscriber struct {
	id        string
	identity  string
	reject    bool
	onDeliver func()

	mu       sync.Mutex
	received []Envelope
}

func (s *fakeSubscriber) ID() string         { return s.id }
func (s *fakeSubscriber) IdentityID() string { return s.identity }

func (s *fakeSubscriber) Deliver(envelope Envelope) bool {
	if s.onDeliver != nil {
		s.onDeliver()
	}
	if s.reject {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.received = append(s.received, envelope)
	return true
}

func (s *fakeSubscriber) events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.received))
	for _, envelope := range s.received {
		names = append(names, envelope.Event)
	}
	return names
}

// drain returns every envelope currently queued on the connection.
func drain(conn *Connection) []Envelope {
	var out []Envelope
	for {
		select {
		case envelope := <-conn.Outbound():
			out = append(out, envelope)
		default:
			return out
		}
	}
}

func eventNames(envelopes []Envelope) []string {
	names := make([]string, 0, len(envelopes))
	for _, envelope := range envelopes {
		names = append(names, envelope.Event)
	}
	return names
}
