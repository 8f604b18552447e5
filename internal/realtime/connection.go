package realtime

import (
	"sync"

	"github.com/google/uuid"

	"github.com/noah-isme/casedesk-api/internal/auth"
)

const defaultSendBuffer = 64

// Connection is one authenticated client session held by the gateway.
type Connection struct {
	id       string
	identity auth.Identity
	send     chan Envelope

	mu     sync.Mutex
	rooms  map[string]struct{}
	closed chan struct{}
	once   sync.Once
}

func newConnection(identity auth.Identity, buffer int) *Connection {
	if buffer <= 0 {
		buffer = defaultSendBuffer
	}
	return &Connection{
		id:       uuid.NewString(),
		identity: identity,
		send:     make(chan Envelope, buffer),
		rooms:    make(map[string]struct{}),
		closed:   make(chan struct{}),
	}
}

// ID returns the connection's unique identifier.
func (c *Connection) ID() string {
	return c.id
}

// Identity returns the identity bound at handshake time.
func (c *Connection) Identity() auth.Identity {
	return c.identity
}

// IdentityID returns the bound identity's id.
func (c *Connection) IdentityID() string {
	return c.identity.ID
}

// Outbound exposes the queue drained by the write pump.
func (c *Connection) Outbound() <-chan Envelope {
	return c.send
}

// Done is closed once the connection has been disconnected.
func (c *Connection) Done() <-chan struct{} {
	return c.closed
}

// Deliver enqueues an envelope without blocking; it reports false when the
// queue is full or the connection is gone.
func (c *Connection) Deliver(envelope Envelope) bool {
	if c.isClosed() {
		return false
	}

	select {
	case c.send <- envelope:
		return true
	default:
		return false
	}
}

// Rooms returns the keys the connection has currently joined.
func (c *Connection) Rooms() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.rooms))
	for key := range c.rooms {
		keys = append(keys, key)
	}
	return keys
}

func (c *Connection) joined(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.rooms[key]
	return ok
}

// join runs subscribe under the connection lock so a concurrent close cannot
// miss the room. It reports false when the connection is already closed.
func (c *Connection) join(key string, subscribe func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isClosed() {
		return false
	}
	subscribe()
	c.rooms[key] = struct{}{}
	return true
}

// leave runs unsubscribe under the connection lock if the room is joined.
func (c *Connection) leave(key string, unsubscribe func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.rooms[key]; !ok {
		return false
	}
	unsubscribe()
	delete(c.rooms, key)
	return true
}

func (c *Connection) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// close marks the connection closed and hands back the rooms it held.
// Only the first call returns rooms.
func (c *Connection) close() []string {
	var keys []string
	c.once.Do(func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		close(c.closed)
		keys = make([]string, 0, len(c.rooms))
		for key := range c.rooms {
			keys = append(keys, key)
		}
		c.rooms = make(map[string]struct{})
	})
	return keys
}
