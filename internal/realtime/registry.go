package realtime

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// Subscriber is anything that can receive room broadcasts.
type Subscriber interface {
	ID() string
	IdentityID() string
	Deliver(envelope Envelope) bool
}

type room struct {
	dispatch    sync.Mutex
	subscribers map[string]Subscriber
	members     map[string]struct{}
}

// Registry maps room keys to their subscribers and, for presence rooms, their member identities.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*room
	log   zerolog.Logger
}

// RegistryStats summarises the live registry.
type RegistryStats struct {
	Rooms       int `json:"rooms"`
	Subscribers int `json:"subscribers"`
}

// NewRegistry creates an empty registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		rooms: make(map[string]*room),
		log:   logger.With().Str("component", "room_registry").Logger(),
	}
}

// Subscribe adds the subscriber to the room, creating it lazily. It reports whether the subscription is new.
func (r *Registry) Subscribe(key string, sub Subscriber) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm := r.ensureLocked(key)
	if _, exists := rm.subscribers[sub.ID()]; exists {
		return false
	}
	rm.subscribers[sub.ID()] = sub
	r.log.Debug().Str("room", key).Str("connection_id", sub.ID()).Msg("subscribed")
	return true
}

// Unsubscribe removes the subscriber from the room. It reports whether a subscription existed.
func (r *Registry) Unsubscribe(key string, sub Subscriber) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[key]
	if !ok {
		return false
	}
	if _, exists := rm.subscribers[sub.ID()]; !exists {
		return false
	}
	delete(rm.subscribers, sub.ID())
	r.collectLocked(key, rm)
	r.log.Debug().Str("room", key).Str("connection_id", sub.ID()).Msg("unsubscribed")
	return true
}

// Broadcast delivers the envelope to a point-in-time snapshot of the room's subscribers.
// Broadcasts to the same room are serialised so every subscriber sees them in emission order.
func (r *Registry) Broadcast(key string, envelope Envelope) (delivered, dropped int) {
	rm := r.lookup(key)
	if rm == nil {
		return 0, 0
	}

	rm.dispatch.Lock()
	defer rm.dispatch.Unlock()

	return r.deliverLocked(key, rm, envelope)
}

// DeliveryCount reports the outcome of one envelope's fan-out.
type DeliveryCount struct {
	Delivered int
	Dropped   int
}

// BroadcastPresence delivers lead followed by the room's membership snapshot
// inside one dispatch section. The snapshot is read after every membership
// change that preceded the call, so the last presence:state a subscriber
// receives always matches the member set.
func (r *Registry) BroadcastPresence(key, roomID string, lead Event) (leadCount, stateCount DeliveryCount) {
	rm := r.lookup(key)
	if rm == nil {
		return
	}

	rm.dispatch.Lock()
	defer rm.dispatch.Unlock()

	if lead != nil {
		leadCount.Delivered, leadCount.Dropped = r.deliverLocked(key, rm, Envelope{Event: lead.EventName(), Room: key, Data: lead})
	}
	state := PresenceState{Room: roomID, Members: r.membersOf(rm)}
	stateCount.Delivered, stateCount.Dropped = r.deliverLocked(key, rm, Envelope{Event: state.EventName(), Room: key, Data: state})
	return leadCount, stateCount
}

// SendPresenceState delivers the current membership snapshot to one subscriber,
// ordered with the room's other presence broadcasts.
func (r *Registry) SendPresenceState(key, roomID string, sub Subscriber) bool {
	rm := r.lookup(key)
	if rm == nil {
		return false
	}

	rm.dispatch.Lock()
	defer rm.dispatch.Unlock()

	state := PresenceState{Room: roomID, Members: r.membersOf(rm)}
	return sub.Deliver(Envelope{Event: state.EventName(), Room: key, Data: state})
}

// addMember and removeMember touch the member set alone. Gateway paths go
// through JoinPresence and LeavePresence, which keep it in step with the
// subscriptions.
func (r *Registry) addMember(key, identity string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.addMemberLocked(r.ensureLocked(key), identity)
}

func (r *Registry) removeMember(key, identity string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[key]
	if !ok {
		return false
	}
	removed := r.removeMemberLocked(rm, identity)
	r.collectLocked(key, rm)
	return removed
}

// SnapshotMembers returns the room's member identities in sorted order; never nil.
func (r *Registry) SnapshotMembers(key string) []string {
	rm := r.lookup(key)
	if rm == nil {
		return []string{}
	}
	return r.membersOf(rm)
}

// JoinPresence subscribes the connection and adds its identity in one step.
// It reports whether this made the identity a member.
func (r *Registry) JoinPresence(key string, sub Subscriber) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm := r.ensureLocked(key)
	rm.subscribers[sub.ID()] = sub
	return r.addMemberLocked(rm, sub.IdentityID())
}

// LeavePresence unsubscribes the connection and drops its identity when no other
// connection of the same identity remains subscribed. It reports whether the identity was removed.
func (r *Registry) LeavePresence(key string, sub Subscriber) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[key]
	if !ok {
		return false
	}
	if _, exists := rm.subscribers[sub.ID()]; !exists {
		return false
	}
	delete(rm.subscribers, sub.ID())

	identity := sub.IdentityID()
	removed := false
	if !r.identitySubscribedLocked(rm, identity) {
		removed = r.removeMemberLocked(rm, identity)
	}
	r.collectLocked(key, rm)
	return removed
}

// Subscribers returns the number of subscribers in a room.
func (r *Registry) Subscribers(key string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if rm, ok := r.rooms[key]; ok {
		return len(rm.subscribers)
	}
	return 0
}

// Stats reports the number of live rooms and subscriptions.
func (r *Registry) Stats() RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := RegistryStats{Rooms: len(r.rooms)}
	for _, rm := range r.rooms {
		stats.Subscribers += len(rm.subscribers)
	}
	return stats
}

func (r *Registry) lookup(key string) *room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rooms[key]
}

func (r *Registry) membersOf(rm *room) []string {
	r.mu.RLock()
	members := make([]string, 0, len(rm.members))
	for identity := range rm.members {
		members = append(members, identity)
	}
	r.mu.RUnlock()

	sort.Strings(members)
	return members
}

// deliverLocked fans the envelope out to the room's current subscribers.
// The caller holds rm.dispatch.
func (r *Registry) deliverLocked(key string, rm *room, envelope Envelope) (delivered, dropped int) {
	r.mu.RLock()
	targets := make([]Subscriber, 0, len(rm.subscribers))
	for _, sub := range rm.subscribers {
		targets = append(targets, sub)
	}
	r.mu.RUnlock()

	for _, sub := range targets {
		if sub.Deliver(envelope) {
			delivered++
			continue
		}
		dropped++
		r.log.Warn().Str("room", key).Str("event", envelope.Event).Str("connection_id", sub.ID()).Msg("dropping event for slow or closed connection")
	}
	return delivered, dropped
}

func (r *Registry) ensureLocked(key string) *room {
	rm, ok := r.rooms[key]
	if !ok {
		rm = &room{
			subscribers: make(map[string]Subscriber),
			members:     make(map[string]struct{}),
		}
		r.rooms[key] = rm
	}
	return rm
}

func (r *Registry) addMemberLocked(rm *room, identity string) bool {
	if _, exists := rm.members[identity]; exists {
		return false
	}
	rm.members[identity] = struct{}{}
	return true
}

func (r *Registry) removeMemberLocked(rm *room, identity string) bool {
	if _, exists := rm.members[identity]; !exists {
		return false
	}
	delete(rm.members, identity)
	return true
}

func (r *Registry) identitySubscribedLocked(rm *room, identity string) bool {
	for _, sub := range rm.subscribers {
		if sub.IdentityID() == identity {
			return true
		}
	}
	return false
}

func (r *Registry) collectLocked(key string, rm *room) {
	if len(rm.subscribers) == 0 && len(rm.members) == 0 {
		delete(r.rooms, key)
	}
}
