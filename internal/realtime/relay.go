package realtime

import "sync"

// Emitter pushes an event to every current subscriber of a room.
type Emitter interface {
	Emit(room string, event Event)
}

var relay struct {
	mu     sync.RWMutex
	target Emitter
}

// InstallRelay makes the emitter the process-wide relay target.
func InstallRelay(target Emitter) {
	relay.mu.Lock()
	defer relay.mu.Unlock()

	relay.target = target
}

// ResetRelay detaches the process-wide relay target; later Emit calls are no-ops.
func ResetRelay() {
	relay.mu.Lock()
	defer relay.mu.Unlock()

	relay.target = nil
}

// Emit forwards to the installed relay target, if any. It never fails the caller.
func Emit(room string, event Event) {
	relay.mu.RLock()
	target := relay.target
	relay.mu.RUnlock()

	if target == nil || event == nil {
		return
	}

	defer func() {
		_ = recover()
	}()
	target.Emit(room, event)
}

// Relay is an Emitter bound to the process-wide relay target, for injection into services.
type Relay struct{}

// Emit implements Emitter.
func (Relay) Emit(room string, event Event) {
	Emit(room, event)
}
