// Package registry keeps at most one live conversation session per media
// slot for the lifetime of the process.
package registry

import (
	"context"
	"sync"

	"mediachat/internal/models"
)

// Session is the conversational handle stored per slot.
type Session interface {
	Send(ctx context.Context, text string) (*models.ChatMessage, error)
	Transcript() []*models.ChatMessage
	Assets() []*models.RemoteAsset
}

// Registry maps each slot to its optional live session. One writer is
// expected, but access is guarded anyway.
type Registry struct {
	mu    sync.RWMutex
	slots map[models.Slot]Session
}

func New() *Registry {
	return &Registry{slots: make(map[models.Slot]Session)}
}

// GetOrCreate returns the slot's session, constructing one via create when
// the slot is vacant or reset is requested. An existing session is returned
// unchanged; whatever bindings the caller prepared for create are ignored in
// that case, since rebinding a live session is not supported.
func (r *Registry) GetOrCreate(slot models.Slot, reset bool, create func() (Session, error)) (Session, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !reset {
		if existing, ok := r.slots[slot]; ok {
			return existing, false, nil
		}
	}
	session, err := create()
	if err != nil {
		return nil, false, err
	}
	r.slots[slot] = session
	return session, true, nil
}

// Get returns the slot's session without creating one.
func (r *Registry) Get(slot models.Slot) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.slots[slot]
	return s, ok
}

// Reset clears exactly one slot and returns the discarded session, if any,
// so the caller can release its resources.
func (r *Registry) Reset(slot models.Slot) Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.slots[slot]
	delete(r.slots, slot)
	return s
}
