package liveview

import (
	"sync"

	"github.com/flisboa999/guiaturismo/internal/app"
)

// ControlRelay forwards input control transitions to the connections that
// display that control.
type ControlRelay struct {
	mu       sync.Mutex
	watchers map[string]map[uint64]func(app.ControlState)
	next     uint64
}

func NewControlRelay() *ControlRelay {
	return &ControlRelay{watchers: make(map[string]map[uint64]func(app.ControlState))}
}

// Notify matches the InputGate hook signature.
func (r *ControlRelay) Notify(controlID string, state app.ControlState) {
	r.mu.Lock()
	fns := make([]func(app.ControlState), 0, len(r.watchers[controlID]))
	for _, fn := range r.watchers[controlID] {
		fns = append(fns, fn)
	}
	r.mu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}

// Watch registers fn for controlID until the returned stop is called.
func (r *ControlRelay) Watch(controlID string, fn func(app.ControlState)) (stop func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	id := r.next
	if r.watchers[controlID] == nil {
		r.watchers[controlID] = make(map[uint64]func(app.ControlState))
	}
	r.watchers[controlID][id] = fn

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.watchers[controlID], id)
		if len(r.watchers[controlID]) == 0 {
			delete(r.watchers, controlID)
		}
	}
}
