package store

import (
	"context"
	"sync"
)

// Publisher carries committed change batches to every process's Hub.
type Publisher interface {
	Publish(ctx context.Context, batch Batch) error
}

// Hub fans change batches out to the subscriptions of this process.
type Hub struct {
	mu     sync.Mutex
	subs   map[uint64]*Subscription
	nextID uint64
}

func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]*Subscription)}
}

// Publish dispatches locally. A Hub is the Publisher for single-process deployments.
func (h *Hub) Publish(_ context.Context, batch Batch) error {
	h.Dispatch(batch)
	return nil
}

// Dispatch never blocks. A subscription whose buffer is full is dropped.
func (h *Hub) Dispatch(batch Batch) {
	if batch.Empty() {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, sub := range h.subs {
		select {
		case sub.in <- batch:
		default:
			sub.setErr(ErrSubscriberLagging)
			delete(h.subs, id)
			close(sub.in)
		}
	}
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) register(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	sub.hubID = h.nextID
	h.subs[sub.hubID] = sub
}

func (h *Hub) unregister(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub.hubID]; ok {
		delete(h.subs, sub.hubID)
		close(sub.in)
	}
}
