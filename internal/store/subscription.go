package store

import (
	"context"
	"errors"
	"sync"
)

var ErrSubscriberLagging = errors.New("subscriber fell behind the change feed")

const subscriptionBuffer = 64

type Query struct {
	Limit int
}

// Subscription streams change batches for one Query. The first batch is the
// current snapshot as added changes.
type Subscription struct {
	hub    *Hub
	hubID  uint64
	window *window
	in     chan Batch
	out    chan Batch

	mu  sync.Mutex
	err error
}

func newSubscription(hub *Hub, limit int) *Subscription {
	return &Subscription{
		hub:    hub,
		window: newWindow(limit),
		in:     make(chan Batch, subscriptionBuffer),
		out:    make(chan Batch, 1),
	}
}

// Batches is closed when the context ends or the subscription is dropped.
func (s *Subscription) Batches() <-chan Batch {
	return s.out
}

// Err reports why Batches was closed, nil on context cancellation.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Subscription) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *Subscription) run(ctx context.Context, snapshot Batch) {
	defer close(s.out)
	defer s.hub.unregister(s)

	if !s.send(ctx, snapshot) {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-s.in:
			if !ok {
				return
			}
			out := s.window.applyBatch(batch)
			if out.Empty() {
				continue
			}
			if !s.send(ctx, out) {
				return
			}
		}
	}
}

func (s *Subscription) send(ctx context.Context, batch Batch) bool {
	select {
	case <-ctx.Done():
		return false
	case s.out <- batch:
		return true
	}
}
