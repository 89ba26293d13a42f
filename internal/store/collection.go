package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/flisboa999/guiaturismo/internal/model"
)

const (
	DefaultWindowSize = 50
	MaxWindowSize     = 500
)

// Collection is the append-mostly chat turn collection shared by every client.
// Writes commit to Documents first and are then published as change batches.
type Collection struct {
	docs       Documents
	hub        *Hub
	publisher  Publisher
	cache      WindowCache
	clock      *Clock
	windowSize int
}

type CollectionOption func(*Collection)

// WithPublisher routes change batches through a broker instead of the local hub.
func WithPublisher(p Publisher) CollectionOption {
	return func(c *Collection) {
		if p != nil {
			c.publisher = p
		}
	}
}

func WithWindowCache(cache WindowCache) CollectionOption {
	return func(c *Collection) {
		c.cache = cache
	}
}

func WithClock(clock *Clock) CollectionOption {
	return func(c *Collection) {
		if clock != nil {
			c.clock = clock
		}
	}
}

func WithWindowSize(n int) CollectionOption {
	return func(c *Collection) {
		if n > 0 {
			c.windowSize = min(n, MaxWindowSize)
		}
	}
}

func NewCollection(docs Documents, hub *Hub, opts ...CollectionOption) *Collection {
	c := &Collection{
		docs:       docs,
		hub:        hub,
		publisher:  hub,
		clock:      NewClock(nil),
		windowSize: DefaultWindowSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Collection) Hub() *Hub {
	return c.hub
}

func (c *Collection) WindowSize() int {
	return c.windowSize
}

// Append stores a new turn. ID and Timestamp are always assigned here.
func (c *Collection) Append(ctx context.Context, turn model.ChatTurn) (string, error) {
	turn.ID = uuid.NewString()
	turn.Timestamp = c.clock.Now()

	if err := c.docs.Insert(ctx, &turn); err != nil {
		return "", fmt.Errorf("append turn failed: %w", err)
	}
	c.invalidate(ctx)
	c.publish(ctx, Batch{Changes: []Change{Added(turn)}})
	return turn.ID, nil
}

type Update struct {
	Prompt string
}

// Update replaces the editable fields of a turn.
func (c *Collection) Update(ctx context.Context, id string, fields Update) error {
	prompt := strings.TrimSpace(fields.Prompt)
	if prompt == "" {
		return errors.New("update requires a non-empty prompt")
	}
	if err := c.docs.UpdatePrompt(ctx, id, prompt); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("update turn failed: %w", err)
	}
	c.invalidate(ctx)

	turn, err := c.docs.Get(ctx, id)
	if err != nil {
		// Committed but the readback failed; subscribers catch up on the next snapshot.
		log.WithError(err).WithField("turn_id", id).Warn("read updated turn failed")
		return nil
	}
	c.publish(ctx, Batch{Changes: []Change{Modified(*turn)}})
	return nil
}

// Delete removes a turn. A missing id is not an error and publishes nothing.
func (c *Collection) Delete(ctx context.Context, id string) error {
	if err := c.docs.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return fmt.Errorf("delete turn failed: %w", err)
	}
	c.invalidate(ctx)
	c.publish(ctx, Batch{Changes: []Change{Removed(id)}})
	return nil
}

func (c *Collection) IDs(ctx context.Context) ([]string, error) {
	ids, err := c.docs.IDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list turn ids failed: %w", err)
	}
	return ids, nil
}

// Recent returns the current window, served from the cache when present.
// The cache is filled only under the generation read before the query, so a
// write committed meanwhile keeps the older snapshot out.
func (c *Collection) Recent(ctx context.Context, limit int) ([]model.ChatTurn, error) {
	if limit <= 0 || limit > c.windowSize {
		limit = c.windowSize
	}
	var (
		gen       int64
		cacheable bool
	)
	if c.cache != nil {
		if cached, hit, err := c.cache.GetWindow(ctx, limit); err == nil && hit {
			return cached, nil
		}
		var err error
		gen, err = c.cache.Generation(ctx)
		cacheable = err == nil
	}

	turns, err := c.docs.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent turns failed: %w", err)
	}
	if cacheable {
		if err := c.cache.SetWindow(ctx, limit, gen, turns); err != nil {
			log.WithError(err).Debug("fill window cache failed")
		}
	}
	return turns, nil
}

// Subscribe opens a live query over the newest q.Limit turns. The subscription
// ends when ctx is done.
func (c *Collection) Subscribe(ctx context.Context, q Query) (*Subscription, error) {
	limit := q.Limit
	if limit <= 0 || limit > c.windowSize {
		limit = c.windowSize
	}

	sub := newSubscription(c.hub, limit)
	// Register first so writes committed during the snapshot read are not lost.
	c.hub.register(sub)

	turns, err := c.Recent(ctx, limit)
	if err != nil {
		c.hub.unregister(sub)
		return nil, err
	}
	snapshot := sub.window.seed(turns)

	go sub.run(ctx, snapshot)
	return sub, nil
}

func (c *Collection) invalidate(ctx context.Context) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Invalidate(ctx); err != nil {
		log.WithError(err).Warn("invalidate window cache failed")
	}
}

func (c *Collection) publish(ctx context.Context, batch Batch) {
	if err := c.publisher.Publish(ctx, batch); err != nil {
		log.WithError(err).Warn("publish change batch failed, dispatching locally")
		c.hub.Dispatch(batch)
	}
}
