package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flisboa999/guiaturismo/internal/model"
)

func newTestCollection(t *testing.T, opts ...CollectionOption) (*Collection, *Memory) {
	t.Helper()
	docs := NewMemory()
	return NewCollection(docs, NewHub(), opts...), docs
}

func nextBatch(t *testing.T, sub *Subscription) Batch {
	t.Helper()
	select {
	case batch, ok := <-sub.Batches():
		require.True(t, ok, "subscription closed unexpectedly")
		return batch
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change batch")
		return Batch{}
	}
}

func changeTypes(batch Batch) []ChangeType {
	types := make([]ChangeType, len(batch.Changes))
	for i, c := range batch.Changes {
		types[i] = c.Type
	}
	return types
}

func TestAppendAssignsIDAndServerTimestamp(t *testing.T) {
	c, docs := newTestCollection(t)
	ctx := context.Background()

	client := time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)
	id, err := c.Append(ctx, model.ChatTurn{ID: "client-id", Prompt: "hello", Timestamp: client})
	require.NoError(t, err)
	assert.NotEqual(t, "client-id", id)

	stored, err := docs.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "hello", stored.Prompt)
	assert.True(t, stored.Timestamp.After(client))
}

func TestSubscribeEmitsSnapshotThenLiveChanges(t *testing.T) {
	c, _ := newTestCollection(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	firstID, err := c.Append(ctx, model.ChatTurn{Prompt: "first"})
	require.NoError(t, err)

	sub, err := c.Subscribe(ctx, Query{Limit: 10})
	require.NoError(t, err)

	snapshot := nextBatch(t, sub)
	require.Len(t, snapshot.Changes, 1)
	assert.Equal(t, ChangeAdded, snapshot.Changes[0].Type)
	assert.Equal(t, firstID, snapshot.Changes[0].ID)

	secondID, err := c.Append(ctx, model.ChatTurn{Prompt: "second"})
	require.NoError(t, err)
	added := nextBatch(t, sub)
	assert.Equal(t, []ChangeType{ChangeAdded}, changeTypes(added))
	assert.Equal(t, secondID, added.Changes[0].ID)

	require.NoError(t, c.Update(ctx, secondID, Update{Prompt: "second, edited"}))
	modified := nextBatch(t, sub)
	assert.Equal(t, []ChangeType{ChangeModified}, changeTypes(modified))
	assert.Equal(t, "second, edited", modified.Changes[0].Turn.Prompt)

	require.NoError(t, c.Delete(ctx, firstID))
	removed := nextBatch(t, sub)
	assert.Equal(t, []ChangeType{ChangeRemoved}, changeTypes(removed))
	assert.Equal(t, firstID, removed.Changes[0].ID)
}

func TestSubscribeWindowKeepsMostRecent(t *testing.T) {
	c, _ := newTestCollection(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var ids []string
	for _, prompt := range []string{"a", "b", "c"} {
		id, err := c.Append(ctx, model.ChatTurn{Prompt: prompt})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	sub, err := c.Subscribe(ctx, Query{Limit: 2})
	require.NoError(t, err)
	snapshot := nextBatch(t, sub)
	require.Len(t, snapshot.Changes, 2)
	assert.Equal(t, ids[1], snapshot.Changes[0].ID)
	assert.Equal(t, ids[2], snapshot.Changes[1].ID)

	newest, err := c.Append(ctx, model.ChatTurn{Prompt: "d"})
	require.NoError(t, err)
	batch := nextBatch(t, sub)
	assert.Equal(t, []ChangeType{ChangeRemoved, ChangeAdded}, changeTypes(batch))
	assert.Equal(t, ids[1], batch.Changes[0].ID)
	assert.Equal(t, newest, batch.Changes[1].ID)

	// ids[0] is outside the window: its deletion must not reach the subscriber.
	require.NoError(t, c.Delete(ctx, ids[0]))
	require.NoError(t, c.Delete(ctx, ids[2]))
	batch = nextBatch(t, sub)
	assert.Equal(t, []ChangeType{ChangeRemoved}, changeTypes(batch))
	assert.Equal(t, ids[2], batch.Changes[0].ID)
}

func TestDeleteMissingIsNoop(t *testing.T) {
	c, _ := newTestCollection(t)
	assert.NoError(t, c.Delete(context.Background(), "does-not-exist"))
}

func TestUpdateMissingReturnsNotFound(t *testing.T) {
	c, _ := newTestCollection(t)
	err := c.Update(context.Background(), "does-not-exist", Update{Prompt: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubscriptionClosesOnCancel(t *testing.T) {
	c, _ := newTestCollection(t)
	ctx, cancel := context.WithCancel(context.Background())

	sub, err := c.Subscribe(ctx, Query{})
	require.NoError(t, err)
	nextBatch(t, sub)
	cancel()

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-sub.Batches():
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
	assert.NoError(t, sub.Err())
	require.Eventually(t, func() bool { return c.Hub().Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestLaggingSubscriberIsDropped(t *testing.T) {
	hub := NewHub()
	sub := newSubscription(hub, 10)
	hub.register(sub)

	for i := 0; i < subscriptionBuffer+1; i++ {
		hub.Dispatch(Batch{Changes: []Change{Removed("x")}})
	}
	assert.ErrorIs(t, sub.Err(), ErrSubscriberLagging)
	assert.Equal(t, 0, hub.Len())
}

type failingPublisher struct{ calls int }

func (p *failingPublisher) Publish(context.Context, Batch) error {
	p.calls++
	return errors.New("broker down")
}

func TestPublishFailureFallsBackToLocalHub(t *testing.T) {
	pub := &failingPublisher{}
	c, _ := newTestCollection(t, WithPublisher(pub))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := c.Subscribe(ctx, Query{})
	require.NoError(t, err)
	nextBatch(t, sub)

	id, err := c.Append(ctx, model.ChatTurn{Prompt: "still delivered"})
	require.NoError(t, err)
	batch := nextBatch(t, sub)
	assert.Equal(t, id, batch.Changes[0].ID)
	assert.Equal(t, 1, pub.calls)
}

type staticCache struct {
	turns       []model.ChatTurn
	gen         int64
	invalidated int
	// beforeSet runs inside SetWindow ahead of the generation check.
	beforeSet func()
}

func (s *staticCache) Generation(context.Context) (int64, error) {
	return s.gen, nil
}

func (s *staticCache) GetWindow(context.Context, int) ([]model.ChatTurn, bool, error) {
	return s.turns, s.turns != nil, nil
}

func (s *staticCache) SetWindow(_ context.Context, _ int, gen int64, turns []model.ChatTurn) error {
	if s.beforeSet != nil {
		hook := s.beforeSet
		s.beforeSet = nil
		hook()
	}
	if gen != s.gen {
		return nil
	}
	s.turns = turns
	return nil
}

func (s *staticCache) Invalidate(context.Context) error {
	s.invalidated++
	s.gen++
	s.turns = nil
	return nil
}

func TestRecentUsesCache(t *testing.T) {
	cache := &staticCache{}
	c, _ := newTestCollection(t, WithWindowCache(cache))
	ctx := context.Background()

	_, err := c.Append(ctx, model.ChatTurn{Prompt: "one"})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.invalidated)

	turns, err := c.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	require.Len(t, cache.turns, 1)

	cache.turns = []model.ChatTurn{{ID: "cached"}}
	turns, err = c.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "cached", turns[0].ID)

	_, err = c.Append(ctx, model.ChatTurn{Prompt: "two"})
	require.NoError(t, err)
	turns, err = c.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "one", turns[0].Prompt)
}

func TestRecentSkipsCacheFillAfterRacingWrite(t *testing.T) {
	cache := &staticCache{}
	c, _ := newTestCollection(t, WithWindowCache(cache))
	ctx := context.Background()

	cache.beforeSet = func() {
		_, err := c.Append(ctx, model.ChatTurn{Prompt: "racing"})
		require.NoError(t, err)
	}

	turns, err := c.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, turns, "read ran before the write committed")
	assert.Nil(t, cache.turns, "snapshot from an older generation must not be cached")

	turns, err = c.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "racing", turns[0].Prompt)
}

func TestWindowSizeIsCapped(t *testing.T) {
	c, _ := newTestCollection(t, WithWindowSize(10_000))
	assert.Equal(t, MaxWindowSize, c.WindowSize())
}
