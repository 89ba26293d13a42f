package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"github.com/flisboa999/guiaturismo/internal/model"
)

// WindowCache keeps the recent-turns snapshot in redis. Every write bumps a
// generation counter; a snapshot read under an older generation is never stored.
type WindowCache struct {
	client     *redisv9.Client
	collection string
	windowTTL  time.Duration
}

func NewWindowCache(client *redisv9.Client, collection string, windowTTL time.Duration) *WindowCache {
	if windowTTL <= 0 {
		windowTTL = 60 * time.Second
	}
	return &WindowCache{
		client:     client,
		collection: collection,
		windowTTL:  windowTTL,
	}
}

// Generation returns the current write generation, zero before the first write.
func (c *WindowCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, c.generationKey()).Int64()
	if errors.Is(err, redisv9.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get window generation failed: %w", err)
	}
	return gen, nil
}

func (c *WindowCache) GetWindow(ctx context.Context, limit int) ([]model.ChatTurn, bool, error) {
	raw, err := c.client.Get(ctx, c.windowKey(limit)).Result()
	if errors.Is(err, redisv9.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get window failed: %w", err)
	}

	var turns []model.ChatTurn
	if err := json.Unmarshal([]byte(raw), &turns); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached window failed: %w", err)
	}
	return turns, true, nil
}

// SetWindow stores turns only if the generation still equals gen. The check
// and the write run under WATCH, so a racing Invalidate aborts the write.
func (c *WindowCache) SetWindow(ctx context.Context, limit int, gen int64, turns []model.ChatTurn) error {
	payload, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("marshal window cache failed: %w", err)
	}

	err = c.client.Watch(ctx, func(tx *redisv9.Tx) error {
		current, err := tx.Get(ctx, c.generationKey()).Int64()
		if errors.Is(err, redisv9.Nil) {
			current = 0
		} else if err != nil {
			return err
		}
		if current != gen {
			return errStaleWindow
		}
		_, err = tx.TxPipelined(ctx, func(pipe redisv9.Pipeliner) error {
			pipe.Set(ctx, c.windowKey(limit), payload, c.windowTTL)
			pipe.SAdd(ctx, c.indexKey(), c.windowKey(limit))
			pipe.Expire(ctx, c.indexKey(), c.windowTTL)
			return nil
		})
		return err
	}, c.generationKey())

	if errors.Is(err, errStaleWindow) || errors.Is(err, redisv9.TxFailedErr) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("redis set window failed: %w", err)
	}
	return nil
}

// Invalidate bumps the generation and drops every cached window size.
func (c *WindowCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, c.generationKey()).Err(); err != nil {
		return fmt.Errorf("redis bump window generation failed: %w", err)
	}
	keys, err := c.client.SMembers(ctx, c.indexKey()).Result()
	if err != nil {
		return fmt.Errorf("redis list window keys failed: %w", err)
	}
	keys = append(keys, c.indexKey())
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete window failed: %w", err)
	}
	return nil
}

var errStaleWindow = errors.New("window generation changed")

func (c *WindowCache) windowKey(limit int) string {
	return fmt.Sprintf("%s:window:%d", c.collection, limit)
}

func (c *WindowCache) indexKey() string {
	return fmt.Sprintf("%s:window:keys", c.collection)
}

func (c *WindowCache) generationKey() string {
	return fmt.Sprintf("%s:window:gen", c.collection)
}
