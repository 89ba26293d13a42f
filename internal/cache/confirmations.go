package cache

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

func newToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate confirmation token failed: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// RedisConfirmations stores single-use confirmation tokens bound to a subject.
type RedisConfirmations struct {
	client *redisv9.Client
	prefix string
}

func NewRedisConfirmations(client *redisv9.Client, prefix string) *RedisConfirmations {
	return &RedisConfirmations{client: client, prefix: prefix}
}

func (c *RedisConfirmations) Issue(ctx context.Context, subject string, ttl time.Duration) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", err
	}
	if err := c.client.Set(ctx, c.key(token), subject, ttl).Err(); err != nil {
		return "", fmt.Errorf("redis store confirmation failed: %w", err)
	}
	return token, nil
}

// Consume succeeds at most once per token and only for the subject it was issued to.
func (c *RedisConfirmations) Consume(ctx context.Context, subject, token string) (bool, error) {
	owner, err := c.client.GetDel(ctx, c.key(token)).Result()
	if err == redisv9.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis consume confirmation failed: %w", err)
	}
	return owner == subject, nil
}

func (c *RedisConfirmations) key(token string) string {
	return fmt.Sprintf("%s:confirm:%s", c.prefix, token)
}

type pendingConfirmation struct {
	subject   string
	expiresAt time.Time
}

// MemoryConfirmations is the in-process equivalent of RedisConfirmations.
type MemoryConfirmations struct {
	mu      sync.Mutex
	now     func() time.Time
	pending map[string]pendingConfirmation
}

func NewMemoryConfirmations() *MemoryConfirmations {
	return &MemoryConfirmations{
		now:     time.Now,
		pending: make(map[string]pendingConfirmation),
	}
}

func (c *MemoryConfirmations) Issue(_ context.Context, subject string, ttl time.Duration) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for t, p := range c.pending {
		if now.After(p.expiresAt) {
			delete(c.pending, t)
		}
	}
	c.pending[token] = pendingConfirmation{subject: subject, expiresAt: now.Add(ttl)}
	return token, nil
}

func (c *MemoryConfirmations) Consume(_ context.Context, subject, token string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pending[token]
	if !ok {
		return false, nil
	}
	delete(c.pending, token)
	if c.now().After(p.expiresAt) {
		return false, nil
	}
	return p.subject == subject, nil
}
