package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// IdempotencyCache implements ports.IdempotencyCache using Redis.
// Keys are scoped by the caller (ingest client + Idempotency-Key).
type IdempotencyCache struct {
	client goredis.Cmdable
}

// NewIdempotencyCache creates a new Redis-backed idempotency cache.
func NewIdempotencyCache(client goredis.Cmdable) *IdempotencyCache {
	return &IdempotencyCache{client: client}
}

// Get returns the stored response, or nil, nil if the key does not exist.
func (c *IdempotencyCache) Get(ctx context.Context, k string) ([]byte, error) {
	val, err := c.client.Get(ctx, key("idem", k)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis idempotency get: %w", err)
	}
	return val, nil
}

// Set stores a response only if none is stored yet, so the first dispatch wins.
func (c *IdempotencyCache) Set(ctx context.Context, k string, value []byte, ttl time.Duration) error {
	err := c.client.SetArgs(ctx, key("idem", k), value, goredis.SetArgs{Mode: "NX", TTL: ttl}).Err()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return fmt.Errorf("redis idempotency set: %w", err)
	}
	return nil
}
