package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// IdempotencyCache implements ports.IdempotencyCache using Redis. It fronts
// the durable ledger in Postgres so repeat submissions usually resolve
// without a database round trip.
type IdempotencyCache struct {
	client *goredis.Client
	prefix string
}

// NewIdempotencyCache creates a new Redis-backed idempotency cache.
func NewIdempotencyCache(client *goredis.Client) *IdempotencyCache {
	return &IdempotencyCache{
		client: client,
		prefix: "idempotency:",
	}
}

// Get retrieves the payment ID recorded for an idempotency key.
// Returns uuid.Nil, false, nil if the key does not exist.
func (c *IdempotencyCache) Get(ctx context.Context, key string) (uuid.UUID, bool, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Result()
	if err != nil {
		if err == goredis.Nil {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, fmt.Errorf("redis idempotency get: %w", err)
	}
	id, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("redis idempotency get: corrupt entry for key %s: %w", key, err)
	}
	return id, true, nil
}

// Set records the payment ID for an idempotency key with TTL.
func (c *IdempotencyCache) Set(ctx context.Context, key string, paymentID uuid.UUID, ttl time.Duration) error {
	err := c.client.Set(ctx, c.prefix+key, paymentID.String(), ttl).Err()
	if err != nil {
		return fmt.Errorf("redis idempotency set: %w", err)
	}
	return nil
}
