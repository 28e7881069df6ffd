package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"complyledger/internal/decision/models"
)

const keyPrefix = "decision:idem:"

// RedisCache remembers which decision id answered a dedup key so repeated
// submissions can skip evidence gathering and evaluation. The ledger stays
// authoritative: a cached id is only a hint that the service confirms.
type RedisCache struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Get returns the cached decision id, or false if none is recorded.
func (c *RedisCache) Get(ctx context.Context, key models.DedupKey) (uuid.UUID, bool, error) {
	raw, err := c.client.Get(ctx, keyPrefix+key.String()).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		// Unreadable entries are dropped rather than trusted.
		_ = c.client.Del(ctx, keyPrefix+key.String()).Err()
		return uuid.Nil, false, nil
	}
	return id, true, nil
}

// Set records id for key until ttl elapses. Non-positive ttls are ignored.
func (c *RedisCache) Set(ctx context.Context, key models.DedupKey, id uuid.UUID, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return c.client.Set(ctx, keyPrefix+key.String(), id.String(), ttl).Err()
}
