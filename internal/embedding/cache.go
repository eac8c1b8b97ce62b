package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// cacheKeyPrefix namespaces embedding entries in the shared key-value store.
// Keys use the raw input text with no normalization: two texts differing only
// in whitespace are distinct entries.
const cacheKeyPrefix = "embedding:"

// Cache is the key-value capability the provider reads through. Get returns
// (nil, false, nil) on a miss.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

type redisCache struct {
	client *redis.Client
	ttl    time.Duration // zero = no expiry
}

// NewRedisCache creates a Cache backed by Redis. ttl of zero stores entries
// without expiry; a bounded ttl is an optimization, not part of the contract.
func NewRedisCache(client *redis.Client, ttl time.Duration) Cache {
	return &redisCache{client: client, ttl: ttl}
}

func (c *redisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	return val, true, nil
}

func (c *redisCache) Set(ctx context.Context, key string, value []byte) error {
	if err := c.client.Set(ctx, key, value, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}
