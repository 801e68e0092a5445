package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// DefaultPrefix namespaces rate keys in a shared Redis.
const DefaultPrefix = "fx:"

// RateCache implements usecase.RateCache using Redis string keys.
type RateCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRateCache creates a new RateCache. A zero ttl stores rates without expiry.
func NewRateCache(client *redis.Client, ttl time.Duration) *RateCache {
	return &RateCache{
		client: client,
		prefix: DefaultPrefix,
		ttl:    ttl,
	}
}

// Get returns the cached rate for key. A missing key is a miss, not an error.
func (c *RateCache) Get(ctx context.Context, key string) (decimal.Decimal, bool, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	rate, err := decimal.NewFromString(val)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("redis rate %s: %w", key, err)
	}
	return rate, true, nil
}

// Put stores the rate for key.
func (c *RateCache) Put(ctx context.Context, key string, rate decimal.Decimal) error {
	return c.client.Set(ctx, c.prefix+key, rate.String(), c.ttl).Err()
}
