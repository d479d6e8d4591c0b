// Package cache is the Redis-backed fast cache for task lookups.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	infracb "github.com/jonesrussell/task-registry/infrastructure/circuitbreaker"
	infralogger "github.com/jonesrussell/task-registry/infrastructure/logger"
	"github.com/jonesrussell/task-registry/internal/telemetry"
	"github.com/redis/go-redis/v9"
)

// Config configures the breaker in front of Redis reads and writes.
type Config struct {
	BreakerFailures int
	BreakerCooldown time.Duration
}

// RedisCache stores opaque values with a per-entry TTL.
type RedisCache struct {
	client  *redis.Client
	breaker *infracb.Breaker
	logger  infralogger.Logger
}

// NewRedisCache wraps client. Get and Set go through a circuit breaker;
// Delete always reaches Redis so invalidations are never skipped.
func NewRedisCache(client *redis.Client, cfg Config, log infralogger.Logger, metrics *telemetry.Metrics) *RedisCache {
	breaker := infracb.New(infracb.Config{
		FailureThreshold: cfg.BreakerFailures,
		Timeout:          cfg.BreakerCooldown,
		OnStateChange: func(from, to infracb.State) {
			log.Warn("Cache circuit breaker state changed",
				infralogger.String("from", from.String()),
				infralogger.String("to", to.String()),
			)
			metrics.SetBreakerState(int(to))
		},
	})

	return &RedisCache{
		client:  client,
		breaker: breaker,
		logger:  log,
	}
}

// Get returns the value stored at key. A missing key is (nil, false, nil).
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var (
		value []byte
		found bool
	)

	err := c.breaker.Execute(func() error {
		b, err := c.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		value, found = b, true
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("cache get %s: %w", key, err)
	}

	return value, found, nil
}

// Set stores value at key for ttl.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	err := c.breaker.Execute(func() error {
		return c.client.Set(ctx, key, value, ttl).Err()
	})
	if err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key succeeds.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("cache delete %s: %w", key, err)
	}
	return nil
}

// Ping checks that Redis answers.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// BreakerState reports the breaker state for health output.
func (c *RedisCache) BreakerState() infracb.State {
	return c.breaker.State()
}
