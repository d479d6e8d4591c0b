package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	infracb "github.com/jonesrussell/task-registry/infrastructure/circuitbreaker"
	infralogger "github.com/jonesrussell/task-registry/infrastructure/logger"
	"github.com/jonesrussell/task-registry/internal/cache"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCache(t *testing.T, cfg cache.Config) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{
		Addr:        mr.Addr(),
		DialTimeout: 100 * time.Millisecond,
		ReadTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	return cache.NewRedisCache(client, cfg, infralogger.NewNop(), nil), mr
}

func TestRedisCache_SetGetDelete(t *testing.T) {
	t.Parallel()

	c, mr := setupCache(t, cache.Config{})
	ctx := context.Background()

	_, found, err := c.Get(ctx, "task:a")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, "task:a", []byte(`{"name":"a"}`), time.Minute))

	value, found, err := c.Get(ctx, "task:a")
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `{"name":"a"}`, string(value))
	assert.Equal(t, time.Minute, mr.TTL("task:a"))

	require.NoError(t, c.Delete(ctx, "task:a"))
	assert.False(t, mr.Exists("task:a"))

	require.NoError(t, c.Delete(ctx, "task:a"), "deleting a missing key succeeds")
}

func TestRedisCache_EntryExpiresAfterTTL(t *testing.T) {
	t.Parallel()

	c, mr := setupCache(t, cache.Config{})
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "task:b", []byte("x"), 60*time.Second))
	mr.FastForward(59 * time.Second)
	assert.True(t, mr.Exists("task:b"))

	mr.FastForward(2 * time.Second)
	_, found, err := c.Get(ctx, "task:b")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisCache_BreakerOpensOnFailures(t *testing.T) {
	t.Parallel()

	c, mr := setupCache(t, cache.Config{BreakerFailures: 2, BreakerCooldown: time.Hour})
	ctx := context.Background()

	require.NoError(t, c.Ping(ctx))
	mr.SetError("ERR injected failure")

	for range 2 {
		_, _, err := c.Get(ctx, "task:c")
		require.Error(t, err)
		assert.False(t, errors.Is(err, infracb.ErrCircuitOpen))
	}
	assert.Equal(t, infracb.StateOpen, c.BreakerState())

	mr.SetError("")

	_, _, err := c.Get(ctx, "task:c")
	require.ErrorIs(t, err, infracb.ErrCircuitOpen)

	err = c.Set(ctx, "task:c", []byte("x"), time.Minute)
	require.ErrorIs(t, err, infracb.ErrCircuitOpen)

	require.NoError(t, c.Delete(ctx, "task:c"), "delete bypasses the breaker")
}

func TestRedisCache_MissDoesNotTripBreaker(t *testing.T) {
	t.Parallel()

	c, _ := setupCache(t, cache.Config{BreakerFailures: 1, BreakerCooldown: time.Hour})

	for range 3 {
		_, found, err := c.Get(context.Background(), "task:none")
		require.NoError(t, err)
		assert.False(t, found)
	}
	assert.Equal(t, infracb.StateClosed, c.BreakerState())
}
