package testhelpers

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

type cacheEntry struct {
	value []byte
	ttl   time.Duration
}

// MemoryCache is an in-memory cache double with call counters and failure
// injection. Entries never expire; TTL records what the caller asked for.
type MemoryCache struct {
	mu        sync.Mutex
	entries   map[string]cacheEntry
	getErr    error
	setErr    error
	deleteErr error
	hang      bool

	gets    atomic.Int64
	sets    atomic.Int64
	deletes atomic.Int64
}

// NewMemoryCache returns an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]cacheEntry)}
}

// FailGets, FailSets and FailDeletes inject errors; nil clears them.
func (c *MemoryCache) FailGets(err error)    { c.mu.Lock(); c.getErr = err; c.mu.Unlock() }
func (c *MemoryCache) FailSets(err error)    { c.mu.Lock(); c.setErr = err; c.mu.Unlock() }
func (c *MemoryCache) FailDeletes(err error) { c.mu.Lock(); c.deleteErr = err; c.mu.Unlock() }

// Hang makes every call block until its context ends.
func (c *MemoryCache) Hang(on bool) { c.mu.Lock(); c.hang = on; c.mu.Unlock() }

func (c *MemoryCache) GetCalls() int64    { return c.gets.Load() }
func (c *MemoryCache) SetCalls() int64    { return c.sets.Load() }
func (c *MemoryCache) DeleteCalls() int64 { return c.deletes.Load() }

// Put stores raw bytes directly, bypassing counters.
func (c *MemoryCache) Put(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{value: append([]byte(nil), value...)}
}

// Peek returns the stored bytes without counting a call.
func (c *MemoryCache) Peek(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return e.value, ok
}

// TTL returns the TTL of the last Set for key.
func (c *MemoryCache) TTL(key string) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[key].ttl
}

func (c *MemoryCache) wait(ctx context.Context) error {
	c.mu.Lock()
	hang := c.hang
	c.mu.Unlock()
	if hang {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.gets.Add(1)
	if err := c.wait(ctx); err != nil {
		return nil, false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), e.value...), true, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.sets.Add(1)
	if err := c.wait(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[key] = cacheEntry{value: append([]byte(nil), value...), ttl: ttl}
	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.deletes.Add(1)
	if err := c.wait(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.deleteErr != nil {
		return c.deleteErr
	}
	delete(c.entries, key)
	return nil
}
