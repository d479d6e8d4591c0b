package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	infralogger "github.com/jonesrussell/task-registry/infrastructure/logger"
	"github.com/jonesrussell/task-registry/internal/models"
	"github.com/jonesrussell/task-registry/internal/telemetry"
)

const (
	keyPrefix = "task:"

	defaultTTL          = 60 * time.Second
	defaultCacheTimeout = 250 * time.Millisecond
	defaultStoreTimeout = 5 * time.Second
)

// Store is the point-read side of the task store.
type Store interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
}

// Cache is a key/value cache with per-entry TTL. Get reports a missing key
// as (nil, false, nil).
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Config holds the entry TTL and per-call timeouts. Zero values take the
// defaults.
type Config struct {
	TTL          time.Duration
	CacheTimeout time.Duration
	StoreTimeout time.Duration
}

func (c *Config) setDefaults() {
	if c.TTL <= 0 {
		c.TTL = defaultTTL
	}
	if c.CacheTimeout <= 0 {
		c.CacheTimeout = defaultCacheTimeout
	}
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = defaultStoreTimeout
	}
}

// Coordinator is safe for concurrent use. It holds no lock across I/O.
type Coordinator struct {
	store   Store
	cache   Cache
	cfg     Config
	logger  infralogger.Logger
	metrics *telemetry.Metrics
	tracer  trace.Tracer
}

// New returns a coordinator. metrics may be nil.
func New(store Store, cache Cache, cfg Config, log infralogger.Logger, metrics *telemetry.Metrics) (*Coordinator, error) {
	if store == nil {
		return nil, errors.New("coordinator: store is required")
	}
	if cache == nil {
		return nil, errors.New("coordinator: cache is required")
	}
	if log == nil {
		log = infralogger.NewNop()
	}
	cfg.setDefaults()

	return &Coordinator{
		store:   store,
		cache:   cache,
		cfg:     cfg,
		logger:  log,
		metrics: metrics,
		tracer:  otel.Tracer("task-registry/coordinator"),
	}, nil
}

// Key returns the cache key of a task.
func Key(id uuid.UUID) string {
	return keyPrefix + id.String()
}

// TTL returns the effective entry TTL.
func (c *Coordinator) TTL() time.Duration {
	return c.cfg.TTL
}

// Get returns the task with id from the cache, or from the store on a miss.
// It returns models.ErrNotFound when no row exists and an error wrapping
// models.ErrStoreUnavailable when the store fails.
func (c *Coordinator) Get(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	ctx, span := c.tracer.Start(ctx, "coordinator.Get",
		trace.WithAttributes(attribute.String("task.id", id.String())),
	)
	defer span.End()

	key := Key(id)

	if task, hit := c.probe(ctx, id, key); hit {
		c.metrics.CacheHit()
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return task, nil
	}
	c.metrics.CacheMiss()
	span.SetAttributes(attribute.Bool("cache.hit", false))

	task, err := c.load(ctx, id)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "store read failed")
		}
		return nil, err
	}

	c.populate(ctx, key, task)
	return task, nil
}

// Invalidate deletes the cache entry for id. A missing entry is not an
// error. Failures wrap models.ErrCacheDegraded; callers log and absorb them.
// The delete runs even if ctx is already cancelled, since the write it
// follows has committed.
func (c *Coordinator) Invalidate(ctx context.Context, id uuid.UUID) error {
	ctx, span := c.tracer.Start(ctx, "coordinator.Invalidate",
		trace.WithAttributes(attribute.String("task.id", id.String())),
	)
	defer span.End()

	key := Key(id)
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.CacheTimeout)
	defer cancel()

	if err := c.cache.Delete(dctx, key); err != nil {
		c.metrics.Degraded(telemetry.OpDelete)
		span.RecordError(err)
		span.SetStatus(codes.Error, "cache delete failed")
		return fmt.Errorf("invalidate %s: %w: %w", key, models.ErrCacheDegraded, err)
	}

	c.metrics.Invalidated()
	return nil
}

func (c *Coordinator) probe(ctx context.Context, id uuid.UUID, key string) (*models.Task, bool) {
	pctx, cancel := context.WithTimeout(ctx, c.cfg.CacheTimeout)
	defer cancel()

	raw, found, err := c.cache.Get(pctx, key)
	if err != nil {
		c.metrics.Degraded(telemetry.OpGet)
		c.logger.Warn("Cache probe failed, reading store",
			infralogger.String("key", key),
			infralogger.Error(err),
		)
		return nil, false
	}
	if !found {
		return nil, false
	}

	var task models.Task
	decodeErr := json.Unmarshal(raw, &task)
	if decodeErr == nil {
		decodeErr = checkCached(&task, id)
	}
	if decodeErr != nil {
		c.metrics.Degraded(telemetry.OpDecode)
		c.logger.Warn("Cache entry undecodable, reading store",
			infralogger.String("key", key),
			infralogger.Error(decodeErr),
		)
		return nil, false
	}
	return &task, true
}

var errMalformedEntry = errors.New("cached entry is not a task")

// checkCached rejects entries that decode but could not have come from the
// store, such as null, {} or another task's row.
func checkCached(task *models.Task, id uuid.UUID) error {
	switch {
	case task.ID != id:
		return fmt.Errorf("%w: id %s", errMalformedEntry, task.ID)
	case task.Name == "", task.URL == "", task.CreatedAt.IsZero():
		return fmt.Errorf("%w: missing fields", errMalformedEntry)
	case !task.Status.Valid(), !task.SiteType.Valid():
		return fmt.Errorf("%w: unknown status or site type", errMalformedEntry)
	}
	return nil
}

func (c *Coordinator) load(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	sctx, cancel := context.WithTimeout(ctx, c.cfg.StoreTimeout)
	defer cancel()

	started := time.Now()
	task, err := c.store.FindByID(sctx, id)
	c.metrics.ObserveStore("find", started, err != nil && !errors.Is(err, models.ErrNotFound))
	if err != nil {
		return nil, models.WrapStoreError("find task "+id.String(), err)
	}
	return task, nil
}

func (c *Coordinator) populate(ctx context.Context, key string, task *models.Task) {
	raw, err := json.Marshal(task)
	if err != nil {
		c.metrics.Degraded(telemetry.OpSet)
		c.logger.Warn("Encode task for cache failed",
			infralogger.String("key", key),
			infralogger.Error(err),
		)
		return
	}

	sctx, cancel := context.WithTimeout(ctx, c.cfg.CacheTimeout)
	defer cancel()

	if setErr := c.cache.Set(sctx, key, raw, c.cfg.TTL); setErr != nil {
		c.metrics.Degraded(telemetry.OpSet)
		c.logger.Warn("Cache populate failed",
			infralogger.String("key", key),
			infralogger.Error(setErr),
		)
		return
	}
	c.metrics.Populated()
}
