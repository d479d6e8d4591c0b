// Package service orchestrates task mutations: validate, commit to the
// store, invalidate the cache entry, then publish the lifecycle event.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	infralogger "github.com/jonesrussell/task-registry/infrastructure/logger"
	"github.com/jonesrussell/task-registry/internal/events"
	"github.com/jonesrussell/task-registry/internal/models"
	"github.com/jonesrussell/task-registry/internal/telemetry"
)

// Store is the durable task store.
type Store interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	Insert(ctx context.Context, task *models.Task) (*models.Task, error)
	UpdateFields(ctx context.Context, id uuid.UUID, patch models.TaskPatch) (*models.Task, error)
	DeleteByID(ctx context.Context, id uuid.UUID) (bool, error)
	List(ctx context.Context, filter models.ListFilter) ([]models.Task, int, error)
}

// Reader serves cached point reads and invalidates entries after writes.
type Reader interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Task, error)
	Invalidate(ctx context.Context, id uuid.UUID) error
}

// TaskService is safe for concurrent use.
type TaskService struct {
	store        Store
	reader       Reader
	publisher    *events.Publisher
	logger       infralogger.Logger
	metrics      *telemetry.Metrics
	storeTimeout time.Duration
}

// Options carries the optional collaborators of a TaskService.
type Options struct {
	// Publisher may be nil to disable events.
	Publisher *events.Publisher
	Metrics   *telemetry.Metrics
	// StoreTimeout bounds each write and list call; zero means 5s.
	StoreTimeout time.Duration
}

// NewTaskService wires a service. store and reader are required.
func NewTaskService(store Store, reader Reader, log infralogger.Logger, opts Options) (*TaskService, error) {
	if store == nil {
		return nil, errors.New("service: store is required")
	}
	if reader == nil {
		return nil, errors.New("service: reader is required")
	}
	if log == nil {
		log = infralogger.NewNop()
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = 5 * time.Second
	}

	return &TaskService{
		store:        store,
		reader:       reader,
		publisher:    opts.Publisher,
		logger:       log,
		metrics:      opts.Metrics,
		storeTimeout: opts.StoreTimeout,
	}, nil
}

// Create validates req and inserts the task. The cache is not touched.
func (s *TaskService) Create(ctx context.Context, req models.CreateTaskRequest) (*models.Task, error) {
	task, err := req.ToTask()
	if err != nil {
		return nil, err
	}

	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	started := time.Now()
	created, err := s.store.Insert(sctx, task)
	s.observe("insert", started, err)
	if err != nil {
		return nil, models.WrapStoreError("insert task", err)
	}

	s.logger.Info("Task created",
		infralogger.String("task_id", created.ID.String()),
		infralogger.String("task_name", created.Name),
	)
	s.publisher.PublishAsync(events.TaskCreated(created))
	return created, nil
}

// Get returns the task with id.
func (s *TaskService) Get(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	return s.reader.Get(ctx, id)
}

// Update applies the supplied fields of patch and invalidates the cache
// entry before returning. An empty patch returns the current task.
func (s *TaskService) Update(ctx context.Context, id uuid.UUID, patch models.TaskPatch) (*models.Task, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	started := time.Now()
	updated, err := s.store.UpdateFields(sctx, id, patch)
	s.observe("update", started, err)
	if err != nil {
		return nil, models.WrapStoreError("update task "+id.String(), err)
	}

	s.invalidate(ctx, id)

	changed := patch.Fields()
	if len(changed) > 0 {
		s.logger.Info("Task updated",
			infralogger.String("task_id", id.String()),
			infralogger.Strings("changed_fields", changed),
		)
		s.publisher.PublishAsync(events.TaskUpdated(updated, changed))
	}
	return updated, nil
}

// Delete removes the task and invalidates its cache entry.
func (s *TaskService) Delete(ctx context.Context, id uuid.UUID) error {
	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	started := time.Now()
	removed, err := s.store.DeleteByID(sctx, id)
	s.observe("delete", started, err)
	if err != nil {
		return models.WrapStoreError("delete task "+id.String(), err)
	}
	if !removed {
		return models.ErrNotFound
	}

	s.invalidate(ctx, id)

	s.logger.Info("Task deleted", infralogger.String("task_id", id.String()))
	s.publisher.PublishAsync(events.TaskDeleted(id))
	return nil
}

// List reads one page straight from the store.
func (s *TaskService) List(ctx context.Context, filter models.ListFilter) (*models.TaskList, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	started := time.Now()
	items, total, err := s.store.List(sctx, filter)
	s.observe("list", started, err)
	if err != nil {
		return nil, models.WrapStoreError("list tasks", err)
	}
	if items == nil {
		items = []models.Task{}
	}

	return &models.TaskList{
		Items:  items,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}

// invalidate runs after a committed write. Failures are absorbed: the entry
// expires within the TTL.
func (s *TaskService) invalidate(ctx context.Context, id uuid.UUID) {
	if err := s.reader.Invalidate(ctx, id); err != nil {
		s.logger.Warn("Cache invalidation failed",
			infralogger.String("task_id", id.String()),
			infralogger.Error(err),
		)
	}
}

func (s *TaskService) observe(op string, started time.Time, err error) {
	failed := err != nil && !errors.Is(err, models.ErrNotFound) && !errors.Is(err, models.ErrValidation)
	s.metrics.ObserveStore(op, started, failed)
}
