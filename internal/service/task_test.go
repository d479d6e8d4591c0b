package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/task-registry/internal/coordinator"
	"github.com/jonesrussell/task-registry/internal/events"
	"github.com/jonesrussell/task-registry/internal/models"
	"github.com/jonesrussell/task-registry/internal/service"
	"github.com/jonesrussell/task-registry/internal/testhelpers"
)

type fixture struct {
	store *testhelpers.MemoryStore
	cache *testhelpers.MemoryCache
	svc   *service.TaskService
}

func newFixture(t *testing.T, publisher *events.Publisher) *fixture {
	t.Helper()

	store := testhelpers.NewMemoryStore()
	cache := testhelpers.NewMemoryCache()
	log := testhelpers.NewTestLogger()

	coord, err := coordinator.New(store, cache, coordinator.Config{}, log, nil)
	require.NoError(t, err)

	svc, err := service.NewTaskService(store, coord, log, service.Options{Publisher: publisher})
	require.NoError(t, err)

	return &fixture{store: store, cache: cache, svc: svc}
}

func ptr[T any](v T) *T { return &v }

func TestNewTaskService_RejectsMissingHandles(t *testing.T) {
	t.Parallel()

	coord, err := coordinator.New(testhelpers.NewMemoryStore(), testhelpers.NewMemoryCache(), coordinator.Config{}, nil, nil)
	require.NoError(t, err)

	_, err = service.NewTaskService(nil, coord, nil, service.Options{})
	require.Error(t, err)
	_, err = service.NewTaskService(testhelpers.NewMemoryStore(), nil, nil, service.Options{})
	require.Error(t, err)
}

func TestTaskService_Scenario(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, models.CreateTaskRequest{
		Name:     "shop-scan",
		URL:      "https://example.com",
		SiteType: models.SiteTypeEcommerce,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, models.StatusCreated, created.Status)
	assert.Equal(t, models.Criteria{}, created.Criteria)
	assert.Equal(t, int64(0), f.cache.SetCalls()+f.cache.DeleteCalls(), "create does not touch the cache")

	first, err := f.svc.Get(ctx, created.ID)
	require.NoError(t, err)
	second, err := f.svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), f.store.FindCalls(), "second get is a cache hit")

	updated, err := f.svc.Update(ctx, created.ID, models.TaskPatch{Status: ptr(models.StatusCompleted)})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, updated.Status)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
	assert.Equal(t, created.Name, updated.Name, "unset fields are untouched")

	got, err := f.svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)

	require.NoError(t, f.svc.Delete(ctx, created.ID))

	_, err = f.svc.Get(ctx, created.ID)
	require.ErrorIs(t, err, models.ErrNotFound)
	_, cached := f.cache.Peek(coordinator.Key(created.ID))
	assert.False(t, cached)
}

func TestTaskService_CreateValidation(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	_, err := f.svc.Create(context.Background(), models.CreateTaskRequest{Name: "a", URL: "not a url"})
	require.ErrorIs(t, err, models.ErrValidation)
	assert.Equal(t, int64(0), f.store.InsertCalls())
}

func TestTaskService_UpdateMissing(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	_, err := f.svc.Update(context.Background(), uuid.New(), models.TaskPatch{Status: ptr(models.StatusRunning)})
	require.ErrorIs(t, err, models.ErrNotFound)
	assert.Equal(t, int64(0), f.cache.DeleteCalls())
}

func TestTaskService_UpdateValidation(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	_, err := f.svc.Update(context.Background(), uuid.New(), models.TaskPatch{Status: ptr(models.Status("archived"))})
	require.ErrorIs(t, err, models.ErrValidation)
	assert.Equal(t, int64(0), f.store.UpdateCalls())
}

func TestTaskService_EmptyPatchReturnsCurrent(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, models.CreateTaskRequest{Name: "a", URL: "https://example.com"})
	require.NoError(t, err)

	same, err := f.svc.Update(ctx, created.ID, models.TaskPatch{})
	require.NoError(t, err)
	assert.Equal(t, created, same)
}

func TestTaskService_StatusTransitionsAreUnconstrained(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, models.CreateTaskRequest{Name: "a", URL: "https://example.com"})
	require.NoError(t, err)
	require.Equal(t, models.StatusCreated, created.Status)

	for _, status := range []models.Status{models.StatusCompleted, models.StatusCreated, models.StatusFailed, models.StatusRunning} {
		updated, updateErr := f.svc.Update(ctx, created.ID, models.TaskPatch{Status: ptr(status)})
		require.NoError(t, updateErr)
		assert.Equal(t, status, updated.Status)
	}
}

func TestTaskService_DeleteMissing(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	err := f.svc.Delete(context.Background(), uuid.New())
	require.ErrorIs(t, err, models.ErrNotFound)
	assert.Equal(t, int64(0), f.cache.DeleteCalls())
}

func TestTaskService_StoreFailureIsUnavailable(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx := context.Background()
	f.store.FailWith(errors.New("connection refused"))

	_, err := f.svc.Create(ctx, models.CreateTaskRequest{Name: "a", URL: "https://example.com"})
	require.ErrorIs(t, err, models.ErrStoreUnavailable)

	_, err = f.svc.Update(ctx, uuid.New(), models.TaskPatch{Name: ptr("b")})
	require.ErrorIs(t, err, models.ErrStoreUnavailable)

	err = f.svc.Delete(ctx, uuid.New())
	require.ErrorIs(t, err, models.ErrStoreUnavailable)

	_, err = f.svc.List(ctx, models.ListFilter{Limit: 10})
	require.ErrorIs(t, err, models.ErrStoreUnavailable)
}

func TestTaskService_InvalidationFailureIsAbsorbed(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, models.CreateTaskRequest{Name: "a", URL: "https://example.com"})
	require.NoError(t, err)

	f.cache.FailDeletes(errors.New("connection reset"))

	updated, err := f.svc.Update(ctx, created.ID, models.TaskPatch{Status: ptr(models.StatusPaused)})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaused, updated.Status)

	require.NoError(t, f.svc.Delete(ctx, created.ID))
}

func TestTaskService_List(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx := context.Background()

	var completed []uuid.UUID
	for i, status := range []models.Status{
		models.StatusCompleted, models.StatusCreated, models.StatusCompleted,
		models.StatusCompleted, models.StatusFailed,
	} {
		task, err := f.svc.Create(ctx, models.CreateTaskRequest{
			Name:   "task-" + string(rune('a'+i)),
			URL:    "https://example.com",
			Status: status,
		})
		require.NoError(t, err)
		if status == models.StatusCompleted {
			completed = append(completed, task.ID)
		}
		time.Sleep(time.Millisecond)
	}

	page, err := f.svc.List(ctx, models.ListFilter{Status: models.StatusCompleted, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, completed[2], page.Items[0].ID, "newest first")
	assert.Equal(t, completed[1], page.Items[1].ID)
	for _, item := range page.Items {
		assert.Equal(t, models.StatusCompleted, item.Status)
	}

	rest, err := f.svc.List(ctx, models.ListFilter{Status: models.StatusCompleted, Limit: 10, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, rest.Total)
	require.Len(t, rest.Items, 1)
	assert.Equal(t, completed[0], rest.Items[0].ID)

	named, err := f.svc.List(ctx, models.ListFilter{Query: "TASK-B", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, named.Total)

	empty, err := f.svc.List(ctx, models.ListFilter{Status: models.StatusPaused, Limit: 10})
	require.NoError(t, err)
	assert.NotNil(t, empty.Items)
	assert.Empty(t, empty.Items)

	assert.Equal(t, int64(0), f.cache.GetCalls(), "list bypasses the cache")

	_, err = f.svc.List(ctx, models.ListFilter{Limit: 0})
	require.ErrorIs(t, err, models.ErrValidation)
}

func TestTaskService_PublishesLifecycleEvents(t *testing.T) {
	t.Parallel()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := newFixture(t, events.NewPublisher(client, "task-events", testhelpers.NewTestLogger()))
	ctx := context.Background()

	created, err := f.svc.Create(ctx, models.CreateTaskRequest{Name: "a", URL: "https://example.com"})
	require.NoError(t, err)
	_, err = f.svc.Update(ctx, created.ID, models.TaskPatch{Status: ptr(models.StatusRunning)})
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, created.ID))

	require.Eventually(t, func() bool {
		n, lenErr := client.XLen(ctx, "task-events").Result()
		return lenErr == nil && n == 3
	}, 2*time.Second, 10*time.Millisecond)
}
