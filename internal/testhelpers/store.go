package testhelpers

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonesrussell/task-registry/internal/models"
)

// MemoryStore is an in-memory task store with call counters. Timestamps
// are UTC at microsecond precision, matching PostgreSQL.
type MemoryStore struct {
	mu    sync.Mutex
	rows  map[uuid.UUID]models.Task
	now   func() time.Time
	err   error
	delay time.Duration

	// AfterFind, when set, runs after FindByID has read a row and before it
	// returns, without the store lock held.
	AfterFind func(id uuid.UUID)

	finds   atomic.Int64
	inserts atomic.Int64
	updates atomic.Int64
	deletes atomic.Int64
	lists   atomic.Int64
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows: make(map[uuid.UUID]models.Task),
		now:  time.Now,
	}
}

// FailWith makes every call return err until cleared with nil.
func (s *MemoryStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// SetDelay makes every call wait d or until its context ends.
func (s *MemoryStore) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

func (s *MemoryStore) FindCalls() int64   { return s.finds.Load() }
func (s *MemoryStore) InsertCalls() int64 { return s.inserts.Load() }
func (s *MemoryStore) UpdateCalls() int64 { return s.updates.Load() }
func (s *MemoryStore) DeleteCalls() int64 { return s.deletes.Load() }
func (s *MemoryStore) ListCalls() int64   { return s.lists.Load() }

func (s *MemoryStore) enter(ctx context.Context) error {
	s.mu.Lock()
	err, delay := s.err, s.delay
	s.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	if err != nil {
		return err
	}
	return ctx.Err()
}

func (s *MemoryStore) stamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *MemoryStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	s.finds.Add(1)
	if err := s.enter(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	row, ok := s.rows[id]
	s.mu.Unlock()

	if hook := s.AfterFind; hook != nil {
		hook(id)
	}
	if !ok {
		return nil, models.ErrNotFound
	}
	return cloneTask(row), nil
}

func (s *MemoryStore) Insert(ctx context.Context, task *models.Task) (*models.Task, error) {
	s.inserts.Add(1)
	if err := s.enter(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	row := *cloneTask(*task)
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if _, exists := s.rows[row.ID]; exists {
		return nil, &models.ValidationError{Field: "id", Message: "task already exists"}
	}
	now := s.stamp()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = now
	}
	if row.Criteria == nil {
		row.Criteria = models.Criteria{}
	}
	s.rows[row.ID] = row
	return cloneTask(row), nil
}

func (s *MemoryStore) UpdateFields(ctx context.Context, id uuid.UUID, patch models.TaskPatch) (*models.Task, error) {
	s.updates.Add(1)
	if err := s.enter(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if patch.IsEmpty() {
		return cloneTask(row), nil
	}

	if patch.Name != nil {
		row.Name = *patch.Name
	}
	if patch.URL != nil {
		row.URL = *patch.URL
	}
	if patch.SiteType != nil {
		row.SiteType = *patch.SiteType
	}
	if patch.Status != nil {
		row.Status = *patch.Status
	}
	if patch.Criteria != nil {
		row.Criteria = cloneCriteria(*patch.Criteria)
	}

	next := s.stamp()
	if !next.After(row.UpdatedAt) {
		next = row.UpdatedAt.Add(time.Microsecond)
	}
	row.UpdatedAt = next
	s.rows[id] = row
	return cloneTask(row), nil
}

func (s *MemoryStore) DeleteByID(ctx context.Context, id uuid.UUID) (bool, error) {
	s.deletes.Add(1)
	if err := s.enter(ctx); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rows[id]; !ok {
		return false, nil
	}
	delete(s.rows, id)
	return true, nil
}

func (s *MemoryStore) List(ctx context.Context, filter models.ListFilter) ([]models.Task, int, error) {
	s.lists.Add(1)
	if err := s.enter(ctx); err != nil {
		return nil, 0, err
	}

	s.mu.Lock()
	matched := make([]models.Task, 0, len(s.rows))
	for _, row := range s.rows {
		if matches(row, filter) {
			matched = append(matched, *cloneTask(row))
		}
	}
	s.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return bytes.Compare(matched[i].ID[:], matched[j].ID[:]) > 0
	})

	total := len(matched)
	start := min(filter.Offset, total)
	end := min(start+filter.Limit, total)
	return matched[start:end], total, nil
}

func matches(row models.Task, filter models.ListFilter) bool {
	if filter.Status != "" && row.Status != filter.Status {
		return false
	}
	if filter.SiteType != "" && row.SiteType != filter.SiteType {
		return false
	}
	if filter.Query != "" && !strings.Contains(strings.ToLower(row.Name), strings.ToLower(filter.Query)) {
		return false
	}
	return true
}

func cloneTask(t models.Task) *models.Task {
	t.Criteria = cloneCriteria(t.Criteria)
	return &t
}

func cloneCriteria(c models.Criteria) models.Criteria {
	out := make(models.Criteria, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}
