// Package repository is the PostgreSQL task store.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	infralogger "github.com/jonesrussell/task-registry/infrastructure/logger"
	"github.com/jonesrussell/task-registry/internal/models"
)

const taskColumns = `id, name, url, site_type, status, criteria, created_at, updated_at`

// PostgreSQL error codes mapped to validation errors.
const (
	pqUniqueViolation = "23505"
	pqCheckViolation  = "23514"
)

// TaskRepository reads and writes the tasks table.
type TaskRepository struct {
	db     *sqlx.DB
	logger infralogger.Logger
}

// NewTaskRepository creates a repository over db.
func NewTaskRepository(db *sqlx.DB, log infralogger.Logger) *TaskRepository {
	return &TaskRepository{db: db, logger: log}
}

// FindByID returns models.ErrNotFound when no row matches.
func (r *TaskRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	var task models.Task
	err := r.db.GetContext(ctx, &task, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find task: %w", err)
	}
	return &task, nil
}

// Insert stores task and returns the row as written. A nil ID is replaced
// with a new UUID; zero timestamps are assigned by the database.
func (r *TaskRepository) Insert(ctx context.Context, task *models.Task) (*models.Task, error) {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	if task.Criteria == nil {
		task.Criteria = models.Criteria{}
	}
	criteria, err := task.Criteria.Value()
	if err != nil {
		return nil, err
	}

	createdAt := nullTime(task.CreatedAt)
	updatedAt := nullTime(task.UpdatedAt)
	if !updatedAt.Valid || (createdAt.Valid && updatedAt.Time.Before(createdAt.Time)) {
		updatedAt = createdAt
	}

	query := `
		INSERT INTO tasks (id, name, url, site_type, status, criteria, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb,
		        COALESCE($7::timestamptz, now()), COALESCE($8::timestamptz, now()))
		RETURNING ` + taskColumns

	var created models.Task
	err = r.db.QueryRowxContext(ctx, query,
		task.ID.String(),
		task.Name,
		task.URL,
		string(task.SiteType),
		string(task.Status),
		criteria,
		createdAt,
		updatedAt,
	).StructScan(&created)
	if err != nil {
		return nil, translateWriteError("insert task", err)
	}

	r.logger.Debug("Task inserted", infralogger.String("task_id", created.ID.String()))
	return &created, nil
}

// UpdateFields applies the supplied patch fields in one statement and bumps
// updated_at so it is strictly greater than before. An empty patch reads the
// row without writing. Returns models.ErrNotFound when no row matches.
func (r *TaskRepository) UpdateFields(ctx context.Context, id uuid.UUID, patch models.TaskPatch) (*models.Task, error) {
	if patch.IsEmpty() {
		return r.FindByID(ctx, id)
	}

	var criteria any
	if patch.Criteria != nil {
		v, err := patch.Criteria.Value()
		if err != nil {
			return nil, err
		}
		criteria = v
	}

	query := `
		UPDATE tasks SET
			name       = COALESCE($2, name),
			url        = COALESCE($3, url),
			site_type  = COALESCE($4, site_type),
			status     = COALESCE($5, status),
			criteria   = COALESCE($6::jsonb, criteria),
			updated_at = GREATEST(now(), updated_at + interval '1 microsecond')
		WHERE id = $1
		RETURNING ` + taskColumns

	var updated models.Task
	err := r.db.QueryRowxContext(ctx, query,
		id.String(),
		nullString(patch.Name),
		nullString(patch.URL),
		nullEnum(patch.SiteType),
		nullEnum(patch.Status),
		criteria,
	).StructScan(&updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, translateWriteError("update task", err)
	}

	r.logger.Debug("Task updated",
		infralogger.String("task_id", id.String()),
		infralogger.Strings("fields", patch.Fields()),
	)
	return &updated, nil
}

// DeleteByID reports whether a row was removed.
func (r *TaskRepository) DeleteByID(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id.String())
	if err != nil {
		return false, fmt.Errorf("delete task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// List returns one window of matching tasks, newest first, and the number of
// matching rows ignoring the window.
func (r *TaskRepository) List(ctx context.Context, filter models.ListFilter) ([]models.Task, int, error) {
	where, args := buildListWhere(filter)

	var total int
	// #nosec G202 -- where holds fixed column names and placeholders only
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM tasks`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	limitPos := strconv.Itoa(len(args) + 1)
	offsetPos := strconv.Itoa(len(args) + 2)
	// #nosec G202 -- where holds fixed column names and placeholders only
	query := `SELECT ` + taskColumns + ` FROM tasks` + where +
		` ORDER BY created_at DESC, id DESC LIMIT $` + limitPos + ` OFFSET $` + offsetPos

	items := make([]models.Task, 0, filter.Limit)
	if err := r.db.SelectContext(ctx, &items, query, append(args, filter.Limit, filter.Offset)...); err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}
	return items, total, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func buildListWhere(filter models.ListFilter) (whereClause string, args []any) {
	var clauses []string
	args = make([]any, 0, 3)

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		clauses = append(clauses, "status = $"+strconv.Itoa(len(args)))
	}
	if filter.SiteType != "" {
		args = append(args, string(filter.SiteType))
		clauses = append(clauses, "site_type = $"+strconv.Itoa(len(args)))
	}
	if filter.Query != "" {
		args = append(args, "%"+likeEscaper.Replace(filter.Query)+"%")
		clauses = append(clauses, "name ILIKE $"+strconv.Itoa(len(args))+` ESCAPE '\'`)
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func translateWriteError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return &models.ValidationError{Field: "id", Message: "already exists"}
		case pqCheckViolation:
			field := pqErr.Column
			if field == "" {
				field = "task"
			}
			return &models.ValidationError{Field: field, Message: "violates constraint " + pqErr.Constraint}
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullEnum[T ~string](v *T) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*v), Valid: true}
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
