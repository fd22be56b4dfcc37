package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Unobtainiumrock/priority-forge-sub000/internal/domain"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/platform/logger"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/store"
)

const taskColumns = `id, project, title, description, priority, status, deadline, effort,
	blocking, dependencies, overrides, notes, created_at, updated_at, completed_at`

// TaskStore implements store.TaskStore.
type TaskStore struct {
	db      store.DBTX
	dialect Dialect
	logger  *slog.Logger
}

var _ store.TaskStore = (*TaskStore)(nil)

// NewTaskStore creates a TaskStore over db. If logger is nil, a default
// logger will be used.
func NewTaskStore(db store.DBTX, dialect Dialect, logger *slog.Logger) *TaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskStore{
		db:      db,
		dialect: dialect,
		logger:  logger.With(slog.String("component", "task_store")),
	}
}

// WithTx implements store.TaskStore.
func (s *TaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &TaskStore{db: tx, dialect: s.dialect, logger: s.logger}
}

// Create implements store.TaskStore.
func (s *TaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	row, err := encodeTask(task)
	if err != nil {
		return err
	}

	query := s.dialect.Rebind(`INSERT INTO tasks (` + taskColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = s.db.ExecContext(ctx, query,
		task.ID, task.Project, task.Title, task.Description,
		string(task.Priority), string(task.Status), row.deadline, string(task.Effort),
		task.Blocking, row.dependencies, row.overrides, task.Notes,
		task.CreatedAt.UTC(), task.UpdatedAt.UTC(), row.completedAt,
	)
	if err != nil {
		err = s.dialect.mapError(err)
		if errors.Is(err, store.ErrDuplicate) {
			log.Warn("task already exists", slog.String("task_id", task.ID))
			return fmt.Errorf("%w: %s", store.ErrTaskExists, task.ID)
		}
		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID))
		return store.NewStoreError("task", "create", "insert failed", err)
	}

	log.Debug("task created", slog.String("task_id", task.ID))
	return nil
}

// GetByID implements store.TaskStore.
func (s *TaskStore) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := s.dialect.Rebind(`SELECT ` + taskColumns + ` FROM tasks WHERE id = ?`)
	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found", slog.String("task_id", id))
			return nil, fmt.Errorf("%w: %s", store.ErrTaskNotFound, id)
		}
		log.Error("failed to get task by ID",
			slog.String("error", err.Error()),
			slog.String("task_id", id))
		return nil, store.NewStoreError("task", "get", "query failed", s.dialect.mapError(err))
	}
	return task, nil
}

// List implements store.TaskStore.
func (s *TaskStore) List(ctx context.Context) ([]domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY created_at, id`)
	if err != nil {
		log.Error("failed to list tasks", slog.String("error", err.Error()))
		return nil, store.NewStoreError("task", "list", "query failed", s.dialect.mapError(err))
	}
	defer func() { _ = rows.Close() }()

	var tasks []domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, store.NewStoreError("task", "list", "scan failed", err)
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("task", "list", "iteration failed", s.dialect.mapError(err))
	}

	log.Debug("tasks listed", slog.Int("count", len(tasks)))
	return tasks, nil
}

// Update implements store.TaskStore.
func (s *TaskStore) Update(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during update",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	row, err := encodeTask(task)
	if err != nil {
		return err
	}

	query := s.dialect.Rebind(`UPDATE tasks SET
		project = ?, title = ?, description = ?, priority = ?, status = ?, deadline = ?,
		effort = ?, blocking = ?, dependencies = ?, overrides = ?, notes = ?,
		updated_at = ?, completed_at = ?
		WHERE id = ?`)
	result, err := s.db.ExecContext(ctx, query,
		task.Project, task.Title, task.Description, string(task.Priority), string(task.Status),
		row.deadline, string(task.Effort), task.Blocking, row.dependencies, row.overrides,
		task.Notes, task.UpdatedAt.UTC(), row.completedAt,
		task.ID,
	)
	if err != nil {
		log.Error("failed to update task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID))
		return store.NewStoreError("task", "update", "update failed", s.dialect.mapError(err))
	}

	if err := checkRowsAffected(result, fmt.Errorf("%w: %s", store.ErrTaskNotFound, task.ID)); err != nil {
		return err
	}

	log.Debug("task updated", slog.String("task_id", task.ID))
	return nil
}

// Delete implements store.TaskStore.
func (s *TaskStore) Delete(ctx context.Context, id string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, s.dialect.Rebind(`DELETE FROM tasks WHERE id = ?`), id)
	if err != nil {
		log.Error("failed to delete task",
			slog.String("error", err.Error()),
			slog.String("task_id", id))
		return store.NewStoreError("task", "delete", "delete failed", s.dialect.mapError(err))
	}

	if err := checkRowsAffected(result, fmt.Errorf("%w: %s", store.ErrTaskNotFound, id)); err != nil {
		return err
	}

	log.Debug("task deleted", slog.String("task_id", id))
	return nil
}

// taskRow holds the columns that need encoding before they reach the driver.
type taskRow struct {
	deadline     sql.NullTime
	completedAt  sql.NullTime
	dependencies string
	overrides    sql.NullString
}

func encodeTask(task *domain.Task) (taskRow, error) {
	var row taskRow

	deps := task.Dependencies
	if deps == nil {
		deps = []string{}
	}
	b, err := json.Marshal(deps)
	if err != nil {
		return row, fmt.Errorf("failed to encode dependencies: %w", err)
	}
	row.dependencies = string(b)

	if task.Overrides != nil && !task.Overrides.IsEmpty() {
		b, err := json.Marshal(task.Overrides)
		if err != nil {
			return row, fmt.Errorf("failed to encode overrides: %w", err)
		}
		row.overrides = sql.NullString{String: string(b), Valid: true}
	}

	if task.Deadline != nil {
		row.deadline = sql.NullTime{Time: task.Deadline.UTC(), Valid: true}
	}
	if task.CompletedAt != nil {
		row.completedAt = sql.NullTime{Time: task.CompletedAt.UTC(), Valid: true}
	}
	return row, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(r rowScanner) (*domain.Task, error) {
	var (
		task                  domain.Task
		priority, status      string
		effort                string
		deadline, completedAt sql.NullTime
		dependencies          []byte
		overrides             []byte
	)

	err := r.Scan(
		&task.ID, &task.Project, &task.Title, &task.Description,
		&priority, &status, &deadline, &effort,
		&task.Blocking, &dependencies, &overrides, &task.Notes,
		&task.CreatedAt, &task.UpdatedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Priority = domain.Priority(priority)
	task.Status = domain.Status(status)
	task.Effort = domain.Effort(effort)
	task.CreatedAt = task.CreatedAt.UTC()
	task.UpdatedAt = task.UpdatedAt.UTC()
	task.Deadline = utcPtr(deadline)
	task.CompletedAt = utcPtr(completedAt)

	if len(dependencies) > 0 {
		if err := json.Unmarshal(dependencies, &task.Dependencies); err != nil {
			return nil, fmt.Errorf("failed to decode dependencies of task %s: %w", task.ID, err)
		}
		if len(task.Dependencies) == 0 {
			task.Dependencies = nil
		}
	}
	if len(overrides) > 0 {
		task.Overrides = &domain.FactorOverrides{}
		if err := json.Unmarshal(overrides, task.Overrides); err != nil {
			return nil, fmt.Errorf("failed to decode overrides of task %s: %w", task.ID, err)
		}
	}

	return &task, nil
}

func utcPtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}
