package store

import (
	"context"
	"database/sql"

	"github.com/Unobtainiumrock/priority-forge-sub000/internal/domain"
)

// TaskStore defines the interface for task persistence.
type TaskStore interface {
	// Create saves a new task. Returns ErrTaskExists when the ID is taken and
	// ErrInvalidEntity when the task fails domain validation.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by its ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id string) (*domain.Task, error)

	// List returns every task, completed ones included, oldest first. The
	// ranking engine needs the full set to derive blocking and dependency
	// factors.
	List(ctx context.Context) ([]domain.Task, error)

	// Update replaces every mutable column of an existing task.
	// Returns ErrTaskNotFound if the task does not exist.
	Update(ctx context.Context, task *domain.Task) error

	// Delete removes a task by ID.
	// Returns ErrTaskNotFound if the task does not exist.
	Delete(ctx context.Context, id string) error

	// WithTx returns a TaskStore bound to tx.
	WithTx(tx *sql.Tx) TaskStore
}
