package handler

// Store interfaces consumed by the handlers. They are satisfied by the
// concrete repositories in internal/repository; tests substitute stubs.

import (
	"context"

	"github.com/iliyamo/task-tracker/internal/model"
	"github.com/iliyamo/task-tracker/internal/repository"
)

// UserStore is the slice of the user repository the handlers need.
type UserStore interface {
	Create(ctx context.Context, name, email, password, role string, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	List(ctx context.Context) ([]model.User, error)
	Update(ctx context.Context, id uint64, ch repository.UserChanges, cost int) error
	// SoftDelete removes the users and cascades to their tasks in one
	// transaction, returning the number of cascaded tasks.
	SoftDelete(ctx context.Context, ids ...uint64) (int64, error)
}

// TaskStore is the slice of the task repository the handlers need.
type TaskStore interface {
	Create(ctx context.Context, t model.Task) (uint64, error)
	GetForOwner(ctx context.Context, id, ownerID uint64) (model.Task, error)
	ListByOwner(ctx context.Context, ownerID uint64) ([]model.Task, error)
	ListAll(ctx context.Context) ([]model.Task, error)
	Update(ctx context.Context, id, ownerID uint64, ch repository.TaskChanges) error
	SoftDelete(ctx context.Context, id, ownerID uint64) error
}
