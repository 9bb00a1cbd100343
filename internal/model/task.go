package model

import "time"

// Task status values stored in tasks.status.
const (
	StatusPending    = "pending"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
)

// ValidStatus reports whether s is one of the accepted task states.
func ValidStatus(s string) bool {
	return s == StatusPending || s == StatusInProgress || s == StatusCompleted
}

// Task represents a row in the `tasks` table.  Every task belongs to
// exactly one user via UserID; when that user is soft deleted the task is
// soft deleted in the same transaction.
//
// Fields:
//  ID          – primary key identifier.
//  UserID      – owner of the task (foreign key to users.id).
//  Title       – short summary, required.
//  Description – free-form body, may be empty.
//  Status      – one of "pending", "in-progress", "completed".
//  DueDate     – optional deadline (nullable).
//  CreatedAt   – timestamp of creation.
//  UpdatedAt   – timestamp of last update.
//  DeletedAt   – soft delete marker (nullable).
type Task struct {
	ID          uint64     // tasks.id
	UserID      uint64     // tasks.user_id
	Title       string     // tasks.title
	Description string     // tasks.description
	Status      string     // tasks.status
	DueDate     *time.Time // tasks.due_date (nullable)
	CreatedAt   time.Time  // tasks.created_at
	UpdatedAt   time.Time  // tasks.updated_at
	DeletedAt   *time.Time // tasks.deleted_at (nullable)
}
