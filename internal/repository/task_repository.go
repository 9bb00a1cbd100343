package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/task-tracker/internal/model"
)

// TaskRepo persists tasks. Regular queries are owner scoped; ListAll is
// the admin view across owners. Reads exclude soft-deleted rows.
type TaskRepo struct{ DB *sql.DB }

func NewTaskRepo(db *sql.DB) *TaskRepo { return &TaskRepo{DB: db} }

const taskColumns = "id,user_id,title,description,status,due_date,created_at,updated_at"

func scanTasks(rows *sql.Rows) ([]model.Task, error) {
	defer rows.Close()
	var tasks []model.Task
	for rows.Next() {
		var t model.Task
		var due sql.NullTime
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Status,
			&due, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		if due.Valid {
			t.DueDate = &due.Time
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Create inserts a task for its owner and returns the new id.
func (r *TaskRepo) Create(ctx context.Context, t model.Task) (uint64, error) {
	var due interface{}
	if t.DueDate != nil {
		due = *t.DueDate
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO tasks (user_id, title, description, status, due_date) VALUES (?,?,?,?,?)",
		t.UserID, t.Title, t.Description, t.Status, due)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetForOwner fetches one non-deleted task, constrained to its owner so a
// user can never read someone else's row by guessing ids.
func (r *TaskRepo) GetForOwner(ctx context.Context, id, ownerID uint64) (model.Task, error) {
	var t model.Task
	var due sql.NullTime
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE id=? AND user_id=? AND deleted_at IS NULL LIMIT 1",
		id, ownerID).Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Status,
		&due, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	if due.Valid {
		t.DueDate = &due.Time
	}
	return t, err
}

// ListByOwner returns the owner's non-deleted tasks ordered by id.
func (r *TaskRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.Task, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE user_id=? AND deleted_at IS NULL ORDER BY id", ownerID)
	if err != nil {
		return nil, err
	}
	return scanTasks(rows)
}

// ListAll returns every non-deleted task across all owners (admin view).
func (r *TaskRepo) ListAll(ctx context.Context) ([]model.Task, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE deleted_at IS NULL ORDER BY id")
	if err != nil {
		return nil, err
	}
	return scanTasks(rows)
}

// TaskChanges lists the optional fields an update may touch. Nil means
// "leave unchanged".
type TaskChanges struct {
	Title       *string
	Description *string
	Status      *string
	DueDate     *sql.NullTime
}

// Update applies the non-nil changes to an owner's task.
func (r *TaskRepo) Update(ctx context.Context, id, ownerID uint64, ch TaskChanges) error {
	set := make([]string, 0, 4)
	args := make([]interface{}, 0, 6)

	if ch.Title != nil {
		set = append(set, "title=?")
		args = append(args, *ch.Title)
	}
	if ch.Description != nil {
		set = append(set, "description=?")
		args = append(args, *ch.Description)
	}
	if ch.Status != nil {
		set = append(set, "status=?")
		args = append(args, *ch.Status)
	}
	if ch.DueDate != nil {
		set = append(set, "due_date=?")
		args = append(args, *ch.DueDate)
	}
	if len(set) == 0 {
		return nil
	}
	set = append(set, "updated_at=NOW()")
	args = append(args, id, ownerID)

	res, err := r.DB.ExecContext(ctx,
		"UPDATE tasks SET "+strings.Join(set, ", ")+" WHERE id=? AND user_id=? AND deleted_at IS NULL",
		args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if _, err := r.GetForOwner(ctx, id, ownerID); err != nil {
			return err
		}
	}
	return nil
}

// SoftDelete marks one of the owner's tasks as deleted.
func (r *TaskRepo) SoftDelete(ctx context.Context, id, ownerID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE tasks SET deleted_at=NOW(), updated_at=NOW() WHERE id=? AND user_id=? AND deleted_at IS NULL",
		id, ownerID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
