package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/task-tracker/internal/model"
	"github.com/iliyamo/task-tracker/internal/utils"
)

// UserRepo persists user accounts. All reads exclude soft-deleted rows;
// deletion is the soft-delete cascade in SoftDelete.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,name,email,password_hash,role,created_at,updated_at,deleted_at"

func scanUser(row *sql.Row) (model.User, error) {
	var u model.User
	var deleted sql.NullTime
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role,
		&u.CreatedAt, &u.UpdatedAt, &deleted)
	if err == sql.ErrNoRows {
		return u, ErrNotFound
	}
	if deleted.Valid {
		u.DeletedAt = &deleted.Time
	}
	return u, err
}

// Create inserts a user and returns its ID. The password is hashed here so
// plain text never crosses the repository boundary outward.
func (r *UserRepo) Create(ctx context.Context, name, email, password, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if taken, err := r.emailTaken(ctx, email, 0); err != nil {
		return 0, err
	} else if taken {
		return 0, ErrEmailExists
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash, role) VALUES (?,?,?,?)",
		name, email, hash, role)
	if err != nil {
		// 1062 = duplicate key; a racing insert can still win the unique index.
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a non-deleted user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? AND deleted_at IS NULL LIMIT 1", email))
}

// GetByID fetches a non-deleted user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? AND deleted_at IS NULL LIMIT 1", id))
}

// List returns all non-deleted users ordered by id.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE deleted_at IS NULL ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		var deleted sql.NullTime
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role,
			&u.CreatedAt, &u.UpdatedAt, &deleted); err != nil {
			return nil, err
		}
		if deleted.Valid {
			u.DeletedAt = &deleted.Time
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UserChanges lists the optional fields an update may touch. Nil means
// "leave unchanged". Password is plain text and hashed on write.
type UserChanges struct {
	Name     *string
	Email    *string
	Role     *string
	Password *string
}

// Update applies the non-nil changes to a user. Email uniqueness is
// checked among non-deleted rows excluding the user's own id, so a
// self-update never collides with itself.
func (r *UserRepo) Update(ctx context.Context, id uint64, ch UserChanges, cost int) error {
	set := make([]string, 0, 4)
	args := make([]interface{}, 0, 5)

	if ch.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*ch.Email))
		if taken, err := r.emailTaken(ctx, email, id); err != nil {
			return err
		} else if taken {
			return ErrEmailExists
		}
		set = append(set, "email=?")
		args = append(args, email)
	}
	if ch.Name != nil {
		set = append(set, "name=?")
		args = append(args, *ch.Name)
	}
	if ch.Role != nil {
		set = append(set, "role=?")
		args = append(args, *ch.Role)
	}
	if ch.Password != nil {
		hash, err := utils.HashPassword(*ch.Password, cost)
		if err != nil {
			return err
		}
		set = append(set, "password_hash=?")
		args = append(args, hash)
	}
	if len(set) == 0 {
		return nil
	}
	set = append(set, "updated_at=NOW()")
	args = append(args, id)

	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET "+strings.Join(set, ", ")+" WHERE id=? AND deleted_at IS NULL", args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Either the row is gone or nothing changed; re-check existence so
		// a no-op update on a live row is not reported as missing.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// emailTaken reports whether a non-deleted user other than excludeID
// already uses the address.
func (r *UserRepo) emailTaken(ctx context.Context, email string, excludeID uint64) (bool, error) {
	var id uint64
	err := r.DB.QueryRowContext(ctx,
		"SELECT id FROM users WHERE email=? AND deleted_at IS NULL AND id<>? LIMIT 1",
		email, excludeID).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SoftDelete marks the given users as deleted and cascades the soft delete
// to every task they own, all inside one transaction. The two writes used
// to be sequential, which could leave live tasks under a deleted owner if
// the second failed; the transaction closes that gap. Returns the number
// of cascaded tasks.
func (r *UserRepo) SoftDelete(ctx context.Context, ids ...uint64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	in, args := placeholders(ids)

	res, err := tx.ExecContext(ctx,
		"UPDATE users SET deleted_at=NOW(), updated_at=NOW() WHERE id IN ("+in+") AND deleted_at IS NULL",
		args...)
	if err != nil {
		return 0, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return 0, ErrNotFound
	}

	res, err = tx.ExecContext(ctx,
		"UPDATE tasks SET deleted_at=NOW(), updated_at=NOW() WHERE user_id IN ("+in+") AND deleted_at IS NULL",
		args...)
	if err != nil {
		return 0, err
	}
	cascaded, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return cascaded, nil
}

// placeholders renders "?,?,?" and the matching argument slice for an
// IN clause over the given ids.
func placeholders(ids []uint64) (string, []interface{}) {
	marks := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		marks[i] = "?"
		args[i] = id
	}
	return strings.Join(marks, ","), args
}
