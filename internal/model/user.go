package model

import "time"

// Role values stored in users.role.  Admins may manage every account and
// every task; regular users only see their own rows.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// ValidRole reports whether r is one of the accepted role names.
func ValidRole(r string) bool {
	return r == RoleAdmin || r == RoleUser
}

// User represents a row in the `users` table.  The json tags are omitted
// because these structs are used internally by the repository layer;
// handlers define separate response types with appropriate JSON tags.
// DeletedAt implements soft deletion: a non-nil value means the account is
// invisible to every query except the cascade bookkeeping.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Name         – display name.
//  Email        – unique email address (uniqueness only considers rows
//                 where deleted_at is NULL).
//  PasswordHash – bcrypt hashed password.
//  Role         – "admin" or "user".
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
//  DeletedAt    – soft delete marker (nullable).
type User struct {
	ID           uint64     // users.id
	Name         string     // users.name
	Email        string     // users.email
	PasswordHash string     // users.password_hash
	Role         string     // users.role
	CreatedAt    time.Time  // users.created_at
	UpdatedAt    time.Time  // users.updated_at
	DeletedAt    *time.Time // users.deleted_at (nullable)
}
