// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrNotFound maps to an HTTP 404 while ErrEmailExists maps to
// a 409 when an admin creates a user with a taken address.
package repository

import "errors"

// ErrNotFound is returned when a row does not exist or is soft deleted.
// Handlers should translate this into an HTTP 404 response (or a 401
// during login, where user enumeration must be avoided).
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when an insert or update would violate the
// email uniqueness rule among non-deleted users. Handlers should
// translate this into an HTTP 409 response.
var ErrEmailExists = errors.New("email already exists")
