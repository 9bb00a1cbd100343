package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/task-tracker/internal/model"
	"github.com/iliyamo/task-tracker/internal/repository"
)

// UserFinder is the slice of the user repository the role guard needs.
type UserFinder interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// RoleGuard requires that the authenticated user currently holds a given
// role.  The role is re-read from the database rather than trusted from
// the token claims: tokens are long-lived relative to role changes, and a
// demoted admin must lose access before their token expires.
type RoleGuard struct {
	Users UserFinder
	Role  string
}

// RequireRole builds a RoleGuard for the given role.
func RequireRole(users UserFinder, role string) *RoleGuard {
	return &RoleGuard{Users: users, Role: role}
}

func (g *RoleGuard) Evaluate(c echo.Context) Result {
	// No Principal means the authentication guard never ran or did not
	// pass — a chain misconfiguration.  That is an authentication
	// failure (401), never an authorization one.
	p, ok := GetPrincipal(c)
	if !ok {
		return Reject(http.StatusUnauthorized, "authentication required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := g.Users.GetByID(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// The account was deleted after the token was issued.
			return Reject(http.StatusForbidden, "access denied: "+g.Role+" privileges required")
		}
		return Reject(http.StatusInternalServerError, "authorization check failed")
	}
	if u.Role != g.Role {
		return Reject(http.StatusForbidden, "access denied: "+g.Role+" privileges required")
	}
	return Pass()
}
