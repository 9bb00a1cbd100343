// Package middleware implements the access guard chain evaluated in front
// of protected routes.  A guard either passes, optionally enriching the
// request context with identity, or rejects with a status and message.
// Guards compose into an ordered list; the chain halts at the first
// rejection.  Representing the outcome as a value instead of short-circuit
// control flow keeps each guard and each ordering independently testable.
package middleware

import (
	"github.com/labstack/echo/v4" // Echo framework used for middleware and handlers
)

// Result is the outcome of one guard evaluation.  The zero value is a
// pass; a rejection carries the HTTP status and the message returned to
// the client.
type Result struct {
	Status  int
	Message string
}

// Pass returns a passing Result.
func Pass() Result { return Result{} }

// Reject returns a rejecting Result with the given status and message.
func Reject(status int, message string) Result {
	return Result{Status: status, Message: message}
}

// Rejected reports whether the guard rejected the request.
func (r Result) Rejected() bool { return r.Status != 0 }

// Guard is a single pass/reject check.  Evaluate may store values in the
// context for later guards and for the handler (the authentication guard
// attaches the Principal this way).
type Guard interface {
	Evaluate(c echo.Context) Result
}

// Chain adapts an ordered list of guards to an Echo middleware.  Guards
// run strictly in the order given: the role guard depends on the
// authentication guard having attached a Principal, and future guards may
// depend on earlier enrichment the same way.
func Chain(guards ...Guard) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			for _, g := range guards {
				if res := g.Evaluate(c); res.Rejected() {
					return c.JSON(res.Status, echo.Map{"error": res.Message})
				}
			}
			return next(c)
		}
	}
}

// Principal is the verified identity attached to a request after the
// authentication guard succeeds.  It lives only for the request.
type Principal struct {
	UserID uint64
	Email  string
	Role   string
}

// Context keys used by the guards.  user_id and role are also set
// individually so handlers can read them without knowing about Principal.
const (
	principalKey = "principal"
	tokenKey     = "token"
)

// SetPrincipal stores the authenticated identity in the request context.
func SetPrincipal(c echo.Context, p Principal) {
	c.Set(principalKey, p)
	c.Set("user_id", p.UserID)
	c.Set("role", p.Role)
}

// GetPrincipal retrieves the identity attached by the authentication
// guard.  The second return value is false when no guard ran or it did
// not pass.
func GetPrincipal(c echo.Context) (Principal, bool) {
	p, ok := c.Get(principalKey).(Principal)
	return p, ok
}

// Token returns the raw bearer token the authentication guard verified,
// or "" when the request is unauthenticated.  Logout uses this to revoke
// the exact credential the client presented.
func Token(c echo.Context) string {
	t, _ := c.Get(tokenKey).(string)
	return t
}
