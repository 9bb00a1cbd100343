package middleware

import (
	"errors"   // mapping verification failures onto rejection messages
	"log"      // reporting revocation store outages
	"net/http" // HTTP status codes
	"strings"  // bearer prefix handling

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/task-tracker/internal/auth"
)

// AuthGuard authenticates a request from its Authorization header.  It
// verifies the bearer token's signature and time bounds, confirms the
// token has not been revoked, and attaches the resulting Principal to the
// context.  It must run before any guard that needs an identity.
type AuthGuard struct {
	Tokens  *auth.TokenService
	Revoked auth.Store
	// FailOpen controls the policy when the revocation store cannot be
	// reached: false rejects with 503 so a revoked token is never admitted
	// during an outage; true admits the token since it already passed
	// signature and expiry verification.
	FailOpen bool
}

// NewAuthGuard builds an AuthGuard over a token service and a revocation
// store.
func NewAuthGuard(tokens *auth.TokenService, revoked auth.Store, failOpen bool) *AuthGuard {
	return &AuthGuard{Tokens: tokens, Revoked: revoked, FailOpen: failOpen}
}

func (g *AuthGuard) Evaluate(c echo.Context) Result {
	// A valid header is the literal scheme "Bearer " followed by the
	// serialized token.  Anything else counts as no credential at all.
	header := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return Reject(http.StatusUnauthorized, "authentication required: token not provided")
	}
	raw := strings.TrimPrefix(header, "Bearer ")

	claims, err := g.Tokens.Verify(raw)
	if err != nil {
		return Reject(http.StatusUnauthorized, verifyMessage(err))
	}

	// Revocation is a layered check on top of signature/expiry validity.
	// Only tokens that survived Verify reach this lookup, so a missing
	// entry is a definitive "not revoked".
	revoked, err := g.Revoked.IsRevoked(c.Request().Context(), raw)
	if err != nil {
		if !g.FailOpen {
			// Distinct from 401 so monitoring can tell an outage apart
			// from invalid credentials.
			return Reject(http.StatusServiceUnavailable, "authorization backend unavailable")
		}
		log.Printf("auth guard: revocation check failed, admitting token (fail-open): %v", err)
	} else if revoked {
		return Reject(http.StatusUnauthorized, "token has been revoked")
	}

	SetPrincipal(c, Principal{UserID: claims.UserID, Email: claims.Email, Role: claims.Role})
	c.Set(tokenKey, raw)
	return Pass()
}

// verifyMessage translates a verification error into the message sent to
// the client.  Expired, not-yet-valid and tampered tokens are
// distinguishable to the caller.
func verifyMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrExpired):
		return "token has expired, please log in again"
	case errors.Is(err, auth.ErrNotYetValid):
		return "token not yet valid"
	case errors.Is(err, auth.ErrInvalidSignature):
		return "invalid token signature"
	default:
		return "invalid or malformed token"
	}
}
