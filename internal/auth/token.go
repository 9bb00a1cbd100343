// Package auth implements the token half of the security pipeline: issuing
// and verifying signed access tokens, and the revocation store that
// invalidates tokens before their natural expiry.
package auth

import (
	"errors"  // sentinel error values for each verification failure
	"time"    // token lifetimes and timestamps

	"github.com/golang-jwt/jwt/v5" // JWT library for creating and parsing signed tokens
)

// Verification failure kinds.  Verify returns exactly one of these so the
// guard chain can produce a precise rejection message and so callers can
// tell a tampered token apart from a merely expired one.
var (
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrExpired          = errors.New("token expired")
	ErrNotYetValid      = errors.New("token not yet valid")
	ErrMalformed        = errors.New("invalid or malformed token")
)

// Claims is the payload embedded in every access token.  UserID, Email and
// Role identify the account at issuance time; the registered claims carry
// iat, nbf, exp and iss.  Role is informational only on protected routes —
// the admin guard re-reads it from the database because roles can change
// after a token is issued.
type Claims struct {
	UserID uint64 `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 signed tokens.  It holds no
// mutable state and is safe for concurrent use.  Revocation is deliberately
// not its concern: signature validity and revocation are layered checks.
type TokenService struct {
	secret   []byte
	lifetime time.Duration
	issuer   string
}

// NewTokenService builds a TokenService from the signing secret, the token
// lifetime in seconds and the issuer URL.  An empty secret is a
// configuration error and must abort startup, never surface at request time.
func NewTokenService(secret string, lifetimeSeconds int, issuer string) (*TokenService, error) {
	if secret == "" {
		return nil, errors.New("auth: signing secret is not configured")
	}
	if lifetimeSeconds <= 0 {
		lifetimeSeconds = 3600
	}
	return &TokenService{
		secret:   []byte(secret),
		lifetime: time.Duration(lifetimeSeconds) * time.Second,
		issuer:   issuer,
	}, nil
}

// Issue signs a new token for the given identity.  The token becomes valid
// immediately (nbf = iat) and expires after the configured lifetime.  The
// expiry is returned alongside the serialized token because logout needs it
// to size the revocation TTL and login responses include it for clients.
func (s *TokenService) Issue(userID uint64, email, role string) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(s.lifetime)
	claims := Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			Issuer:    s.issuer,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify parses and cryptographically checks a serialized token.  It maps
// the library's error soup onto the four sentinel kinds above.  A token
// signed with a different algorithm is rejected as a signature failure —
// accepting "none" or an asymmetric method against an HMAC secret is the
// classic JWT confusion attack.
func (s *TokenService) Verify(raw string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSignature
		}
		return s.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, ErrNotYetValid
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, ErrInvalidSignature):
			return nil, ErrInvalidSignature
		default:
			return nil, ErrMalformed
		}
	}
	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, ErrMalformed
	}
	return claims, nil
}

// Lifetime reports the configured token lifetime.
func (s *TokenService) Lifetime() time.Duration { return s.lifetime }
