package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Fingerprint returns the SHA-256 hex digest of the raw serialized token.
// The digest is over the literal string the client holds, not the decoded
// claims, so two different serializations of equivalent claims revoke
// independently.  It also keeps full tokens out of the store.
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Store records tokens that were explicitly invalidated before their
// natural expiry.  Entries carry a TTL equal to the token's remaining
// lifetime at revocation time, so the store never accumulates entries for
// tokens that Verify would reject anyway.
//
// Revoke with ttl <= 0 is a no-op: an already-expired token needs no entry.
// IsRevoked returning (false, nil) means "no entry", which is a definitive
// "not revoked" — the store is only consulted for tokens that already
// passed signature and expiry checks.  How an IsRevoked error is treated
// (fail open vs fail closed) is the caller's policy, not the store's.
type Store interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// RedisStore keeps revocation entries in Redis so that every instance of
// the API observes a logout immediately.  Keys are "<prefix>:<fingerprint>"
// with a constant sentinel value; only the TTL matters.
type RedisStore struct {
	rdb     *redis.Client
	prefix  string
	timeout time.Duration
}

// NewRedisStore wraps an existing Redis client.  timeout bounds each
// round trip; zero falls back to two seconds.
func NewRedisStore(rdb *redis.Client, prefix string, timeout time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "revoked"
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &RedisStore{rdb: rdb, prefix: prefix, timeout: timeout}
}

func (s *RedisStore) key(token string) string {
	return s.prefix + ":" + Fingerprint(token)
}

// Revoke inserts the token's fingerprint with the given TTL.  Re-revoking
// an already revoked token just refreshes the entry, which is harmless.
func (s *RedisStore) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.rdb.Set(ctx, s.key(token), "1", ttl).Err()
}

// IsRevoked reports whether a revocation entry exists for the token.
func (s *RedisStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	n, err := s.rdb.Exists(ctx, s.key(token)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MemoryStore is an in-process Store for single-instance deployments and
// for running without Redis.  Expired entries are dropped lazily on read.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]time.Time // fingerprint -> expiry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]time.Time)}
}

func (s *MemoryStore) Revoke(_ context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	// Sweep dead entries on every write. Lazy read-side expiry alone only
	// frees an entry when that exact token is looked up again, so
	// revoked-then-abandoned tokens would pin memory forever.
	for fp, exp := range s.entries {
		if now.After(exp) {
			delete(s.entries, fp)
		}
	}
	s.entries[Fingerprint(token)] = now.Add(ttl)
	return nil
}

func (s *MemoryStore) IsRevoked(_ context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fp := Fingerprint(token)
	exp, ok := s.entries[fp]
	if !ok {
		return false, nil
	}
	if time.Now().After(exp) {
		delete(s.entries, fp)
		return false, nil
	}
	return true, nil
}
