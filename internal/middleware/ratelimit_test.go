package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/task-tracker/internal/config"
)

func rateCfg() config.RateLimitConfig {
	// An hour-long window keeps the derived key stable for the duration of
	// a test run.
	return config.RateLimitConfig{Enabled: true, Limit: 2, Window: time.Hour, Prefix: "rl"}
}

// windowKey mirrors the guard's key derivation for the httptest client IP.
func windowKey(cfg config.RateLimitConfig) string {
	window := time.Now().Unix() / int64(cfg.Window/time.Second)
	return fmt.Sprintf("%s:ip192.0.2.1:%d", cfg.Prefix, window)
}

func TestRateLimitUnderLimitPasses(t *testing.T) {
	cfg := rateCfg()
	rdb, mock := redismock.NewClientMock()
	key := windowKey(cfg)
	mock.ExpectIncr(key).SetVal(1)
	mock.ExpectExpire(key, cfg.Window+time.Second).SetVal(true)

	rec := serve(Chain(NewRateLimitGuard(cfg, rdb)), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimitOverLimitRejects(t *testing.T) {
	cfg := rateCfg()
	rdb, mock := redismock.NewClientMock()
	mock.ExpectIncr(windowKey(cfg)).SetVal(3)

	rec := serve(Chain(NewRateLimitGuard(cfg, rdb)), "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestRateLimitExpireFailureStillPasses(t *testing.T) {
	cfg := rateCfg()
	rdb, mock := redismock.NewClientMock()
	key := windowKey(cfg)
	mock.ExpectIncr(key).SetVal(1)
	mock.ExpectExpire(key, cfg.Window+time.Second).SetErr(errors.New("expire failed"))

	// The TTL write failing is logged, never surfaced to the client.
	rec := serve(Chain(NewRateLimitGuard(cfg, rdb)), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimitRedisOutagePasses(t *testing.T) {
	cfg := rateCfg()
	rdb, mock := redismock.NewClientMock()
	mock.ExpectIncr(windowKey(cfg)).SetErr(errors.New("connection refused"))

	rec := serve(Chain(NewRateLimitGuard(cfg, rdb)), "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitDisabledPasses(t *testing.T) {
	rec := serve(Chain(NewRateLimitGuard(config.RateLimitConfig{}, nil)), "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
