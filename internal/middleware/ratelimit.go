package middleware

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/task-tracker/internal/config"
)

// RateLimitGuard bounds the number of requests per client in fixed
// windows, backed by Redis so the limit holds across instances.  It is an
// ordinary guard, so it can be placed anywhere in a route's chain: before
// authentication it keys by client IP, after it by user id.  When Redis is
// unavailable the guard passes — rate limiting is advisory, never a
// correctness gate.
type RateLimitGuard struct {
	Cfg config.RateLimitConfig
	RDB *redis.Client
}

func NewRateLimitGuard(cfg config.RateLimitConfig, rdb *redis.Client) *RateLimitGuard {
	return &RateLimitGuard{Cfg: cfg, RDB: rdb}
}

func (g *RateLimitGuard) Evaluate(c echo.Context) Result {
	if !g.Cfg.Enabled || g.RDB == nil {
		return Pass()
	}

	window := time.Now().Unix() / int64(g.Cfg.Window/time.Second)
	key := fmt.Sprintf("%s:%s:%d", g.Cfg.Prefix, clientKey(c), window)

	ctx := c.Request().Context()
	n, err := g.RDB.Incr(ctx, key).Result()
	if err != nil {
		log.Printf("rate limit: redis incr failed, passing request: %v", err)
		return Pass()
	}
	if n == 1 {
		// First hit in this window; expire the counter with some slack so
		// stragglers from clock skew do not orphan keys. A failed expire
		// leaves the key without a TTL, so it must at least be visible in
		// the logs.
		if err := g.RDB.Expire(ctx, key, g.Cfg.Window+time.Second).Err(); err != nil {
			log.Printf("rate limit: redis expire failed for %s: %v", key, err)
		}
	}
	if n > int64(g.Cfg.Limit) {
		c.Response().Header().Set("Retry-After", strconv.Itoa(int(g.Cfg.Window/time.Second)))
		return Reject(http.StatusTooManyRequests, "too many requests")
	}
	return Pass()
}

// clientKey identifies the caller for rate limiting purposes: the user id
// when an authentication guard already ran, the remote IP otherwise.
func clientKey(c echo.Context) string {
	if p, ok := GetPrincipal(c); ok {
		return "u" + strconv.FormatUint(p.UserID, 10)
	}
	return "ip" + c.RealIP()
}
