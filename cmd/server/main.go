package main // Entry point package

import (
	"log" // Logging library

	"github.com/joho/godotenv"    // .env loader for local development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/task-tracker/internal/auth"       // token service and revocation store
	"github.com/iliyamo/task-tracker/internal/config"     // internal config loader
	"github.com/iliyamo/task-tracker/internal/database"   // MySQL connection pool
	"github.com/iliyamo/task-tracker/internal/handler"    // HTTP handlers
	"github.com/iliyamo/task-tracker/internal/middleware" // access guards
	"github.com/iliyamo/task-tracker/internal/model"      // role names
	"github.com/iliyamo/task-tracker/internal/queue"      // audit event consumer
	"github.com/iliyamo/task-tracker/internal/repository" // DB repositories
	"github.com/iliyamo/task-tracker/internal/router"     // route registration
)

func main() {
	_ = godotenv.Load() // best effort; real deployments set env vars directly

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.JWTLifetimeSec, cfg.Issuer)
	if err != nil {
		log.Fatalf("auth: %v", err)
	}

	// Redis backs the revocation store and the rate limiter. Without it the
	// service still runs: revocation falls back to the in-process store
	// (correct on a single instance) and rate limiting is disabled.
	rdb := config.NewRedisClient()
	revCfg := config.LoadRevocationConfig()
	var revoked auth.Store
	if rdb != nil {
		revoked = auth.NewRedisStore(rdb, revCfg.Prefix, revCfg.Timeout)
	} else {
		log.Println("redis unavailable: using in-process revocation store")
		revoked = auth.NewMemoryStore()
	}

	users := repository.NewUserRepo(db)
	tasks := repository.NewTaskRepo(db)

	guards := router.Guards{
		Rate:  middleware.NewRateLimitGuard(config.LoadRateLimitConfig(), rdb),
		Auth:  middleware.NewAuthGuard(tokens, revoked, revCfg.FailOpen),
		Admin: middleware.RequireRole(users, model.RoleAdmin),
	}

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAPI(e,
		handler.NewAuthHandler(cfg, users, tokens, revoked),
		handler.NewProfileHandler(cfg, users),
		handler.NewTaskHandler(tasks),
		handler.NewAdminHandler(cfg, users, tasks),
		guards)

	// The audit consumer reconnects forever in the background; a missing
	// broker never blocks startup.
	go func() {
		if err := queue.StartAuditConsumer(); err != nil {
			log.Printf("audit consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}
