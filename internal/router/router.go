package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/task-tracker/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/task-tracker/internal/middleware" // import the guard chain applied to protected routes
)

// Guards bundles the access guards the routes compose. Rate is first in
// every chain, Auth authenticates, Admin re-checks the admin role from the
// database. Each route group lists its guards explicitly, in order, so
// adding a guard to one surface never touches another.
type Guards struct {
	Rate  middleware.Guard
	Auth  middleware.Guard
	Admin middleware.Guard
}

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance. Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// This endpoint can be used by load balancers or monitoring systems to
	// verify that the service is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterAPI wires the whole /api surface: public auth endpoints, the
// authenticated profile and task groups, and the admin group.
func RegisterAPI(e *echo.Echo, a *handler.AuthHandler, pr *handler.ProfileHandler, t *handler.TaskHandler, adm *handler.AdminHandler, g Guards) {
	// Operations that do not require an existing session live under
	// /api/auth. Logout is the exception: it revokes the presented token,
	// so it runs behind the authentication guard like any protected route.
	auth := e.Group("/api/auth", middleware.Chain(g.Rate))
	auth.POST("/register", a.Register)
	auth.POST("/login", a.Login)
	auth.GET("/logout", a.Logout, middleware.Chain(g.Auth))

	// Every route in this group requires a verified, non-revoked token.
	// The guards run in order: rate limit, then authentication.
	api := e.Group("/api", middleware.Chain(g.Rate, g.Auth))
	api.GET("/me", a.Me)

	api.GET("/profile", pr.Show)
	api.PUT("/profile", pr.Update)
	api.PATCH("/profile", pr.Update)
	api.PUT("/profile/password", pr.UpdatePassword)

	api.GET("/tasks", t.Index)
	api.POST("/tasks", t.Create)
	api.GET("/tasks/:id", t.Show)
	api.PUT("/tasks/:id", t.Update)
	api.PATCH("/tasks/:id", t.Update)
	api.DELETE("/tasks/:id", t.Delete)

	// Admin routes add the role guard after authentication. The role is
	// read from the database on every request, so demoting an admin locks
	// them out immediately even though their token still says "admin".
	admin := e.Group("/api/admin", middleware.Chain(g.Rate, g.Auth, g.Admin))
	admin.GET("/users", adm.Index)
	admin.POST("/users", adm.Create)
	admin.GET("/users/:id", adm.Show)
	admin.PUT("/users/:id", adm.Update)
	admin.PATCH("/users/:id", adm.Update)
	admin.DELETE("/users/:id", adm.Delete)

	admin.GET("/tasks", adm.AllTasks)
}
