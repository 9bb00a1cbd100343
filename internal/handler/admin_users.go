package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/task-tracker/internal/config"
	"github.com/iliyamo/task-tracker/internal/middleware"
	"github.com/iliyamo/task-tracker/internal/model"
	"github.com/iliyamo/task-tracker/internal/queue"
	"github.com/iliyamo/task-tracker/internal/repository"
	queue_publisher "github.com/iliyamo/task-tracker/internal/service"
)

// AdminHandler serves the user-management surface. Routes using it sit
// behind the authentication guard plus the admin role guard.
type AdminHandler struct {
	Cfg   config.Config
	Users UserStore
	Tasks TaskStore
	// publish is the audit event sink for deletions; swapped out in tests.
	publish func(ctx context.Context, ev queue.UserDeactivatedEvent) error
}

func NewAdminHandler(cfg config.Config, u UserStore, t TaskStore) *AdminHandler {
	return &AdminHandler{Cfg: cfg, Users: u, Tasks: t, publish: queue_publisher.PublishUserDeactivated}
}

type adminUserPart struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toAdminUserPart(u model.User) adminUserPart {
	return adminUserPart{
		ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role,
		CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt,
	}
}

type adminCreateReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type adminUpdateReq struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Role     *string `json:"role"`
}

func userID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}

// Index returns every non-deleted user.
func (h *AdminHandler) Index(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]adminUserPart, 0, len(users))
	for _, u := range users {
		out = append(out, toAdminUserPart(u))
	}
	return c.JSON(http.StatusOK, echo.Map{"data": out})
}

// Show returns one user by id.
func (h *AdminHandler) Show(c echo.Context) error {
	id, err := userID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": toAdminUserPart(u)})
}

// Create adds a user with an explicit role. This is the only way to mint
// an admin account through the API.
func (h *AdminHandler) Create(c echo.Context) error {
	var req adminCreateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name/email/password required"})
	}
	if !model.ValidRole(req.Role) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "role must be admin or user"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Users.Create(ctx, req.Name, req.Email, req.Password, req.Role, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"data": toAdminUserPart(u)})
}

// Update applies a partial update to any user, including role changes.
// A role change takes effect on the target's next request — the admin
// guard re-reads roles from the database instead of trusting tokens.
func (h *AdminHandler) Update(c echo.Context) error {
	id, err := userID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	var req adminUpdateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Role != nil && !model.ValidRole(*req.Role) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "role must be admin or user"})
	}
	if req.Name == nil && req.Email == nil && req.Password == nil && req.Role == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "nothing to update"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ch := repository.UserChanges{Name: req.Name, Email: req.Email, Password: req.Password, Role: req.Role}
	if err := h.Users.Update(ctx, id, ch, h.Cfg.BcryptCost); err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
		}
	}
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": toAdminUserPart(u)})
}

// Delete soft-deletes a user; the store cascades the soft delete to every
// task the user owns in the same transaction. An admin can never delete
// their own account — that would orphan the session performing the
// deletion and could leave the system without any admin.
func (h *AdminHandler) Delete(c echo.Context) error {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	id, err := userID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	if id == p.UserID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "you cannot delete your own admin account"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	cascaded, err := h.Users.SoftDelete(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}

	// Audit trail is best effort; a broker outage must not undo or block
	// a deletion that already committed.
	ev := queue.UserDeactivatedEvent{
		UserID:        id,
		Email:         u.Email,
		DeletedBy:     p.UserID,
		CascadedTasks: cascaded,
		DeletedAt:     time.Now().UTC().Format(time.RFC3339),
	}
	go func() { _ = h.publish(context.Background(), ev) }()

	return c.JSON(http.StatusOK, echo.Map{
		"message": "user deleted",
		"data":    echo.Map{"id": id, "cascaded_tasks": cascaded},
	})
}
