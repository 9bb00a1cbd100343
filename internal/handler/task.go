package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/task-tracker/internal/middleware"
	"github.com/iliyamo/task-tracker/internal/model"
	"github.com/iliyamo/task-tracker/internal/repository"
)

// dueDateLayout is the wire format for task due dates.
const dueDateLayout = "2006-01-02 15:04:05"

// TaskHandler serves the owner-scoped task CRUD. Every query is
// constrained to the Principal's user id; cross-user access only exists
// on the admin surface.
type TaskHandler struct {
	Tasks TaskStore
}

func NewTaskHandler(t TaskStore) *TaskHandler { return &TaskHandler{Tasks: t} }

type taskCreateReq struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	DueDate     string `json:"due_date"`
}

type taskUpdateReq struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	DueDate     *string `json:"due_date"` // empty string clears the deadline
}

type taskPart struct {
	ID          uint64    `json:"id"`
	UserID      uint64    `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	DueDate     *string   `json:"due_date"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toTaskPart(t model.Task) taskPart {
	p := taskPart{
		ID: t.ID, UserID: t.UserID, Title: t.Title, Description: t.Description,
		Status: t.Status, CreatedAt: t.CreatedAt, UpdatedAt: t.UpdatedAt,
	}
	if t.DueDate != nil {
		s := t.DueDate.Format(dueDateLayout)
		p.DueDate = &s
	}
	return p
}

func principalOr401(c echo.Context) (middleware.Principal, bool) {
	return middleware.GetPrincipal(c)
}

func taskID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}

// Index returns the authenticated user's tasks.
func (h *TaskHandler) Index(c echo.Context) error {
	p, ok := principalOr401(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tasks, err := h.Tasks.ListByOwner(ctx, p.UserID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]taskPart, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toTaskPart(t))
	}
	return c.JSON(http.StatusOK, echo.Map{"data": out})
}

// Create adds a task owned by the authenticated user. Status defaults to
// pending; the due date is optional.
func (h *TaskHandler) Create(c echo.Context) error {
	p, ok := principalOr401(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	var req taskCreateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title required"})
	}
	if req.Status == "" {
		req.Status = model.StatusPending
	}
	if !model.ValidStatus(req.Status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status must be pending, in-progress or completed"})
	}
	t := model.Task{
		UserID:      p.UserID,
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
	}
	if req.DueDate != "" {
		due, err := time.Parse(dueDateLayout, req.DueDate)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "due_date must be formatted as " + dueDateLayout})
		}
		t.DueDate = &due
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Tasks.Create(ctx, t)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create task failed"})
	}
	created, err := h.Tasks.GetForOwner(ctx, id, p.UserID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"data": toTaskPart(created)})
}

// Show returns one of the authenticated user's tasks. A task owned by
// someone else is indistinguishable from a missing one.
func (h *TaskHandler) Show(c echo.Context) error {
	p, ok := principalOr401(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	id, err := taskID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid task id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	t, err := h.Tasks.GetForOwner(ctx, id, p.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "task not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": toTaskPart(t)})
}

// Update applies a partial update to one of the user's tasks.
func (h *TaskHandler) Update(c echo.Context) error {
	p, ok := principalOr401(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	id, err := taskID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid task id"})
	}
	var req taskUpdateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title cannot be empty"})
	}
	if req.Status != nil && !model.ValidStatus(*req.Status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status must be pending, in-progress or completed"})
	}
	ch := repository.TaskChanges{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
	}
	if req.DueDate != nil {
		if *req.DueDate == "" {
			ch.DueDate = &sql.NullTime{}
		} else {
			due, err := time.Parse(dueDateLayout, *req.DueDate)
			if err != nil {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "due_date must be formatted as " + dueDateLayout})
			}
			ch.DueDate = &sql.NullTime{Time: due, Valid: true}
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Tasks.Update(ctx, id, p.UserID, ch); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "task not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	t, err := h.Tasks.GetForOwner(ctx, id, p.UserID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": toTaskPart(t)})
}

// Delete soft-deletes one of the user's tasks.
func (h *TaskHandler) Delete(c echo.Context) error {
	p, ok := principalOr401(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	id, err := taskID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid task id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Tasks.SoftDelete(ctx, id, p.UserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "task not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "task deleted", "data": echo.Map{"id": id}})
}
