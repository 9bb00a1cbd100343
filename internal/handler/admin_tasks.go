package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// AllTasks returns every non-deleted task across all owners. This is the
// one task listing that is not owner scoped, which is why it lives on the
// admin surface.
func (h *AdminHandler) AllTasks(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tasks, err := h.Tasks.ListAll(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]taskPart, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toTaskPart(t))
	}
	return c.JSON(http.StatusOK, echo.Map{"data": out})
}
