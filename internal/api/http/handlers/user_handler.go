package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/task-portal/internal/api/dto"
	"github.com/spec-kit/task-portal/internal/domain"
	"github.com/spec-kit/task-portal/internal/workspace"
	apperrors "github.com/spec-kit/task-portal/pkg/util"
)

const (
	msgTasksFailed   = "Failed to load tasks."
	msgAdvanceFailed = "Failed to update task status."
)

// UserHandler serves the task board of a USER session.
type UserHandler struct {
	board    *workspace.Board
	upstream Upstream
}

// NewUserHandler creates a new handler.
func NewUserHandler(board *workspace.Board, upstream Upstream) *UserHandler {
	return &UserHandler{board: board, upstream: upstream}
}

// Board renders the caller's tasks, filtered by ?status= and ?search=.
func (h *UserHandler) Board(c *fiber.Ctx) error {
	filter, err := boardFilter(c)
	if err != nil {
		return err
	}
	view, err := h.board.Load(c.UserContext(), credential(c), filter)
	if err != nil {
		if errors.Is(err, workspace.ErrUnknownFilter) {
			return apperrors.NewValidationError(err.Error(), map[string]any{"status": filter.Status})
		}
		return h.upstream.Fail(c, domain.ViewUser, err, msgTasksFailed, nil)
	}
	return render(c, fiber.StatusOK, dto.ViewDocument{View: domain.ViewUser, Data: view})
}

// Advance moves a task to its next status and renders the reloaded board.
func (h *UserHandler) Advance(c *fiber.Ctx) error {
	filter, err := boardFilter(c)
	if err != nil {
		return err
	}
	view, err := h.board.Advance(c.UserContext(), credential(c), c.Params("id"), filter)
	switch {
	case err == nil:
		return render(c, fiber.StatusOK, dto.ViewDocument{View: domain.ViewUser, Data: view})
	case errors.Is(err, workspace.ErrTaskNotFound):
		return apperrors.NewNotFound("task", map[string]any{"id": c.Params("id")})
	case errors.Is(err, workspace.ErrTaskCompleted):
		return apperrors.NewConflict(err.Error(), map[string]any{"id": c.Params("id")})
	case errors.Is(err, workspace.ErrUnknownFilter):
		return apperrors.NewValidationError(err.Error(), map[string]any{"status": filter.Status})
	}
	return h.upstream.Fail(c, domain.ViewUser, err, msgAdvanceFailed, nil)
}

func boardFilter(c *fiber.Ctx) (workspace.Filter, error) {
	var q dto.BoardQuery
	if err := c.QueryParser(&q); err != nil {
		return workspace.Filter{}, apperrors.NewValidationError("invalid query", nil)
	}
	return workspace.Filter{Status: q.Status, Search: q.Search}, nil
}
