package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/task-portal/internal/api/dto"
	"github.com/spec-kit/task-portal/internal/domain"
	"github.com/spec-kit/task-portal/internal/forms"
	"github.com/spec-kit/task-portal/internal/workspace"
)

const (
	msgOverviewFailed = "Failed to load dashboard data."
	msgApproveFailed  = "Failed to approve user."
	msgRejectFailed   = "Failed to reject user."
	msgCreateFailed   = "Failed to create task."
	msgUpdateFailed   = "Failed to update task."
)

// AdminHandler serves the administrator console.
type AdminHandler struct {
	console  *workspace.Console
	upstream Upstream
}

// NewAdminHandler creates a new handler.
func NewAdminHandler(console *workspace.Console, upstream Upstream) *AdminHandler {
	return &AdminHandler{console: console, upstream: upstream}
}

// Overview renders tasks and user lists, with tasks narrowed by ?search=.
func (h *AdminHandler) Overview(c *fiber.Ctx) error {
	return h.overview(c, fiber.StatusOK, "")
}

// overview reloads the console after an action so the client sees the
// effect together with message.
func (h *AdminHandler) overview(c *fiber.Ctx, status int, message string) error {
	ov, err := h.console.Overview(c.UserContext(), credential(c), c.Query("search"))
	if err != nil {
		return h.upstream.Fail(c, domain.ViewAdmin, err, msgOverviewFailed, nil)
	}
	return render(c, status, dto.ViewDocument{View: domain.ViewAdmin, Data: ov, Message: message})
}

// Approve activates a pending account.
func (h *AdminHandler) Approve(c *fiber.Ctx) error {
	msg, err := h.console.Approve(c.UserContext(), credential(c), c.Params("id"))
	if err != nil {
		return h.upstream.Fail(c, domain.ViewAdmin, err, msgApproveFailed, nil)
	}
	return h.overview(c, fiber.StatusOK, msg)
}

// Reject declines a pending account.
func (h *AdminHandler) Reject(c *fiber.Ctx) error {
	msg, err := h.console.Reject(c.UserContext(), credential(c), c.Params("id"))
	if err != nil {
		return h.upstream.Fail(c, domain.ViewAdmin, err, msgRejectFailed, nil)
	}
	return h.overview(c, fiber.StatusOK, msg)
}

// CreateTask assigns a new task.
func (h *AdminHandler) CreateTask(c *fiber.Ctx) error {
	draft, err := taskDraft(c)
	if err != nil {
		return renderFailure(c, domain.ViewAdmin, err, "", nil)
	}
	msg, err := h.console.CreateTask(c.UserContext(), credential(c), draft)
	if err != nil {
		return h.upstream.Fail(c, domain.ViewAdmin, err, msgCreateFailed, nil)
	}
	return h.overview(c, fiber.StatusCreated, msg)
}

// UpdateTask edits an existing task.
func (h *AdminHandler) UpdateTask(c *fiber.Ctx) error {
	draft, err := taskDraft(c)
	if err != nil {
		return renderFailure(c, domain.ViewAdmin, err, "", nil)
	}
	msg, err := h.console.UpdateTask(c.UserContext(), credential(c), c.Params("id"), draft)
	if err != nil {
		return h.upstream.Fail(c, domain.ViewAdmin, err, msgUpdateFailed, nil)
	}
	return h.overview(c, fiber.StatusOK, msg)
}

func taskDraft(c *fiber.Ctx) (domain.TaskDraft, error) {
	var form forms.TaskForm
	if err := c.BodyParser(&form); err != nil {
		return domain.TaskDraft{}, fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}
	form.Normalize()
	if err := forms.Validate(form); err != nil {
		return domain.TaskDraft{}, err
	}
	return domain.TaskDraft{
		Title:       form.Title,
		Description: form.Description,
		AssignedTo:  form.AssignedTo,
		DueDate:     form.Due(),
		Status:      form.TaskStatus(),
	}, nil
}
