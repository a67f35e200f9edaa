package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/task-portal/internal/api/dto"
	"github.com/spec-kit/task-portal/internal/domain"
	"github.com/spec-kit/task-portal/internal/forms"
	"github.com/spec-kit/task-portal/internal/guard"
)

// ViewsHandler serves the static screens and the dashboard redirect.
type ViewsHandler struct{}

// NewViewsHandler returns a new handler instance.
func NewViewsHandler() *ViewsHandler {
	return &ViewsHandler{}
}

func (h *ViewsHandler) page(view domain.View) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return render(c, fiber.StatusOK, dto.ViewDocument{View: view})
	}
}

// Landing renders the public home page.
func (h *ViewsHandler) Landing(c *fiber.Ctx) error { return h.page(domain.ViewLanding)(c) }

// Login renders the sign-in form.
func (h *ViewsHandler) Login(c *fiber.Ctx) error { return h.page(domain.ViewLogin)(c) }

func (h *ViewsHandler) PendingApproval(c *fiber.Ctx) error {
	return h.page(domain.ViewPendingApproval)(c)
}

func (h *ViewsHandler) Unauthorized(c *fiber.Ctx) error {
	return h.page(domain.ViewUnauthorized)(c)
}

// Signup renders the registration form with the password hints for the
// optional ?password= preview.
func (h *ViewsHandler) Signup(c *fiber.Ctx) error {
	return render(c, fiber.StatusOK, dto.ViewDocument{
		View: domain.ViewSignup,
		Data: fiber.Map{"passwordHints": forms.PasswordHints(c.Query("password"))},
	})
}

// Dashboard sends the client to the dashboard of its role.
func (h *ViewsHandler) Dashboard(c *fiber.Ctx) error {
	d := guard.Dashboard(snapshot(c))
	if d.Kind == guard.Pending {
		return render(c, fiber.StatusAccepted, dto.ViewDocument{View: domain.ViewLoading})
	}
	return seeOther(c, d.Location)
}

// Session reports the caller's authentication state.
func (h *ViewsHandler) Session(c *fiber.Ctx) error {
	return c.JSON(dto.NewSessionView(snapshot(c)))
}

// NotFound sends unknown paths home.
func (h *ViewsHandler) NotFound(c *fiber.Ctx) error {
	return seeOther(c, domain.ViewLanding.Path())
}
