package guard

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/task-portal/internal/domain"
	"github.com/spec-kit/task-portal/internal/session"
)

// Middleware enforces req on every request of a route group. The session
// manager must be bound to the request beforehand.
func Middleware(req Requirement) fiber.Handler {
	return func(c *fiber.Ctx) error {
		m, ok := session.FromCtx(c)
		if !ok {
			return c.Redirect(domain.ViewLogin.Path(), fiber.StatusSeeOther)
		}
		switch d := Evaluate(req, m.Snapshot()); d.Kind {
		case Redirect:
			return c.Redirect(d.Location, fiber.StatusSeeOther)
		case Pending:
			return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
				"view": domain.ViewLoading,
			})
		}
		return c.Next()
	}
}
