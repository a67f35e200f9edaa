package session

import "github.com/gofiber/fiber/v2"

const managerKey = "session_manager"

// Bind attaches the client's manager to the request.
func Bind(c *fiber.Ctx, m *Manager) {
	c.Locals(managerKey, m)
}

// FromCtx retrieves the manager bound by Bind.
func FromCtx(c *fiber.Ctx) (*Manager, bool) {
	val := c.Locals(managerKey)
	if val == nil {
		return nil, false
	}
	m, ok := val.(*Manager)
	return m, ok
}
