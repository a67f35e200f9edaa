package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/task-portal/internal/api/dto"
	"github.com/spec-kit/task-portal/internal/backend"
	"github.com/spec-kit/task-portal/internal/domain"
	"github.com/spec-kit/task-portal/internal/forms"
	"github.com/spec-kit/task-portal/internal/session"
)

const (
	msgLoginFailed  = "Login failed. Please check your credentials."
	msgSignupFailed = "Registration failed. Please try again."
)

// Registrar creates accounts awaiting approval.
type Registrar interface {
	Signup(ctx context.Context, name, email, password string) (string, error)
}

// AuthHandler handles sign-in, sign-out and registration.
type AuthHandler struct {
	registrar Registrar
	logger    *zap.Logger
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(registrar Registrar, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{registrar: registrar, logger: logger}
}

// Login authenticates the client and sends it to its dashboard.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var form forms.LoginForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}
	form.Normalize()
	if err := forms.Validate(form); err != nil {
		return renderFailure(c, domain.ViewLogin, err, "", nil)
	}

	m, ok := session.FromCtx(c)
	if !ok {
		return errors.New("no session bound to request")
	}
	if _, err := m.Login(c.UserContext(), form.Email, form.Password); err != nil {
		h.logger.Info("login failed", zap.String("client_id", m.ClientID()), zap.Error(err))
		status := fiber.StatusUnauthorized
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) && apiErr.Transport {
			status = fiber.StatusBadGateway
		}
		return render(c, status, dto.ViewDocument{
			View:  domain.ViewLogin,
			Error: backend.MessageOr(err, msgLoginFailed),
		})
	}
	return seeOther(c, domain.ViewDashboard.Path())
}

// Logout ends the session. It succeeds without one.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if m, ok := session.FromCtx(c); ok {
		m.Logout(c.UserContext(), session.ReasonUser)
	}
	return seeOther(c, domain.ViewLogin.Path())
}

// Signup registers an account. The new account waits for approval, so no
// session is started.
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var form forms.SignupForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}
	form.Normalize()
	hints := fiber.Map{"passwordHints": forms.PasswordHints(form.Password)}
	if err := forms.Validate(form); err != nil {
		return renderFailure(c, domain.ViewSignup, err, "", hints)
	}

	if _, err := h.registrar.Signup(c.UserContext(), form.Name, form.Email, form.Password); err != nil {
		h.logger.Info("signup failed", zap.String("email", form.Email), zap.Error(err))
		return renderFailure(c, domain.ViewSignup, err, msgSignupFailed, hints)
	}
	return seeOther(c, domain.ViewPendingApproval.Path())
}
