package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/task-portal/internal/api/dto"
	"github.com/spec-kit/task-portal/internal/domain"
	"github.com/spec-kit/task-portal/internal/forms"
	"github.com/spec-kit/task-portal/internal/recovery"
	apperrors "github.com/spec-kit/task-portal/pkg/util"
)

// RecoveryHandler drives the forgot-password wizard of each client.
type RecoveryHandler struct {
	flows *recovery.Registry
}

// NewRecoveryHandler creates a new handler.
func NewRecoveryHandler(flows *recovery.Registry) *RecoveryHandler {
	return &RecoveryHandler{flows: flows}
}

// View renders the wizard. Once the post-reset redirect has fired the client
// is sent to /login.
func (h *RecoveryHandler) View(c *fiber.Ctx) error {
	id := ClientID(c)
	if h.flows.TakeFinished(id) {
		return seeOther(c, domain.ViewLogin.Path())
	}
	if flow, ok := h.flows.Peek(id); ok && flow.State().Navigated {
		h.flows.Discard(id)
		return seeOther(c, domain.ViewLogin.Path())
	}
	return h.respond(c, h.flows.Acquire(id), nil)
}

// Email requests a one-time code.
func (h *RecoveryHandler) Email(c *fiber.Ctx) error {
	var req dto.EmailRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}
	flow := h.flows.Acquire(ClientID(c))
	return h.respond(c, flow, flow.SubmitEmail(c.UserContext(), req.Email))
}

// Resend requests a fresh code once the cooldown has run out.
func (h *RecoveryHandler) Resend(c *fiber.Ctx) error {
	flow := h.flows.Acquire(ClientID(c))
	return h.respond(c, flow, flow.Resend(c.UserContext()))
}

// OTP verifies the code.
func (h *RecoveryHandler) OTP(c *fiber.Ctx) error {
	var req dto.OTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}
	flow := h.flows.Acquire(ClientID(c))
	return h.respond(c, flow, flow.SubmitOTP(c.UserContext(), req.OTP))
}

// Reset sets the new password.
func (h *RecoveryHandler) Reset(c *fiber.Ctx) error {
	var req dto.ResetRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}
	flow := h.flows.Acquire(ClientID(c))
	return h.respond(c, flow, flow.SubmitReset(c.UserContext(), req.NewPassword, req.ConfirmPassword))
}

// Restart goes back to the email stage.
func (h *RecoveryHandler) Restart(c *fiber.Ctx) error {
	flow := h.flows.Acquire(ClientID(c))
	return h.respond(c, flow, flow.Restart())
}

func (h *RecoveryHandler) respond(c *fiber.Ctx, flow *recovery.Flow, actionErr error) error {
	st := flow.State()
	doc := dto.ViewDocument{
		View:    domain.ViewForgotPassword,
		Data:    st,
		Message: st.Message,
		Error:   st.Error,
		Fields:  st.Fields,
	}
	if st.Stage == recovery.StageDone && !st.Navigated {
		c.Set("Refresh", fmt.Sprintf("%d; url=%s", st.RedirectAfter, st.RedirectTo))
	}
	if actionErr == nil {
		return render(c, fiber.StatusOK, doc)
	}

	status := fiber.StatusBadRequest
	var fe forms.FieldErrors
	switch {
	case errors.As(actionErr, &fe), errors.Is(actionErr, recovery.ErrPasswordMismatch):
	case errors.Is(actionErr, recovery.ErrBusy):
		status = fiber.StatusConflict
		doc.Error = "A request is already in progress."
	case errors.Is(actionErr, recovery.ErrResendCooldown):
		status = fiber.StatusConflict
		doc.Error = "Please wait before requesting a new code."
	case errors.Is(actionErr, recovery.ErrWrongStage):
		status = fiber.StatusConflict
		doc.Error = "This step is not available right now."
	case errors.Is(actionErr, recovery.ErrClosed):
		status = fiber.StatusGone
		doc.Error = "This recovery attempt has ended."
	default:
		status = apperrors.ToDomainError(upstreamError(actionErr, st.Error)).HTTPStatus
	}
	return render(c, status, doc)
}
