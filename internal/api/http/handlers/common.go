package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/task-portal/internal/api/dto"
	"github.com/spec-kit/task-portal/internal/backend"
	"github.com/spec-kit/task-portal/internal/domain"
	"github.com/spec-kit/task-portal/internal/forms"
	"github.com/spec-kit/task-portal/internal/session"
	apperrors "github.com/spec-kit/task-portal/pkg/util"
)

const clientIDKey = "client_id"

// SetClientID records the browser instance a request belongs to.
func SetClientID(c *fiber.Ctx, clientID string) {
	c.Locals(clientIDKey, clientID)
}

// ClientID returns the id stored by SetClientID.
func ClientID(c *fiber.Ctx) string {
	id, _ := c.Locals(clientIDKey).(string)
	return id
}

func snapshot(c *fiber.Ctx) session.Snapshot {
	if m, ok := session.FromCtx(c); ok {
		return m.Snapshot()
	}
	return session.Snapshot{}
}

func credential(c *fiber.Ctx) domain.Credential {
	return snapshot(c).Credential
}

// render writes doc with the caller's session attached.
func render(c *fiber.Ctx, status int, doc dto.ViewDocument) error {
	doc.Session = dto.NewSessionView(snapshot(c))
	return c.Status(status).JSON(doc)
}

func seeOther(c *fiber.Ctx, path string) error {
	return c.Redirect(path, fiber.StatusSeeOther)
}

// upstreamError converts a backend failure into a DomainError. The backend's
// own message wins over fallback.
func upstreamError(err error, fallback string) error {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Transport {
			return apperrors.NewUpstreamUnavailable(fallback, err)
		}
		return apperrors.NewUpstreamRejected(apiErr.Status, backend.MessageOr(err, fallback), err)
	}
	return err
}

// renderFailure renders view with err explained in the document. Field
// errors produce a 400 carrying the per-field messages.
func renderFailure(c *fiber.Ctx, view domain.View, err error, fallback string, data any) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return err
	}
	doc := dto.ViewDocument{View: view, Data: data}
	var fe forms.FieldErrors
	if errors.As(err, &fe) {
		doc.Fields = fe
		doc.Error = fallback
		return render(c, fiber.StatusBadRequest, doc)
	}
	de := apperrors.ToDomainError(upstreamError(err, fallback))
	doc.Error = de.Message
	if de.Code == "INTERNAL_ERROR" || de.Code == "TIMEOUT" {
		doc.Error = fallback
	}
	return render(c, de.HTTPStatus, doc)
}

// Upstream handles failures of credentialed backend calls.
type Upstream struct {
	LogoutOnUnauthorized bool
}

// Fail ends the session and sends the client to /login when the backend
// rejected its credential. Other errors are rendered into view.
func (u Upstream) Fail(c *fiber.Ctx, view domain.View, err error, fallback string, data any) error {
	if u.LogoutOnUnauthorized && errors.Is(err, backend.ErrUnauthorized) {
		if m, ok := session.FromCtx(c); ok {
			m.Logout(c.UserContext(), session.ReasonUnauthorized)
		}
		return seeOther(c, domain.ViewLogin.Path())
	}
	return renderFailure(c, view, err, fallback, data)
}
