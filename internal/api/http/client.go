package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/task-portal/internal/api/http/handlers"
	"github.com/spec-kit/task-portal/internal/auth"
	"github.com/spec-kit/task-portal/internal/config"
	"github.com/spec-kit/task-portal/internal/session"
	apperrors "github.com/spec-kit/task-portal/pkg/util"
)

// clientMiddleware identifies the browser instance behind a request by its
// signed cookie, issuing a new one when it is missing or invalid, and binds
// that client's session manager to the request.
func clientMiddleware(tokens *auth.TokenManager, sessions *session.Registry, cfg config.SessionConfig, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var clientID string
		if raw := c.Cookies(cfg.CookieName); raw != "" {
			claims, err := tokens.Parse(raw)
			if err != nil {
				logger.Debug("client cookie rejected", zap.Error(err))
			} else {
				clientID = claims.ClientID
			}
		}

		if clientID == "" {
			clientID = uuid.NewString()
			value, expires, err := tokens.Issue(clientID)
			if err != nil {
				return apperrors.NewInternalError(err)
			}
			c.Cookie(&fiber.Cookie{
				Name:     cfg.CookieName,
				Value:    value,
				Path:     "/",
				Expires:  expires,
				HTTPOnly: true,
				Secure:   cfg.CookieSecure,
				SameSite: fiber.CookieSameSiteLaxMode,
			})
		}

		handlers.SetClientID(c, clientID)
		session.Bind(c, sessions.Acquire(c.UserContext(), clientID))
		return c.Next()
	}
}
