package http

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/task-portal/internal/api/http/handlers"
	"github.com/spec-kit/task-portal/internal/auth"
	"github.com/spec-kit/task-portal/internal/config"
	"github.com/spec-kit/task-portal/internal/observability"
	"github.com/spec-kit/task-portal/internal/recovery"
	"github.com/spec-kit/task-portal/internal/session"
	"github.com/spec-kit/task-portal/internal/workspace"
)

// Deps is everything the HTTP surface needs. Registrar, Tasks and Admin are
// all served by the backend client in production.
type Deps struct {
	Config    *config.Config
	Logger    *zap.Logger
	Metrics   *observability.Metrics
	Tokens    *auth.TokenManager
	Sessions  *session.Registry
	Flows     *recovery.Registry
	Registrar handlers.Registrar
	Tasks     workspace.TaskAPI
	Admin     workspace.AdminAPI
	Checks    []handlers.Check
}

// NewServer builds the fiber application with middlewares and routes.
func NewServer(deps Deps) *fiber.App {
	cfg := deps.Config
	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
		Immutable:             true,
	})

	RegisterMiddlewares(app, deps.Logger, deps.Metrics, cfg.App.RequestTimeout())

	upstream := handlers.Upstream{LogoutOnUnauthorized: cfg.Session.LogoutOnUnauthorized}
	RegisterRoutes(app, RouteConfig{
		Health:   handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, deps.Metrics, deps.Checks...),
		Views:    handlers.NewViewsHandler(),
		Auth:     handlers.NewAuthHandler(deps.Registrar, deps.Logger),
		Recovery: handlers.NewRecoveryHandler(deps.Flows),
		User:     handlers.NewUserHandler(workspace.NewBoard(deps.Tasks), upstream),
		Admin:    handlers.NewAdminHandler(workspace.NewConsole(deps.Admin), upstream),
		Client:   clientMiddleware(deps.Tokens, deps.Sessions, cfg.Session, deps.Logger),
	})
	return app
}
