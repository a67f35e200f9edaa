package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/task-portal/internal/api/http/handlers"
	"github.com/spec-kit/task-portal/internal/domain"
	"github.com/spec-kit/task-portal/internal/guard"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health   *handlers.HealthHandler
	Views    *handlers.ViewsHandler
	Auth     *handlers.AuthHandler
	Recovery *handlers.RecoveryHandler
	User     *handlers.UserHandler
	Admin    *handlers.AdminHandler
	// Client binds the caller's session. Health routes are registered before it.
	Client fiber.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	app.Use(cfg.Client)

	app.Get("/", cfg.Views.Landing)
	app.Get("/login", cfg.Views.Login)
	app.Get("/signup", cfg.Views.Signup)
	app.Get("/pending-approval", cfg.Views.PendingApproval)
	app.Get("/unauthorized", cfg.Views.Unauthorized)
	app.Get("/dashboard", cfg.Views.Dashboard)
	app.Get("/session", cfg.Views.Session)

	app.Post("/login", cfg.Auth.Login)
	app.Post("/logout", cfg.Auth.Logout)
	app.Post("/signup", cfg.Auth.Signup)

	recoveryGroup := app.Group("/forgot-password")
	recoveryGroup.Get("", cfg.Recovery.View)
	recoveryGroup.Post("/email", cfg.Recovery.Email)
	recoveryGroup.Post("/otp", cfg.Recovery.OTP)
	recoveryGroup.Post("/resend", cfg.Recovery.Resend)
	recoveryGroup.Post("/reset", cfg.Recovery.Reset)
	recoveryGroup.Post("/restart", cfg.Recovery.Restart)

	userGroup := app.Group("/user", guard.Middleware(guard.RequireRole(domain.RoleUser)))
	userGroup.Get("", cfg.User.Board)
	userGroup.Post("/tasks/:id/advance", cfg.User.Advance)

	adminGroup := app.Group("/admin", guard.Middleware(guard.RequireRole(domain.RoleAdmin)))
	adminGroup.Get("", cfg.Admin.Overview)
	adminGroup.Post("/users/:id/approve", cfg.Admin.Approve)
	adminGroup.Post("/users/:id/reject", cfg.Admin.Reject)
	adminGroup.Post("/tasks", cfg.Admin.CreateTask)
	adminGroup.Put("/tasks/:id", cfg.Admin.UpdateTask)

	app.Get("*", cfg.Views.NotFound)
}
