package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-router/internal/api/http/handlers"
	"github.com/spec-kit/support-router/internal/auth"
	"github.com/spec-kit/support-router/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Chat           *handlers.ChatHandler
	Auth           *handlers.AuthHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/chat", cfg.Chat.Chat)

	authGroup := app.Group("/auth")
	authGroup.Post("/operator/login", cfg.Auth.Login)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireRole())
	admin.Get("/tickets", cfg.Admin.ListTickets)
	admin.Get("/tickets/:id", cfg.Admin.GetTicket)
	admin.Get("/sessions/:id/journal", cfg.Admin.SessionJournal)
	admin.Get("/billing-requests/:ticket_id", cfg.Admin.BillingRequest)
	admin.Get("/metrics", cfg.Admin.Metrics)

	adminOnly := auth.RequireRole(domain.OperatorRoleAdmin)
	admin.Post("/tickets/:id/close", adminOnly, cfg.Admin.CloseTicket)
	admin.Post("/tickets/:id/reopen", adminOnly, cfg.Admin.ReopenTicket)
}
