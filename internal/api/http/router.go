package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	AdminTickets   *handlers.AdminTicketsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)

	profile := api.Group("/profile", cfg.AuthMiddleware.Handle)
	profile.Get("/", cfg.Users.Profile)
	profile.Put("/", cfg.Users.UpdateProfile)

	tickets := api.Group("/tickets", cfg.AuthMiddleware.Handle)

	// fixed paths before the :id wildcard
	tickets.Get("/stats", auth.RequireAdmin(), cfg.AdminTickets.Stats)
	tickets.Get("/admin", auth.RequireAdmin(), cfg.AdminTickets.ListAll)

	tickets.Post("/", cfg.Tickets.Create)
	tickets.Get("/", cfg.Tickets.ListOwn)
	tickets.Get("/:id", cfg.Tickets.Get)
	tickets.Put("/:id", cfg.Tickets.Update)
	tickets.Delete("/:id", cfg.Tickets.Delete)

	tickets.Put("/:id/status", auth.RequireAdmin(), cfg.AdminTickets.SetStatus)
	tickets.Post("/:id/assign", auth.RequireAdmin(), cfg.AdminTickets.Assign)

	tickets.Post("/:id/comments", cfg.Tickets.AddComment)
	tickets.Get("/:id/comments", cfg.Tickets.ListComments)
}
