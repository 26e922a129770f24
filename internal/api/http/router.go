package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/smartmaint/maintenance-service/internal/api/http/handlers"
	"github.com/smartmaint/maintenance-service/internal/auth"
	"github.com/smartmaint/maintenance-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Users          *handlers.UsersHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/login", cfg.Auth.Login)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Post("/", cfg.Tickets.Create)
	tickets.Get("/", cfg.Tickets.List)
	tickets.Get("/history",
		auth.RequireRole(domain.RoleAdmin, domain.RoleSuperadmin), cfg.Tickets.History)
	tickets.Get("/:id", cfg.Tickets.Get)
	tickets.Patch("/:id", cfg.Tickets.Update)
	tickets.Delete("/:id", cfg.Tickets.Delete)
	tickets.Post("/:id/assign",
		auth.RequireRole(domain.RoleTechnician, domain.RoleAdmin, domain.RoleSuperadmin), cfg.Tickets.Assign)
	tickets.Post("/:id/close",
		auth.RequireRole(domain.RoleTechnician, domain.RoleAdmin, domain.RoleSuperadmin), cfg.Tickets.Close)
	tickets.Post("/:id/restore",
		auth.RequireRole(domain.RoleAdmin, domain.RoleSuperadmin), cfg.Tickets.Restore)
	tickets.Post("/:id/conversations", cfg.Tickets.AddConversation)
	tickets.Get("/:id/conversations", cfg.Tickets.ListConversations)
	tickets.Post("/:id/attachments", cfg.Tickets.AddAttachment)
	tickets.Get("/:id/attachments", cfg.Tickets.ListAttachments)

	users := app.Group("/users", cfg.AuthMiddleware.Handle)
	users.Post("/",
		auth.RequireRole(domain.RoleAdmin, domain.RoleSuperadmin), cfg.Users.Create)
	users.Get("/",
		auth.RequireRole(domain.RoleAdmin, domain.RoleSuperadmin), cfg.Users.List)
	users.Get("/technicians", cfg.Users.Technicians)
	users.Get("/:id", cfg.Users.Get)
	users.Patch("/:id",
		auth.RequireRole(domain.RoleAdmin, domain.RoleSuperadmin), cfg.Users.Update)
	users.Delete("/:id",
		auth.RequireRole(domain.RoleAdmin, domain.RoleSuperadmin), cfg.Users.Delete)
	users.Post("/:id/restore",
		auth.RequireRole(domain.RoleSuperadmin), cfg.Users.Restore)
	users.Get("/:id/history",
		auth.RequireRole(domain.RoleSuperadmin), cfg.Users.History)
}
