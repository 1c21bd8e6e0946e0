package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/servicedesk/internal/api/http/handlers"
	"github.com/spec-kit/servicedesk/internal/auth"
	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Staff          *handlers.StaffHandler
	Tickets        *handlers.TicketsHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if registry := cfg.Metrics.Registry(); registry != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	app.Post("/auth/staff/login", cfg.Staff.Login)

	staffOnly := []fiber.Handler{cfg.AuthMiddleware.Handle, auth.RequireStaffRole()}

	staff := app.Group("/staff", staffOnly...)
	staff.Get("/me", cfg.Staff.Me)

	sections := app.Group("/sections", staffOnly...)
	sections.Get("/", cfg.Staff.ListSections)

	tickets := app.Group("/tickets", staffOnly...)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Get("/:id/history", cfg.Tickets.History)
	tickets.Get("/:id/sla", cfg.Tickets.SLA)
	tickets.Post("/:id/rate", cfg.Tickets.RateTicket)
	tickets.Post("/:id/assign-next", cfg.Tickets.AssignNext)
	tickets.Post("/:id/attend", cfg.Tickets.Attend)
	tickets.Post("/:id/reverse", cfg.Tickets.Reverse)
	tickets.Post("/:id/close", cfg.Tickets.CloseTicket)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireStaffRole(domain.RoleAdmin))
	admin.Post("/sections", cfg.Staff.CreateSection)
	admin.Post("/staff", cfg.Staff.CreateStaff)
	admin.Get("/staff", cfg.Staff.ListStaff)
	admin.Patch("/staff/:id/active", cfg.Staff.SetStaffActive)

	admin.Post("/escalations/run", cfg.Admin.RunEscalations)
	admin.Get("/escalations/status", cfg.Admin.EscalationStatus)
	admin.Post("/escalations/enable", cfg.Admin.EnableEscalations)
	admin.Post("/escalations/disable", cfg.Admin.DisableEscalations)

	admin.Get("/holidays", cfg.Admin.ListHolidays)
	admin.Post("/holidays", cfg.Admin.AddHoliday)
	admin.Delete("/holidays/:date", cfg.Admin.RemoveHoliday)
}
