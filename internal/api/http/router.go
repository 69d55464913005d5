package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rideops/callcenter/internal/api/http/handlers"
	"github.com/rideops/callcenter/internal/auth"
	"github.com/rideops/callcenter/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	StaffTickets   *handlers.StaffTicketsHandler
	Staff          *handlers.StaffHandler
	Views          *handlers.ViewsHandler
	Exports        *handlers.ExportsHandler
	Desk           *handlers.DeskHandler
	Queue          *handlers.QueueHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. Route guards reject the obvious cases
// early; the services enforce the full access policy.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle, auth.RequireAnySession())
	api.Get("/me", cfg.Users.Me)

	tickets := api.Group("/tickets")
	tickets.Post("/", auth.RequireRealm(domain.RealmCallCenter), cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/urgent", cfg.Tickets.UrgentQueue)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/assign", auth.RequireRealm(domain.RealmCallCenter), cfg.StaffTickets.Assign)
	tickets.Post("/:id/responses", auth.RequireRealm(domain.RealmCallCenter), cfg.StaffTickets.AddResponse)
	tickets.Post("/:id/resolve", auth.RequireRealm(domain.RealmCallCenter), cfg.StaffTickets.Resolve)
	tickets.Post("/:id/close", auth.RequireRealm(domain.RealmCallCenter), cfg.StaffTickets.Close)
	tickets.Post("/:id/escalations", auth.RequireCallCenterRole(domain.CallCenterRoleSupervisor), cfg.StaffTickets.Escalate)

	escalations := api.Group("/escalations")
	escalations.Get("/", cfg.StaffTickets.ListEscalations)
	escalations.Get("/:id", cfg.StaffTickets.GetEscalation)
	escalations.Post("/:id/acknowledge", cfg.StaffTickets.Acknowledge)
	escalations.Post("/:id/resolve", cfg.StaffTickets.ResolveEscalation)

	agents := api.Group("/agents", auth.RequireRealm(domain.RealmCallCenter))
	agents.Get("/", cfg.Staff.ListAgents)
	agents.Post("/", cfg.Staff.CreateAgent)
	agents.Patch("/:id", cfg.Staff.UpdateAgent)

	profiles := api.Group("/admin-profiles", auth.RequireRealm(domain.RealmDashboard))
	profiles.Get("/", cfg.Staff.ListAdminProfiles)
	profiles.Post("/", cfg.Staff.CreateAdminProfile)
	profiles.Patch("/:id", cfg.Staff.UpdateAdminProfile)

	api.Get("/activity", cfg.Staff.ListActivity)

	queue := api.Group("/queue", auth.RequireRealm(domain.RealmCallCenter))
	queue.Get("/", cfg.Queue.Queue)
	queue.Post("/", cfg.Queue.Open)
	queue.Post("/:id/accept", cfg.Queue.Accept)
	api.Get("/channels/mine", auth.RequireRealm(domain.RealmCallCenter), cfg.Queue.Mine)

	desk := api.Group("/desk/tickets", auth.RequireRealm(domain.RealmDashboard))
	desk.Get("/", cfg.Desk.ListTickets)
	desk.Get("/:id", cfg.Desk.GetTicket)
	desk.Post("/:id/responses", cfg.Desk.Respond)
	desk.Post("/:id/status", cfg.Desk.SetStatus)

	api.Get("/views", cfg.Views.ListViews)
	api.Get("/views/:name", cfg.Views.GetView)
	api.Get("/ws", auth.RequireRealm(domain.RealmCallCenter), cfg.Views.Upgrade, cfg.Views.Stream())

	exports := api.Group("/exports")
	exports.Get("/tickets.xlsx", cfg.Exports.Tickets)
	exports.Get("/escalations.xlsx", cfg.Exports.Escalations)
}
