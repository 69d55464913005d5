package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rideops/callcenter/internal/api/http/handlers"
	"github.com/rideops/callcenter/internal/app"
	"github.com/rideops/callcenter/internal/auth"
)

// NewServer builds the fiber app for c. checks are pinged by /health/ready.
func NewServer(c *app.Container, checks map[string]handlers.Pinger) *fiber.App {
	server := fiber.New(fiber.Config{
		AppName:               c.Config.App.Name,
		DisableStartupMessage: true,
	})
	RegisterMiddlewares(server, c.Logger, c.Metrics, c.Config.App.RequestTimeout())

	tickets := handlers.NewTicketsHandler(c.Tickets, c.Clock)
	RegisterRoutes(server, RouteConfig{
		Health:         handlers.NewHealthHandler(c.Config.App.Name, c.Config.App.Version, checks, c.Metrics),
		Users:          handlers.NewUsersHandler(),
		Tickets:        tickets,
		StaffTickets:   handlers.NewStaffTicketsHandler(c.Tickets, c.Assignment, c.Escalations, tickets),
		Staff:          handlers.NewStaffHandler(c.Accounts),
		Views:          handlers.NewViewsHandler(c.Refresher, c.Hub),
		Exports:        handlers.NewExportsHandler(c.Exporter, c.Clock),
		Desk:           handlers.NewDeskHandler(c.Tickets, tickets),
		Queue:          handlers.NewQueueHandler(c.Queue, c.Clock),
		AuthMiddleware: auth.NewAuthMiddleware(c.Auth.TokenManager(), c.Auth.Accounts()),
	})
	return server
}
