package handlers

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/rideops/callcenter/internal/readmodel"
	"github.com/rideops/callcenter/internal/realtime"
)

// ViewsHandler serves read-model snapshots and their push channel.
type ViewsHandler struct {
	refresher *readmodel.Refresher
	hub       *realtime.Hub
}

// NewViewsHandler constructs handler.
func NewViewsHandler(refresher *readmodel.Refresher, hub *realtime.Hub) *ViewsHandler {
	return &ViewsHandler{refresher: refresher, hub: hub}
}

// ListViews GET /views.
func (h *ViewsHandler) ListViews(c *fiber.Ctx) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.refresher.Readable(session)})
}

// GetView GET /views/:name.
func (h *ViewsHandler) GetView(c *fiber.Ctx) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	snapshot, err := h.refresher.Read(c.UserContext(), session, readmodel.ViewName(c.Params("name")))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": snapshot})
}

// Upgrade rejects plain HTTP requests to the push channel.
func (h *ViewsHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return c.Next()
}

// Stream GET /ws. Each message is a {view, version, refreshed_at} change.
func (h *ViewsHandler) Stream() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		h.hub.Serve(conn)
	})
}
