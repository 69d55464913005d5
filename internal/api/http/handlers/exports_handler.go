package handlers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/rideops/callcenter/internal/export"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportsHandler serves workbook downloads.
type ExportsHandler struct {
	exporter *export.Exporter
	now      func() time.Time
}

// NewExportsHandler constructs handler.
func NewExportsHandler(exporter *export.Exporter, clock func() time.Time) *ExportsHandler {
	if clock == nil {
		clock = time.Now
	}
	return &ExportsHandler{exporter: exporter, now: clock}
}

// Tickets GET /exports/tickets.xlsx.
func (h *ExportsHandler) Tickets(c *fiber.Ctx) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	data, err := h.exporter.ExportTickets(c.UserContext(), session)
	if err != nil {
		return err
	}
	return h.send(c, "tickets", data)
}

// Escalations GET /exports/escalations.xlsx.
func (h *ExportsHandler) Escalations(c *fiber.Ctx) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	data, err := h.exporter.ExportEscalations(c.UserContext(), session)
	if err != nil {
		return err
	}
	return h.send(c, "escalations", data)
}

func (h *ExportsHandler) send(c *fiber.Ctx, name string, data []byte) error {
	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s-%s.xlsx"`, name, h.now().UTC().Format("20060102-150405")))
	return c.Send(data)
}
