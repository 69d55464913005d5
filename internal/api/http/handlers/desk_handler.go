package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rideops/callcenter/internal/api/dto"
	"github.com/rideops/callcenter/internal/service"
	apperrors "github.com/rideops/callcenter/pkg/util/errorutil"
)

// DeskHandler serves the dashboard support desk.
type DeskHandler struct {
	tickets *service.TicketService
	view    *TicketsHandler
}

// NewDeskHandler constructs handler.
func NewDeskHandler(tickets *service.TicketService, view *TicketsHandler) *DeskHandler {
	return &DeskHandler{tickets: tickets, view: view}
}

// ListTickets GET /desk/tickets.
func (h *DeskHandler) ListTickets(c *fiber.Ctx) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	tickets, err := h.tickets.DeskTickets(c.UserContext(), session, parseTicketQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.view.summaries(tickets)})
}

// GetTicket GET /desk/tickets/:id.
func (h *DeskHandler) GetTicket(c *fiber.Ctx) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	ticket, responses, err := h.tickets.DeskTicket(c.UserContext(), session, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketDetail(ticket, responses, h.view.now())})
}

// Respond POST /desk/tickets/:id/responses.
func (h *DeskHandler) Respond(c *fiber.Ctx) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateResponseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Internal {
		return apperrors.NewValidationError("internal notes are not available on the desk", map[string]any{"field": "internal"})
	}
	response, err := h.tickets.DeskRespond(c.UserContext(), session, c.Params("id"), req.Message)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewResponseResponse(response)})
}

// SetStatus POST /desk/tickets/:id/status.
func (h *DeskHandler) SetStatus(c *fiber.Ctx) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	var req dto.DeskStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.tickets.DeskSetStatus(c.UserContext(), session, c.Params("id"), req.Status, req.ResolutionNotes)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketSummary(ticket, h.view.now())})
}
