package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rideops/callcenter/internal/api/dto"
	"github.com/rideops/callcenter/internal/domain"
	"github.com/rideops/callcenter/internal/service"
	apperrors "github.com/rideops/callcenter/pkg/util/errorutil"
)

// StaffTicketsHandler handles the workflow actions staff take on tickets and
// their escalations.
type StaffTicketsHandler struct {
	tickets     *service.TicketService
	assignment  *service.AssignmentService
	escalations *service.EscalationService
	view        *TicketsHandler
}

// NewStaffTicketsHandler constructs handler.
func NewStaffTicketsHandler(tickets *service.TicketService, assignment *service.AssignmentService, escalations *service.EscalationService, view *TicketsHandler) *StaffTicketsHandler {
	return &StaffTicketsHandler{tickets: tickets, assignment: assignment, escalations: escalations, view: view}
}

// Assign POST /tickets/:id/assign.
func (h *StaffTicketsHandler) Assign(c *fiber.Ctx) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	var req dto.AssignTicketRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	ticket, err := h.assignment.Assign(c.UserContext(), session, c.Params("id"), req.AgentID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketSummary(ticket, h.view.now())})
}

// AddResponse POST /tickets/:id/responses.
func (h *StaffTicketsHandler) AddResponse(c *fiber.Ctx) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateResponseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	var response *domain.TicketResponse
	if req.Internal {
		response, err = h.tickets.AddInternalNote(c.UserContext(), session, c.Params("id"), req.Message)
	} else {
		response, err = h.tickets.Respond(c.UserContext(), session, c.Params("id"), req.Message)
	}
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewResponseResponse(response)})
}

// Resolve POST /tickets/:id/resolve.
func (h *StaffTicketsHandler) Resolve(c *fiber.Ctx) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	var req dto.ResolveTicketRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	ticket, err := h.tickets.Resolve(c.UserContext(), session, c.Params("id"), req.ResolutionNotes)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketSummary(ticket, h.view.now())})
}

// Close POST /tickets/:id/close.
func (h *StaffTicketsHandler) Close(c *fiber.Ctx) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.Close(c.UserContext(), session, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketSummary(ticket, h.view.now())})
}

// Escalate POST /tickets/:id/escalations. The code appears in this response
// and nowhere else.
func (h *StaffTicketsHandler) Escalate(c *fiber.Ctx) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateEscalationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	escalation, code, err := h.escalations.Escalate(c.UserContext(), session, c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.EscalationCreatedResponse{
		Escalation: dto.NewEscalationResponse(escalation),
		Code:       code,
	}})
}

// ListEscalations GET /escalations.
func (h *StaffTicketsHandler) ListEscalations(c *fiber.Ctx) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	filter := service.EscalationListFilter{Limit: parseInt(c.Query("page_size"), 50)}
	filter.Offset = (parseInt(c.Query("page"), 1) - 1) * filter.Limit
	for _, part := range splitQuery(c.Query("status")) {
		filter.Statuses = append(filter.Statuses, domain.EscalationStatus(part))
	}
	if ticketID := c.Query("ticket_id"); ticketID != "" {
		filter.TicketID = &ticketID
	}
	escalations, err := h.escalations.ListEscalations(c.UserContext(), session, filter)
	if err != nil {
		return err
	}
	items := make([]dto.EscalationResponse, 0, len(escalations))
	for i := range escalations {
		items = append(items, dto.NewEscalationResponse(&escalations[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetEscalation GET /escalations/:id.
func (h *StaffTicketsHandler) GetEscalation(c *fiber.Ctx) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	escalation, err := h.escalations.GetEscalation(c.UserContext(), session, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewEscalationResponse(escalation)})
}

// Acknowledge POST /escalations/:id/acknowledge.
func (h *StaffTicketsHandler) Acknowledge(c *fiber.Ctx) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	var req dto.AcknowledgeEscalationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	escalation, err := h.escalations.Acknowledge(c.UserContext(), session, c.Params("id"), req.Code)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewEscalationResponse(escalation)})
}

// ResolveEscalation POST /escalations/:id/resolve.
func (h *StaffTicketsHandler) ResolveEscalation(c *fiber.Ctx) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	escalation, err := h.escalations.ResolveEscalation(c.UserContext(), session, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewEscalationResponse(escalation)})
}
