package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rideops/callcenter/internal/domain"
	"github.com/rideops/callcenter/internal/events"
	"github.com/rideops/callcenter/internal/policy"
	"github.com/rideops/callcenter/internal/repository"
	apperrors "github.com/rideops/callcenter/pkg/util/errorutil"
)

// AssignmentService handles ticket assignment operations.
type AssignmentService struct {
	tickets repository.TicketRepository
	agents  repository.AgentRepository
	workflow
}

// AssignmentDependencies bundles repositories.
type AssignmentDependencies struct {
	TicketRepo   repository.TicketRepository
	AgentRepo    repository.AgentRepository
	ActivityRepo repository.ActivityRepository
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
	Clock        func() time.Time
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	return &AssignmentService{
		tickets:  deps.TicketRepo,
		agents:   deps.AgentRepo,
		workflow: newWorkflow(deps.ActivityRepo, deps.Dispatcher, deps.Logger, deps.Clock),
	}
}

// Assign gives an unassigned ticket to assigneeID. The write only applies
// while the ticket has no agent, so of two racing callers exactly one wins and
// the other gets AlreadyAssigned.
func (s *AssignmentService) Assign(ctx context.Context, session domain.Session, ticketID, assigneeID string) (*domain.Ticket, error) {
	if assigneeID == "" {
		assigneeID = session.ActorID
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, lookupError(err, "ticket", ticketID)
	}
	if ticket.Status.IsTerminal() {
		return nil, apperrors.NewTicketClosed(ticket.ID, string(ticket.Status))
	}
	if ticket.AssignedAgentID != nil {
		return nil, apperrors.NewAlreadyAssigned(ticket.ID)
	}
	if err := policy.Authorize(session, policy.Request{Action: policy.ActionAssign, Ticket: ticket, AssigneeID: assigneeID}); err != nil {
		return nil, err
	}

	assignee, err := s.agents.GetByID(ctx, assigneeID)
	if err != nil {
		return nil, lookupError(err, "agent", assigneeID)
	}
	if !assignee.IsActive {
		return nil, apperrors.NewConflict("assignee inactive", map[string]any{"agent_id": assigneeID})
	}

	patch := repository.TicketPatch{AssignedAgentID: ptr(assignee.ID)}
	if ticket.FirstResponseAt == nil {
		patch.FirstResponseAt = ptr(s.now())
	}
	if ticket.Status == domain.TicketStatusOpen {
		patch.Status = ptr(domain.TicketStatusInProgress)
	}
	ok, err := s.tickets.UpdateWhere(ctx, ticket.ID, repository.TicketGuard{
		Unassigned: true,
		Statuses:   domain.ActiveTicketStatuses,
	}, patch)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !ok {
		return nil, s.classifyAssignMiss(ctx, ticket.ID)
	}

	s.recordActivity(ctx, session.ActorID, domain.ActivityTicketAssigned, map[string]any{
		"ticket_id":         ticket.ID,
		"assigned_agent_id": assignee.ID,
	})
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		Actor:    events.ActorFromSession(session),
		Payload:  events.TicketAssignedPayload{AssignedAgentID: assignee.ID},
	})
	if patch.Status != nil {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: ticket.ID,
			Actor:    events.ActorFromSession(session),
			Payload:  events.TicketStatusChangedPayload{OldStatus: ticket.Status, NewStatus: *patch.Status},
		})
	}

	updated, err := s.tickets.GetByID(ctx, ticket.ID)
	if err != nil {
		return nil, lookupError(err, "ticket", ticket.ID)
	}
	return updated, nil
}

func (s *AssignmentService) classifyAssignMiss(ctx context.Context, ticketID string) error {
	current, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return lookupError(err, "ticket", ticketID)
	}
	if current.AssignedAgentID != nil {
		return apperrors.NewAlreadyAssigned(ticketID)
	}
	return classifyTicketMiss(ctx, s.tickets, ticketID)
}
