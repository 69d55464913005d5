package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rideops/callcenter/internal/domain"
	"github.com/rideops/callcenter/internal/events"
	"github.com/rideops/callcenter/internal/policy"
	"github.com/rideops/callcenter/internal/repository"
	apperrors "github.com/rideops/callcenter/pkg/util/errorutil"
)

// Ticket list views offered by the console.
const (
	TicketViewAll        = "all"
	TicketViewAssigned   = "assigned"
	TicketViewUnassigned = "unassigned"
	TicketViewOpen       = "open"
	TicketViewEscalated  = "escalated"
)

// TicketService coordinates the ticket state machine.
type TicketService struct {
	tickets   repository.TicketRepository
	responses repository.ResponseRepository
	workflow
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	ResponseRepo repository.ResponseRepository
	ActivityRepo repository.ActivityRepository
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
	Clock        func() time.Time
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Subject                string
	Message                string
	Category               domain.TicketCategory
	Priority               domain.TicketPriority
	RideID                 *string
	DriverPhoneRef         *string
	CommunicationChannelID *string
}

// TicketListFilter describes console listing filters.
type TicketListFilter struct {
	View       string
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	Categories []domain.TicketCategory
	SearchTerm *string
	Limit      int
	Offset     int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:   deps.TicketRepo,
		responses: deps.ResponseRepo,
		workflow:  newWorkflow(deps.ActivityRepo, deps.Dispatcher, deps.Logger, deps.Clock),
	}
}

// CreateTicket opens a new ticket with an explicit category.
func (s *TicketService) CreateTicket(ctx context.Context, session domain.Session, input TicketCreateInput) (*domain.Ticket, error) {
	if err := requireCallCenter(session); err != nil {
		return nil, err
	}
	subject := strings.TrimSpace(input.Subject)
	if subject == "" {
		return nil, apperrors.NewValidationError("subject is required", map[string]any{"field": "subject"})
	}
	category := input.Category
	if category == "" {
		category = domain.TicketCategoryGeneral
	}
	if !category.Valid() {
		return nil, apperrors.NewValidationError("unknown category", map[string]any{"category": category})
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityNormal
	}
	if !priority.Valid() {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": priority})
	}

	ticket := &domain.Ticket{
		Subject:                subject,
		Message:                strings.TrimSpace(input.Message),
		Category:               category,
		Priority:               priority,
		Status:                 domain.TicketStatusOpen,
		RideID:                 input.RideID,
		DriverPhoneRef:         input.DriverPhoneRef,
		CommunicationChannelID: input.CommunicationChannelID,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.recordActivity(ctx, session.ActorID, domain.ActivityTicketCreated, map[string]any{
		"ticket_id": ticket.ID,
		"category":  string(ticket.Category),
		"priority":  string(ticket.Priority),
	})
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    events.ActorFromSession(session),
		Payload: events.TicketCreatedPayload{
			Subject:  ticket.Subject,
			Category: ticket.Category,
			Priority: ticket.Priority,
		},
	})
	return ticket, nil
}

// ListTickets returns tickets for a console view. Agents only see their own
// tickets, plus the unassigned pool when they ask for it.
func (s *TicketService) ListTickets(ctx context.Context, session domain.Session, filter TicketListFilter) ([]domain.Ticket, error) {
	if err := requireCallCenter(session); err != nil {
		return nil, err
	}
	repoFilter, err := ticketRepoFilter(filter, session.ActorID)
	if err != nil {
		return nil, err
	}
	if session.CallCenterRole == domain.CallCenterRoleAgent && filter.View != TicketViewUnassigned {
		repoFilter.AssignedAgentID = ptr(session.ActorID)
	}

	tickets, err := s.tickets.List(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// DeskTickets lists tickets for dashboard support staff. Every ticket is
// visible; the assigned view has no meaning outside the call center.
func (s *TicketService) DeskTickets(ctx context.Context, session domain.Session, filter TicketListFilter) ([]domain.Ticket, error) {
	if err := policy.Authorize(session, policy.Request{Action: policy.ActionDeskRead}); err != nil {
		return nil, err
	}
	if filter.View == TicketViewAssigned {
		return nil, apperrors.NewValidationError("unknown view", map[string]any{"view": filter.View})
	}
	repoFilter, err := ticketRepoFilter(filter, session.ActorID)
	if err != nil {
		return nil, err
	}
	tickets, err := s.tickets.List(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

func ticketRepoFilter(filter TicketListFilter, actorID string) (repository.TicketFilter, error) {
	repoFilter := repository.TicketFilter{
		Statuses:   filter.Statuses,
		Priorities: filter.Priorities,
		Categories: filter.Categories,
		SearchTerm: filter.SearchTerm,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
	switch filter.View {
	case "", TicketViewAll:
	case TicketViewAssigned:
		repoFilter.AssignedAgentID = ptr(actorID)
	case TicketViewUnassigned:
		repoFilter.Unassigned = true
	case TicketViewOpen:
		repoFilter.Statuses = domain.ActiveTicketStatuses
	case TicketViewEscalated:
		repoFilter.Escalated = ptr(true)
	default:
		return repository.TicketFilter{}, apperrors.NewValidationError("unknown view", map[string]any{"view": filter.View})
	}
	return repoFilter, nil
}

// GetTicket fetches a ticket and its thread.
func (s *TicketService) GetTicket(ctx context.Context, session domain.Session, ticketID string) (*domain.Ticket, []domain.TicketResponse, error) {
	if err := requireCallCenter(session); err != nil {
		return nil, nil, err
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, nil, lookupError(err, "ticket", ticketID)
	}
	if session.CallCenterRole == domain.CallCenterRoleAgent && ticket.AssignedAgentID != nil && !ticket.IsAssignedTo(session.ActorID) {
		return nil, nil, apperrors.NewForbidden("ticket is assigned to another agent")
	}
	responses, err := s.responses.ListByTicket(ctx, ticket.ID, true)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	return ticket, responses, nil
}

// DeskTicket fetches any ticket and its full thread for dashboard staff.
func (s *TicketService) DeskTicket(ctx context.Context, session domain.Session, ticketID string) (*domain.Ticket, []domain.TicketResponse, error) {
	if err := policy.Authorize(session, policy.Request{Action: policy.ActionDeskRead}); err != nil {
		return nil, nil, err
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, nil, lookupError(err, "ticket", ticketID)
	}
	responses, err := s.responses.ListByTicket(ctx, ticket.ID, true)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	return ticket, responses, nil
}

// Respond appends a customer-visible reply. An open ticket moves to
// in_progress.
func (s *TicketService) Respond(ctx context.Context, session domain.Session, ticketID, message string) (*domain.TicketResponse, error) {
	return s.addResponse(ctx, session, ticketID, message, false, policy.ActionRespond)
}

// DeskRespond is Respond for dashboard support staff. Assignment does not
// matter on the desk.
func (s *TicketService) DeskRespond(ctx context.Context, session domain.Session, ticketID, message string) (*domain.TicketResponse, error) {
	return s.addResponse(ctx, session, ticketID, message, false, policy.ActionDeskRespond)
}

// AddInternalNote appends a note visible to staff only. The status is left
// unchanged.
func (s *TicketService) AddInternalNote(ctx context.Context, session domain.Session, ticketID, message string) (*domain.TicketResponse, error) {
	return s.addResponse(ctx, session, ticketID, message, true, policy.ActionRespond)
}

func (s *TicketService) addResponse(ctx context.Context, session domain.Session, ticketID, message string, internal bool, action policy.Action) (*domain.TicketResponse, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperrors.NewValidationError("message is required", map[string]any{"field": "message"})
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, lookupError(err, "ticket", ticketID)
	}
	if ticket.Status.IsTerminal() {
		return nil, apperrors.NewTicketClosed(ticket.ID, string(ticket.Status))
	}
	if err := policy.Authorize(session, policy.Request{Action: action, Ticket: ticket}); err != nil {
		return nil, err
	}

	if !internal {
		var patch repository.TicketPatch
		if ticket.FirstResponseAt == nil {
			patch.FirstResponseAt = ptr(s.now())
		}
		if ticket.Status == domain.TicketStatusOpen {
			patch.Status = ptr(domain.TicketStatusInProgress)
		}
		ok, err := s.tickets.UpdateWhere(ctx, ticket.ID, repository.TicketGuard{Statuses: []domain.TicketStatus{ticket.Status}}, patch)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if !ok {
			return nil, s.classifyTicketMiss(ctx, ticket.ID)
		}
	}

	response := &domain.TicketResponse{
		TicketID:   ticket.ID,
		SenderType: domain.SenderTypeAgent,
		SenderID:   session.ActorID,
		Message:    message,
		IsInternal: internal,
	}
	if err := s.responses.Create(ctx, response); err != nil {
		return nil, apperrors.MapError(err)
	}

	activity := domain.ActivityTicketResponded
	if internal {
		activity = domain.ActivityInternalNote
	}
	s.recordActivity(ctx, session.ActorID, activity, map[string]any{
		"ticket_id":   ticket.ID,
		"response_id": response.ID,
		"realm":       string(session.Realm),
	})
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketResponseAdded,
		TicketID: ticket.ID,
		Actor:    events.ActorFromSession(session),
		Payload: events.TicketResponseAddedPayload{
			ResponseID:  response.ID,
			IsInternal:  internal,
			BodyPreview: stringPreview(message, 120),
		},
	})
	if !internal && ticket.Status == domain.TicketStatusOpen {
		s.publishStatusChange(ctx, session, ticket.ID, ticket.Status, domain.TicketStatusInProgress)
	}
	return response, nil
}

// Resolve marks the ticket resolved. Resolution notes are optional.
func (s *TicketService) Resolve(ctx context.Context, session domain.Session, ticketID, notes string) (*domain.Ticket, error) {
	return s.finish(ctx, session, ticketID, domain.TicketStatusResolved, notes, policy.ActionResolveTicket)
}

// Close marks the ticket closed.
func (s *TicketService) Close(ctx context.Context, session domain.Session, ticketID string) (*domain.Ticket, error) {
	return s.finish(ctx, session, ticketID, domain.TicketStatusClosed, "", policy.ActionCloseTicket)
}

// DeskSetStatus moves a ticket forward on behalf of dashboard staff. The
// target is in_progress, resolved or closed; notes only apply to the last two.
func (s *TicketService) DeskSetStatus(ctx context.Context, session domain.Session, ticketID string, target domain.TicketStatus, notes string) (*domain.Ticket, error) {
	switch target {
	case domain.TicketStatusResolved, domain.TicketStatusClosed:
		return s.finish(ctx, session, ticketID, target, notes, policy.ActionDeskSetStatus)
	case domain.TicketStatusInProgress:
		return s.startProgress(ctx, session, ticketID)
	}
	return nil, apperrors.NewValidationError("status must be in_progress, resolved or closed", map[string]any{"status": target})
}

func (s *TicketService) startProgress(ctx context.Context, session domain.Session, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, lookupError(err, "ticket", ticketID)
	}
	if err := policy.Authorize(session, policy.Request{Action: policy.ActionDeskSetStatus, Ticket: ticket}); err != nil {
		return nil, err
	}
	if ticket.Status == domain.TicketStatusInProgress {
		return ticket, nil
	}
	if !ticket.Status.CanTransition(domain.TicketStatusInProgress) {
		return nil, apperrors.NewTicketClosed(ticket.ID, string(ticket.Status))
	}
	ok, err := s.tickets.UpdateWhere(ctx, ticket.ID,
		repository.TicketGuard{Statuses: []domain.TicketStatus{domain.TicketStatusOpen}},
		repository.TicketPatch{Status: ptr(domain.TicketStatusInProgress)})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !ok {
		return nil, s.classifyTicketMiss(ctx, ticket.ID)
	}

	updated, err := s.tickets.GetByID(ctx, ticket.ID)
	if err != nil {
		return nil, lookupError(err, "ticket", ticket.ID)
	}
	s.recordActivity(ctx, session.ActorID, domain.ActivityTicketStatusChanged, map[string]any{
		"ticket_id":  ticket.ID,
		"old_status": string(ticket.Status),
		"new_status": string(domain.TicketStatusInProgress),
		"realm":      string(session.Realm),
	})
	s.publishStatusChange(ctx, session, ticket.ID, ticket.Status, domain.TicketStatusInProgress)
	return updated, nil
}

func (s *TicketService) finish(ctx context.Context, session domain.Session, ticketID string, target domain.TicketStatus, notes string, action policy.Action) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, lookupError(err, "ticket", ticketID)
	}
	activity := domain.ActivityTicketResolved
	if target == domain.TicketStatusClosed {
		activity = domain.ActivityTicketClosed
	}
	if err := policy.Authorize(session, policy.Request{Action: action, Ticket: ticket}); err != nil {
		return nil, err
	}
	if !ticket.Status.CanTransition(target) {
		return nil, apperrors.NewTicketClosed(ticket.ID, string(ticket.Status))
	}

	patch := repository.TicketPatch{Status: ptr(target), ResolvedAt: ptr(s.now())}
	if notes = strings.TrimSpace(notes); notes != "" {
		patch.ResolutionNotes = ptr(notes)
	}
	ok, err := s.tickets.UpdateWhere(ctx, ticket.ID, repository.TicketGuard{Statuses: domain.ActiveTicketStatuses}, patch)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !ok {
		return nil, s.classifyTicketMiss(ctx, ticket.ID)
	}

	updated, err := s.tickets.GetByID(ctx, ticket.ID)
	if err != nil {
		return nil, lookupError(err, "ticket", ticket.ID)
	}
	s.recordActivity(ctx, session.ActorID, activity, map[string]any{
		"ticket_id":  ticket.ID,
		"old_status": string(ticket.Status),
		"realm":      string(session.Realm),
	})
	s.publishStatusChange(ctx, session, ticket.ID, ticket.Status, target)
	return updated, nil
}

// UrgentQueue lists active high and urgent tickets that have not been
// escalated yet, oldest first.
func (s *TicketService) UrgentQueue(ctx context.Context, session domain.Session, limit int) ([]domain.Ticket, error) {
	if err := requireCallCenter(session); err != nil {
		return nil, err
	}
	tickets, err := s.tickets.List(ctx, UrgentQueueFilter(limit))
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// UrgentQueueFilter is the repository filter behind the urgent queue.
func UrgentQueueFilter(limit int) repository.TicketFilter {
	return repository.TicketFilter{
		Priorities:  []domain.TicketPriority{domain.TicketPriorityUrgent, domain.TicketPriorityHigh},
		Statuses:    domain.ActiveTicketStatuses,
		Escalated:   ptr(false),
		OldestFirst: true,
		Limit:       limit,
	}
}

// BackfillCategories assigns an inferred category to tickets still marked
// general. It returns the number of tickets changed, or that would change
// when dryRun is set.
func (s *TicketService) BackfillCategories(ctx context.Context, dryRun bool) (int, error) {
	changed := 0
	offset := 0
	const pageSize = 200
	for {
		batch, err := s.tickets.List(ctx, repository.TicketFilter{
			Categories:  []domain.TicketCategory{domain.TicketCategoryGeneral},
			OldestFirst: true,
			Limit:       pageSize,
			Offset:      offset,
		})
		if err != nil {
			return changed, apperrors.MapError(err)
		}
		for i := range batch {
			inferred := domain.InferCategory(batch[i].Subject)
			if inferred == domain.TicketCategoryGeneral {
				continue
			}
			changed++
			if dryRun {
				continue
			}
			if _, err := s.tickets.UpdateWhere(ctx, batch[i].ID, repository.TicketGuard{}, repository.TicketPatch{Category: ptr(inferred)}); err != nil {
				return changed, apperrors.MapError(err)
			}
			s.publishEvent(ctx, events.Event{Type: events.EventTicketCategoryChanged, TicketID: batch[i].ID})
		}
		if len(batch) < pageSize {
			return changed, nil
		}
		if dryRun {
			offset += pageSize
		} else {
			// Updated rows leave the general filter; only skip the ones kept.
			offset += pageSize - countInferable(batch)
		}
	}
}

func countInferable(batch []domain.Ticket) int {
	n := 0
	for i := range batch {
		if domain.InferCategory(batch[i].Subject) != domain.TicketCategoryGeneral {
			n++
		}
	}
	return n
}

// classifyTicketMiss explains why a guarded ticket update matched no row.
func (s *TicketService) classifyTicketMiss(ctx context.Context, ticketID string) error {
	return classifyTicketMiss(ctx, s.tickets, ticketID)
}

func classifyTicketMiss(ctx context.Context, tickets repository.TicketRepository, ticketID string) error {
	current, err := tickets.GetByID(ctx, ticketID)
	if err != nil {
		return lookupError(err, "ticket", ticketID)
	}
	if current.Status.IsTerminal() {
		return apperrors.NewTicketClosed(current.ID, string(current.Status))
	}
	return apperrors.NewConflict("ticket changed concurrently", map[string]any{"ticket_id": ticketID})
}

func (s *TicketService) publishStatusChange(ctx context.Context, session domain.Session, ticketID string, from, to domain.TicketStatus) {
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticketID,
		Actor:    events.ActorFromSession(session),
		Payload:  events.TicketStatusChangedPayload{OldStatus: from, NewStatus: to},
	})
}

func requireCallCenter(session domain.Session) error {
	if session.IsZero() {
		return apperrors.NewUnauthorized("session required")
	}
	if session.Realm != domain.RealmCallCenter || !session.CallCenterRole.Valid() {
		return apperrors.NewForbidden("call-center role required")
	}
	return nil
}
