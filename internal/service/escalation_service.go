package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rideops/callcenter/internal/auth"
	"github.com/rideops/callcenter/internal/config"
	"github.com/rideops/callcenter/internal/domain"
	"github.com/rideops/callcenter/internal/events"
	"github.com/rideops/callcenter/internal/policy"
	"github.com/rideops/callcenter/internal/repository"
	apperrors "github.com/rideops/callcenter/pkg/util/errorutil"
)

const defaultAttemptWindow = 24 * time.Hour

// EscalationService runs the code-gated emergency hand-off.
type EscalationService struct {
	tickets     repository.TicketRepository
	escalations repository.EscalationRepository
	limiter     AttemptLimiter
	cfg         config.EscalationConfig
	workflow
}

// EscalationDependencies bundles collaborators for the escalation service.
type EscalationDependencies struct {
	TicketRepo     repository.TicketRepository
	EscalationRepo repository.EscalationRepository
	ActivityRepo   repository.ActivityRepository
	Dispatcher     events.Dispatcher
	Limiter        AttemptLimiter
	Logger         *zap.Logger
	Config         config.EscalationConfig
	Clock          func() time.Time
}

// EscalationListFilter narrows escalation listings.
type EscalationListFilter struct {
	Statuses []domain.EscalationStatus
	TicketID *string
	Limit    int
	Offset   int
}

// NewEscalationService constructs the service. Without a limiter, attempt
// limiting falls back to process memory.
func NewEscalationService(deps EscalationDependencies) *EscalationService {
	wf := newWorkflow(deps.ActivityRepo, deps.Dispatcher, deps.Logger, deps.Clock)
	limiter := deps.Limiter
	if limiter == nil {
		limiter = NewMemoryAttemptLimiter(wf.now)
	}
	return &EscalationService{
		tickets:     deps.TicketRepo,
		escalations: deps.EscalationRepo,
		limiter:     limiter,
		cfg:         deps.Config,
		workflow:    wf,
	}
}

// Escalate opens a pending escalation for the ticket and raises its priority
// to urgent. The plain code is returned only here; the returned escalation
// never carries it.
func (s *EscalationService) Escalate(ctx context.Context, session domain.Session, ticketID, reason string) (*domain.Escalation, string, error) {
	if err := policy.Authorize(session, policy.Request{Action: policy.ActionEscalate}); err != nil {
		return nil, "", err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, "", apperrors.NewValidationError("reason is required", map[string]any{"field": "reason"})
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, "", lookupError(err, "ticket", ticketID)
	}
	if ticket.Status.IsTerminal() {
		return nil, "", apperrors.NewTicketClosed(ticket.ID, string(ticket.Status))
	}
	if ticket.IsEscalated() {
		return nil, "", apperrors.NewAlreadyEscalated(ticket.ID)
	}

	code, err := auth.GenerateCode()
	if err != nil {
		return nil, "", apperrors.NewInternalError(err)
	}
	stored := code
	if s.cfg.HashAtRest {
		if stored, err = auth.HashCode(code, s.cfg.BcryptCost); err != nil {
			return nil, "", apperrors.NewInternalError(err)
		}
	}

	escalation := &domain.Escalation{
		TicketID:    ticket.ID,
		EscalatedBy: session.ActorID,
		Reason:      reason,
		OTPCode:     stored,
		Status:      domain.EscalationStatusPending,
	}
	if err := s.escalations.CreateIfAbsent(ctx, escalation); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, "", apperrors.NewAlreadyEscalated(ticket.ID)
		}
		return nil, "", apperrors.MapError(err)
	}

	if ticket.Priority != domain.TicketPriorityUrgent {
		patch := repository.TicketPatch{Priority: ptr(domain.TicketPriorityUrgent)}
		if _, err := s.tickets.UpdateWhere(ctx, ticket.ID, repository.TicketGuard{}, patch); err != nil {
			s.logger.Warn("raise ticket priority failed",
				zap.String("ticket_id", ticket.ID),
				zap.String("escalation_id", escalation.ID),
				zap.Error(err))
		}
	}

	s.recordActivity(ctx, session.ActorID, domain.ActivityEscalation, map[string]any{
		"ticket_id":     ticket.ID,
		"escalation_id": escalation.ID,
		"reason":        reason,
	})
	s.publishEvent(ctx, events.Event{
		Type:     events.EventEscalationCreated,
		TicketID: ticket.ID,
		Actor:    events.ActorFromSession(session),
		Payload: events.EscalationPayload{
			EscalationID: escalation.ID,
			Status:       escalation.Status,
			Reason:       reason,
			Subject:      ticket.Subject,
		},
	})

	return redact(escalation), code, nil
}

// Acknowledge accepts the escalation on behalf of the caller when code matches
// the one issued at creation. Only one acknowledgment can ever succeed.
func (s *EscalationService) Acknowledge(ctx context.Context, session domain.Session, escalationID, code string) (*domain.Escalation, error) {
	if err := policy.Authorize(session, policy.Request{Action: policy.ActionAcknowledge}); err != nil {
		return nil, err
	}
	if strings.TrimSpace(code) == "" {
		return nil, apperrors.NewValidationError("code is required", map[string]any{"field": "code"})
	}
	escalation, err := s.escalations.GetByID(ctx, escalationID)
	if err != nil {
		return nil, lookupError(err, "escalation", escalationID)
	}
	if escalation.Status != domain.EscalationStatusPending {
		return nil, apperrors.NewEscalationNotPending(escalation.ID, string(escalation.Status))
	}
	if s.cfg.OTPTTL > 0 && s.now().Sub(escalation.CreatedAt) > s.cfg.OTPTTL {
		return nil, apperrors.NewCodeExpired()
	}

	// The attempt is counted before the comparison so concurrent guesses
	// cannot all pass the limit check.
	key := attemptKey(escalation.ID)
	attempts := 0
	if s.cfg.OTPMaxAttempts > 0 {
		attempts, err = s.limiter.RecordFailure(ctx, key, s.attemptWindow())
		if err != nil {
			return nil, apperrors.NewStoreUnavailable(err)
		}
		if attempts > s.cfg.OTPMaxAttempts {
			return nil, apperrors.NewTooManyAttempts()
		}
	}

	if !auth.CompareCode(escalation.OTPCode, code) {
		s.recordFailedAttempt(ctx, session, escalation, attempts)
		return nil, apperrors.NewInvalidCode()
	}

	now := s.now()
	ok, err := s.escalations.UpdateIfStatus(ctx, escalation.ID, domain.EscalationStatusPending, repository.EscalationPatch{
		Status:        domain.EscalationStatusAcknowledged,
		EscalatedTo:   ptr(session.ActorID),
		OTPVerifiedAt: ptr(now),
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !ok {
		return nil, s.notPending(ctx, escalation.ID)
	}

	if _, err := s.tickets.UpdateWhere(ctx, escalation.TicketID, repository.TicketGuard{}, repository.TicketPatch{EscalatedTo: ptr(session.ActorID)}); err != nil {
		s.logger.Warn("record ticket escalation recipient failed",
			zap.String("ticket_id", escalation.TicketID),
			zap.String("escalation_id", escalation.ID),
			zap.Error(err))
	}
	if s.cfg.OTPMaxAttempts > 0 {
		if err := s.limiter.Reset(ctx, key); err != nil {
			s.logger.Warn("reset attempt counter failed", zap.String("escalation_id", escalation.ID), zap.Error(err))
		}
	}

	acked, err := s.reload(ctx, escalation.ID)
	if err != nil {
		return nil, err
	}
	s.recordActivity(ctx, session.ActorID, domain.ActivityEscalationAcked, map[string]any{
		"ticket_id":     escalation.TicketID,
		"escalation_id": escalation.ID,
	})
	s.publishEvent(ctx, events.Event{
		Type:     events.EventEscalationAcked,
		TicketID: escalation.TicketID,
		Actor:    events.ActorFromSession(session),
		Payload: events.EscalationPayload{
			EscalationID: escalation.ID,
			Status:       domain.EscalationStatusAcknowledged,
		},
	})
	return acked, nil
}

// ResolveEscalation closes out an acknowledged escalation.
func (s *EscalationService) ResolveEscalation(ctx context.Context, session domain.Session, escalationID string) (*domain.Escalation, error) {
	if err := policy.Authorize(session, policy.Request{Action: policy.ActionResolveEscalation}); err != nil {
		return nil, err
	}
	escalation, err := s.escalations.GetByID(ctx, escalationID)
	if err != nil {
		return nil, lookupError(err, "escalation", escalationID)
	}
	if escalation.Status != domain.EscalationStatusAcknowledged {
		return nil, apperrors.NewEscalationNotAcknowledged(escalation.ID, string(escalation.Status))
	}
	ok, err := s.escalations.UpdateIfStatus(ctx, escalation.ID, domain.EscalationStatusAcknowledged, repository.EscalationPatch{
		Status: domain.EscalationStatusResolved,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !ok {
		current, err := s.escalations.GetByID(ctx, escalation.ID)
		if err != nil {
			return nil, lookupError(err, "escalation", escalation.ID)
		}
		return nil, apperrors.NewEscalationNotAcknowledged(current.ID, string(current.Status))
	}

	resolved, err := s.reload(ctx, escalation.ID)
	if err != nil {
		return nil, err
	}
	s.recordActivity(ctx, session.ActorID, domain.ActivityEscalationResolved, map[string]any{
		"ticket_id":     escalation.TicketID,
		"escalation_id": escalation.ID,
	})
	s.publishEvent(ctx, events.Event{
		Type:     events.EventEscalationResolved,
		TicketID: escalation.TicketID,
		Actor:    events.ActorFromSession(session),
		Payload: events.EscalationPayload{
			EscalationID: escalation.ID,
			Status:       domain.EscalationStatusResolved,
		},
	})
	return resolved, nil
}

// ListEscalations returns escalations newest first. Any call-center role may
// view them.
func (s *EscalationService) ListEscalations(ctx context.Context, session domain.Session, filter EscalationListFilter) ([]domain.Escalation, error) {
	if err := requireCallCenter(session); err != nil {
		return nil, err
	}
	for _, status := range filter.Statuses {
		if !status.Valid() {
			return nil, apperrors.NewValidationError("unknown escalation status", map[string]any{"status": status})
		}
	}
	items, err := s.escalations.List(ctx, repository.EscalationFilter{
		Statuses: filter.Statuses,
		TicketID: filter.TicketID,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	for i := range items {
		items[i].OTPCode = ""
	}
	return items, nil
}

// GetEscalation fetches one escalation without its code.
func (s *EscalationService) GetEscalation(ctx context.Context, session domain.Session, escalationID string) (*domain.Escalation, error) {
	if err := requireCallCenter(session); err != nil {
		return nil, err
	}
	return s.reload(ctx, escalationID)
}

func (s *EscalationService) recordFailedAttempt(ctx context.Context, session domain.Session, escalation *domain.Escalation, attempts int) {
	details := map[string]any{
		"ticket_id":     escalation.TicketID,
		"escalation_id": escalation.ID,
	}
	if attempts > 0 {
		details["failed_attempts"] = attempts
	}
	s.recordActivity(ctx, session.ActorID, domain.ActivityEscalationCodeFailed, details)
}

func (s *EscalationService) attemptWindow() time.Duration {
	if s.cfg.OTPTTL > 0 {
		return s.cfg.OTPTTL
	}
	return defaultAttemptWindow
}

func (s *EscalationService) notPending(ctx context.Context, escalationID string) error {
	current, err := s.escalations.GetByID(ctx, escalationID)
	if err != nil {
		return lookupError(err, "escalation", escalationID)
	}
	return apperrors.NewEscalationNotPending(current.ID, string(current.Status))
}

func (s *EscalationService) reload(ctx context.Context, escalationID string) (*domain.Escalation, error) {
	escalation, err := s.escalations.GetByID(ctx, escalationID)
	if err != nil {
		return nil, lookupError(err, "escalation", escalationID)
	}
	return redact(escalation), nil
}

func redact(escalation *domain.Escalation) *domain.Escalation {
	copied := *escalation
	copied.OTPCode = ""
	return &copied
}

func attemptKey(escalationID string) string {
	return "escalation:otp_attempts:" + escalationID
}
