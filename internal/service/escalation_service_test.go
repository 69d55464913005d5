package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/rideops/callcenter/internal/config"
	"github.com/rideops/callcenter/internal/domain"
	"github.com/rideops/callcenter/internal/repository"
	apperrors "github.com/rideops/callcenter/pkg/util/errorutil"
)

var sixDigits = regexp.MustCompile(`^[0-9]{6}$`)

func wrongCode(code string) string {
	if code == "000000" {
		return "000001"
	}
	return "000000"
}

func TestEscalationEndToEnd(t *testing.T) {
	h := newHarness(t, config.EscalationConfig{})
	ctx := context.Background()
	a := h.agent(t, "alice", domain.CallCenterRoleAgent)
	s := h.agent(t, "sam", domain.CallCenterRoleSupervisor)
	d := h.agent(t, "dana", domain.CallCenterRoleAdmin)

	ticket := h.ticket(t, a, "Passenger threatened driver", domain.TicketPriorityHigh)
	if ticket.Status != domain.TicketStatusOpen {
		t.Fatalf("new ticket status = %s", ticket.Status)
	}

	assigned, err := h.assignment.Assign(ctx, a, ticket.ID, a.ActorID)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if assigned.Status != domain.TicketStatusInProgress || assigned.FirstResponseAt == nil {
		t.Fatalf("after assign: status=%s first_response=%v", assigned.Status, assigned.FirstResponseAt)
	}

	const reason = "customer threatened violence"
	_, _, err = h.escalations.Escalate(ctx, a, ticket.ID, reason)
	expectErr(t, err, apperrors.ErrForbidden)

	escalation, code, err := h.escalations.Escalate(ctx, s, ticket.ID, reason)
	if err != nil {
		t.Fatalf("escalate: %v", err)
	}
	if !sixDigits.MatchString(code) {
		t.Fatalf("code %q is not six digits", code)
	}
	if escalation.Status != domain.EscalationStatusPending || escalation.OTPCode != "" {
		t.Fatalf("escalation status=%s code leaked=%q", escalation.Status, escalation.OTPCode)
	}
	if got := h.reload(t, ticket.ID); got.Priority != domain.TicketPriorityUrgent {
		t.Fatalf("ticket priority = %s, want urgent", got.Priority)
	}

	_, err = h.escalations.Acknowledge(ctx, d, escalation.ID, wrongCode(code))
	expectErr(t, err, apperrors.ErrInvalidCode)
	stored, _ := h.store.Escalations().GetByID(ctx, escalation.ID)
	if stored.Status != domain.EscalationStatusPending {
		t.Fatalf("status after wrong code = %s", stored.Status)
	}

	acked, err := h.escalations.Acknowledge(ctx, d, escalation.ID, code)
	if err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	if acked.Status != domain.EscalationStatusAcknowledged || acked.EscalatedTo == nil || *acked.EscalatedTo != d.ActorID {
		t.Fatalf("acknowledged escalation: %+v", acked)
	}
	if acked.OTPVerifiedAt == nil {
		t.Fatal("expected verification timestamp")
	}
	if got := h.reload(t, ticket.ID); got.EscalatedTo == nil || *got.EscalatedTo != d.ActorID {
		t.Fatalf("ticket escalated_to = %v", got.EscalatedTo)
	}

	resolved, err := h.escalations.ResolveEscalation(ctx, d, escalation.ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Status != domain.EscalationStatusResolved {
		t.Fatalf("status = %s, want resolved", resolved.Status)
	}
}

func TestAgentCannotActOnEscalations(t *testing.T) {
	h := newHarness(t, config.EscalationConfig{})
	ctx := context.Background()
	a := h.agent(t, "alice", domain.CallCenterRoleAgent)
	s := h.agent(t, "sam", domain.CallCenterRoleSupervisor)
	ticket := h.ticket(t, s, "Unsafe driving", domain.TicketPriorityHigh)
	escalation, code, err := h.escalations.Escalate(ctx, s, ticket.ID, "reported unsafe driving")
	if err != nil {
		t.Fatalf("escalate: %v", err)
	}

	cases := map[string]func() error{
		"escalate": func() error {
			_, _, err := h.escalations.Escalate(ctx, a, ticket.ID, "reason")
			return err
		},
		"escalate empty reason": func() error {
			_, _, err := h.escalations.Escalate(ctx, a, ticket.ID, "")
			return err
		},
		"acknowledge correct code": func() error {
			_, err := h.escalations.Acknowledge(ctx, a, escalation.ID, code)
			return err
		},
		"resolve": func() error {
			_, err := h.escalations.ResolveEscalation(ctx, a, escalation.ID)
			return err
		},
	}
	for name, call := range cases {
		t.Run(name, func(t *testing.T) {
			expectErr(t, call(), apperrors.ErrForbidden)
		})
	}

	listed, err := h.escalations.ListEscalations(ctx, a, EscalationListFilter{})
	if err != nil {
		t.Fatalf("agent list: %v", err)
	}
	if len(listed) != 1 || listed[0].OTPCode != "" {
		t.Fatalf("agent listing returned %d rows or leaked a code", len(listed))
	}
}

func TestEscalateValidation(t *testing.T) {
	h := newHarness(t, config.EscalationConfig{})
	ctx := context.Background()
	s := h.agent(t, "sam", domain.CallCenterRoleSupervisor)
	ticket := h.ticket(t, s, "Lost item", domain.TicketPriorityHigh)

	for _, reason := range []string{"", "   ", "\n\t"} {
		_, _, err := h.escalations.Escalate(ctx, s, ticket.ID, reason)
		expectErr(t, err, apperrors.ErrValidation)
	}
	rows, _ := h.store.Escalations().List(ctx, repository.EscalationFilter{})
	if len(rows) != 0 {
		t.Fatalf("expected no escalation rows, got %d", len(rows))
	}
	if got := h.reload(t, ticket.ID); got.Priority != domain.TicketPriorityHigh {
		t.Fatalf("priority changed to %s", got.Priority)
	}

	_, _, err := h.escalations.Escalate(ctx, s, "missing", "reason")
	expectErr(t, err, apperrors.ErrNotFound)
}

func TestEscalateTwiceAndClosedTicket(t *testing.T) {
	h := newHarness(t, config.EscalationConfig{})
	ctx := context.Background()
	s := h.agent(t, "sam", domain.CallCenterRoleSupervisor)

	ticket := h.ticket(t, s, "Accident on route", domain.TicketPriorityUrgent)
	if _, _, err := h.escalations.Escalate(ctx, s, ticket.ID, "injury reported"); err != nil {
		t.Fatalf("escalate: %v", err)
	}
	_, _, err := h.escalations.Escalate(ctx, s, ticket.ID, "second attempt")
	expectErr(t, err, apperrors.ErrAlreadyEscalated)

	closed := h.ticket(t, s, "Old case", domain.TicketPriorityHigh)
	if _, err := h.tickets.Close(ctx, s, closed.ID); err != nil {
		t.Fatalf("close: %v", err)
	}
	_, _, err = h.escalations.Escalate(ctx, s, closed.ID, "too late")
	expectErr(t, err, apperrors.ErrTicketClosed)
}

func TestAcknowledgeOnlyOnce(t *testing.T) {
	h := newHarness(t, config.EscalationConfig{})
	ctx := context.Background()
	s := h.agent(t, "sam", domain.CallCenterRoleSupervisor)
	d := h.agent(t, "dana", domain.CallCenterRoleAdmin)
	ticket := h.ticket(t, s, "Assault report", domain.TicketPriorityUrgent)
	escalation, code, err := h.escalations.Escalate(ctx, s, ticket.ID, "assault")
	if err != nil {
		t.Fatalf("escalate: %v", err)
	}

	if _, err := h.escalations.Acknowledge(ctx, d, escalation.ID, code); err != nil {
		t.Fatalf("first acknowledge: %v", err)
	}
	_, err = h.escalations.Acknowledge(ctx, s, escalation.ID, code)
	expectErr(t, err, apperrors.ErrEscalationNotPending)

	stored, _ := h.store.Escalations().GetByID(ctx, escalation.ID)
	if stored.EscalatedTo == nil || *stored.EscalatedTo != d.ActorID {
		t.Fatalf("escalated_to overwritten: %v", stored.EscalatedTo)
	}

	_, err = h.escalations.Acknowledge(ctx, d, escalation.ID, "")
	expectErr(t, err, apperrors.ErrValidation)
}

func TestResolveRequiresAcknowledged(t *testing.T) {
	h := newHarness(t, config.EscalationConfig{})
	ctx := context.Background()
	s := h.agent(t, "sam", domain.CallCenterRoleSupervisor)
	ticket := h.ticket(t, s, "Stranded passenger", domain.TicketPriorityHigh)
	escalation, _, err := h.escalations.Escalate(ctx, s, ticket.ID, "stranded at night")
	if err != nil {
		t.Fatalf("escalate: %v", err)
	}
	_, err = h.escalations.ResolveEscalation(ctx, s, escalation.ID)
	expectErr(t, err, apperrors.ErrEscalationNotAcked)
}

func TestActivityNeverRecordsCode(t *testing.T) {
	h := newHarness(t, config.EscalationConfig{})
	ctx := context.Background()
	s := h.agent(t, "sam", domain.CallCenterRoleSupervisor)
	d := h.agent(t, "dana", domain.CallCenterRoleAdmin)
	ticket := h.ticket(t, s, "Police involved", domain.TicketPriorityUrgent)
	escalation, code, err := h.escalations.Escalate(ctx, s, ticket.ID, "police called")
	if err != nil {
		t.Fatalf("escalate: %v", err)
	}
	_, _ = h.escalations.Acknowledge(ctx, d, escalation.ID, wrongCode(code))
	if _, err := h.escalations.Acknowledge(ctx, d, escalation.ID, code); err != nil {
		t.Fatalf("acknowledge: %v", err)
	}

	entries, _ := h.store.Activity().List(ctx, repository.ActivityFilter{Limit: 100})
	if len(entries) == 0 {
		t.Fatal("expected activity entries")
	}
	for _, entry := range entries {
		for key, value := range entry.Details {
			if fmt.Sprint(value) == code {
				t.Fatalf("activity %s detail %q carries the code", entry.ActivityType, key)
			}
		}
	}
}

func TestHardenedAttemptLimit(t *testing.T) {
	h := newHarness(t, config.EscalationConfig{OTPMaxAttempts: 2})
	ctx := context.Background()
	s := h.agent(t, "sam", domain.CallCenterRoleSupervisor)
	ticket := h.ticket(t, s, "Danger reported", domain.TicketPriorityUrgent)
	escalation, code, err := h.escalations.Escalate(ctx, s, ticket.ID, "danger")
	if err != nil {
		t.Fatalf("escalate: %v", err)
	}

	for i := 0; i < 2; i++ {
		_, err := h.escalations.Acknowledge(ctx, s, escalation.ID, wrongCode(code))
		expectErr(t, err, apperrors.ErrInvalidCode)
	}
	_, err = h.escalations.Acknowledge(ctx, s, escalation.ID, code)
	expectErr(t, err, apperrors.ErrTooManyAttempts)
}

func TestHardenedExpiry(t *testing.T) {
	h := newHarness(t, config.EscalationConfig{OTPTTL: 10 * time.Minute})
	ctx := context.Background()
	s := h.agent(t, "sam", domain.CallCenterRoleSupervisor)
	ticket := h.ticket(t, s, "SOS call", domain.TicketPriorityUrgent)
	escalation, code, err := h.escalations.Escalate(ctx, s, ticket.ID, "sos")
	if err != nil {
		t.Fatalf("escalate: %v", err)
	}

	h.clock.Advance(11 * time.Minute)
	_, err = h.escalations.Acknowledge(ctx, s, escalation.ID, code)
	expectErr(t, err, apperrors.ErrCodeExpired)
}

func TestLegacyModeHasNoLimit(t *testing.T) {
	h := newHarness(t, config.EscalationConfig{})
	ctx := context.Background()
	s := h.agent(t, "sam", domain.CallCenterRoleSupervisor)
	ticket := h.ticket(t, s, "Emergency", domain.TicketPriorityUrgent)
	escalation, code, err := h.escalations.Escalate(ctx, s, ticket.ID, "emergency")
	if err != nil {
		t.Fatalf("escalate: %v", err)
	}
	for i := 0; i < 10; i++ {
		_, err := h.escalations.Acknowledge(ctx, s, escalation.ID, wrongCode(code))
		expectErr(t, err, apperrors.ErrInvalidCode)
	}
	h.clock.Advance(72 * time.Hour)
	if _, err := h.escalations.Acknowledge(ctx, s, escalation.ID, code); err != nil {
		t.Fatalf("acknowledge after many failures: %v", err)
	}
}

func TestHashAtRest(t *testing.T) {
	h := newHarness(t, config.EscalationConfig{HashAtRest: true, BcryptCost: 4})
	ctx := context.Background()
	s := h.agent(t, "sam", domain.CallCenterRoleSupervisor)
	ticket := h.ticket(t, s, "Injury", domain.TicketPriorityUrgent)
	escalation, code, err := h.escalations.Escalate(ctx, s, ticket.ID, "injury")
	if err != nil {
		t.Fatalf("escalate: %v", err)
	}
	stored, _ := h.store.Escalations().GetByID(ctx, escalation.ID)
	if stored.OTPCode == code || len(stored.OTPCode) < 2 || stored.OTPCode[:2] != "$2" {
		t.Fatalf("expected bcrypt hash at rest, got %q", stored.OTPCode)
	}
	if _, err := h.escalations.Acknowledge(ctx, s, escalation.ID, code); err != nil {
		t.Fatalf("acknowledge with hashed code: %v", err)
	}
}

func TestAcknowledgeRequiresExactCode(t *testing.T) {
	h := newHarness(t, config.EscalationConfig{})
	ctx := context.Background()
	s := h.agent(t, "sam", domain.CallCenterRoleSupervisor)
	ticket := h.ticket(t, s, "Harassment report", domain.TicketPriorityUrgent)
	escalation, code, err := h.escalations.Escalate(ctx, s, ticket.ID, "harassment")
	if err != nil {
		t.Fatalf("escalate: %v", err)
	}

	for _, candidate := range []string{" " + code, code + "\n", " " + code + "\n", "\t" + code} {
		_, err := h.escalations.Acknowledge(ctx, s, escalation.ID, candidate)
		expectErr(t, err, apperrors.ErrInvalidCode)
	}
	stored, _ := h.store.Escalations().GetByID(ctx, escalation.ID)
	if stored.Status != domain.EscalationStatusPending {
		t.Fatalf("status = %s, want pending", stored.Status)
	}
	if _, err := h.escalations.Acknowledge(ctx, s, escalation.ID, code); err != nil {
		t.Fatalf("acknowledge with exact code: %v", err)
	}
}

// slowLimiter adds latency to every counter write, like a remote store.
type slowLimiter struct {
	*MemoryAttemptLimiter
	delay time.Duration
}

func (l slowLimiter) RecordFailure(ctx context.Context, key string, window time.Duration) (int, error) {
	time.Sleep(l.delay)
	return l.MemoryAttemptLimiter.RecordFailure(ctx, key, window)
}

func TestConcurrentGuessesRespectAttemptLimit(t *testing.T) {
	const maxAttempts = 3
	h := newHarness(t, config.EscalationConfig{})
	svc := NewEscalationService(EscalationDependencies{
		TicketRepo:     h.store.Tickets(),
		EscalationRepo: h.store.Escalations(),
		ActivityRepo:   h.store.Activity(),
		Dispatcher:     h.dispatcher,
		Limiter:        slowLimiter{MemoryAttemptLimiter: NewMemoryAttemptLimiter(h.clock.Now), delay: 2 * time.Millisecond},
		Config:         config.EscalationConfig{OTPMaxAttempts: maxAttempts},
		Clock:          h.clock.Now,
	})
	ctx := context.Background()
	s := h.agent(t, "sam", domain.CallCenterRoleSupervisor)
	ticket := h.ticket(t, s, "Unsafe driver", domain.TicketPriorityUrgent)
	escalation, code, err := svc.Escalate(ctx, s, ticket.ID, "unsafe driving")
	if err != nil {
		t.Fatalf("escalate: %v", err)
	}

	const guesses = 100
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		compared int
		limited  int
	)
	for i := 0; i < guesses; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Acknowledge(ctx, s, escalation.ID, wrongCode(code))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, apperrors.ErrInvalidCode):
				compared++
			case errors.Is(err, apperrors.ErrTooManyAttempts):
				limited++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if compared != maxAttempts {
		t.Fatalf("compared %d guesses, want %d", compared, maxAttempts)
	}
	if limited != guesses-maxAttempts {
		t.Fatalf("limited %d guesses, want %d", limited, guesses-maxAttempts)
	}
	_, err = svc.Acknowledge(ctx, s, escalation.ID, code)
	expectErr(t, err, apperrors.ErrTooManyAttempts)
}
