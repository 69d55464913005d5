package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rideops/callcenter/internal/domain"
	"github.com/rideops/callcenter/internal/repository"
)

func newTicket(t *testing.T, store *Store) *domain.Ticket {
	t.Helper()
	ticket := &domain.Ticket{
		Subject:  "Driver was late",
		Category: domain.TicketCategoryComplaint,
		Priority: domain.TicketPriorityNormal,
		Status:   domain.TicketStatusOpen,
	}
	if err := store.Tickets().Create(context.Background(), ticket); err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	return ticket
}

func TestUpdateWhereUnassignedGuardAllowsOneWinner(t *testing.T) {
	store := NewStore()
	ticket := newTicket(t, store)

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(agent string) {
			defer wg.Done()
			ok, err := store.Tickets().UpdateWhere(context.Background(), ticket.ID,
				repository.TicketGuard{Unassigned: true},
				repository.TicketPatch{AssignedAgentID: &agent})
			if err != nil {
				t.Errorf("update: %v", err)
			}
			if ok {
				atomic.AddInt32(&wins, 1)
			}
		}(string(rune('a' + i)))
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
}

func TestUpdateWhereStatusGuard(t *testing.T) {
	store := NewStore()
	ticket := newTicket(t, store)
	resolved := domain.TicketStatusResolved
	ctx := context.Background()

	ok, err := store.Tickets().UpdateWhere(ctx, ticket.ID,
		repository.TicketGuard{Statuses: domain.ActiveTicketStatuses},
		repository.TicketPatch{Status: &resolved})
	if err != nil || !ok {
		t.Fatalf("first resolve: ok=%v err=%v", ok, err)
	}
	inProgress := domain.TicketStatusInProgress
	ok, err = store.Tickets().UpdateWhere(ctx, ticket.ID,
		repository.TicketGuard{Statuses: domain.ActiveTicketStatuses},
		repository.TicketPatch{Status: &inProgress})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if ok {
		t.Fatal("expected guard to reject update of a resolved ticket")
	}
	got, _ := store.Tickets().GetByID(ctx, ticket.ID)
	if got.Status != domain.TicketStatusResolved {
		t.Fatalf("status = %s, want resolved", got.Status)
	}
}

func TestCreateIfAbsentRejectsSecondEscalation(t *testing.T) {
	store := NewStore()
	ticket := newTicket(t, store)
	ctx := context.Background()

	first := &domain.Escalation{TicketID: ticket.ID, EscalatedBy: "s1", Reason: "r", OTPCode: "000001", Status: domain.EscalationStatusPending}
	if err := store.Escalations().CreateIfAbsent(ctx, first); err != nil {
		t.Fatalf("first escalation: %v", err)
	}
	second := &domain.Escalation{TicketID: ticket.ID, EscalatedBy: "s2", Reason: "r", OTPCode: "000002", Status: domain.EscalationStatusPending}
	if err := store.Escalations().CreateIfAbsent(ctx, second); !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("expected duplicate, got %v", err)
	}

	got, err := store.Tickets().GetByID(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("get ticket: %v", err)
	}
	if got.EscalationID == nil || *got.EscalationID != first.ID {
		t.Fatalf("ticket escalation id = %v, want %s", got.EscalationID, first.ID)
	}
}

func TestUpdateIfStatus(t *testing.T) {
	store := NewStore()
	ticket := newTicket(t, store)
	ctx := context.Background()
	esc := &domain.Escalation{TicketID: ticket.ID, EscalatedBy: "s1", Reason: "r", OTPCode: "123456", Status: domain.EscalationStatusPending}
	if err := store.Escalations().CreateIfAbsent(ctx, esc); err != nil {
		t.Fatalf("create: %v", err)
	}
	to := "s2"
	patch := repository.EscalationPatch{Status: domain.EscalationStatusAcknowledged, EscalatedTo: &to}
	ok, _ := store.Escalations().UpdateIfStatus(ctx, esc.ID, domain.EscalationStatusPending, patch)
	if !ok {
		t.Fatal("expected first acknowledgment to apply")
	}
	ok, _ = store.Escalations().UpdateIfStatus(ctx, esc.ID, domain.EscalationStatusPending, patch)
	if ok {
		t.Fatal("expected second acknowledgment to be rejected")
	}
}

func TestGetMissingReturnsNoRows(t *testing.T) {
	store := NewStore()
	if _, err := store.Tickets().GetByID(context.Background(), "missing"); !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("expected pgx.ErrNoRows, got %v", err)
	}
}

func TestListFilters(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	a := newTicket(t, store)
	newTicket(t, store)
	agent := "agent-1"
	if _, err := store.Tickets().UpdateWhere(ctx, a.ID, repository.TicketGuard{}, repository.TicketPatch{AssignedAgentID: &agent}); err != nil {
		t.Fatalf("assign: %v", err)
	}

	assigned, _ := store.Tickets().List(ctx, repository.TicketFilter{AssignedAgentID: &agent})
	if len(assigned) != 1 || assigned[0].ID != a.ID {
		t.Fatalf("assigned filter returned %d tickets", len(assigned))
	}
	unassigned, _ := store.Tickets().List(ctx, repository.TicketFilter{Unassigned: true})
	if len(unassigned) != 1 || unassigned[0].ID == a.ID {
		t.Fatalf("unassigned filter returned %d tickets", len(unassigned))
	}
	search := "LATE"
	found, _ := store.Tickets().List(ctx, repository.TicketFilter{SearchTerm: &search})
	if len(found) != 2 {
		t.Fatalf("search returned %d tickets, want 2", len(found))
	}
}

func TestChannelClaimAllowsOneWinner(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	channel := &domain.Channel{Type: domain.ChannelTypePhone, Status: domain.ChannelStatusActive}
	if err := store.Channels().Create(ctx, channel); err != nil {
		t.Fatalf("create channel: %v", err)
	}

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(agent string) {
			defer wg.Done()
			ok, err := store.Channels().Claim(ctx, channel.ID, agent)
			if err != nil {
				t.Errorf("claim: %v", err)
			}
			if ok {
				atomic.AddInt32(&wins, 1)
			}
		}(string(rune('a' + i)))
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("expected one winner, got %d", wins)
	}

	ended := &domain.Channel{Type: domain.ChannelTypeChat, Status: domain.ChannelStatusEnded}
	if err := store.Channels().Create(ctx, ended); err != nil {
		t.Fatalf("create channel: %v", err)
	}
	if ok, _ := store.Channels().Claim(ctx, ended.ID, "a"); ok {
		t.Fatal("ended channel must not be claimable")
	}
	if ok, _ := store.Channels().Claim(ctx, "missing", "a"); ok {
		t.Fatal("missing channel must not be claimable")
	}
}

func TestChannelQueueOrder(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	now := base
	store.SetClock(func() time.Time { return now })

	var ids []string
	for i := 0; i < 3; i++ {
		now = base.Add(time.Duration(i) * time.Minute)
		channel := &domain.Channel{Type: domain.ChannelTypePhone, Status: domain.ChannelStatusActive}
		if err := store.Channels().Create(ctx, channel); err != nil {
			t.Fatalf("create channel: %v", err)
		}
		ids = append(ids, channel.ID)
	}
	if ok, err := store.Channels().Claim(ctx, ids[0], "agent-1"); !ok || err != nil {
		t.Fatalf("claim: %v %v", ok, err)
	}

	queued, err := store.Channels().List(ctx, repository.ChannelFilter{
		Statuses:    []domain.ChannelStatus{domain.ChannelStatusActive},
		Unassigned:  true,
		OldestFirst: true,
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(queued) != 2 || queued[0].ID != ids[1] || queued[1].ID != ids[2] {
		t.Fatalf("unexpected queue order: %+v", queued)
	}

	agent := "agent-1"
	held, err := store.Channels().List(ctx, repository.ChannelFilter{AgentID: &agent})
	if err != nil || len(held) != 1 || held[0].ID != ids[0] {
		t.Fatalf("held channels: %v %v", held, err)
	}
}
