package service

import (
	"context"
	"testing"
	"time"

	"github.com/rideops/callcenter/internal/config"
	"github.com/rideops/callcenter/internal/domain"
	"github.com/rideops/callcenter/internal/repository"
	apperrors "github.com/rideops/callcenter/pkg/util/errorutil"
)

func TestDeskSeesEveryTicket(t *testing.T) {
	h := newHarness(t, config.EscalationConfig{})
	ctx := context.Background()
	a := h.agent(t, "alice", domain.CallCenterRoleAgent)
	staff := h.profile(t, "olga", domain.DashboardRoleOperationsStaff)

	mine := h.ticket(t, a, "Driver was rude", domain.TicketPriorityNormal)
	if _, err := h.assignment.Assign(ctx, a, mine.ID, a.ActorID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	h.ticket(t, a, "Lost phone", domain.TicketPriorityHigh)

	all, err := h.tickets.DeskTickets(ctx, staff, TicketListFilter{})
	if err != nil {
		t.Fatalf("desk list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 tickets, got %d", len(all))
	}

	term := "phone"
	found, err := h.tickets.DeskTickets(ctx, staff, TicketListFilter{SearchTerm: &term})
	if err != nil || len(found) != 1 || found[0].Subject != "Lost phone" {
		t.Fatalf("search: %v %v", found, err)
	}

	high, err := h.tickets.DeskTickets(ctx, staff, TicketListFilter{Priorities: []domain.TicketPriority{domain.TicketPriorityHigh}})
	if err != nil || len(high) != 1 {
		t.Fatalf("priority filter: %v %v", high, err)
	}

	_, err = h.tickets.DeskTickets(ctx, staff, TicketListFilter{View: TicketViewAssigned})
	expectErr(t, err, apperrors.ErrValidation)

	_, err = h.tickets.DeskTickets(ctx, a, TicketListFilter{})
	expectErr(t, err, apperrors.ErrForbidden)

	ticket, responses, err := h.tickets.DeskTicket(ctx, staff, mine.ID)
	if err != nil || ticket.ID != mine.ID || len(responses) != 0 {
		t.Fatalf("desk get: %v %v %v", ticket, responses, err)
	}
	_, _, err = h.tickets.DeskTicket(ctx, staff, "missing")
	expectErr(t, err, apperrors.ErrNotFound)
}

func TestDeskRespond(t *testing.T) {
	h := newHarness(t, config.EscalationConfig{})
	ctx := context.Background()
	a := h.agent(t, "alice", domain.CallCenterRoleAgent)
	staff := h.profile(t, "olga", domain.DashboardRoleOperationsStaff)

	ticket := h.ticket(t, a, "Fare dispute", domain.TicketPriorityNormal)
	if _, err := h.assignment.Assign(ctx, a, ticket.ID, a.ActorID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	stamped := h.reload(t, ticket.ID).FirstResponseAt

	_, err := h.tickets.DeskRespond(ctx, staff, ticket.ID, "   ")
	expectErr(t, err, apperrors.ErrValidation)

	h.clock.Advance(10 * time.Minute)
	response, err := h.tickets.DeskRespond(ctx, staff, ticket.ID, "Refund issued")
	if err != nil {
		t.Fatalf("desk respond: %v", err)
	}
	if response.SenderID != staff.ActorID || response.SenderType != domain.SenderTypeAgent || response.IsInternal {
		t.Fatalf("unexpected response: %+v", response)
	}
	updated := h.reload(t, ticket.ID)
	if updated.Status != domain.TicketStatusInProgress {
		t.Fatalf("expected in_progress, got %s", updated.Status)
	}
	if updated.FirstResponseAt == nil || !updated.FirstResponseAt.Equal(*stamped) {
		t.Fatalf("first_response_at moved from %v to %v", stamped, updated.FirstResponseAt)
	}

	_, err = h.tickets.DeskRespond(ctx, a, ticket.ID, "agents use the console")
	expectErr(t, err, apperrors.ErrForbidden)

	entries, err := h.store.Activity().List(ctx, repository.ActivityFilter{AgentID: &staff.ActorID})
	if err != nil || len(entries) != 1 || entries[0].ActivityType != domain.ActivityTicketResponded {
		t.Fatalf("activity: %v %v", entries, err)
	}
}

func TestDeskSetStatus(t *testing.T) {
	h := newHarness(t, config.EscalationConfig{})
	ctx := context.Background()
	a := h.agent(t, "alice", domain.CallCenterRoleAgent)
	staff := h.profile(t, "olga", domain.DashboardRoleSupervisor)

	ticket := h.ticket(t, a, "Driver never arrived", domain.TicketPriorityNormal)

	tests := []struct {
		name    string
		status  domain.TicketStatus
		notes   string
		want    domain.TicketStatus
		wantErr error
	}{
		{"reopen rejected", domain.TicketStatusOpen, "", "", apperrors.ErrValidation},
		{"start work", domain.TicketStatusInProgress, "", domain.TicketStatusInProgress, nil},
		{"start work twice", domain.TicketStatusInProgress, "", domain.TicketStatusInProgress, nil},
		{"resolve", domain.TicketStatusResolved, " partial refund ", domain.TicketStatusResolved, nil},
		{"close after resolve", domain.TicketStatusClosed, "", "", apperrors.ErrTicketClosed},
		{"restart after resolve", domain.TicketStatusInProgress, "", "", apperrors.ErrTicketClosed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			updated, err := h.tickets.DeskSetStatus(ctx, staff, ticket.ID, tt.status, tt.notes)
			if tt.wantErr != nil {
				expectErr(t, err, tt.wantErr)
				return
			}
			if err != nil {
				t.Fatalf("set status: %v", err)
			}
			if updated.Status != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, updated.Status)
			}
		})
	}

	final := h.reload(t, ticket.ID)
	if final.ResolvedAt == nil || final.ResolutionNotes == nil || *final.ResolutionNotes != "partial refund" {
		t.Fatalf("resolution not recorded: %+v", final)
	}

	other := h.ticket(t, a, "Card charged twice", domain.TicketPriorityNormal)
	_, err := h.tickets.DeskSetStatus(ctx, a, other.ID, domain.TicketStatusClosed, "")
	expectErr(t, err, apperrors.ErrForbidden)
	if got := h.reload(t, other.ID).Status; got != domain.TicketStatusOpen {
		t.Fatalf("forbidden call changed status to %s", got)
	}
}
