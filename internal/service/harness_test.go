package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rideops/callcenter/internal/config"
	"github.com/rideops/callcenter/internal/domain"
	"github.com/rideops/callcenter/internal/events"
	"github.com/rideops/callcenter/internal/repository/memory"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	store       *memory.Store
	clock       *fakeClock
	dispatcher  events.Dispatcher
	tickets     *TicketService
	assignment  *AssignmentService
	escalations *EscalationService
	accounts    *AccountService
	queue       *QueueService
}

func newHarness(t *testing.T, escCfg config.EscalationConfig) *harness {
	t.Helper()
	store := memory.NewStore()
	clock := newFakeClock()
	store.SetClock(clock.Now)
	dispatcher := events.NewInMemoryDispatcher(nil)

	return &harness{
		store:      store,
		clock:      clock,
		dispatcher: dispatcher,
		tickets: NewTicketService(TicketDependencies{
			TicketRepo:   store.Tickets(),
			ResponseRepo: store.Responses(),
			ActivityRepo: store.Activity(),
			Dispatcher:   dispatcher,
			Clock:        clock.Now,
		}),
		assignment: NewAssignmentService(AssignmentDependencies{
			TicketRepo:   store.Tickets(),
			AgentRepo:    store.Agents(),
			ActivityRepo: store.Activity(),
			Dispatcher:   dispatcher,
			Clock:        clock.Now,
		}),
		escalations: NewEscalationService(EscalationDependencies{
			TicketRepo:     store.Tickets(),
			EscalationRepo: store.Escalations(),
			ActivityRepo:   store.Activity(),
			Dispatcher:     dispatcher,
			Config:         escCfg,
			Clock:          clock.Now,
		}),
		accounts: NewAccountService(AccountDependencies{
			AgentRepo:        store.Agents(),
			AdminProfileRepo: store.AdminProfiles(),
			ActivityRepo:     store.Activity(),
			Dispatcher:       dispatcher,
			Clock:            clock.Now,
		}),
		queue: NewQueueService(QueueDependencies{
			ChannelRepo:  store.Channels(),
			ActivityRepo: store.Activity(),
			Dispatcher:   dispatcher,
			Clock:        clock.Now,
		}),
	}
}

// agent stores an active call-center account and returns its session.
func (h *harness) agent(t *testing.T, name string, role domain.CallCenterRole) domain.Session {
	t.Helper()
	a := &domain.Agent{Email: name + "@rideops.test", Name: name, Role: role, IsActive: true}
	if err := h.store.Agents().Create(context.Background(), a); err != nil {
		t.Fatalf("create agent %s: %v", name, err)
	}
	return domain.CallCenterSession(a.ID, role)
}

func (h *harness) profile(t *testing.T, name string, role domain.DashboardRole) domain.Session {
	t.Helper()
	p := &domain.AdminProfile{Email: name + "@rideops.test", Name: name, Role: role, IsActive: true}
	if err := h.store.AdminProfiles().Create(context.Background(), p); err != nil {
		t.Fatalf("create profile %s: %v", name, err)
	}
	return domain.DashboardSession(p.ID, role)
}

func (h *harness) ticket(t *testing.T, session domain.Session, subject string, priority domain.TicketPriority) *domain.Ticket {
	t.Helper()
	ticket, err := h.tickets.CreateTicket(context.Background(), session, TicketCreateInput{
		Subject:  subject,
		Message:  "caller reported an issue",
		Category: domain.TicketCategoryComplaint,
		Priority: priority,
	})
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	return ticket
}

func (h *harness) reload(t *testing.T, ticketID string) *domain.Ticket {
	t.Helper()
	ticket, err := h.store.Tickets().GetByID(context.Background(), ticketID)
	if err != nil {
		t.Fatalf("reload ticket: %v", err)
	}
	return ticket
}

func expectErr(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("expected %v, got %v", target, err)
	}
}
