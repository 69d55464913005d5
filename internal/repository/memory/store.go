// Package memory provides in-process implementations of the repository
// interfaces. It backs tests and the STORE_DRIVER=memory local mode and keeps
// the same conditional-update semantics as the Postgres repositories.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rideops/callcenter/internal/domain"
	"github.com/rideops/callcenter/internal/repository"
)

// Store holds every table behind a single lock.
type Store struct {
	mu          sync.RWMutex
	now         func() time.Time
	tickets     map[string]*domain.Ticket
	escalations map[string]*domain.Escalation
	responses   []domain.TicketResponse
	activity    []domain.ActivityLog
	agents      map[string]*domain.Agent
	profiles    map[string]*domain.AdminProfile
	channels    map[string]*domain.Channel
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		now:         time.Now,
		tickets:     make(map[string]*domain.Ticket),
		escalations: make(map[string]*domain.Escalation),
		agents:      make(map[string]*domain.Agent),
		profiles:    make(map[string]*domain.AdminProfile),
		channels:    make(map[string]*domain.Channel),
	}
}

// SetClock overrides the time source used for generated timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) Tickets() repository.TicketRepository { return ticketRepo{s} }
func (s *Store) Escalations() repository.EscalationRepository { return escalationRepo{s} }
func (s *Store) Responses() repository.ResponseRepository { return responseRepo{s} }
func (s *Store) Activity() repository.ActivityRepository { return activityRepo{s} }
func (s *Store) Agents() repository.AgentRepository { return agentRepo{s} }
func (s *Store) AdminProfiles() repository.AdminProfileRepository {
	return adminProfileRepo{s}
}
func (s *Store) Channels() repository.ChannelRepository { return channelRepo{s} }

// Repositories returns every repository backed by this store.
func (s *Store) Repositories() repository.Repositories {
	return repository.Repositories{
		Tickets:       s.Tickets(),
		Escalations:   s.Escalations(),
		Responses:     s.Responses(),
		Activity:      s.Activity(),
		Agents:        s.Agents(),
		AdminProfiles: s.AdminProfiles(),
		Channels:      s.Channels(),
	}
}

// escalationForTicket must be called with the lock held.
func (s *Store) escalationForTicket(ticketID string) *domain.Escalation {
	for _, e := range s.escalations {
		if e.TicketID == ticketID {
			return e
		}
	}
	return nil
}

// ticketCopy must be called with the lock held.
func (s *Store) ticketCopy(t *domain.Ticket) domain.Ticket {
	out := *t
	out.EscalationID = nil
	if e := s.escalationForTicket(t.ID); e != nil {
		id := e.ID
		out.EscalationID = &id
	}
	return out
}

type ticketRepo struct{ s *Store }

func (r ticketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.now()
	ticket.ID = uuid.NewString()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	stored := *ticket
	r.s.tickets[ticket.ID] = &stored
	return nil
}

func (r ticketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := r.s.ticketCopy(t)
	return &out, nil
}

func (r ticketRepo) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var result []domain.Ticket
	for _, t := range r.s.tickets {
		out := r.s.ticketCopy(t)
		if matchTicket(&out, filter) {
			result = append(result, out)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if filter.OldestFirst {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return page(result, filter.Limit, filter.Offset), nil
}

func matchTicket(t *domain.Ticket, f repository.TicketFilter) bool {
	if f.AssignedAgentID != nil && !t.IsAssignedTo(*f.AssignedAgentID) {
		return false
	}
	if f.Unassigned && t.AssignedAgentID != nil {
		return false
	}
	if f.Escalated != nil && t.IsEscalated() != *f.Escalated {
		return false
	}
	if len(f.Statuses) > 0 && !contains(f.Statuses, t.Status) {
		return false
	}
	if len(f.Priorities) > 0 && !contains(f.Priorities, t.Priority) {
		return false
	}
	if len(f.Categories) > 0 && !contains(f.Categories, t.Category) {
		return false
	}
	if f.SearchTerm != nil {
		term := strings.ToLower(strings.TrimSpace(*f.SearchTerm))
		phone := ""
		if t.DriverPhoneRef != nil {
			phone = *t.DriverPhoneRef
		}
		if term != "" && !strings.Contains(strings.ToLower(t.Subject), term) && !strings.Contains(strings.ToLower(phone), term) {
			return false
		}
	}
	return true
}

func (r ticketRepo) UpdateWhere(_ context.Context, id string, guard repository.TicketGuard, patch repository.TicketPatch) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tickets[id]
	if !ok {
		return false, nil
	}
	if guard.Unassigned && t.AssignedAgentID != nil {
		return false, nil
	}
	if len(guard.Statuses) > 0 && !contains(guard.Statuses, t.Status) {
		return false, nil
	}
	if patch.Status != nil {
		t.Status = *patch.Status
	}
	if patch.Priority != nil {
		t.Priority = *patch.Priority
	}
	if patch.Category != nil {
		t.Category = *patch.Category
	}
	if patch.AssignedAgentID != nil {
		t.AssignedAgentID = cloneString(patch.AssignedAgentID)
	}
	if patch.EscalatedTo != nil {
		t.EscalatedTo = cloneString(patch.EscalatedTo)
	}
	if patch.ResolutionNotes != nil {
		t.ResolutionNotes = cloneString(patch.ResolutionNotes)
	}
	if patch.ResolvedAt != nil {
		at := *patch.ResolvedAt
		t.ResolvedAt = &at
	}
	if patch.FirstResponseAt != nil && t.FirstResponseAt == nil {
		at := *patch.FirstResponseAt
		t.FirstResponseAt = &at
	}
	t.UpdatedAt = r.s.now()
	return true, nil
}

func (r ticketRepo) Stats(_ context.Context) (repository.TicketStats, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	stats := repository.TicketStats{
		ByStatus:   map[domain.TicketStatus]int{},
		ByPriority: map[domain.TicketPriority]int{},
		ByCategory: map[domain.TicketCategory]int{},
	}
	var total time.Duration
	responded := 0
	for _, t := range r.s.tickets {
		stats.ByStatus[t.Status]++
		stats.ByPriority[t.Priority]++
		stats.ByCategory[t.Category]++
		if t.FirstResponseAt != nil {
			total += t.FirstResponseAt.Sub(t.CreatedAt)
			responded++
		}
	}
	if responded > 0 {
		stats.AvgFirstResponseSecs = total.Seconds() / float64(responded)
	}
	return stats, nil
}

type escalationRepo struct{ s *Store }

func (r escalationRepo) CreateIfAbsent(_ context.Context, escalation *domain.Escalation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.escalationForTicket(escalation.TicketID) != nil {
		return repository.ErrDuplicate
	}
	escalation.ID = uuid.NewString()
	escalation.CreatedAt = r.s.now()
	escalation.EscalatedTo = nil
	stored := *escalation
	r.s.escalations[escalation.ID] = &stored
	return nil
}

func (r escalationRepo) GetByID(_ context.Context, id string) (*domain.Escalation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	e, ok := r.s.escalations[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *e
	return &out, nil
}

func (r escalationRepo) GetByTicket(_ context.Context, ticketID string) (*domain.Escalation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	e := r.s.escalationForTicket(ticketID)
	if e == nil {
		return nil, pgx.ErrNoRows
	}
	out := *e
	return &out, nil
}

func (r escalationRepo) List(_ context.Context, filter repository.EscalationFilter) ([]domain.Escalation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.Escalation
	for _, e := range r.s.escalations {
		if len(filter.Statuses) > 0 && !contains(filter.Statuses, e.Status) {
			continue
		}
		if filter.TicketID != nil && e.TicketID != *filter.TicketID {
			continue
		}
		result = append(result, *e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return page(result, filter.Limit, filter.Offset), nil
}

func (r escalationRepo) UpdateIfStatus(_ context.Context, id string, from domain.EscalationStatus, patch repository.EscalationPatch) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.escalations[id]
	if !ok || e.Status != from {
		return false, nil
	}
	e.Status = patch.Status
	if patch.EscalatedTo != nil {
		e.EscalatedTo = cloneString(patch.EscalatedTo)
	}
	if patch.OTPVerifiedAt != nil {
		at := *patch.OTPVerifiedAt
		e.OTPVerifiedAt = &at
	}
	return true, nil
}

func (r escalationRepo) CountByStatus(_ context.Context) (map[domain.EscalationStatus]int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	counts := map[domain.EscalationStatus]int{}
	for _, e := range r.s.escalations {
		counts[e.Status]++
	}
	return counts, nil
}

type responseRepo struct{ s *Store }

func (r responseRepo) Create(_ context.Context, response *domain.TicketResponse) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	response.ID = uuid.NewString()
	response.CreatedAt = r.s.now()
	r.s.responses = append(r.s.responses, *response)
	return nil
}

func (r responseRepo) ListByTicket(_ context.Context, ticketID string, includeInternal bool) ([]domain.TicketResponse, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.TicketResponse
	for _, resp := range r.s.responses {
		if resp.TicketID != ticketID || (resp.IsInternal && !includeInternal) {
			continue
		}
		result = append(result, resp)
	}
	return result, nil
}

type activityRepo struct{ s *Store }

func (r activityRepo) Create(_ context.Context, entry *domain.ActivityLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	entry.ID = uuid.NewString()
	entry.CreatedAt = r.s.now()
	stored := *entry
	stored.Details = make(map[string]any, len(entry.Details))
	for k, v := range entry.Details {
		stored.Details[k] = v
	}
	r.s.activity = append(r.s.activity, stored)
	return nil
}

func (r activityRepo) List(_ context.Context, filter repository.ActivityFilter) ([]domain.ActivityLog, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.ActivityLog
	for i := len(r.s.activity) - 1; i >= 0; i-- {
		entry := r.s.activity[i]
		if filter.AgentID != nil && entry.AgentID != *filter.AgentID {
			continue
		}
		if len(filter.Types) > 0 && !contains(filter.Types, entry.ActivityType) {
			continue
		}
		result = append(result, entry)
	}
	return page(result, filter.Limit, 0), nil
}

type agentRepo struct{ s *Store }

func (r agentRepo) Create(_ context.Context, agent *domain.Agent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.agents {
		if strings.EqualFold(existing.Email, agent.Email) {
			return repository.ErrDuplicate
		}
	}
	now := r.s.now()
	if agent.ID == "" {
		agent.ID = uuid.NewString()
	}
	agent.CreatedAt = now
	agent.UpdatedAt = now
	stored := *agent
	r.s.agents[agent.ID] = &stored
	return nil
}

func (r agentRepo) Update(_ context.Context, agent *domain.Agent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.agents[agent.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	agent.UpdatedAt = r.s.now()
	existing.Email = agent.Email
	existing.Name = agent.Name
	existing.Role = agent.Role
	existing.IsActive = agent.IsActive
	existing.UpdatedAt = agent.UpdatedAt
	return nil
}

func (r agentRepo) GetByID(_ context.Context, id string) (*domain.Agent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.agents[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *a
	return &out, nil
}

func (r agentRepo) GetByEmail(_ context.Context, email string) (*domain.Agent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, a := range r.s.agents {
		if strings.EqualFold(a.Email, email) {
			out := *a
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r agentRepo) List(_ context.Context, filter repository.AgentFilter) ([]domain.Agent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.Agent
	for _, a := range r.s.agents {
		if filter.Role != nil && a.Role != *filter.Role {
			continue
		}
		if filter.Active != nil && a.IsActive != *filter.Active {
			continue
		}
		result = append(result, *a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return page(result, filter.Limit, filter.Offset), nil
}

func (r agentRepo) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.agents[id]
	if !ok {
		return pgx.ErrNoRows
	}
	a.LastLogin = &at
	return nil
}

type adminProfileRepo struct{ s *Store }

func (r adminProfileRepo) Create(_ context.Context, profile *domain.AdminProfile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.profiles {
		if strings.EqualFold(existing.Email, profile.Email) {
			return repository.ErrDuplicate
		}
	}
	now := r.s.now()
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	profile.CreatedAt = now
	profile.UpdatedAt = now
	stored := *profile
	r.s.profiles[profile.ID] = &stored
	return nil
}

func (r adminProfileRepo) Update(_ context.Context, profile *domain.AdminProfile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.profiles[profile.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	profile.UpdatedAt = r.s.now()
	existing.Email = profile.Email
	existing.Name = profile.Name
	existing.Role = profile.Role
	existing.IsActive = profile.IsActive
	existing.UpdatedAt = profile.UpdatedAt
	return nil
}

func (r adminProfileRepo) GetByID(_ context.Context, id string) (*domain.AdminProfile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.profiles[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *p
	return &out, nil
}

func (r adminProfileRepo) GetByEmail(_ context.Context, email string) (*domain.AdminProfile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, p := range r.s.profiles {
		if strings.EqualFold(p.Email, email) {
			out := *p
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r adminProfileRepo) List(_ context.Context, limit, offset int) ([]domain.AdminProfile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.AdminProfile
	for _, p := range r.s.profiles {
		result = append(result, *p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return page(result, limit, offset), nil
}

type channelRepo struct{ s *Store }

func (r channelRepo) Create(_ context.Context, channel *domain.Channel) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	channel.ID = uuid.NewString()
	channel.StartedAt = r.s.now()
	channel.AgentID = nil
	stored := *channel
	r.s.channels[channel.ID] = &stored
	return nil
}

func (r channelRepo) GetByID(_ context.Context, id string) (*domain.Channel, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.channels[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *c
	return &out, nil
}

func (r channelRepo) List(_ context.Context, filter repository.ChannelFilter) ([]domain.Channel, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.Channel
	for _, c := range r.s.channels {
		if len(filter.Statuses) > 0 && !contains(filter.Statuses, c.Status) {
			continue
		}
		if filter.Unassigned && c.AgentID != nil {
			continue
		}
		if filter.AgentID != nil && (c.AgentID == nil || *c.AgentID != *filter.AgentID) {
			continue
		}
		result = append(result, *c)
	}
	sort.Slice(result, func(i, j int) bool {
		if filter.OldestFirst {
			return result[i].StartedAt.Before(result[j].StartedAt)
		}
		return result[i].StartedAt.After(result[j].StartedAt)
	})
	return page(result, filter.Limit, filter.Offset), nil
}

func (r channelRepo) Claim(_ context.Context, id, agentID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.channels[id]
	if !ok || !c.IsQueued() {
		return false, nil
	}
	c.AgentID = cloneString(&agentID)
	return true, nil
}

func contains[T comparable](values []T, v T) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func page[T any](items []T, limit, offset int) []T {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
