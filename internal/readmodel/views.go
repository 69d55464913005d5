package readmodel

import (
	"context"
	"time"

	"github.com/rideops/callcenter/internal/config"
	"github.com/rideops/callcenter/internal/domain"
	"github.com/rideops/callcenter/internal/repository"
	"github.com/rideops/callcenter/internal/service"
)

const (
	queueLimit      = 50
	recentLimit     = 100
	escalationLimit = 100
	countLimit      = 500
)

// Sources are the repositories the console views are projected from.
type Sources struct {
	Tickets     repository.TicketRepository
	Escalations repository.EscalationRepository
	// Channels is optional; without it the call queue view is not registered.
	Channels repository.ChannelRepository
	Clock    func() time.Time
}

// TicketRow is a ticket as shown in console lists.
type TicketRow struct {
	ID                string                `json:"id"`
	Subject           string                `json:"subject"`
	Category          domain.TicketCategory `json:"category"`
	Priority          domain.TicketPriority `json:"priority"`
	SuggestedPriority domain.TicketPriority `json:"suggested_priority"`
	Status            domain.TicketStatus   `json:"status"`
	AssignedAgentID   *string               `json:"assigned_agent_id,omitempty"`
	Escalated         bool                  `json:"escalated"`
	CreatedAt         time.Time             `json:"created_at"`
	TimeAgo           string                `json:"time_ago"`
	LastUpdate        string                `json:"last_update"`
}

// EscalationRow is an escalation as shown in console lists. It never carries
// the verification code.
type EscalationRow struct {
	ID          string                  `json:"id"`
	TicketID    string                  `json:"ticket_id"`
	EscalatedBy string                  `json:"escalated_by"`
	EscalatedTo *string                 `json:"escalated_to,omitempty"`
	Reason      string                  `json:"reason"`
	Status      domain.EscalationStatus `json:"status"`
	CreatedAt   time.Time               `json:"created_at"`
	TimeAgo     string                  `json:"time_ago"`
}

// StatsView summarizes workload.
type StatsView struct {
	TicketsByStatus     map[domain.TicketStatus]int     `json:"tickets_by_status"`
	EscalationsByStatus map[domain.EscalationStatus]int `json:"escalations_by_status"`
	UrgentQueue         int                             `json:"urgent_queue"`
	PendingCalls        int                             `json:"pending_calls"`
}

// CallRow is a queued inbound contact. Priority grows with the wait.
type CallRow struct {
	ID          string                `json:"id"`
	Type        domain.ChannelType    `json:"type"`
	Priority    domain.TicketPriority `json:"priority"`
	CallerPhone string                `json:"caller_phone"`
	RideID      *string               `json:"ride_id,omitempty"`
	StartedAt   time.Time             `json:"started_at"`
	Waiting     string                `json:"waiting"`
}

// AnalyticsView aggregates ticket volume and responsiveness.
type AnalyticsView struct {
	ByCategory              map[domain.TicketCategory]int `json:"by_category"`
	ByPriority              map[domain.TicketPriority]int `json:"by_priority"`
	AvgFirstResponseSeconds float64                       `json:"avg_first_response_seconds"`
}

// RegisterDefaultViews registers every console view with its interval.
func RegisterDefaultViews(r *Refresher, cfg config.RefreshConfig, src Sources) {
	if src.Clock == nil {
		src.Clock = time.Now
	}
	r.Register(ViewActiveQueue, cfg.ActiveQueue, src.activeQueue)
	r.Register(ViewEscalations, cfg.Escalations, src.escalations)
	r.Register(ViewStats, cfg.Stats, src.stats)
	r.Register(ViewTickets, cfg.Tickets, src.recentTickets)
	r.Register(ViewUrgent, cfg.Urgent, src.urgent)
	r.Register(ViewAnalytics, cfg.Analytics, src.analytics)
	if src.Channels != nil {
		r.Register(ViewCallQueue, cfg.CallQueue, src.callQueue)
	}
}

func (s Sources) callQueue(ctx context.Context) (any, error) {
	channels, err := s.Channels.List(ctx, service.CallQueueFilter(queueLimit))
	if err != nil {
		return nil, err
	}
	now := s.Clock()
	rows := make([]CallRow, 0, len(channels))
	for i := range channels {
		rows = append(rows, NewCallRow(&channels[i], now))
	}
	return rows, nil
}

// NewCallRow projects a queued contact for display at time now.
func NewCallRow(c *domain.Channel, now time.Time) CallRow {
	return CallRow{
		ID:          c.ID,
		Type:        c.Type,
		Priority:    c.WaitPriority(now),
		CallerPhone: c.CallerPhone(),
		RideID:      c.RideID,
		StartedAt:   c.StartedAt,
		Waiting:     domain.WaitDuration(c.StartedAt, now),
	}
}

func (s Sources) activeQueue(ctx context.Context) (any, error) {
	return s.ticketRows(ctx, repository.TicketFilter{
		Unassigned:  true,
		Statuses:    []domain.TicketStatus{domain.TicketStatusOpen},
		OldestFirst: true,
		Limit:       queueLimit,
	})
}

func (s Sources) recentTickets(ctx context.Context) (any, error) {
	return s.ticketRows(ctx, repository.TicketFilter{Limit: recentLimit})
}

func (s Sources) urgent(ctx context.Context) (any, error) {
	return s.ticketRows(ctx, service.UrgentQueueFilter(queueLimit))
}

func (s Sources) escalations(ctx context.Context) (any, error) {
	items, err := s.Escalations.List(ctx, repository.EscalationFilter{
		Statuses: []domain.EscalationStatus{domain.EscalationStatusPending, domain.EscalationStatusAcknowledged},
		Limit:    escalationLimit,
	})
	if err != nil {
		return nil, err
	}
	now := s.Clock()
	rows := make([]EscalationRow, 0, len(items))
	for _, e := range items {
		rows = append(rows, EscalationRow{
			ID:          e.ID,
			TicketID:    e.TicketID,
			EscalatedBy: e.EscalatedBy,
			EscalatedTo: e.EscalatedTo,
			Reason:      e.Reason,
			Status:      e.Status,
			CreatedAt:   e.CreatedAt,
			TimeAgo:     domain.TimeAgo(e.CreatedAt, now),
		})
	}
	return rows, nil
}

func (s Sources) stats(ctx context.Context) (any, error) {
	ticketStats, err := s.Tickets.Stats(ctx)
	if err != nil {
		return nil, err
	}
	escalations, err := s.Escalations.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	urgent, err := s.Tickets.List(ctx, service.UrgentQueueFilter(countLimit))
	if err != nil {
		return nil, err
	}
	view := StatsView{
		TicketsByStatus:     ticketStats.ByStatus,
		EscalationsByStatus: escalations,
		UrgentQueue:         len(urgent),
	}
	if s.Channels != nil {
		calls, err := s.Channels.List(ctx, service.CallQueueFilter(countLimit))
		if err != nil {
			return nil, err
		}
		view.PendingCalls = len(calls)
	}
	return view, nil
}

func (s Sources) analytics(ctx context.Context) (any, error) {
	ticketStats, err := s.Tickets.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return AnalyticsView{
		ByCategory:              ticketStats.ByCategory,
		ByPriority:              ticketStats.ByPriority,
		AvgFirstResponseSeconds: ticketStats.AvgFirstResponseSecs,
	}, nil
}

func (s Sources) ticketRows(ctx context.Context, filter repository.TicketFilter) ([]TicketRow, error) {
	tickets, err := s.Tickets.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	now := s.Clock()
	rows := make([]TicketRow, 0, len(tickets))
	for i := range tickets {
		rows = append(rows, NewTicketRow(&tickets[i], now))
	}
	return rows, nil
}

// NewTicketRow projects a ticket for display at time now.
func NewTicketRow(t *domain.Ticket, now time.Time) TicketRow {
	return TicketRow{
		ID:                t.ID,
		Subject:           t.Subject,
		Category:          t.Category,
		Priority:          t.Priority,
		SuggestedPriority: domain.SuggestPriority(t.Subject, t.Message),
		Status:            t.Status,
		AssignedAgentID:   t.AssignedAgentID,
		Escalated:         t.IsEscalated(),
		CreatedAt:         t.CreatedAt,
		TimeAgo:           domain.TimeAgo(t.CreatedAt, now),
		LastUpdate:        domain.TimeAgo(t.UpdatedAt, now),
	}
}
