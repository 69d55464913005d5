package dto

import (
	"time"

	"github.com/rideops/callcenter/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Subject                string                `json:"subject"`
	Message                string                `json:"message"`
	Category               domain.TicketCategory `json:"category"`
	Priority               domain.TicketPriority `json:"priority"`
	RideID                 *string               `json:"ride_id"`
	DriverPhoneRef         *string               `json:"driver_phone_ref"`
	CommunicationChannelID *string               `json:"communication_channel_id"`
}

// AssignTicketRequest payload. An empty agent id assigns the caller.
type AssignTicketRequest struct {
	AgentID string `json:"agent_id"`
}

// CreateResponseRequest payload.
type CreateResponseRequest struct {
	Message  string `json:"message"`
	Internal bool   `json:"internal"`
}

// ResolveTicketRequest payload.
type ResolveTicketRequest struct {
	ResolutionNotes string `json:"resolution_notes"`
}

// DeskStatusRequest payload. Notes apply when resolving or closing.
type DeskStatusRequest struct {
	Status          domain.TicketStatus `json:"status"`
	ResolutionNotes string              `json:"resolution_notes"`
}

// TicketSummary response.
type TicketSummary struct {
	ID                string                `json:"id"`
	Subject           string                `json:"subject"`
	Category          domain.TicketCategory `json:"category"`
	Priority          domain.TicketPriority `json:"priority"`
	SuggestedPriority domain.TicketPriority `json:"suggested_priority"`
	Status            domain.TicketStatus   `json:"status"`
	AssignedAgentID   *string               `json:"assigned_agent_id"`
	EscalatedTo       *string               `json:"escalated_to"`
	EscalationID      *string               `json:"escalation_id"`
	RideID            *string               `json:"ride_id"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
	TimeAgo           string                `json:"time_ago"`
	LastUpdate        string                `json:"last_update"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketSummary
	Message                string             `json:"message"`
	DriverPhoneRef         *string            `json:"driver_phone_ref"`
	CommunicationChannelID *string            `json:"communication_channel_id"`
	ResolutionNotes        *string            `json:"resolution_notes"`
	FirstResponseAt        *time.Time         `json:"first_response_at"`
	ResolvedAt             *time.Time         `json:"resolved_at"`
	Responses              []ResponseResponse `json:"responses"`
}

// ResponseResponse represents one thread entry.
type ResponseResponse struct {
	ID         string            `json:"id"`
	TicketID   string            `json:"ticket_id"`
	SenderType domain.SenderType `json:"sender_type"`
	SenderID   string            `json:"sender_id"`
	Message    string            `json:"message"`
	IsInternal bool              `json:"is_internal"`
	CreatedAt  time.Time         `json:"created_at"`
}

// NewTicketSummary projects a ticket for list responses.
func NewTicketSummary(t *domain.Ticket, now time.Time) TicketSummary {
	return TicketSummary{
		ID:                t.ID,
		Subject:           t.Subject,
		Category:          t.Category,
		Priority:          t.Priority,
		SuggestedPriority: domain.SuggestPriority(t.Subject, t.Message),
		Status:            t.Status,
		AssignedAgentID:   t.AssignedAgentID,
		EscalatedTo:       t.EscalatedTo,
		EscalationID:      t.EscalationID,
		RideID:            t.RideID,
		CreatedAt:         t.CreatedAt,
		UpdatedAt:         t.UpdatedAt,
		TimeAgo:           domain.TimeAgo(t.CreatedAt, now),
		LastUpdate:        domain.TimeAgo(t.UpdatedAt, now),
	}
}

// NewTicketDetail projects a ticket and its thread.
func NewTicketDetail(t *domain.Ticket, responses []domain.TicketResponse, now time.Time) TicketDetailResponse {
	items := make([]ResponseResponse, 0, len(responses))
	for i := range responses {
		items = append(items, NewResponseResponse(&responses[i]))
	}
	return TicketDetailResponse{
		TicketSummary:          NewTicketSummary(t, now),
		Message:                t.Message,
		DriverPhoneRef:         t.DriverPhoneRef,
		CommunicationChannelID: t.CommunicationChannelID,
		ResolutionNotes:        t.ResolutionNotes,
		FirstResponseAt:        t.FirstResponseAt,
		ResolvedAt:             t.ResolvedAt,
		Responses:              items,
	}
}

// NewResponseResponse projects a thread entry.
func NewResponseResponse(r *domain.TicketResponse) ResponseResponse {
	return ResponseResponse{
		ID:         r.ID,
		TicketID:   r.TicketID,
		SenderType: r.SenderType,
		SenderID:   r.SenderID,
		Message:    r.Message,
		IsInternal: r.IsInternal,
		CreatedAt:  r.CreatedAt,
	}
}
