package events

import (
	"time"

	"github.com/rideops/callcenter/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketAssigned        EventType = "ticket_assigned"
	EventTicketStatusChanged   EventType = "ticket_status_changed"
	EventTicketResponseAdded   EventType = "ticket_response_added"
	EventTicketCategoryChanged EventType = "ticket_category_changed"
	EventEscalationCreated     EventType = "escalation_created"
	EventEscalationAcked       EventType = "escalation_acknowledged"
	EventEscalationResolved    EventType = "escalation_resolved"
	EventAccountChanged        EventType = "account_changed"
	EventChannelOpened         EventType = "channel_opened"
	EventChannelAccepted       EventType = "channel_accepted"
)

// AllEventTypes lists every event type, for subscribers that react to any change.
var AllEventTypes = []EventType{
	EventTicketCreated,
	EventTicketAssigned,
	EventTicketStatusChanged,
	EventTicketResponseAdded,
	EventTicketCategoryChanged,
	EventEscalationCreated,
	EventEscalationAcked,
	EventEscalationResolved,
	EventAccountChanged,
	EventChannelOpened,
	EventChannelAccepted,
}

// Actor encapsulates actor metadata for an event.
type Actor struct {
	ID    string       `json:"id"`
	Realm domain.Realm `json:"realm"`
	Role  string       `json:"role"`
}

// ActorFromSession copies the caller identity onto an event.
func ActorFromSession(s domain.Session) Actor {
	return Actor{ID: s.ActorID, Realm: s.Realm, Role: s.RoleName()}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id,omitempty"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Subject  string                `json:"subject"`
	Category domain.TicketCategory `json:"category"`
	Priority domain.TicketPriority `json:"priority"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssignedAgentID string `json:"assigned_agent_id"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketResponseAddedPayload payload.
type TicketResponseAddedPayload struct {
	ResponseID  string `json:"response_id"`
	IsInternal  bool   `json:"is_internal"`
	BodyPreview string `json:"body_preview"`
}

// EscalationPayload describes an escalation change. It never carries the
// verification code.
type EscalationPayload struct {
	EscalationID string                  `json:"escalation_id"`
	Status       domain.EscalationStatus `json:"status"`
	Reason       string                  `json:"reason,omitempty"`
	Subject      string                  `json:"subject,omitempty"`
}

// AccountChangedPayload payload.
type AccountChangedPayload struct {
	AccountID string       `json:"account_id"`
	Realm     domain.Realm `json:"realm"`
	Change    string       `json:"change"`
}

// ChannelPayload describes a change to an inbound contact.
type ChannelPayload struct {
	ChannelID string             `json:"channel_id"`
	Type      domain.ChannelType `json:"type"`
	AgentID   string             `json:"agent_id,omitempty"`
}
