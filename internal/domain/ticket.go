package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// IsTerminal reports whether no further transitions are allowed.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// CanTransition reports whether moving from s to next is a forward edge.
func (s TicketStatus) CanTransition(next TicketStatus) bool {
	switch s {
	case TicketStatusOpen:
		return next == TicketStatusInProgress || next == TicketStatusResolved || next == TicketStatusClosed
	case TicketStatusInProgress:
		return next == TicketStatusResolved || next == TicketStatusClosed
	}
	return false
}

// ActiveTicketStatuses are the statuses a ticket can still be worked in.
var ActiveTicketStatuses = []TicketStatus{TicketStatusOpen, TicketStatusInProgress}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityNormal TicketPriority = "normal"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityNormal, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// TicketCategory classifies the customer issue.
type TicketCategory string

const (
	TicketCategoryComplaint TicketCategory = "complaint"
	TicketCategoryTechnical TicketCategory = "technical"
	TicketCategoryBilling   TicketCategory = "billing"
	TicketCategoryGeneral   TicketCategory = "general"
)

// Valid reports whether c is a known category.
func (c TicketCategory) Valid() bool {
	switch c {
	case TicketCategoryComplaint, TicketCategoryTechnical, TicketCategoryBilling, TicketCategoryGeneral:
		return true
	}
	return false
}

// Ticket is a customer issue tracked by the call center.
type Ticket struct {
	ID                     string
	Subject                string
	Message                string
	Category               TicketCategory
	Priority               TicketPriority
	Status                 TicketStatus
	AssignedAgentID        *string
	EscalatedTo            *string
	EscalationID           *string
	RideID                 *string
	DriverPhoneRef         *string
	CommunicationChannelID *string
	ResolutionNotes        *string
	CreatedAt              time.Time
	UpdatedAt              time.Time
	FirstResponseAt        *time.Time
	ResolvedAt             *time.Time
}

// IsAssignedTo reports whether agentID is the ticket's assigned agent.
func (t *Ticket) IsAssignedTo(agentID string) bool {
	return t.AssignedAgentID != nil && *t.AssignedAgentID == agentID
}

// IsEscalated reports whether an escalation exists for the ticket.
func (t *Ticket) IsEscalated() bool {
	return t.EscalationID != nil
}
