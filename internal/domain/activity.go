package domain

import "time"

// ActivityType names an audit entry.
type ActivityType string

const (
	ActivityTicketCreated        ActivityType = "ticket_created"
	ActivityTicketAssigned       ActivityType = "ticket_assigned"
	ActivityTicketResponded      ActivityType = "ticket_responded"
	ActivityInternalNote         ActivityType = "internal_note"
	ActivityTicketResolved       ActivityType = "ticket_resolved"
	ActivityTicketClosed         ActivityType = "ticket_closed"
	ActivityTicketStatusChanged  ActivityType = "ticket_status_changed"
	ActivityEscalation           ActivityType = "escalation"
	ActivityEscalationAcked      ActivityType = "escalation_acknowledged"
	ActivityEscalationResolved   ActivityType = "escalation_resolved"
	ActivityEscalationCodeFailed ActivityType = "escalation_code_failed"
	ActivityAccountCreated       ActivityType = "account_created"
	ActivityAccountUpdated       ActivityType = "account_updated"
	ActivityCallStart            ActivityType = "call_start"
)

// ActivityLog is an immutable audit trail entry. It is never read back to
// drive workflow decisions.
type ActivityLog struct {
	ID           string
	AgentID      string
	ActivityType ActivityType
	Details      map[string]any
	CreatedAt    time.Time
}
