package domain

import "time"

// EscalationStatus enumerates the hand-off states.
type EscalationStatus string

const (
	EscalationStatusPending      EscalationStatus = "pending"
	EscalationStatusAcknowledged EscalationStatus = "acknowledged"
	EscalationStatusResolved     EscalationStatus = "resolved"
)

// Valid reports whether s is a known escalation status.
func (s EscalationStatus) Valid() bool {
	switch s {
	case EscalationStatusPending, EscalationStatusAcknowledged, EscalationStatusResolved:
		return true
	}
	return false
}

// Escalation is an urgent hand-off of a ticket to a senior role, gated by a
// six-digit code.
type Escalation struct {
	ID            string
	TicketID      string
	EscalatedBy   string
	EscalatedTo   *string
	Reason        string
	OTPCode       string
	Status        EscalationStatus
	OTPVerifiedAt *time.Time
	CreatedAt     time.Time
}
