package domain

import "time"

// SenderType indicates who authored a ticket response.
type SenderType string

const (
	SenderTypeAgent    SenderType = "agent"
	SenderTypeCustomer SenderType = "customer"
	SenderTypeSystem   SenderType = "system"
)

// TicketResponse is a message appended to a ticket thread.
type TicketResponse struct {
	ID         string
	TicketID   string
	SenderType SenderType
	SenderID   string
	Message    string
	IsInternal bool
	CreatedAt  time.Time
}
