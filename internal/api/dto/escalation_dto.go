package dto

import (
	"time"

	"github.com/rideops/callcenter/internal/domain"
)

// CreateEscalationRequest payload.
type CreateEscalationRequest struct {
	Reason string `json:"reason"`
}

// AcknowledgeEscalationRequest payload.
type AcknowledgeEscalationRequest struct {
	Code string `json:"code"`
}

// EscalationResponse never includes the verification code.
type EscalationResponse struct {
	ID            string                  `json:"id"`
	TicketID      string                  `json:"ticket_id"`
	EscalatedBy   string                  `json:"escalated_by"`
	EscalatedTo   *string                 `json:"escalated_to"`
	Reason        string                  `json:"reason"`
	Status        domain.EscalationStatus `json:"status"`
	OTPVerifiedAt *time.Time              `json:"otp_verified_at"`
	CreatedAt     time.Time               `json:"created_at"`
}

// EscalationCreatedResponse carries the code once, to the escalating caller.
type EscalationCreatedResponse struct {
	Escalation EscalationResponse `json:"escalation"`
	Code       string             `json:"code"`
}

// NewEscalationResponse projects an escalation.
func NewEscalationResponse(e *domain.Escalation) EscalationResponse {
	return EscalationResponse{
		ID:            e.ID,
		TicketID:      e.TicketID,
		EscalatedBy:   e.EscalatedBy,
		EscalatedTo:   e.EscalatedTo,
		Reason:        e.Reason,
		Status:        e.Status,
		OTPVerifiedAt: e.OTPVerifiedAt,
		CreatedAt:     e.CreatedAt,
	}
}
