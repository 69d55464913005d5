package dto

import (
	"time"

	"github.com/rideops/callcenter/internal/domain"
)

// OpenChannelRequest payload.
type OpenChannelRequest struct {
	Type              domain.ChannelType `json:"type"`
	RideID            *string            `json:"ride_id"`
	DriverPhoneRef    *string            `json:"driver_phone_ref"`
	PassengerPhoneRef *string            `json:"passenger_phone_ref"`
	ExternalID        *string            `json:"external_id"`
}

// ChannelResponse describes a contact held by an agent.
type ChannelResponse struct {
	ID          string               `json:"id"`
	Type        domain.ChannelType   `json:"type"`
	Status      domain.ChannelStatus `json:"status"`
	AgentID     *string              `json:"agent_id,omitempty"`
	RideID      *string              `json:"ride_id,omitempty"`
	CallerPhone string               `json:"caller_phone"`
	StartedAt   time.Time            `json:"started_at"`
}

// NewChannelResponse maps a domain channel.
func NewChannelResponse(c *domain.Channel) ChannelResponse {
	return ChannelResponse{
		ID:          c.ID,
		Type:        c.Type,
		Status:      c.Status,
		AgentID:     c.AgentID,
		RideID:      c.RideID,
		CallerPhone: c.CallerPhone(),
		StartedAt:   c.StartedAt,
	}
}
