package domain

import "time"

// ChannelType is the medium a customer contact arrives on.
type ChannelType string

const (
	ChannelTypePhone ChannelType = "phone"
	ChannelTypeChat  ChannelType = "chat"
	ChannelTypeSMS   ChannelType = "sms"
)

// Valid reports whether t is a known channel type.
func (t ChannelType) Valid() bool {
	switch t {
	case ChannelTypePhone, ChannelTypeChat, ChannelTypeSMS:
		return true
	}
	return false
}

// ChannelStatus tracks whether a contact is still live.
type ChannelStatus string

const (
	ChannelStatusActive ChannelStatus = "active"
	ChannelStatusEnded  ChannelStatus = "ended"
)

// Channel is an inbound customer contact waiting for, or held by, an agent.
type Channel struct {
	ID                string
	Type              ChannelType
	Status            ChannelStatus
	AgentID           *string
	RideID            *string
	DriverPhoneRef    *string
	PassengerPhoneRef *string
	ExternalID        *string
	StartedAt         time.Time
	EndedAt           *time.Time
}

// IsQueued reports whether the contact is live and nobody has taken it.
func (c *Channel) IsQueued() bool {
	return c.Status == ChannelStatusActive && c.AgentID == nil
}

// Wait thresholds for queued contacts.
const (
	channelHighAfter   = 5 * time.Minute
	channelUrgentAfter = 10 * time.Minute
)

// WaitPriority ranks a queued contact by how long the caller has waited.
func (c *Channel) WaitPriority(now time.Time) TicketPriority {
	waited := now.Sub(c.StartedAt)
	switch {
	case waited > channelUrgentAfter:
		return TicketPriorityUrgent
	case waited > channelHighAfter:
		return TicketPriorityHigh
	}
	return TicketPriorityNormal
}

// CallerPhone is the best known number for the caller, or "N/A".
func (c *Channel) CallerPhone() string {
	if c.PassengerPhoneRef != nil && *c.PassengerPhoneRef != "" {
		return *c.PassengerPhoneRef
	}
	if c.DriverPhoneRef != nil && *c.DriverPhoneRef != "" {
		return *c.DriverPhoneRef
	}
	return "N/A"
}
