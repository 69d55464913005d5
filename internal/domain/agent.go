package domain

import "time"

// Agent is a call-center console account.
type Agent struct {
	ID        string
	Email     string
	Name      string
	Role      CallCenterRole
	IsActive  bool
	CreatedBy *string
	LastLogin *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}
