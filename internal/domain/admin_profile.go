package domain

import "time"

// AdminProfile is an operations dashboard account.
type AdminProfile struct {
	ID        string
	UserID    *string
	Email     string
	Name      string
	Role      DashboardRole
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
