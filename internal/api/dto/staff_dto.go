package dto

import (
	"time"

	"github.com/rideops/callcenter/internal/domain"
)

// CreateAgentRequest payload.
type CreateAgentRequest struct {
	Email string                `json:"email"`
	Name  string                `json:"name"`
	Role  domain.CallCenterRole `json:"role"`
}

// UpdateAgentRequest payload. Omitted fields are unchanged.
type UpdateAgentRequest struct {
	Name     *string                `json:"name"`
	Role     *domain.CallCenterRole `json:"role"`
	IsActive *bool                  `json:"is_active"`
}

// AgentResponse describes a call-center account.
type AgentResponse struct {
	ID        string                `json:"id"`
	Email     string                `json:"email"`
	Name      string                `json:"name"`
	Role      domain.CallCenterRole `json:"role"`
	IsActive  bool                  `json:"is_active"`
	CreatedBy *string               `json:"created_by"`
	LastLogin *time.Time            `json:"last_login"`
	CreatedAt time.Time             `json:"created_at"`
}

// CreateAdminProfileRequest payload.
type CreateAdminProfileRequest struct {
	Email  string               `json:"email"`
	Name   string               `json:"name"`
	Role   domain.DashboardRole `json:"role"`
	UserID *string              `json:"user_id"`
}

// UpdateAdminProfileRequest payload. Omitted fields are unchanged.
type UpdateAdminProfileRequest struct {
	Name     *string               `json:"name"`
	Role     *domain.DashboardRole `json:"role"`
	IsActive *bool                 `json:"is_active"`
}

// AdminProfileResponse describes a dashboard account.
type AdminProfileResponse struct {
	ID        string               `json:"id"`
	UserID    *string              `json:"user_id"`
	Email     string               `json:"email"`
	Name      string               `json:"name"`
	Role      domain.DashboardRole `json:"role"`
	IsActive  bool                 `json:"is_active"`
	CreatedAt time.Time            `json:"created_at"`
}

// ActivityResponse is one audit entry.
type ActivityResponse struct {
	ID           string              `json:"id"`
	AgentID      string              `json:"agent_id"`
	ActivityType domain.ActivityType `json:"activity_type"`
	Details      map[string]any      `json:"details"`
	CreatedAt    time.Time           `json:"created_at"`
}

// NewAgentResponse projects an agent.
func NewAgentResponse(a *domain.Agent) AgentResponse {
	return AgentResponse{
		ID:        a.ID,
		Email:     a.Email,
		Name:      a.Name,
		Role:      a.Role,
		IsActive:  a.IsActive,
		CreatedBy: a.CreatedBy,
		LastLogin: a.LastLogin,
		CreatedAt: a.CreatedAt,
	}
}

// NewAdminProfileResponse projects an admin profile.
func NewAdminProfileResponse(p *domain.AdminProfile) AdminProfileResponse {
	return AdminProfileResponse{
		ID:        p.ID,
		UserID:    p.UserID,
		Email:     p.Email,
		Name:      p.Name,
		Role:      p.Role,
		IsActive:  p.IsActive,
		CreatedAt: p.CreatedAt,
	}
}

// NewActivityResponse projects an audit entry.
func NewActivityResponse(a *domain.ActivityLog) ActivityResponse {
	return ActivityResponse{
		ID:           a.ID,
		AgentID:      a.AgentID,
		ActivityType: a.ActivityType,
		Details:      a.Details,
		CreatedAt:    a.CreatedAt,
	}
}
