package dto

import "github.com/rideops/callcenter/internal/domain"

// SessionResponse describes the authenticated caller.
type SessionResponse struct {
	AccountID string       `json:"account_id"`
	Realm     domain.Realm `json:"realm"`
	Role      string       `json:"role"`
	Rank      int          `json:"rank"`
}

// NewSessionResponse projects a session.
func NewSessionResponse(s domain.Session) SessionResponse {
	return SessionResponse{AccountID: s.ActorID, Realm: s.Realm, Role: s.RoleName(), Rank: s.Rank()}
}
