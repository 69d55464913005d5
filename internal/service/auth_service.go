package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rideops/callcenter/internal/auth"
	"github.com/rideops/callcenter/internal/config"
	"github.com/rideops/callcenter/internal/domain"
	"github.com/rideops/callcenter/internal/repository"
)

// IssuedToken is a signed session token for one account.
type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
	Session   domain.Session
}

// AuthService issues session tokens for stored accounts. Credential checks
// belong to the identity provider in front of the console.
type AuthService struct {
	accounts auth.Accounts
	agents   repository.AgentRepository
	tokenMgr *auth.TokenManager
	logger   *zap.Logger
	now      func() time.Time
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	AgentRepo        repository.AgentRepository
	AdminProfileRepo repository.AdminProfileRepository
	Logger           *zap.Logger
	Clock            func() time.Time
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &AuthService{
		accounts: auth.Accounts{Agents: deps.AgentRepo, Profiles: deps.AdminProfileRepo},
		agents:   deps.AgentRepo,
		tokenMgr: auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes, cfg.Auth.Issuer),
		logger:   logger,
		now:      clock,
	}
}

// TokenManager exposes the signer shared with the HTTP middleware.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// Accounts exposes the session resolver shared with the HTTP middleware.
func (s *AuthService) Accounts() auth.Accounts {
	return s.accounts
}

// IssueToken signs a token for an active account of realm.
func (s *AuthService) IssueToken(ctx context.Context, realm domain.Realm, accountID string) (*IssuedToken, error) {
	session, err := s.accounts.Session(ctx, realm, accountID)
	if err != nil {
		return nil, err
	}
	token, exp, err := s.tokenMgr.GenerateToken(session.ActorID, session.Realm, session.RoleName())
	if err != nil {
		return nil, err
	}
	if realm == domain.RealmCallCenter {
		if err := s.agents.TouchLastLogin(ctx, accountID, s.now()); err != nil {
			s.logger.Warn("update last login failed", zap.String("agent_id", accountID), zap.Error(err))
		}
	}
	return &IssuedToken{Token: token, ExpiresAt: exp, Session: session}, nil
}
