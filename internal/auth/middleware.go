package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/rideops/callcenter/internal/domain"
	"github.com/rideops/callcenter/internal/repository"
	apperrors "github.com/rideops/callcenter/pkg/util/errorutil"
)

const sessionKey = "auth_session"

// Accounts resolves stored accounts of both realms into sessions.
type Accounts struct {
	Agents   repository.AgentRepository
	Profiles repository.AdminProfileRepository
}

// Session loads the account and builds a session from its current role.
// Missing or inactive accounts are rejected with Unauthorized.
func (a Accounts) Session(ctx context.Context, realm domain.Realm, accountID string) (domain.Session, error) {
	switch realm {
	case domain.RealmCallCenter:
		agent, err := a.Agents.GetByID(ctx, accountID)
		if err != nil {
			return domain.Session{}, accountError(err)
		}
		if !agent.IsActive {
			return domain.Session{}, apperrors.NewUnauthorized("account is inactive")
		}
		return domain.CallCenterSession(agent.ID, agent.Role), nil
	case domain.RealmDashboard:
		profile, err := a.Profiles.GetByID(ctx, accountID)
		if err != nil {
			return domain.Session{}, accountError(err)
		}
		if !profile.IsActive {
			return domain.Session{}, apperrors.NewUnauthorized("account is inactive")
		}
		return domain.DashboardSession(profile.ID, profile.Role), nil
	}
	return domain.Session{}, apperrors.NewUnauthorized("unknown realm")
}

func accountError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewUnauthorized("account not found")
	}
	return apperrors.MapError(err)
}

// AuthMiddleware validates bearer tokens and loads sessions.
type AuthMiddleware struct {
	tokens   *TokenManager
	accounts Accounts
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, accounts Accounts) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, accounts: accounts}
}

// Handle enforces authentication for protected routes. Websocket upgrades may
// pass the token as the access_token query parameter.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	token, err := bearerToken(c)
	if err != nil {
		return err
	}

	claims, err := m.tokens.ParseToken(token)
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	session, err := m.accounts.Session(c.UserContext(), claims.Realm, claims.Subject)
	if err != nil {
		return err
	}

	c.Locals(sessionKey, session)
	return c.Next()
}

func bearerToken(c *fiber.Ctx) (string, error) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		if token := c.Query("access_token"); token != "" {
			return token, nil
		}
		return "", apperrors.NewUnauthorized("missing authorization header")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", apperrors.NewUnauthorized("invalid authorization header")
	}
	return parts[1], nil
}

// SessionFromContext retrieves the authenticated session.
func SessionFromContext(c *fiber.Ctx) (domain.Session, bool) {
	session, ok := c.Locals(sessionKey).(domain.Session)
	return session, ok
}

// WithSession stores a session on the request, for handlers mounted behind
// another authenticator.
func WithSession(c *fiber.Ctx, session domain.Session) {
	c.Locals(sessionKey, session)
}
