package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rideops/callcenter/internal/domain"
	"github.com/rideops/callcenter/internal/events"
	"github.com/rideops/callcenter/internal/policy"
	"github.com/rideops/callcenter/internal/repository"
	apperrors "github.com/rideops/callcenter/pkg/util/errorutil"
)

// AccountService manages call-center agents and dashboard admin profiles.
type AccountService struct {
	agents   repository.AgentRepository
	profiles repository.AdminProfileRepository
	workflow
}

// AccountDependencies encapsulates repositories required for account management.
type AccountDependencies struct {
	AgentRepo        repository.AgentRepository
	AdminProfileRepo repository.AdminProfileRepository
	ActivityRepo     repository.ActivityRepository
	Dispatcher       events.Dispatcher
	Logger           *zap.Logger
	Clock            func() time.Time
}

// AgentCreateInput describes a new call-center account.
type AgentCreateInput struct {
	Email string
	Name  string
	Role  domain.CallCenterRole
}

// AgentUpdateInput lists the mutable agent fields. Nil fields are unchanged.
type AgentUpdateInput struct {
	Name     *string
	Role     *domain.CallCenterRole
	IsActive *bool
}

// AgentListFilters define listing parameters.
type AgentListFilters struct {
	Role   *domain.CallCenterRole
	Active *bool
	Limit  int
	Offset int
}

// AdminProfileCreateInput describes a new dashboard account.
type AdminProfileCreateInput struct {
	Email  string
	Name   string
	Role   domain.DashboardRole
	UserID *string
}

// AdminProfileUpdateInput lists the mutable profile fields.
type AdminProfileUpdateInput struct {
	Name     *string
	Role     *domain.DashboardRole
	IsActive *bool
}

// ActivityListFilters narrows the activity feed.
type ActivityListFilters struct {
	AgentID *string
	Types   []domain.ActivityType
	Limit   int
}

// NewAccountService constructs the service.
func NewAccountService(deps AccountDependencies) *AccountService {
	return &AccountService{
		agents:   deps.AgentRepo,
		profiles: deps.AdminProfileRepo,
		workflow: newWorkflow(deps.ActivityRepo, deps.Dispatcher, deps.Logger, deps.Clock),
	}
}

// CreateAgent adds a call-center account at a role the caller may manage.
func (s *AccountService) CreateAgent(ctx context.Context, session domain.Session, input AgentCreateInput) (*domain.Agent, error) {
	if err := requireRealm(session, domain.RealmCallCenter); err != nil {
		return nil, err
	}
	email, name, err := normalizeIdentity(input.Email, input.Name)
	if err != nil {
		return nil, err
	}
	if !input.Role.Valid() {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": input.Role})
	}
	if err := policy.Authorize(session, policy.Request{Action: policy.ActionCreateAccount, TargetRank: input.Role.Rank()}); err != nil {
		return nil, err
	}

	agent := &domain.Agent{
		Email:     email,
		Name:      name,
		Role:      input.Role,
		IsActive:  true,
		CreatedBy: ptr(session.ActorID),
	}
	if err := s.agents.Create(ctx, agent); err != nil {
		return nil, duplicateEmail(err, email)
	}
	s.accountChanged(ctx, session, agent.ID, domain.RealmCallCenter, "created", domain.ActivityAccountCreated)
	return agent, nil
}

// UpdateAgent changes name, role or active flag of an agent.
func (s *AccountService) UpdateAgent(ctx context.Context, session domain.Session, agentID string, input AgentUpdateInput) (*domain.Agent, error) {
	if err := requireRealm(session, domain.RealmCallCenter); err != nil {
		return nil, err
	}
	agent, err := s.agents.GetByID(ctx, agentID)
	if err != nil {
		return nil, lookupError(err, "agent", agentID)
	}
	if input.Role != nil && !input.Role.Valid() {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": *input.Role})
	}
	change := accountChange{
		targetRank: agent.Role.Rank(),
		isSelf:     agent.ID == session.ActorID,
		renaming:   input.Name != nil,
	}
	if input.Role != nil && *input.Role != agent.Role {
		change.newRank = ptr(input.Role.Rank())
	}
	if input.IsActive != nil && *input.IsActive != agent.IsActive {
		change.active = input.IsActive
	}
	if err := authorizeAccountChange(session, change); err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewValidationError("name is required", map[string]any{"field": "name"})
		}
		agent.Name = name
	}
	if input.Role != nil {
		agent.Role = *input.Role
	}
	if input.IsActive != nil {
		agent.IsActive = *input.IsActive
	}
	if err := s.agents.Update(ctx, agent); err != nil {
		return nil, lookupError(err, "agent", agentID)
	}
	s.accountChanged(ctx, session, agent.ID, domain.RealmCallCenter, change.describe(), domain.ActivityAccountUpdated)
	return agent, nil
}

// ListAgents returns call-center accounts to supervisors and admins.
func (s *AccountService) ListAgents(ctx context.Context, session domain.Session, filters AgentListFilters) ([]domain.Agent, error) {
	if err := requireRealm(session, domain.RealmCallCenter); err != nil {
		return nil, err
	}
	if err := policy.Authorize(session, policy.Request{Action: policy.ActionListAccounts}); err != nil {
		return nil, err
	}
	agents, err := s.agents.List(ctx, repository.AgentFilter{
		Role:   filters.Role,
		Active: filters.Active,
		Limit:  filters.Limit,
		Offset: filters.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return agents, nil
}

// CreateAdminProfile adds a dashboard account at a role the caller may manage.
func (s *AccountService) CreateAdminProfile(ctx context.Context, session domain.Session, input AdminProfileCreateInput) (*domain.AdminProfile, error) {
	if err := requireRealm(session, domain.RealmDashboard); err != nil {
		return nil, err
	}
	email, name, err := normalizeIdentity(input.Email, input.Name)
	if err != nil {
		return nil, err
	}
	if !input.Role.Valid() {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": input.Role})
	}
	if err := policy.Authorize(session, policy.Request{Action: policy.ActionCreateAccount, TargetRank: input.Role.Rank()}); err != nil {
		return nil, err
	}

	profile := &domain.AdminProfile{
		UserID:   input.UserID,
		Email:    email,
		Name:     name,
		Role:     input.Role,
		IsActive: true,
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		return nil, duplicateEmail(err, email)
	}
	s.accountChanged(ctx, session, profile.ID, domain.RealmDashboard, "created", domain.ActivityAccountCreated)
	return profile, nil
}

// UpdateAdminProfile changes name, role or active flag of a dashboard account.
func (s *AccountService) UpdateAdminProfile(ctx context.Context, session domain.Session, profileID string, input AdminProfileUpdateInput) (*domain.AdminProfile, error) {
	if err := requireRealm(session, domain.RealmDashboard); err != nil {
		return nil, err
	}
	profile, err := s.profiles.GetByID(ctx, profileID)
	if err != nil {
		return nil, lookupError(err, "admin_profile", profileID)
	}
	if input.Role != nil && !input.Role.Valid() {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": *input.Role})
	}
	change := accountChange{
		targetRank: profile.Role.Rank(),
		isSelf:     profile.ID == session.ActorID,
		renaming:   input.Name != nil,
	}
	if input.Role != nil && *input.Role != profile.Role {
		change.newRank = ptr(input.Role.Rank())
	}
	if input.IsActive != nil && *input.IsActive != profile.IsActive {
		change.active = input.IsActive
	}
	if err := authorizeAccountChange(session, change); err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewValidationError("name is required", map[string]any{"field": "name"})
		}
		profile.Name = name
	}
	if input.Role != nil {
		profile.Role = *input.Role
	}
	if input.IsActive != nil {
		profile.IsActive = *input.IsActive
	}
	if err := s.profiles.Update(ctx, profile); err != nil {
		return nil, lookupError(err, "admin_profile", profileID)
	}
	s.accountChanged(ctx, session, profile.ID, domain.RealmDashboard, change.describe(), domain.ActivityAccountUpdated)
	return profile, nil
}

// ListAdminProfiles returns dashboard accounts to dashboard supervisors and above.
func (s *AccountService) ListAdminProfiles(ctx context.Context, session domain.Session, limit, offset int) ([]domain.AdminProfile, error) {
	if err := requireRealm(session, domain.RealmDashboard); err != nil {
		return nil, err
	}
	if err := policy.Authorize(session, policy.Request{Action: policy.ActionListAccounts}); err != nil {
		return nil, err
	}
	profiles, err := s.profiles.List(ctx, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return profiles, nil
}

// ListActivity returns the newest call-center activity entries.
func (s *AccountService) ListActivity(ctx context.Context, session domain.Session, filters ActivityListFilters) ([]domain.ActivityLog, error) {
	if err := requireCallCenter(session); err != nil {
		return nil, err
	}
	if err := policy.Authorize(session, policy.Request{Action: policy.ActionViewActivity}); err != nil {
		return nil, err
	}
	entries, err := s.activity.List(ctx, repository.ActivityFilter{
		AgentID: filters.AgentID,
		Types:   filters.Types,
		Limit:   filters.Limit,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// BootstrapTopAccount creates the first top-role account of a realm. It is an
// operator action and refuses to run once the realm has any account.
func (s *AccountService) BootstrapTopAccount(ctx context.Context, realm domain.Realm, email, name string) (string, error) {
	email, name, err := normalizeIdentity(email, name)
	if err != nil {
		return "", err
	}
	switch realm {
	case domain.RealmCallCenter:
		existing, err := s.agents.List(ctx, repository.AgentFilter{Limit: 1})
		if err != nil {
			return "", apperrors.MapError(err)
		}
		if len(existing) > 0 {
			return "", apperrors.NewConflict("call-center accounts already exist", nil)
		}
		agent := &domain.Agent{Email: email, Name: name, Role: domain.CallCenterRoleAdmin, IsActive: true}
		if err := s.agents.Create(ctx, agent); err != nil {
			return "", duplicateEmail(err, email)
		}
		s.logger.Info("bootstrapped call-center admin", zap.String("agent_id", agent.ID))
		return agent.ID, nil
	case domain.RealmDashboard:
		existing, err := s.profiles.List(ctx, 1, 0)
		if err != nil {
			return "", apperrors.MapError(err)
		}
		if len(existing) > 0 {
			return "", apperrors.NewConflict("dashboard accounts already exist", nil)
		}
		profile := &domain.AdminProfile{Email: email, Name: name, Role: domain.DashboardRoleRootAdmin, IsActive: true}
		if err := s.profiles.Create(ctx, profile); err != nil {
			return "", duplicateEmail(err, email)
		}
		s.logger.Info("bootstrapped dashboard root admin", zap.String("admin_profile_id", profile.ID))
		return profile.ID, nil
	}
	return "", apperrors.NewValidationError("unknown realm", map[string]any{"realm": realm})
}

type accountChange struct {
	targetRank int
	newRank    *int
	active     *bool
	isSelf     bool
	renaming   bool
}

func (c accountChange) describe() string {
	parts := make([]string, 0, 3)
	if c.newRank != nil {
		parts = append(parts, "role")
	}
	if c.active != nil {
		if *c.active {
			parts = append(parts, "activated")
		} else {
			parts = append(parts, "deactivated")
		}
	}
	if c.renaming {
		parts = append(parts, "name")
	}
	if len(parts) == 0 {
		return "unchanged"
	}
	return strings.Join(parts, ",")
}

// authorizeAccountChange checks every requested change. Renaming one's own
// account needs no rank.
func authorizeAccountChange(session domain.Session, c accountChange) error {
	if c.newRank != nil {
		if err := policy.Authorize(session, policy.Request{
			Action:     policy.ActionChangeAccountRole,
			TargetRank: c.targetRank,
			NewRank:    *c.newRank,
			IsSelf:     c.isSelf,
		}); err != nil {
			return err
		}
	}
	if c.active != nil {
		if err := policy.Authorize(session, policy.Request{
			Action:       policy.ActionSetAccountActive,
			TargetRank:   c.targetRank,
			Deactivating: !*c.active,
			IsSelf:       c.isSelf,
		}); err != nil {
			return err
		}
	}
	if c.renaming && !c.isSelf {
		return policy.Authorize(session, policy.Request{Action: policy.ActionUpdateAccount, TargetRank: c.targetRank})
	}
	return nil
}

func (s *AccountService) accountChanged(ctx context.Context, session domain.Session, accountID string, realm domain.Realm, change string, activity domain.ActivityType) {
	s.recordActivity(ctx, session.ActorID, activity, map[string]any{
		"account_id": accountID,
		"realm":      string(realm),
		"change":     change,
	})
	s.publishEvent(ctx, events.Event{
		Type:    events.EventAccountChanged,
		Actor:   events.ActorFromSession(session),
		Payload: events.AccountChangedPayload{AccountID: accountID, Realm: realm, Change: change},
	})
}

func requireRealm(session domain.Session, realm domain.Realm) error {
	if session.IsZero() {
		return apperrors.NewUnauthorized("session required")
	}
	if session.Realm != realm {
		return apperrors.NewForbidden("accounts of another realm cannot be managed")
	}
	return nil
}

func normalizeIdentity(email, name string) (string, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return "", "", apperrors.NewValidationError("valid email is required", map[string]any{"field": "email"})
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", apperrors.NewValidationError("name is required", map[string]any{"field": "name"})
	}
	return email, name, nil
}

func duplicateEmail(err error, email string) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return apperrors.NewConflict("email already registered", map[string]any{"email": email})
	}
	return apperrors.MapError(err)
}
