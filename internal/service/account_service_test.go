package service

import (
	"context"
	"testing"

	"github.com/rideops/callcenter/internal/config"
	"github.com/rideops/callcenter/internal/domain"
	apperrors "github.com/rideops/callcenter/pkg/util/errorutil"
)

func TestCreateAgentFollowsRank(t *testing.T) {
	h := newHarness(t, config.EscalationConfig{})
	ctx := context.Background()
	a := h.agent(t, "alice", domain.CallCenterRoleAgent)
	s := h.agent(t, "sam", domain.CallCenterRoleSupervisor)
	d := h.agent(t, "dana", domain.CallCenterRoleAdmin)

	cases := []struct {
		name    string
		session domain.Session
		role    domain.CallCenterRole
		wantErr error
	}{
		{name: "agent creates agent", session: a, role: domain.CallCenterRoleAgent, wantErr: apperrors.ErrForbidden},
		{name: "supervisor creates agent", session: s, role: domain.CallCenterRoleAgent},
		{name: "supervisor creates supervisor", session: s, role: domain.CallCenterRoleSupervisor, wantErr: apperrors.ErrForbidden},
		{name: "admin creates admin", session: d, role: domain.CallCenterRoleAdmin},
		{name: "unknown role", session: d, role: "owner", wantErr: apperrors.ErrValidation},
	}
	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			email := string(rune('k'+i)) + "@rideops.test"
			agent, err := h.accounts.CreateAgent(ctx, tc.session, AgentCreateInput{Email: email, Name: "New", Role: tc.role})
			if tc.wantErr != nil {
				expectErr(t, err, tc.wantErr)
				return
			}
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			if !agent.IsActive || agent.CreatedBy == nil || *agent.CreatedBy != tc.session.ActorID {
				t.Fatalf("unexpected agent: %+v", agent)
			}
		})
	}

	_, err := h.accounts.CreateAgent(ctx, d, AgentCreateInput{Email: "ALICE@rideops.test", Name: "Dup", Role: domain.CallCenterRoleAgent})
	expectErr(t, err, apperrors.ErrConflict)
	_, err = h.accounts.CreateAgent(ctx, d, AgentCreateInput{Email: "not-an-email", Name: "X", Role: domain.CallCenterRoleAgent})
	expectErr(t, err, apperrors.ErrValidation)
}

func TestTopRoleCannotLockItselfOut(t *testing.T) {
	h := newHarness(t, config.EscalationConfig{})
	ctx := context.Background()
	d := h.agent(t, "dana", domain.CallCenterRoleAdmin)

	_, err := h.accounts.UpdateAgent(ctx, d, d.ActorID, AgentUpdateInput{IsActive: ptr(false)})
	expectErr(t, err, apperrors.ErrForbidden)
	_, err = h.accounts.UpdateAgent(ctx, d, d.ActorID, AgentUpdateInput{Role: ptr(domain.CallCenterRoleSupervisor)})
	expectErr(t, err, apperrors.ErrForbidden)

	renamed, err := h.accounts.UpdateAgent(ctx, d, d.ActorID, AgentUpdateInput{Name: ptr("Dana K")})
	if err != nil {
		t.Fatalf("rename self: %v", err)
	}
	if renamed.Name != "Dana K" || !renamed.IsActive {
		t.Fatalf("unexpected account: %+v", renamed)
	}

	root := h.profile(t, "rita", domain.DashboardRoleRootAdmin)
	_, err = h.accounts.UpdateAdminProfile(ctx, root, root.ActorID, AdminProfileUpdateInput{IsActive: ptr(false)})
	expectErr(t, err, apperrors.ErrForbidden)
}

func TestSupervisorManagesLowerRanksOnly(t *testing.T) {
	h := newHarness(t, config.EscalationConfig{})
	ctx := context.Background()
	a := h.agent(t, "alice", domain.CallCenterRoleAgent)
	s := h.agent(t, "sam", domain.CallCenterRoleSupervisor)
	peer := h.agent(t, "sue", domain.CallCenterRoleSupervisor)

	deactivated, err := h.accounts.UpdateAgent(ctx, s, a.ActorID, AgentUpdateInput{IsActive: ptr(false)})
	if err != nil {
		t.Fatalf("deactivate agent: %v", err)
	}
	if deactivated.IsActive {
		t.Fatal("expected agent to be inactive")
	}

	_, err = h.accounts.UpdateAgent(ctx, s, a.ActorID, AgentUpdateInput{Role: ptr(domain.CallCenterRoleSupervisor)})
	expectErr(t, err, apperrors.ErrForbidden)
	_, err = h.accounts.UpdateAgent(ctx, s, peer.ActorID, AgentUpdateInput{IsActive: ptr(false)})
	expectErr(t, err, apperrors.ErrForbidden)
	_, err = h.accounts.UpdateAgent(ctx, s, peer.ActorID, AgentUpdateInput{Name: ptr("Renamed")})
	expectErr(t, err, apperrors.ErrForbidden)
}

func TestRealmsStaySeparate(t *testing.T) {
	h := newHarness(t, config.EscalationConfig{})
	ctx := context.Background()
	d := h.agent(t, "dana", domain.CallCenterRoleAdmin)
	root := h.profile(t, "rita", domain.DashboardRoleRootAdmin)
	staff := h.profile(t, "omar", domain.DashboardRoleOperationsStaff)

	_, err := h.accounts.CreateAdminProfile(ctx, d, AdminProfileCreateInput{Email: "x@rideops.test", Name: "X", Role: domain.DashboardRoleOperationsStaff})
	expectErr(t, err, apperrors.ErrForbidden)
	_, err = h.accounts.CreateAgent(ctx, root, AgentCreateInput{Email: "y@rideops.test", Name: "Y", Role: domain.CallCenterRoleAgent})
	expectErr(t, err, apperrors.ErrForbidden)

	profile, err := h.accounts.CreateAdminProfile(ctx, root, AdminProfileCreateInput{Email: "z@rideops.test", Name: "Z", Role: domain.DashboardRoleSupervisor})
	if err != nil {
		t.Fatalf("root creates supervisor: %v", err)
	}
	if profile.Role != domain.DashboardRoleSupervisor {
		t.Fatalf("role = %s", profile.Role)
	}
	_, err = h.accounts.ListAdminProfiles(ctx, staff, 10, 0)
	expectErr(t, err, apperrors.ErrForbidden)
	profiles, err := h.accounts.ListAdminProfiles(ctx, root, 10, 0)
	if err != nil || len(profiles) != 3 {
		t.Fatalf("list profiles: n=%d err=%v", len(profiles), err)
	}
}

func TestListActivityRequiresSupervisor(t *testing.T) {
	h := newHarness(t, config.EscalationConfig{})
	ctx := context.Background()
	a := h.agent(t, "alice", domain.CallCenterRoleAgent)
	s := h.agent(t, "sam", domain.CallCenterRoleSupervisor)
	h.ticket(t, a, "Dirty car", domain.TicketPriorityLow)

	_, err := h.accounts.ListActivity(ctx, a, ActivityListFilters{})
	expectErr(t, err, apperrors.ErrForbidden)

	for _, role := range []domain.DashboardRole{domain.DashboardRoleSupervisor, domain.DashboardRoleRootAdmin} {
		_, err = h.accounts.ListActivity(ctx, h.profile(t, "ops-"+string(role), role), ActivityListFilters{})
		expectErr(t, err, apperrors.ErrForbidden)
	}

	entries, err := h.accounts.ListActivity(ctx, s, ActivityListFilters{})
	if err != nil {
		t.Fatalf("list activity: %v", err)
	}
	if len(entries) != 1 || entries[0].ActivityType != domain.ActivityTicketCreated {
		t.Fatalf("unexpected activity: %+v", entries)
	}
	if _, ok := entries[0].Details["timestamp"]; !ok {
		t.Fatal("expected timestamp detail")
	}
}

func TestBootstrapTopAccount(t *testing.T) {
	h := newHarness(t, config.EscalationConfig{})
	ctx := context.Background()

	id, err := h.accounts.BootstrapTopAccount(ctx, domain.RealmCallCenter, "Root@RideOps.test", "Root")
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	agent, err := h.store.Agents().GetByID(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if agent.Role != domain.CallCenterRoleAdmin || agent.Email != "root@rideops.test" {
		t.Fatalf("unexpected bootstrap account: %+v", agent)
	}
	_, err = h.accounts.BootstrapTopAccount(ctx, domain.RealmCallCenter, "other@rideops.test", "Other")
	expectErr(t, err, apperrors.ErrConflict)

	if _, err := h.accounts.BootstrapTopAccount(ctx, domain.RealmDashboard, "root@rideops.test", "Root"); err != nil {
		t.Fatalf("dashboard bootstrap: %v", err)
	}
}
