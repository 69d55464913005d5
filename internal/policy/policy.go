// Package policy decides which caller may perform which workflow action.
//
// Rules are evaluated in a fixed order and the first rule that applies to the
// action decides. Workflow services call Authorize before every mutation; HTTP
// route guards are only an additional layer.
package policy

import (
	"github.com/rideops/callcenter/internal/domain"
	apperrors "github.com/rideops/callcenter/pkg/util/errorutil"
)

// Action identifies a guarded operation.
type Action string

const (
	ActionEscalate          Action = "escalate"
	ActionAcknowledge       Action = "acknowledge_escalation"
	ActionResolveEscalation Action = "resolve_escalation"
	ActionCreateAccount     Action = "create_account"
	ActionSetAccountActive  Action = "set_account_active"
	ActionChangeAccountRole Action = "change_account_role"
	ActionUpdateAccount     Action = "update_account"
	ActionListAccounts      Action = "list_accounts"
	ActionRespond           Action = "respond"
	ActionResolveTicket     Action = "resolve_ticket"
	ActionCloseTicket       Action = "close_ticket"
	ActionAssign            Action = "assign"
	ActionViewActivity      Action = "view_activity"
	ActionExport            Action = "export"
	// ActionReadSharedView covers console views any call-center role works from.
	ActionReadSharedView Action = "read_shared_view"
	// ActionReadTeamView covers views spanning every agent's tickets.
	ActionReadTeamView Action = "read_team_view"
	// Support desk actions taken by dashboard staff.
	ActionDeskRead      Action = "desk_read"
	ActionDeskRespond   Action = "desk_respond"
	ActionDeskSetStatus Action = "desk_set_status"
	ActionAcceptCall    Action = "accept_call"
)

// Request describes the target of an action. Only the fields relevant to the
// action need to be set.
type Request struct {
	Action Action

	// Ticket actions.
	Ticket *domain.Ticket
	// AssigneeID is the agent a ticket is being assigned to.
	AssigneeID string

	// Account management actions. Ranks are within the caller's realm.
	TargetID     string
	TargetRank   int
	NewRank      int
	Deactivating bool
	IsSelf       bool
}

type rule struct {
	name    string
	applies func(domain.Session, Request) bool
	decide  func(domain.Session, Request) error
}

var rules = []rule{
	{
		name:    "escalation actions require supervisor",
		applies: func(_ domain.Session, r Request) bool { return isEscalationAction(r.Action) },
		decide: func(s domain.Session, r Request) error {
			if s.Realm != domain.RealmCallCenter || !s.CallCenterRole.AtLeast(domain.CallCenterRoleSupervisor) {
				return apperrors.NewForbidden("supervisor role required for escalations")
			}
			return nil
		},
	},
	{
		name:    "account management follows rank",
		applies: func(_ domain.Session, r Request) bool { return isAccountAction(r.Action) },
		decide:  decideAccountAction,
	},
	{
		name:    "ticket work requires assignee or supervisor",
		applies: func(_ domain.Session, r Request) bool { return isTicketWorkAction(r.Action) },
		decide: func(s domain.Session, r Request) error {
			if s.Realm != domain.RealmCallCenter || !s.CallCenterRole.Valid() {
				return apperrors.NewForbidden("call-center role required")
			}
			if s.CallCenterRole.AtLeast(domain.CallCenterRoleSupervisor) {
				return nil
			}
			if r.Ticket != nil && r.Ticket.IsAssignedTo(s.ActorID) {
				return nil
			}
			ticketID := ""
			if r.Ticket != nil {
				ticketID = r.Ticket.ID
			}
			return apperrors.NewNotAssignedAgent(ticketID)
		},
	},
	{
		name:    "agents may only assign themselves",
		applies: func(_ domain.Session, r Request) bool { return r.Action == ActionAssign },
		decide: func(s domain.Session, r Request) error {
			if s.Realm != domain.RealmCallCenter || !s.CallCenterRole.Valid() {
				return apperrors.NewForbidden("call-center role required")
			}
			if s.CallCenterRole == domain.CallCenterRoleAgent && r.AssigneeID != s.ActorID {
				return apperrors.NewForbidden("agents may only assign tickets to themselves")
			}
			return nil
		},
	},
	{
		name:    "support desk is for dashboard staff",
		applies: func(_ domain.Session, r Request) bool { return isDeskAction(r.Action) },
		decide: func(s domain.Session, _ Request) error {
			if s.Realm != domain.RealmDashboard || !s.DashboardRole.Valid() {
				return apperrors.NewForbidden("dashboard role required")
			}
			return nil
		},
	},
	{
		name:    "any call-center role takes calls",
		applies: func(_ domain.Session, r Request) bool { return r.Action == ActionAcceptCall },
		decide: func(s domain.Session, _ Request) error {
			if s.Realm != domain.RealmCallCenter || !s.CallCenterRole.Valid() {
				return apperrors.NewForbidden("call-center role required")
			}
			return nil
		},
	},
	{
		name:    "console views are call-center only",
		applies: func(_ domain.Session, r Request) bool { return isViewAction(r.Action) },
		decide: func(s domain.Session, r Request) error {
			if s.Realm != domain.RealmCallCenter || !s.CallCenterRole.Valid() {
				return apperrors.NewForbidden("call-center role required")
			}
			if r.Action == ActionReadTeamView && !s.CallCenterRole.AtLeast(domain.CallCenterRoleSupervisor) {
				return apperrors.NewForbidden("supervisor role required for this view")
			}
			return nil
		},
	},
	{
		name:    "oversight requires supervisor",
		applies: func(_ domain.Session, r Request) bool { return isOversightAction(r.Action) },
		decide: func(s domain.Session, _ Request) error {
			if s.Rank() < domain.SupervisorRank {
				return apperrors.NewForbidden("supervisor role required")
			}
			return nil
		},
	},
}

// Authorize returns nil when the session may perform the request, otherwise a
// Forbidden or NotAssignedAgent domain error.
func Authorize(s domain.Session, r Request) error {
	if s.IsZero() {
		return apperrors.NewUnauthorized("session required")
	}
	for _, rl := range rules {
		if rl.applies(s, r) {
			return rl.decide(s, r)
		}
	}
	return apperrors.NewForbidden("action not permitted")
}

// CanManage reports whether an actor of actorRank may manage an account of
// targetRank within the same realm.
func CanManage(actorRank, targetRank int) bool {
	if actorRank == domain.TopRank {
		return true
	}
	if actorRank <= domain.BottomRank {
		return false
	}
	return targetRank < actorRank
}

func decideAccountAction(s domain.Session, r Request) error {
	actor := s.Rank()
	if actor == 0 {
		return apperrors.NewForbidden("unknown role")
	}
	if !CanManage(actor, r.TargetRank) {
		return apperrors.NewForbidden("insufficient role to manage this account")
	}
	if r.Action == ActionChangeAccountRole && !CanManage(actor, r.NewRank) {
		return apperrors.NewForbidden("insufficient role to grant this role")
	}
	if r.IsSelf && actor == domain.TopRank {
		if r.Action == ActionSetAccountActive && r.Deactivating {
			return apperrors.NewForbidden("cannot deactivate your own account")
		}
		if r.Action == ActionChangeAccountRole && r.NewRank < actor {
			return apperrors.NewForbidden("cannot demote your own account")
		}
	}
	return nil
}

func isEscalationAction(a Action) bool {
	return a == ActionEscalate || a == ActionAcknowledge || a == ActionResolveEscalation
}

func isAccountAction(a Action) bool {
	switch a {
	case ActionCreateAccount, ActionSetAccountActive, ActionChangeAccountRole, ActionUpdateAccount:
		return true
	}
	return false
}

func isOversightAction(a Action) bool {
	return a == ActionViewActivity || a == ActionExport || a == ActionListAccounts
}

func isDeskAction(a Action) bool {
	return a == ActionDeskRead || a == ActionDeskRespond || a == ActionDeskSetStatus
}

func isViewAction(a Action) bool {
	return a == ActionReadSharedView || a == ActionReadTeamView
}

func isTicketWorkAction(a Action) bool {
	return a == ActionRespond || a == ActionResolveTicket || a == ActionCloseTicket
}
