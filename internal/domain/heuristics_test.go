package domain

import (
	"testing"
	"time"
)

func TestInferCategory(t *testing.T) {
	tests := []struct {
		subject string
		want    TicketCategory
	}{
		{"Driver was late and rude", TicketCategoryComplaint},
		{"Unable to cancel ride", TicketCategoryTechnical},
		{"Payment not processed", TicketCategoryBilling},
		{"Hello there", TicketCategoryGeneral},
		{"", TicketCategoryGeneral},
	}
	for _, tt := range tests {
		t.Run(tt.subject, func(t *testing.T) {
			if got := InferCategory(tt.subject); got != tt.want {
				t.Errorf("InferCategory(%q) = %q, want %q", tt.subject, got, tt.want)
			}
		})
	}
}

func TestSuggestPriority(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		message string
		want    TicketPriority
	}{
		{"accident is urgent", "Accident on highway", "", TicketPriorityUrgent},
		{"keyword in message", "Trip issue", "passenger felt unsafe", TicketPriorityHigh},
		{"feedback is low", "App feedback", "", TicketPriorityLow},
		{"default normal", "Receipt copy", "please resend", TicketPriorityNormal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SuggestPriority(tt.subject, tt.message); got != tt.want {
				t.Errorf("SuggestPriority = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTimeAgo(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		then time.Time
		want string
	}{
		{"just now", now, "0m ago"},
		{"minutes", now.Add(-59 * time.Minute), "59m ago"},
		{"one hour", now.Add(-60 * time.Minute), "1h ago"},
		{"hours", now.Add(-23*time.Hour - 59*time.Minute), "23h ago"},
		{"one day", now.Add(-24 * time.Hour), "1d ago"},
		{"days", now.Add(-72 * time.Hour), "3d ago"},
		{"future clamps", now.Add(5 * time.Minute), "0m ago"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TimeAgo(tt.then, now); got != tt.want {
				t.Errorf("TimeAgo = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTicketStatusTransitions(t *testing.T) {
	all := []TicketStatus{TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed}
	for _, from := range all {
		for _, to := range all {
			got := from.CanTransition(to)
			if from.IsTerminal() && got {
				t.Errorf("terminal %s must not move to %s", from, to)
			}
			if to == TicketStatusOpen && got {
				t.Errorf("%s must not move back to open", from)
			}
			if from == to && got {
				t.Errorf("%s must not transition to itself", from)
			}
		}
	}
	if !TicketStatusOpen.CanTransition(TicketStatusResolved) {
		t.Error("open tickets may be resolved directly")
	}
	if !TicketStatusInProgress.CanTransition(TicketStatusClosed) {
		t.Error("in-progress tickets may be closed")
	}
}

func TestRoleRanks(t *testing.T) {
	if !CallCenterRoleAdmin.AtLeast(CallCenterRoleSupervisor) {
		t.Error("admin should outrank supervisor")
	}
	if CallCenterRoleAgent.AtLeast(CallCenterRoleSupervisor) {
		t.Error("agent should not reach supervisor")
	}
	if CallCenterRole("root_admin").Valid() {
		t.Error("dashboard role name must not be a call-center role")
	}
	if !DashboardRoleRootAdmin.AtLeast(DashboardRoleSupervisor) {
		t.Error("root_admin should outrank supervisor")
	}
	if DashboardRole("admin").Valid() {
		t.Error("call-center role name must not be a dashboard role")
	}
	pairs := []struct {
		callCenter CallCenterRole
		dashboard  DashboardRole
		rank       int
	}{
		{CallCenterRoleAgent, DashboardRoleOperationsStaff, BottomRank},
		{CallCenterRoleSupervisor, DashboardRoleSupervisor, SupervisorRank},
		{CallCenterRoleAdmin, DashboardRoleRootAdmin, TopRank},
	}
	for _, p := range pairs {
		if p.callCenter.Rank() != p.rank || p.dashboard.Rank() != p.rank {
			t.Errorf("%s/%s: ranks %d/%d, want %d", p.callCenter, p.dashboard, p.callCenter.Rank(), p.dashboard.Rank(), p.rank)
		}
	}
}

func TestWaitDuration(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		started time.Time
		want    string
	}{
		{"just arrived", now, "0m"},
		{"minutes", now.Add(-7 * time.Minute), "7m"},
		{"over an hour", now.Add(-65 * time.Minute), "1h 5m"},
		{"future clamps", now.Add(time.Minute), "0m"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WaitDuration(tt.started, now); got != tt.want {
				t.Errorf("WaitDuration = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestChannelWaitPriority(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		waited time.Duration
		want   TicketPriority
	}{
		{"fresh", time.Minute, TicketPriorityNormal},
		{"five minutes is still normal", 5 * time.Minute, TicketPriorityNormal},
		{"over five minutes", 6 * time.Minute, TicketPriorityHigh},
		{"ten minutes is still high", 10 * time.Minute, TicketPriorityHigh},
		{"over ten minutes", 11 * time.Minute, TicketPriorityUrgent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Channel{Status: ChannelStatusActive, StartedAt: now.Add(-tt.waited)}
			if got := c.WaitPriority(now); got != tt.want {
				t.Errorf("WaitPriority = %s, want %s", got, tt.want)
			}
		})
	}

	passenger, driver, empty := "+15550001", "+15550002", ""
	phones := []struct {
		name string
		c    Channel
		want string
	}{
		{"passenger first", Channel{PassengerPhoneRef: &passenger, DriverPhoneRef: &driver}, passenger},
		{"driver fallback", Channel{PassengerPhoneRef: &empty, DriverPhoneRef: &driver}, driver},
		{"unknown", Channel{}, "N/A"},
	}
	for _, tt := range phones {
		if got := tt.c.CallerPhone(); got != tt.want {
			t.Errorf("%s: CallerPhone = %q, want %q", tt.name, got, tt.want)
		}
	}
}
