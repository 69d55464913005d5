package domain

// Realm separates the two account populations. Their role sets are never
// compared with each other.
type Realm string

const (
	RealmCallCenter Realm = "call_center"
	RealmDashboard  Realm = "dashboard"
)

// Valid reports whether r is a known realm.
func (r Realm) Valid() bool {
	return r == RealmCallCenter || r == RealmDashboard
}

// CallCenterRole is the role of a console agent account.
type CallCenterRole string

const (
	CallCenterRoleAgent      CallCenterRole = "agent"
	CallCenterRoleSupervisor CallCenterRole = "supervisor"
	CallCenterRoleAdmin      CallCenterRole = "admin"
)

// Rank orders roles from least to most privileged. Unknown roles rank 0.
func (r CallCenterRole) Rank() int {
	switch r {
	case CallCenterRoleAgent:
		return BottomRank
	case CallCenterRoleSupervisor:
		return SupervisorRank
	case CallCenterRoleAdmin:
		return TopRank
	}
	return 0
}

// Valid reports whether r is a known role.
func (r CallCenterRole) Valid() bool { return r.Rank() > 0 }

// AtLeast reports whether r is as privileged as min.
func (r CallCenterRole) AtLeast(min CallCenterRole) bool {
	return r.Valid() && r.Rank() >= min.Rank()
}

// DashboardRole is the role of an operations dashboard account.
type DashboardRole string

const (
	DashboardRoleOperationsStaff DashboardRole = "operations_staff"
	DashboardRoleSupervisor      DashboardRole = "supervisor"
	DashboardRoleRootAdmin       DashboardRole = "root_admin"
)

// Rank orders roles from least to most privileged. Unknown roles rank 0.
func (r DashboardRole) Rank() int {
	switch r {
	case DashboardRoleOperationsStaff:
		return BottomRank
	case DashboardRoleSupervisor:
		return SupervisorRank
	case DashboardRoleRootAdmin:
		return TopRank
	}
	return 0
}

// Valid reports whether r is a known role.
func (r DashboardRole) Valid() bool { return r.Rank() > 0 }

// AtLeast reports whether r is as privileged as min.
func (r DashboardRole) AtLeast(min DashboardRole) bool {
	return r.Valid() && r.Rank() >= min.Rank()
}

// Ranks shared by both realms. Both ladders have exactly three rungs, so
// ranks compare within a realm only.
const (
	BottomRank     = 1
	SupervisorRank = 2
	TopRank        = 3
)
