package domain

// Session identifies the caller of a workflow operation. It is built once per
// request from a verified token and passed explicitly to every service call.
type Session struct {
	ActorID        string
	Realm          Realm
	CallCenterRole CallCenterRole
	DashboardRole  DashboardRole
}

// CallCenterSession builds a session for a console agent.
func CallCenterSession(actorID string, role CallCenterRole) Session {
	return Session{ActorID: actorID, Realm: RealmCallCenter, CallCenterRole: role}
}

// DashboardSession builds a session for a dashboard account.
func DashboardSession(actorID string, role DashboardRole) Session {
	return Session{ActorID: actorID, Realm: RealmDashboard, DashboardRole: role}
}

// Rank returns the caller's rank within its own realm.
func (s Session) Rank() int {
	switch s.Realm {
	case RealmCallCenter:
		return s.CallCenterRole.Rank()
	case RealmDashboard:
		return s.DashboardRole.Rank()
	}
	return 0
}

// RoleName returns the caller's role as a string.
func (s Session) RoleName() string {
	if s.Realm == RealmDashboard {
		return string(s.DashboardRole)
	}
	return string(s.CallCenterRole)
}

// IsZero reports whether the session is unauthenticated.
func (s Session) IsZero() bool {
	return s.ActorID == "" || !s.Realm.Valid()
}
