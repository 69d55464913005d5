package auth

import (
	"testing"

	"github.com/rideops/callcenter/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 15, "callcenter-console")
	token, exp, err := tm.GenerateToken("agent-1", domain.RealmCallCenter, "supervisor")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if exp.IsZero() {
		t.Fatal("expected expiry")
	}
	claims, err := tm.ParseToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "agent-1" || claims.Realm != domain.RealmCallCenter || claims.Role != "supervisor" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestParseTokenRejects(t *testing.T) {
	tm := NewTokenManager("secret", 15, "callcenter-console")
	other := NewTokenManager("other-secret", 15, "callcenter-console")
	foreign := NewTokenManager("secret", 15, "someone-else")

	signedElsewhere, _, _ := other.GenerateToken("agent-1", domain.RealmCallCenter, "agent")
	wrongIssuer, _, _ := foreign.GenerateToken("agent-1", domain.RealmCallCenter, "agent")
	noRealm, _, _ := tm.GenerateToken("agent-1", domain.Realm("unknown"), "agent")

	cases := map[string]string{
		"garbage":      "not-a-token",
		"wrong secret": signedElsewhere,
		"wrong issuer": wrongIssuer,
		"bad realm":    noRealm,
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := tm.ParseToken(token); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
