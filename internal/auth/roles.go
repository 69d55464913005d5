package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rideops/callcenter/internal/domain"
	apperrors "github.com/rideops/callcenter/pkg/util/errorutil"
)

// RequireRealm ensures the caller belongs to realm.
func RequireRealm(realm domain.Realm) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, ok := SessionFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("session required")
		}
		if session.Realm != realm {
			return apperrors.NewForbidden("wrong realm for this route")
		}
		return c.Next()
	}
}

// RequireCallCenterRole ensures the caller holds at least min in the
// call-center realm. Services re-check the same rules.
func RequireCallCenterRole(min domain.CallCenterRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, ok := SessionFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("session required")
		}
		if session.Realm != domain.RealmCallCenter || !session.CallCenterRole.AtLeast(min) {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireDashboardRole ensures the caller holds at least min in the
// dashboard realm.
func RequireDashboardRole(min domain.DashboardRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, ok := SessionFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("session required")
		}
		if session.Realm != domain.RealmDashboard || !session.DashboardRole.AtLeast(min) {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireAnySession ensures the caller is authenticated in either realm.
func RequireAnySession() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := SessionFromContext(c); !ok {
			return apperrors.NewUnauthorized("session required")
		}
		return c.Next()
	}
}
