package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rideops/callcenter/internal/api/dto"
)

// UsersHandler describes the authenticated caller.
type UsersHandler struct{}

// NewUsersHandler constructs handler.
func NewUsersHandler() *UsersHandler {
	return &UsersHandler{}
}

// Me GET /me.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSessionResponse(session)})
}
