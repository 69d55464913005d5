package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rideops/callcenter/internal/api/dto"
	"github.com/rideops/callcenter/internal/domain"
	"github.com/rideops/callcenter/internal/service"
	apperrors "github.com/rideops/callcenter/pkg/util/errorutil"
)

// StaffHandler exposes account management and the activity feed.
type StaffHandler struct {
	accounts *service.AccountService
}

// NewStaffHandler constructs handler.
func NewStaffHandler(accounts *service.AccountService) *StaffHandler {
	return &StaffHandler{accounts: accounts}
}

// CreateAgent POST /agents.
func (h *StaffHandler) CreateAgent(c *fiber.Ctx) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateAgentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	agent, err := h.accounts.CreateAgent(c.UserContext(), session, service.AgentCreateInput{
		Email: req.Email,
		Name:  req.Name,
		Role:  req.Role,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewAgentResponse(agent)})
}

// ListAgents GET /agents.
func (h *StaffHandler) ListAgents(c *fiber.Ctx) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	filters := service.AgentListFilters{Limit: parseInt(c.Query("page_size"), 50)}
	filters.Offset = (parseInt(c.Query("page"), 1) - 1) * filters.Limit
	if role := c.Query("role"); role != "" {
		r := domain.CallCenterRole(role)
		filters.Role = &r
	}
	if active := c.Query("active"); active != "" {
		v := active == "true"
		filters.Active = &v
	}
	agents, err := h.accounts.ListAgents(c.UserContext(), session, filters)
	if err != nil {
		return err
	}
	items := make([]dto.AgentResponse, 0, len(agents))
	for i := range agents {
		items = append(items, dto.NewAgentResponse(&agents[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// UpdateAgent PATCH /agents/:id.
func (h *StaffHandler) UpdateAgent(c *fiber.Ctx) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	var req dto.UpdateAgentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	agent, err := h.accounts.UpdateAgent(c.UserContext(), session, c.Params("id"), service.AgentUpdateInput{
		Name:     req.Name,
		Role:     req.Role,
		IsActive: req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAgentResponse(agent)})
}

// CreateAdminProfile POST /admin-profiles.
func (h *StaffHandler) CreateAdminProfile(c *fiber.Ctx) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateAdminProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	profile, err := h.accounts.CreateAdminProfile(c.UserContext(), session, service.AdminProfileCreateInput{
		Email:  req.Email,
		Name:   req.Name,
		Role:   req.Role,
		UserID: req.UserID,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewAdminProfileResponse(profile)})
}

// ListAdminProfiles GET /admin-profiles.
func (h *StaffHandler) ListAdminProfiles(c *fiber.Ctx) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	limit := parseInt(c.Query("page_size"), 50)
	offset := (parseInt(c.Query("page"), 1) - 1) * limit
	profiles, err := h.accounts.ListAdminProfiles(c.UserContext(), session, limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.AdminProfileResponse, 0, len(profiles))
	for i := range profiles {
		items = append(items, dto.NewAdminProfileResponse(&profiles[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// UpdateAdminProfile PATCH /admin-profiles/:id.
func (h *StaffHandler) UpdateAdminProfile(c *fiber.Ctx) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	var req dto.UpdateAdminProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	profile, err := h.accounts.UpdateAdminProfile(c.UserContext(), session, c.Params("id"), service.AdminProfileUpdateInput{
		Name:     req.Name,
		Role:     req.Role,
		IsActive: req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAdminProfileResponse(profile)})
}

// ListActivity GET /activity.
func (h *StaffHandler) ListActivity(c *fiber.Ctx) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	filters := service.ActivityListFilters{Limit: parseInt(c.Query("limit"), 50)}
	if agentID := c.Query("agent_id"); agentID != "" {
		filters.AgentID = &agentID
	}
	for _, part := range splitQuery(c.Query("type")) {
		filters.Types = append(filters.Types, domain.ActivityType(part))
	}
	entries, err := h.accounts.ListActivity(c.UserContext(), session, filters)
	if err != nil {
		return err
	}
	items := make([]dto.ActivityResponse, 0, len(entries))
	for i := range entries {
		items = append(items, dto.NewActivityResponse(&entries[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}
