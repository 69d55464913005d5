package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/rideops/callcenter/internal/api/dto"
	"github.com/rideops/callcenter/internal/readmodel"
	"github.com/rideops/callcenter/internal/service"
	apperrors "github.com/rideops/callcenter/pkg/util/errorutil"
)

// QueueHandler serves the inbound call queue.
type QueueHandler struct {
	queue *service.QueueService
	now   func() time.Time
}

// NewQueueHandler constructs handler.
func NewQueueHandler(queue *service.QueueService, clock func() time.Time) *QueueHandler {
	if clock == nil {
		clock = time.Now
	}
	return &QueueHandler{queue: queue, now: clock}
}

// Queue GET /queue.
func (h *QueueHandler) Queue(c *fiber.Ctx) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	channels, err := h.queue.Queue(c.UserContext(), session, parseInt(c.Query("limit"), 50))
	if err != nil {
		return err
	}
	now := h.now()
	rows := make([]readmodel.CallRow, 0, len(channels))
	for i := range channels {
		rows = append(rows, readmodel.NewCallRow(&channels[i], now))
	}
	return c.JSON(fiber.Map{"data": rows})
}

// Open POST /queue.
func (h *QueueHandler) Open(c *fiber.Ctx) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	var req dto.OpenChannelRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	channel, err := h.queue.OpenChannel(c.UserContext(), session, service.ChannelOpenInput{
		Type:              req.Type,
		RideID:            req.RideID,
		DriverPhoneRef:    req.DriverPhoneRef,
		PassengerPhoneRef: req.PassengerPhoneRef,
		ExternalID:        req.ExternalID,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewChannelResponse(channel)})
}

// Accept POST /queue/:id/accept.
func (h *QueueHandler) Accept(c *fiber.Ctx) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	channel, err := h.queue.Accept(c.UserContext(), session, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewChannelResponse(channel)})
}

// Mine GET /channels/mine.
func (h *QueueHandler) Mine(c *fiber.Ctx) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	channels, err := h.queue.MyChannels(c.UserContext(), session)
	if err != nil {
		return err
	}
	items := make([]dto.ChannelResponse, 0, len(channels))
	for i := range channels {
		items = append(items, dto.NewChannelResponse(&channels[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}
