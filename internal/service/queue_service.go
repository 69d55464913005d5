package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rideops/callcenter/internal/domain"
	"github.com/rideops/callcenter/internal/events"
	"github.com/rideops/callcenter/internal/policy"
	"github.com/rideops/callcenter/internal/repository"
	apperrors "github.com/rideops/callcenter/pkg/util/errorutil"
)

// QueueService hands inbound customer contacts to agents.
type QueueService struct {
	channels repository.ChannelRepository
	workflow
}

// QueueDependencies bundles repositories for the queue service.
type QueueDependencies struct {
	ChannelRepo  repository.ChannelRepository
	ActivityRepo repository.ActivityRepository
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
	Clock        func() time.Time
}

// ChannelOpenInput describes a contact entering the queue.
type ChannelOpenInput struct {
	Type              domain.ChannelType
	RideID            *string
	DriverPhoneRef    *string
	PassengerPhoneRef *string
	ExternalID        *string
}

// NewQueueService constructs the service.
func NewQueueService(deps QueueDependencies) *QueueService {
	return &QueueService{
		channels: deps.ChannelRepo,
		workflow: newWorkflow(deps.ActivityRepo, deps.Dispatcher, deps.Logger, deps.Clock),
	}
}

// CallQueueFilter is the repository filter behind the call queue: live
// contacts nobody holds, longest waiting first.
func CallQueueFilter(limit int) repository.ChannelFilter {
	return repository.ChannelFilter{
		Statuses:    []domain.ChannelStatus{domain.ChannelStatusActive},
		Unassigned:  true,
		OldestFirst: true,
		Limit:       limit,
	}
}

// OpenChannel records an inbound contact. It starts active and unheld.
func (s *QueueService) OpenChannel(ctx context.Context, session domain.Session, input ChannelOpenInput) (*domain.Channel, error) {
	if err := requireCallCenter(session); err != nil {
		return nil, err
	}
	if !input.Type.Valid() {
		return nil, apperrors.NewValidationError("unknown channel type", map[string]any{"type": input.Type})
	}
	channel := &domain.Channel{
		Type:              input.Type,
		Status:            domain.ChannelStatusActive,
		RideID:            trimmed(input.RideID),
		DriverPhoneRef:    trimmed(input.DriverPhoneRef),
		PassengerPhoneRef: trimmed(input.PassengerPhoneRef),
		ExternalID:        trimmed(input.ExternalID),
	}
	if err := s.channels.Create(ctx, channel); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:    events.EventChannelOpened,
		Actor:   events.ActorFromSession(session),
		Payload: events.ChannelPayload{ChannelID: channel.ID, Type: channel.Type},
	})
	return channel, nil
}

// Queue lists the contacts waiting for an agent.
func (s *QueueService) Queue(ctx context.Context, session domain.Session, limit int) ([]domain.Channel, error) {
	if err := requireCallCenter(session); err != nil {
		return nil, err
	}
	channels, err := s.channels.List(ctx, CallQueueFilter(limit))
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return channels, nil
}

// MyChannels lists the live contacts the caller holds, newest first.
func (s *QueueService) MyChannels(ctx context.Context, session domain.Session) ([]domain.Channel, error) {
	if err := requireCallCenter(session); err != nil {
		return nil, err
	}
	channels, err := s.channels.List(ctx, repository.ChannelFilter{
		Statuses: []domain.ChannelStatus{domain.ChannelStatusActive},
		AgentID:  ptr(session.ActorID),
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return channels, nil
}

// Accept gives a queued contact to the caller. Only one agent can win a
// contact; the others get a Conflict.
func (s *QueueService) Accept(ctx context.Context, session domain.Session, channelID string) (*domain.Channel, error) {
	if err := policy.Authorize(session, policy.Request{Action: policy.ActionAcceptCall}); err != nil {
		return nil, err
	}
	channel, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return nil, lookupError(err, "channel", channelID)
	}
	if !channel.IsQueued() {
		return nil, channelTaken(channel)
	}
	ok, err := s.channels.Claim(ctx, channel.ID, session.ActorID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !ok {
		current, err := s.channels.GetByID(ctx, channel.ID)
		if err != nil {
			return nil, lookupError(err, "channel", channel.ID)
		}
		return nil, channelTaken(current)
	}

	accepted, err := s.channels.GetByID(ctx, channel.ID)
	if err != nil {
		return nil, lookupError(err, "channel", channel.ID)
	}
	s.recordActivity(ctx, session.ActorID, domain.ActivityCallStart, map[string]any{
		"channel_id": channel.ID,
	})
	s.publishEvent(ctx, events.Event{
		Type:    events.EventChannelAccepted,
		Actor:   events.ActorFromSession(session),
		Payload: events.ChannelPayload{ChannelID: channel.ID, Type: channel.Type, AgentID: session.ActorID},
	})
	return accepted, nil
}

func channelTaken(c *domain.Channel) error {
	if c.Status != domain.ChannelStatusActive {
		return apperrors.NewConflict("call has ended", map[string]any{"channel_id": c.ID})
	}
	return apperrors.NewConflict("call already taken by another agent", map[string]any{"channel_id": c.ID})
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	out := strings.TrimSpace(*v)
	if out == "" {
		return nil
	}
	return &out
}
