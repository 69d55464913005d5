package realtime

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rideops/callcenter/internal/events"
	"github.com/rideops/callcenter/internal/readmodel"
)

// relayMessage is the wire form of a relayed event. Only the event type and
// ticket travel between instances; payloads stay local.
type relayMessage struct {
	Origin   string           `json:"origin"`
	Type     events.EventType `json:"type"`
	TicketID string           `json:"ticket_id,omitempty"`
}

// Publisher is the part of the Redis client the relay publishes through.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Relay forwards local workflow events to other instances over Redis pub/sub
// and refreshes local views when another instance reports a change.
type Relay struct {
	client    *redis.Client
	publisher Publisher
	channel   string
	origin    string
	refresher *readmodel.Refresher
	logger    *zap.Logger
}

// NewRelay creates a relay on channel. client may be nil when only the
// publishing side is exercised.
func NewRelay(client *redis.Client, channel string, refresher *readmodel.Refresher, logger *zap.Logger) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Relay{
		client:    client,
		channel:   channel,
		origin:    uuid.NewString(),
		refresher: refresher,
		logger:    logger,
	}
	if client != nil {
		r.publisher = client
	}
	return r
}

// Subscribe forwards every local workflow event to the channel.
func (r *Relay) Subscribe(dispatcher events.Dispatcher) {
	for _, eventType := range events.AllEventTypes {
		dispatcher.Subscribe(eventType, r.forward)
	}
}

func (r *Relay) forward(ctx context.Context, event events.Event) error {
	if r.publisher == nil {
		return nil
	}
	payload, err := json.Marshal(relayMessage{Origin: r.origin, Type: event.Type, TicketID: event.TicketID})
	if err != nil {
		return err
	}
	return r.publisher.Publish(ctx, r.channel, payload).Err()
}

// Run listens on the channel until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}
	r.logger.Info("realtime relay subscribed", zap.String("channel", r.channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.handle(ctx, []byte(msg.Payload))
		}
	}
}

func (r *Relay) handle(ctx context.Context, payload []byte) {
	var msg relayMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		r.logger.Warn("discarding malformed relay message", zap.Error(err))
		return
	}
	if msg.Origin == r.origin {
		return
	}
	_ = r.refresher.HandleEvent(ctx, events.Event{Type: msg.Type, TicketID: msg.TicketID})
}
