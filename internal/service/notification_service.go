package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/rideops/callcenter/internal/config"
	"github.com/rideops/callcenter/internal/events"
)

// WebhookPoster delivers a message to a Slack incoming webhook.
type WebhookPoster func(ctx context.Context, url string, msg *slack.WebhookMessage) error

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
	post       WebhookPoster
}

// NewNotificationService creates the service. A nil poster uses the Slack
// webhook client.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig, poster WebhookPoster) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if poster == nil {
		poster = slack.PostWebhookContext
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
		post:       poster,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, eventType := range events.AllEventTypes {
		n.dispatcher.Subscribe(eventType, n.logEvent)
	}
	n.dispatcher.Subscribe(events.EventEscalationCreated, n.notifyEscalation)
	n.dispatcher.Subscribe(events.EventEscalationAcked, n.notifyEscalation)
	n.dispatcher.Subscribe(events.EventEscalationResolved, n.notifyEscalation)
}

func (n *NotificationService) logEvent(_ context.Context, event events.Event) error {
	n.logger.Info("workflow event",
		zap.String("event_type", string(event.Type)),
		zap.String("event_id", event.ID),
		zap.String("ticket_id", event.TicketID),
		zap.String("actor_id", event.Actor.ID),
		zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) notifyEscalation(ctx context.Context, event events.Event) error {
	url := strings.TrimSpace(n.cfg.SlackWebhookURL)
	if url == "" {
		return nil
	}
	msg := &slack.WebhookMessage{
		Channel: n.cfg.SlackChannel,
		Text:    n.escalationText(event),
	}
	// Delivery is fire-and-forget: the caller's cancellation never aborts a
	// post, but the post is bounded on its own.
	ctx = context.WithoutCancel(ctx)
	if n.cfg.SlackTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.cfg.SlackTimeout)
		defer cancel()
	}
	if err := n.post(ctx, url, msg); err != nil {
		return fmt.Errorf("post escalation webhook: %w", err)
	}
	return nil
}

// escalationText never includes the verification code.
func (n *NotificationService) escalationText(event events.Event) string {
	payload, _ := event.Payload.(events.EscalationPayload)
	var b strings.Builder
	switch event.Type {
	case events.EventEscalationCreated:
		fmt.Fprintf(&b, ":rotating_light: Emergency escalation on ticket %s", event.TicketID)
		if payload.Subject != "" {
			fmt.Fprintf(&b, " (%s)", payload.Subject)
		}
		if payload.Reason != "" {
			fmt.Fprintf(&b, "\nReason: %s", payload.Reason)
		}
		b.WriteString("\nA supervisor must acknowledge it with the code given by the escalating agent.")
	case events.EventEscalationAcked:
		fmt.Fprintf(&b, ":white_check_mark: Escalation on ticket %s acknowledged by %s", event.TicketID, event.Actor.ID)
	case events.EventEscalationResolved:
		fmt.Fprintf(&b, ":checkered_flag: Escalation on ticket %s resolved by %s", event.TicketID, event.Actor.ID)
	default:
		fmt.Fprintf(&b, "Escalation update on ticket %s", event.TicketID)
	}
	if base := strings.TrimRight(n.cfg.ConsoleBaseURL, "/"); base != "" {
		fmt.Fprintf(&b, "\n%s/tickets/%s", base, event.TicketID)
	}
	return b.String()
}
