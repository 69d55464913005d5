package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/slack-go/slack"

	"github.com/rideops/callcenter/internal/config"
	"github.com/rideops/callcenter/internal/domain"
	"github.com/rideops/callcenter/internal/events"
)

type recordingPoster struct {
	urls     []string
	messages []*slack.WebhookMessage
	err      error
}

func (p *recordingPoster) post(_ context.Context, url string, msg *slack.WebhookMessage) error {
	p.urls = append(p.urls, url)
	p.messages = append(p.messages, msg)
	return p.err
}

func TestEscalationNotificationsOmitCode(t *testing.T) {
	h := newHarness(t, config.EscalationConfig{})
	poster := &recordingPoster{}
	notifier := NewNotificationService(h.dispatcher, nil, config.NotificationConfig{
		SlackWebhookURL: "https://hooks.slack.test/T000/B000/XXX",
		SlackChannel:    "#emergencies",
		ConsoleBaseURL:  "https://console.rideops.test/",
	}, poster.post)
	notifier.RegisterHandlers()

	ctx := context.Background()
	s := h.agent(t, "sam", domain.CallCenterRoleSupervisor)
	d := h.agent(t, "dana", domain.CallCenterRoleAdmin)
	ticket := h.ticket(t, s, "Driver assault", domain.TicketPriorityUrgent)
	escalation, code, err := h.escalations.Escalate(ctx, s, ticket.ID, "assault in progress")
	if err != nil {
		t.Fatalf("escalate: %v", err)
	}
	if _, err := h.escalations.Acknowledge(ctx, d, escalation.ID, code); err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	if _, err := h.escalations.ResolveEscalation(ctx, d, escalation.ID); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if len(poster.messages) != 3 {
		t.Fatalf("posted %d messages, want 3", len(poster.messages))
	}
	for _, msg := range poster.messages {
		if strings.Contains(msg.Text, code) {
			t.Fatalf("message leaks code: %q", msg.Text)
		}
		if msg.Channel != "#emergencies" {
			t.Fatalf("channel = %q", msg.Channel)
		}
	}
	first := poster.messages[0].Text
	if !strings.Contains(first, "assault in progress") || !strings.Contains(first, "https://console.rideops.test/tickets/"+ticket.ID) {
		t.Fatalf("unexpected created message: %q", first)
	}
}

func TestNotificationFailureDoesNotFailWorkflow(t *testing.T) {
	h := newHarness(t, config.EscalationConfig{})
	poster := &recordingPoster{err: errors.New("webhook down")}
	NewNotificationService(h.dispatcher, nil, config.NotificationConfig{SlackWebhookURL: "https://hooks.slack.test/x"}, poster.post).RegisterHandlers()

	s := h.agent(t, "sam", domain.CallCenterRoleSupervisor)
	ticket := h.ticket(t, s, "Emergency", domain.TicketPriorityUrgent)
	if _, _, err := h.escalations.Escalate(context.Background(), s, ticket.ID, "emergency"); err != nil {
		t.Fatalf("escalate should succeed despite webhook failure: %v", err)
	}
	if len(poster.urls) != 1 {
		t.Fatalf("expected one post attempt, got %d", len(poster.urls))
	}
}

func TestNoWebhookConfiguredPostsNothing(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher(nil)
	poster := &recordingPoster{}
	NewNotificationService(dispatcher, nil, config.NotificationConfig{}, poster.post).RegisterHandlers()
	_ = dispatcher.Publish(context.Background(), events.Event{Type: events.EventEscalationCreated, TicketID: "t1"})
	if len(poster.urls) != 0 {
		t.Fatalf("posted %d messages without a webhook", len(poster.urls))
	}
}
