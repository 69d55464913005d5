package worker

import (
	"context"
	"testing"
	"time"

	"github.com/slack-go/slack"

	"github.com/rideops/callcenter/internal/app"
	"github.com/rideops/callcenter/internal/config"
	"github.com/rideops/callcenter/internal/domain"
	"github.com/rideops/callcenter/internal/readmodel"
	"github.com/rideops/callcenter/internal/repository/memory"
	"github.com/rideops/callcenter/internal/service"
)

func TestStartWiresEventConsumers(t *testing.T) {
	store := memory.NewStore()
	var posted []string
	poster := func(_ context.Context, _ string, msg *slack.WebhookMessage) error {
		posted = append(posted, msg.Text)
		return nil
	}
	container := app.New(app.Options{
		Config: config.Config{
			Notification: config.NotificationConfig{SlackWebhookURL: "https://hooks.slack.test/x", ConsoleBaseURL: "http://console"},
			Refresh:      config.RefreshConfig{ActiveQueue: time.Minute},
		},
		Repos:  store.Repositories(),
		Poster: poster,
	})

	stop, err := Start(context.Background(), container)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer stop()

	ctx := context.Background()
	supervisor := domain.CallCenterSession("sup-1", domain.CallCenterRoleSupervisor)
	before, err := container.Refresher.Get(ctx, readmodel.ViewActiveQueue)
	if err != nil {
		t.Fatalf("get view: %v", err)
	}
	ticket, err := container.Tickets.CreateTicket(ctx, supervisor, service.TicketCreateInput{Subject: "Lost item in car"})
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	if _, _, err := container.Escalations.Escalate(ctx, supervisor, ticket.ID, "rider distressed"); err != nil {
		t.Fatalf("escalate: %v", err)
	}

	after, err := container.Refresher.Get(ctx, readmodel.ViewActiveQueue)
	if err != nil {
		t.Fatalf("get view: %v", err)
	}
	if after.Version <= before.Version {
		t.Fatalf("expected view refreshed by event, version %d -> %d", before.Version, after.Version)
	}

	snap := container.Metrics.Snapshot()
	counts := map[string]int64{}
	for _, c := range snap.Events {
		counts[c.Key] = c.Count
	}
	if counts["ticket_created"] != 1 || counts["escalation_created"] != 1 {
		t.Fatalf("unexpected event counts: %v", counts)
	}
	if len(posted) != 1 {
		t.Fatalf("expected one escalation notification, got %d", len(posted))
	}
}

func TestSlowWebhookDoesNotBlockWorkflow(t *testing.T) {
	store := memory.NewStore()
	release := make(chan struct{})
	var posted int
	poster := func(ctx context.Context, _ string, _ *slack.WebhookMessage) error {
		select {
		case <-release:
		case <-ctx.Done():
			return ctx.Err()
		}
		posted++
		return nil
	}
	container := app.New(app.Options{
		Config: config.Config{
			Notification: config.NotificationConfig{SlackWebhookURL: "https://hooks.slack.test/x", SlackTimeout: 5 * time.Second},
			Refresh:      config.RefreshConfig{ActiveQueue: time.Minute},
			Events:       config.EventsConfig{Async: true, QueueSize: 16, HandlerTimeout: 10 * time.Second},
		},
		Repos:  store.Repositories(),
		Poster: poster,
	})
	stop, err := Start(context.Background(), container)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	supervisor := domain.CallCenterSession("sup-1", domain.CallCenterRoleSupervisor)
	reqCtx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	ticket, err := container.Tickets.CreateTicket(reqCtx, supervisor, service.TicketCreateInput{Subject: "Rider feels unsafe"})
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	escalation, code, err := container.Escalations.Escalate(reqCtx, supervisor, ticket.ID, "rider unsafe")
	if err != nil {
		t.Fatalf("escalate: %v", err)
	}
	acked, err := container.Escalations.Acknowledge(reqCtx, supervisor, escalation.ID, code)
	if err != nil {
		t.Fatalf("acknowledge while webhook is stalled: %v", err)
	}
	if acked.Status != domain.EscalationStatusAcknowledged {
		t.Fatalf("status = %s, want acknowledged", acked.Status)
	}
	if reqCtx.Err() != nil {
		t.Fatal("workflow calls waited on the webhook")
	}

	close(release)
	stop()
	if posted != 2 {
		t.Fatalf("expected created and acknowledged notifications, got %d", posted)
	}
}
