// Package app assembles the workflow services, read models and background
// consumers shared by the API server and the operator CLI.
package app

import (
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rideops/callcenter/internal/config"
	"github.com/rideops/callcenter/internal/events"
	"github.com/rideops/callcenter/internal/export"
	"github.com/rideops/callcenter/internal/observability"
	"github.com/rideops/callcenter/internal/readmodel"
	"github.com/rideops/callcenter/internal/realtime"
	"github.com/rideops/callcenter/internal/repository"
	"github.com/rideops/callcenter/internal/service"
)

// Options are the external collaborators of a container.
type Options struct {
	Config  config.Config
	Repos   repository.Repositories
	Limiter service.AttemptLimiter
	Poster  service.WebhookPoster
	// Redis enables the cross-instance relay when set.
	Redis  *redis.Client
	Logger *zap.Logger
	Clock  func() time.Time
}

// Container holds one wired instance of every component.
type Container struct {
	Config     config.Config
	Logger     *zap.Logger
	Clock      func() time.Time
	Repos      repository.Repositories
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics

	Tickets       *service.TicketService
	Assignment    *service.AssignmentService
	Escalations   *service.EscalationService
	Accounts      *service.AccountService
	Queue         *service.QueueService
	Auth          *service.AuthService
	Notifications *service.NotificationService

	Refresher *readmodel.Refresher
	Hub       *realtime.Hub
	Relay     *realtime.Relay
	Exporter  *export.Exporter
}

// New wires a container. Event handlers are not registered until the
// workers start.
func New(opts Options) *Container {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	repos := opts.Repos
	var dispatcher events.Dispatcher
	if opts.Config.Events.Async {
		dispatcher = events.NewAsyncDispatcher(logger, opts.Config.Events.QueueSize, opts.Config.Events.HandlerTimeout)
	} else {
		dispatcher = events.NewInMemoryDispatcher(logger)
	}

	c := &Container{
		Config:     opts.Config,
		Logger:     logger,
		Clock:      clock,
		Repos:      repos,
		Dispatcher: dispatcher,
		Metrics:    observability.NewMetrics(),
	}

	c.Tickets = service.NewTicketService(service.TicketDependencies{
		TicketRepo:   repos.Tickets,
		ResponseRepo: repos.Responses,
		ActivityRepo: repos.Activity,
		Dispatcher:   dispatcher,
		Logger:       logger,
		Clock:        clock,
	})
	c.Assignment = service.NewAssignmentService(service.AssignmentDependencies{
		TicketRepo:   repos.Tickets,
		AgentRepo:    repos.Agents,
		ActivityRepo: repos.Activity,
		Dispatcher:   dispatcher,
		Logger:       logger,
		Clock:        clock,
	})
	c.Escalations = service.NewEscalationService(service.EscalationDependencies{
		TicketRepo:     repos.Tickets,
		EscalationRepo: repos.Escalations,
		ActivityRepo:   repos.Activity,
		Dispatcher:     dispatcher,
		Limiter:        opts.Limiter,
		Logger:         logger,
		Config:         opts.Config.Escalation,
		Clock:          clock,
	})
	c.Accounts = service.NewAccountService(service.AccountDependencies{
		AgentRepo:        repos.Agents,
		AdminProfileRepo: repos.AdminProfiles,
		ActivityRepo:     repos.Activity,
		Dispatcher:       dispatcher,
		Logger:           logger,
		Clock:            clock,
	})
	c.Queue = service.NewQueueService(service.QueueDependencies{
		ChannelRepo:  repos.Channels,
		ActivityRepo: repos.Activity,
		Dispatcher:   dispatcher,
		Logger:       logger,
		Clock:        clock,
	})
	c.Auth = service.NewAuthService(opts.Config, service.AuthDependencies{
		AgentRepo:        repos.Agents,
		AdminProfileRepo: repos.AdminProfiles,
		Logger:           logger,
		Clock:            clock,
	})
	c.Notifications = service.NewNotificationService(dispatcher, logger, opts.Config.Notification, opts.Poster)

	c.Refresher = readmodel.NewRefresher(logger, clock)
	readmodel.RegisterDefaultViews(c.Refresher, opts.Config.Refresh, readmodel.Sources{
		Tickets:     repos.Tickets,
		Escalations: repos.Escalations,
		Channels:    repos.Channels,
		Clock:       clock,
	})
	c.Hub = realtime.NewHub(logger)
	c.Refresher.OnChange(c.Hub.Broadcast)
	if opts.Redis != nil && opts.Config.Realtime.Enabled {
		c.Relay = realtime.NewRelay(opts.Redis, opts.Config.Realtime.RedisChannel, c.Refresher, logger)
	}
	c.Exporter = export.NewExporter(repos.Tickets, repos.Escalations)
	return c
}
