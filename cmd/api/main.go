package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	httptransport "github.com/rideops/callcenter/internal/api/http"
	"github.com/rideops/callcenter/internal/api/http/handlers"
	"github.com/rideops/callcenter/internal/app"
	"github.com/rideops/callcenter/internal/config"
	"github.com/rideops/callcenter/internal/observability"
	"github.com/rideops/callcenter/internal/persistence"
	"github.com/rideops/callcenter/internal/repository"
	"github.com/rideops/callcenter/internal/repository/memory"
	"github.com/rideops/callcenter/internal/service"
	"github.com/rideops/callcenter/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger,
		zap.String("service", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", cfg.App.Version))
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	checks := map[string]handlers.Pinger{}

	var repos repository.Repositories
	switch cfg.App.StoreDriver {
	case "memory":
		logger.Warn("using in-memory store; data is lost on restart")
		repos = memory.NewStore().Repositories()
	default:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer pg.Close()
		if pg.PoolHandle() == nil {
			logger.Fatal("POSTGRES_DSN is required when STORE_DRIVER=postgres")
		}

		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		repos = repository.NewPostgresRepositories(pg.PoolHandle())
		checks["postgres"] = pg
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()
	checks["redis"] = redis

	var limiter service.AttemptLimiter
	if cfg.Escalation.OTPMaxAttempts > 0 {
		limiter = redis.AttemptLimiter()
	}

	container := app.New(app.Options{
		Config:  *cfg,
		Repos:   repos,
		Limiter: limiter,
		Redis:   redis.Client,
		Logger:  logger,
	})

	stopWorkers, err := worker.Start(ctx, container)
	if err != nil {
		logger.Fatal("failed to start workers", zap.Error(err))
	}

	server := httptransport.NewServer(container, checks)

	go func() {
		if err := server.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()
	logger.Info("console api listening", zap.String("addr", cfg.App.Addr()), zap.String("store", cfg.App.StoreDriver))

	waitForShutdown(logger)

	_ = server.Shutdown()
	stopWorkers()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
