package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/rideops/callcenter/internal/app"
	"github.com/rideops/callcenter/internal/config"
	"github.com/rideops/callcenter/internal/observability"
	"github.com/rideops/callcenter/internal/persistence"
	"github.com/rideops/callcenter/internal/repository"
	"github.com/rideops/callcenter/internal/repository/memory"
)

// loadConfig is swapped in tests.
var loadConfig = config.Load

var errNoDSN = errors.New("POSTGRES_DSN is required when STORE_DRIVER=postgres")

// runtime is one opened store plus the services wired on top of it.
type runtime struct {
	cfg       *config.Config
	logger    *zap.Logger
	postgres  *persistence.Postgres
	container *app.Container
}

func openRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	// Command output goes to stdout; keep logs off it.
	logCfg := cfg.Logger
	logCfg.Output = "stderr"
	logger, err := observability.NewLogger(logCfg, zap.String("component", "consolectl"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	rt := &runtime{cfg: cfg, logger: logger}
	var repos repository.Repositories
	switch cfg.App.StoreDriver {
	case "memory":
		repos = memory.NewStore().Repositories()
	default:
		pg, err := rt.openPostgres(ctx)
		if err != nil {
			return nil, err
		}
		repos = repository.NewPostgresRepositories(pg.PoolHandle())
	}

	// One-shot commands never start the workers, so events are delivered inline.
	appCfg := *cfg
	appCfg.Events.Async = false
	rt.container = app.New(app.Options{Config: appCfg, Repos: repos, Logger: logger})
	return rt, nil
}

func (rt *runtime) openPostgres(ctx context.Context) (*persistence.Postgres, error) {
	pg, err := persistence.NewPostgres(ctx, rt.cfg.Postgres, rt.logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if pg.PoolHandle() == nil {
		return nil, errNoDSN
	}
	rt.postgres = pg
	return pg, nil
}

func (rt *runtime) Close() {
	if rt.postgres != nil {
		rt.postgres.Close()
	}
	_ = rt.logger.Sync()
}
