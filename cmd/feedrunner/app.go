package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/feedrunner/feedrunner/internal/config"
	"github.com/feedrunner/feedrunner/internal/feed"
	"github.com/feedrunner/feedrunner/internal/platform/logger"
	"github.com/feedrunner/feedrunner/internal/platform/postgres"
	"github.com/feedrunner/feedrunner/internal/platform/sqlite"
	"github.com/feedrunner/feedrunner/internal/plugin"
	"github.com/feedrunner/feedrunner/internal/registry"
	"github.com/feedrunner/feedrunner/internal/service"
	"github.com/feedrunner/feedrunner/internal/store"
)

// app bundles the initialized application components handed to the
// commands.
type app struct {
	cfg    *config.Config
	runner *service.Runner
	logger *slog.Logger
	db     *sql.DB // nil with the memory driver
}

// close releases the application's resources.
func (a *app) close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("failed to close database", "error", err)
		}
	}
}

// initializeApp loads configuration, sets up logging, opens the cache
// database, registers the built-in plugins, and wires the runner.
func initializeApp(ctx context.Context, opts *rootOptions, checkOnly bool) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.Setup(cfg.Log.Level)
	ctx = logger.WithLogger(ctx, log)

	var (
		db          *sql.DB
		cacheStore  store.CacheStore
		failedStore store.FailedStore
	)
	switch cfg.Database.Driver {
	case "sqlite":
		db, err = sqlite.Open(ctx, cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		cacheStore = sqlite.NewCacheStore(db)
		failedStore = sqlite.NewFailedStore(db)
	case "postgres":
		db, err = postgres.Open(ctx, cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		if err := postgres.RunMigrations(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		cacheStore = postgres.NewCacheStore(db)
		failedStore = postgres.NewFailedStore(db)
	case "memory":
		cacheStore = store.NewMemoryCacheStore()
		failedStore = store.NewMemoryFailedStore()
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	reg := registry.New()
	if err := plugin.RegisterAll(reg); err != nil {
		return nil, fmt.Errorf("failed to register built-in plugins: %w", err)
	}

	feeds, err := config.LoadFeeds(cfg.FeedsFile)
	if err != nil {
		return nil, err
	}

	options := feed.Options{
		Quiet:     opts.quiet || cfg.Run.Quiet,
		Details:   opts.details || cfg.Run.Details,
		Learn:     opts.learn || cfg.Run.Learn,
		CheckOnly: checkOnly,
	}

	runner := service.NewRunner(feeds, reg, cacheStore, failedStore, service.RunnerConfig{
		Options:    options,
		FailedKeep: cfg.Run.FailedKeep,
	}, log)

	log.Debug("application initialized",
		"driver", cfg.Database.Driver,
		"feeds", len(feeds),
		"plugins", len(reg.Names()))

	return &app{cfg: cfg, runner: runner, logger: log, db: db}, nil
}
