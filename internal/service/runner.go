package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/feedrunner/feedrunner/internal/feed"
	"github.com/feedrunner/feedrunner/internal/store"
)

// RunnerConfig holds configuration for the feed runner.
type RunnerConfig struct {
	// Options are the run-mode flags handed to every feed.
	Options feed.Options

	// FailedKeep bounds the persisted failed-entry log; older entries
	// are discarded after each addition.
	FailedKeep int
}

// Runner executes configured feeds against the shared plugin registry
// and persistence layer. Feeds run sequentially: each feed execution is
// strictly single-threaded, and the shared cache store sees one writer
// at a time.
//
// Runner implements feed.FailedSink.
type Runner struct {
	feeds       map[string]feed.Config
	plugins     feed.PluginSource
	cacheStore  store.CacheStore
	failedStore store.FailedStore
	config      RunnerConfig
	logger      *slog.Logger

	// runMu keeps scheduled executions from overlapping in daemon mode.
	runMu sync.Mutex
}

// NewRunner creates a runner for the given feed configurations.
func NewRunner(
	feeds map[string]feed.Config,
	plugins feed.PluginSource,
	cacheStore store.CacheStore,
	failedStore store.FailedStore,
	config RunnerConfig,
	logger *slog.Logger,
) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		feeds:       feeds,
		plugins:     plugins,
		cacheStore:  cacheStore,
		failedStore: failedStore,
		config:      config,
		logger:      logger.With("component", "runner"),
	}
}

// FeedNames returns the configured feed names in deterministic order.
func (r *Runner) FeedNames() []string {
	names := make([]string, 0, len(r.feeds))
	for name := range r.feeds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RunAll executes every configured feed in name order. A feed abort
// does not stop the remaining feeds; the per-feed errors are joined
// into the returned error.
func (r *Runner) RunAll(ctx context.Context) error {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	var errs []error
	for _, name := range r.FeedNames() {
		if err := r.runFeed(ctx, name); err != nil {
			errs = append(errs, fmt.Errorf("feed %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// RunFeed executes one configured feed by name.
func (r *Runner) RunFeed(ctx context.Context, name string) error {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	if _, ok := r.feeds[name]; !ok {
		return fmt.Errorf("no feed named %q is configured", name)
	}
	return r.runFeed(ctx, name)
}

func (r *Runner) runFeed(ctx context.Context, name string) error {
	f := feed.New(name, r.feeds[name], feed.Dependencies{
		Plugins:    r.plugins,
		CacheStore: r.cacheStore,
		FailedSink: r,
		Options:    r.config.Options,
		Logger:     r.logger,
	})

	r.logger.Info("executing feed", "feed", name)
	err := f.Execute(ctx)

	// Terminate runs even after a clean execution so plugins get their
	// cleanup event; it is a no-op on aborted feeds.
	f.Terminate(ctx)

	if err != nil {
		r.logger.Error("feed execution failed", "feed", name, "error", err)
		return err
	}

	r.logger.Info("feed finished",
		"feed", name,
		"entries", len(f.Entries()),
		"accepted", len(f.Accepted()),
		"purged", f.Purged(),
		"failed", len(f.Failed()))
	return nil
}

// AddFailed implements feed.FailedSink: it persists the failed entry
// and trims the log to its configured bound. Persistence failures are
// logged, not escalated; losing a diagnostic record must not fail the
// feed a second time.
func (r *Runner) AddFailed(e *feed.Entry, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fe := store.FailedEntry{
		ID:       e.ID(),
		Title:    e.Title(),
		URL:      e.URL(),
		Reason:   reason,
		FailedAt: time.Now().UTC(),
	}
	if err := r.failedStore.Add(ctx, fe); err != nil {
		r.logger.Error("failed to record failed entry", "entry", e.String(), "error", err)
		return
	}
	if err := r.failedStore.Trim(ctx, r.config.FailedKeep); err != nil {
		r.logger.Error("failed to trim failed-entry log", "error", err)
	}
}

// ListFailed returns the persisted failed entries, oldest first.
func (r *Runner) ListFailed(ctx context.Context) ([]store.FailedEntry, error) {
	return r.failedStore.List(ctx)
}

// ClearFailed empties the persisted failed-entry log.
func (r *Runner) ClearFailed(ctx context.Context) error {
	return r.failedStore.Clear(ctx)
}

// RunDaemon executes all feeds on the given cron schedule until the
// context is cancelled. Overlapping runs are prevented by the runner's
// execution lock, so a slow run delays the next tick instead of racing
// it.
func (r *Runner) RunDaemon(ctx context.Context, schedule string) error {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if err := r.RunAll(ctx); err != nil {
			r.logger.Error("scheduled run finished with errors", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	r.logger.Info("daemon started", "schedule", schedule)
	c.Start()
	<-ctx.Done()

	// Let an in-flight run finish before returning.
	stopCtx := c.Stop()
	<-stopCtx.Done()
	r.logger.Info("daemon stopped")
	return nil
}
