package feed

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/feedrunner/feedrunner/internal/store"
)

// ErrAborted is returned by Execute when the feed was aborted, either
// by configuration errors or by an unhandled plugin failure.
var ErrAborted = errors.New("feed aborted")

// Options are the run-mode flags consumed by the engine.
type Options struct {
	// Quiet suppresses progress logging.
	Quiet bool

	// Details emits per-entry, per-plugin verbose trace lines.
	Details bool

	// CheckOnly validates the configuration and reports pass/fail
	// without running any lifecycle events.
	CheckOnly bool

	// Learn skips mutating events (download, output) so a run can seed
	// caches without side effects.
	Learn bool
}

// Dependencies are the external collaborators a Feed consumes. The
// engine only knows these interfaces, never their implementations.
type Dependencies struct {
	// Plugins is the registry lookup.
	Plugins PluginSource

	// CacheStore backs the feed's module caches.
	CacheStore store.CacheStore

	// FailedSink records failed entries for operator inspection.
	// Optional; nil discards them.
	FailedSink FailedSink

	// Options are the run-mode flags.
	Options Options

	// Logger receives structured engine logging. Optional; nil uses
	// the process default.
	Logger *slog.Logger

	// DetailsOut receives the detail trace lines when Options.Details
	// is set. Optional; nil means os.Stdout.
	DetailsOut io.Writer
}

// Feed represents one configured unit of work executed end-to-end
// through the lifecycle events. It owns the run state: the live entry
// sequence, the four classification lists, the abort flag, and the
// per-plugin cache views.
//
// A Feed is single-threaded and cooperative: plugins execute one at a
// time in priority order, and the abort flag is the only cancellation
// primitive, checked after every plugin call and after every event.
type Feed struct {
	name   string
	config Config

	plugins PluginSource
	sink    FailedSink
	options Options
	logger  *slog.Logger
	details io.Writer

	cache       *ModuleCache
	sharedCache *ModuleCache

	entries []*Entry

	// Classification lists. Membership is pointer identity. They are
	// append-only within a run, except that accept removes a previously
	// filtered entry from filtered.
	accepted []*Entry // accepted entries stay accepted, filtering does not affect them
	filtered []*Entry
	rejected []*Entry // rejected entries are removed unconditionally, even if accepted
	failed   []*Entry

	aborted bool
	purged  int

	// Bookkeeping for diagnostic output only.
	currentEvent  Event
	currentPlugin string
}

// New creates a feed for the given name and configuration.
func New(name string, config Config, deps Dependencies) *Feed {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("feed", name)

	details := deps.DetailsOut
	if details == nil {
		details = os.Stdout
	}

	cacheStore := deps.CacheStore
	if cacheStore == nil {
		cacheStore = store.NewMemoryCacheStore()
	}

	return &Feed{
		name:        name,
		config:      config,
		plugins:     deps.Plugins,
		sink:        deps.FailedSink,
		options:     deps.Options,
		logger:      logger,
		details:     details,
		cache:       NewModuleCache(name, cacheStore, logger),
		sharedCache: NewModuleCache(SharedScope, cacheStore, logger),
	}
}

// Name returns the feed's configured name.
func (f *Feed) Name() string { return f.name }

// Aborted reports whether the feed has been aborted.
func (f *Feed) Aborted() bool { return f.aborted }

// Purged returns the number of entries removed by the end-of-event
// filtered purge.
func (f *Feed) Purged() int { return f.purged }

// Cache returns the feed-scoped module cache. The active namespace is
// the currently executing plugin's name.
func (f *Feed) Cache() *ModuleCache { return f.cache }

// SharedCache returns the cache scope shared by all plugins of all
// feeds, used for cross-feed concerns such as deduplication.
func (f *Feed) SharedCache() *ModuleCache { return f.sharedCache }

// Config returns the feed's configuration mapping.
func (f *Feed) Config() Config { return f.config }

// Entries returns the live entry sequence. Callers must treat the
// returned slice as read-only; classification methods and purges are
// the only sanctioned mutations.
func (f *Feed) Entries() []*Entry { return f.entries }

// Accepted returns the accepted classification list, for inspection.
func (f *Feed) Accepted() []*Entry { return f.accepted }

// Filtered returns the filtered classification list, for inspection.
func (f *Feed) Filtered() []*Entry { return f.filtered }

// Rejected returns the rejected classification list, for inspection.
func (f *Feed) Rejected() []*Entry { return f.rejected }

// Failed returns the failed classification list, for inspection.
func (f *Feed) Failed() []*Entry { return f.failed }

// AddEntry appends an entry produced by an input plugin to the live
// sequence.
func (f *Feed) AddEntry(e *Entry) {
	if !e.IsValid() {
		f.logger.Debug("plugin produced invalid entry", "entry", e.String(), "plugin", f.currentPlugin)
	}
	f.entries = append(f.entries, e)
}

// Accept accepts the entry. An accepted entry survives filtering; if it
// was previously filtered it is rescued from the filtered list.
// Idempotent.
func (f *Feed) Accept(e *Entry, reason string) {
	if containsEntry(f.accepted, e) {
		return
	}
	f.accepted = append(f.accepted, e)
	if i := indexOfEntry(f.filtered, e); i >= 0 {
		f.filtered = append(f.filtered[:i], f.filtered[i+1:]...)
		f.verboseDetails("Accepted previously filtered "+e.Title(), "")
		return
	}
	f.verboseDetails("Accepted "+e.Title(), reason)
}

// Filter marks the entry to be filtered out at the end of the current
// event unless a later plugin accepts it. Idempotent; already accepted
// entries are unaffected.
func (f *Feed) Filter(e *Entry, reason string) {
	if containsEntry(f.filtered, e) || containsEntry(f.accepted, e) {
		return
	}
	f.filtered = append(f.filtered, e)
	f.verboseDetails("Filtered "+e.Title(), reason)
}

// Reject rejects the entry immediately and permanently. Rejection is
// not overridable by a later accept; rejected entries are purged even
// if also accepted.
func (f *Feed) Reject(e *Entry, reason string) {
	if containsEntry(f.rejected, e) {
		return
	}
	f.rejected = append(f.rejected, e)
	f.verboseDetails("Rejected "+e.Title(), reason)
}

// Fail marks the entry as failed and records it in the failed-entry
// sink for later inspection. The entry remains in the live sequence
// until the next failed purge.
func (f *Feed) Fail(e *Entry, reason string) {
	f.logger.Debug("marking entry as failed", "entry", e.Title(), "reason", reason)
	if containsEntry(f.failed, e) {
		return
	}
	f.failed = append(f.failed, e)
	if f.sink != nil {
		f.sink.AddFailed(e, reason)
	}
	f.verboseDetails("Failed "+e.Title(), reason)
}

// purgeFiltered removes filtered-but-not-accepted entries from the live
// sequence. It runs once per event, after all plugins have completed,
// so an accept issued by a later plugin in the same event still rescues
// an entry filtered earlier. Each removal increments the purge counter.
func (f *Feed) purgeFiltered() {
	f.purgeEntries(f.filtered, f.accepted, true)
}

// purgeRejected removes rejected entries from the live sequence
// unconditionally. Runs after every plugin invocation; does not count.
func (f *Feed) purgeRejected() {
	f.purgeEntries(f.rejected, nil, false)
}

// purgeFailed removes failed entries from the live sequence. Runs after
// every plugin invocation; does not count.
func (f *Feed) purgeFailed() {
	f.purgeEntries(f.failed, nil, false)
}

// purgeEntries removes from the live sequence every entry present in
// drive and absent from exclude, incrementing the purge counter for
// each removal when count is set.
func (f *Feed) purgeEntries(drive, exclude []*Entry, count bool) {
	kept := f.entries[:0]
	for _, e := range f.entries {
		if containsEntry(drive, e) && !containsEntry(exclude, e) {
			f.logger.Debug("purging entry", "entry", e.String())
			if count {
				f.purged++
			}
			continue
		}
		kept = append(kept, e)
	}
	// Drop trailing references so purged entries can be collected.
	for i := len(kept); i < len(f.entries); i++ {
		f.entries[i] = nil
	}
	f.entries = kept
}

// effectivePriority returns the plugin's execution priority for the
// event: the feed-configured override if present, else the plugin's
// declared default for the event, else 0.
func (f *Feed) effectivePriority(p PluginInfo, event Event) int {
	if override, ok := f.config.Priority(p.Name); ok {
		return override
	}
	return p.Priorities[event]
}

// setNamespace switches both cache scopes to the plugin's namespace,
// purging expired records as a side effect. The cache is advisory, so
// a failing backend is logged rather than aborting the feed.
func (f *Feed) setNamespace(ctx context.Context, name string) {
	if err := f.cache.SetNamespace(ctx, name); err != nil {
		f.logger.Warn("failed to switch cache namespace", "namespace", name, "error", err)
	}
	if err := f.sharedCache.SetNamespace(ctx, name); err != nil {
		f.logger.Warn("failed to switch shared cache namespace", "namespace", name, "error", err)
	}
}

// runEvent dispatches all plugins registered for the event, in
// descending effective priority order, against this feed. Rejected and
// failed entries are purged after every plugin; an abort stops the
// dispatch unless ignoreAbort is set (the abort event itself must run
// to completion so every plugin gets its cleanup chance).
func (f *Feed) runEvent(ctx context.Context, event Event, ignoreAbort bool) {
	plugins := f.plugins.PluginsForEvent(event)

	// Stable sort keeps registration order for equal priorities, so
	// dispatch is deterministic.
	sort.SliceStable(plugins, func(i, j int) bool {
		return f.effectivePriority(plugins[i], event) > f.effectivePriority(plugins[j], event)
	})

	for _, p := range plugins {
		if !p.Builtin && !f.config.Has(p.Name) {
			continue
		}

		// Set cache namespaces to this plugin's realm.
		f.setNamespace(ctx, p.Name)
		f.currentEvent = event
		f.currentPlugin = p.Name

		if err := p.Handler.Handle(ctx, event, f); err != nil {
			if w := AsWarning(err); w != nil {
				// Recoverable: log and continue with the next plugin.
				if w.LogOnce {
					f.LogOnce(ctx, w.Message)
				} else {
					f.logger.Warn(w.Message, "plugin", p.Name, "event", event)
				}
			} else {
				// A plugin that failed unexpectedly has left state in
				// an unknown condition; stop the whole feed.
				f.logger.Error("unhandled error in plugin",
					"plugin", p.Name,
					"event", event,
					"error", err)
				f.Abort(ctx, false)
			}
		}

		f.purgeRejected()
		f.purgeFailed()

		if f.aborted && !ignoreAbort {
			return
		}
	}
}

// Validate checks every configured plugin keyword: unknown keywords and
// failed plugin config validations are accumulated and reported
// together, and any issue aborts the feed before events run.
func (f *Feed) Validate(ctx context.Context) []ValidationIssue {
	var issues []ValidationIssue

	keywords := f.config.Keywords()
	sort.Strings(keywords)

	for _, keyword := range keywords {
		p, ok := f.plugins.Plugin(keyword)
		if !ok {
			issues = append(issues, ValidationIssue{
				Message: fmt.Sprintf("unknown keyword '%s'", keyword),
				Value:   keyword,
			})
			continue
		}

		validator, ok := p.Handler.(ConfigValidator)
		if !ok {
			f.logger.Warn("plugin does not support validating, please notify author",
				"plugin", keyword)
			continue
		}

		sub, _ := f.config.Sub(keyword)
		for _, issue := range validator.ValidateConfig(sub) {
			issue.Keyword = keyword
			issues = append(issues, issue)
		}
	}

	if len(issues) > 0 {
		f.logger.Error("feed has configuration errors", "count", len(issues))
		for _, issue := range issues {
			f.logger.Error(issue.String())
		}
		f.Abort(ctx, false)
	}

	return issues
}

// Execute runs the feed: validation first, then every lifecycle event
// in order. Returns ErrAborted if the feed aborted, either during
// validation or mid-run.
func (f *Feed) Execute(ctx context.Context) error {
	issues := f.Validate(ctx)
	if f.aborted {
		return ErrAborted
	}

	if f.options.CheckOnly {
		if len(issues) == 0 {
			f.verboseProgress(fmt.Sprintf("Feed '%s' passed", f.name))
		}
		return nil
	}

	for _, event := range Events {
		if f.options.Learn && IsMutating(event) {
			// Skipped, but surface which configured keywords did not run.
			for _, p := range f.plugins.PluginsForEvent(event) {
				if f.config.Has(p.Name) {
					f.logger.Info("keyword not executed because of learn mode",
						"keyword", p.Name,
						"event", event)
				}
			}
			continue
		}

		f.runEvent(ctx, event, false)

		// Filtered entries are purged between events; rejected and
		// failed entries were already purged between plugins.
		f.purgeFiltered()

		switch event {
		case EventInput:
			f.verboseDetailsEntries()
			if len(f.entries) == 0 {
				f.verboseProgress(fmt.Sprintf(
					"Feed %s didn't produce any entries. This is likely to be misconfigured or non-functional input.",
					f.name))
			} else {
				f.verboseProgress(fmt.Sprintf("Feed %s produced %d entries.", f.name, len(f.entries)))
			}
		case EventFilter:
			f.verboseProgress(fmt.Sprintf(
				"Feed %s filtered %d entries (%d remains).",
				f.name, f.purged, len(f.entries)))
		}

		if f.aborted {
			return ErrAborted
		}
	}

	return nil
}

// Terminate runs the terminate event once, giving plugins a chance at
// cleanup. No-op on an aborted feed.
func (f *Feed) Terminate(ctx context.Context) {
	if f.aborted {
		return
	}
	f.runEvent(ctx, EventTerminate, false)
}

// Abort aborts the feed: no further plugins or events will execute.
// The abort event runs once so plugins can react; subsequent calls are
// no-ops. Unless silent, the abort is logged.
func (f *Feed) Abort(ctx context.Context, silent bool) {
	if f.aborted {
		return
	}
	if !silent {
		f.logger.Info("aborting feed")
	}
	f.aborted = true
	f.runEvent(ctx, EventAbort, true)
}

// InputURL is a helper for input plugins: it returns the url for the
// given keyword, supporting both the scalar shorthand
//
//	keyword: <address>
//
// and the structured form
//
//	keyword:
//	    url: <address>
func (f *Feed) InputURL(keyword string) (string, error) {
	sub, ok := f.config.Sub(keyword)
	if !ok {
		return "", fmt.Errorf("no configuration for keyword %q", keyword)
	}
	switch v := sub.(type) {
	case map[string]any:
		u, ok := v["url"].(string)
		if !ok || u == "" {
			return "", fmt.Errorf("input %s: %w", keyword, ErrInvalidInputConfig)
		}
		return u, nil
	case string:
		return v, nil
	default:
		return "", fmt.Errorf("input %s: %w", keyword, ErrInvalidInputConfig)
	}
}

// LogOnce logs the message at warning level at most once per retention
// window. The dedup state lives in the shared cache under a digest key,
// so the suppression spans feeds and runs.
func (f *Feed) LogOnce(ctx context.Context, msg string) {
	sum := md5.Sum([]byte(msg))
	key := "log-" + hex.EncodeToString(sum[:])

	if seen, ok := f.sharedCache.Get(ctx, key, false).(bool); ok && seen {
		return
	}
	if err := f.sharedCache.StoreFor(ctx, key, true, logOnceDays); err != nil {
		f.logger.Warn("failed to store log-once marker", "error", err)
	}
	f.logger.Warn(msg, "plugin", f.currentPlugin, "event", f.currentEvent)
}

// verboseProgress logs a progress line unless quiet mode is on.
func (f *Feed) verboseProgress(msg string) {
	if f.options.Quiet {
		return
	}
	f.logger.Info(msg)
}

// verboseDetails emits one per-entry trace line when the details option
// is enabled.
func (f *Feed) verboseDetails(msg, reason string) {
	if !f.options.Details {
		return
	}
	reasonStr := ""
	if reason != "" {
		reasonStr = " (" + reason + ")"
	}
	fmt.Fprintf(f.details, "+ %-8s %-12s %s%s\n", f.currentEvent, f.currentPlugin, msg, reasonStr)
}

// verboseDetailsEntries prints all produced entries when the details
// option is enabled.
func (f *Feed) verboseDetailsEntries() {
	if !f.options.Details {
		return
	}
	for _, e := range f.entries {
		f.verboseDetails(e.Title(), "")
	}
}

func containsEntry(list []*Entry, e *Entry) bool {
	return indexOfEntry(list, e) >= 0
}

func indexOfEntry(list []*Entry, e *Entry) int {
	for i, x := range list {
		if x == e {
			return i
		}
	}
	return -1
}
