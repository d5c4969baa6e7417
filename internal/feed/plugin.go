package feed

import "context"

// Handler is the callable entry point of a plugin. The engine invokes
// it once per (event, feed) pair the plugin is registered for; the
// handler inspects and mutates the feed's entries and classification
// lists through the Feed's methods.
//
// Returning a *PluginWarning (possibly wrapped) marks the failure
// recoverable; any other non-nil error aborts the whole feed.
type Handler interface {
	Handle(ctx context.Context, event Event, f *Feed) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, event Event, f *Feed) error

// Handle calls fn(ctx, event, f).
func (fn HandlerFunc) Handle(ctx context.Context, event Event, f *Feed) error {
	return fn(ctx, event, f)
}

// ValidationIssue is one structured configuration error reported during
// feed validation.
type ValidationIssue struct {
	// Keyword is the plugin keyword the issue belongs to, or empty for
	// feed-level issues.
	Keyword string

	// Message describes what is wrong.
	Message string

	// Path locates the offending field within the keyword's
	// configuration, when known.
	Path string

	// Value is the offending value, when known.
	Value any
}

// String renders the issue the way it is reported to operators.
func (i ValidationIssue) String() string {
	s := i.Message
	if i.Keyword != "" {
		s = i.Keyword + " " + s
	}
	if i.Path != "" {
		s += " (at " + i.Path + ")"
	}
	return s
}

// ConfigValidator is optionally implemented by plugin handlers that can
// check their configuration slice before execution. Plugins without it
// still run, but validation logs a warning since their configuration
// errors surface only at execution time.
type ConfigValidator interface {
	ValidateConfig(config any) []ValidationIssue
}

// PluginInfo is the registration metadata the engine consumes for one
// plugin. The engine reads it; it never mutates registry state.
type PluginInfo struct {
	// Name is the configuration keyword the plugin is addressed by.
	Name string

	// Builtin plugins run for every feed; non-builtin plugins run only
	// when the feed configuration references their name.
	Builtin bool

	// Events lists the lifecycle events the plugin handles.
	Events []Event

	// Priorities supplies the plugin's default execution priority per
	// event. Events absent from the map default to 0. A per-feed
	// configured priority overrides these defaults.
	Priorities map[Event]int

	// Handler is the plugin's entry point.
	Handler Handler
}

// HandlesEvent reports whether the plugin is registered for the event.
func (p PluginInfo) HandlesEvent(event Event) bool {
	for _, e := range p.Events {
		if e == event {
			return true
		}
	}
	return false
}

// PluginSource is the registry lookup interface the engine consumes.
// Implementations must return plugins in a stable order so that
// priority ties dispatch deterministically.
type PluginSource interface {
	// PluginsForEvent returns all plugins registered for the event, in
	// registration order.
	PluginsForEvent(event Event) []PluginInfo

	// Plugin resolves a plugin by its configuration keyword.
	Plugin(name string) (PluginInfo, bool)
}

// FailedSink records failed entries for later operator inspection. It
// is exposed by the surrounding system (the runner), not owned by the
// engine.
type FailedSink interface {
	AddFailed(e *Entry, reason string)
}
