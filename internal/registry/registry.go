// Package registry maintains the set of available plugins and answers
// the engine's per-event lookups. Registration order is preserved so
// priority ties dispatch deterministically.
package registry

import (
	"errors"
	"fmt"

	"github.com/feedrunner/feedrunner/internal/feed"
)

// Registration errors.
var (
	// ErrDuplicateName is returned when a plugin name is registered twice.
	ErrDuplicateName = errors.New("plugin name already registered")

	// ErrInvalidPlugin is returned for registrations missing required
	// metadata.
	ErrInvalidPlugin = errors.New("invalid plugin registration")
)

// Registry holds plugin registrations. It implements feed.PluginSource.
//
// A Registry is populated once at startup and read-only afterwards, so
// no locking is needed for concurrent feed executions.
type Registry struct {
	plugins map[string]feed.PluginInfo
	order   []string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		plugins: make(map[string]feed.PluginInfo),
	}
}

// Register adds a plugin to the registry. The plugin must have a name,
// a handler, and at least one event.
func (r *Registry) Register(info feed.PluginInfo) error {
	if info.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidPlugin)
	}
	if info.Handler == nil {
		return fmt.Errorf("%w: plugin %q has no handler", ErrInvalidPlugin, info.Name)
	}
	if len(info.Events) == 0 {
		return fmt.Errorf("%w: plugin %q handles no events", ErrInvalidPlugin, info.Name)
	}
	if _, exists := r.plugins[info.Name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateName, info.Name)
	}

	r.plugins[info.Name] = info
	r.order = append(r.order, info.Name)
	return nil
}

// MustRegister registers a plugin and panics on error. Intended for
// startup wiring of built-in plugins, where a registration error is a
// programming mistake.
func (r *Registry) MustRegister(info feed.PluginInfo) {
	if err := r.Register(info); err != nil {
		// ALLOW-PANIC: startup wiring, not request handling
		panic(err)
	}
}

// Plugin resolves a plugin by its configuration keyword.
func (r *Registry) Plugin(name string) (feed.PluginInfo, bool) {
	p, ok := r.plugins[name]
	return p, ok
}

// PluginsForEvent returns all plugins registered for the event, in
// registration order.
func (r *Registry) PluginsForEvent(event feed.Event) []feed.PluginInfo {
	var out []feed.PluginInfo
	for _, name := range r.order {
		p := r.plugins[name]
		if p.HandlesEvent(event) {
			out = append(out, p)
		}
	}
	return out
}

// Names returns all registered plugin names, in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
