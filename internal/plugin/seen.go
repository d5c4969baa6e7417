package plugin

import (
	"context"
	"fmt"

	"github.com/feedrunner/feedrunner/internal/feed"
)

// defaultSeenDays is how long a seen url is remembered.
const defaultSeenDays = 365

// seenConfig is the structured configuration for the seen plugin.
type seenConfig struct {
	Days int `validate:"gte=1,lte=3650"`
}

// Seen rejects entries whose url was already processed in an earlier
// run and remembers accepted urls at feed exit. The memory lives in the
// shared cache scope, so a url accepted by one feed is suppressed in
// all feeds.
//
// Configuration is optional:
//
//	seen: false          disables the plugin for the feed
//	seen:
//	    days: 90         shortens the retention window
type Seen struct{}

// NewSeen creates the seen plugin.
func NewSeen() *Seen {
	return &Seen{}
}

// Info returns the plugin's registration metadata. Seen filters late so
// cheaper filters run first, and learns at exit.
func (s *Seen) Info() feed.PluginInfo {
	return feed.PluginInfo{
		Name:    "seen",
		Builtin: true,
		Events:  []feed.Event{feed.EventFilter, feed.EventExit},
		Priorities: map[feed.Event]int{
			feed.EventFilter: -255,
		},
		Handler: s,
	}
}

// Handle implements feed.Handler.
func (s *Seen) Handle(ctx context.Context, event feed.Event, f *feed.Feed) error {
	cfg, disabled, err := s.parseConfig(f.Config())
	if err != nil {
		return err
	}
	if disabled {
		return nil
	}

	switch event {
	case feed.EventFilter:
		s.filter(ctx, f)
	case feed.EventExit:
		s.learn(ctx, f, cfg.Days)
	}
	return nil
}

// filter rejects entries whose url, or rewritten original url, has been
// seen before.
func (s *Seen) filter(ctx context.Context, f *feed.Feed) {
	cache := f.SharedCache()
	for _, e := range f.Entries() {
		for _, url := range []string{e.URL(), e.GetString(feed.KeyOriginalURL)} {
			if url == "" {
				continue
			}
			if seen, ok := cache.Get(ctx, url, false).(bool); ok && seen {
				f.Reject(e, "entry seen earlier")
				break
			}
		}
	}
}

// learn remembers the urls of accepted entries.
func (s *Seen) learn(ctx context.Context, f *feed.Feed, days int) {
	cache := f.SharedCache()
	for _, e := range f.Accepted() {
		url := e.URL()
		if url == "" {
			continue
		}
		if err := cache.StoreFor(ctx, url, true, days); err != nil {
			f.LogOnce(ctx, fmt.Sprintf("seen: failed to remember url %s: %v", url, err))
		}
	}
}

// parseConfig resolves the plugin's effective configuration for the
// feed. Absent configuration means enabled with defaults.
func (s *Seen) parseConfig(c feed.Config) (seenConfig, bool, error) {
	cfg := seenConfig{Days: defaultSeenDays}

	sub, ok := c.Sub("seen")
	if !ok {
		return cfg, false, nil
	}
	switch v := sub.(type) {
	case bool:
		return cfg, !v, nil
	case map[string]any:
		if days, ok := numberField(v, "days"); ok {
			cfg.Days = days
		}
		return cfg, false, nil
	default:
		return cfg, false, fmt.Errorf("seen: unsupported configuration type %T", sub)
	}
}

// ValidateConfig implements feed.ConfigValidator.
func (s *Seen) ValidateConfig(config any) []feed.ValidationIssue {
	switch v := config.(type) {
	case nil, bool:
		return nil
	case map[string]any:
		cfg := seenConfig{Days: defaultSeenDays}
		if days, ok := numberField(v, "days"); ok {
			cfg.Days = days
		} else if _, present := v["days"]; present {
			return []feed.ValidationIssue{{
				Message: "days must be a number",
				Path:    "days",
				Value:   v["days"],
			}}
		}
		return structIssues(cfg)
	default:
		return []feed.ValidationIssue{{
			Message: fmt.Sprintf("must be boolean or mapping, got %T", config),
			Value:   config,
		}}
	}
}

// numberField reads an integer-valued field from a decoded mapping,
// tolerating the numeric types YAML and JSON decoders produce.
func numberField(m map[string]any, key string) (int, bool) {
	switch n := m[key].(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
