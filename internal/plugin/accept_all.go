package plugin

import (
	"context"
	"fmt"

	"github.com/feedrunner/feedrunner/internal/feed"
)

// AcceptAll accepts every entry in the feed. Useful for feeds whose
// input is already curated and needs no filtering.
//
//	accept_all: true
type AcceptAll struct{}

// NewAcceptAll creates the accept_all plugin.
func NewAcceptAll() *AcceptAll {
	return &AcceptAll{}
}

// Info returns the plugin's registration metadata.
func (a *AcceptAll) Info() feed.PluginInfo {
	return feed.PluginInfo{
		Name:    "accept_all",
		Events:  []feed.Event{feed.EventFilter},
		Handler: a,
	}
}

// Handle implements feed.Handler.
func (a *AcceptAll) Handle(ctx context.Context, event feed.Event, f *feed.Feed) error {
	sub, _ := f.Config().Sub("accept_all")
	if enabled, ok := sub.(bool); ok && !enabled {
		return nil
	}
	for _, e := range f.Entries() {
		f.Accept(e, "accept_all")
	}
	return nil
}

// ValidateConfig implements feed.ConfigValidator.
func (a *AcceptAll) ValidateConfig(config any) []feed.ValidationIssue {
	if _, ok := config.(bool); !ok && config != nil {
		return []feed.ValidationIssue{{
			Message: fmt.Sprintf("must be boolean, got %T", config),
			Value:   config,
		}}
	}
	return nil
}
