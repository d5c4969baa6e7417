package plugin

import (
	"context"
	"net/url"
	"path"
	"strings"

	"github.com/feedrunner/feedrunner/internal/feed"
)

// MetainfoTitle derives a title from the url's basename for entries
// that were produced without one, so a bare url input still yields
// valid entries. Entries that already carry a title are untouched.
type MetainfoTitle struct{}

// NewMetainfoTitle creates the metainfo_title plugin.
func NewMetainfoTitle() *MetainfoTitle {
	return &MetainfoTitle{}
}

// Info returns the plugin's registration metadata.
func (m *MetainfoTitle) Info() feed.PluginInfo {
	return feed.PluginInfo{
		Name:    "metainfo_title",
		Builtin: true,
		Events:  []feed.Event{feed.EventMetainfo},
		Handler: m,
	}
}

// Handle implements feed.Handler.
func (m *MetainfoTitle) Handle(ctx context.Context, event feed.Event, f *feed.Feed) error {
	for _, e := range f.Entries() {
		if e.Has(feed.KeyTitle) {
			continue
		}
		title := titleFromURL(e.URL())
		if title == "" {
			continue
		}
		e.Set(feed.KeyTitle, title)
	}
	return nil
}

// ValidateConfig implements feed.ConfigValidator. The plugin takes no
// configuration beyond an enable flag.
func (m *MetainfoTitle) ValidateConfig(config any) []feed.ValidationIssue {
	if _, ok := config.(bool); !ok && config != nil {
		return []feed.ValidationIssue{{
			Message: "takes no configuration",
			Value:   config,
		}}
	}
	return nil
}

// titleFromURL turns the last path segment of a url into a readable
// title: extension stripped, separators replaced with spaces.
func titleFromURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" {
		return ""
	}
	base = strings.TrimSuffix(base, path.Ext(base))
	base = strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(base)
	return strings.TrimSpace(base)
}
