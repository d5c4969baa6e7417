package plugin

import (
	"github.com/feedrunner/feedrunner/internal/feed"
	"github.com/feedrunner/feedrunner/internal/registry"
)

// RegisterAll registers every built-in plugin with the registry.
// Registration order matters: it decides dispatch order between plugins
// with equal priority.
func RegisterAll(r *registry.Registry) error {
	infos := []feed.PluginInfo{
		NewMetainfoTitle().Info(),
		NewSeen().Info(),
		NewAcceptAll().Info(),
	}
	for _, info := range infos {
		if err := r.Register(info); err != nil {
			return err
		}
	}
	return nil
}
