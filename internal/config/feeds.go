package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/feedrunner/feedrunner/internal/feed"
)

// feedsFile is the on-disk shape of the feed definitions file:
//
//	feeds:
//	  my-feed:
//	    some_input: http://example.com/feed
//	    accept_all: true
type feedsFile struct {
	Feeds map[string]feed.Config `yaml:"feeds"`
}

// LoadFeeds reads the feed definitions from the given YAML file.
// Keys under each feed are plugin keywords; their semantics belong to
// the plugins, so no schema beyond well-formedness is enforced here.
// Feed validation resolves keywords against the registry at run time.
func LoadFeeds(path string) (map[string]feed.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read feeds file %s: %w", path, err)
	}

	var parsed feedsFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse feeds file %s: %w", path, err)
	}
	if len(parsed.Feeds) == 0 {
		return nil, fmt.Errorf("feeds file %s defines no feeds", path)
	}

	return parsed.Feeds, nil
}
