package feed

// Config is one feed's configuration: a mapping from plugin keyword to
// either a scalar shorthand value or a structured sub-configuration.
// Presence of a keyword enables that plugin for the feed.
//
// A structured sub-configuration may carry a "priority" field overriding
// the plugin's default execution priority for every event it handles.
type Config map[string]any

// Has reports whether the keyword is present, i.e. whether the plugin
// is enabled for this feed.
func (c Config) Has(keyword string) bool {
	_, ok := c[keyword]
	return ok
}

// Sub returns the configuration slice for the keyword, which may be a
// scalar or a map, and whether the keyword is present.
func (c Config) Sub(keyword string) (any, bool) {
	v, ok := c[keyword]
	return v, ok
}

// Priority returns the configured priority override for the keyword.
// Only a structured sub-configuration can carry one; scalar shorthands
// and absent keywords report no override.
func (c Config) Priority(keyword string) (int, bool) {
	sub, ok := c[keyword].(map[string]any)
	if !ok {
		return 0, false
	}
	switch p := sub["priority"].(type) {
	case int:
		return p, true
	case float64:
		// YAML and JSON decoders may hand numbers over as float64.
		return int(p), true
	default:
		return 0, false
	}
}

// Keywords returns all plugin keywords present in the configuration, in
// unspecified order.
func (c Config) Keywords() []string {
	out := make([]string, 0, len(c))
	for k := range c {
		out = append(out, k)
	}
	return out
}
