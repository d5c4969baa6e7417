package feed

import "errors"

// Common engine errors.
var (
	// ErrInvalidInputConfig is returned by InputURL when a structured
	// input configuration is missing its url field.
	ErrInvalidInputConfig = errors.New("input has invalid configuration, url is missing")
)

// PluginWarning is a recoverable plugin failure: the specific concern
// failed but the feed should continue with the next plugin. Plugins
// return it (usually wrapped) instead of a plain error when the
// condition is expected and survivable, for example a single
// unreachable source.
//
// Anything that is not a PluginWarning escalates to a full feed abort.
type PluginWarning struct {
	// Message is the operator-facing description of the condition.
	Message string

	// LogOnce requests deduplicated logging: the message is logged at
	// most once per retention window, across runs, via the shared cache.
	// Conditions that repeat on every run set this to avoid log spam.
	LogOnce bool
}

// NewWarning creates a recoverable plugin warning.
func NewWarning(message string) *PluginWarning {
	return &PluginWarning{Message: message}
}

// NewWarningOnce creates a recoverable plugin warning whose message is
// logged at most once per retention window.
func NewWarningOnce(message string) *PluginWarning {
	return &PluginWarning{Message: message, LogOnce: true}
}

// Error implements the error interface.
func (w *PluginWarning) Error() string {
	return w.Message
}

// AsWarning extracts a PluginWarning from an error chain.
// Returns nil if the error is not a plugin warning.
func AsWarning(err error) *PluginWarning {
	var w *PluginWarning
	if errors.As(err, &w) {
		return w
	}
	return nil
}
