// Package service coordinates feed executions: it owns the wiring
// between configuration, the plugin registry, and the persistence
// layer, runs configured feeds to completion, and records failed
// entries for operator inspection.
package service
