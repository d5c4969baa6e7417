// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying data storage mechanism from
// the engine's core logic, allowing the cache and failed-entry log to
// remain independent of specific database technologies or on-disk
// formats.
package store
