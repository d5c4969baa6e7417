package store

import (
	"context"
	"time"
)

// DateFormat is the calendar-day format used for record timestamps.
// Expiry is computed with date-only granularity, so records store a
// date string rather than a full timestamp.
const DateFormat = "2006-01-02"

// Record is one cached value together with its retention metadata.
type Record struct {
	// Stored is the calendar day the record was written or last read,
	// in DateFormat.
	Stored string `json:"stored"`

	// Days is the number of days the record is retained after Stored.
	Days int `json:"days"`

	// Value is the cached payload. SQL-backed stores serialize it as
	// JSON, so values must be JSON-compatible.
	Value any `json:"value"`
}

// Today returns the current calendar day in DateFormat.
func Today(now time.Time) string {
	return now.Format(DateFormat)
}

// CacheStore is the persistent, multi-namespace keyed store backing the
// engine's module caches. Records are addressed by (scope, namespace, key):
// scope is a feed name or the shared scope, namespace is typically a
// plugin name within that scope.
//
// Implementations must treat an absent record as ErrNotFound rather than
// a zero Record, so callers can distinguish "missing" from "stored zero".
type CacheStore interface {
	// Get returns the record stored under (scope, namespace, key).
	// Returns ErrNotFound if no record exists.
	Get(ctx context.Context, scope, namespace, key string) (Record, error)

	// Put unconditionally upserts the record under (scope, namespace, key).
	Put(ctx context.Context, scope, namespace, key string, rec Record) error

	// Delete removes and returns the record under (scope, namespace, key).
	// Returns ErrNotFound if no record exists.
	Delete(ctx context.Context, scope, namespace, key string) (Record, error)

	// Keys returns all keys present in the given namespace, in
	// unspecified order. A namespace with no records yields an empty
	// slice, not an error.
	Keys(ctx context.Context, scope, namespace string) ([]string, error)
}
