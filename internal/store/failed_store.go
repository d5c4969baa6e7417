package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// FailedEntry is one failed pipeline entry recorded for later operator
// inspection. It captures the entry's identity at the time of failure;
// the live entry object itself is not persisted.
type FailedEntry struct {
	ID       uuid.UUID `json:"id"`
	Title    string    `json:"title"`
	URL      string    `json:"url"`
	Reason   string    `json:"reason"`
	FailedAt time.Time `json:"failed_at"`
}

// FailedStore persists failed entries across runs. The log is bounded:
// callers trim it after adding so it cannot grow without limit.
type FailedStore interface {
	// Add appends a failed entry to the log.
	Add(ctx context.Context, fe FailedEntry) error

	// List returns all failed entries, oldest first.
	List(ctx context.Context) ([]FailedEntry, error)

	// Trim discards the oldest entries so that at most keep remain.
	Trim(ctx context.Context, keep int) error

	// Clear removes all failed entries.
	Clear(ctx context.Context) error
}
