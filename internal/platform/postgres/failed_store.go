package postgres

import (
	"context"
	"fmt"

	"github.com/feedrunner/feedrunner/internal/store"
)

// FailedStore implements store.FailedStore on PostgreSQL.
type FailedStore struct {
	db store.DBTX
}

// NewFailedStore creates a FailedStore over the given database handle.
func NewFailedStore(db store.DBTX) *FailedStore {
	return &FailedStore{db: db}
}

// Add appends a failed entry to the log.
func (s *FailedStore) Add(ctx context.Context, fe store.FailedEntry) error {
	query := `
		INSERT INTO failed_entries (id, title, url, reason, failed_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := s.db.ExecContext(ctx, query, fe.ID, fe.Title, fe.URL, fe.Reason, fe.FailedAt); err != nil {
		return fmt.Errorf("failed to record failed entry: %w", err)
	}
	return nil
}

// List returns all failed entries, oldest first.
func (s *FailedStore) List(ctx context.Context) ([]store.FailedEntry, error) {
	query := `
		SELECT id, title, url, reason, failed_at
		FROM failed_entries
		ORDER BY failed_at ASC, id ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list failed entries: %w", err)
	}
	defer rows.Close()

	var out []store.FailedEntry
	for rows.Next() {
		var fe store.FailedEntry
		if err := rows.Scan(&fe.ID, &fe.Title, &fe.URL, &fe.Reason, &fe.FailedAt); err != nil {
			return nil, fmt.Errorf("failed to scan failed entry: %w", err)
		}
		out = append(out, fe)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate failed entries: %w", err)
	}
	return out, nil
}

// Trim discards the oldest entries so that at most keep remain.
func (s *FailedStore) Trim(ctx context.Context, keep int) error {
	if keep < 0 {
		keep = 0
	}
	query := `
		DELETE FROM failed_entries
		WHERE id NOT IN (
			SELECT id FROM failed_entries
			ORDER BY failed_at DESC, id DESC
			LIMIT $1
		)
	`
	if _, err := s.db.ExecContext(ctx, query, keep); err != nil {
		return fmt.Errorf("failed to trim failed entries: %w", err)
	}
	return nil
}

// Clear removes all failed entries.
func (s *FailedStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM failed_entries`); err != nil {
		return fmt.Errorf("failed to clear failed entries: %w", err)
	}
	return nil
}
