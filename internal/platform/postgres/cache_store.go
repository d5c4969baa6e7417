package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/feedrunner/feedrunner/internal/store"
)

// CacheStore implements store.CacheStore on PostgreSQL. Record values
// are stored as JSONB.
type CacheStore struct {
	db store.DBTX
}

// NewCacheStore creates a CacheStore over the given database handle.
func NewCacheStore(db store.DBTX) *CacheStore {
	return &CacheStore{db: db}
}

// Get returns the record stored under (scope, namespace, key).
func (s *CacheStore) Get(ctx context.Context, scope, namespace, key string) (store.Record, error) {
	query := `
		SELECT stored, days, value
		FROM cache_records
		WHERE scope = $1 AND namespace = $2 AND key = $3
	`
	var rec store.Record
	var value sql.NullString
	err := s.db.QueryRowContext(ctx, query, scope, namespace, key).
		Scan(&rec.Stored, &rec.Days, &value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Record{}, store.ErrNotFound
		}
		return store.Record{}, fmt.Errorf("failed to read cache record: %w", err)
	}

	if value.Valid {
		if err := json.Unmarshal([]byte(value.String), &rec.Value); err != nil {
			// Corrupt payloads surface as a missing value so the cache
			// layer can fall back to the caller's default.
			rec.Value = nil
		}
	}
	return rec, nil
}

// Put unconditionally upserts the record under (scope, namespace, key).
func (s *CacheStore) Put(ctx context.Context, scope, namespace, key string, rec store.Record) error {
	var value sql.NullString
	if rec.Value != nil {
		data, err := json.Marshal(rec.Value)
		if err != nil {
			return fmt.Errorf("%w: value is not JSON-compatible: %v", store.ErrInvalidRecord, err)
		}
		value = sql.NullString{String: string(data), Valid: true}
	}

	query := `
		INSERT INTO cache_records (scope, namespace, key, stored, days, value)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (scope, namespace, key)
		DO UPDATE SET stored = EXCLUDED.stored, days = EXCLUDED.days, value = EXCLUDED.value
	`
	if _, err := s.db.ExecContext(ctx, query, scope, namespace, key, rec.Stored, rec.Days, value); err != nil {
		return fmt.Errorf("failed to write cache record: %w", err)
	}
	return nil
}

// Delete removes and returns the record under (scope, namespace, key).
func (s *CacheStore) Delete(ctx context.Context, scope, namespace, key string) (store.Record, error) {
	query := `
		DELETE FROM cache_records
		WHERE scope = $1 AND namespace = $2 AND key = $3
		RETURNING stored, days, value
	`
	var rec store.Record
	var value sql.NullString
	err := s.db.QueryRowContext(ctx, query, scope, namespace, key).
		Scan(&rec.Stored, &rec.Days, &value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Record{}, store.ErrNotFound
		}
		return store.Record{}, fmt.Errorf("failed to delete cache record: %w", err)
	}

	if value.Valid {
		if err := json.Unmarshal([]byte(value.String), &rec.Value); err != nil {
			rec.Value = nil
		}
	}
	return rec, nil
}

// Keys returns all keys present in the given namespace.
func (s *CacheStore) Keys(ctx context.Context, scope, namespace string) ([]string, error) {
	query := `SELECT key FROM cache_records WHERE scope = $1 AND namespace = $2`
	rows, err := s.db.QueryContext(ctx, query, scope, namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to list cache keys: %w", err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan cache key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cache keys: %w", err)
	}
	return keys, nil
}
