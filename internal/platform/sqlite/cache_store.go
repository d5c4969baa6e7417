package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/feedrunner/feedrunner/internal/store"
)

// CacheStore implements store.CacheStore on SQLite. Record values are
// serialized as JSON.
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
		WHERE scope = ? AND namespace = ? AND key = ?
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

	if err := decodeValue(value, &rec); err != nil {
		return store.Record{}, err
	}
	return rec, nil
}

// Put unconditionally upserts the record under (scope, namespace, key).
func (s *CacheStore) Put(ctx context.Context, scope, namespace, key string, rec store.Record) error {
	value, err := encodeValue(rec)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO cache_records (scope, namespace, key, stored, days, value)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (scope, namespace, key)
		DO UPDATE SET stored = excluded.stored, days = excluded.days, value = excluded.value
	`
	if _, err := s.db.ExecContext(ctx, query, scope, namespace, key, rec.Stored, rec.Days, value); err != nil {
		return fmt.Errorf("failed to write cache record: %w", err)
	}
	return nil
}

// Delete removes and returns the record under (scope, namespace, key).
func (s *CacheStore) Delete(ctx context.Context, scope, namespace, key string) (store.Record, error) {
	rec, err := s.Get(ctx, scope, namespace, key)
	if err != nil {
		return store.Record{}, err
	}

	query := `DELETE FROM cache_records WHERE scope = ? AND namespace = ? AND key = ?`
	if _, err := s.db.ExecContext(ctx, query, scope, namespace, key); err != nil {
		return store.Record{}, fmt.Errorf("failed to delete cache record: %w", err)
	}
	return rec, nil
}

// Keys returns all keys present in the given namespace.
func (s *CacheStore) Keys(ctx context.Context, scope, namespace string) ([]string, error) {
	query := `SELECT key FROM cache_records WHERE scope = ? AND namespace = ?`
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

func encodeValue(rec store.Record) (sql.NullString, error) {
	if rec.Value == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(rec.Value)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("%w: value is not JSON-compatible: %v",
			store.ErrInvalidRecord, err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func decodeValue(value sql.NullString, rec *store.Record) error {
	if !value.Valid {
		rec.Value = nil
		return nil
	}
	if err := json.Unmarshal([]byte(value.String), &rec.Value); err != nil {
		// Corrupt payloads surface as a missing value so the cache
		// layer can fall back to the caller's default.
		rec.Value = nil
	}
	return nil
}
