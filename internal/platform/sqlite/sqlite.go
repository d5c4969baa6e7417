// Package sqlite implements the persistence interfaces over a local
// SQLite database via the pure-Go modernc.org/sqlite driver, so a
// single-binary deployment needs no database server.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// schema creates the tables backing the cache and the failed-entry
// log. SQLite has no migration story worth carrying for two tables;
// idempotent DDL at open time is enough.
const schema = `
CREATE TABLE IF NOT EXISTS cache_records (
	scope     TEXT NOT NULL,
	namespace TEXT NOT NULL,
	key       TEXT NOT NULL,
	stored    TEXT NOT NULL,
	days      INTEGER NOT NULL,
	value     TEXT,
	PRIMARY KEY (scope, namespace, key)
);

CREATE TABLE IF NOT EXISTS failed_entries (
	id        TEXT PRIMARY KEY,
	title     TEXT NOT NULL,
	url       TEXT NOT NULL,
	reason    TEXT NOT NULL,
	failed_at TIMESTAMP NOT NULL
);
`

// Open opens (creating if necessary) the SQLite database at path and
// ensures the schema exists. The returned handle is shared by the
// cache and failed stores.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}

	// The engine is single-threaded per feed, but multiple feeds may
	// share the store; serialize access at the connection level.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create sqlite schema: %w", err)
	}
	return db, nil
}
