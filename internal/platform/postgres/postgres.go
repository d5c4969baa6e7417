// Package postgres implements the persistence interfaces on
// PostgreSQL, for deployments where several runner instances share one
// cache database. Connections use the pgx driver through database/sql;
// schema management uses embedded goose migrations.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/feedrunner/feedrunner/internal/platform/logger"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Open connects to the PostgreSQL database at url and verifies the
// connection.
func Open(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres database: %w", err)
	}
	return db, nil
}

// RunMigrations applies any pending schema migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	log := logger.FromContext(ctx)

	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Debug("schema migrations applied")
	return nil
}
