package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// SchemaVersion is the latest schema version supported by the migrator.
const SchemaVersion = 1

// Migrate creates the tasks table if it does not exist. It is safe to run on
// every start.
func Migrate(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("migrate: db is nil")
	}

	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY);`)
	if err != nil {
		return fmt.Errorf("migrate: create schema_migrations: %w", err)
	}

	var current int
	err = db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations;`).Scan(&current)
	if err != nil {
		return fmt.Errorf("migrate: read current version: %w", err)
	}

	if current >= SchemaVersion {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migrate: begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS tasks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			task TEXT NOT NULL,
			deadline TEXT NOT NULL,
			reminder TEXT NOT NULL,
			created_at TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("migrate: create tasks table: %w", err)
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO schema_migrations(version) VALUES (?);`, SchemaVersion)
	if err != nil {
		return fmt.Errorf("migrate: record schema version: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("migrate: commit transaction: %w", err)
	}

	return nil
}
