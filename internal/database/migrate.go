package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
)

// ErrSchemaTooNew is returned when the file was written by a newer release.
var ErrSchemaTooNew = errors.New("database schema is newer than this build supports")

func schemaVersion(ctx context.Context, conn *sql.DB) (int, error) {
	var v int
	if err := conn.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return v, nil
}

func setSchemaVersion(ctx context.Context, conn *sql.DB, v int) error {
	// PRAGMA does not take bind parameters.
	if _, err := conn.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", v)); err != nil {
		return fmt.Errorf("setting schema version %d: %w", v, err)
	}
	return nil
}

func hasTable(ctx context.Context, conn *sql.DB, name string) (bool, error) {
	var n int
	err := conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("looking up table %s: %w", name, err)
	}
	return n > 0, nil
}

// migrate applies every migration newer than the stored user_version.
func migrate(ctx context.Context, conn *sql.DB) error {
	current, err := schemaVersion(ctx, conn)
	if err != nil {
		return err
	}
	latest := latestVersion()
	if current > latest {
		return fmt.Errorf("%w: found version %d, latest known is %d", ErrSchemaTooNew, current, latest)
	}

	// Unversioned files with a cache table predate user_version tracking.
	// Every statement is idempotent, so they simply replay from migration 1.
	if current == 0 {
		legacy, err := hasTable(ctx, conn, "dataset_cache")
		if err != nil {
			return err
		}
		if legacy {
			log.Printf("Adopting unversioned database, replaying all migrations")
		}
	}

	for _, m := range pending(current) {
		log.Printf("Applying schema migration %d (%s)", m.Version, m.Description)
		if err := apply(ctx, conn, m); err != nil {
			return err
		}
	}
	return nil
}

func apply(ctx context.Context, conn *sql.DB, m Migration) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", m.Version, err)
	}
	defer tx.Rollback()

	for _, stmt := range m.Statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %d: %w", m.Version, err)
	}

	// user_version is stamped after the commit; every statement is
	// idempotent, so a crash in between only replays this migration.
	return setSchemaVersion(ctx, conn, m.Version)
}
