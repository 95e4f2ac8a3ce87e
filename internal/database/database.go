// Package database stores the dataset cache, load history and AI summaries
// in a local SQLite file.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

var pragmas = []string{
	"journal_mode=WAL",
	"foreign_keys=ON",
	"busy_timeout=5000",
}

// DB wraps a SQLite database connection.
type DB struct {
	conn *sql.DB
	path string
}

// Open creates or opens the database at dbPath and brings its schema up to date.
func Open(dbPath string) (*DB, error) {
	return OpenContext(context.Background(), dbPath)
}

// OpenContext is Open bounded by ctx.
func OpenContext(ctx context.Context, dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// A single connection serializes cache saves and summary writes.
	conn.SetMaxOpenConns(1)

	for _, p := range pragmas {
		if _, err := conn.ExecContext(ctx, "PRAGMA "+p); err != nil {
			conn.Close()
			return nil, fmt.Errorf("setting %s: %w", p, err)
		}
	}

	if err := migrate(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return &DB{conn: conn, path: dbPath}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}
