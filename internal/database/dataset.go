package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SaveDataset replaces the snapshot stored under name in one transaction.
func (db *DB) SaveDataset(ctx context.Context, row DatasetRow) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin dataset write: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM dataset_cache WHERE name = ?", row.Name); err != nil {
		return fmt.Errorf("clearing dataset %q: %w", row.Name, err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO dataset_cache (name, payload, professor_count, error_count, saved_at)
		VALUES (?, ?, ?, ?, ?)`,
		row.Name, string(row.Payload), row.ProfessorCount, row.ErrorCount, formatTime(row.SavedAt),
	)
	if err != nil {
		return fmt.Errorf("writing dataset %q: %w", row.Name, err)
	}
	return tx.Commit()
}

// GetDataset returns the snapshot stored under name, or nil if there is none.
func (db *DB) GetDataset(ctx context.Context, name string) (*DatasetRow, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT name, payload, professor_count, error_count, saved_at
		FROM dataset_cache WHERE name = ?`, name,
	)

	var (
		d       DatasetRow
		payload string
		savedAt string
	)
	if err := row.Scan(&d.Name, &payload, &d.ProfessorCount, &d.ErrorCount, &savedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	t, err := parseTime(savedAt)
	if err != nil {
		return nil, fmt.Errorf("dataset %q has bad timestamp: %w", name, err)
	}
	d.Payload = []byte(payload)
	d.SavedAt = t
	return &d, nil
}

// DeleteDataset removes the snapshot stored under name.
func (db *DB) DeleteDataset(ctx context.Context, name string) error {
	_, err := db.conn.ExecContext(ctx, "DELETE FROM dataset_cache WHERE name = ?", name)
	return err
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
