package database

import (
	"context"
	"database/sql"
	"errors"
)

// GetStats returns aggregate database statistics for the cache stored under name.
func (db *DB) GetStats(ctx context.Context, name string) (*Stats, error) {
	s := &Stats{}

	queries := []struct {
		sql  string
		dest *int
	}{
		{"SELECT COUNT(*) FROM load_runs", &s.LoadRuns},
		{"SELECT COUNT(*) FROM summaries", &s.Summaries},
	}
	for _, q := range queries {
		if err := db.conn.QueryRowContext(ctx, q.sql).Scan(q.dest); err != nil {
			return nil, err
		}
	}

	var savedAt string
	err := db.conn.QueryRowContext(ctx,
		"SELECT professor_count, error_count, saved_at FROM dataset_cache WHERE name = ?", name,
	).Scan(&s.CachedProfessors, &s.CachedErrors, &savedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return s, nil
	case err != nil:
		return nil, err
	}
	if t, err := parseTime(savedAt); err == nil {
		s.CacheSavedAt = &t
	}
	return s, nil
}
