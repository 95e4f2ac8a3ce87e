package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

// StartLoadRun records the beginning of a load and returns its ID.
func (db *DB) StartLoadRun(ctx context.Context, source string, startedAt time.Time) (string, error) {
	id := uuid.NewString()
	q, args, err := sq.Insert("load_runs").
		Columns("id", "source", "started_at", "outcome").
		Values(id, source, formatTime(startedAt), RunRunning).
		ToSql()
	if err != nil {
		return "", err
	}
	if _, err := db.conn.ExecContext(ctx, q, args...); err != nil {
		return "", fmt.Errorf("recording load run: %w", err)
	}
	return id, nil
}

// FinishLoadRun stores the outcome and counts of a load run.
func (db *DB) FinishLoadRun(ctx context.Context, id, outcome string, professors, errs int, message string) error {
	update := sq.Update("load_runs").
		Set("finished_at", formatTime(time.Now())).
		Set("outcome", outcome).
		Set("professor_count", professors).
		Set("error_count", errs).
		Where(sq.Eq{"id": id})
	if message != "" {
		update = update.Set("message", message)
	}

	q, args, err := update.ToSql()
	if err != nil {
		return err
	}
	res, err := db.conn.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("finishing load run %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("load run %s not found", id)
	}
	return nil
}

// RecentLoadRuns returns the newest runs first, optionally limited to one outcome.
func (db *DB) RecentLoadRuns(ctx context.Context, limit int, outcome string) ([]LoadRun, error) {
	sel := sq.Select("id", "source", "started_at", "finished_at", "outcome",
		"professor_count", "error_count", "message").
		From("load_runs").
		OrderBy("started_at DESC")
	if outcome != "" {
		sel = sel.Where(sq.Eq{"outcome": outcome})
	}
	if limit > 0 {
		sel = sel.Limit(uint64(limit))
	}

	q, args, err := sel.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := db.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []LoadRun
	for rows.Next() {
		var (
			r                 LoadRun
			started           string
			finished, message sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Source, &started, &finished, &r.Outcome,
			&r.ProfessorCount, &r.ErrorCount, &message); err != nil {
			return nil, err
		}
		if r.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		if finished.Valid {
			t, err := parseTime(finished.String)
			if err != nil {
				return nil, err
			}
			r.FinishedAt = &t
		}
		if message.Valid {
			r.Message = &message.String
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
