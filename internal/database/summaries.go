package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	sq "github.com/Masterminds/squirrel"
)

// UpsertSummary stores the AI summary for a professor, replacing any previous one.
func (db *DB) UpsertSummary(ctx context.Context, s StoredSummary) error {
	strengths, err := json.Marshal(s.Strengths)
	if err != nil {
		return err
	}
	weaknesses, err := json.Marshal(s.Weaknesses)
	if err != nil {
		return err
	}

	q, args, err := sq.Insert("summaries").
		Options("OR REPLACE").
		Columns("professor_id", "model", "body", "summary", "strengths", "weaknesses",
			"recommendation", "created_at").
		Values(s.ProfessorID, s.Model, s.Body, s.Summary, string(strengths), string(weaknesses),
			s.Recommendation, formatTime(s.CreatedAt)).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := db.conn.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("storing summary for %s: %w", s.ProfessorID, err)
	}
	return nil
}

// GetSummary returns the stored summary for a professor, or nil.
func (db *DB) GetSummary(ctx context.Context, professorID string) (*StoredSummary, error) {
	q, args, err := sq.Select("professor_id", "model", "body", "summary", "strengths",
		"weaknesses", "recommendation", "created_at").
		From("summaries").
		Where(sq.Eq{"professor_id": professorID}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var (
		s                                   StoredSummary
		summary, strengths, weak, recommend sql.NullString
		created                             string
	)
	err = db.conn.QueryRowContext(ctx, q, args...).Scan(&s.ProfessorID, &s.Model, &s.Body,
		&summary, &strengths, &weak, &recommend, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	s.Summary = summary.String
	s.Recommendation = recommend.String
	// A corrupt list column drops that list; the rest of the summary is kept.
	if strengths.Valid {
		if err := json.Unmarshal([]byte(strengths.String), &s.Strengths); err != nil {
			log.Printf("Ignoring corrupt strengths for %s: %v", professorID, err)
			s.Strengths = nil
		}
	}
	if weak.Valid {
		if err := json.Unmarshal([]byte(weak.String), &s.Weaknesses); err != nil {
			log.Printf("Ignoring corrupt weaknesses for %s: %v", professorID, err)
			s.Weaknesses = nil
		}
	}
	if s.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	return &s, nil
}

// DeleteSummary removes the stored summary for a professor.
func (db *DB) DeleteSummary(ctx context.Context, professorID string) error {
	q, args, err := sq.Delete("summaries").Where(sq.Eq{"professor_id": professorID}).ToSql()
	if err != nil {
		return err
	}
	_, err = db.conn.ExecContext(ctx, q, args...)
	return err
}
