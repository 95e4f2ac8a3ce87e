// Package cache persists the last successful dataset load so later runs can
// skip the network.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/TobiSchelling/facultypulse/internal/database"
	"github.com/TobiSchelling/facultypulse/internal/professor"
)

// Key is the fixed name the dataset is stored under.
const Key = "professors"

// DefaultMaxAge is how long a cached dataset counts as fresh.
const DefaultMaxAge = 7 * 24 * time.Hour

// Record is one persisted dataset snapshot.
type Record struct {
	Professors []professor.Professor   `json:"professors"`
	Errors     []professor.RecordError `json:"errors"`
	Timestamp  time.Time               `json:"timestamp"`
}

// Usable reports whether the record holds at least one professor.
func (r *Record) Usable() bool {
	return r != nil && len(r.Professors) > 0
}

// Store is the persistence the cache needs.
type Store interface {
	SaveDataset(ctx context.Context, row database.DatasetRow) error
	GetDataset(ctx context.Context, name string) (*database.DatasetRow, error)
	DeleteDataset(ctx context.Context, name string) error
}

// Cache reads and writes the dataset snapshot.
type Cache struct {
	store Store
}

// New creates a cache on top of store.
func New(store Store) *Cache {
	return &Cache{store: store}
}

// Read returns the stored record. Missing, unreadable or corrupt data all
// yield nil; the caller then loads from the source.
func (c *Cache) Read(ctx context.Context) *Record {
	row, err := c.store.GetDataset(ctx, Key)
	if err != nil {
		log.Printf("Could not read cache: %v", err)
		return nil
	}
	if row == nil {
		return nil
	}

	var r Record
	if err := json.Unmarshal(row.Payload, &r); err != nil {
		log.Printf("Ignoring corrupt cache: %v", err)
		return nil
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = row.SavedAt
	}
	if r.Errors == nil {
		r.Errors = []professor.RecordError{}
	}
	return &r
}

// Write replaces the stored record.
func (c *Cache) Write(ctx context.Context, r Record) error {
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding cache record: %w", err)
	}
	return c.store.SaveDataset(ctx, database.DatasetRow{
		Name:           Key,
		Payload:        payload,
		ProfessorCount: len(r.Professors),
		ErrorCount:     len(r.Errors),
		SavedAt:        r.Timestamp,
	})
}

// Clear drops the stored record.
func (c *Cache) Clear(ctx context.Context) error {
	return c.store.DeleteDataset(ctx, Key)
}

// IsFresh reports whether a record written at ts is younger than maxAge at now.
func IsFresh(now, ts time.Time, maxAge time.Duration) bool {
	return now.Sub(ts) < maxAge
}
