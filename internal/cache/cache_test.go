package cache

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/TobiSchelling/facultypulse/internal/database"
	"github.com/TobiSchelling/facultypulse/internal/professor"
)

func openTestCache(t *testing.T) (*Cache, *database.DB) {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db), db
}

func TestIsFresh(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	maxAge := 7 * 24 * time.Hour

	if !IsFresh(now, now.Add(-6*24*time.Hour), maxAge) {
		t.Error("expected 6-day-old record to be fresh")
	}
	if IsFresh(now, now.Add(-8*24*time.Hour), maxAge) {
		t.Error("expected 8-day-old record to be stale")
	}
	if IsFresh(now, now.Add(-maxAge), maxAge) {
		t.Error("expected record exactly maxAge old to be stale")
	}
}

func TestWriteThenRead(t *testing.T) {
	c, _ := openTestCache(t)
	ctx := context.Background()

	if r := c.Read(ctx); r != nil {
		t.Fatalf("expected nil on empty cache, got %+v", r)
	}

	ts := time.Date(2026, 5, 1, 8, 30, 0, 0, time.UTC)
	in := Record{
		Professors: []professor.Professor{{ID: "p1", Name: "Ana", University: "UNAM", Tags: []string{}, Ratings: []professor.Rating{}}},
		Errors:     []professor.RecordError{{RecordID: "x", Message: "boo"}},
		Timestamp:  ts,
	}
	if err := c.Write(ctx, in); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got := c.Read(ctx)
	if got == nil {
		t.Fatal("expected record after write")
	}
	if !got.Timestamp.Equal(ts) {
		t.Errorf("expected timestamp %v, got %v", ts, got.Timestamp)
	}
	if len(got.Professors) != 1 || got.Professors[0].Name != "Ana" {
		t.Errorf("unexpected professors %+v", got.Professors)
	}
	if len(got.Errors) != 1 || got.Errors[0].RecordID != "x" {
		t.Errorf("unexpected errors %+v", got.Errors)
	}
	if !got.Usable() {
		t.Error("expected record with a professor to be usable")
	}
}

func TestReadCorruptReturnsNil(t *testing.T) {
	c, db := openTestCache(t)
	ctx := context.Background()

	if err := db.SaveDataset(ctx, database.DatasetRow{Name: Key, Payload: []byte("{not json"), SavedAt: time.Now()}); err != nil {
		t.Fatalf("SaveDataset: %v", err)
	}
	if r := c.Read(ctx); r != nil {
		t.Errorf("expected nil for corrupt cache, got %+v", r)
	}
}

func TestEmptyRecordNotUsable(t *testing.T) {
	var r *Record
	if r.Usable() {
		t.Error("nil record must not be usable")
	}
	if (&Record{}).Usable() {
		t.Error("record without professors must not be usable")
	}
}

type failingStore struct{}

func (failingStore) SaveDataset(context.Context, database.DatasetRow) error {
	return errors.New("disk full")
}
func (failingStore) GetDataset(context.Context, string) (*database.DatasetRow, error) {
	return nil, errors.New("locked")
}
func (failingStore) DeleteDataset(context.Context, string) error { return nil }

func TestStoreFailures(t *testing.T) {
	c := New(failingStore{})
	if r := c.Read(context.Background()); r != nil {
		t.Error("expected nil when the store fails")
	}
	if err := c.Write(context.Background(), Record{}); err == nil {
		t.Error("expected write error to surface")
	}
}
