package database

import "time"

// Load run outcomes.
const (
	RunRunning   = "running"
	RunLoaded    = "loaded"
	RunCached    = "cached"
	RunStale     = "stale"
	RunFailed    = "failed"
	RunCancelled = "cancelled"
)

// DatasetRow is one persisted dataset snapshot.
type DatasetRow struct {
	Name           string
	Payload        []byte
	ProfessorCount int
	ErrorCount     int
	SavedAt        time.Time
}

// LoadRun records one pass of the startup pipeline.
type LoadRun struct {
	ID             string
	Source         string
	StartedAt      time.Time
	FinishedAt     *time.Time
	Outcome        string
	ProfessorCount int
	ErrorCount     int
	Message        *string
}

// StoredSummary is a persisted AI summary for one professor.
type StoredSummary struct {
	ProfessorID    string
	Model          string
	Body           string
	Summary        string
	Strengths      []string
	Weaknesses     []string
	Recommendation string
	CreatedAt      time.Time
}

// Stats contains aggregate database statistics.
type Stats struct {
	CachedProfessors int
	CachedErrors     int
	CacheSavedAt     *time.Time
	LoadRuns         int
	Summaries        int
}
