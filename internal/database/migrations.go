package database

// Migration is one schema step. Statements run in a single transaction and
// must be safe to re-run.
type Migration struct {
	Version     int
	Description string
	Statements  []string
}

// Append only; versions increase by one.
var migrations = []Migration{
	{
		Version:     1,
		Description: "dataset cache and load history",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS dataset_cache (
				name            TEXT PRIMARY KEY,
				payload         TEXT NOT NULL,
				professor_count INTEGER NOT NULL DEFAULT 0,
				error_count     INTEGER NOT NULL DEFAULT 0,
				saved_at        TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS load_runs (
				id              TEXT PRIMARY KEY,
				source          TEXT NOT NULL,
				started_at      TEXT NOT NULL,
				finished_at     TEXT,
				outcome         TEXT NOT NULL DEFAULT 'running',
				professor_count INTEGER NOT NULL DEFAULT 0,
				error_count     INTEGER NOT NULL DEFAULT 0,
				message         TEXT
			)`,
			`CREATE INDEX IF NOT EXISTS idx_load_runs_started ON load_runs(started_at)`,
		},
	},
	{
		Version:     2,
		Description: "stored AI summaries",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS summaries (
				professor_id   TEXT PRIMARY KEY,
				model          TEXT NOT NULL,
				body           TEXT NOT NULL,
				summary        TEXT,
				strengths      TEXT,
				weaknesses     TEXT,
				recommendation TEXT,
				created_at     TEXT NOT NULL
			)`,
		},
	},
}

func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}

// pending returns the migrations after version current, in order.
func pending(current int) []Migration {
	for i, m := range migrations {
		if m.Version > current {
			return migrations[i:]
		}
	}
	return nil
}
