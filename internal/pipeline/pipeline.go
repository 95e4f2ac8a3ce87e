package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/TobiSchelling/facultypulse/internal/cache"
	"github.com/TobiSchelling/facultypulse/internal/collect"
	"github.com/TobiSchelling/facultypulse/internal/config"
	"github.com/TobiSchelling/facultypulse/internal/database"
	"github.com/TobiSchelling/facultypulse/internal/fetch"
	"github.com/TobiSchelling/facultypulse/internal/professor"
)

// ErrNoDataset is returned by New when the config names no dataset location.
var ErrNoDataset = errors.New("no dataset configured: set dataset.dir or dataset.base_url")

// Where a Result's data came from.
const (
	OriginCache      = "cache"
	OriginSource     = "source"
	OriginStaleCache = "stale cache"
	OriginNone       = "none"
)

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Options tunes one Load.
type Options struct {
	// Force skips a fresh cache and always reads the source.
	Force bool
	// ClearCache drops the stored dataset before loading, so no stale copy
	// is left to fall back on.
	ClearCache bool
	Progress   collect.ProgressFunc
}

// Result holds the dataset delivered by one Load.
type Result struct {
	RunID      string
	Origin     string
	Professors []professor.Professor
	Errors     []professor.RecordError
	Timestamp  time.Time
	// Discovered is false when the source list could not be obtained.
	Discovered bool
	Steps      []StepResult
}

// Empty reports whether no professors are available.
func (r *Result) Empty() bool {
	return len(r.Professors) == 0
}

// Pipeline sequences cache lookup, dataset loading and cache refresh.
type Pipeline struct {
	cfg       *config.Config
	db        *database.DB
	cache     *cache.Cache
	collector *collect.Collector
	source    string
	now       func() time.Time
}

// New creates a pipeline reading from the configured dataset location.
func New(cfg *config.Config, db *database.DB) (*Pipeline, error) {
	src, label, err := SourceFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return NewWithSource(cfg, db, src, label), nil
}

// NewWithSource creates a pipeline over an explicit record source.
func NewWithSource(cfg *config.Config, db *database.DB, src fetch.Source, label string) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		db:        db,
		cache:     cache.New(db),
		collector: collect.NewCollector(src, collect.OptionsFromConfig(cfg)),
		source:    label,
		now:       time.Now,
	}
}

// SourceFromConfig builds the record source; a local directory wins over a URL.
func SourceFromConfig(cfg *config.Config) (fetch.Source, string, error) {
	d := cfg.Dataset
	switch {
	case d.Dir != "":
		return fetch.NewDirSource(d.Dir), "dir:" + d.Dir, nil
	case d.BaseURL != "":
		src, err := fetch.NewHTTPSource(d.BaseURL, d.Timeout)
		if err != nil {
			return nil, "", err
		}
		return src, d.BaseURL, nil
	}
	return nil, "", ErrNoDataset
}

// Cache returns the dataset cache the pipeline uses.
func (p *Pipeline) Cache() *cache.Cache {
	return p.cache
}

// Load delivers the dataset. A fresh cache with at least one professor is
// served as-is unless forced; otherwise the source is read and, when its file
// list was obtained, written back to the cache. If the source cannot be
// discovered a stale cache is served instead. Only cancellation is returned
// as an error; the partial result is then discarded.
func (p *Pipeline) Load(ctx context.Context, opts Options) (*Result, error) {
	r := &Result{Origin: OriginNone}

	runID, err := p.db.StartLoadRun(ctx, p.source, p.now())
	if err != nil {
		log.Printf("Could not record load run: %v", err)
	}
	r.RunID = runID

	if opts.ClearCache {
		if err := p.cache.Clear(ctx); err != nil {
			log.Printf("Could not clear cache: %v", err)
		} else {
			log.Println("Cleared cached dataset")
		}
	}

	// Step 1: Cache
	cached := p.cache.Read(ctx)
	step := StepResult{Name: "Cache"}
	switch {
	case cached == nil:
		step.Summary = "No cached dataset"
	case !cached.Usable():
		step.Summary = "Cached dataset is empty"
	case opts.Force:
		step.Summary = fmt.Sprintf("Ignoring cache from %s (forced)", cached.Timestamp.Format(time.DateTime))
	case cache.IsFresh(p.now(), cached.Timestamp, p.cfg.Cache.MaxAge):
		step.Summary = fmt.Sprintf("Serving %d cached professors from %s",
			len(cached.Professors), cached.Timestamp.Format(time.DateTime))
		r.Steps = append(r.Steps, step)
		p.fromCache(r, cached, OriginCache)
		p.finish(ctx, r, database.RunCached, "")
		return r, nil
	default:
		step.Summary = fmt.Sprintf("Cache from %s is stale", cached.Timestamp.Format(time.DateTime))
	}
	r.Steps = append(r.Steps, step)

	// Step 2: Collect
	log.Println("Loading professors from source...")
	loaded, err := p.collector.LoadAll(ctx, opts.Progress)
	if err != nil {
		r.Steps = append(r.Steps, StepResult{Name: "Collect", Err: err})
		p.finish(context.WithoutCancel(ctx), r, database.RunCancelled, err.Error())
		return nil, err
	}
	if !loaded.Discovered {
		step := StepResult{Name: "Collect", Err: collect.ErrNoSources}
		if cached.Usable() {
			step.Summary = "Source unavailable, serving stale cache"
			r.Steps = append(r.Steps, step)
			p.fromCache(r, cached, OriginStaleCache)
			p.finish(ctx, r, database.RunStale, collect.ErrNoSources.Error())
			return r, nil
		}
		step.Summary = "Source unavailable and no cache"
		r.Steps = append(r.Steps, step)
		p.finish(ctx, r, database.RunFailed, collect.ErrNoSources.Error())
		return r, nil
	}
	r.Origin = OriginSource
	r.Discovered = true
	r.Professors = loaded.Professors
	r.Errors = loaded.Errors
	r.Timestamp = p.now()
	r.Steps = append(r.Steps, StepResult{
		Name:    "Collect",
		Summary: fmt.Sprintf("Loaded %d professors, %d errors", len(r.Professors), len(r.Errors)),
	})

	// Step 3: Save
	step = StepResult{Name: "Save"}
	err = p.cache.Write(ctx, cache.Record{Professors: r.Professors, Errors: r.Errors, Timestamp: r.Timestamp})
	if err != nil {
		log.Printf("Could not write cache: %v", err)
		step.Err = err
		step.Summary = "Cache not updated"
	} else {
		step.Summary = "Cache updated"
	}
	r.Steps = append(r.Steps, step)

	p.finish(ctx, r, database.RunLoaded, "")
	return r, nil
}

func (p *Pipeline) fromCache(r *Result, rec *cache.Record, origin string) {
	r.Origin = origin
	r.Discovered = origin == OriginCache
	r.Professors = rec.Professors
	r.Errors = rec.Errors
	r.Timestamp = rec.Timestamp
}

func (p *Pipeline) finish(ctx context.Context, r *Result, outcome, message string) {
	if r.RunID == "" {
		return
	}
	if err := p.db.FinishLoadRun(ctx, r.RunID, outcome, len(r.Professors), len(r.Errors), message); err != nil {
		log.Printf("Could not record load outcome: %v", err)
	}
}
