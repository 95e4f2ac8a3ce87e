package collect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/TobiSchelling/facultypulse/internal/config"
	"github.com/TobiSchelling/facultypulse/internal/fetch"
	"github.com/TobiSchelling/facultypulse/internal/professor"
)

const (
	defaultBatchSize = 5
	defaultPause     = 100 * time.Millisecond
)

// ProgressFunc receives (processed, total, loaded, errors) after every batch.
type ProgressFunc func(processed, total, loaded, errors int)

// Options configures a Collector.
type Options struct {
	RecordsPath   string
	Manifest      string
	DiscoveryPath string
	BatchSize     int
	BatchPause    time.Duration
}

// OptionsFromConfig maps the dataset section of the config.
func OptionsFromConfig(cfg *config.Config) Options {
	d := cfg.Dataset
	return Options{
		RecordsPath:   d.RecordsPath,
		Manifest:      d.Manifest,
		DiscoveryPath: d.DiscoveryPath,
		BatchSize:     d.BatchSize,
		BatchPause:    d.BatchPause,
	}
}

// Collector discovers professor record files and loads them in bounded batches.
type Collector struct {
	source fetch.Source
	opts   Options
}

// NewCollector creates a new dataset collector.
func NewCollector(source fetch.Source, opts Options) *Collector {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.BatchPause < 0 {
		opts.BatchPause = defaultPause
	}
	if opts.Manifest == "" {
		opts.Manifest = "fileList.json"
	}
	if opts.RecordsPath != "" && !strings.HasSuffix(opts.RecordsPath, "/") {
		opts.RecordsPath += "/"
	}
	return &Collector{source: source, opts: opts}
}

// outcome is the result slot owned by one fetch task.
type outcome struct {
	prof *professor.Professor
	err  *professor.RecordError
}

// LoadAll discovers and loads every record. Per-record problems become
// RecordErrors; only a failed discovery yields an empty result with
// Discovered=false. A cancelled context stops the load at the current batch
// and returns ctx.Err() together with whatever earlier batches collected;
// the batch in flight is dropped.
func (c *Collector) LoadAll(ctx context.Context, progress ProgressFunc) (*professor.LoadResult, error) {
	files, err := c.Discover(ctx)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &professor.LoadResult{}, ctxErr
	}
	if err != nil {
		log.Printf("Could not discover professor files: %v", err)
		return &professor.LoadResult{}, nil
	}

	r := &professor.LoadResult{
		Professors: []professor.Professor{},
		Errors:     []professor.RecordError{},
		Discovered: true,
	}
	total := len(files)
	log.Printf("Loading %d professor files...", total)
	report(progress, 0, total, 0, 0)

	size := c.opts.BatchSize
	for start := 0; start < total; start += size {
		if err := ctx.Err(); err != nil {
			return r, err
		}

		end := min(start+size, total)
		batch := files[start:end]
		slots := make([]outcome, len(batch))

		g, gctx := errgroup.WithContext(ctx)
		for i, name := range batch {
			g.Go(func() error {
				slots[i] = c.loadOne(gctx, name)
				// A fetch cut short by cancellation is not a record failure.
				return ctx.Err()
			})
		}
		if err := g.Wait(); err != nil {
			return r, err
		}
		if err := ctx.Err(); err != nil {
			return r, err
		}

		for _, s := range slots {
			if s.prof != nil {
				r.Professors = append(r.Professors, *s.prof)
			} else if s.err != nil {
				r.Errors = append(r.Errors, *s.err)
			}
		}
		report(progress, end, total, len(r.Professors), len(r.Errors))

		if end < total && c.opts.BatchPause > 0 {
			select {
			case <-ctx.Done():
				return r, ctx.Err()
			case <-time.After(c.opts.BatchPause):
			}
		}
	}

	log.Printf("Loaded %d professors and %d errors", len(r.Professors), len(r.Errors))
	return r, nil
}

func (c *Collector) loadOne(ctx context.Context, name string) outcome {
	id := strings.TrimSuffix(name, ".json")
	fail := func(msg string) outcome {
		return outcome{err: &professor.RecordError{RecordID: id, Message: msg, SourceFile: name}}
	}

	data, err := c.source.Get(ctx, c.opts.RecordsPath+name)
	if err != nil {
		var statusErr *fetch.StatusError
		if errors.As(err, &statusErr) {
			log.Printf("Error %d for %s", statusErr.Code, name)
			return fail(statusErr.Error())
		}
		log.Printf("Error loading %s: %v", name, err)
		return fail(fmt.Sprintf("Error de carga: %v", err))
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fail(fmt.Sprintf("JSON inválido: %v", err))
	}

	if marker, ok := professor.IsErrorMarker(raw); ok {
		marker.SourceFile = name
		return outcome{err: &marker}
	}

	p, err := professor.Normalize(raw, name)
	if err != nil {
		log.Printf("Skipping %s: %v", name, err)
		return fail(err.Error())
	}
	return outcome{prof: p}
}

func report(progress ProgressFunc, processed, total, loaded, errs int) {
	if progress != nil {
		progress(processed, total, loaded, errs)
	}
}
