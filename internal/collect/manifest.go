package collect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
)

// ErrNoSources is returned when neither the manifest nor the discovery
// endpoint produced a file list.
var ErrNoSources = errors.New("no manifest and no discovery endpoint available")

// lister is implemented by sources that can enumerate their records directly.
type lister interface {
	ListJSON(dir, manifest string) ([]string, error)
}

// Discover returns the ordered list of record file names. The pre-built
// manifest is preferred; the discovery endpoint is the fallback.
func (c *Collector) Discover(ctx context.Context) ([]string, error) {
	manifestPath := c.opts.RecordsPath + c.opts.Manifest
	files, err := c.readList(ctx, manifestPath)
	if err == nil {
		log.Printf("Manifest found: %d files", len(files))
		return files, nil
	}
	log.Printf("Manifest not available (%s): %v", manifestPath, err)

	if c.opts.DiscoveryPath != "" {
		files, err = c.readList(ctx, c.opts.DiscoveryPath)
		if err == nil {
			log.Printf("Discovery endpoint returned %d files", len(files))
			return files, nil
		}
		log.Printf("Discovery endpoint not available: %v", err)
	}

	// A local directory can stand in for the discovery endpoint.
	if l, ok := c.source.(lister); ok {
		files, err = l.ListJSON(c.opts.RecordsPath, c.opts.Manifest)
		if err == nil {
			log.Printf("Listed %d files from records directory", len(files))
			return files, nil
		}
		log.Printf("Could not list records directory: %v", err)
	}

	return nil, ErrNoSources
}

func (c *Collector) readList(ctx context.Context, p string) ([]string, error) {
	data, err := c.source.Get(ctx, p)
	if err != nil {
		return nil, err
	}
	var files []string
	if err := json.Unmarshal(data, &files); err != nil {
		return nil, fmt.Errorf("decoding file list: %w", err)
	}
	return files, nil
}
