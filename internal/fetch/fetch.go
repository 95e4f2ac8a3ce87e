package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrNotFound is returned when a source path does not exist.
var ErrNotFound = errors.New("not found")

// Source serves raw record bytes by relative path.
type Source interface {
	Get(ctx context.Context, path string) ([]byte, error)
}

// StatusError is an HTTP response with a failure status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Error HTTP %d", e.Code)
}

// Is lets errors.Is(err, ErrNotFound) match a 404.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.Code == http.StatusNotFound
}

// HTTPSource reads records from a static file server.
type HTTPSource struct {
	baseURL *url.URL
	client  *http.Client
}

// NewHTTPSource creates a source rooted at baseURL.
func NewHTTPSource(baseURL string, timeout time.Duration) (*HTTPSource, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &HTTPSource{
		baseURL: u,
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}, nil
}

// Get fetches path relative to the base URL. Absolute paths ("/api/...")
// resolve against the host root. p is always a path: '#', '?' and ':' are
// sent escaped, and a relative path may not climb out of the base URL.
func (s *HTTPSource) Get(ctx context.Context, p string) ([]byte, error) {
	target := s.baseURL.ResolveReference(&url.URL{Path: p})
	if !strings.HasPrefix(p, "/") && !strings.HasPrefix(target.Path, s.baseURL.Path) {
		return nil, fmt.Errorf("path %q escapes dataset root", p)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", target.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "facultypulse/1.0 (dataset loader)")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, &StatusError{Code: resp.StatusCode}
	}
	return io.ReadAll(resp.Body)
}

// DirSource reads records from a local directory laid out like the served one.
type DirSource struct {
	root string
}

// NewDirSource creates a source rooted at dir.
func NewDirSource(dir string) *DirSource {
	return &DirSource{root: dir}
}

// Get reads path below the root. Paths cannot escape the root.
func (s *DirSource) Get(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean := path.Clean("/" + strings.TrimPrefix(p, "/"))
	data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(clean)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", p, ErrNotFound)
	}
	return data, err
}

// ListJSON returns the *.json file names in dir (relative to the root),
// sorted, excluding the manifest itself.
func (s *DirSource) ListJSON(dir, manifest string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, filepath.FromSlash(dir)))
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(name), ".json") || name == manifest {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
