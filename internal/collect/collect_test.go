package collect

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/TobiSchelling/facultypulse/internal/fetch"
)

// mockSource serves canned bodies by path; anything else is a 404.
type mockSource struct {
	mu    sync.Mutex
	files map[string]string
	fail  map[string]error
	calls []string
}

func (m *mockSource) Get(ctx context.Context, p string) ([]byte, error) {
	m.mu.Lock()
	m.calls = append(m.calls, p)
	m.mu.Unlock()
	if err, ok := m.fail[p]; ok {
		return nil, err
	}
	body, ok := m.files[p]
	if !ok {
		return nil, &fetch.StatusError{Code: 404}
	}
	return []byte(body), nil
}

func record(id, name string) string {
	b, _ := json.Marshal(map[string]any{
		"professor_id":    id,
		"nombre":          name,
		"universidad":     "UNAM",
		"calidad_general": 8.5,
	})
	return string(b)
}

func manifest(names ...string) string {
	b, _ := json.Marshal(names)
	return string(b)
}

const dir = "profesores_enriquecido/"

func testOptions() Options {
	return Options{RecordsPath: dir, Manifest: "fileList.json", DiscoveryPath: "/api/professors-list", BatchSize: 2}
}

func TestLoadAllPartialFailure(t *testing.T) {
	src := &mockSource{files: map[string]string{
		dir + "fileList.json": manifest("a.json", "b.json", "x.json", "c.json"),
		dir + "a.json":        record("a", "Ana"),
		dir + "b.json":        record("b", "Beto"),
		dir + "x.json":        `{"error": "boo", "professor_id": "x"}`,
		dir + "c.json":        record("c", "Carla"),
	}}

	r, err := NewCollector(src, testOptions()).LoadAll(context.Background(), nil)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if !r.Discovered {
		t.Error("expected Discovered=true")
	}
	if len(r.Professors) != 3 {
		t.Fatalf("expected 3 professors, got %d", len(r.Professors))
	}
	if len(r.Errors) != 1 {
		t.Fatalf("expected 1 error, got %d", len(r.Errors))
	}
	if r.Errors[0].RecordID != "x" || r.Errors[0].Message != "boo" {
		t.Errorf("unexpected error record %+v", r.Errors[0])
	}

	// discovery order is preserved
	want := []string{"a", "b", "c"}
	for i, p := range r.Professors {
		if p.ID != want[i] {
			t.Errorf("professor %d: expected %q, got %q", i, want[i], p.ID)
		}
	}
}

func TestLoadAllRecordFailures(t *testing.T) {
	src := &mockSource{
		files: map[string]string{
			dir + "fileList.json": manifest("missing.json", "broken.json", "noname.json", "down.json"),
			dir + "broken.json":   `{not json`,
			dir + "noname.json":   `{"universidad": "UNAM"}`,
		},
		fail: map[string]error{dir + "down.json": errors.New("connection refused")},
	}

	r, err := NewCollector(src, testOptions()).LoadAll(context.Background(), nil)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(r.Professors) != 0 || len(r.Errors) != 4 {
		t.Fatalf("expected 0 professors and 4 errors, got %d/%d", len(r.Professors), len(r.Errors))
	}
	if r.Errors[0].RecordID != "missing" || r.Errors[0].Message != "Error HTTP 404" {
		t.Errorf("unexpected 404 error %+v", r.Errors[0])
	}
	if !strings.HasPrefix(r.Errors[3].Message, "Error de carga:") {
		t.Errorf("expected transport error message, got %q", r.Errors[3].Message)
	}
}

func TestLoadAllProgressIsMonotonic(t *testing.T) {
	files := map[string]string{}
	var names []string
	for _, id := range []string{"p1", "p2", "p3", "p4", "p5"} {
		names = append(names, id+".json")
		files[dir+id+".json"] = record(id, "Prof "+id)
	}
	files[dir+"fileList.json"] = manifest(names...)

	type tick struct{ processed, total, loaded, errs int }
	var ticks []tick
	_, err := NewCollector(&mockSource{files: files}, testOptions()).LoadAll(context.Background(),
		func(processed, total, loaded, errs int) {
			ticks = append(ticks, tick{processed, total, loaded, errs})
		})
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}

	// start + 3 batches of size 2
	if len(ticks) != 4 {
		t.Fatalf("expected 4 progress calls, got %d", len(ticks))
	}
	if ticks[0] != (tick{0, 5, 0, 0}) {
		t.Errorf("unexpected first tick %+v", ticks[0])
	}
	for i := 1; i < len(ticks); i++ {
		if ticks[i].processed < ticks[i-1].processed {
			t.Errorf("progress went backwards: %+v -> %+v", ticks[i-1], ticks[i])
		}
		if ticks[i].loaded+ticks[i].errs != ticks[i].processed {
			t.Errorf("loaded+errors != processed at %+v", ticks[i])
		}
	}
	if last := ticks[len(ticks)-1]; last.processed != 5 || last.loaded != 5 {
		t.Errorf("unexpected last tick %+v", last)
	}
}

func TestLoadAllFallsBackToDiscoveryEndpoint(t *testing.T) {
	src := &mockSource{files: map[string]string{
		"/api/professors-list": manifest("a.json"),
		dir + "a.json":         record("a", "Ana"),
	}}
	r, err := NewCollector(src, testOptions()).LoadAll(context.Background(), nil)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if !r.Discovered || len(r.Professors) != 1 {
		t.Errorf("expected 1 professor from discovery endpoint, got %+v", r)
	}
}

func TestLoadAllDiscoveryFailure(t *testing.T) {
	r, err := NewCollector(&mockSource{}, testOptions()).LoadAll(context.Background(), nil)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if r.Discovered {
		t.Error("expected Discovered=false")
	}
	if len(r.Professors) != 0 || len(r.Errors) != 0 {
		t.Errorf("expected empty result, got %+v", r)
	}
}

func TestLoadAllCancelled(t *testing.T) {
	src := &mockSource{files: map[string]string{
		dir + "fileList.json": manifest("a.json", "b.json", "c.json"),
		dir + "a.json":        record("a", "Ana"),
		dir + "b.json":        record("b", "Beto"),
		dir + "c.json":        record("c", "Carla"),
	}}
	ctx, cancel := context.WithCancel(context.Background())
	opts := testOptions()
	opts.BatchSize = 1

	_, err := NewCollector(src, opts).LoadAll(ctx, func(processed, total, loaded, errs int) {
		if processed == 1 {
			cancel()
		}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestLoadAllFromDirectoryWithoutManifest(t *testing.T) {
	root := t.TempDir()
	recDir := filepath.Join(root, "profesores_enriquecido")
	if err := os.MkdirAll(recDir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"b", "a"} {
		if err := os.WriteFile(filepath.Join(recDir, id+".json"), []byte(record(id, "Prof "+id)), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	r, err := NewCollector(fetch.NewDirSource(root), testOptions()).LoadAll(context.Background(), nil)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(r.Professors) != 2 || r.Professors[0].ID != "a" {
		t.Errorf("expected 2 professors sorted by file name, got %+v", r.Professors)
	}
}

// cancellingSource cancels the load as soon as a record is requested.
type cancellingSource struct {
	mockSource
	cancel context.CancelFunc
}

func (c *cancellingSource) Get(ctx context.Context, p string) ([]byte, error) {
	if strings.HasSuffix(p, "fileList.json") {
		return c.mockSource.Get(ctx, p)
	}
	c.cancel()
	return nil, ctx.Err()
}

func TestLoadAllCancelledDuringLastBatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	src := &cancellingSource{
		mockSource: mockSource{files: map[string]string{
			dir + "fileList.json": manifest("a.json", "b.json", "c.json"),
		}},
		cancel: cancel,
	}
	opts := testOptions()
	opts.BatchSize = 5

	var ticks int
	r, err := NewCollector(src, opts).LoadAll(ctx, func(processed, total, loaded, errs int) {
		ticks++
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(r.Errors) != 0 || len(r.Professors) != 0 {
		t.Errorf("expected cancelled batch to be dropped, got %d professors and %v", len(r.Professors), r.Errors)
	}
	if ticks != 1 {
		t.Errorf("expected only the start progress call, got %d", ticks)
	}
}

func TestLoadAllCancelledBeforeDiscovery(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r, err := NewCollector(&mockSource{}, testOptions()).LoadAll(ctx, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if r.Discovered {
		t.Error("expected Discovered=false")
	}
}
