package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
)

func TestHTTPSourceGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/data/records/a.json":
			w.Write([]byte(`{"nombre": "A"}`))
		case "/api/professors-list":
			w.Write([]byte(`["a.json"]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	src, err := NewHTTPSource(srv.URL+"/data", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := src.Get(context.Background(), "records/a.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != `{"nombre": "A"}` {
		t.Errorf("unexpected body %q", data)
	}

	if _, err := src.Get(context.Background(), "/api/professors-list"); err != nil {
		t.Errorf("expected absolute path to resolve against host root: %v", err)
	}

	_, err = src.Get(context.Background(), "records/missing.json")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 StatusError, got %v", err)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Error("expected 404 to match ErrNotFound")
	}
	if err.Error() != "Error HTTP 404" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestHTTPSourceGetKeepsNamesInPath(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.URL.Path)
		mu.Unlock()
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	src, err := NewHTTPSource(srv.URL+"/data", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	names := []string{"records/a#b.json", "records/c:x.json", "records/d?e.json", "records/http://evil/x.json"}
	for _, name := range names {
		if _, err := src.Get(context.Background(), name); err != nil {
			t.Errorf("Get(%q): %v", name, err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != len(names) {
		t.Fatalf("expected %d requests, got %v", len(names), seen)
	}
	for _, p := range seen {
		if !strings.HasPrefix(p, "/data/records/") {
			t.Errorf("request left the records directory: %q", p)
		}
	}
	if seen[0] != "/data/records/a#b.json" || seen[1] != "/data/records/c:x.json" || seen[2] != "/data/records/d?e.json" {
		t.Errorf("names were not sent verbatim: %v", seen)
	}
}

func TestHTTPSourceGetRejectsEscape(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	src, err := NewHTTPSource(srv.URL+"/data", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := src.Get(context.Background(), "../../secret.json"); err == nil {
		t.Error("expected an error for a path above the base URL")
	}
	if hits != 0 {
		t.Errorf("expected no request, got %d", hits)
	}
}

func TestDirSource(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "records")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"b.json", "a.json", "fileList.json", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(`{}`), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	src := NewDirSource(root)
	if _, err := src.Get(context.Background(), "records/a.json"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := src.Get(context.Background(), "records/zzz.json"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := src.Get(context.Background(), "../../etc/passwd"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected path to stay inside root, got %v", err)
	}

	names, err := src.ListJSON("records", "fileList.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"a.json", "b.json"}) {
		t.Errorf("unexpected listing %v", names)
	}
}
