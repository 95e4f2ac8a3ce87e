package server

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/yuin/goldmark"

	"github.com/TobiSchelling/facultypulse/internal/cluster"
	"github.com/TobiSchelling/facultypulse/internal/pipeline"
	"github.com/TobiSchelling/facultypulse/internal/professor"
	"github.com/TobiSchelling/facultypulse/internal/search"
	"github.com/TobiSchelling/facultypulse/internal/synthesize"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New()

// Dataset is the collection the viewer renders.
type Dataset struct {
	Professors []professor.Professor
	Errors     []professor.RecordError
	LoadedAt   time.Time
	Origin     string
}

// DatasetFrom adapts a pipeline result.
func DatasetFrom(r *pipeline.Result) Dataset {
	return Dataset{Professors: r.Professors, Errors: r.Errors, LoadedAt: r.Timestamp, Origin: r.Origin}
}

// Summarizer produces and looks up AI summaries.
type Summarizer interface {
	Summarize(ctx context.Context, p *professor.Professor, refresh bool) (*synthesize.Summary, error)
	Stored(ctx context.Context, professorID string) *synthesize.Summary
}

// Loader reloads the dataset on demand.
type Loader interface {
	Load(ctx context.Context, opts pipeline.Options) (*pipeline.Result, error)
}

// Server is the HTTP server for browsing the professor dataset.
type Server struct {
	mu       sync.RWMutex
	data     Dataset
	byID     map[string]int
	subjects []string

	summarizer Summarizer
	loader     Loader
	pages      map[string]*template.Template
	mux        *http.ServeMux
}

// New creates a new Server. summarizer may be nil to disable AI summaries.
func New(data Dataset, summarizer Summarizer) (*Server, error) {
	funcMap := template.FuncMap{
		"markdown":  renderMarkdown,
		"deref":     deref,
		"comma":     func(n int) string { return humanize.Comma(int64(n)) },
		"ago":       humanize.Time,
		"sentiment": sentimentLabel,
		"trend":     trendLabel,
		"num":       func(f float64) string { return humanize.FtoaWithDigits(f, 1) },
		"pct":       func(f float64) string { return fmt.Sprintf("%.0f%%", f) },
		"barWidth": func(count, max int) int {
			if max == 0 {
				return 0
			}
			return count * 100 / max
		},
	}

	// Parse base template first
	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// Each page clones the base so it can define its own "title" and "content".
	pageNames := []string{"index.html", "professors.html", "professor.html", "errors.html", "report.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		_, err = clone.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{summarizer: summarizer, pages: pages, mux: http.NewServeMux()}
	s.SetDataset(data)
	s.routes()
	return s, nil
}

// SetLoader enables the reload action.
func (s *Server) SetLoader(l Loader) {
	s.loader = l
}

// SetDataset replaces the collection being served.
func (s *Server) SetDataset(d Dataset) {
	byID := make(map[string]int, len(d.Professors))
	for i, p := range d.Professors {
		byID[p.ID] = i
	}
	subjects := cluster.Subjects(d.Professors)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = d
	s.byID = byID
	s.subjects = subjects
}

func (s *Server) dataset() Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data
}

func (s *Server) professor(id string) (*professor.Professor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	p := s.data.Professors[i]
	return &p, true
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	// Static files
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	// Pages
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("POST /reload", s.handleReload)
	s.mux.HandleFunc("GET /professors", s.handleProfessors)
	s.mux.HandleFunc("GET /professors/{id}", s.handleProfessor)
	s.mux.HandleFunc("POST /professors/{id}/summary", s.handleSummary)
	s.mux.HandleFunc("GET /errors", s.handleErrors)
	s.mux.HandleFunc("GET /report", s.handleReport)

	// JSON
	s.mux.HandleFunc("GET /api/professors", s.handleAPIProfessors)
	s.mux.HandleFunc("GET /api/professors/{id}", s.handleAPIProfessor)
	s.mux.HandleFunc("GET /api/stats", s.handleAPIStats)
	s.mux.HandleFunc("GET /api/subjects", s.handleAPISubjects)
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		log.Printf("Template %s not found", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		log.Printf("Error rendering template %s: %v", name, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func sentimentLabel(a *professor.AdvancedAnalysis) string {
	if a == nil || a.SentimentScore == nil {
		return ""
	}
	return search.SentimentBucket(*a.SentimentScore)
}

func trendLabel(a *professor.AdvancedAnalysis) string {
	return search.TrendLabel(a)
}

// Serve starts the HTTP server on the given port and stops when ctx ends.
func Serve(ctx context.Context, srv *Server, port int) error {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	hs := &http.Server{Addr: addr, Handler: srv.Handler(), ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		hs.Shutdown(shutdownCtx)
	}()

	log.Printf("Server listening on http://%s", addr)
	if err := hs.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
