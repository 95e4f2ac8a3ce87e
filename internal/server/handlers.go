package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/TobiSchelling/facultypulse/internal/compose"
	"github.com/TobiSchelling/facultypulse/internal/pipeline"
	"github.com/TobiSchelling/facultypulse/internal/professor"
	"github.com/TobiSchelling/facultypulse/internal/search"
	"github.com/TobiSchelling/facultypulse/internal/stats"
	"github.com/TobiSchelling/facultypulse/internal/synthesize"
)

type option struct {
	Value, Label string
}

var sentimentOptions = []option{
	{"", "Cualquiera"},
	{search.SentimentPositive, "Positivo"},
	{search.SentimentNeutral, "Neutral"},
	{search.SentimentNegative, "Negativo"},
	{search.SentimentUnclassified, "Sin clasificar"},
}

var trendOptions = []option{
	{"", "Cualquiera"},
	{search.TrendImproving, "Mejorando"},
	{search.TrendStable, "Estable"},
	{search.TrendDeclining, "Empeorando"},
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	d := s.dataset()
	st := stats.Summarize(d.Professors)
	s.render(w, http.StatusOK, "index.html", map[string]any{
		"Dataset":    d,
		"Stats":      st,
		"MaxBucket":  st.MaxBucket(),
		"ErrorCount": len(d.Errors),
		"HasLoaded":  !d.LoadedAt.IsZero(),
		"CanReload":  s.loader != nil,
	})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if s.loader == nil {
		http.Error(w, "Reload not available", http.StatusNotImplemented)
		return
	}
	res, err := s.loader.Load(r.Context(), pipeline.Options{Force: true})
	if err != nil {
		log.Printf("Reload failed: %v", err)
		http.Error(w, "Reload failed", http.StatusInternalServerError)
		return
	}
	s.SetDataset(DatasetFrom(res))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// parseQuery reads the search form. Malformed numbers and unknown buckets are
// ignored so a hand-edited URL never produces an error page.
func parseQuery(v url.Values) (string, search.Filter, int) {
	f := search.DefaultFilter()
	f.Subject = strings.TrimSpace(v.Get("subject"))
	if x, err := strconv.ParseFloat(v.Get("min_quality"), 64); err == nil {
		f.MinQuality = x
	}
	if x, err := strconv.ParseFloat(v.Get("max_difficulty"), 64); err == nil {
		f.MaxDifficulty = x
	}
	if x, err := strconv.ParseFloat(v.Get("min_trust"), 64); err == nil {
		f.MinTrust = x
	}
	if x, err := strconv.Atoi(v.Get("min_reviews")); err == nil && x > 0 {
		f.MinReviews = x
	}
	if b, ok := search.ParseSentiment(v.Get("sentiment")); ok {
		f.Sentiment = b
	}
	if b, ok := search.ParseTrend(v.Get("trend")); ok {
		f.Trend = b
	}
	f.AdvancedOnly = v.Get("advanced") == "1" || v.Get("advanced") == "on"

	page, err := strconv.Atoi(v.Get("page"))
	if err != nil {
		page = 1
	}
	return strings.TrimSpace(v.Get("q")), f, page
}

func pageURL(v url.Values, n int) string {
	q := url.Values{}
	for k, vals := range v {
		q[k] = vals
	}
	q.Set("page", strconv.Itoa(n))
	return "/professors?" + q.Encode()
}

func (s *Server) handleProfessors(w http.ResponseWriter, r *http.Request) {
	d := s.dataset()
	v := r.URL.Query()
	query, f, n := parseQuery(v)
	matches := search.Apply(d.Professors, query, f)
	page := search.Paginate(matches, n, search.PageSize)

	s.mu.RLock()
	subjects := s.subjects
	s.mu.RUnlock()

	data := map[string]any{
		"Query":      query,
		"Filter":     f,
		"Filtered":   query != "" || !f.IsDefault(),
		"Subjects":   subjects,
		"Sentiments": sentimentOptions,
		"Trends":     trendOptions,
		"Page":       page,
		"Total":      len(d.Professors),
	}
	if page.HasPrev() {
		data["PrevURL"] = pageURL(v, page.Number-1)
	}
	if page.HasNext() {
		data["NextURL"] = pageURL(v, page.Number+1)
	}
	s.render(w, http.StatusOK, "professors.html", data)
}

func (s *Server) profileData(r *http.Request, p *professor.Professor) map[string]any {
	data := map[string]any{
		"Professor": p,
		"AIEnabled": s.summarizer != nil,
	}
	if s.summarizer != nil {
		if sum := s.summarizer.Stored(r.Context(), p.ID); sum != nil {
			data["Summary"] = sum
		}
	}
	return data
}

func (s *Server) handleProfessor(w http.ResponseWriter, r *http.Request) {
	p, ok := s.professor(r.PathValue("id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	s.render(w, http.StatusOK, "professor.html", s.profileData(r, p))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	p, ok := s.professor(r.PathValue("id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	if s.summarizer == nil {
		data := s.profileData(r, p)
		data["SummaryError"] = synthesize.Message(synthesize.ErrNoAPIKey)
		s.render(w, http.StatusServiceUnavailable, "professor.html", data)
		return
	}

	refresh := r.FormValue("refresh") == "1"
	if _, err := s.summarizer.Summarize(r.Context(), p, refresh); err != nil {
		log.Printf("Summary for %s failed: %v", p.ID, err)
		data := s.profileData(r, p)
		data["SummaryError"] = synthesize.Message(err)
		status := http.StatusBadGateway
		if errors.Is(err, synthesize.ErrNoAPIKey) {
			status = http.StatusServiceUnavailable
		}
		s.render(w, status, "professor.html", data)
		return
	}
	http.Redirect(w, r, "/professors/"+url.PathEscape(p.ID)+"#summary", http.StatusSeeOther)
}

func (s *Server) handleErrors(w http.ResponseWriter, r *http.Request) {
	d := s.dataset()
	s.render(w, http.StatusOK, "errors.html", map[string]any{
		"Groups": stats.GroupErrors(d.Errors),
		"Total":  len(d.Errors),
	})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	d := s.dataset()
	report := compose.Compose(compose.Input{
		Professors: d.Professors,
		Errors:     d.Errors,
		LoadedAt:   d.LoadedAt,
		Now:        time.Now(),
	})
	s.render(w, http.StatusOK, "report.html", map[string]any{
		"Report": report,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding JSON: %v", err)
	}
}

func (s *Server) handleAPIProfessors(w http.ResponseWriter, r *http.Request) {
	d := s.dataset()
	query, f, n := parseQuery(r.URL.Query())
	page := search.Paginate(search.Apply(d.Professors, query, f), n, search.PageSize)
	if page.Items == nil {
		page.Items = []professor.Professor{}
	}
	writeJSON(w, page)
}

func (s *Server) handleAPIProfessor(w http.ResponseWriter, r *http.Request) {
	p, ok := s.professor(r.PathValue("id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, p)
}

func (s *Server) handleAPIStats(w http.ResponseWriter, r *http.Request) {
	d := s.dataset()
	writeJSON(w, map[string]any{
		"stats":     stats.Summarize(d.Professors),
		"errors":    len(d.Errors),
		"origin":    d.Origin,
		"loaded_at": d.LoadedAt,
	})
}

func (s *Server) handleAPISubjects(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	subjects := s.subjects
	s.mu.RUnlock()
	if subjects == nil {
		subjects = []string{}
	}
	writeJSON(w, subjects)
}
