package synthesize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/TobiSchelling/facultypulse/internal/database"
	"github.com/TobiSchelling/facultypulse/internal/llm"
	"github.com/TobiSchelling/facultypulse/internal/professor"
)

type mockProvider struct {
	response string
	err      error
	calls    int
	lastReq  llm.Request
	block    bool
}

func (m *mockProvider) Generate(ctx context.Context, req llm.Request) (string, error) {
	m.calls++
	m.lastReq = req
	if m.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return m.response, m.err
}

func (m *mockProvider) IsConfigured() bool { return true }
func (m *mockProvider) Model() string      { return "mock-model" }

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func ptr(s string) *string { return &s }
func f64(v float64) *float64 { return &v }

func sampleProfessor() *professor.Professor {
	var ratings []professor.Rating
	for i := range 7 {
		ratings = append(ratings, professor.Rating{
			Date: fmt.Sprintf("%d/1/2024", i+1), Subject: "Cálculo", QualityScore: f64(9),
			Comment: fmt.Sprintf("comentario %d", i), Attendance: ptr("Obligatoria"),
		})
	}
	return &professor.Professor{
		ID: "p1", Name: "Ana López", University: "UNAM", City: ptr("CDMX"),
		Department: "Matemáticas", OverallQuality: 9.1, RecommendPercent: 95, DifficultyLevel: 3.2,
		Tags: []string{"Clases excelentes"}, RatingCount: 7, Ratings: ratings,
	}
}

func TestFormatProfessor(t *testing.T) {
	text := FormatProfessor(sampleProfessor())
	for _, want := range []string{
		"- Nombre: Ana López", "- Ciudad: CDMX", "- Calidad General: 9.1/10",
		"- Porcentaje de Recomendación: 95%", "- Clases excelentes", "Asistencia: Obligatoria",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in formatted text", want)
		}
	}
	if strings.Count(text, "Materia: ") != 5 {
		t.Errorf("expected 5 recent reviews, got %d", strings.Count(text, "Materia: "))
	}
	if strings.Contains(text, "comentario 5") {
		t.Error("expected only the first 5 reviews")
	}
}

func TestSummarizeParsesAndStores(t *testing.T) {
	db := openTestDB(t)
	resp, _ := json.Marshal(map[string]any{
		"summary":        "Excelente docente",
		"strengths":      []string{"Claridad"},
		"weaknesses":     []string{"Ritmo rápido"},
		"recommendation": "Muy recomendable",
	})
	mock := &mockProvider{response: "```json\n" + string(resp) + "\n```"}
	s := NewSummarizer(db, mock, DefaultOptions())

	sum, err := s.Summarize(context.Background(), sampleProfessor(), false)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if sum.Cached || sum.Summary != "Excelente docente" || sum.Strengths[0] != "Claridad" {
		t.Errorf("unexpected summary %+v", sum)
	}
	if mock.lastReq.System != systemPrompt || mock.lastReq.MaxTokens != 600 || mock.lastReq.Temperature != 0.4 {
		t.Errorf("unexpected request %+v", mock.lastReq)
	}

	// Second call is served from the store.
	again, err := s.Summarize(context.Background(), sampleProfessor(), false)
	if err != nil {
		t.Fatalf("second Summarize: %v", err)
	}
	if !again.Cached || mock.calls != 1 {
		t.Errorf("expected stored summary without a new request, calls=%d", mock.calls)
	}

	// Refresh forces a new request.
	if _, err := s.Summarize(context.Background(), sampleProfessor(), true); err != nil {
		t.Fatalf("refresh Summarize: %v", err)
	}
	if mock.calls != 2 {
		t.Errorf("expected refresh to call the provider, calls=%d", mock.calls)
	}
}

func TestSummarizeFreeText(t *testing.T) {
	db := openTestDB(t)
	s := NewSummarizer(db, &mockProvider{response: "Un profesor muy claro."}, DefaultOptions())
	sum, err := s.Summarize(context.Background(), sampleProfessor(), false)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if sum.Summary != "Un profesor muy claro." || len(sum.Strengths) != 0 {
		t.Errorf("expected free text summary, got %+v", sum)
	}
}

func TestSummarizeWithoutProvider(t *testing.T) {
	s := NewSummarizer(openTestDB(t), nil, DefaultOptions())
	_, err := s.Summarize(context.Background(), sampleProfessor(), false)
	if !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}
}

func TestSummarizeTimeout(t *testing.T) {
	opts := DefaultOptions()
	opts.Timeout = 20 * time.Millisecond
	s := NewSummarizer(openTestDB(t), &mockProvider{block: true}, opts)
	_, err := s.Summarize(context.Background(), sampleProfessor(), false)
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want error
	}{
		{&llm.APIError{Provider: "OpenAI", StatusCode: 401}, ErrAuthRejected},
		{&llm.APIError{Provider: "OpenAI", StatusCode: 403}, ErrAuthRejected},
		{fmt.Errorf("wrapped: %w", &llm.APIError{Provider: "OpenAI", StatusCode: 429}), ErrQuotaExceeded},
		{context.DeadlineExceeded, ErrTimeout},
	}
	for _, tc := range cases {
		if got := Classify(tc.err); !errors.Is(got, tc.want) {
			t.Errorf("Classify(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}

	other := &llm.APIError{Provider: "OpenAI", StatusCode: 500}
	if got := Classify(other); got != error(other) {
		t.Errorf("expected unclassified error unchanged, got %v", got)
	}
}

func TestMessagesAreDistinct(t *testing.T) {
	seen := map[string]bool{}
	for _, err := range []error{ErrNoAPIKey, ErrAuthRejected, ErrQuotaExceeded, ErrTimeout} {
		msg := Message(err)
		if seen[msg] {
			t.Errorf("duplicate message %q", msg)
		}
		seen[msg] = true
	}
}

func TestForgetDropsStoredSummary(t *testing.T) {
	db := openTestDB(t)
	mock := &mockProvider{response: "Buen profesor"}
	s := NewSummarizer(db, mock, DefaultOptions())
	p := sampleProfessor()

	if _, err := s.Summarize(context.Background(), p, false); err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if s.Stored(context.Background(), p.ID) == nil {
		t.Fatal("expected summary to be stored")
	}

	if err := s.Forget(context.Background(), p.ID); err != nil {
		t.Fatalf("Forget: %v", err)
	}
	if s.Stored(context.Background(), p.ID) != nil {
		t.Error("expected stored summary to be gone")
	}

	if _, err := s.Summarize(context.Background(), p, false); err != nil {
		t.Fatalf("Summarize after Forget: %v", err)
	}
	if mock.calls != 2 {
		t.Errorf("expected a new request after Forget, calls=%d", mock.calls)
	}
}
