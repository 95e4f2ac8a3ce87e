// Package synthesize produces AI summaries of individual professors.
package synthesize

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/TobiSchelling/facultypulse/internal/database"
	"github.com/TobiSchelling/facultypulse/internal/llm"
	"github.com/TobiSchelling/facultypulse/internal/professor"
)

// Failure classes surfaced to the user as distinct messages.
var (
	ErrNoAPIKey      = errors.New("no API key configured")
	ErrAuthRejected  = errors.New("API key rejected")
	ErrQuotaExceeded = errors.New("API quota exceeded")
	ErrTimeout       = errors.New("AI request timed out")
)

const systemPrompt = "Eres un asistente especializado en análisis académico."

const summaryPrompt = `%s

Proporciona un análisis rápido y conciso (máximo 3 párrafos) del profesor, incluyendo:
1. Evaluación general de su desempeño
2. Principales fortalezas y áreas de mejora
3. Recomendación para estudiantes

Responde en español de manera clara y directa, con ÚNICAMENTE este JSON:
{
    "summary": "Evaluación general en 1-2 párrafos",
    "strengths": ["fortaleza"],
    "weaknesses": ["área de mejora"],
    "recommendation": "Recomendación para estudiantes"
}`

// Options tunes the outbound request.
type Options struct {
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// DefaultOptions mirrors the configured defaults.
func DefaultOptions() Options {
	return Options{MaxTokens: 600, Temperature: 0.4, Timeout: 15 * time.Second}
}

// Store persists summaries between runs.
type Store interface {
	GetSummary(ctx context.Context, professorID string) (*database.StoredSummary, error)
	UpsertSummary(ctx context.Context, s database.StoredSummary) error
	DeleteSummary(ctx context.Context, professorID string) error
}

// Summary is a generated or previously stored summary.
type Summary struct {
	database.StoredSummary
	// Cached is true when the summary came from the store.
	Cached bool
}

// Summarizer asks the provider for one professor summary at a time.
type Summarizer struct {
	store    Store
	provider llm.Provider
	opts     Options
	now      func() time.Time
}

// NewSummarizer creates a summarizer. provider may be nil, in which case
// every uncached request fails with ErrNoAPIKey.
func NewSummarizer(store Store, provider llm.Provider, opts Options) *Summarizer {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultOptions().MaxTokens
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions().Timeout
	}
	return &Summarizer{store: store, provider: provider, opts: opts, now: time.Now}
}

// Stored returns the stored summary for a professor, or nil.
func (s *Summarizer) Stored(ctx context.Context, professorID string) *Summary {
	stored, err := s.store.GetSummary(ctx, professorID)
	if err != nil {
		log.Printf("Could not read stored summary for %s: %v", professorID, err)
		return nil
	}
	if stored == nil {
		return nil
	}
	return &Summary{StoredSummary: *stored, Cached: true}
}

// Forget drops the stored summary for a professor so the next Summarize
// asks the provider again.
func (s *Summarizer) Forget(ctx context.Context, professorID string) error {
	if err := s.store.DeleteSummary(ctx, professorID); err != nil {
		return fmt.Errorf("deleting summary for %s: %w", professorID, err)
	}
	return nil
}

// Summarize returns the summary for p, reusing a stored one unless refresh is
// set. One request is made, bounded by the configured timeout; there are no
// retries.
func (s *Summarizer) Summarize(ctx context.Context, p *professor.Professor, refresh bool) (*Summary, error) {
	if !refresh {
		if stored := s.Stored(ctx, p.ID); stored != nil {
			return stored, nil
		}
	}

	if s.provider == nil || !s.provider.IsConfigured() {
		return nil, ErrNoAPIKey
	}

	reqCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	text, err := s.provider.Generate(reqCtx, llm.Request{
		System:      systemPrompt,
		Prompt:      fmt.Sprintf(summaryPrompt, FormatProfessor(p)),
		MaxTokens:   s.opts.MaxTokens,
		Temperature: s.opts.Temperature,
	})
	if err != nil {
		return nil, Classify(err)
	}

	sum := &Summary{StoredSummary: parseSummary(p.ID, s.provider.Model(), text, s.now())}
	if err := s.store.UpsertSummary(ctx, sum.StoredSummary); err != nil {
		log.Printf("Could not store summary for %s: %v", p.ID, err)
	}
	return sum, nil
}

// parseSummary reads the JSON fields when present and falls back to the
// free text as the summary.
func parseSummary(id, model, text string, now time.Time) database.StoredSummary {
	out := database.StoredSummary{
		ProfessorID: id,
		Model:       model,
		Body:        strings.TrimSpace(text),
		CreatedAt:   now,
	}
	parsed := llm.ParseJSONResponse(text)
	if parsed == nil {
		out.Summary = out.Body
		return out
	}
	out.Summary = llm.StringField(parsed, "summary")
	out.Strengths = llm.StringsField(parsed, "strengths")
	out.Weaknesses = llm.StringsField(parsed, "weaknesses")
	out.Recommendation = llm.StringField(parsed, "recommendation")
	if out.Summary == "" {
		out.Summary = out.Body
	}
	return out
}

// Classify maps a provider failure onto the user-facing failure classes.
// Anything unrecognized is returned unchanged.
func Classify(err error) error {
	var apiErr *llm.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %v", ErrAuthRejected, err)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
		}
		return err
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}

// Message returns the text shown to the user for a summary failure.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrNoAPIKey):
		return "Configura tu API key de OpenAI para usar el análisis con IA."
	case errors.Is(err, ErrAuthRejected):
		return "La API key fue rechazada. Verifica que sea válida."
	case errors.Is(err, ErrQuotaExceeded):
		return "Se excedió la cuota de la API. Intenta más tarde."
	case errors.Is(err, ErrTimeout):
		return "La solicitud a la IA tardó demasiado. Intenta de nuevo."
	}
	return "No se pudo generar el análisis: " + err.Error()
}
