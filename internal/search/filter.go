// Package search filters and pages the professor collection.
package search

import (
	"math"
	"strings"

	"github.com/TobiSchelling/facultypulse/internal/cluster"
	"github.com/TobiSchelling/facultypulse/internal/professor"
)

// Sentiment buckets.
const (
	SentimentAny          = ""
	SentimentPositive     = "positive"
	SentimentNeutral      = "neutral"
	SentimentNegative     = "negative"
	SentimentUnclassified = "unclassified"
)

// Trend buckets.
const (
	TrendAny       = ""
	TrendImproving = "improving"
	TrendStable    = "stable"
	TrendDeclining = "declining"
)

// DefaultMaxDifficulty is the top of the difficulty scale.
const DefaultMaxDifficulty = 5.0

const stableBand = 0.5

// Filter holds every constraint a search can apply. The zero value of each
// field other than MaxDifficulty means "no constraint"; use DefaultFilter.
type Filter struct {
	Subject       string  `json:"subject"`
	MinQuality    float64 `json:"min_quality"`
	MaxDifficulty float64 `json:"max_difficulty"`
	MinTrust      float64 `json:"min_trust"`
	Sentiment     string  `json:"sentiment"`
	Trend         string  `json:"trend"`
	AdvancedOnly  bool    `json:"advanced_only"`
	MinReviews    int     `json:"min_reviews"`
}

// DefaultFilter returns a filter that matches everything.
func DefaultFilter() Filter {
	return Filter{MaxDifficulty: DefaultMaxDifficulty}
}

// IsDefault reports whether f constrains nothing.
func (f Filter) IsDefault() bool {
	return f == DefaultFilter()
}

// ParseSentiment accepts English and Spanish bucket names.
func ParseSentiment(s string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any", "todos":
		return SentimentAny, true
	case "positive", "positivo":
		return SentimentPositive, true
	case "neutral", "neutro":
		return SentimentNeutral, true
	case "negative", "negativo":
		return SentimentNegative, true
	case "unclassified", "sin clasificar":
		return SentimentUnclassified, true
	}
	return "", false
}

// ParseTrend accepts English and Spanish bucket names.
func ParseTrend(s string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any", "todos":
		return TrendAny, true
	case "improving", "mejorando":
		return TrendImproving, true
	case "stable", "estable":
		return TrendStable, true
	case "declining", "declinando":
		return TrendDeclining, true
	}
	return "", false
}

// SentimentBucket classifies a sentiment score: >= 0.3 positive,
// |s| <= 0.1 neutral, < -0.1 negative. Scores in (0.1, 0.3) fall in none of
// those and are reported as unclassified.
func SentimentBucket(score float64) string {
	switch {
	case score >= 0.3:
		return SentimentPositive
	case math.Abs(score) <= 0.1:
		return SentimentNeutral
	case score < -0.1:
		return SentimentNegative
	default:
		return SentimentUnclassified
	}
}

// MatchesTrend reports whether a trend falls in the named bucket. Buckets
// overlap: a small rise is both improving and stable.
func MatchesTrend(a *professor.AdvancedAnalysis, trend string) bool {
	d, ok := a.TrendDelta()
	if !ok {
		return false
	}
	switch trend {
	case TrendImproving:
		return d > 0
	case TrendDeclining:
		return d < 0
	case TrendStable:
		return math.Abs(d) <= stableBand
	}
	return false
}

// TrendLabel picks one bucket for display: stable inside the band, otherwise
// the direction. Empty when there are fewer than two points.
func TrendLabel(a *professor.AdvancedAnalysis) string {
	d, ok := a.TrendDelta()
	switch {
	case !ok:
		return ""
	case math.Abs(d) <= stableBand:
		return TrendStable
	case d > 0:
		return TrendImproving
	default:
		return TrendDeclining
	}
}

// Apply returns the professors matching query and every constraint in f, in
// input order. Subject matching uses the clusters of the collection itself.
func Apply(professors []professor.Professor, query string, f Filter) []professor.Professor {
	var ix *cluster.Index
	if strings.TrimSpace(f.Subject) != "" {
		ix = cluster.ProfessorIndex(professors)
	}
	q := foldQuery(query)

	out := make([]professor.Professor, 0, len(professors))
	for i := range professors {
		p := &professors[i]
		if matchesQuery(p, q) && matchesSubject(p, f.Subject, ix) && matchesFilter(p, f) {
			out = append(out, *p)
		}
	}
	return out
}

func foldQuery(q string) string {
	return cluster.FoldAccents(strings.ToLower(strings.TrimSpace(q)))
}

func matchesQuery(p *professor.Professor, q string) bool {
	if q == "" {
		return true
	}
	fields := []string{p.Name, p.University, p.Department}
	if p.City != nil {
		fields = append(fields, *p.City)
	}
	for _, field := range fields {
		if strings.Contains(foldQuery(field), q) {
			return true
		}
	}
	return false
}

func matchesSubject(p *professor.Professor, subject string, ix *cluster.Index) bool {
	if ix == nil {
		return true
	}
	want := ix.Key(subject)
	for _, r := range p.Ratings {
		if ix.Key(r.Subject) == want {
			return true
		}
	}
	return false
}

func matchesFilter(p *professor.Professor, f Filter) bool {
	if p.OverallQuality < f.MinQuality || p.DifficultyLevel > f.MaxDifficulty {
		return false
	}
	if f.MinReviews > 0 && p.RatingCount < f.MinReviews {
		return false
	}
	a := p.Advanced
	if f.AdvancedOnly && a == nil {
		return false
	}
	if f.MinTrust > 0 && (a == nil || a.TrustScore == nil || *a.TrustScore < f.MinTrust) {
		return false
	}
	if f.Sentiment != SentimentAny {
		if a == nil || a.SentimentScore == nil || SentimentBucket(*a.SentimentScore) != f.Sentiment {
			return false
		}
	}
	if f.Trend != TrendAny && !MatchesTrend(a, f.Trend) {
		return false
	}
	return true
}
