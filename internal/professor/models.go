package professor

// Grade categories derived from a rating's quality score.
const (
	GradeGood    = "GOOD"
	GradeRegular = "REGULAR"
	GradePoor    = "POOR"
)

// UnspecifiedDepartment is used when neither the record nor its ratings name a department.
const UnspecifiedDepartment = "No especificado"

// Professor is the canonical, normalized professor record.
// Values are built once by Normalize and treated as read-only afterwards.
type Professor struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	University       string            `json:"university"`
	City             *string           `json:"city,omitempty"`
	Department       string            `json:"department"`
	OverallQuality   float64           `json:"overall_quality"`
	RecommendPercent float64           `json:"recommend_percent"`
	DifficultyLevel  float64           `json:"difficulty_level"`
	Tags             []string          `json:"tags"`
	RatingCount      int               `json:"rating_count"`
	Ratings          []Rating          `json:"ratings"`
	Advanced         *AdvancedAnalysis `json:"advanced_analysis,omitempty"`
}

// Rating is a single student review owned by its Professor.
type Rating struct {
	Date          string   `json:"date"`
	Subject       string   `json:"subject"`
	QualityScore  *float64 `json:"quality_score"`
	EaseScore     *float64 `json:"ease_score,omitempty"`
	GradeCategory string   `json:"grade_category"`
	Attendance    *string  `json:"attendance,omitempty"`
	GradeReceived *string  `json:"grade_received,omitempty"`
	ClassInterest *string  `json:"class_interest,omitempty"`
	Comment       string   `json:"comment"`
	CommentTags   []string `json:"comment_tags,omitempty"`
}

// AdvancedAnalysis holds enrichment metrics. A nil member means the source
// did not supply it; zero is a real observation.
type AdvancedAnalysis struct {
	SentimentScore  *float64  `json:"sentiment_score,omitempty"`
	TrustScore      *float64  `json:"trust_score,omitempty"`
	QualityTrend    []float64 `json:"quality_trend,omitempty"`
	ForecastQuality *float64  `json:"forecast_quality,omitempty"`
}

// HasTrend reports whether the quality trend has enough points to compare.
func (a *AdvancedAnalysis) HasTrend() bool {
	return a != nil && len(a.QualityTrend) >= 2
}

// TrendDelta returns last minus first point of the quality trend.
func (a *AdvancedAnalysis) TrendDelta() (float64, bool) {
	if !a.HasTrend() {
		return 0, false
	}
	return a.QualityTrend[len(a.QualityTrend)-1] - a.QualityTrend[0], true
}

// RecordError describes one source that could not become a Professor.
type RecordError struct {
	RecordID   string `json:"professor_id"`
	Message    string `json:"error"`
	SourceFile string `json:"filename,omitempty"`
}

// LoadResult is the output of one load pass. Partial success is normal.
type LoadResult struct {
	Professors []Professor   `json:"professors"`
	Errors     []RecordError `json:"errors"`
	// Discovered is false when no source list could be obtained at all.
	Discovered bool `json:"-"`
}

// GradeCategory buckets a quality score: >=8 good, >=6 regular, else poor.
func GradeCategory(quality float64) string {
	switch {
	case quality >= 8:
		return GradeGood
	case quality >= 6:
		return GradeRegular
	default:
		return GradePoor
	}
}

// Subjects returns the distinct non-empty rating subjects in first-seen order.
func (p *Professor) Subjects() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range p.Ratings {
		if r.Subject == "" {
			continue
		}
		if _, ok := seen[r.Subject]; ok {
			continue
		}
		seen[r.Subject] = struct{}{}
		out = append(out, r.Subject)
	}
	return out
}
