package professor

import (
	"errors"
	"strconv"
	"strings"
)

const maxTags = 5

// ErrIncompleteRecord is returned when a record has no name or university.
var ErrIncompleteRecord = errors.New("incomplete professor record: missing name or university")

// enrichedKeys mark the analysis-pipeline output shape.
var enrichedKeys = []string{
	"reviews_public", "decay_analysis", "bayes_analysis", "nlp_analysis",
	"trends_analysis", "integrity_analysis", "recommendation_analysis",
}

// Normalize converts one decoded JSON record into a Professor. It accepts both
// the enriched analysis shape and the legacy scraped shape; unknown fields are
// ignored. sourceID (usually the file name) is the ID fallback.
func Normalize(raw map[string]any, sourceID string) (*Professor, error) {
	name := strings.TrimSpace(firstString(raw, "nombre", "name"))
	university := strings.TrimSpace(firstString(raw, "universidad", "university"))
	if name == "" || university == "" {
		return nil, ErrIncompleteRecord
	}

	p := &Professor{
		ID:         recordID(raw, sourceID),
		Name:       name,
		University: university,
		City:       optString(raw, "ciudad", "city"),
	}

	if isEnriched(raw) {
		normalizeEnriched(raw, p)
	} else {
		normalizeLegacy(raw, p)
	}

	if p.Tags == nil {
		p.Tags = []string{}
	}
	if p.Ratings == nil {
		p.Ratings = []Rating{}
	}
	p.Department = department(raw, p.Ratings)
	return p, nil
}

// IsErrorMarker reports whether a record is a pre-marked failure
// ({"error": ..., "professor_id": ...}) and returns it as a RecordError.
func IsErrorMarker(raw map[string]any) (RecordError, bool) {
	msg, _ := raw["error"].(string)
	id := stringValue(raw["professor_id"])
	if msg == "" || id == "" {
		return RecordError{}, false
	}
	return RecordError{RecordID: id, Message: msg}, true
}

func isEnriched(raw map[string]any) bool {
	for _, k := range enrichedKeys {
		if _, ok := raw[k]; ok {
			return true
		}
	}
	return false
}

func recordID(raw map[string]any, sourceID string) string {
	if id := stringValue(raw["professor_id"]); id != "" {
		return id
	}
	return strings.TrimSuffix(sourceID, ".json")
}

func department(raw map[string]any, ratings []Rating) string {
	if d := strings.TrimSpace(firstString(raw, "departamento", "department")); d != "" {
		return d
	}
	if len(ratings) > 0 && ratings[0].Subject != "" {
		return ratings[0].Subject
	}
	return UnspecifiedDepartment
}

func normalizeEnriched(raw map[string]any, p *Professor) {
	decay := mapAt(raw, "decay_analysis")
	bayes := mapAt(raw, "bayes_analysis")

	// Decayed first, Bayesian second; an explicit zero stops the chain.
	p.OverallQuality = firstPresent(number(decay, "quality_decayed"), number(bayes, "quality_bayes"))
	p.DifficultyLevel = firstPresent(number(decay, "difficulty_decayed"), number(bayes, "difficulty_bayes"))

	if rate := number(mapAt(raw, "recommendation_analysis"), "rate"); rate != nil {
		p.RecommendPercent = *rate * 100
	}
	if n := number(raw, "n_reviews"); n != nil {
		p.RatingCount = int(*n)
	}

	nlp := mapAt(raw, "nlp_analysis")
	p.Tags = topicTags(nlp)

	for _, item := range sliceAt(raw, "reviews_public") {
		review, _ := item.(map[string]any)
		p.Ratings = append(p.Ratings, enrichedRating(review))
	}

	adv := &AdvancedAnalysis{
		SentimentScore: number(mapAt(nlp, "sentiment"), "overall"),
		TrustScore:     number(mapAt(raw, "integrity_analysis"), "trust_score"),
	}
	trends := mapAt(raw, "trends_analysis")
	adv.QualityTrend = numbers(sliceAt(mapAt(trends, "quality_trend"), "series"))
	adv.ForecastQuality = number(mapAt(trends, "forecast"), "quality_next")
	p.Advanced = keepAdvanced(adv)
}

func normalizeLegacy(raw map[string]any, p *Professor) {
	p.OverallQuality = firstPresent(number(raw, "calidad_general"))
	p.RecommendPercent = firstPresent(number(raw, "porcentaje_recomienda"))
	p.DifficultyLevel = firstPresent(number(raw, "nivel_dificultad"))

	tags := stringList(sliceAt(raw, "etiquetas"))
	if len(tags) > maxTags {
		tags = tags[:maxTags]
	}
	p.Tags = tags

	for _, item := range sliceAt(raw, "calificaciones") {
		cal, _ := item.(map[string]any)
		p.Ratings = append(p.Ratings, legacyRating(cal))
	}

	if n := number(raw, "numero_calificaciones"); n != nil {
		p.RatingCount = int(*n)
	} else {
		p.RatingCount = len(p.Ratings)
	}

	if aa := mapAt(raw, "analisis_avanzado"); aa != nil {
		p.Advanced = keepAdvanced(&AdvancedAnalysis{
			SentimentScore:  number(aa, "sentiment_score"),
			TrustScore:      number(aa, "trust_score"),
			QualityTrend:    numbers(sliceAt(aa, "quality_trend")),
			ForecastQuality: number(aa, "forecast_quality"),
		})
	}
}

// enrichedRating maps a reviews_public entry. review may be nil when the
// entry was not an object; every field then degrades to its empty value.
func enrichedRating(review map[string]any) Rating {
	quality := number(review, "calidad")
	r := Rating{
		Date:          formatRatingDate(firstString(review, "fecha_iso")),
		Subject:       firstString(review, "materia"),
		QualityScore:  quality,
		EaseScore:     number(review, "dificultad"),
		GradeCategory: GradeCategory(firstPresent(quality)),
		Comment:       firstString(review, "comentario"),
	}
	if nota := number(review, "nota"); nota != nil {
		s := strconv.FormatFloat(*nota, 'f', -1, 64)
		r.GradeReceived = &s
	}
	return r
}

func legacyRating(cal map[string]any) Rating {
	quality := number(cal, "puntaje_calidad_general")
	return Rating{
		Date:          formatRatingDate(firstString(cal, "fecha")),
		Subject:       firstString(cal, "materia"),
		QualityScore:  quality,
		EaseScore:     number(cal, "puntaje_facilidad"),
		GradeCategory: GradeCategory(firstPresent(quality)),
		Attendance:    optString(cal, "asistencia"),
		GradeReceived: optText(cal, "calificacion_recibida"),
		ClassInterest: optString(cal, "interes_clase"),
		Comment:       firstString(cal, "comentario"),
		CommentTags:   stringList(sliceAt(cal, "etiquetas_comentario")),
	}
}

// topicTags flattens topics[*].words in source order and keeps the first five.
func topicTags(nlp map[string]any) []string {
	var tags []string
	for _, t := range sliceAt(nlp, "topics") {
		topic, _ := t.(map[string]any)
		tags = append(tags, stringList(sliceAt(topic, "words"))...)
		if len(tags) >= maxTags {
			return tags[:maxTags]
		}
	}
	return tags
}

func keepAdvanced(a *AdvancedAnalysis) *AdvancedAnalysis {
	if a.SentimentScore == nil && a.TrustScore == nil && a.QualityTrend == nil && a.ForecastQuality == nil {
		return nil
	}
	return a
}

// --- generic tree accessors ---

func mapAt(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	v, _ := m[key].(map[string]any)
	return v
}

func sliceAt(m map[string]any, key string) []any {
	if m == nil {
		return nil
	}
	v, _ := m[key].([]any)
	return v
}

// number reads a numeric field. Numeric strings are accepted; null, missing
// and non-numeric values yield nil.
func number(m map[string]any, key string) *float64 {
	if m == nil {
		return nil
	}
	switch v := m[key].(type) {
	case float64:
		return &v
	case int:
		f := float64(v)
		return &f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil
		}
		return &f
	}
	return nil
}

func numbers(items []any) []float64 {
	var out []float64
	for _, item := range items {
		if f, ok := item.(float64); ok {
			out = append(out, f)
		}
	}
	return out
}

func firstPresent(values ...*float64) float64 {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return 0
}

func stringValue(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	}
	return ""
}

func firstString(m map[string]any, keys ...string) string {
	if m == nil {
		return ""
	}
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func optString(m map[string]any, keys ...string) *string {
	s := firstString(m, keys...)
	if s == "" {
		return nil
	}
	return &s
}

// optText is optString that also accepts numeric values.
func optText(m map[string]any, key string) *string {
	if m == nil {
		return nil
	}
	s := strings.TrimSpace(stringValue(m[key]))
	if s == "" {
		return nil
	}
	return &s
}

func stringList(items []any) []string {
	var out []string
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
