// Package stats computes dataset-wide aggregates for the dashboard.
package stats

import "github.com/TobiSchelling/facultypulse/internal/professor"

// Bucket is one bar of the quality histogram.
type Bucket struct {
	Label string `json:"range"`
	Count int    `json:"count"`
}

// Stats summarizes a professor collection. Every percentage is taken over the
// professors that carry the relevant data, not over Total.
type Stats struct {
	Total                    int      `json:"total"`
	WithAdvanced             int      `json:"with_advanced"`
	AdvancedPercent          float64  `json:"advanced_percent"`
	AverageQuality           float64  `json:"average_quality"`
	TotalRatings             int      `json:"total_ratings"`
	WithTrust                int      `json:"with_trust"`
	AverageTrust             float64  `json:"average_trust"`
	AverageTrustPercent      float64  `json:"average_trust_percent"`
	WithSentiment            int      `json:"with_sentiment"`
	PositiveSentiment        int      `json:"positive_sentiment"`
	PositiveSentimentPercent float64  `json:"positive_sentiment_percent"`
	WithTrend                int      `json:"with_trend"`
	Improving                int      `json:"improving"`
	ImprovingPercent         float64  `json:"improving_percent"`
	QualityHistogram         []Bucket `json:"quality_histogram"`
}

// MaxBucket returns the largest histogram count, for scaling bars.
func (s Stats) MaxBucket() int {
	m := 0
	for _, b := range s.QualityHistogram {
		m = max(m, b.Count)
	}
	return m
}

// Summarize computes Stats over professors.
func Summarize(professors []professor.Professor) Stats {
	s := Stats{
		Total: len(professors),
		QualityHistogram: []Bucket{
			{Label: "9.0-10.0"},
			{Label: "8.0-8.9"},
			{Label: "7.0-7.9"},
			{Label: "6.0-6.9"},
			{Label: "<6.0"},
		},
	}

	var qualitySum, trustSum float64
	for i := range professors {
		p := &professors[i]
		qualitySum += p.OverallQuality
		s.TotalRatings += p.RatingCount
		s.QualityHistogram[histogramIndex(p.OverallQuality)].Count++

		a := p.Advanced
		if a == nil {
			continue
		}
		s.WithAdvanced++
		if a.TrustScore != nil {
			s.WithTrust++
			trustSum += *a.TrustScore
		}
		if a.SentimentScore != nil {
			s.WithSentiment++
			if *a.SentimentScore >= 0.3 {
				s.PositiveSentiment++
			}
		}
		if d, ok := a.TrendDelta(); ok {
			s.WithTrend++
			if d > 0 {
				s.Improving++
			}
		}
	}

	s.AverageQuality = ratio(qualitySum, s.Total)
	s.AdvancedPercent = 100 * ratio(float64(s.WithAdvanced), s.Total)
	s.AverageTrust = ratio(trustSum, s.WithTrust)
	s.AverageTrustPercent = 100 * s.AverageTrust
	s.PositiveSentimentPercent = 100 * ratio(float64(s.PositiveSentiment), s.WithSentiment)
	s.ImprovingPercent = 100 * ratio(float64(s.Improving), s.WithTrend)
	return s
}

func histogramIndex(q float64) int {
	switch {
	case q >= 9:
		return 0
	case q >= 8:
		return 1
	case q >= 7:
		return 2
	case q >= 6:
		return 3
	default:
		return 4
	}
}

func ratio(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
