// Package compose renders the dataset report as markdown.
package compose

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/TobiSchelling/facultypulse/internal/cluster"
	"github.com/TobiSchelling/facultypulse/internal/professor"
	"github.com/TobiSchelling/facultypulse/internal/search"
	"github.com/TobiSchelling/facultypulse/internal/stats"
)

const (
	topProfessors = 10
	topSubjects   = 10
	// Professors need this many ratings to be ranked.
	minRankedRatings = 3
)

// Input is everything the report is built from.
type Input struct {
	Professors []professor.Professor
	Errors     []professor.RecordError
	LoadedAt   time.Time
	Now        time.Time
}

// Compose renders the report.
func Compose(in Input) string {
	if in.Now.IsZero() {
		in.Now = time.Now()
	}
	s := stats.Summarize(in.Professors)

	var b strings.Builder
	b.WriteString("# Professor report\n\n")
	if !in.LoadedAt.IsZero() {
		fmt.Fprintf(&b, "*Data loaded %s (%s).*\n\n",
			humanize.RelTime(in.LoadedAt, in.Now, "ago", "from now"), in.LoadedAt.Format(time.DateTime))
	}

	if s.Total == 0 {
		b.WriteString("No professors loaded.\n")
		writeErrors(&b, in.Errors)
		return b.String()
	}

	writeSummary(&b, s)
	writeHistogram(&b, s)
	writeRanking(&b, in.Professors)
	writeSubjects(&b, in.Professors)
	writeTrends(&b, in.Professors)
	writeErrors(&b, in.Errors)
	return b.String()
}

func writeSummary(b *strings.Builder, s stats.Stats) {
	b.WriteString("## Summary\n\n")
	fmt.Fprintf(b, "- **Professors:** %s\n", humanize.Comma(int64(s.Total)))
	fmt.Fprintf(b, "- **Ratings:** %s\n", humanize.Comma(int64(s.TotalRatings)))
	fmt.Fprintf(b, "- **Average quality:** %.1f/10\n", s.AverageQuality)
	fmt.Fprintf(b, "- **With advanced analysis:** %d (%.0f%%)\n", s.WithAdvanced, s.AdvancedPercent)
	if s.WithTrust > 0 {
		fmt.Fprintf(b, "- **Average trust:** %.0f%% (over %d professors)\n", s.AverageTrustPercent, s.WithTrust)
	}
	if s.WithSentiment > 0 {
		fmt.Fprintf(b, "- **Positive sentiment:** %.0f%% (over %d professors)\n", s.PositiveSentimentPercent, s.WithSentiment)
	}
	if s.WithTrend > 0 {
		fmt.Fprintf(b, "- **Improving trend:** %.0f%% (over %d professors)\n", s.ImprovingPercent, s.WithTrend)
	}
	b.WriteString("\n")
}

func writeHistogram(b *strings.Builder, s stats.Stats) {
	b.WriteString("## Quality distribution\n\n")
	b.WriteString("| Range | Professors |\n|---|---:|\n")
	for _, bucket := range s.QualityHistogram {
		fmt.Fprintf(b, "| %s | %d |\n", bucket.Label, bucket.Count)
	}
	b.WriteString("\n")
}

func writeRanking(b *strings.Builder, ps []professor.Professor) {
	ranked := make([]professor.Professor, 0, len(ps))
	for _, p := range ps {
		if p.RatingCount >= minRankedRatings {
			ranked = append(ranked, p)
		}
	}
	if len(ranked) == 0 {
		return
	}
	slices.SortStableFunc(ranked, func(a, c professor.Professor) int {
		if n := cmp.Compare(c.OverallQuality, a.OverallQuality); n != 0 {
			return n
		}
		return cmp.Compare(c.RatingCount, a.RatingCount)
	})
	if len(ranked) > topProfessors {
		ranked = ranked[:topProfessors]
	}

	fmt.Fprintf(b, "## Top rated (at least %d ratings)\n\n", minRankedRatings)
	b.WriteString("| # | Professor | University | Quality | Recommend | Ratings |\n|---:|---|---|---:|---:|---:|\n")
	for i, p := range ranked {
		fmt.Fprintf(b, "| %d | %s | %s | %.1f | %.0f%% | %d |\n",
			i+1, cell(p.Name), cell(p.University), p.OverallQuality, p.RecommendPercent, p.RatingCount)
	}
	b.WriteString("\n")
}

func writeSubjects(b *strings.Builder, ps []professor.Professor) {
	ix := cluster.ProfessorIndex(ps)
	groups := ix.Groups()
	if len(groups) == 0 {
		return
	}

	// professors per subject group
	counts := make(map[string]int)
	for _, p := range ps {
		seen := make(map[string]bool)
		for _, r := range p.Ratings {
			k := ix.Key(r.Subject)
			if k != "" && !seen[k] {
				seen[k] = true
				counts[k]++
			}
		}
	}
	sorted := slices.Clone(groups)
	slices.SortStableFunc(sorted, func(a, c cluster.Group) int {
		return cmp.Compare(counts[c.Key], counts[a.Key])
	})
	if len(sorted) > topSubjects {
		sorted = sorted[:topSubjects]
	}

	fmt.Fprintf(b, "## Subjects\n\n%d distinct subjects. Most taught:\n\n", len(groups))
	b.WriteString("| Subject | Professors | Variants |\n|---|---:|---:|\n")
	for _, g := range sorted {
		fmt.Fprintf(b, "| %s | %d | %d |\n", cell(g.Label), counts[g.Key], len(g.Variants))
	}
	b.WriteString("\n")
}

func writeTrends(b *strings.Builder, ps []professor.Professor) {
	var improving, declining []string
	for _, p := range ps {
		switch search.TrendLabel(p.Advanced) {
		case search.TrendImproving:
			improving = append(improving, p.Name)
		case search.TrendDeclining:
			declining = append(declining, p.Name)
		}
	}
	if len(improving) == 0 && len(declining) == 0 {
		return
	}
	b.WriteString("## Trends\n\n")
	if len(improving) > 0 {
		fmt.Fprintf(b, "- **Improving (%d):** %s\n", len(improving), strings.Join(improving, ", "))
	}
	if len(declining) > 0 {
		fmt.Fprintf(b, "- **Declining (%d):** %s\n", len(declining), strings.Join(declining, ", "))
	}
	b.WriteString("\n")
}

func writeErrors(b *strings.Builder, errs []professor.RecordError) {
	groups := stats.GroupErrors(errs)
	if len(groups) == 0 {
		return
	}
	fmt.Fprintf(b, "## Records with errors (%d)\n\n", len(errs))
	for _, g := range groups {
		fmt.Fprintf(b, "- **%s** (%d): %s\n", g.Message, g.Count(), strings.Join(g.RecordIDs, ", "))
	}
	b.WriteString("\n")
}

func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
