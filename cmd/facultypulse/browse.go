package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/TobiSchelling/facultypulse/internal/cluster"
	"github.com/TobiSchelling/facultypulse/internal/compose"
	"github.com/TobiSchelling/facultypulse/internal/pipeline"
	"github.com/TobiSchelling/facultypulse/internal/professor"
	"github.com/TobiSchelling/facultypulse/internal/search"
	"github.com/TobiSchelling/facultypulse/internal/stats"
)

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(subjectsCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(errorsCmd)
	rootCmd.AddCommand(reportCmd)
}

// --- list command ---

var (
	listFilter    = search.DefaultFilter()
	listSentiment string
	listTrend     string
	listPage      int
	listJSON      bool
)

var listCmd = &cobra.Command{
	Use:   "list [query]",
	Short: "Search professors by name, university, department, or city",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f := listFilter
		var ok bool
		if f.Sentiment, ok = search.ParseSentiment(listSentiment); !ok {
			return fmt.Errorf("unknown sentiment %q (positive, neutral, negative, unclassified)", listSentiment)
		}
		if f.Trend, ok = search.ParseTrend(listTrend); !ok {
			return fmt.Errorf("unknown trend %q (improving, stable, declining)", listTrend)
		}
		query := ""
		if len(args) > 0 {
			query = args[0]
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		result, err := loadDataset(cmd.Context(), db)
		if err != nil {
			return err
		}

		page := search.Paginate(search.Apply(result.Professors, query, f), listPage, search.PageSize)
		if listJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(page)
		}

		if page.TotalItems == 0 {
			fmt.Println("No professors match.")
			return nil
		}
		for _, p := range page.Items {
			fmt.Printf("  %-10s %-32s %4.1f  %s, %s\n", p.ID, truncate(p.Name, 32), p.OverallQuality, p.University, p.Department)
		}
		fmt.Printf("\nPage %d of %d (%s of %s professors)\n", page.Number, page.TotalPages,
			humanize.Comma(int64(page.TotalItems)), humanize.Comma(int64(len(result.Professors))))
		return nil
	},
}

func init() {
	fl := listCmd.Flags()
	fl.StringVar(&listFilter.Subject, "subject", "", "Only professors rated for this subject")
	fl.Float64Var(&listFilter.MinQuality, "min-quality", 0, "Minimum overall quality (0-10)")
	fl.Float64Var(&listFilter.MaxDifficulty, "max-difficulty", search.DefaultMaxDifficulty, "Maximum difficulty (0-5)")
	fl.Float64Var(&listFilter.MinTrust, "min-trust", 0, "Minimum trust score (0-1)")
	fl.IntVar(&listFilter.MinReviews, "min-reviews", 0, "Minimum number of reviews")
	fl.BoolVar(&listFilter.AdvancedOnly, "advanced", false, "Only professors with advanced analysis")
	fl.StringVar(&listSentiment, "sentiment", "", "Sentiment bucket: positive, neutral, negative, unclassified")
	fl.StringVar(&listTrend, "trend", "", "Quality trend: improving, stable, declining")
	fl.IntVar(&listPage, "page", 1, "Page number")
	fl.BoolVar(&listJSON, "json", false, "Print the page as JSON")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// --- show command ---

var showCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show a professor's profile and reviews",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		result, err := loadDataset(cmd.Context(), db)
		if err != nil {
			return err
		}
		p := findProfessor(result.Professors, args[0])
		if p == nil {
			return fmt.Errorf("professor %s not found", args[0])
		}

		fmt.Println(p.Name)
		fmt.Printf("  %s · %s", p.University, p.Department)
		if p.City != nil {
			fmt.Printf(" · %s", *p.City)
		}
		fmt.Println()
		fmt.Printf("  Quality %.1f · Would recommend %.0f%% · Difficulty %.1f · %d reviews\n",
			p.OverallQuality, p.RecommendPercent, p.DifficultyLevel, p.RatingCount)
		if len(p.Tags) > 0 {
			fmt.Printf("  Tags: %s\n", strings.Join(p.Tags, ", "))
		}
		if a := p.Advanced; a != nil {
			if a.SentimentScore != nil {
				fmt.Printf("  Sentiment: %.2f (%s)\n", *a.SentimentScore, search.SentimentBucket(*a.SentimentScore))
			}
			if a.TrustScore != nil {
				fmt.Printf("  Trust: %.2f\n", *a.TrustScore)
			}
			if t := search.TrendLabel(a); t != "" {
				fmt.Printf("  Trend: %s\n", t)
			}
			if a.ForecastQuality != nil {
				fmt.Printf("  Forecast quality: %.1f\n", *a.ForecastQuality)
			}
		}

		if s := newSummarizer(db).Stored(cmd.Context(), p.ID); s != nil {
			fmt.Printf("\nAI summary (%s, %s):\n  %s\n", s.Model, humanize.Time(s.CreatedAt), s.Summary)
		}

		fmt.Println("\nReviews:")
		for _, r := range p.Ratings {
			score := "-"
			if r.QualityScore != nil {
				score = fmt.Sprintf("%.1f", *r.QualityScore)
			}
			fmt.Printf("  [%s] %s %s (%s)\n", score, r.Date, r.Subject, r.GradeCategory)
			if r.Comment != "" {
				fmt.Printf("    %s\n", r.Comment)
			}
		}
		return nil
	},
}

func findProfessor(ps []professor.Professor, id string) *professor.Professor {
	for i := range ps {
		if ps[i].ID == id {
			return &ps[i]
		}
	}
	return nil
}

// --- subjects command ---

var subjectsCmd = &cobra.Command{
	Use:   "subjects",
	Short: "List subjects, grouping spelling variants",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		result, err := loadDataset(cmd.Context(), db)
		if err != nil {
			return err
		}

		for _, g := range cluster.ProfessorIndex(result.Professors).Groups() {
			fmt.Println(g.Label)
			if verbose && len(g.Variants) > 1 {
				fmt.Printf("    %s\n", strings.Join(g.Variants, " | "))
			}
		}
		return nil
	},
}

// --- stats command ---

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show dataset-wide statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		result, err := loadDataset(cmd.Context(), db)
		if err != nil {
			return err
		}

		s := stats.Summarize(result.Professors)
		fmt.Printf("Professors: %s\n", humanize.Comma(int64(s.Total)))
		fmt.Printf("Average quality: %.2f\n", s.AverageQuality)
		fmt.Printf("Reviews: %s\n", humanize.Comma(int64(s.TotalRatings)))
		fmt.Printf("With advanced analysis: %d (%.0f%%)\n", s.WithAdvanced, s.AdvancedPercent)
		fmt.Printf("Average trust: %.0f%% over %d\n", s.AverageTrustPercent, s.WithTrust)
		fmt.Printf("Positive sentiment: %d (%.0f%% of %d)\n", s.PositiveSentiment, s.PositiveSentimentPercent, s.WithSentiment)
		fmt.Printf("Improving: %d (%.0f%% of %d)\n", s.Improving, s.ImprovingPercent, s.WithTrend)

		fmt.Println("\nQuality distribution:")
		maxCount := s.MaxBucket()
		for _, b := range s.QualityHistogram {
			width := 0
			if maxCount > 0 {
				width = b.Count * 40 / maxCount
			}
			fmt.Printf("  %-9s %s %d\n", b.Label, strings.Repeat("#", width), b.Count)
		}
		return nil
	},
}

// --- errors command ---

var errorsCmd = &cobra.Command{
	Use:   "errors",
	Short: "List records that failed to load, grouped by error",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		result, err := runPipeline(cmd.Context(), db, pipeline.Options{}, false)
		if err != nil {
			return err
		}
		if len(result.Errors) == 0 {
			fmt.Println("No records with errors.")
			return nil
		}
		for _, g := range stats.GroupErrors(result.Errors) {
			fmt.Printf("%s (%d)\n", g.Message, g.Count())
			fmt.Printf("  %s\n", strings.Join(g.RecordIDs, ", "))
		}
		return nil
	},
}

// --- report command ---

var reportOut string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write a markdown report of the dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		result, err := loadDataset(cmd.Context(), db)
		if err != nil {
			return err
		}

		report := compose.Compose(compose.Input{
			Professors: result.Professors,
			Errors:     result.Errors,
			LoadedAt:   result.Timestamp,
			Now:        time.Now(),
		})
		if reportOut == "" {
			fmt.Print(report)
			return nil
		}
		if err := os.WriteFile(reportOut, []byte(report), 0o644); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		fmt.Printf("Report written to %s\n", reportOut)
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVarP(&reportOut, "output", "o", "", "Write the report to a file instead of stdout")
}
