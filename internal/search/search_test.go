package search

import (
	"fmt"
	"testing"

	"github.com/TobiSchelling/facultypulse/internal/professor"
)

func f64(v float64) *float64 { return &v }

func prof(id string, quality float64, subjects ...string) professor.Professor {
	p := professor.Professor{
		ID: id, Name: "Prof " + id, University: "UNAM", Department: "Ciencias",
		OverallQuality: quality, DifficultyLevel: 3, Tags: []string{},
	}
	for _, s := range subjects {
		p.Ratings = append(p.Ratings, professor.Rating{Subject: s})
	}
	return p
}

func ids(ps []professor.Professor) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

func TestDefaultFilterMatchesEverything(t *testing.T) {
	ps := []professor.Professor{prof("a", 2, "Historia"), prof("b", 9)}
	got := Apply(ps, "", DefaultFilter())
	if len(got) != 2 {
		t.Errorf("expected both professors, got %v", ids(got))
	}
	if !DefaultFilter().IsDefault() {
		t.Error("expected DefaultFilter to report IsDefault")
	}
}

func TestFilterAndComposition(t *testing.T) {
	var ps []professor.Professor
	for i := range 10 {
		subject := "Historia"
		if i%2 == 0 {
			subject = "Calculus"
		}
		ps = append(ps, prof(fmt.Sprint(i), float64(i+1), subject))
	}

	both := DefaultFilter()
	both.MinQuality = 8
	both.Subject = "Calculus"
	got := Apply(ps, "", both)
	// quality >= 8 are ids 7,8,9; Calculus are even ids
	if want := []string{"8"}; fmt.Sprint(ids(got)) != fmt.Sprint(want) {
		t.Fatalf("expected %v, got %v", want, ids(got))
	}

	onlyQuality := DefaultFilter()
	onlyQuality.MinQuality = 8
	onlySubject := DefaultFilter()
	onlySubject.Subject = "calculus"

	for name, relaxed := range map[string]Filter{"quality": onlyQuality, "subject": onlySubject} {
		r := Apply(ps, "", relaxed)
		if len(r) < len(got) {
			t.Errorf("relaxing to %s shrank the result: %d < %d", name, len(r), len(got))
		}
		found := false
		for _, p := range r {
			if p.ID == "8" {
				found = true
			}
		}
		if !found {
			t.Errorf("relaxing to %s lost a matching professor", name)
		}
	}
}

func TestApplyKeepsInputOrder(t *testing.T) {
	ps := []professor.Professor{prof("c", 9), prof("a", 8), prof("b", 9.5)}
	f := DefaultFilter()
	f.MinQuality = 8.5
	if got := ids(Apply(ps, "", f)); fmt.Sprint(got) != "[c b]" {
		t.Errorf("expected [c b], got %v", got)
	}
}

func TestQueryMatchesFields(t *testing.T) {
	city := "Monterrey"
	p := prof("a", 8)
	p.Name = "José García"
	p.City = &city
	ps := []professor.Professor{p, prof("b", 8)}

	for _, q := range []string{"garcia", "GARCÍA", "monterrey", "unam", "cienc"} {
		got := Apply(ps, q, DefaultFilter())
		if len(got) == 0 || got[0].ID != "a" {
			t.Errorf("query %q: expected professor a, got %v", q, ids(got))
		}
	}
	if got := Apply(ps, "tijuana", DefaultFilter()); len(got) != 0 {
		t.Errorf("expected no match, got %v", ids(got))
	}
}

func TestSubjectFilterUsesClusters(t *testing.T) {
	ps := []professor.Professor{
		prof("a", 8, "Álgebra Lineal"),
		prof("b", 8, "Álg. Linea"),
		prof("c", 8, "Historia"),
	}
	f := DefaultFilter()
	f.Subject = "algebra lineal"
	if got := ids(Apply(ps, "", f)); fmt.Sprint(got) != "[a b]" {
		t.Errorf("expected [a b], got %v", got)
	}
}

func TestSubjectFilterSeparatesCourseNumbers(t *testing.T) {
	ps := []professor.Professor{
		prof("a", 8, "Cálculo I"),
		prof("b", 8, "Cálculo II"),
		prof("c", 8, "Cálculo III"),
	}
	f := DefaultFilter()
	f.Subject = "Cálculo I"
	if got := ids(Apply(ps, "", f)); fmt.Sprint(got) != "[a]" {
		t.Errorf("expected [a], got %v", got)
	}
}

func TestAdvancedFilters(t *testing.T) {
	withAll := prof("all", 8)
	withAll.RatingCount = 20
	withAll.Advanced = &professor.AdvancedAnalysis{
		SentimentScore: f64(0.5),
		TrustScore:     f64(0.9),
		QualityTrend:   []float64{7, 7.3},
	}
	gap := prof("gap", 8)
	gap.Advanced = &professor.AdvancedAnalysis{SentimentScore: f64(0.2)}
	plain := prof("plain", 8)
	ps := []professor.Professor{withAll, gap, plain}

	cases := []struct {
		name   string
		mutate func(*Filter)
		want   string
	}{
		{"advanced only", func(f *Filter) { f.AdvancedOnly = true }, "[all gap]"},
		{"trust", func(f *Filter) { f.MinTrust = 0.8 }, "[all]"},
		{"positive", func(f *Filter) { f.Sentiment = SentimentPositive }, "[all]"},
		{"unclassified", func(f *Filter) { f.Sentiment = SentimentUnclassified }, "[gap]"},
		{"improving", func(f *Filter) { f.Trend = TrendImproving }, "[all]"},
		{"stable overlaps improving", func(f *Filter) { f.Trend = TrendStable }, "[all]"},
		{"declining", func(f *Filter) { f.Trend = TrendDeclining }, "[]"},
		{"min reviews", func(f *Filter) { f.MinReviews = 10 }, "[all]"},
	}
	for _, tc := range cases {
		f := DefaultFilter()
		tc.mutate(&f)
		if got := fmt.Sprint(ids(Apply(ps, "", f))); got != tc.want {
			t.Errorf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

func TestSentimentBucket(t *testing.T) {
	cases := map[float64]string{
		0.3:   SentimentPositive,
		0.9:   SentimentPositive,
		0.1:   SentimentNeutral,
		-0.1:  SentimentNeutral,
		0:     SentimentNeutral,
		-0.2:  SentimentNegative,
		-0.35: SentimentNegative,
		0.2:   SentimentUnclassified,
	}
	for score, want := range cases {
		if got := SentimentBucket(score); got != want {
			t.Errorf("SentimentBucket(%v) = %q, want %q", score, got, want)
		}
	}
}

func TestTrendNeedsTwoPoints(t *testing.T) {
	a := &professor.AdvancedAnalysis{QualityTrend: []float64{9}}
	for _, tr := range []string{TrendImproving, TrendStable, TrendDeclining} {
		if MatchesTrend(a, tr) {
			t.Errorf("single-point trend must not match %s", tr)
		}
	}
	if TrendLabel(nil) != "" {
		t.Error("expected empty label without analysis")
	}
	if TrendLabel(&professor.AdvancedAnalysis{QualityTrend: []float64{5, 7}}) != TrendImproving {
		t.Error("expected improving label")
	}
}

func TestParseBuckets(t *testing.T) {
	if s, ok := ParseSentiment("Positivo"); !ok || s != SentimentPositive {
		t.Errorf("ParseSentiment(Positivo) = %q, %v", s, ok)
	}
	if _, ok := ParseSentiment("great"); ok {
		t.Error("expected unknown sentiment to be rejected")
	}
	if tr, ok := ParseTrend("declinando"); !ok || tr != TrendDeclining {
		t.Errorf("ParseTrend(declinando) = %q, %v", tr, ok)
	}
}

func TestPaginate(t *testing.T) {
	items := make([]int, 23)
	for i := range items {
		items[i] = i
	}

	cases := []struct {
		page, wantNumber, wantLen, wantFirst int
	}{
		{1, 1, 9, 0},
		{2, 2, 9, 9},
		{3, 3, 5, 18},
		{0, 1, 9, 0},
		{99, 3, 5, 18},
		{-4, 1, 9, 0},
	}
	for _, tc := range cases {
		p := Paginate(items, tc.page, PageSize)
		if p.Number != tc.wantNumber || len(p.Items) != tc.wantLen || p.Items[0] != tc.wantFirst {
			t.Errorf("page(%d): got number=%d len=%d first=%d", tc.page, p.Number, len(p.Items), p.Items[0])
		}
		if p.TotalPages != 3 || p.TotalItems != 23 {
			t.Errorf("page(%d): unexpected totals %d/%d", tc.page, p.TotalPages, p.TotalItems)
		}
	}

	last := Paginate(items, 3, PageSize)
	if last.HasNext() || !last.HasPrev() {
		t.Error("expected last page to have prev but no next")
	}
}

func TestPaginateEmpty(t *testing.T) {
	p := Paginate([]int{}, 5, PageSize)
	if p.Number != 1 || len(p.Items) != 0 || p.TotalPages != 0 {
		t.Errorf("unexpected empty page %+v", p)
	}
}
