package professor

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var spanishMonths = map[string]time.Month{
	"ene": time.January, "feb": time.February, "mar": time.March,
	"abr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "ago": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dic": time.December,
}

// Scraped dates look like 28/Dic/2016.
var spanishDateRe = regexp.MustCompile(`^(\d{1,2})/([A-Za-z]{3})/(\d{4})$`)

// formatRatingDate renders a source date in the short es-ES form (d/m/yyyy).
// Unparseable input is returned as-is so nothing the source said is lost.
func formatRatingDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	t, ok := parseRatingDate(s)
	if !ok {
		return s
	}
	return fmt.Sprintf("%d/%d/%d", t.Day(), int(t.Month()), t.Year())
}

func parseRatingDate(s string) (time.Time, bool) {
	if m := spanishDateRe.FindStringSubmatch(s); m != nil {
		month, ok := spanishMonths[strings.ToLower(m[2])]
		if !ok {
			return time.Time{}, false
		}
		day, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[3])
		return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), true
	}

	// Day-first numeric dates are what the scraper emits; dateparse assumes month-first.
	if t, err := time.Parse("2/1/2006", s); err == nil {
		return t, true
	}

	t, err := dateparse.ParseAny(s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
