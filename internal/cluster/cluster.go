// Package cluster groups free-text subject names that refer to the same course.
package cluster

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/TobiSchelling/facultypulse/internal/professor"
)

// preferredMarker makes a variant outrank others when picking a group label;
// abbreviated course names should map to the full historical name.
const preferredMarker = "lineal"

// Group is one set of subject variants sharing a canonical key.
type Group struct {
	Label    string   `json:"label"`
	Key      string   `json:"key"`
	Variants []string `json:"variants"`
}

// FoldAccents strips combining marks (á -> a, ñ -> n).
func FoldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeSubject returns the grouping key for a subject: lowercase, accents
// folded, anything but [a-z0-9] turned into a space, whitespace collapsed.
func NormalizeSubject(s string) string {
	s = FoldAccents(strings.ToLower(strings.TrimSpace(s)))
	s = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// Index maps subject keys to their group after clustering.
type Index struct {
	root   map[string]string
	groups []Group
}

// NewIndex clusters subjects. Exact key matches always group. A key written
// with a dotted abbreviation somewhere ("Álg. Linea") whose words are each a
// prefix of the words of exactly one fuller key ("algebra lineal") is merged
// into that group. Course numbers never abbreviate each other, so "Cálc. I"
// does not join "Cálculo II".
func NewIndex(subjects []string) *Index {
	var keys []string
	seenKey := make(map[string]bool)
	dotted := make(map[string]bool)
	for _, s := range subjects {
		k := NormalizeSubject(s)
		if k == "" {
			continue
		}
		if hasDottedWord(s) {
			dotted[k] = true
		}
		if seenKey[k] {
			continue
		}
		seenKey[k] = true
		keys = append(keys, k)
	}

	root := make(map[string]string, len(keys))
	abbreviated := make(map[string]bool)
	for _, k := range keys {
		if !dotted[k] {
			continue
		}
		for _, other := range keys {
			if isAbbreviation(k, other) {
				abbreviated[k] = true
				break
			}
		}
	}
	for _, k := range keys {
		root[k] = k
		if !abbreviated[k] {
			continue
		}
		var targets []string
		for _, other := range keys {
			if !abbreviated[other] && isAbbreviation(k, other) {
				targets = append(targets, other)
			}
		}
		if len(targets) == 1 {
			root[k] = targets[0]
		}
	}

	ix := &Index{root: root}
	pos := make(map[string]int)
	seenVariant := make(map[string]bool)
	for _, s := range subjects {
		k := NormalizeSubject(s)
		if k == "" || seenVariant[s] {
			continue
		}
		seenVariant[s] = true
		r := root[k]
		i, ok := pos[r]
		if !ok {
			i = len(ix.groups)
			pos[r] = i
			ix.groups = append(ix.groups, Group{Key: r})
		}
		ix.groups[i].Variants = append(ix.groups[i].Variants, s)
	}
	for i := range ix.groups {
		ix.groups[i].Label = pickLabel(ix.groups[i].Variants)
	}
	return ix
}

// Key returns the canonical group key for any subject string, known or not.
func (ix *Index) Key(subject string) string {
	k := NormalizeSubject(subject)
	if r, ok := ix.root[k]; ok {
		return r
	}
	return k
}

// Groups returns the groups in order of first appearance.
func (ix *Index) Groups() []Group {
	return ix.groups
}

// Labels returns the representative labels sorted alphabetically.
func (ix *Index) Labels() []string {
	labels := make([]string, len(ix.groups))
	for i, g := range ix.groups {
		labels[i] = g.Label
	}
	sort.Strings(labels)
	return labels
}

// Cluster groups subjects by canonical key.
func Cluster(subjects []string) []Group {
	return NewIndex(subjects).Groups()
}

// ProfessorIndex clusters every rating subject in the collection, skipping
// empty values and the literal "undefined" left behind by the scraper.
func ProfessorIndex(professors []professor.Professor) *Index {
	var subjects []string
	for i := range professors {
		for _, r := range professors[i].Ratings {
			if strings.TrimSpace(r.Subject) == "" || r.Subject == "undefined" {
				continue
			}
			subjects = append(subjects, r.Subject)
		}
	}
	return NewIndex(subjects)
}

// Subjects returns the sorted subject labels offered as filter choices.
func Subjects(professors []professor.Professor) []string {
	return ProfessorIndex(professors).Labels()
}

func pickLabel(variants []string) string {
	best := variants[0]
	for _, v := range variants[1:] {
		bs, vs := labelScore(best), labelScore(v)
		if vs > bs || (vs == bs && utf8.RuneCountInString(v) < utf8.RuneCountInString(best)) {
			best = v
		}
	}
	return best
}

func labelScore(s string) int {
	if strings.Contains(strings.ToLower(s), preferredMarker) {
		return 2
	}
	return 1
}

// isAbbreviation reports whether short abbreviates long word by word.
func isAbbreviation(short, long string) bool {
	if short == long || len(short) >= len(long) {
		return false
	}
	sw, lw := strings.Fields(short), strings.Fields(long)
	if len(sw) != len(lw) {
		return false
	}
	for i := range sw {
		if sw[i] == lw[i] {
			continue
		}
		if isCourseNumber(sw[i]) || !strings.HasPrefix(lw[i], sw[i]) {
			return false
		}
	}
	return true
}

var romanNumeral = regexp.MustCompile(`^(x{0,3})(ix|iv|v?i{0,3})$`)

// isCourseNumber matches "2", "10", "ii", "iv" and the like.
func isCourseNumber(w string) bool {
	if w == "" {
		return false
	}
	if strings.IndexFunc(w, func(r rune) bool { return r < '0' || r > '9' }) < 0 {
		return true
	}
	return romanNumeral.MatchString(w)
}

func hasDottedWord(s string) bool {
	for _, w := range strings.Fields(s) {
		if len(w) > 1 && strings.HasSuffix(w, ".") {
			return true
		}
	}
	return false
}
