package textutil

import (
	"regexp"
	"strings"

	"github.com/antzucaro/matchr"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

var turkish = cases.Lower(language.Turkish)

// NormalizeName lowercases (with Turkish casing rules) and removes all
// whitespace so that "KADIN HASTALIKLARI" and "kadın hastalıkları" compare
// equal.
func NormalizeName(name string) string {
	name = turkish.String(name)
	name = strings.TrimSpace(name)
	return whitespaceRegex.ReplaceAllString(name, "")
}

func MatchName(name string, matchers []string) bool {
	name = NormalizeName(name)
	for _, m := range matchers {
		if strings.Contains(name, NormalizeName(m)) {
			return true
		}
	}
	return false
}

// minimum Jaro-Winkler similarity for BestMatch to accept a candidate
const matchThreshold = 0.85

// BestMatch returns the index of the candidate most similar to query, a
// candidate containing the query outright wins over fuzzy matches.
// -1 is returned when nothing is similar enough.
func BestMatch(query string, candidates []string) int {
	query = NormalizeName(query)
	if query == "" {
		return -1
	}

	best := -1
	bestScore := 0.0
	for i, c := range candidates {
		normalized := NormalizeName(c)
		if normalized == query {
			return i
		}
		score := matchr.JaroWinkler(query, normalized, false)
		if strings.Contains(normalized, query) {
			score += 1
		}
		if score > bestScore {
			best = i
			bestScore = score
		}
	}
	if bestScore < matchThreshold {
		return -1
	}
	return best
}
