// Package fuzzy scores string similarity on a 0-100 scale and picks the best
// matches from a list of choices.
package fuzzy

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

// Match is one scored choice. Index is its position in the choices slice.
type Match struct {
	Choice string
	Score  int
	Index  int
}

// Process lowercases s, replaces every non alphanumeric rune with a space and
// trims the result.
func Process(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.TrimSpace(b.String())
}

// Ratio is the edit-distance similarity of a and b.
func Ratio(a, b string) float64 {
	la, lb := runeLen(a), runeLen(b)
	if la == 0 && lb == 0 {
		return 100
	}
	longest := max(la, lb)
	dist := levenshtein.ComputeDistance(a, b)
	return 100 * float64(longest-dist) / float64(longest)
}

// PartialRatio slides the shorter string over the longer one and keeps the
// best window.
func PartialRatio(a, b string) float64 {
	short, long := []rune(a), []rune(b)
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == 0 {
		if len(long) == 0 {
			return 100
		}
		return 0
	}

	best := 0.0
	s := string(short)
	for start := 0; start+len(short) <= len(long); start++ {
		r := Ratio(s, string(long[start:start+len(short)]))
		if r > best {
			best = r
			if best == 100 {
				break
			}
		}
	}
	return best
}

func TokenSortRatio(a, b string) float64 {
	return Ratio(sortedTokens(a), sortedTokens(b))
}

func PartialTokenSortRatio(a, b string) float64 {
	return PartialRatio(sortedTokens(a), sortedTokens(b))
}

func TokenSetRatio(a, b string) float64 {
	return tokenSet(a, b, Ratio)
}

func PartialTokenSetRatio(a, b string) float64 {
	return tokenSet(a, b, PartialRatio)
}

// WRatio combines the scorers above, weighting partial matches by how
// different the two lengths are. Inputs are run through Process first; an
// empty processed input scores 0.
func WRatio(a, b string) int {
	a, b = Process(a), Process(b)
	if a == "" || b == "" {
		return 0
	}

	base := Ratio(a, b)
	la, lb := float64(runeLen(a)), float64(runeLen(b))
	lenRatio := math.Max(la, lb) / math.Min(la, lb)

	if lenRatio < 1.5 {
		best := math.Max(base, TokenSortRatio(a, b)*0.95)
		best = math.Max(best, TokenSetRatio(a, b)*0.95)
		return int(math.Round(best))
	}

	partialScale := 0.9
	if lenRatio >= 8 {
		partialScale = 0.6
	}
	best := math.Max(base, PartialRatio(a, b)*partialScale)
	best = math.Max(best, PartialTokenSortRatio(a, b)*0.95*partialScale)
	best = math.Max(best, PartialTokenSetRatio(a, b)*0.95*partialScale)
	return int(math.Round(best))
}

// Extract scores query against every choice with WRatio and returns the best
// limit matches, highest score first. Equal scores keep choice order.
func Extract(query string, choices []string, limit int) []Match {
	matches := make([]Match, len(choices))
	for i, c := range choices {
		matches[i] = Match{Choice: c, Score: WRatio(query, c), Index: i}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if limit >= 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

func sortedTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

func tokenSet(a, b string, score func(string, string) float64) float64 {
	setA, setB := tokenSetOf(a), tokenSetOf(b)

	var common, onlyA, onlyB []string
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			common = append(common, tok)
		} else {
			onlyA = append(onlyA, tok)
		}
	}
	for tok := range setB {
		if _, ok := setA[tok]; !ok {
			onlyB = append(onlyB, tok)
		}
	}
	sort.Strings(common)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	base := strings.Join(common, " ")
	withA := strings.TrimSpace(base + " " + strings.Join(onlyA, " "))
	withB := strings.TrimSpace(base + " " + strings.Join(onlyB, " "))

	best := score(withA, withB)
	if base != "" {
		best = math.Max(best, score(base, withA))
		best = math.Max(best, score(base, withB))
	}
	return best
}

func tokenSetOf(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(s) {
		set[tok] = struct{}{}
	}
	return set
}

func runeLen(s string) int {
	return len([]rune(s))
}
