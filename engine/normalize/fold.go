// Package normalize canonicalizes free-text listings: folding, brand alias
// resolution, power/year/generation extraction, and fuel/gearbox vocabulary
// mapping. Pure functions, no I/O; unresolvable fields come through as absent.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripper removes combining marks after NFD decomposition, so "é" folds to "e".
var stripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases, strips diacritics, replaces punctuation with spaces and
// collapses whitespace.
func Fold(s string) string {
	folded, _, err := transform.String(stripper, strings.ToLower(s))
	if err != nil {
		folded = strings.ToLower(s)
	}
	var b strings.Builder
	b.Grow(len(folded))
	space := true
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}

// Unit and filler tokens carry no identity and are dropped from comparisons.
var dropTokens = map[string]bool{
	"ch": true, "cv": true, "hp": true, "kw": true, "din": true,
	"km": true, "kms": true, "chevaux": true,
	"de": true, "du": true, "da": true, "la": true, "le": true, "les": true,
	"et": true, "avec": true, "occasion": true,
}

// Tokens folds s, splits on whitespace and letter/digit boundaries, and drops
// unit and filler tokens. Order is preserved, duplicates removed.
func Tokens(s string) []string {
	fields := strings.Fields(Fold(s))
	seen := make(map[string]bool, len(fields)*2)
	var out []string
	add := func(tok string) {
		if tok == "" || dropTokens[tok] || seen[tok] {
			return
		}
		seen[tok] = true
		out = append(out, tok)
	}
	for _, f := range fields {
		for _, part := range splitAlnum(f) {
			add(part)
		}
	}
	return out
}

// splitAlnum splits "90ch" into ["90","ch"] and "dci90" into ["dci","90"].
func splitAlnum(s string) []string {
	var parts []string
	start := 0
	for i := 1; i < len(s); i++ {
		prevDigit := s[i-1] >= '0' && s[i-1] <= '9'
		curDigit := s[i] >= '0' && s[i] <= '9'
		if prevDigit != curDigit {
			parts = append(parts, s[start:i])
			start = i
		}
	}
	return append(parts, s[start:])
}

// EditDistance is the Levenshtein distance between two strings, used for
// fuzzy model-token blocking.
func EditDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, min(cur[j-1]+1, prev[j-1]+cost))
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}

var romans = []string{"", "i", "ii", "iii", "iv", "v", "vi", "vii", "viii"}

// Roman renders a generation number 1-8 as a lowercase roman numeral.
func Roman(n int) string {
	if n <= 0 || n >= len(romans) {
		return ""
	}
	return romans[n]
}

// romanValue parses a lowercase roman numeral token back to its number.
func romanValue(tok string) int {
	for i, r := range romans {
		if i > 0 && r == tok {
			return i
		}
	}
	return 0
}
