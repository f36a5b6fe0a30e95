package match

import (
	"sort"
	"strings"
)

// Similarity scores two token sets on a 0-100 scale, insensitive to token
// order and duplication. It compares the sorted intersection against each
// side's remainder and keeps the best alignment, so a listing fully contained
// in a candidate's descriptor scores 100 regardless of word order.
func Similarity(a, b []string) float64 {
	sa, sb := toSet(a), toSet(b)
	if len(sa) == 0 || len(sb) == 0 {
		return 0
	}

	var inter, onlyA, onlyB []string
	for tok := range sa {
		if sb[tok] {
			inter = append(inter, tok)
		} else {
			onlyA = append(onlyA, tok)
		}
	}
	for tok := range sb {
		if !sa[tok] {
			onlyB = append(onlyB, tok)
		}
	}
	if len(inter) == 0 {
		return ratio(joinSorted(onlyA), joinSorted(onlyB))
	}

	t0 := joinSorted(inter)
	t1 := t0
	if len(onlyA) > 0 {
		t1 = t0 + " " + joinSorted(onlyA)
	}
	t2 := t0
	if len(onlyB) > 0 {
		t2 = t0 + " " + joinSorted(onlyB)
	}

	best := ratio(t0, t1)
	if r := ratio(t0, t2); r > best {
		best = r
	}
	if r := ratio(t1, t2); r > best {
		best = r
	}
	return best
}

func toSet(toks []string) map[string]bool {
	s := make(map[string]bool, len(toks))
	for _, t := range toks {
		if t != "" {
			s[t] = true
		}
	}
	return s
}

func joinSorted(toks []string) string {
	sorted := make([]string, len(toks))
	copy(sorted, toks)
	sort.Strings(sorted)
	return strings.Join(sorted, " ")
}

// ratio is a normalized indel similarity: 100 when equal, 0 when disjoint.
func ratio(a, b string) float64 {
	if a == b {
		return 100
	}
	la, lb := len(a), len(b)
	if la+lb == 0 {
		return 100
	}
	d := indelDistance(a, b)
	return 100 * (1 - float64(d)/float64(la+lb))
}

// indelDistance is the edit distance with substitutions costed as a delete
// plus an insert.
func indelDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			if ra[i-1] == rb[j-1] {
				cur[j] = prev[j-1]
				continue
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}
