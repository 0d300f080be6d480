// internal/scoring/prefilter.go

// Package scoring implements the hybrid predatory-evidence scorer: a
// cheap lexical pre-filter narrows each watchlist to a handful of
// candidates, and the semantic matcher confirms or rejects them.
package scoring

import (
	"sort"
	"strings"

	"predcheck/internal/watchlist"
)

// DefaultTopN is how many candidates survive the pre-filter.
const DefaultTopN = 3

// Ranked pairs a watchlist entry with its lexical similarity to the
// query, on a 0-100 scale.
type Ranked struct {
	Entry      watchlist.Entry
	Similarity float64
}

// Prefilter ranks candidates by cheap lexical similarity and keeps the
// topN best, discarding anything at or below similarity 50. It is a
// pure function and safe for concurrent use.
//
// Similarity: 100 for a normalized exact match, 80 when either
// normalized name contains the other, otherwise the Jaccard overlap of
// the token sets scaled to 70.
func Prefilter(query string, candidates []watchlist.Entry, topN int) []Ranked {
	if topN <= 0 {
		topN = DefaultTopN
	}
	normalized := normalizeName(query)

	ranked := make([]Ranked, 0, len(candidates))
	for _, c := range candidates {
		sim := similarity(normalized, normalizeName(c.Name))
		if sim > 50 {
			ranked = append(ranked, Ranked{Entry: c, Similarity: sim})
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Similarity > ranked[j].Similarity
	})
	if len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked
}

// normalizeName lowercases and strips everything outside [a-z0-9\s].
func normalizeName(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9',
			r == ' ', r == '\t', r == '\n', r == '\r':
			b.WriteRune(r)
		}
	}
	return b.String()
}

func similarity(a, b string) float64 {
	if a == b {
		return 100
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return 80
	}
	return jaccard(tokens(a), tokens(b)) * 70
}

func tokens(s string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, w := range strings.Fields(s) {
		set[w] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for w := range a {
		if _, ok := b[w]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
