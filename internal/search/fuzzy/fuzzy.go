// Package fuzzy finds vocabulary terms within a bounded edit distance of a
// query. It is the fallback path when exact search returns nothing.
package fuzzy

import (
	"github.com/studylab/lessonsearch/internal/search/ranker"
)

// Matcher selects vocabulary terms close to a query. The engine treats the
// matcher as a pluggable step so the linear Levenshtein scan can be swapped
// for an indexed scheme (n-grams, symmetric deletes) without touching the
// scoring path.
type Matcher interface {
	Match(query string, vocabulary []string, maxDistance int) []ranker.TermMatch
}

// LevenshteinMatcher scans the whole vocabulary computing classic edit
// distance. O(len(vocabulary) * len(query) * len(term)) — fine for corpora
// of hundreds to low thousands of lessons.
type LevenshteinMatcher struct{}

// Match accepts terms with distance <= maxDistance. The additional
// distance < len(term) guard stops one- and two-character terms from
// matching nearly any query.
func (LevenshteinMatcher) Match(query string, vocabulary []string, maxDistance int) []ranker.TermMatch {
	var matches []ranker.TermMatch
	for _, term := range vocabulary {
		d := Distance(query, term)
		if d <= maxDistance && d < len(term) {
			matches = append(matches, ranker.TermMatch{Term: term, Distance: d})
		}
	}
	return matches
}

// Distance computes the Levenshtein edit distance between a and b, with
// insertions, deletions, and substitutions each costing 1. Two rolling rows
// keep the allocation proportional to the shorter dimension.
func Distance(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
