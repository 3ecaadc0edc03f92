// Package ranker scores candidate documents for a query. Exact matches use
// a weighted TF×IDF sum; fuzzy matches use an edit-distance damped score
// that can never exceed the equivalent exact match.
package ranker

import (
	"math"
	"sort"

	"github.com/studylab/lessonsearch/internal/search/field"
	"github.com/studylab/lessonsearch/internal/search/index"
)

// fuzzyDamping keeps every fuzzy score strictly below the equivalent exact
// score, so a typo correction never outranks a literal hit.
const fuzzyDamping = 0.5

// Match records one contributing field occurrence for result metadata.
type Match struct {
	Field     field.Type `json:"field"`
	Positions []int      `json:"positions,omitempty"`
}

// Result is one scored document.
type Result struct {
	DocID   string  `json:"doc_id"`
	Score   float64 `json:"score"`
	Matches []Match `json:"matches,omitempty"`
}

// TermMatch is a vocabulary term accepted by the fuzzy matcher, with its
// edit distance from the query.
type TermMatch struct {
	Term     string
	Distance int
}

// IDF computes ln(totalDocs/docFreq). A zero document frequency cannot
// happen for an indexed term but is guarded to 1; an empty corpus yields 0.
// A term present in every document scores 0 by construction.
func IDF(totalDocs, docFreq int) float64 {
	if totalDocs == 0 {
		return 0
	}
	if docFreq == 0 {
		return 1
	}
	return math.Log(float64(totalDocs) / float64(docFreq))
}

// Rank scores documents for an exact term lookup: each posting contributes
// weight * count * idf(term) to its document's total.
func Rank(postingsPerTerm map[string]index.PostingList, totalDocs, limit int) []Result {
	acc := newAccumulator()
	for _, postings := range postingsPerTerm {
		idf := IDF(totalDocs, postings.DocFreq())
		for _, p := range postings {
			acc.add(p, float64(p.Weight)*float64(p.Count)*idf)
		}
	}
	return acc.ranked(limit)
}

// RankFuzzy scores documents for fuzzy term matches: each posting of an
// accepted term contributes weight * 1/(distance+1), damped so fuzzy results
// always rank below exact ones.
func RankFuzzy(matches []TermMatch, postings func(term string) index.PostingList, limit int) []Result {
	acc := newAccumulator()
	for _, m := range matches {
		score := 1 / float64(m.Distance+1) * fuzzyDamping
		for _, p := range postings(m.Term) {
			acc.add(p, float64(p.Weight)*score)
		}
	}
	return acc.ranked(limit)
}

// accumulator collects per-document running totals and match metadata.
type accumulator struct {
	scores  map[string]float64
	matches map[string][]Match
}

func newAccumulator() *accumulator {
	return &accumulator{
		scores:  make(map[string]float64),
		matches: make(map[string][]Match),
	}
}

func (a *accumulator) add(p index.Posting, score float64) {
	a.scores[p.DocID] += score
	a.matches[p.DocID] = append(a.matches[p.DocID], Match{
		Field:     p.Field,
		Positions: p.Positions,
	})
}

// ranked sorts descending by score. Ties break on docID ascending so result
// order never depends on map iteration.
func (a *accumulator) ranked(limit int) []Result {
	results := make([]Result, 0, len(a.scores))
	for docID, score := range a.scores {
		results = append(results, Result{
			DocID:   docID,
			Score:   score,
			Matches: a.matches[docID],
		})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DocID < results[j].DocID
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}
