package ranker

import (
	"math"
	"testing"

	"github.com/studylab/lessonsearch/internal/search/field"
	"github.com/studylab/lessonsearch/internal/search/index"
)

func TestIDF(t *testing.T) {
	if got := IDF(0, 0); got != 0 {
		t.Errorf("IDF with empty corpus = %v, want 0", got)
	}
	if got := IDF(10, 0); got != 1 {
		t.Errorf("IDF with zero docFreq = %v, want guard value 1", got)
	}
	if got := IDF(10, 10); got != 0 {
		t.Errorf("IDF for ubiquitous term = %v, want 0", got)
	}
	if got, want := IDF(10, 2), math.Log(5); math.Abs(got-want) > 1e-12 {
		t.Errorf("IDF(10,2) = %v, want %v", got, want)
	}
}

func TestIDFNonIncreasingInDocFreq(t *testing.T) {
	const totalDocs = 100
	prev := math.Inf(1)
	for df := 1; df <= totalDocs; df++ {
		got := IDF(totalDocs, df)
		if got > prev {
			t.Fatalf("IDF increased at docFreq=%d: %v > %v", df, got, prev)
		}
		prev = got
	}
}

func postings(ps ...index.Posting) index.PostingList {
	return index.PostingList(ps)
}

func TestRankAccumulatesAcrossTermsAndFields(t *testing.T) {
	perTerm := map[string]index.PostingList{
		"loop": postings(
			index.Posting{DocID: "d1", Field: field.Title, Weight: 10, Count: 1},
			index.Posting{DocID: "d1", Field: field.Content, Weight: 3, Count: 2},
			index.Posting{DocID: "d2", Field: field.Content, Weight: 3, Count: 1},
		),
	}
	results := Rank(perTerm, 4, 0)
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].DocID != "d1" {
		t.Errorf("top result = %s, want d1 (title hit dominates)", results[0].DocID)
	}
	idf := math.Log(4.0 / 2.0)
	wantTop := 10*1*idf + 3*2*idf
	if math.Abs(results[0].Score-wantTop) > 1e-12 {
		t.Errorf("top score = %v, want %v", results[0].Score, wantTop)
	}
	if len(results[0].Matches) != 2 {
		t.Errorf("top result matches = %d, want 2 contributing fields", len(results[0].Matches))
	}
}

func TestRankTieBreaksByDocID(t *testing.T) {
	perTerm := map[string]index.PostingList{
		"loop": postings(
			index.Posting{DocID: "zeta", Field: field.Content, Weight: 3, Count: 1},
			index.Posting{DocID: "alpha", Field: field.Content, Weight: 3, Count: 1},
		),
	}
	for i := 0; i < 50; i++ {
		results := Rank(perTerm, 10, 0)
		if results[0].DocID != "alpha" || results[1].DocID != "zeta" {
			t.Fatalf("tie-break unstable on run %d: %s before %s", i, results[0].DocID, results[1].DocID)
		}
	}
}

func TestRankTruncates(t *testing.T) {
	perTerm := map[string]index.PostingList{
		"loop": postings(
			index.Posting{DocID: "d1", Field: field.Title, Weight: 10, Count: 3},
			index.Posting{DocID: "d2", Field: field.Content, Weight: 3, Count: 2},
			index.Posting{DocID: "d3", Field: field.Content, Weight: 3, Count: 1},
		),
	}
	results := Rank(perTerm, 10, 2)
	if len(results) != 2 {
		t.Fatalf("got %d results, want truncation to 2", len(results))
	}
	if results[0].Score < results[1].Score {
		t.Error("results not in descending score order")
	}
}

func TestRankFuzzyAlwaysBelowExact(t *testing.T) {
	pl := postings(
		index.Posting{DocID: "d1", Field: field.Title, Weight: 10, Count: 1},
	)
	exact := Rank(map[string]index.PostingList{"loop": pl}, 2, 0)
	fuzzy := RankFuzzy(
		[]TermMatch{{Term: "loop", Distance: 1}},
		func(term string) index.PostingList { return pl },
		0,
	)
	if len(exact) != 1 || len(fuzzy) != 1 {
		t.Fatalf("expected one result each, got %d exact / %d fuzzy", len(exact), len(fuzzy))
	}
	if fuzzy[0].Score >= exact[0].Score {
		t.Errorf("fuzzy score %v not below exact score %v", fuzzy[0].Score, exact[0].Score)
	}
}

func TestRankFuzzyScore(t *testing.T) {
	pl := postings(
		index.Posting{DocID: "d1", Field: field.Content, Weight: 3, Count: 2},
	)
	results := RankFuzzy(
		[]TermMatch{{Term: "loop", Distance: 1}},
		func(term string) index.PostingList { return pl },
		0,
	)
	want := 3.0 * (1.0 / 2.0) * 0.5
	if math.Abs(results[0].Score-want) > 1e-12 {
		t.Errorf("fuzzy score = %v, want %v", results[0].Score, want)
	}
}
