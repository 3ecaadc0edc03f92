// Package search is the embedded full-text search engine for the lesson
// site. An Engine owns one inverted index, builds it from the site
// configuration tree, and answers exact, fuzzy, and suggestion queries.
// Engines are plain service objects passed explicitly to their callers;
// there is no package-level shared index.
package search

import (
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/studylab/lessonsearch/internal/content"
	"github.com/studylab/lessonsearch/internal/search/fuzzy"
	"github.com/studylab/lessonsearch/internal/search/index"
	"github.com/studylab/lessonsearch/internal/search/ranker"
	"github.com/studylab/lessonsearch/internal/search/suggest"
	"github.com/studylab/lessonsearch/internal/search/tokenizer"
)

const (
	// DefaultMaxResults caps search results when the caller passes no limit.
	DefaultMaxResults = 50
	// DefaultMaxDistance is the fuzzy fallback's edit-distance bound.
	DefaultMaxDistance = 2
	// DefaultMaxSuggestions caps suggestion output.
	DefaultMaxSuggestions = 10
)

// Options tune the engine. Zero values select the defaults.
type Options struct {
	// BuildWorkers bounds the concurrent lesson loads during a build.
	BuildWorkers int
	// MaxDistance is the edit-distance bound for the fuzzy fallback.
	MaxDistance int
	// LoadAttempts is how many times a failing lesson load is tried
	// before the document is skipped.
	LoadAttempts int
	// Matcher overrides the fuzzy term matcher.
	Matcher fuzzy.Matcher
}

// Engine is the search service object.
type Engine struct {
	idx      *index.Index
	loader   content.Loader
	matcher  fuzzy.Matcher
	opts     Options
	logger   *slog.Logger
	building atomic.Bool
}

// New creates an engine over the given lesson loader. The engine is empty
// and answers every query with no results until Build completes.
func New(loader content.Loader, opts Options) *Engine {
	if opts.BuildWorkers <= 0 {
		opts.BuildWorkers = 4
	}
	if opts.MaxDistance <= 0 {
		opts.MaxDistance = DefaultMaxDistance
	}
	if opts.LoadAttempts <= 0 {
		opts.LoadAttempts = 1
	}
	matcher := opts.Matcher
	if matcher == nil {
		matcher = fuzzy.LevenshteinMatcher{}
	}
	return &Engine{
		idx:     index.New(),
		loader:  loader,
		matcher: matcher,
		opts:    opts,
		logger:  slog.Default().With("component", "search-engine"),
	}
}

// Search tokenizes the query and ranks exact postings; when nothing matches
// it falls back to the fuzzy matcher over the full query string. The second
// return reports whether the fuzzy path produced the results. Unbuilt index
// and blank queries yield empty results, never errors.
func (e *Engine) Search(query string, limit int) ([]ranker.Result, bool) {
	if !e.idx.Built() {
		return nil, false
	}
	if limit <= 0 {
		limit = DefaultMaxResults
	}
	tokens := tokenizer.Tokenize(query)
	if len(tokens) == 0 {
		return nil, false
	}
	postingsPerTerm := make(map[string]index.PostingList, len(tokens))
	for _, term := range tokens {
		if _, dup := postingsPerTerm[term]; dup {
			continue
		}
		if postings := e.idx.Postings(term); len(postings) > 0 {
			postingsPerTerm[term] = postings
		}
	}
	if results := ranker.Rank(postingsPerTerm, e.idx.DocCount(), limit); len(results) > 0 {
		return results, false
	}
	return e.FuzzySearch(query, limit, e.opts.MaxDistance), true
}

// FuzzySearch matches the lowercased query against the whole vocabulary
// within maxDistance edits and ranks the accepted terms' postings.
func (e *Engine) FuzzySearch(query string, limit, maxDistance int) []ranker.Result {
	if !e.idx.Built() {
		return nil
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	if limit <= 0 {
		limit = DefaultMaxResults
	}
	if maxDistance <= 0 {
		maxDistance = DefaultMaxDistance
	}
	matches := e.matcher.Match(q, e.idx.Terms(), maxDistance)
	return ranker.RankFuzzy(matches, e.idx.Postings, limit)
}

// Suggestions returns completion candidates for a short or partial query.
func (e *Engine) Suggestions(prefix string, max int) []string {
	if !e.idx.Built() {
		return nil
	}
	if max <= 0 {
		max = DefaultMaxSuggestions
	}
	return suggest.Generate(e.idx, prefix, max)
}

// Document returns the indexed metadata for a document ID.
func (e *Engine) Document(id string) (*index.Document, bool) {
	return e.idx.Document(id)
}

// Progress reports the fraction of documents attempted by the current or
// last build, in [0,1].
func (e *Engine) Progress() float64 {
	return e.idx.Progress()
}

// Stats returns the build counters.
func (e *Engine) Stats() index.Stats {
	return e.idx.BuildStats()
}
