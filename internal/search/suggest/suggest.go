// Package suggest produces completion candidates for queries too short to
// rank meaningfully. Suggestions come from two sources merged into one
// deduplicated set: document titles containing the prefix, and indexed terms
// starting with it, each resolved back to a representative title.
package suggest

import (
	"strings"

	"github.com/studylab/lessonsearch/internal/search/index"
)

// Generate returns up to max distinct display strings for the prefix.
// Order is the insertion order of the underlying set: title substring hits
// first, then prefix-matching terms. Documents and terms are scanned in
// sorted order so the output is stable across runs.
func Generate(idx *index.Index, prefix string, max int) []string {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" || max <= 0 {
		return nil
	}

	seen := make(map[string]struct{})
	suggestions := make([]string, 0, max)
	add := func(title string) bool {
		if title == "" {
			return len(suggestions) < max
		}
		if _, dup := seen[title]; dup {
			return len(suggestions) < max
		}
		seen[title] = struct{}{}
		suggestions = append(suggestions, title)
		return len(suggestions) < max
	}

	for _, doc := range idx.Documents() {
		if strings.Contains(strings.ToLower(doc.Title), prefix) {
			if !add(doc.Title) {
				return suggestions
			}
		}
	}

	for _, term := range idx.Terms() {
		if len(term) <= len(prefix) || !strings.HasPrefix(term, prefix) {
			continue
		}
		if title, ok := bestTitle(idx, term); ok {
			if !add(title) {
				return suggestions
			}
		}
	}
	return suggestions
}

// bestTitle resolves a term to the title of its highest-weight contributing
// document. Postings come back sorted by docID, so ties resolve to the
// lowest ID.
func bestTitle(idx *index.Index, term string) (string, bool) {
	var best index.Posting
	found := false
	for _, p := range idx.Postings(term) {
		if !found || p.Weight > best.Weight {
			best = p
			found = true
		}
	}
	if !found {
		return "", false
	}
	doc, ok := idx.Document(best.DocID)
	if !ok {
		return "", false
	}
	return doc.Title, true
}
