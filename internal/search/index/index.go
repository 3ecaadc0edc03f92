// Package index implements the in-memory inverted index that owns all
// indexed state: term postings, document metadata, and build progress.
// It is populated exclusively by the index builder; once the build marks it
// built, queries are pure reads.
package index

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/studylab/lessonsearch/internal/search/field"
	"github.com/studylab/lessonsearch/internal/search/tokenizer"
)

// minTermLength filters stop-level noise: single-character tokens are never
// stored. This is a literal length check, not a stop-word list.
const minTermLength = 2

// Index is the inverted index. Writes are serialized by the mutex; multiple
// documents may contribute postings to the same term, so merges cannot run
// unlocked. Counters are atomic because the builder's worker pool updates
// them outside the write lock.
type Index struct {
	mu    sync.RWMutex
	terms map[string]map[postingKey]*Posting
	docs  map[string]*Document

	built     atomic.Bool
	totalDocs atomic.Int64
	attempted atomic.Int64
	indexed   atomic.Int64
}

// New creates an empty index.
func New() *Index {
	return &Index{
		terms: make(map[string]map[postingKey]*Posting),
		docs:  make(map[string]*Document),
	}
}

// Add stores the document's metadata and merges postings for every one of
// its extracted fields. Metadata is replaced wholesale if the ID was already
// indexed; postings for an existing (term, doc, field, block, item) key
// accumulate counts instead of duplicating.
func (idx *Index) Add(doc *Document) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.docs[doc.ID] = doc
	for _, f := range doc.Fields {
		idx.addTerms(doc.ID, f.Text, f.Type, f.Type.Weight(), f.Block, f.Item)
	}
}

// addTerms tokenizes text and records one position per token. Caller holds
// the write lock.
func (idx *Index) addTerms(docID, text string, ft field.Type, weight, block, item int) {
	for pos, term := range tokenizer.Tokenize(text) {
		if len(term) < minTermLength {
			continue
		}
		postings, ok := idx.terms[term]
		if !ok {
			postings = make(map[postingKey]*Posting)
			idx.terms[term] = postings
		}
		key := postingKey{docID: docID, field: ft, block: block, item: item}
		p, ok := postings[key]
		if !ok {
			p = &Posting{
				DocID:  docID,
				Field:  ft,
				Weight: weight,
				Block:  block,
				Item:   item,
			}
			postings[key] = p
		}
		p.Count++
		p.Positions = append(p.Positions, pos)
	}
}

// Postings returns a deterministic snapshot of the term's posting list, or
// nil when the term is not indexed.
func (idx *Index) Postings(term string) PostingList {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	postings, ok := idx.terms[term]
	if !ok {
		return nil
	}
	result := make(PostingList, 0, len(postings))
	for _, p := range postings {
		result = append(result, *p)
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.DocID != b.DocID {
			return a.DocID < b.DocID
		}
		if a.Field != b.Field {
			return a.Field < b.Field
		}
		if a.Block != b.Block {
			return a.Block < b.Block
		}
		return a.Item < b.Item
	})
	return result
}

// Terms returns the sorted vocabulary. The fuzzy matcher scans it linearly;
// sorting keeps tied fuzzy scores deterministic.
func (idx *Index) Terms() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	terms := make([]string, 0, len(idx.terms))
	for term := range idx.terms {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}

// Document returns the metadata for a document ID.
func (idx *Index) Document(id string) (*Document, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	doc, ok := idx.docs[id]
	return doc, ok
}

// Documents returns all indexed documents sorted by ID.
func (idx *Index) Documents() []*Document {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	docs := make([]*Document, 0, len(idx.docs))
	for _, doc := range idx.docs {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs
}

// DocCount returns the number of indexed documents.
func (idx *Index) DocCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.docs)
}

// Reset clears all indexed state ahead of a rebuild.
func (idx *Index) Reset() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.terms = make(map[string]map[postingKey]*Posting)
	idx.docs = make(map[string]*Document)
	idx.built.Store(false)
	idx.totalDocs.Store(0)
	idx.attempted.Store(0)
	idx.indexed.Store(0)
}

// Built reports whether a full build has completed.
func (idx *Index) Built() bool { return idx.built.Load() }

// SetBuilt marks the index built. Only the builder calls this, and only
// after every document has been attempted.
func (idx *Index) SetBuilt() { idx.built.Store(true) }

// SetTotal records how many documents the build will attempt.
func (idx *Index) SetTotal(n int) { idx.totalDocs.Store(int64(n)) }

// MarkAttempted records one completed load attempt, successful or not.
func (idx *Index) MarkAttempted() { idx.attempted.Add(1) }

// MarkIndexed records one successfully indexed document.
func (idx *Index) MarkIndexed() { idx.indexed.Add(1) }

// Progress returns the fraction of documents attempted so far, clamped to
// [0,1]. It reflects attempted loads, not successful ones, so a finished
// build always reports 1 even when some documents were skipped. An empty
// corpus reports 1.
func (idx *Index) Progress() float64 {
	total := idx.totalDocs.Load()
	if total == 0 {
		return 1
	}
	p := float64(idx.attempted.Load()) / float64(total)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// Stats reports build counters.
type Stats struct {
	TotalDocs int64
	Attempted int64
	Indexed   int64
	Built     bool
}

// BuildStats returns a snapshot of the build counters.
func (idx *Index) BuildStats() Stats {
	return Stats{
		TotalDocs: idx.totalDocs.Load(),
		Attempted: idx.attempted.Load(),
		Indexed:   idx.indexed.Load(),
		Built:     idx.built.Load(),
	}
}
