package index

import "github.com/studylab/lessonsearch/internal/search/field"

// Posting records the occurrences of one term within one field occurrence of
// one document. Repeated occurrences of the term in the same field occurrence
// increment Count and extend Positions rather than creating new postings.
type Posting struct {
	DocID     string
	Field     field.Type
	Weight    int
	Count     int
	Positions []int
	Block     int
	Item      int
}

// PostingList is every posting for a single term.
type PostingList []Posting

// DocFreq returns the number of distinct documents in the list.
func (pl PostingList) DocFreq() int {
	seen := make(map[string]struct{}, len(pl))
	for _, p := range pl {
		seen[p.DocID] = struct{}{}
	}
	return len(seen)
}

// postingKey uniquely identifies a posting within a term's entry.
type postingKey struct {
	docID string
	field field.Type
	block int
	item  int
}

// Document is the indexed metadata for one lesson page or section landing.
// Immutable once stored; indexing the same ID again replaces it wholesale.
type Document struct {
	ID           string
	Title        string
	SectionID    string
	SectionLabel string
	GroupID      string
	GroupLabel   string
	Path         string
	Fields       []field.Field
}
