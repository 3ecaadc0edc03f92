// Package benchmark contains Go benchmarks for the tokenizer, the inverted
// index, and the search pipeline, measuring throughput and allocation
// behaviour.
package benchmark

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/studylab/lessonsearch/internal/content"
	"github.com/studylab/lessonsearch/internal/search"
	"github.com/studylab/lessonsearch/internal/search/field"
	"github.com/studylab/lessonsearch/internal/search/fuzzy"
	"github.com/studylab/lessonsearch/internal/search/index"
	"github.com/studylab/lessonsearch/internal/search/tokenizer"
)

var sampleTexts = map[string]string{
	"short": "A for loop repeats a block of code while a condition holds",
	"medium": `Functions group reusable code behind a name. Parameters pass values
        into the function body and the return statement hands results back to the
        caller. Splitting a program into small functions keeps each piece easy to
        read, test, and reuse across lessons. Recursive functions call themselves
        with smaller inputs until a base case stops the descent.`,
	"long": strings.Repeat(`Variables store values for later use. Conditionals choose
        between branches based on boolean expressions. Loops repeat work over
        collections or until a condition changes. Lists hold ordered sequences and
        dictionaries map keys to values. Exceptions signal errors that the caller
        can catch and handle. Modules split a program across files and packages
        make code shareable between projects. `, 20),
}

func BenchmarkTokenize(b *testing.B) {
	for name, text := range sampleTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				tokens := tokenizer.Tokenize(text)
				_ = tokens
			}
		})
	}
}

func BenchmarkTokenizeParallel(b *testing.B) {
	text := sampleTexts["medium"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			tokens := tokenizer.Tokenize(text)
			_ = tokens
		}
	})
}

func benchDocument(i int) *index.Document {
	topics := []string{"loops", "functions", "variables", "lists", "dictionaries", "classes", "modules", "exceptions"}
	topic := topics[i%len(topics)]
	doc := &index.Document{
		ID:    fmt.Sprintf("lesson-%d", i),
		Title: fmt.Sprintf("Working with %s", topic),
	}
	doc.Fields = field.Extract(&content.Lesson{
		Title: doc.Title,
		Blocks: []content.Block{
			content.TextBlock{Content: fmt.Sprintf("This lesson covers %s and how %s interact with %s",
				topic, topics[(i+1)%len(topics)], topics[(i+2)%len(topics)])},
			content.ListBlock{Items: []string{topic, topics[(i+3)%len(topics)]}},
		},
	})
	return doc
}

// BenchmarkIndexAdd measures per-document insert throughput into the
// inverted index.
func BenchmarkIndexAdd(b *testing.B) {
	idx := index.New()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		idx.Add(benchDocument(i))
	}
}

// BenchmarkIndexPostings measures single-term lookup latency over a
// pre-built corpus.
func BenchmarkIndexPostings(b *testing.B) {
	idx := index.New()
	for i := 0; i < 10000; i++ {
		idx.Add(benchDocument(i))
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		postings := idx.Postings("loops")
		_ = postings
	}
}

type benchLoader struct {
	docs int
}

func (bl benchLoader) Load(_ context.Context, locator string) (*content.Lesson, error) {
	topics := []string{"loops", "functions", "variables", "lists", "dictionaries", "classes", "modules", "exceptions"}
	var i int
	fmt.Sscanf(locator, "lesson-%d.json", &i)
	topic := topics[i%len(topics)]
	return &content.Lesson{
		Title: fmt.Sprintf("Working with %s", topic),
		Blocks: []content.Block{
			content.TextBlock{Content: fmt.Sprintf("This lesson covers %s together with %s in practice",
				topic, topics[(i+1)%len(topics)])},
		},
	}, nil
}

func benchEngine(b *testing.B, docs int) *search.Engine {
	b.Helper()
	section := &content.Node{ID: "bench", Label: "Bench"}
	for i := 0; i < docs; i++ {
		section.Items = append(section.Items, &content.Node{
			ID:   fmt.Sprintf("lesson-%d", i),
			File: fmt.Sprintf("lesson-%d.json", i),
		})
	}
	engine := search.New(benchLoader{docs: docs}, search.Options{})
	if err := engine.Build(context.Background(), &content.Tree{Sections: []*content.Node{section}}); err != nil {
		b.Fatal(err)
	}
	return engine
}

// BenchmarkEngineSearch measures end-to-end exact search latency at various
// corpus sizes.
func BenchmarkEngineSearch(b *testing.B) {
	sizes := []int{100, 1000, 5000}
	queries := []string{"loops", "functions practice", "variables lists"}
	for _, size := range sizes {
		b.Run(fmt.Sprintf("docs_%d", size), func(b *testing.B) {
			engine := benchEngine(b, size)
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				results, _ := engine.Search(queries[i%len(queries)], 0)
				_ = results
			}
		})
	}
}

// BenchmarkEngineSearchParallel measures concurrent read throughput.
func BenchmarkEngineSearchParallel(b *testing.B) {
	engine := benchEngine(b, 1000)
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			results, _ := engine.Search("loops", 0)
			_ = results
		}
	})
}

// BenchmarkFuzzySearch measures the fallback path, which scans the whole
// vocabulary.
func BenchmarkFuzzySearch(b *testing.B) {
	engine := benchEngine(b, 1000)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		results := engine.FuzzySearch("looops", 0, 2)
		_ = results
	}
}

// BenchmarkLevenshteinDistance measures the raw edit-distance kernel.
func BenchmarkLevenshteinDistance(b *testing.B) {
	pairs := [][2]string{
		{"loop", "looop"},
		{"function", "funciton"},
		{"dictionaries", "dictionary"},
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		p := pairs[i%len(pairs)]
		d := fuzzy.Distance(p[0], p[1])
		_ = d
	}
}
