package search

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/studylab/lessonsearch/internal/content"
)

// stubLoader serves lessons from memory and fails the configured locators.
type stubLoader struct {
	lessons map[string]*content.Lesson
	failing map[string]bool
}

func (s *stubLoader) Load(_ context.Context, locator string) (*content.Lesson, error) {
	if s.failing[locator] {
		return nil, errors.New("load failed")
	}
	lesson, ok := s.lessons[locator]
	if !ok {
		return nil, fmt.Errorf("no lesson at %s", locator)
	}
	return lesson, nil
}

func lessonTree(files ...string) *content.Tree {
	section := &content.Node{ID: "basics", Label: "Basics"}
	for i, file := range files {
		section.Items = append(section.Items, &content.Node{
			ID:    fmt.Sprintf("lesson-%d", i),
			Label: fmt.Sprintf("Lesson %d", i),
			File:  file,
		})
	}
	return &content.Tree{Sections: []*content.Node{section}}
}

func builtEngine(t *testing.T) *Engine {
	t.Helper()
	loader := &stubLoader{
		lessons: map[string]*content.Lesson{
			"loops.json": {
				Title: "Introduction to Loops",
				Blocks: []content.Block{
					content.TextBlock{Content: "A for loop repeats code until done"},
					content.ListBlock{Items: []string{"for", "while", "range"}},
				},
			},
			"functions.json": {
				Title: "Functions Basics",
				Blocks: []content.Block{
					content.TextBlock{Content: "A function groups reusable code"},
					content.CodeBlock{Title: "Defining a function", Code: "def f(): pass"},
				},
			},
		},
	}
	engine := New(loader, Options{})
	if err := engine.Build(context.Background(), lessonTree("loops.json", "functions.json")); err != nil {
		t.Fatalf("Build: %v", err)
	}
	return engine
}

func TestSearchExact(t *testing.T) {
	engine := builtEngine(t)
	results, fuzzy := engine.Search("loop", 0)
	if fuzzy {
		t.Error("exact query took the fuzzy path")
	}
	if len(results) == 0 || results[0].DocID != "lesson-0" {
		t.Fatalf("Search(loop) = %+v, want lesson-0 first", results)
	}
}

func TestSearchFuzzyFallback(t *testing.T) {
	engine := builtEngine(t)
	exact, _ := engine.Search("loop", 0)
	results, fuzzy := engine.Search("looop", 0)
	if !fuzzy {
		t.Fatal("misspelled query did not take the fuzzy path")
	}
	if len(results) == 0 || results[0].DocID != "lesson-0" {
		t.Fatalf("Search(looop) = %+v, want lesson-0 first", results)
	}
	if results[0].Score >= exact[0].Score {
		t.Errorf("fuzzy score %v not below exact score %v", results[0].Score, exact[0].Score)
	}
}

func TestSearchMultiTermAccumulates(t *testing.T) {
	engine := builtEngine(t)
	single, _ := engine.Search("function", 0)
	multi, _ := engine.Search("function reusable", 0)
	if len(single) == 0 || len(multi) == 0 {
		t.Fatal("expected results for both queries")
	}
	var fnSingle, fnMulti float64
	for _, r := range single {
		if r.DocID == "lesson-1" {
			fnSingle = r.Score
		}
	}
	for _, r := range multi {
		if r.DocID == "lesson-1" {
			fnMulti = r.Score
		}
	}
	if fnMulti <= fnSingle {
		t.Errorf("second matching term added nothing: %v vs %v", fnMulti, fnSingle)
	}
}

func TestSearchBeforeBuildIsEmpty(t *testing.T) {
	engine := New(&stubLoader{}, Options{})
	if results, _ := engine.Search("loop", 0); results != nil {
		t.Errorf("unbuilt engine returned results: %+v", results)
	}
	if got := engine.Suggestions("lo", 10); got != nil {
		t.Errorf("unbuilt engine returned suggestions: %v", got)
	}
	if got := engine.FuzzySearch("loop", 0, 0); got != nil {
		t.Errorf("unbuilt engine returned fuzzy results: %+v", got)
	}
}

func TestSearchBlankQueryIsEmpty(t *testing.T) {
	engine := builtEngine(t)
	for _, q := range []string{"", "   ", "!!!", "<b></b>"} {
		if results, _ := engine.Search(q, 0); len(results) != 0 {
			t.Errorf("Search(%q) = %+v, want empty", q, results)
		}
	}
}

func TestSuggestions(t *testing.T) {
	engine := builtEngine(t)
	got := engine.Suggestions("fun", 0)
	found := false
	for _, s := range got {
		if s == "Functions Basics" {
			found = true
		}
	}
	if !found {
		t.Errorf("Suggestions(fun) = %v, want to contain %q", got, "Functions Basics")
	}
}

func TestBuildSkipsFailedLoads(t *testing.T) {
	loader := &stubLoader{
		lessons: make(map[string]*content.Lesson),
		failing: make(map[string]bool),
	}
	var files []string
	for i := 0; i < 10; i++ {
		file := fmt.Sprintf("lesson-%d.json", i)
		files = append(files, file)
		if i < 2 {
			loader.failing[file] = true
			continue
		}
		loader.lessons[file] = &content.Lesson{
			Title:  fmt.Sprintf("Lesson %d", i),
			Blocks: []content.Block{content.TextBlock{Content: "some lesson body"}},
		}
	}

	engine := New(loader, Options{})
	if err := engine.Build(context.Background(), lessonTree(files...)); err != nil {
		t.Fatalf("Build failed on skippable errors: %v", err)
	}
	stats := engine.Stats()
	if !stats.Built {
		t.Error("index not marked built")
	}
	if stats.Indexed != 8 {
		t.Errorf("Indexed = %d, want 8", stats.Indexed)
	}
	if p := engine.Progress(); p != 1 {
		t.Errorf("Progress = %v, want 1 (failed loads still count as attempted)", p)
	}
}

func TestBuildIsIdempotent(t *testing.T) {
	engine := builtEngine(t)
	before := engine.Stats()
	if err := engine.Build(context.Background(), lessonTree("loops.json")); err != nil {
		t.Fatalf("second Build: %v", err)
	}
	after := engine.Stats()
	if before != after {
		t.Errorf("second Build changed state: %+v -> %+v", before, after)
	}
}

func TestBuildCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	loader := &stubLoader{failing: map[string]bool{"loops.json": true}}
	engine := New(loader, Options{LoadAttempts: 3})
	err := engine.Build(ctx, lessonTree("loops.json"))
	if err == nil {
		t.Fatal("cancelled Build returned nil")
	}
	if engine.Stats().Built {
		t.Error("cancelled build marked the index built")
	}
}

func TestRebuildResets(t *testing.T) {
	engine := builtEngine(t)
	if err := engine.Rebuild(context.Background(), lessonTree("loops.json")); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if got := engine.Stats().Indexed; got != 1 {
		t.Errorf("Indexed after Rebuild = %d, want 1", got)
	}
	if _, ok := engine.Document("lesson-1"); ok {
		t.Error("document from previous build survived Rebuild")
	}
	if results, _ := engine.Search("function", 0); len(results) != 0 {
		t.Errorf("stale postings survived Rebuild: %+v", results)
	}
}

func TestDocumentLookup(t *testing.T) {
	engine := builtEngine(t)
	doc, ok := engine.Document("lesson-0")
	if !ok {
		t.Fatal("lesson-0 missing")
	}
	if doc.Title != "Introduction to Loops" {
		t.Errorf("Title = %q", doc.Title)
	}
	if doc.SectionLabel != "Basics" {
		t.Errorf("SectionLabel = %q, want Basics", doc.SectionLabel)
	}
	if _, ok := engine.Document("nope"); ok {
		t.Error("lookup of unknown ID succeeded")
	}
}
