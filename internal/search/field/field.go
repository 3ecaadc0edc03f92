// Package field extracts weighted searchable fields from lesson content.
// Each field type carries a fixed weight reflecting how strongly a match in
// it should influence ranking: titles dominate, body text matters least.
package field

import (
	"github.com/studylab/lessonsearch/internal/content"
)

// Type identifies what part of a lesson a piece of text came from.
type Type string

const (
	Title        Type = "title"
	SectionTitle Type = "section-title"
	CodeLabel    Type = "code-label"
	ListItem     Type = "list-item"
	Content      Type = "content"
)

// Weight returns the fixed ranking weight for the field type.
func (t Type) Weight() int {
	switch t {
	case Title:
		return 10
	case SectionTitle:
		return 8
	case CodeLabel:
		return 5
	case ListItem:
		return 4
	default:
		return 3
	}
}

// Field is one weighted text occurrence. Block and Item identify which
// content block and which list item or tab it came from, so re-extracting
// the same lesson yields the same occurrence keys.
type Field struct {
	Type  Type
	Text  string
	Block int
	Item  int
}

// Extract flattens a lesson into its weighted fields. Code bodies are
// excluded on purpose: only code labels (block titles and tab names) are
// searchable. Empty texts are skipped, and blocks with missing payloads
// contribute whatever fields they do have.
func Extract(lesson *content.Lesson) []Field {
	fields := make([]Field, 0, 1+len(lesson.Blocks))
	if lesson.Title != "" {
		fields = append(fields, Field{Type: Title, Text: lesson.Title})
	}
	for i, block := range lesson.Blocks {
		switch b := block.(type) {
		case content.TextBlock:
			fields = appendField(fields, Content, b.Content, i, 0)
		case content.SectionBlock:
			fields = appendField(fields, SectionTitle, b.Title, i, 0)
			fields = appendField(fields, Content, b.Content, i, 0)
		case content.ListBlock:
			for j, item := range b.Items {
				fields = appendField(fields, ListItem, item, i, j)
			}
		case content.CodeBlock:
			fields = appendField(fields, CodeLabel, b.Title, i, 0)
		case content.CodeTabsBlock:
			fields = appendField(fields, CodeLabel, b.Title, i, 0)
			for j, tab := range b.Tabs {
				fields = appendField(fields, CodeLabel, tab.Label, i, j+1)
			}
		}
	}
	return fields
}

func appendField(fields []Field, t Type, text string, block, item int) []Field {
	if text == "" {
		return fields
	}
	return append(fields, Field{Type: t, Text: text, Block: block, Item: item})
}
