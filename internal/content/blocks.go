// Package content models the lesson corpus consumed by the search engine:
// structured content blocks, the lesson loader, and the site configuration
// tree that arranges lessons into sections and groups.
package content

import (
	"encoding/json"
	"fmt"
)

// Block is one structured content block of a lesson. The concrete types
// mirror the block kinds the authoring format produces; consumers switch
// over them exhaustively.
type Block interface {
	blockKind() string
}

// TextBlock is a body paragraph.
type TextBlock struct {
	Content string
}

// SectionBlock is an in-lesson heading, optionally with lead-in text.
type SectionBlock struct {
	Title   string
	Content string
}

// ListBlock is a bulleted or numbered list.
type ListBlock struct {
	Items []string
}

// CodeBlock is a single code snippet. The code itself is never indexed,
// only its label.
type CodeBlock struct {
	Title string
	Code  string
}

// CodeTab is one tab of a CodeTabsBlock.
type CodeTab struct {
	Label string
	Code  string
}

// CodeTabsBlock is a multi-language code example with one tab per language.
type CodeTabsBlock struct {
	Title string
	Tabs  []CodeTab
}

func (TextBlock) blockKind() string     { return "text" }
func (SectionBlock) blockKind() string  { return "section" }
func (ListBlock) blockKind() string     { return "list" }
func (CodeBlock) blockKind() string     { return "code" }
func (CodeTabsBlock) blockKind() string { return "code-tabs" }

// Lesson is one loaded lesson file: a display title and its ordered
// content blocks.
type Lesson struct {
	Title  string
	Blocks []Block
}

// rawBlock is the on-disk envelope; the "type" field discriminates which
// payload fields are meaningful.
type rawBlock struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Code    string `json:"code"`
	Items   []string `json:"items"`
	Tabs    []struct {
		Label string `json:"label"`
		Code  string `json:"code"`
	} `json:"tabs"`
}

type rawLesson struct {
	Title  string            `json:"title"`
	Blocks []json.RawMessage `json:"blocks"`
}

// UnmarshalJSON decodes a lesson, dispatching each block on its type
// discriminator. Blocks with an unknown type are dropped rather than
// failing the whole lesson; missing payload fields simply yield empty
// blocks, which the field extractor ignores.
func (l *Lesson) UnmarshalJSON(data []byte) error {
	var raw rawLesson
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding lesson: %w", err)
	}
	l.Title = raw.Title
	l.Blocks = make([]Block, 0, len(raw.Blocks))
	for _, rb := range raw.Blocks {
		block, err := decodeBlock(rb)
		if err != nil {
			return err
		}
		if block != nil {
			l.Blocks = append(l.Blocks, block)
		}
	}
	return nil
}

func decodeBlock(data []byte) (Block, error) {
	var raw rawBlock
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding content block: %w", err)
	}
	switch raw.Type {
	case "text":
		return TextBlock{Content: raw.Content}, nil
	case "section":
		return SectionBlock{Title: raw.Title, Content: raw.Content}, nil
	case "list":
		return ListBlock{Items: raw.Items}, nil
	case "code":
		return CodeBlock{Title: raw.Title, Code: raw.Code}, nil
	case "code-tabs":
		tabs := make([]CodeTab, 0, len(raw.Tabs))
		for _, t := range raw.Tabs {
			tabs = append(tabs, CodeTab{Label: t.Label, Code: t.Code})
		}
		return CodeTabsBlock{Title: raw.Title, Tabs: tabs}, nil
	default:
		// Unknown block kinds are tolerated; indexing is best effort.
		return nil, nil
	}
}
