package content

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Loader resolves a lesson locator to its parsed content. Implementations
// are expected to be safe for concurrent use; the index builder issues
// loads from a worker pool.
type Loader interface {
	Load(ctx context.Context, locator string) (*Lesson, error)
}

// FileLoader loads lesson JSON files from a content directory. Locators are
// paths relative to the root, as written in the site configuration tree.
type FileLoader struct {
	root string
}

// NewFileLoader creates a FileLoader rooted at dir.
func NewFileLoader(dir string) *FileLoader {
	return &FileLoader{root: dir}
}

// Load reads and parses one lesson file.
func (fl *FileLoader) Load(ctx context.Context, locator string) (*Lesson, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(fl.root, filepath.FromSlash(locator))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading lesson %s: %w", locator, err)
	}
	var lesson Lesson
	if err := json.Unmarshal(data, &lesson); err != nil {
		return nil, fmt.Errorf("parsing lesson %s: %w", locator, err)
	}
	return &lesson, nil
}
