package search

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/studylab/lessonsearch/internal/content"
	"github.com/studylab/lessonsearch/internal/search/field"
	"github.com/studylab/lessonsearch/internal/search/index"
	"github.com/studylab/lessonsearch/pkg/resilience"
)

// Build walks the configuration tree and indexes every lesson it references.
// Loads run on a bounded worker pool; posting merges are serialized by the
// index lock, and the load order never affects final scores. A lesson that
// fails to load is logged and skipped, not fatal. Build is a no-op while the
// index is already built, and a cancelled build leaves the index unbuilt so
// partially indexed state is never served.
func (e *Engine) Build(ctx context.Context, tree *content.Tree) error {
	if e.idx.Built() {
		e.logger.Debug("index already built, skipping build")
		return nil
	}
	if !e.building.CompareAndSwap(false, true) {
		e.logger.Debug("build already in progress, skipping")
		return nil
	}
	defer e.building.Store(false)

	start := time.Now()
	leaves := tree.Leaves()
	e.idx.SetTotal(len(leaves))
	e.logger.Info("index build starting",
		"documents", len(leaves),
		"workers", e.opts.BuildWorkers,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.BuildWorkers)
	for _, leaf := range leaves {
		g.Go(func() error {
			defer e.idx.MarkAttempted()
			lesson, err := e.loadLesson(gctx, leaf.Node.File)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				e.logger.Warn("lesson load failed, skipping",
					"id", leaf.Node.ID,
					"path", leaf.Node.File,
					"error", err,
				)
				return nil
			}
			e.idx.Add(buildDocument(leaf, lesson))
			e.idx.MarkIndexed()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("index build aborted: %w", err)
	}
	e.idx.SetBuilt()
	stats := e.idx.BuildStats()
	e.logger.Info("index build complete",
		"indexed", stats.Indexed,
		"skipped", stats.Attempted-stats.Indexed,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

// Rebuild discards all indexed state and builds from scratch. There is no
// incremental update path: content changes always restart from empty.
func (e *Engine) Rebuild(ctx context.Context, tree *content.Tree) error {
	e.idx.Reset()
	return e.Build(ctx, tree)
}

func (e *Engine) loadLesson(ctx context.Context, locator string) (*content.Lesson, error) {
	var lesson *content.Lesson
	err := resilience.Retry(ctx, "load-lesson", resilience.RetryConfig{
		MaxAttempts:  e.opts.LoadAttempts,
		InitialDelay: 50 * time.Millisecond,
	}, func() error {
		var err error
		lesson, err = e.loader.Load(ctx, locator)
		return err
	})
	return lesson, err
}

func buildDocument(leaf content.Leaf, lesson *content.Lesson) *index.Document {
	doc := &index.Document{
		ID:     leaf.Node.ID,
		Title:  lesson.Title,
		Path:   leaf.Node.File,
		Fields: field.Extract(lesson),
	}
	if doc.ID == "" {
		doc.ID = leaf.Node.File
	}
	if leaf.Section != nil {
		doc.SectionID = leaf.Section.ID
		doc.SectionLabel = leaf.Section.Label
	}
	if leaf.Group != nil {
		doc.GroupID = leaf.Group.ID
		doc.GroupLabel = leaf.Group.Label
	}
	return doc
}
