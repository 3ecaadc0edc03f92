// Package rebuild consumes content-update events from Kafka and triggers a
// full index rebuild. The engine has no incremental update path, so any
// content change means rebuilding from scratch.
package rebuild

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/studylab/lessonsearch/pkg/kafka"
)

// ContentEvent is published by the content pipeline whenever lesson files
// change. The paths are informational; a rebuild always covers everything.
type ContentEvent struct {
	Paths []string `json:"paths"`
}

// Trigger rebuilds the index and invalidates any caches layered over it.
type Trigger func(ctx context.Context) error

// HandleMessage returns a Kafka handler that decodes content events and
// fires the rebuild trigger. Decode failures are logged and committed so a
// malformed event cannot wedge the topic.
func HandleMessage(trigger Trigger) kafka.MessageHandler {
	logger := slog.Default().With("component", "rebuild-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[ContentEvent](value)
		if err != nil {
			logger.Error("failed to decode content event",
				"error", err,
				"key", string(key),
			)
			return nil
		}
		logger.Info("content update received, rebuilding index",
			"changed_paths", len(event.Paths),
		)
		if err := trigger(ctx); err != nil {
			return fmt.Errorf("rebuilding index: %w", err)
		}
		return nil
	}
}

// Consumer wraps a Kafka consumer bound to the content topic.
type Consumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

// New creates a Consumer over the given Kafka consumer.
func New(kafkaConsumer *kafka.Consumer) *Consumer {
	return &Consumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "rebuild-consumer"),
	}
}

// Start blocks consuming events until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("rebuild consumer starting")
	return c.consumer.Start(ctx)
}
