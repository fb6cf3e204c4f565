package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer the Publisher depends on,
// so tests can substitute a fake rather than talk to a broker.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Publisher drains unpublished outbox rows onto a broker topic.
type Publisher struct {
	store  Store
	writer MessageWriter
	logger *slog.Logger
	now    func() time.Time
}

// NewPublisher constructs a Publisher. now defaults to time.Now when nil.
func NewPublisher(store Store, writer MessageWriter, logger *slog.Logger, now func() time.Time) *Publisher {
	if now == nil {
		now = time.Now
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Publisher{store: store, writer: writer, logger: logger, now: now}
}

// Drain publishes up to batchSize unpublished events and marks them
// published. A write failure on one event increments its attempt count and
// leaves it unpublished for a later Drain; it does not abort the batch.
func (p *Publisher) Drain(ctx context.Context, batchSize int) (published int, err error) {
	events, err := p.store.FetchUnpublished(ctx, batchSize)
	if err != nil {
		return 0, fmt.Errorf("fetch unpublished outbox events: %w", err)
	}

	for _, e := range events {
		msg := kafka.Message{
			Key:   []byte(e.ID),
			Value: e.Payload,
			Headers: []kafka.Header{
				{Key: "event-type", Value: []byte(e.Type)},
			},
		}

		if writeErr := p.writer.WriteMessages(ctx, msg); writeErr != nil {
			p.logger.Error("publish outbox event failed", "event_id", e.ID, "event_type", e.Type, "error", writeErr)

			if incErr := p.store.IncrementAttempt(ctx, e.ID); incErr != nil {
				p.logger.Error("increment outbox attempt failed", "event_id", e.ID, "error", incErr)
			}

			continue
		}

		if err := p.store.MarkPublished(ctx, e.ID, p.now()); err != nil {
			p.logger.Error("mark outbox event published failed", "event_id", e.ID, "error", err)

			continue
		}

		published++
	}

	return published, nil
}

// Run drains the outbox every interval until ctx is cancelled.
func (p *Publisher) Run(ctx context.Context, interval time.Duration, batchSize int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.Drain(ctx, batchSize); err != nil {
				p.logger.Error("outbox drain failed", "error", err)
			}
		}
	}
}
