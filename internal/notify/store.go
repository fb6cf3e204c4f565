package notify

import (
	"context"
	"time"
)

// Store persists and drains outbox events. Writing an event is the caller's
// responsibility, performed inside the same transaction as the domain
// mutation it reports; Store itself only fetches and marks rows.
type Store interface {
	FetchUnpublished(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	IncrementAttempt(ctx context.Context, id string) error
}
