package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/trackmeet/engine/internal/notify"
)

// OutboxStore is the Postgres-backed implementation of notify.Store.
type OutboxStore struct {
	db *Connection
}

func NewOutboxStore(db *Connection) *OutboxStore {
	return &OutboxStore{db: db}
}

func (s *OutboxStore) FetchUnpublished(ctx context.Context, limit int) ([]*notify.OutboxEvent, error) {
	const q = `SELECT id, event_type, payload, created_at, attempt_count FROM outbox_events
		WHERE published_at IS NULL ORDER BY created_at ASC LIMIT $1`

	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch unpublished outbox events: %w", err)
	}

	defer rows.Close()

	var out []*notify.OutboxEvent

	for rows.Next() {
		var e notify.OutboxEvent

		if err := rows.Scan(&e.ID, &e.Type, &e.Payload, &e.CreatedAt, &e.AttemptCount); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}

		out = append(out, &e)
	}

	return out, rows.Err()
}

func (s *OutboxStore) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	const q = `UPDATE outbox_events SET published_at=$2 WHERE id=$1`

	_, err := s.db.ExecContext(ctx, q, id, publishedAt)
	if err != nil {
		return fmt.Errorf("mark outbox event published: %w", err)
	}

	return nil
}

func (s *OutboxStore) IncrementAttempt(ctx context.Context, id string) error {
	const q = `UPDATE outbox_events SET attempt_count=attempt_count+1 WHERE id=$1`

	_, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return fmt.Errorf("increment outbox attempt count: %w", err)
	}

	return nil
}
