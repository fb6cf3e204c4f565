package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/trackmeet/engine/internal/bibs"
	"github.com/trackmeet/engine/internal/notify"
)

// BibStore is the Postgres-backed implementation of bibs.Store: a single
// batched write of every drawn bib number.
type BibStore struct {
	db *Connection
}

func NewBibStore(db *Connection) *BibStore {
	return &BibStore{db: db}
}

func (s *BibStore) UpdateBibNumbers(ctx context.Context, updates []bibs.BibUpdate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bib update: %w", err)
	}

	defer func() { _ = tx.Rollback() }()

	const q = `UPDATE assignments SET bib_number=$2, updated_at=now() WHERE id=$1`

	for _, u := range updates {
		if _, err := tx.ExecContext(ctx, q, u.AssignmentID, u.BibNumber); err != nil {
			return fmt.Errorf("update bib number for assignment %s: %w", u.AssignmentID, err)
		}
	}

	payload, err := json.Marshal(map[string]int{"assigned": len(updates)})
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}

	const insertOutbox = `INSERT INTO outbox_events (id, event_type, payload) VALUES ($1,$2,$3)`

	if _, err := tx.ExecContext(ctx, insertOutbox, uuid.NewString(), notify.EventBibsAssigned, payload); err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bib update: %w", err)
	}

	return nil
}
