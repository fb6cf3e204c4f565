package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/trackmeet/engine/internal/entries"
)

// EntryStore is the Postgres-backed implementation of entries.Store.
type EntryStore struct {
	db *Connection
}

func NewEntryStore(db *Connection) *EntryStore {
	return &EntryStore{db: db}
}

func (s *EntryStore) Create(ctx context.Context, e *entries.Entry) error {
	const q = `INSERT INTO entries (id, athlete_id, event_id, user_id, declared_seconds, personal_best,
		status, moved_from_ncg, original_ncg_event, note) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`

	_, err := s.db.ExecContext(ctx, q, e.ID, e.AthleteID, e.EventID, e.UserID, e.Declared,
		nullFloatPtr(e.PersonalBest), e.Status, e.MovedFromNCG, nullString(derefStr(e.OriginalNCGEvent)), e.Note)
	if isUniqueViolation(err) {
		return entries.ErrDuplicate
	}

	if err != nil {
		return fmt.Errorf("create entry: %w", err)
	}

	return nil
}

func (s *EntryStore) FindByID(ctx context.Context, id string) (*entries.Entry, error) {
	const q = entrySelect + ` WHERE id=$1`

	return scanEntry(s.db.QueryRowContext(ctx, q, id))
}

func (s *EntryStore) FindByAthleteAndEvent(ctx context.Context, athleteID, eventID string) (*entries.Entry, error) {
	const q = entrySelect + ` WHERE athlete_id=$1 AND event_id=$2`

	return scanEntry(s.db.QueryRowContext(ctx, q, athleteID, eventID))
}

func (s *EntryStore) UpdateStatus(ctx context.Context, id string, status entries.Status) error {
	const q = `UPDATE entries SET status=$2, updated_at=now() WHERE id=$1`

	res, err := s.db.ExecContext(ctx, q, id, status)
	if err != nil {
		return fmt.Errorf("update entry status: %w", err)
	}

	return checkRowsAffected(res, entries.ErrStateConflict)
}

func (s *EntryStore) CountByEvent(ctx context.Context, eventID string, statuses ...entries.Status) (int, error) {
	q := `SELECT count(*) FROM entries WHERE event_id=$1 AND status IN (` + placeholders(len(statuses), 2) + `)`

	var count int

	err := s.db.QueryRowContext(ctx, q, append([]any{eventID}, statusArgs(statuses)...)...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count entries by event: %w", err)
	}

	return count, nil
}

func (s *EntryStore) ListByEvent(ctx context.Context, eventID string, statuses ...entries.Status) ([]*entries.Entry, error) {
	q := entrySelect + ` WHERE event_id=$1 AND status IN (` + placeholders(len(statuses), 2) + `)`

	rows, err := s.db.QueryContext(ctx, q, append([]any{eventID}, statusArgs(statuses)...)...)
	if err != nil {
		return nil, fmt.Errorf("list entries by event: %w", err)
	}

	defer rows.Close()

	return scanEntryRows(rows)
}

func (s *EntryStore) ListPendingByUserAndMeet(ctx context.Context, userID, meetID string) ([]*entries.Entry, error) {
	// Entries already bundled into a live group are excluded so an entry
	// never belongs to more than one non-cancelled group per meet.
	const q = `SELECT e.id, e.athlete_id, e.event_id, e.user_id, e.declared_seconds, e.personal_best,
		e.status, e.moved_from_ncg, e.original_ncg_event, e.note, e.created_at, e.updated_at
		FROM entries e JOIN events ev ON ev.id = e.event_id
		WHERE e.user_id=$1 AND ev.meet_id=$2 AND e.status=$3
		AND NOT EXISTS (
			SELECT 1 FROM entry_group_members m
			JOIN entry_groups g ON g.id = m.entry_group_id
			WHERE m.entry_id = e.id AND g.status <> 'cancelled'
		)`

	rows, err := s.db.QueryContext(ctx, q, userID, meetID, entries.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("list pending entries by user and meet: %w", err)
	}

	defer rows.Close()

	return scanEntryRows(rows)
}

func (s *EntryStore) ReassignToFallback(ctx context.Context, entryIDs []string, fromEventID, toEventID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin fallback reassignment: %w", err)
	}

	defer func() { _ = tx.Rollback() }()

	const q = `UPDATE entries SET event_id=$2, moved_from_ncg=TRUE, original_ncg_event=$3, updated_at=now()
		WHERE id=$1`

	for _, id := range entryIDs {
		if _, err := tx.ExecContext(ctx, q, id, toEventID, fromEventID); err != nil {
			return fmt.Errorf("reassign entry %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit fallback reassignment: %w", err)
	}

	return nil
}

const entrySelect = `SELECT id, athlete_id, event_id, user_id, declared_seconds, personal_best, status,
	moved_from_ncg, original_ncg_event, note, created_at, updated_at FROM entries`

func scanEntry(row *sql.Row) (*entries.Entry, error) {
	var (
		e                entries.Entry
		personalBest     sql.NullFloat64
		originalNCGEvent sql.NullString
	)

	err := row.Scan(&e.ID, &e.AthleteID, &e.EventID, &e.UserID, &e.Declared, &personalBest, &e.Status,
		&e.MovedFromNCG, &originalNCGEvent, &e.Note, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("scan entry: %w", err)
	}

	if personalBest.Valid {
		e.PersonalBest = &personalBest.Float64
	}

	if originalNCGEvent.Valid {
		e.OriginalNCGEvent = &originalNCGEvent.String
	}

	return &e, nil
}

func scanEntryRows(rows *sql.Rows) ([]*entries.Entry, error) {
	var out []*entries.Entry

	for rows.Next() {
		var (
			e                entries.Entry
			personalBest     sql.NullFloat64
			originalNCGEvent sql.NullString
		)

		if err := rows.Scan(&e.ID, &e.AthleteID, &e.EventID, &e.UserID, &e.Declared, &personalBest, &e.Status,
			&e.MovedFromNCG, &originalNCGEvent, &e.Note, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan entry row: %w", err)
		}

		if personalBest.Valid {
			e.PersonalBest = &personalBest.Float64
		}

		if originalNCGEvent.Valid {
			e.OriginalNCGEvent = &originalNCGEvent.String
		}

		out = append(out, &e)
	}

	return out, rows.Err()
}

func placeholders(n, startAt int) string {
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = fmt.Sprintf("$%d", startAt+i)
	}

	return strings.Join(parts, ",")
}

func statusArgs[T ~string](statuses []T) []any {
	args := make([]any, len(statuses))
	for i, st := range statuses {
		args[i] = st
	}

	return args
}

func checkRowsAffected(res sql.Result, notFoundErr error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if n == 0 {
		return notFoundErr
	}

	return nil
}
