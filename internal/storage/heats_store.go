package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/trackmeet/engine/internal/heats"
	"github.com/trackmeet/engine/internal/notify"
)

// HeatStore is the Postgres-backed implementation of heats.Store.
type HeatStore struct {
	db *Connection
}

func NewHeatStore(db *Connection) *HeatStore {
	return &HeatStore{db: db}
}

// WithEventLock holds a session-level advisory lock keyed on the event ID
// for the duration of fn, on a dedicated connection so the lock survives
// the several statements one generation run issues.
func (s *HeatStore) WithEventLock(ctx context.Context, eventID string, fn func(context.Context) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection for event lock: %w", err)
	}

	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_lock(hashtext($1))`, eventID); err != nil {
		return fmt.Errorf("acquire event lock: %w", err)
	}

	defer func() {
		_, _ = conn.ExecContext(ctx, `SELECT pg_advisory_unlock(hashtext($1))`, eventID)
	}()

	return fn(ctx)
}

func (s *HeatStore) HasFinalizedHeats(ctx context.Context, eventID string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM heats WHERE event_id=$1 AND finalized=TRUE)`

	var exists bool
	if err := s.db.QueryRowContext(ctx, q, eventID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check finalized heats: %w", err)
	}

	return exists, nil
}

func (s *HeatStore) DeleteNonFinalizedHeats(ctx context.Context, eventID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete heats: %w", err)
	}

	defer func() { _ = tx.Rollback() }()

	const deleteAssignments = `DELETE FROM assignments WHERE heat_id IN
		(SELECT id FROM heats WHERE event_id=$1 AND finalized=FALSE)`

	if _, err := tx.ExecContext(ctx, deleteAssignments, eventID); err != nil {
		return fmt.Errorf("delete non-finalized assignments: %w", err)
	}

	const deleteHeats = `DELETE FROM heats WHERE event_id=$1 AND finalized=FALSE`

	if _, err := tx.ExecContext(ctx, deleteHeats, eventID); err != nil {
		return fmt.Errorf("delete non-finalized heats: %w", err)
	}

	return tx.Commit()
}

func (s *HeatStore) CreateHeatsWithAssignments(ctx context.Context, hs []*heats.Heat, as []*heats.Assignment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create heats: %w", err)
	}

	defer func() { _ = tx.Rollback() }()

	const insertHeat = `INSERT INTO heats (id, event_id, heat_number, scheduled_start, finalized)
		VALUES ($1,$2,$3,$4,$5)`

	for _, h := range hs {
		if _, err := tx.ExecContext(ctx, insertHeat, h.ID, h.EventID, h.HeatNumber,
			nullTimePtr(h.ScheduledStart), h.Finalized); err != nil {
			return fmt.Errorf("insert heat: %w", err)
		}
	}

	const insertAssignment = `INSERT INTO assignments (id, heat_id, entry_id, lane_number, bib_number, status)
		VALUES ($1,$2,$3,$4,$5,$6)`

	for _, a := range as {
		if _, err := tx.ExecContext(ctx, insertAssignment, a.ID, a.HeatID, a.EntryID, a.LaneNumber,
			nullIntPtr(a.BibNumber), a.Status); err != nil {
			return fmt.Errorf("insert assignment: %w", err)
		}
	}

	if len(hs) > 0 {
		payload, err := json.Marshal(map[string]any{
			"event_id": hs[0].EventID, "heats": len(hs), "assignments": len(as),
		})
		if err != nil {
			return fmt.Errorf("marshal outbox payload: %w", err)
		}

		const insertOutbox = `INSERT INTO outbox_events (id, event_type, payload) VALUES ($1,$2,$3)`

		if _, err := tx.ExecContext(ctx, insertOutbox, uuid.NewString(), notify.EventHeatsGenerated, payload); err != nil {
			return fmt.Errorf("insert outbox event: %w", err)
		}
	}

	return tx.Commit()
}

func (s *HeatStore) ListHeatsByEvent(ctx context.Context, eventID string) ([]*heats.Heat, error) {
	const q = `SELECT id, event_id, heat_number, scheduled_start, finalized FROM heats
		WHERE event_id=$1 ORDER BY heat_number ASC`

	rows, err := s.db.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, fmt.Errorf("list heats by event: %w", err)
	}

	defer rows.Close()

	var out []*heats.Heat

	for rows.Next() {
		var (
			h              heats.Heat
			scheduledStart sql.NullTime
		)

		if err := rows.Scan(&h.ID, &h.EventID, &h.HeatNumber, &scheduledStart, &h.Finalized); err != nil {
			return nil, fmt.Errorf("scan heat: %w", err)
		}

		if scheduledStart.Valid {
			h.ScheduledStart = &scheduledStart.Time
		}

		out = append(out, &h)
	}

	return out, rows.Err()
}

func (s *HeatStore) ListAssignmentsByHeat(ctx context.Context, heatID string) ([]*heats.Assignment, error) {
	const q = `SELECT id, heat_id, entry_id, lane_number, bib_number, status, checked_in_at
		FROM assignments WHERE heat_id=$1 ORDER BY lane_number ASC`

	rows, err := s.db.QueryContext(ctx, q, heatID)
	if err != nil {
		return nil, fmt.Errorf("list assignments by heat: %w", err)
	}

	defer rows.Close()

	return scanAssignmentRows(rows)
}

func (s *HeatStore) FindAssignmentByID(ctx context.Context, id string) (*heats.Assignment, error) {
	const q = `SELECT id, heat_id, entry_id, lane_number, bib_number, status, checked_in_at
		FROM assignments WHERE id=$1`

	return scanAssignment(s.db.QueryRowContext(ctx, q, id))
}

func (s *HeatStore) ApplyMove(ctx context.Context, assignmentID, targetHeatID string, lane int, sourceRelanes map[string]int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin apply move: %w", err)
	}

	defer func() { _ = tx.Rollback() }()

	const moveQ = `UPDATE assignments SET heat_id=$2, lane_number=$3, updated_at=now() WHERE id=$1`

	if _, err := tx.ExecContext(ctx, moveQ, assignmentID, targetHeatID, lane); err != nil {
		return fmt.Errorf("move assignment: %w", err)
	}

	const relaneQ = `UPDATE assignments SET lane_number=$2, updated_at=now() WHERE id=$1`

	// Compaction only shifts lanes downward, so applying updates in
	// ascending new-lane order never trips the (heat, lane) unique index
	// mid-transaction.
	ids := make([]string, 0, len(sourceRelanes))
	for id := range sourceRelanes {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return sourceRelanes[ids[i]] < sourceRelanes[ids[j]] })

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, relaneQ, id, sourceRelanes[id]); err != nil {
			return fmt.Errorf("compact source lane for %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit move: %w", err)
	}

	return nil
}

func scanAssignment(row *sql.Row) (*heats.Assignment, error) {
	var (
		a           heats.Assignment
		bibNumber   sql.NullInt64
		checkedInAt sql.NullTime
	)

	err := row.Scan(&a.ID, &a.HeatID, &a.EntryID, &a.LaneNumber, &bibNumber, &a.Status, &checkedInAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("scan assignment: %w", err)
	}

	if bibNumber.Valid {
		v := int(bibNumber.Int64)
		a.BibNumber = &v
	}

	if checkedInAt.Valid {
		a.CheckedIn = true
		a.CheckedInAt = &checkedInAt.Time
	}

	return &a, nil
}

func scanAssignmentRows(rows *sql.Rows) ([]*heats.Assignment, error) {
	var out []*heats.Assignment

	for rows.Next() {
		var (
			a           heats.Assignment
			bibNumber   sql.NullInt64
			checkedInAt sql.NullTime
		)

		if err := rows.Scan(&a.ID, &a.HeatID, &a.EntryID, &a.LaneNumber, &bibNumber, &a.Status, &checkedInAt); err != nil {
			return nil, fmt.Errorf("scan assignment row: %w", err)
		}

		if bibNumber.Valid {
			v := int(bibNumber.Int64)
			a.BibNumber = &v
		}

		if checkedInAt.Valid {
			a.CheckedIn = true
			a.CheckedInAt = &checkedInAt.Time
		}

		out = append(out, &a)
	}

	return out, rows.Err()
}
