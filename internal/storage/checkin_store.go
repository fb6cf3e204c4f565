package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/trackmeet/engine/internal/checkin"
	"github.com/trackmeet/engine/internal/heats"
)

// CheckinStore is the Postgres-backed implementation of checkin.Store.
type CheckinStore struct {
	db *Connection
}

func NewCheckinStore(db *Connection) *CheckinStore {
	return &CheckinStore{db: db}
}

func (s *CheckinStore) FindAssignment(ctx context.Context, id string) (*heats.Assignment, error) {
	const q = `SELECT id, heat_id, entry_id, lane_number, bib_number, status, checked_in_at
		FROM assignments WHERE id=$1`

	return scanAssignment(s.db.QueryRowContext(ctx, q, id))
}

func (s *CheckinStore) CheckIn(ctx context.Context, id string, at time.Time) error {
	const q = `UPDATE assignments SET checked_in_at=$2, updated_at=now() WHERE id=$1`

	res, err := s.db.ExecContext(ctx, q, id, at)
	if err != nil {
		return fmt.Errorf("check in assignment: %w", err)
	}

	return checkRowsAffected(res, ErrNotFound)
}

func (s *CheckinStore) MarkStatus(ctx context.Context, id string, status checkin.Status, cascadeEntryDNS bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin mark status: %w", err)
	}

	defer func() { _ = tx.Rollback() }()

	const q = `UPDATE assignments SET status=$2, updated_at=now() WHERE id=$1`

	if _, err := tx.ExecContext(ctx, q, id, status); err != nil {
		return fmt.Errorf("update assignment status: %w", err)
	}

	if cascadeEntryDNS {
		// DNS also unsets check-in on the assignment.
		const unsetQ = `UPDATE assignments SET checked_in_at=NULL WHERE id=$1`

		if _, err := tx.ExecContext(ctx, unsetQ, id); err != nil {
			return fmt.Errorf("unset check-in: %w", err)
		}

		const cascadeQ = `UPDATE entries SET status='dns', updated_at=now()
			WHERE id=(SELECT entry_id FROM assignments WHERE id=$1)`

		if _, err := tx.ExecContext(ctx, cascadeQ, id); err != nil {
			return fmt.Errorf("cascade entry to dns: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit mark status: %w", err)
	}

	return nil
}

func (s *CheckinStore) ListByHeat(ctx context.Context, heatID string) ([]*heats.Assignment, error) {
	const q = `SELECT id, heat_id, entry_id, lane_number, bib_number, status, checked_in_at
		FROM assignments WHERE heat_id=$1 ORDER BY lane_number ASC`

	rows, err := s.db.QueryContext(ctx, q, heatID)
	if err != nil {
		return nil, fmt.Errorf("list assignments by heat: %w", err)
	}

	defer rows.Close()

	return scanAssignmentRows(rows)
}

func (s *CheckinStore) Search(ctx context.Context, meetID, query string) ([]*checkin.SearchResult, error) {
	const q = `SELECT a.id, a.heat_id, h.heat_number, a.lane_number, ev.id,
		at.family_name, at.given_name, COALESCE(o.short_name, o.name, ''), a.checked_in_at IS NOT NULL
		FROM assignments a
		JOIN heats h ON h.id = a.heat_id
		JOIN events ev ON ev.id = h.event_id
		JOIN entries e ON e.id = a.entry_id
		JOIN athletes at ON at.id = e.athlete_id
		LEFT JOIN organizations o ON o.id = at.owner_organization_id
		WHERE ev.meet_id = $1 AND h.finalized = TRUE
		AND (at.family_name ILIKE '%'||$2||'%' OR at.given_name ILIKE '%'||$2||'%'
			OR o.name ILIKE '%'||$2||'%' OR o.short_name ILIKE '%'||$2||'%')
		ORDER BY h.heat_number ASC, a.lane_number ASC
		LIMIT 50`

	rows, err := s.db.QueryContext(ctx, q, meetID, query)
	if err != nil {
		return nil, fmt.Errorf("search assignments: %w", err)
	}

	defer rows.Close()

	var out []*checkin.SearchResult

	for rows.Next() {
		var r checkin.SearchResult

		if err := rows.Scan(&r.AssignmentID, &r.HeatID, &r.HeatNumber, &r.LaneNumber, &r.EventID,
			&r.FamilyName, &r.GivenName, &r.OrgName, &r.CheckedIn); err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}

		out = append(out, &r)
	}

	return out, rows.Err()
}
