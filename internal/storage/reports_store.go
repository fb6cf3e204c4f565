package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/trackmeet/engine/internal/reports"
)

// ReportStore is the Postgres-backed implementation of reports.Store: one
// flat, explicit-join query per report, never a lazy reverse-relation walk.
type ReportStore struct {
	db *Connection
}

func NewReportStore(db *Connection) *ReportStore {
	return &ReportStore{db: db}
}

const startListSelect = `SELECT h.heat_number, a.lane_number, COALESCE(a.bib_number, 0), at.family_name,
	at.given_name, COALESCE(o.short_name, o.name, ''), e.declared_seconds, COALESCE(at.federation_id, ''), a.status
	FROM assignments a
	JOIN heats h ON h.id = a.heat_id
	JOIN entries e ON e.id = a.entry_id
	JOIN athletes at ON at.id = e.athlete_id
	LEFT JOIN organizations o ON o.id = at.owner_organization_id`

func (s *ReportStore) StartListRows(ctx context.Context, eventID string) ([]reports.StartListRow, error) {
	q := startListSelect + ` WHERE h.event_id=$1`

	rows, err := s.db.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, fmt.Errorf("fetch start list rows: %w", err)
	}

	defer rows.Close()

	var out []reports.StartListRow

	for rows.Next() {
		var r reports.StartListRow

		if err := rows.Scan(&r.HeatNumber, &r.LaneNumber, &r.BibNumber, &r.FamilyName, &r.GivenName,
			&r.Team, &r.SeedTime, &r.FederationID, &r.Status); err != nil {
			return nil, fmt.Errorf("scan start list row: %w", err)
		}

		out = append(out, r)
	}

	return out, rows.Err()
}

func (s *ReportStore) MeetExportRows(ctx context.Context, meetID string) ([]reports.MeetExportRow, error) {
	const q = `SELECT h.heat_number, a.lane_number, COALESCE(a.bib_number, 0), at.family_name,
		at.given_name, COALESCE(o.short_name, o.name, ''), e.declared_seconds, COALESCE(at.federation_id, ''), a.status,
		at.family_phonetic, at.given_phonetic, at.sex, COALESCE(at.date_of_birth, DATE '0001-01-01'),
		COALESCE(o.phonetic_name, '')
		FROM assignments a
		JOIN heats h ON h.id = a.heat_id
		JOIN events ev ON ev.id = h.event_id
		JOIN entries e ON e.id = a.entry_id
		JOIN athletes at ON at.id = e.athlete_id
		LEFT JOIN organizations o ON o.id = at.owner_organization_id
		WHERE ev.meet_id=$1`

	rows, err := s.db.QueryContext(ctx, q, meetID)
	if err != nil {
		return nil, fmt.Errorf("fetch meet export rows: %w", err)
	}

	defer rows.Close()

	var out []reports.MeetExportRow

	for rows.Next() {
		var r reports.MeetExportRow

		if err := rows.Scan(&r.HeatNumber, &r.LaneNumber, &r.BibNumber, &r.FamilyName, &r.GivenName,
			&r.Team, &r.SeedTime, &r.FederationID, &r.Status, &r.FamilyPhonetic, &r.GivenPhonetic,
			&r.Sex, &r.DateOfBirth, &r.TeamPhonetic); err != nil {
			return nil, fmt.Errorf("scan meet export row: %w", err)
		}

		r.StatusDisplay = r.Status

		out = append(out, r)
	}

	return out, rows.Err()
}

func (s *ReportStore) FederationRows(ctx context.Context, meetID string) ([]reports.FederationRow, error) {
	// One row per athlete entered in the meet; the bib number comes from
	// whichever assignment carries one, via DISTINCT ON.
	const q = `SELECT DISTINCT ON (at.id) COALESCE(at.federation_id, ''), at.family_name, at.given_name,
		COALESCE(a.bib_number, 0), at.family_phonetic, at.given_phonetic, at.family_romaji, at.given_romaji,
		at.nationality, at.sex, at.registration_pref, COALESCE(at.date_of_birth, DATE '0001-01-01'), at.grade
		FROM entries e
		JOIN events ev ON ev.id = e.event_id
		JOIN athletes at ON at.id = e.athlete_id
		LEFT JOIN assignments a ON a.entry_id = e.id
		WHERE ev.meet_id=$1
		ORDER BY at.id, a.bib_number NULLS LAST`

	rows, err := s.db.QueryContext(ctx, q, meetID)
	if err != nil {
		return nil, fmt.Errorf("fetch federation rows: %w", err)
	}

	defer rows.Close()

	var out []reports.FederationRow

	for rows.Next() {
		var r reports.FederationRow

		if err := rows.Scan(&r.FederationID, &r.FamilyName, &r.GivenName, &r.BibNumber,
			&r.FamilyPhonetic, &r.GivenPhonetic, &r.FamilyRomaji, &r.GivenRomaji,
			&r.Nationality, &r.Sex, &r.Prefecture, &r.DateOfBirth, &r.Grade); err != nil {
			return nil, fmt.Errorf("scan federation row: %w", err)
		}

		out = append(out, r)
	}

	return out, rows.Err()
}

func (s *ReportStore) RollCallRows(ctx context.Context, heatID string) ([]reports.RollCallRow, error) {
	const q = `SELECT a.lane_number, at.family_name, at.given_name, COALESCE(o.short_name, o.name, ''),
		a.checked_in_at IS NOT NULL
		FROM assignments a
		JOIN entries e ON e.id = a.entry_id
		JOIN athletes at ON at.id = e.athlete_id
		LEFT JOIN organizations o ON o.id = at.owner_organization_id
		WHERE a.heat_id=$1`

	rows, err := s.db.QueryContext(ctx, q, heatID)
	if err != nil {
		return nil, fmt.Errorf("fetch roll call rows: %w", err)
	}

	defer rows.Close()

	var out []reports.RollCallRow

	for rows.Next() {
		var r reports.RollCallRow

		if err := rows.Scan(&r.LaneNumber, &r.FamilyName, &r.GivenName, &r.Team, &r.CheckedIn); err != nil {
			return nil, fmt.Errorf("scan roll call row: %w", err)
		}

		out = append(out, r)
	}

	return out, rows.Err()
}

func (s *ReportStore) ProgramRows(ctx context.Context, eventID string) ([]reports.ProgramHeat, error) {
	const heatQ = `SELECT id, heat_number FROM heats WHERE event_id=$1 ORDER BY heat_number ASC`

	heatRows, err := s.db.QueryContext(ctx, heatQ, eventID)
	if err != nil {
		return nil, fmt.Errorf("fetch program heats: %w", err)
	}

	defer heatRows.Close()

	type heatRef struct {
		id     string
		number int
	}

	var refs []heatRef

	for heatRows.Next() {
		var ref heatRef
		if err := heatRows.Scan(&ref.id, &ref.number); err != nil {
			return nil, fmt.Errorf("scan program heat: %w", err)
		}

		refs = append(refs, ref)
	}

	if err := heatRows.Err(); err != nil {
		return nil, err
	}

	out := make([]reports.ProgramHeat, 0, len(refs))

	for _, ref := range refs {
		q := startListSelect + ` WHERE a.heat_id=$1`

		rows, err := s.db.QueryContext(ctx, q, ref.id)
		if err != nil {
			return nil, fmt.Errorf("fetch program heat rows: %w", err)
		}

		var program reports.ProgramHeat
		program.HeatNumber = ref.number

		for rows.Next() {
			var r reports.StartListRow

			if err := rows.Scan(&r.HeatNumber, &r.LaneNumber, &r.BibNumber, &r.FamilyName, &r.GivenName,
				&r.Team, &r.SeedTime, &r.FederationID, &r.Status); err != nil {
				rows.Close()

				return nil, fmt.Errorf("scan program row: %w", err)
			}

			program.Rows = append(program.Rows, r)
		}

		rows.Close()

		out = append(out, program)
	}

	return out, nil
}

func (s *ReportStore) ResultSheetRows(ctx context.Context, heatID string) ([]reports.ResultSheetRow, error) {
	const q = `SELECT a.lane_number, at.family_phonetic, at.given_phonetic, at.family_name, at.given_name,
		COALESCE(at.date_of_birth, DATE '0001-01-01') FROM assignments a
		JOIN entries e ON e.id = a.entry_id
		JOIN athletes at ON at.id = e.athlete_id
		WHERE a.heat_id=$1`

	rows, err := s.db.QueryContext(ctx, q, heatID)
	if err != nil {
		return nil, fmt.Errorf("fetch result sheet rows: %w", err)
	}

	defer rows.Close()

	var out []reports.ResultSheetRow

	for rows.Next() {
		var r reports.ResultSheetRow

		if err := rows.Scan(&r.LaneNumber, &r.FamilyPhonetic, &r.GivenPhonetic, &r.FamilyName, &r.GivenName,
			&r.DateOfBirth); err != nil {
			return nil, fmt.Errorf("scan result sheet row: %w", err)
		}

		out = append(out, r)
	}

	return out, rows.Err()
}

func (s *ReportStore) EmergencyBackupSections(ctx context.Context, meetID string) ([]reports.EmergencyBackupSection, error) {
	const eventQ = `SELECT id, display_name FROM events WHERE meet_id=$1 ORDER BY is_ncg DESC, display_order ASC`

	eventRows, err := s.db.QueryContext(ctx, eventQ, meetID)
	if err != nil {
		return nil, fmt.Errorf("fetch emergency backup events: %w", err)
	}

	defer eventRows.Close()

	type eventRef struct{ id, name string }

	var refs []eventRef

	for eventRows.Next() {
		var ref eventRef
		if err := eventRows.Scan(&ref.id, &ref.name); err != nil {
			return nil, fmt.Errorf("scan emergency backup event: %w", err)
		}

		refs = append(refs, ref)
	}

	if err := eventRows.Err(); err != nil {
		return nil, err
	}

	out := make([]reports.EmergencyBackupSection, 0, len(refs))

	for _, ref := range refs {
		heats, err := s.ProgramRows(ctx, ref.id)
		if err != nil {
			return nil, err
		}

		out = append(out, reports.EmergencyBackupSection{EventID: ref.id, EventName: ref.name, Heats: heats})
	}

	return out, nil
}

func (s *ReportStore) RecordEmission(ctx context.Context, emission *reports.Emission) error {
	if emission.ID == "" {
		emission.ID = uuid.NewString()
	}

	const q = `INSERT INTO report_emissions (id, meet_id, event_id, report_type, requested_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`

	var eventID sql.NullString
	if emission.EventID != nil {
		eventID = sql.NullString{String: *emission.EventID, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, q, emission.ID, emission.MeetID, eventID, emission.ReportType,
		emission.UserID, emission.Timestamp)
	if err != nil {
		return fmt.Errorf("record report emission: %w", err)
	}

	return nil
}
