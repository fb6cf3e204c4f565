package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/trackmeet/engine/internal/catalog"
)

// CatalogStore is the Postgres-backed implementation of catalog.Store.
type CatalogStore struct {
	db *Connection
}

// NewCatalogStore constructs a CatalogStore.
func NewCatalogStore(db *Connection) *CatalogStore {
	return &CatalogStore{db: db}
}

func (s *CatalogStore) CreateOrganization(ctx context.Context, org *catalog.Organization) error {
	const q = `INSERT INTO organizations (id, name, phonetic_name, short_name, contact_name, contact_email, contact_phone, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.db.ExecContext(ctx, q, org.ID, org.Name, org.PhoneticName, org.ShortName,
		org.ContactName, org.ContactEmail, org.ContactPhone, org.Active)
	if isUniqueViolation(err) {
		return catalog.ErrDuplicate
	}

	if err != nil {
		return fmt.Errorf("create organization: %w", err)
	}

	return nil
}

func (s *CatalogStore) UpdateOrganization(ctx context.Context, org *catalog.Organization) error {
	const q = `UPDATE organizations SET name=$2, phonetic_name=$3, short_name=$4, contact_name=$5,
		contact_email=$6, contact_phone=$7, active=$8 WHERE id=$1`

	_, err := s.db.ExecContext(ctx, q, org.ID, org.Name, org.PhoneticName, org.ShortName,
		org.ContactName, org.ContactEmail, org.ContactPhone, org.Active)
	if isUniqueViolation(err) {
		return catalog.ErrDuplicate
	}

	if err != nil {
		return fmt.Errorf("update organization: %w", err)
	}

	return nil
}

func (s *CatalogStore) CreateAthlete(ctx context.Context, a *catalog.Athlete) error {
	if err := a.Validate(); err != nil {
		return err
	}

	const q = `INSERT INTO athletes (id, family_name, given_name, family_phonetic, given_phonetic,
		family_romaji, given_romaji, sex, date_of_birth, grade, nationality, registration_pref,
		federation_id, owner_kind, owner_organization_id, owner_user_id, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`

	_, err := s.db.ExecContext(ctx, q, a.ID, a.FamilyName, a.GivenName, a.FamilyPhonetic, a.GivenPhonetic,
		a.FamilyRomaji, a.GivenRomaji, a.Sex, nullTime(a.DateOfBirth), a.Grade, a.Nationality, a.RegistrationPref,
		nullString(a.FederationID), a.Owner.Kind, nullString(a.Owner.OrganizationID), nullString(a.Owner.UserID), a.Active)
	if isUniqueViolation(err) {
		return catalog.ErrDuplicate
	}

	if err != nil {
		return fmt.Errorf("create athlete: %w", err)
	}

	return nil
}

func (s *CatalogStore) UpdateAthlete(ctx context.Context, a *catalog.Athlete) error {
	if err := a.Validate(); err != nil {
		return err
	}

	const q = `UPDATE athletes SET family_name=$2, given_name=$3, family_phonetic=$4, given_phonetic=$5,
		family_romaji=$6, given_romaji=$7, sex=$8, date_of_birth=$9, grade=$10, nationality=$11,
		registration_pref=$12, federation_id=$13, owner_kind=$14, owner_organization_id=$15,
		owner_user_id=$16, active=$17, updated_at=now() WHERE id=$1`

	_, err := s.db.ExecContext(ctx, q, a.ID, a.FamilyName, a.GivenName, a.FamilyPhonetic, a.GivenPhonetic,
		a.FamilyRomaji, a.GivenRomaji, a.Sex, nullTime(a.DateOfBirth), a.Grade, a.Nationality, a.RegistrationPref,
		nullString(a.FederationID), a.Owner.Kind, nullString(a.Owner.OrganizationID), nullString(a.Owner.UserID), a.Active)
	if isUniqueViolation(err) {
		return catalog.ErrDuplicate
	}

	if err != nil {
		return fmt.Errorf("update athlete: %w", err)
	}

	return nil
}

func (s *CatalogStore) CreateMeet(ctx context.Context, m *catalog.Meet) error {
	const q = `INSERT INTO meets (id, name, first_day, last_day, venue, entry_open, entry_close,
		entry_fee, default_capacity, published, reception_open)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`

	_, err := s.db.ExecContext(ctx, q, m.ID, m.Name, m.FirstDay, nullTimePtr(m.LastDay), m.Venue,
		m.EntryOpen, m.EntryClose, m.EntryFee, m.DefaultCapacity, m.Published, m.ReceptionOpen)
	if err != nil {
		return fmt.Errorf("create meet: %w", err)
	}

	return nil
}

func (s *CatalogStore) UpdateMeet(ctx context.Context, m *catalog.Meet) error {
	const q = `UPDATE meets SET name=$2, first_day=$3, last_day=$4, venue=$5, entry_open=$6,
		entry_close=$7, entry_fee=$8, default_capacity=$9, published=$10, reception_open=$11 WHERE id=$1`

	_, err := s.db.ExecContext(ctx, q, m.ID, m.Name, m.FirstDay, nullTimePtr(m.LastDay), m.Venue,
		m.EntryOpen, m.EntryClose, m.EntryFee, m.DefaultCapacity, m.Published, m.ReceptionOpen)
	if err != nil {
		return fmt.Errorf("update meet: %w", err)
	}

	return nil
}

func (s *CatalogStore) CreateEvent(ctx context.Context, e *catalog.Event) error {
	const q = `INSERT INTO events (id, meet_id, distance, sex, display_name, heat_capacity, max_entries,
		display_order, scheduled_start, is_ncg, ncg_capacity, qualifying_standard, fallback_event_id, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`

	_, err := s.db.ExecContext(ctx, q, e.ID, e.MeetID, e.Distance, e.Sex, e.DisplayName, e.HeatCapacity,
		nullIntPtr(e.MaxEntries), e.DisplayOrder, nullTimePtr(e.ScheduledStart), e.IsNCG, e.NCGCapacity,
		nullFloatPtr(e.QualifyingStandard), nullString(derefStr(e.FallbackEventID)), e.Active)
	if isUniqueViolation(err) {
		return catalog.ErrDuplicate
	}

	if err != nil {
		return fmt.Errorf("create event: %w", err)
	}

	return nil
}

func (s *CatalogStore) UpdateEvent(ctx context.Context, e *catalog.Event) error {
	const q = `UPDATE events SET distance=$2, sex=$3, display_name=$4, heat_capacity=$5, max_entries=$6,
		display_order=$7, scheduled_start=$8, is_ncg=$9, ncg_capacity=$10, qualifying_standard=$11,
		fallback_event_id=$12, active=$13 WHERE id=$1`

	_, err := s.db.ExecContext(ctx, q, e.ID, e.Distance, e.Sex, e.DisplayName, e.HeatCapacity,
		nullIntPtr(e.MaxEntries), e.DisplayOrder, nullTimePtr(e.ScheduledStart), e.IsNCG, e.NCGCapacity,
		nullFloatPtr(e.QualifyingStandard), nullString(derefStr(e.FallbackEventID)), e.Active)
	if isUniqueViolation(err) {
		return catalog.ErrDuplicate
	}

	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}

	return nil
}

func (s *CatalogStore) FindOrganizationByName(ctx context.Context, name string) (*catalog.Organization, error) {
	const q = `SELECT id, name, phonetic_name, short_name, contact_name, contact_email, contact_phone, active
		FROM organizations WHERE name=$1`

	return s.scanOrganization(s.db.QueryRowContext(ctx, q, name))
}

func (s *CatalogStore) FindOrganizationByID(ctx context.Context, id string) (*catalog.Organization, error) {
	const q = `SELECT id, name, phonetic_name, short_name, contact_name, contact_email, contact_phone, active
		FROM organizations WHERE id=$1`

	return s.scanOrganization(s.db.QueryRowContext(ctx, q, id))
}

func (s *CatalogStore) scanOrganization(row *sql.Row) (*catalog.Organization, error) {
	var org catalog.Organization

	err := row.Scan(&org.ID, &org.Name, &org.PhoneticName, &org.ShortName, &org.ContactName,
		&org.ContactEmail, &org.ContactPhone, &org.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("find organization: %w", err)
	}

	return &org, nil
}

func (s *CatalogStore) FindAthleteByID(ctx context.Context, id string) (*catalog.Athlete, error) {
	const q = `SELECT id, family_name, given_name, family_phonetic, given_phonetic, family_romaji,
		given_romaji, sex, date_of_birth, grade, nationality, registration_pref, federation_id,
		owner_kind, owner_organization_id, owner_user_id, active FROM athletes WHERE id=$1`

	return s.scanAthlete(s.db.QueryRowContext(ctx, q, id))
}

func (s *CatalogStore) FindAthleteByFederationID(ctx context.Context, federationID string) (*catalog.Athlete, error) {
	const q = `SELECT id, family_name, given_name, family_phonetic, given_phonetic, family_romaji,
		given_romaji, sex, date_of_birth, grade, nationality, registration_pref, federation_id,
		owner_kind, owner_organization_id, owner_user_id, active FROM athletes WHERE federation_id=$1`

	return s.scanAthlete(s.db.QueryRowContext(ctx, q, federationID))
}

func (s *CatalogStore) scanAthlete(row *sql.Row) (*catalog.Athlete, error) {
	var (
		a                        catalog.Athlete
		dob                      sql.NullTime
		federationID             sql.NullString
		ownerOrgID, ownerUserID  sql.NullString
	)

	err := row.Scan(&a.ID, &a.FamilyName, &a.GivenName, &a.FamilyPhonetic, &a.GivenPhonetic,
		&a.FamilyRomaji, &a.GivenRomaji, &a.Sex, &dob, &a.Grade, &a.Nationality, &a.RegistrationPref,
		&federationID, &a.Owner.Kind, &ownerOrgID, &ownerUserID, &a.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("find athlete: %w", err)
	}

	a.DateOfBirth = dob.Time
	a.FederationID = federationID.String
	a.Owner.OrganizationID = ownerOrgID.String
	a.Owner.UserID = ownerUserID.String

	return &a, nil
}

func (s *CatalogStore) FindMeetByID(ctx context.Context, id string) (*catalog.Meet, error) {
	const q = `SELECT id, name, first_day, last_day, venue, entry_open, entry_close, entry_fee,
		default_capacity, published, reception_open FROM meets WHERE id=$1`

	var (
		m       catalog.Meet
		lastDay sql.NullTime
	)

	err := s.db.QueryRowContext(ctx, q, id).Scan(&m.ID, &m.Name, &m.FirstDay, &lastDay, &m.Venue,
		&m.EntryOpen, &m.EntryClose, &m.EntryFee, &m.DefaultCapacity, &m.Published, &m.ReceptionOpen)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("find meet: %w", err)
	}

	if lastDay.Valid {
		m.LastDay = &lastDay.Time
	}

	return &m, nil
}

func (s *CatalogStore) FindEventByID(ctx context.Context, id string) (*catalog.Event, error) {
	const q = `SELECT id, meet_id, distance, sex, display_name, heat_capacity, max_entries, display_order,
		scheduled_start, is_ncg, ncg_capacity, qualifying_standard, fallback_event_id, active
		FROM events WHERE id=$1`

	return s.scanEvent(s.db.QueryRowContext(ctx, q, id))
}

func (s *CatalogStore) scanEvent(row *sql.Row) (*catalog.Event, error) {
	var (
		e                  catalog.Event
		maxEntries         sql.NullInt64
		scheduledStart     sql.NullTime
		qualifyingStandard sql.NullFloat64
		fallbackEventID    sql.NullString
	)

	err := row.Scan(&e.ID, &e.MeetID, &e.Distance, &e.Sex, &e.DisplayName, &e.HeatCapacity, &maxEntries,
		&e.DisplayOrder, &scheduledStart, &e.IsNCG, &e.NCGCapacity, &qualifyingStandard, &fallbackEventID, &e.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("find event: %w", err)
	}

	if maxEntries.Valid {
		v := int(maxEntries.Int64)
		e.MaxEntries = &v
	}

	if scheduledStart.Valid {
		e.ScheduledStart = &scheduledStart.Time
	}

	if qualifyingStandard.Valid {
		e.QualifyingStandard = &qualifyingStandard.Float64
	}

	if fallbackEventID.Valid {
		e.FallbackEventID = &fallbackEventID.String
	}

	return &e, nil
}

func (s *CatalogStore) ListEventsByMeet(ctx context.Context, meetID string, activeOnly bool) ([]*catalog.Event, error) {
	q := `SELECT id, meet_id, distance, sex, display_name, heat_capacity, max_entries, display_order,
		scheduled_start, is_ncg, ncg_capacity, qualifying_standard, fallback_event_id, active
		FROM events WHERE meet_id=$1`
	if activeOnly {
		q += ` AND active=TRUE`
	}

	q += ` ORDER BY is_ncg DESC, display_order ASC`

	rows, err := s.db.QueryContext(ctx, q, meetID)
	if err != nil {
		return nil, fmt.Errorf("list events by meet: %w", err)
	}

	defer rows.Close()

	var events []*catalog.Event

	for rows.Next() {
		var (
			e                  catalog.Event
			maxEntries         sql.NullInt64
			scheduledStart     sql.NullTime
			qualifyingStandard sql.NullFloat64
			fallbackEventID    sql.NullString
		)

		if err := rows.Scan(&e.ID, &e.MeetID, &e.Distance, &e.Sex, &e.DisplayName, &e.HeatCapacity, &maxEntries,
			&e.DisplayOrder, &scheduledStart, &e.IsNCG, &e.NCGCapacity, &qualifyingStandard, &fallbackEventID, &e.Active); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}

		if maxEntries.Valid {
			v := int(maxEntries.Int64)
			e.MaxEntries = &v
		}

		if scheduledStart.Valid {
			e.ScheduledStart = &scheduledStart.Time
		}

		if qualifyingStandard.Valid {
			e.QualifyingStandard = &qualifyingStandard.Float64
		}

		if fallbackEventID.Valid {
			e.FallbackEventID = &fallbackEventID.String
		}

		events = append(events, &e)
	}

	return events, rows.Err()
}

func (s *CatalogStore) ListActiveMeets(ctx context.Context) ([]*catalog.Meet, error) {
	const q = `SELECT id, name, first_day, last_day, venue, entry_open, entry_close, entry_fee,
		default_capacity, published, reception_open FROM meets WHERE published=TRUE ORDER BY first_day ASC`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list active meets: %w", err)
	}

	defer rows.Close()

	var meets []*catalog.Meet

	for rows.Next() {
		var (
			m       catalog.Meet
			lastDay sql.NullTime
		)

		if err := rows.Scan(&m.ID, &m.Name, &m.FirstDay, &lastDay, &m.Venue, &m.EntryOpen, &m.EntryClose,
			&m.EntryFee, &m.DefaultCapacity, &m.Published, &m.ReceptionOpen); err != nil {
			return nil, fmt.Errorf("scan meet: %w", err)
		}

		if lastDay.Valid {
			m.LastDay = &lastDay.Time
		}

		meets = append(meets, &m)
	}

	return meets, rows.Err()
}

func derefStr(p *string) string {
	if p == nil {
		return ""
	}

	return *p
}
