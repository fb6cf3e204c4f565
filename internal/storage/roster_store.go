package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/trackmeet/engine/internal/catalog"
	"github.com/trackmeet/engine/internal/roster"
)

// RosterStore is the Postgres-backed implementation of roster.Store.
type RosterStore struct {
	db *Connection
}

func NewRosterStore(db *Connection) *RosterStore {
	return &RosterStore{db: db}
}

func (s *RosterStore) BeginImport(ctx context.Context) (roster.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin roster import: %w", err)
	}

	return &rosterTx{tx: tx}, nil
}

// rosterTx implements roster.Tx against one *sql.Tx for the duration of a
// single bulk import call.
type rosterTx struct {
	tx *sql.Tx
}

func (t *rosterTx) FindAthleteByFederationID(ctx context.Context, ownerID, federationID string) (*catalog.Athlete, error) {
	const q = `SELECT id, family_name, given_name, family_phonetic, given_phonetic, family_romaji,
		given_romaji, sex, date_of_birth, grade, nationality, registration_pref, federation_id,
		owner_kind, owner_organization_id, owner_user_id, active FROM athletes
		WHERE federation_id=$1 AND (owner_organization_id=$2 OR owner_user_id=$2)`

	row := t.tx.QueryRowContext(ctx, q, federationID, ownerID)

	var (
		a                       catalog.Athlete
		dob                     sql.NullTime
		fedID                   sql.NullString
		ownerOrgID, ownerUserID sql.NullString
	)

	err := row.Scan(&a.ID, &a.FamilyName, &a.GivenName, &a.FamilyPhonetic, &a.GivenPhonetic,
		&a.FamilyRomaji, &a.GivenRomaji, &a.Sex, &dob, &a.Grade, &a.Nationality, &a.RegistrationPref,
		&fedID, &a.Owner.Kind, &ownerOrgID, &ownerUserID, &a.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("find athlete by federation id: %w", err)
	}

	a.DateOfBirth = dob.Time
	a.FederationID = fedID.String
	a.Owner.OrganizationID = ownerOrgID.String
	a.Owner.UserID = ownerUserID.String

	return &a, nil
}

func (t *rosterTx) CreateAthlete(ctx context.Context, a *catalog.Athlete) error {
	const q = `INSERT INTO athletes (id, family_name, given_name, family_phonetic, given_phonetic,
		family_romaji, given_romaji, sex, date_of_birth, grade, nationality, registration_pref,
		federation_id, owner_kind, owner_organization_id, owner_user_id, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`

	_, err := t.tx.ExecContext(ctx, q, a.ID, a.FamilyName, a.GivenName, a.FamilyPhonetic, a.GivenPhonetic,
		a.FamilyRomaji, a.GivenRomaji, a.Sex, nullTime(a.DateOfBirth), a.Grade, a.Nationality, a.RegistrationPref,
		nullString(a.FederationID), a.Owner.Kind, nullString(a.Owner.OrganizationID), nullString(a.Owner.UserID), a.Active)
	if err != nil {
		return fmt.Errorf("insert athlete: %w", err)
	}

	return nil
}

func (t *rosterTx) UpdateAthlete(ctx context.Context, a *catalog.Athlete) error {
	const q = `UPDATE athletes SET family_name=$2, given_name=$3, family_phonetic=$4, given_phonetic=$5,
		family_romaji=$6, given_romaji=$7, sex=$8, date_of_birth=$9, grade=$10, nationality=$11,
		registration_pref=$12, active=$13, updated_at=now() WHERE id=$1`

	_, err := t.tx.ExecContext(ctx, q, a.ID, a.FamilyName, a.GivenName, a.FamilyPhonetic, a.GivenPhonetic,
		a.FamilyRomaji, a.GivenRomaji, a.Sex, nullTime(a.DateOfBirth), a.Grade, a.Nationality, a.RegistrationPref, a.Active)
	if err != nil {
		return fmt.Errorf("update athlete: %w", err)
	}

	return nil
}

func (t *rosterTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit roster import: %w", err)
	}

	return nil
}

func (t *rosterTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil {
		return fmt.Errorf("rollback roster import: %w", err)
	}

	return nil
}
