package roster

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/trackmeet/engine/internal/canonicalization"
	"github.com/trackmeet/engine/internal/catalog"
)

// Importer runs BulkImportAthletes: validate every row, then commit the
// whole file as one atomic transaction.
type Importer struct {
	store     Store
	validator *Validator
}

// NewImporter builds an Importer.
func NewImporter(store Store, validator *Validator) *Importer {
	return &Importer{store: store, validator: validator}
}

// BulkImportAthletes validates every row, skips rows whose federation ID
// repeats earlier in the same file, then commits all remaining rows in a
// single transaction. When skipExisting is true a row whose federation ID
// already has a matching athlete under owner is left untouched and counted
// as skipped rather than overwritten.
func (imp *Importer) BulkImportAthletes(
	ctx context.Context, owner catalog.Owner, rows []RawRow, skipExisting bool,
) (*ImportSummary, error) {
	if err := owner.Validate(); err != nil {
		return nil, fmt.Errorf("%w: invalid owner: %w", ErrValidation, err)
	}

	summary := &ImportSummary{}
	valid := make([]*ValidatedRow, 0, len(rows))
	seenKeys := map[string]int{}

	for i, row := range rows {
		vr, rowErr := imp.validator.ValidateRow(i, row)
		if rowErr != nil {
			summary.Errors = append(summary.Errors, *rowErr)

			continue
		}

		if vr.FederationID != "" {
			key := canonicalization.FederationKey(ownerKey(owner), vr.FederationID)
			if first, dup := seenKeys[key]; dup {
				summary.Warnings = append(summary.Warnings, RowWarning{
					RowIndex: i,
					Message:  fmt.Sprintf("duplicate federation ID, first seen at row %d", first),
				})

				continue
			}

			seenKeys[key] = i
		}

		valid = append(valid, vr)
	}

	tx, err := imp.store.BeginImport(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin import: %w", err)
	}

	for _, vr := range valid {
		outcome, err := imp.commitRow(ctx, tx, owner, vr, skipExisting)
		if err != nil {
			_ = tx.Rollback()

			return nil, fmt.Errorf("commit row %d: %w", vr.RowIndex, err)
		}

		switch outcome {
		case OutcomeCreated:
			summary.Created++
		case OutcomeUpdated:
			summary.Updated++
		case OutcomeSkipped:
			summary.Skipped++
			summary.Warnings = append(summary.Warnings, RowWarning{
				RowIndex: vr.RowIndex,
				Message:  "athlete already exists under this federation ID, skipped",
			})
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit import: %w", err)
	}

	return summary, nil
}

func (imp *Importer) commitRow(
	ctx context.Context, tx Tx, owner catalog.Owner, vr *ValidatedRow, skipExisting bool,
) (RowOutcome, error) {
	var existing *catalog.Athlete

	if vr.FederationID != "" {
		found, err := tx.FindAthleteByFederationID(ctx, ownerKey(owner), vr.FederationID)
		if err == nil {
			existing = found
			vr.ExistingAthleteID = found.ID
		}
	}

	dob, err := time.Parse("2006-01-02", vr.DateOfBirth)
	if err != nil {
		return "", fmt.Errorf("parse canonicalized dob: %w", err)
	}

	if existing != nil {
		if skipExisting {
			return OutcomeSkipped, nil
		}

		existing.DateOfBirth = dob
		applyValidatedRow(existing, vr)

		if err := tx.UpdateAthlete(ctx, existing); err != nil {
			return "", err
		}

		return OutcomeUpdated, nil
	}

	athlete := &catalog.Athlete{
		ID:     uuid.NewString(),
		Owner:  owner,
		Active: true,
	}
	athlete.DateOfBirth = dob
	applyValidatedRow(athlete, vr)

	if err := tx.CreateAthlete(ctx, athlete); err != nil {
		return "", err
	}

	return OutcomeCreated, nil
}

func applyValidatedRow(a *catalog.Athlete, vr *ValidatedRow) {
	a.FamilyName = vr.FamilyName
	a.GivenName = vr.GivenName
	a.FamilyPhonetic = vr.FamilyPhonetic
	a.GivenPhonetic = vr.GivenPhonetic
	a.FamilyRomaji = vr.FamilyRomaji
	a.GivenRomaji = vr.GivenRomaji
	a.Sex = catalog.Sex(vr.Sex)
	a.Grade = vr.Grade
	a.Nationality = vr.Nationality
	a.RegistrationPref = vr.RegistrationPref
	a.FederationID = vr.FederationID
}

func ownerKey(owner catalog.Owner) string {
	if owner.Kind == catalog.OwnerOrganization {
		return owner.OrganizationID
	}

	return owner.UserID
}
