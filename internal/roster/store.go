package roster

import (
	"context"

	"github.com/trackmeet/engine/internal/catalog"
)

// Store opens the atomic transaction a bulk import commits through. The
// whole file commits as a single unit: any row-level storage failure rolls
// back every row, even ones that validated and upserted cleanly earlier in
// the same call.
type Store interface {
	BeginImport(ctx context.Context) (Tx, error)
}

// Tx is the transactional surface BulkImportAthletes drives one row at a
// time before a single terminal Commit or Rollback.
type Tx interface {
	FindAthleteByFederationID(ctx context.Context, ownerID, federationID string) (*catalog.Athlete, error)
	CreateAthlete(ctx context.Context, a *catalog.Athlete) error
	UpdateAthlete(ctx context.Context, a *catalog.Athlete) error
	Commit() error
	Rollback() error
}
