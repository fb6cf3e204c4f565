package checkin

import (
	"context"
	"time"

	"github.com/trackmeet/engine/internal/heats"
)

// Store is the persistence surface for check-in and race-day state
// transitions. CheckIn and MarkStatus are each transactional for their
// timestamp/flag (or entry-cascade) coupling.
type Store interface {
	FindAssignment(ctx context.Context, id string) (*heats.Assignment, error)

	// CheckIn sets checked_in=true and checked_in_at=at. The caller (the
	// Service) has already established this is not a no-op.
	CheckIn(ctx context.Context, id string, at time.Time) error

	// MarkStatus writes the assignment's new status and, when
	// cascadeEntryDNS is true, also transitions the linked entry to DNS in
	// the same transaction.
	MarkStatus(ctx context.Context, id string, status Status, cascadeEntryDNS bool) error

	ListByHeat(ctx context.Context, heatID string) ([]*heats.Assignment, error)

	// Search returns heats-of-finalized-status hits in meetID matching
	// query against family name, given name, or organization name/short
	// name, capped at 50 and ordered by (heat_number, lane_number).
	Search(ctx context.Context, meetID, query string) ([]*SearchResult, error)
}
