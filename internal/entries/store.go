package entries

import "context"

// Store is the persistence surface for entries. CreateEntry-adjacent writes
// run inside a transaction that also performs the (athlete, event)
// uniqueness check at the database level (a unique index), surfacing a
// constraint violation as ErrDuplicate.
type Store interface {
	Create(ctx context.Context, e *Entry) error
	FindByID(ctx context.Context, id string) (*Entry, error)
	FindByAthleteAndEvent(ctx context.Context, athleteID, eventID string) (*Entry, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
	CountByEvent(ctx context.Context, eventID string, statuses ...Status) (int, error)
	ListByEvent(ctx context.Context, eventID string, statuses ...Status) ([]*Entry, error)
	ListPendingByUserAndMeet(ctx context.Context, userID, meetID string) ([]*Entry, error)

	// ReassignToFallback implements the NCG cascade's batch update: every
	// entry in entryIDs has its event link reassigned from
	// fromEventID to toEventID, moved_from_ncg set, and original_ncg_event
	// set to fromEventID, in one transaction.
	ReassignToFallback(ctx context.Context, entryIDs []string, fromEventID, toEventID string) error
}
