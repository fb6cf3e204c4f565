package heats

import "context"

// Store is the persistence surface for heats and assignments. Heat
// generation (delete-old + insert-new + insert-assignments) and manual move
// (target write + source lane compaction) each commit as one transaction.
type Store interface {
	// WithEventLock runs fn while holding an exclusive per-event advisory
	// lock, serializing concurrent generation for the same event so two
	// runs cannot interleave assignments.
	WithEventLock(ctx context.Context, eventID string, fn func(context.Context) error) error

	HasFinalizedHeats(ctx context.Context, eventID string) (bool, error)
	DeleteNonFinalizedHeats(ctx context.Context, eventID string) error

	// CreateHeatsWithAssignments inserts every heat and assignment produced
	// by one GenerateHeats call in a single transaction.
	CreateHeatsWithAssignments(ctx context.Context, heats []*Heat, assignments []*Assignment) error

	ListHeatsByEvent(ctx context.Context, eventID string) ([]*Heat, error)
	ListAssignmentsByHeat(ctx context.Context, heatID string) ([]*Assignment, error)
	FindAssignmentByID(ctx context.Context, id string) (*Assignment, error)

	// ApplyMove writes the moved assignment's new heat and lane and the
	// source heat's compacted lane renumbering (assignmentID -> new lane
	// number) in one transaction.
	ApplyMove(ctx context.Context, assignmentID, targetHeatID string, lane int, sourceRelanes map[string]int) error
}
