package checkin

import (
	"context"
	"fmt"
	"time"

	"github.com/trackmeet/engine/internal/heats"
)

// Service implements CheckIn, MarkStatus, HeatRollup, and
// SearchAssignments against a Store.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService builds a checkin.Service. now defaults to time.Now when nil;
// tests may override it for deterministic timestamps.
func NewService(store Store, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}

	return &Service{store: store, now: now}
}

// CheckIn is idempotent: a second call on an already-checked assignment
// leaves the timestamp untouched and reports noop=true.
func (s *Service) CheckIn(ctx context.Context, assignmentID string) (checkedInAt time.Time, noop bool, err error) {
	assignment, err := s.store.FindAssignment(ctx, assignmentID)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("find assignment: %w", err)
	}

	if assignment.CheckedIn {
		if assignment.CheckedInAt != nil {
			return *assignment.CheckedInAt, true, nil
		}

		return time.Time{}, true, nil
	}

	if !transitionAllowed(assignment.Status, "check_in") {
		return time.Time{}, false, fmt.Errorf("%w: status is %q", ErrTerminalStateImmutable, assignment.Status)
	}

	at := s.now()
	if err := s.store.CheckIn(ctx, assignmentID, at); err != nil {
		return time.Time{}, false, fmt.Errorf("check in: %w", err)
	}

	return at, false, nil
}

// MarkStatus transitions an assignment to DNS, DNF, or DQ. Marking DNS
// additionally cascades the linked entry's status to DNS in the same
// transaction.
func (s *Service) MarkStatus(ctx context.Context, assignmentID string, target Status) error {
	trigger, ok := triggers[target]
	if !ok {
		return fmt.Errorf("%w: %q is not a reachable target status", ErrStateConflict, target)
	}

	assignment, err := s.store.FindAssignment(ctx, assignmentID)
	if err != nil {
		return fmt.Errorf("find assignment: %w", err)
	}

	if !transitionAllowed(assignment.Status, trigger) {
		return fmt.Errorf("%w: status is %q", ErrTerminalStateImmutable, assignment.Status)
	}

	cascadeEntryDNS := target == StatusDNS

	return s.store.MarkStatus(ctx, assignmentID, target, cascadeEntryDNS)
}

// HeatRollup computes {total, checked_in_count, dns_count, pending} and
// progress = round(checked_in/total * 100), 0 when total is 0.
func (s *Service) HeatRollup(ctx context.Context, heatID string) (Rollup, error) {
	list, err := s.store.ListByHeat(ctx, heatID)
	if err != nil {
		return Rollup{}, fmt.Errorf("list assignments: %w", err)
	}

	r := Rollup{Total: len(list)}

	for _, a := range list {
		if a.CheckedIn {
			r.CheckedIn++
		}

		if a.Status == heats.AssignmentDNS {
			r.DNS++
		}
	}

	r.Pending = r.Total - r.CheckedIn - r.DNS

	if r.Total > 0 {
		r.ProgressPct = int(float64(r.CheckedIn)/float64(r.Total)*100.0 + 0.5)
	}

	return r, nil
}

// SearchAssignments implements the race-day reception search.
func (s *Service) SearchAssignments(ctx context.Context, meetID, query string) ([]*SearchResult, error) {
	return s.store.Search(ctx, meetID, query)
}
