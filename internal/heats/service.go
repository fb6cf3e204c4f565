package heats

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trackmeet/engine/internal/catalog"
	"github.com/trackmeet/engine/internal/entries"
)

// Service implements GenerateHeats, MoveAssignment, the NCG cascade, and
// GenerateMeet against a Store, the Entry Store, and the Catalog's
// read-only query surface.
type Service struct {
	store   Store
	entries entries.Store
	catalog catalog.ReadStore
	now     func() time.Time
}

// NewService builds a heats.Service. now defaults to time.Now when nil;
// tests may override it for deterministic timestamps.
func NewService(store Store, entryStore entries.Store, cat catalog.ReadStore, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}

	return &Service{store: store, entries: entryStore, catalog: cat, now: now}
}

func filterSet(includePending bool) []entries.Status {
	if includePending {
		return []entries.Status{entries.StatusPending, entries.StatusPaymentUploaded, entries.StatusConfirmed}
	}

	return []entries.Status{entries.StatusConfirmed}
}

// orderEntries sorts by declared time ascending, tie-break
// by creation timestamp ascending, then entry ID ascending. Stable and
// deterministic.
func orderEntries(list []*entries.Entry) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Declared != list[j].Declared {
			return list[i].Declared < list[j].Declared
		}

		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}

		return list[i].ID < list[j].ID
	})
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}

	return (a + b - 1) / b
}

// GenerateHeats selects eligible entries for event E, orders them,
// computes heat count and per-heat capacity, and materializes heats
// numbered 1..n with lanes assigned in seed order, holding the per-event
// generation lock throughout.
func (s *Service) GenerateHeats(ctx context.Context, eventID string, opts GenerateOptions) ([]*Heat, error) {
	var out []*Heat

	err := s.store.WithEventLock(ctx, eventID, func(ctx context.Context) error {
		generated, err := s.generateHeatsLocked(ctx, eventID, opts)
		if err != nil {
			return err
		}

		out = generated

		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func (s *Service) generateHeatsLocked(ctx context.Context, eventID string, opts GenerateOptions) ([]*Heat, error) {
	event, err := s.catalog.FindEventByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("%w: event lookup failed: %w", ErrValidation, err)
	}

	if opts.Regenerate {
		finalized, err := s.store.HasFinalizedHeats(ctx, eventID)
		if err != nil {
			return nil, fmt.Errorf("check finalized heats: %w", err)
		}

		if finalized && !opts.Force {
			return nil, ErrFinalizedExists
		}

		if err := s.store.DeleteNonFinalizedHeats(ctx, eventID); err != nil {
			return nil, fmt.Errorf("delete non-finalized heats: %w", err)
		}
	}

	list, err := s.entries.ListByEvent(ctx, eventID, filterSet(opts.IncludePending)...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	orderEntries(list)

	if len(list) == 0 {
		return []*Heat{}, nil
	}

	var capacity, heatCount int

	if opts.HeatCount != nil && *opts.HeatCount > 0 {
		heatCount = *opts.HeatCount
		capacity = ceilDiv(len(list), heatCount)
	} else {
		capacity = event.HeatCapacity
		heatCount = ceilDiv(len(list), capacity)
	}

	heatsOut := make([]*Heat, heatCount)
	for i := 0; i < heatCount; i++ {
		heatsOut[i] = &Heat{ID: uuid.NewString(), EventID: eventID, HeatNumber: i + 1}
	}

	assignments := make([]*Assignment, len(list))
	for i, e := range list {
		heatIdx := i / capacity
		lane := i%capacity + 1
		assignments[i] = &Assignment{
			ID:         uuid.NewString(),
			HeatID:     heatsOut[heatIdx].ID,
			EntryID:    e.ID,
			LaneNumber: lane,
			Status:     AssignmentAssigned,
		}
	}

	if err := s.store.CreateHeatsWithAssignments(ctx, heatsOut, assignments); err != nil {
		return nil, fmt.Errorf("create heats: %w", err)
	}

	return heatsOut, nil
}

// CascadeNCG runs the cascade for one NCG event: the first ncg_capacity
// Confirmed entries (in seed order) remain; the remainder are cascaded to
// the fallback event unless the athlete already holds a separate entry
// there, in which case the entry is skipped (Open Question resolution, see
// DESIGN.md).
func (s *Service) CascadeNCG(ctx context.Context, eventID string) (*CascadeResult, error) {
	event, err := s.catalog.FindEventByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("%w: event lookup failed: %w", ErrValidation, err)
	}

	if !event.IsNCG {
		return nil, fmt.Errorf("%w: event %s is not an NCG event", ErrValidation, eventID)
	}

	if event.FallbackEventID == nil || *event.FallbackEventID == "" {
		return nil, ErrNoFallback
	}

	fallback, err := s.catalog.FindEventByID(ctx, *event.FallbackEventID)
	if err != nil || fallback.MeetID != event.MeetID {
		return nil, ErrNoFallback
	}

	list, err := s.entries.ListByEvent(ctx, eventID, entries.StatusConfirmed)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	orderEntries(list)

	result := &CascadeResult{EventID: eventID}

	if len(list) <= event.NCGCapacity {
		result.Retained = len(list)
		return result, nil
	}

	result.Retained = event.NCGCapacity
	overflow := list[event.NCGCapacity:]

	var toCascade []string

	for _, e := range overflow {
		existing, err := s.entries.FindByAthleteAndEvent(ctx, e.AthleteID, *event.FallbackEventID)
		if err == nil && existing != nil {
			result.Skipped = append(result.Skipped, e.ID)
			continue
		}

		toCascade = append(toCascade, e.ID)
	}

	if len(toCascade) == 0 {
		return result, nil
	}

	if err := s.entries.ReassignToFallback(ctx, toCascade, eventID, *event.FallbackEventID); err != nil {
		return nil, fmt.Errorf("reassign cascaded entries: %w", err)
	}

	result.Cascaded = toCascade

	return result, nil
}

// GenerateMeet cascades every NCG event, then generates
// heats for non-NCG events, then for NCG events, so fallback events see
// their final entry set before partitioning. Each step is independent; a
// failure is recorded and the orchestration continues.
func (s *Service) GenerateMeet(ctx context.Context, meetID string, regenerate bool) (*MeetGenerateSummary, error) {
	events, err := s.catalog.ListEventsByMeet(ctx, meetID, true)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	summary := &MeetGenerateSummary{}

	var ncgEvents, otherEvents []*catalog.Event

	for _, e := range events {
		if e.IsNCG {
			ncgEvents = append(ncgEvents, e)
		} else {
			otherEvents = append(otherEvents, e)
		}
	}

	for _, e := range ncgEvents {
		result, err := s.CascadeNCG(ctx, e.ID)
		if err != nil {
			summary.Errors = append(summary.Errors, EventError{EventID: e.ID, Err: err})
			continue
		}

		summary.Cascaded = append(summary.Cascaded, *result)
	}

	opts := GenerateOptions{Regenerate: regenerate}

	for _, e := range otherEvents {
		if _, err := s.GenerateHeats(ctx, e.ID, opts); err != nil {
			summary.Errors = append(summary.Errors, EventError{EventID: e.ID, Err: err})
			continue
		}

		summary.Generated = append(summary.Generated, e.ID)
	}

	for _, e := range ncgEvents {
		if _, err := s.GenerateHeats(ctx, e.ID, opts); err != nil {
			summary.Errors = append(summary.Errors, EventError{EventID: e.ID, Err: err})
			continue
		}

		summary.Generated = append(summary.Generated, e.ID)
	}

	return summary, nil
}

// MoveAssignment performs a manual move to an explicit or
// appended lane in the target heat, followed by source-heat lane
// compaction.
func (s *Service) MoveAssignment(ctx context.Context, assignmentID, targetHeatID string, newLane *int) error {
	assignment, err := s.store.FindAssignmentByID(ctx, assignmentID)
	if err != nil {
		return fmt.Errorf("find assignment: %w", err)
	}

	targetAssignments, err := s.store.ListAssignmentsByHeat(ctx, targetHeatID)
	if err != nil {
		return fmt.Errorf("list target heat: %w", err)
	}

	var lane int

	if newLane == nil {
		maxLane := 0

		for _, a := range targetAssignments {
			if a.LaneNumber > maxLane {
				maxLane = a.LaneNumber
			}
		}

		lane = maxLane + 1
	} else {
		lane = *newLane

		for _, a := range targetAssignments {
			if a.LaneNumber == lane && a.ID != assignmentID {
				return ErrLaneConflict
			}
		}
	}

	// A move within the same heat only changes the lane; compacting would
	// renumber the remaining lanes over the one just chosen.
	if targetHeatID == assignment.HeatID {
		return s.store.ApplyMove(ctx, assignmentID, targetHeatID, lane, nil)
	}

	sourceAssignments, err := s.store.ListAssignmentsByHeat(ctx, assignment.HeatID)
	if err != nil {
		return fmt.Errorf("list source heat: %w", err)
	}

	remaining := make([]*Assignment, 0, len(sourceAssignments))

	for _, a := range sourceAssignments {
		if a.ID != assignmentID {
			remaining = append(remaining, a)
		}
	}

	sort.SliceStable(remaining, func(i, j int) bool { return remaining[i].LaneNumber < remaining[j].LaneNumber })

	relanes := make(map[string]int, len(remaining))
	for i, a := range remaining {
		relanes[a.ID] = i + 1
	}

	return s.store.ApplyMove(ctx, assignmentID, targetHeatID, lane, relanes)
}
