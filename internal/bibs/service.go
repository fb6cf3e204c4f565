package bibs

import (
	"context"
	"fmt"
	"sort"

	"github.com/trackmeet/engine/internal/catalog"
	"github.com/trackmeet/engine/internal/heats"
)

// Service implements AssignBibs against the Catalog's read-only
// query surface, the Heat Generator's Store (for reading heats and
// assignments), and a bibs.Store for the final batched write.
type Service struct {
	catalog catalog.ReadStore
	heats   heats.Store
	store   Store
}

// NewService builds a bibs.Service.
func NewService(cat catalog.ReadStore, heatStore heats.Store, store Store) *Service {
	return &Service{catalog: cat, heats: heatStore, store: store}
}

func partitionKey(sex catalog.Sex, isNCG bool) string {
	return fmt.Sprintf("%s|%v", sex, isNCG)
}

// AssignBibs walks events (is_ncg descending,
// display_order ascending), then each event's heats by heat_number, then
// each heat's assignments by lane_number, drawing the next integer from the
// partition counter for (event.sex, event.is_ncg). Counters persist across
// events sharing a partition. All writes commit in one batched update.
func (s *Service) AssignBibs(ctx context.Context, meetID string) (*Summary, error) {
	events, err := s.catalog.ListEventsByMeet(ctx, meetID, true)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].IsNCG != events[j].IsNCG {
			return events[i].IsNCG
		}

		return events[i].DisplayOrder < events[j].DisplayOrder
	})

	counters := map[string]int{}
	summary := &Summary{}
	var updates []BibUpdate

	for _, e := range events {
		heatList, err := s.heats.ListHeatsByEvent(ctx, e.ID)
		if err != nil {
			return nil, fmt.Errorf("list heats for event %s: %w", e.ID, err)
		}

		sort.SliceStable(heatList, func(i, j int) bool { return heatList[i].HeatNumber < heatList[j].HeatNumber })

		key := partitionKey(e.Sex, e.IsNCG)
		if _, ok := counters[key]; !ok {
			counters[key] = PartitionStart(e.Sex, e.IsNCG)
		}

		for _, h := range heatList {
			assignments, err := s.heats.ListAssignmentsByHeat(ctx, h.ID)
			if err != nil {
				return nil, fmt.Errorf("list assignments for heat %s: %w", h.ID, err)
			}

			sort.SliceStable(assignments, func(i, j int) bool { return assignments[i].LaneNumber < assignments[j].LaneNumber })

			for _, a := range assignments {
				bib := counters[key]
				counters[key]++

				updates = append(updates, BibUpdate{AssignmentID: a.ID, BibNumber: bib})
				summary.Assigned++

				if ceiling, ok := PartitionCeiling(e.Sex, e.IsNCG); ok && bib > ceiling {
					summary.Warnings = append(summary.Warnings, Warning{
						EventID: e.ID, Sex: e.Sex, IsNCG: e.IsNCG, BibNumber: bib, Ceiling: ceiling,
					})
				}
			}
		}
	}

	if len(updates) == 0 {
		return summary, nil
	}

	if err := s.store.UpdateBibNumbers(ctx, updates); err != nil {
		return nil, fmt.Errorf("update bib numbers: %w", err)
	}

	return summary, nil
}
