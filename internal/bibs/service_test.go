package bibs

import (
	"context"
	"errors"
	"testing"

	"github.com/trackmeet/engine/internal/catalog"
	"github.com/trackmeet/engine/internal/heats"
)

type fakeCatalog struct {
	byMeet map[string][]*catalog.Event
}

func (f *fakeCatalog) FindOrganizationByName(context.Context, string) (*catalog.Organization, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeCatalog) FindOrganizationByID(context.Context, string) (*catalog.Organization, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeCatalog) FindAthleteByID(context.Context, string) (*catalog.Athlete, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeCatalog) FindAthleteByFederationID(context.Context, string) (*catalog.Athlete, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeCatalog) FindMeetByID(context.Context, string) (*catalog.Meet, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeCatalog) FindEventByID(context.Context, string) (*catalog.Event, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeCatalog) ListEventsByMeet(_ context.Context, meetID string, _ bool) ([]*catalog.Event, error) {
	return f.byMeet[meetID], nil
}

func (f *fakeCatalog) ListActiveMeets(context.Context) ([]*catalog.Meet, error) {
	return nil, errors.New("not implemented")
}

type fakeHeatStore struct {
	heats       map[string][]*heats.Heat
	assignments map[string][]*heats.Assignment
}

func (f *fakeHeatStore) WithEventLock(ctx context.Context, _ string, fn func(context.Context) error) error {
	return fn(ctx)
}

func (f *fakeHeatStore) HasFinalizedHeats(context.Context, string) (bool, error) { return false, nil }
func (f *fakeHeatStore) DeleteNonFinalizedHeats(context.Context, string) error   { return nil }

func (f *fakeHeatStore) CreateHeatsWithAssignments(context.Context, []*heats.Heat, []*heats.Assignment) error {
	return nil
}

func (f *fakeHeatStore) ListHeatsByEvent(_ context.Context, eventID string) ([]*heats.Heat, error) {
	return f.heats[eventID], nil
}

func (f *fakeHeatStore) ListAssignmentsByHeat(_ context.Context, heatID string) ([]*heats.Assignment, error) {
	return f.assignments[heatID], nil
}

func (f *fakeHeatStore) FindAssignmentByID(context.Context, string) (*heats.Assignment, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeHeatStore) ApplyMove(context.Context, string, string, int, map[string]int) error {
	return nil
}

type fakeBibStore struct {
	updates []BibUpdate
}

func (f *fakeBibStore) UpdateBibNumbers(_ context.Context, updates []BibUpdate) error {
	f.updates = updates
	return nil
}

// TestAssignBibs_Partitions: an NCG-M event with 2 assignments and a
// general-M event with 3 assignments get bibs {1,2} and {1000,1001,1002}.
func TestAssignBibs_Partitions(t *testing.T) {
	cat := &fakeCatalog{byMeet: map[string][]*catalog.Event{
		"m1": {
			{ID: "ncg-m", MeetID: "m1", Sex: catalog.SexMale, IsNCG: true, DisplayOrder: 1},
			{ID: "gen-m", MeetID: "m1", Sex: catalog.SexMale, IsNCG: false, DisplayOrder: 2},
		},
	}}

	hs := &fakeHeatStore{
		heats: map[string][]*heats.Heat{
			"ncg-m": {{ID: "h1", EventID: "ncg-m", HeatNumber: 1}},
			"gen-m": {{ID: "h2", EventID: "gen-m", HeatNumber: 1}},
		},
		assignments: map[string][]*heats.Assignment{
			"h1": {
				{ID: "a1", HeatID: "h1", LaneNumber: 1},
				{ID: "a2", HeatID: "h1", LaneNumber: 2},
			},
			"h2": {
				{ID: "a3", HeatID: "h2", LaneNumber: 1},
				{ID: "a4", HeatID: "h2", LaneNumber: 2},
				{ID: "a5", HeatID: "h2", LaneNumber: 3},
			},
		},
	}

	store := &fakeBibStore{}
	svc := NewService(cat, hs, store)

	summary, err := svc.AssignBibs(context.Background(), "m1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Assigned != 5 {
		t.Fatalf("expected 5 assigned, got %d", summary.Assigned)
	}

	got := map[string]int{}
	for _, u := range store.updates {
		got[u.AssignmentID] = u.BibNumber
	}

	want := map[string]int{"a1": 1, "a2": 2, "a3": 1000, "a4": 1001, "a5": 1002}
	for id, bib := range want {
		if got[id] != bib {
			t.Fatalf("assignment %s: expected bib %d, got %d", id, bib, got[id])
		}
	}
}

func TestAssignBibs_SoftCeilingWarning(t *testing.T) {
	cat := &fakeCatalog{byMeet: map[string][]*catalog.Event{
		"m1": {{ID: "ncg-m", MeetID: "m1", Sex: catalog.SexMale, IsNCG: true}},
	}}

	var assignments []*heats.Assignment
	for i := 0; i < 500; i++ {
		assignments = append(assignments, &heats.Assignment{ID: string(rune('a' + i%26)) + string(rune(i)), HeatID: "h1", LaneNumber: i + 1})
	}

	hs := &fakeHeatStore{
		heats:       map[string][]*heats.Heat{"ncg-m": {{ID: "h1", EventID: "ncg-m", HeatNumber: 1}}},
		assignments: map[string][]*heats.Assignment{"h1": assignments},
	}

	svc := NewService(cat, hs, &fakeBibStore{})

	summary, err := svc.AssignBibs(context.Background(), "m1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(summary.Warnings) == 0 {
		t.Fatalf("expected at least one soft-ceiling warning")
	}
}
