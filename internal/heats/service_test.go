package heats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/trackmeet/engine/internal/catalog"
	"github.com/trackmeet/engine/internal/entries"
)

type fakeCatalog struct {
	events map[string]*catalog.Event
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

func (f *fakeCatalog) FindEventByID(_ context.Context, id string) (*catalog.Event, error) {
	e, ok := f.events[id]
	if !ok {
		return nil, errors.New("not found")
	}

	return e, nil
}

func (f *fakeCatalog) ListEventsByMeet(_ context.Context, meetID string, _ bool) ([]*catalog.Event, error) {
	return f.byMeet[meetID], nil
}

func (f *fakeCatalog) ListActiveMeets(context.Context) ([]*catalog.Meet, error) {
	return nil, errors.New("not implemented")
}

type fakeEntryStore struct {
	byID         map[string]*entries.Entry
	byAthleteEvt map[string]*entries.Entry
}

func newFakeEntryStore() *fakeEntryStore {
	return &fakeEntryStore{byID: map[string]*entries.Entry{}, byAthleteEvt: map[string]*entries.Entry{}}
}

func (s *fakeEntryStore) add(e *entries.Entry) {
	s.byID[e.ID] = e
	s.byAthleteEvt[e.AthleteID+"|"+e.EventID] = e
}

func (s *fakeEntryStore) Create(context.Context, *entries.Entry) error { return nil }

func (s *fakeEntryStore) FindByID(_ context.Context, id string) (*entries.Entry, error) {
	e, ok := s.byID[id]
	if !ok {
		return nil, errors.New("not found")
	}

	return e, nil
}

func (s *fakeEntryStore) FindByAthleteAndEvent(_ context.Context, athleteID, eventID string) (*entries.Entry, error) {
	e, ok := s.byAthleteEvt[athleteID+"|"+eventID]
	if !ok {
		return nil, errors.New("not found")
	}

	return e, nil
}

func (s *fakeEntryStore) UpdateStatus(_ context.Context, id string, status entries.Status) error {
	e, ok := s.byID[id]
	if !ok {
		return errors.New("not found")
	}

	e.Status = status

	return nil
}

func (s *fakeEntryStore) CountByEvent(context.Context, string, ...entries.Status) (int, error) {
	return 0, nil
}

func (s *fakeEntryStore) ListByEvent(_ context.Context, eventID string, statuses ...entries.Status) ([]*entries.Entry, error) {
	var out []*entries.Entry

	for _, e := range s.byID {
		if e.EventID != eventID {
			continue
		}

		for _, st := range statuses {
			if e.Status == st {
				out = append(out, e)
				break
			}
		}
	}

	return out, nil
}

func (s *fakeEntryStore) ListPendingByUserAndMeet(context.Context, string, string) ([]*entries.Entry, error) {
	return nil, nil
}

func (s *fakeEntryStore) ReassignToFallback(_ context.Context, entryIDs []string, fromEventID, toEventID string) error {
	for _, id := range entryIDs {
		e, ok := s.byID[id]
		if !ok {
			return errors.New("not found")
		}

		delete(s.byAthleteEvt, e.AthleteID+"|"+fromEventID)
		e.EventID = toEventID
		e.MovedFromNCG = true
		orig := fromEventID
		e.OriginalNCGEvent = &orig
		s.byAthleteEvt[e.AthleteID+"|"+toEventID] = e
	}

	return nil
}

type fakeHeatStore struct {
	heats           map[string]*Heat
	assignments     map[string]*Assignment
	finalizedEvents map[string]bool
}

func newFakeHeatStore() *fakeHeatStore {
	return &fakeHeatStore{
		heats:           map[string]*Heat{},
		assignments:     map[string]*Assignment{},
		finalizedEvents: map[string]bool{},
	}
}

func (s *fakeHeatStore) WithEventLock(ctx context.Context, _ string, fn func(context.Context) error) error {
	return fn(ctx)
}

func (s *fakeHeatStore) HasFinalizedHeats(_ context.Context, eventID string) (bool, error) {
	return s.finalizedEvents[eventID], nil
}

func (s *fakeHeatStore) DeleteNonFinalizedHeats(_ context.Context, eventID string) error {
	for id, h := range s.heats {
		if h.EventID == eventID && !h.Finalized {
			delete(s.heats, id)
		}
	}

	for id, a := range s.assignments {
		h, ok := s.heats[a.HeatID]
		if !ok || h.EventID != eventID {
			delete(s.assignments, id)
		}
	}

	return nil
}

func (s *fakeHeatStore) CreateHeatsWithAssignments(_ context.Context, hs []*Heat, as []*Assignment) error {
	for _, h := range hs {
		s.heats[h.ID] = h
	}

	for _, a := range as {
		s.assignments[a.ID] = a
	}

	return nil
}

func (s *fakeHeatStore) ListHeatsByEvent(_ context.Context, eventID string) ([]*Heat, error) {
	var out []*Heat

	for _, h := range s.heats {
		if h.EventID == eventID {
			out = append(out, h)
		}
	}

	return out, nil
}

func (s *fakeHeatStore) ListAssignmentsByHeat(_ context.Context, heatID string) ([]*Assignment, error) {
	var out []*Assignment

	for _, a := range s.assignments {
		if a.HeatID == heatID {
			out = append(out, a)
		}
	}

	return out, nil
}

func (s *fakeHeatStore) FindAssignmentByID(_ context.Context, id string) (*Assignment, error) {
	a, ok := s.assignments[id]
	if !ok {
		return nil, errors.New("not found")
	}

	return a, nil
}

func (s *fakeHeatStore) ApplyMove(_ context.Context, assignmentID, targetHeatID string, lane int, sourceRelanes map[string]int) error {
	a, ok := s.assignments[assignmentID]
	if !ok {
		return errors.New("not found")
	}

	a.HeatID = targetHeatID
	a.LaneNumber = lane

	for id, newLane := range sourceRelanes {
		s.assignments[id].LaneNumber = newLane
	}

	return nil
}

func entry(id, athleteID, eventID string, declared float64, createdAt time.Time) *entries.Entry {
	return &entries.Entry{
		ID: id, AthleteID: athleteID, EventID: eventID, Declared: declared,
		Status: entries.StatusConfirmed, CreatedAt: createdAt,
	}
}

// TestGenerateHeats_SeedOrder seeds with heat_capacity=3 and
// declared seconds [240,245,250,255,260,265,270] -> 3 heats of [3,3,1].
func TestGenerateHeats_SeedOrder(t *testing.T) {
	cat := &fakeCatalog{events: map[string]*catalog.Event{
		"e1": {ID: "e1", HeatCapacity: 3},
	}}

	es := newFakeEntryStore()
	declared := []float64{240, 245, 250, 255, 260, 265, 270}

	for i, d := range declared {
		es.add(entry(string(rune('a'+i)), "ath"+string(rune('a'+i)), "e1", d, time.Unix(int64(i), 0)))
	}

	hs := newFakeHeatStore()
	svc := NewService(hs, es, cat, nil)

	result, err := svc.GenerateHeats(context.Background(), "e1", GenerateOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result) != 3 {
		t.Fatalf("expected 3 heats, got %d", len(result))
	}

	counts := map[int]int{}

	for _, a := range hs.assignments {
		h := hs.heats[a.HeatID]
		counts[h.HeatNumber]++
	}

	if counts[1] != 3 || counts[2] != 3 || counts[3] != 1 {
		t.Fatalf("unexpected heat sizes: %v", counts)
	}
}

func TestGenerateHeats_Empty(t *testing.T) {
	cat := &fakeCatalog{events: map[string]*catalog.Event{"e1": {ID: "e1", HeatCapacity: 3}}}
	svc := NewService(newFakeHeatStore(), newFakeEntryStore(), cat, nil)

	result, err := svc.GenerateHeats(context.Background(), "e1", GenerateOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result) != 0 {
		t.Fatalf("expected no heats, got %d", len(result))
	}
}

func TestGenerateHeats_FinalizedExistsWithoutForce(t *testing.T) {
	cat := &fakeCatalog{events: map[string]*catalog.Event{"e1": {ID: "e1", HeatCapacity: 3}}}
	hs := newFakeHeatStore()
	hs.finalizedEvents["e1"] = true
	svc := NewService(hs, newFakeEntryStore(), cat, nil)

	_, err := svc.GenerateHeats(context.Background(), "e1", GenerateOptions{Regenerate: true})
	if !errors.Is(err, ErrFinalizedExists) {
		t.Fatalf("expected ErrFinalizedExists, got %v", err)
	}
}

// TestCascadeNCG_Overflow: the two slowest of five confirmed entries
// cascade past ncg_capacity=3 into the empty fallback event.
func TestCascadeNCG_Overflow(t *testing.T) {
	fallbackID := "g"
	cat := &fakeCatalog{events: map[string]*catalog.Event{
		"n": {ID: "n", MeetID: "m1", IsNCG: true, NCGCapacity: 3, FallbackEventID: &fallbackID},
		"g": {ID: "g", MeetID: "m1"},
	}}

	es := newFakeEntryStore()
	declared := []float64{850, 860, 870, 880, 890}

	for i, d := range declared {
		es.add(entry(string(rune('a'+i)), "ath"+string(rune('a'+i)), "n", d, time.Unix(int64(i), 0)))
	}

	svc := NewService(newFakeHeatStore(), es, cat, nil)

	result, err := svc.CascadeNCG(context.Background(), "n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Retained != 3 {
		t.Fatalf("expected 3 retained, got %d", result.Retained)
	}

	if len(result.Cascaded) != 2 {
		t.Fatalf("expected 2 cascaded, got %d", len(result.Cascaded))
	}

	for _, id := range result.Cascaded {
		e := es.byID[id]
		if e.EventID != "g" || !e.MovedFromNCG || e.OriginalNCGEvent == nil || *e.OriginalNCGEvent != "n" {
			t.Fatalf("entry %s not properly cascaded: %+v", id, e)
		}
	}
}

func TestCascadeNCG_NoOverflowIsNoop(t *testing.T) {
	fallbackID := "g"
	cat := &fakeCatalog{events: map[string]*catalog.Event{
		"n": {ID: "n", MeetID: "m1", IsNCG: true, NCGCapacity: 3, FallbackEventID: &fallbackID},
		"g": {ID: "g", MeetID: "m1"},
	}}

	es := newFakeEntryStore()
	es.add(entry("a", "atha", "n", 850, time.Unix(0, 0)))

	svc := NewService(newFakeHeatStore(), es, cat, nil)

	result, err := svc.CascadeNCG(context.Background(), "n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Retained != 1 || len(result.Cascaded) != 0 {
		t.Fatalf("expected no-op cascade, got %+v", result)
	}
}

func TestCascadeNCG_NoFallback(t *testing.T) {
	cat := &fakeCatalog{events: map[string]*catalog.Event{
		"n": {ID: "n", MeetID: "m1", IsNCG: true, NCGCapacity: 3},
	}}

	svc := NewService(newFakeHeatStore(), newFakeEntryStore(), cat, nil)

	_, err := svc.CascadeNCG(context.Background(), "n")
	if !errors.Is(err, ErrNoFallback) {
		t.Fatalf("expected ErrNoFallback, got %v", err)
	}
}

// TestCascadeNCG_SkipsFallbackCollision: an overflow entry whose athlete
// already holds a fallback entry stays in place and is reported skipped.
func TestCascadeNCG_SkipsFallbackCollision(t *testing.T) {
	fallbackID := "g"
	cat := &fakeCatalog{events: map[string]*catalog.Event{
		"n": {ID: "n", MeetID: "m1", IsNCG: true, NCGCapacity: 3, FallbackEventID: &fallbackID},
		"g": {ID: "g", MeetID: "m1"},
	}}

	es := newFakeEntryStore()
	declared := []float64{850, 860, 870, 880, 890}

	for i, d := range declared {
		es.add(entry(string(rune('a'+i)), "ath"+string(rune('a'+i)), "n", d, time.Unix(int64(i), 0)))
	}
	// athlete "athe" (entry "e", declared 890) already holds a separate entry in the fallback event.
	es.add(entry("g-collision", "athe", "g", 700, time.Unix(10, 0)))

	svc := NewService(newFakeHeatStore(), es, cat, nil)

	result, err := svc.CascadeNCG(context.Background(), "n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Skipped) != 1 || result.Skipped[0] != "e" {
		t.Fatalf("expected entry e skipped, got %+v", result.Skipped)
	}

	if len(result.Cascaded) != 1 || result.Cascaded[0] != "d" {
		t.Fatalf("expected only entry d cascaded, got %+v", result.Cascaded)
	}

	if es.byID["e"].EventID != "n" {
		t.Fatalf("expected skipped entry to remain in n, got %s", es.byID["e"].EventID)
	}
}

func TestMoveAssignment_AppendsWhenLaneAbsent(t *testing.T) {
	hs := newFakeHeatStore()
	hs.heats["h1"] = &Heat{ID: "h1", EventID: "e1", HeatNumber: 1}
	hs.heats["h2"] = &Heat{ID: "h2", EventID: "e1", HeatNumber: 2}
	hs.assignments["a1"] = &Assignment{ID: "a1", HeatID: "h1", LaneNumber: 1}
	hs.assignments["a2"] = &Assignment{ID: "a2", HeatID: "h2", LaneNumber: 1}

	svc := NewService(hs, newFakeEntryStore(), &fakeCatalog{}, nil)

	if err := svc.MoveAssignment(context.Background(), "a1", "h2", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if hs.assignments["a1"].LaneNumber != 2 {
		t.Fatalf("expected appended lane 2, got %d", hs.assignments["a1"].LaneNumber)
	}
}

func TestMoveAssignment_LaneConflict(t *testing.T) {
	hs := newFakeHeatStore()
	hs.heats["h1"] = &Heat{ID: "h1", EventID: "e1", HeatNumber: 1}
	hs.heats["h2"] = &Heat{ID: "h2", EventID: "e1", HeatNumber: 2}
	hs.assignments["a1"] = &Assignment{ID: "a1", HeatID: "h1", LaneNumber: 1}
	hs.assignments["a2"] = &Assignment{ID: "a2", HeatID: "h2", LaneNumber: 1}

	svc := NewService(hs, newFakeEntryStore(), &fakeCatalog{}, nil)

	lane := 1
	if err := svc.MoveAssignment(context.Background(), "a1", "h2", &lane); !errors.Is(err, ErrLaneConflict) {
		t.Fatalf("expected ErrLaneConflict, got %v", err)
	}
}

func TestMoveAssignment_CompactsSourceLanes(t *testing.T) {
	hs := newFakeHeatStore()
	hs.heats["h1"] = &Heat{ID: "h1", EventID: "e1", HeatNumber: 1}
	hs.heats["h2"] = &Heat{ID: "h2", EventID: "e1", HeatNumber: 2}
	hs.assignments["a1"] = &Assignment{ID: "a1", HeatID: "h1", LaneNumber: 1}
	hs.assignments["a2"] = &Assignment{ID: "a2", HeatID: "h1", LaneNumber: 2}
	hs.assignments["a3"] = &Assignment{ID: "a3", HeatID: "h1", LaneNumber: 3}

	svc := NewService(hs, newFakeEntryStore(), &fakeCatalog{}, nil)

	if err := svc.MoveAssignment(context.Background(), "a2", "h2", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if hs.assignments["a1"].LaneNumber != 1 || hs.assignments["a3"].LaneNumber != 2 {
		t.Fatalf("expected source lanes compacted to 1,2; got a1=%d a3=%d",
			hs.assignments["a1"].LaneNumber, hs.assignments["a3"].LaneNumber)
	}
}

// TestGenerateMeet_OrchestrationOrder verifies that the NCG cascade for
// event n completes before heats are generated for fallback event g, so g
// sees the cascaded entries.
func TestGenerateMeet_OrchestrationOrder(t *testing.T) {
	fallbackID := "g"
	cat := &fakeCatalog{
		events: map[string]*catalog.Event{
			"n": {ID: "n", MeetID: "m1", IsNCG: true, NCGCapacity: 1, HeatCapacity: 10, FallbackEventID: &fallbackID},
			"g": {ID: "g", MeetID: "m1", HeatCapacity: 10},
		},
		byMeet: map[string][]*catalog.Event{
			"m1": {
				{ID: "n", MeetID: "m1", IsNCG: true, NCGCapacity: 1, HeatCapacity: 10, FallbackEventID: &fallbackID},
				{ID: "g", MeetID: "m1", HeatCapacity: 10},
			},
		},
	}

	es := newFakeEntryStore()
	es.add(entry("a", "atha", "n", 100, time.Unix(0, 0)))
	es.add(entry("b", "athb", "n", 200, time.Unix(1, 0)))

	hs := newFakeHeatStore()
	svc := NewService(hs, es, cat, nil)

	summary, err := svc.GenerateMeet(context.Background(), "m1", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(summary.Errors) != 0 {
		t.Fatalf("unexpected errors: %+v", summary.Errors)
	}

	if len(summary.Cascaded) != 1 || len(summary.Cascaded[0].Cascaded) != 1 {
		t.Fatalf("expected one entry cascaded, got %+v", summary.Cascaded)
	}

	var gHeatCount int

	for _, h := range hs.heats {
		if h.EventID == "g" {
			gHeatCount++
		}
	}

	if gHeatCount != 1 {
		t.Fatalf("expected fallback event g to have heats generated after cascade, got %d heats", gHeatCount)
	}
}
