package entries

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/trackmeet/engine/internal/catalog"
)

type fakeCatalog struct {
	athletes map[string]*catalog.Athlete
	events   map[string]*catalog.Event
}

func (f *fakeCatalog) FindOrganizationByName(context.Context, string) (*catalog.Organization, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeCatalog) FindOrganizationByID(context.Context, string) (*catalog.Organization, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeCatalog) FindAthleteByID(_ context.Context, id string) (*catalog.Athlete, error) {
	a, ok := f.athletes[id]
	if !ok {
		return nil, errors.New("not found")
	}

	return a, nil
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

func (f *fakeCatalog) ListEventsByMeet(context.Context, string, bool) ([]*catalog.Event, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeCatalog) ListActiveMeets(context.Context) ([]*catalog.Meet, error) {
	return nil, errors.New("not implemented")
}

type fakeStore struct {
	byID          map[string]*Entry
	byAthleteEvnt map[string]*Entry
}

func newFakeStore() *fakeStore {
	return &fakeStore{byID: map[string]*Entry{}, byAthleteEvnt: map[string]*Entry{}}
}

func (s *fakeStore) Create(_ context.Context, e *Entry) error {
	s.byID[e.ID] = e
	s.byAthleteEvnt[e.AthleteID+"|"+e.EventID] = e

	return nil
}

func (s *fakeStore) FindByID(_ context.Context, id string) (*Entry, error) {
	e, ok := s.byID[id]
	if !ok {
		return nil, errors.New("not found")
	}

	return e, nil
}

func (s *fakeStore) FindByAthleteAndEvent(_ context.Context, athleteID, eventID string) (*Entry, error) {
	e, ok := s.byAthleteEvnt[athleteID+"|"+eventID]
	if !ok {
		return nil, errors.New("not found")
	}

	return e, nil
}

func (s *fakeStore) UpdateStatus(_ context.Context, id string, status Status) error {
	e, ok := s.byID[id]
	if !ok {
		return errors.New("not found")
	}

	e.Status = status

	return nil
}

func (s *fakeStore) CountByEvent(_ context.Context, eventID string, statuses ...Status) (int, error) {
	count := 0

	for _, e := range s.byID {
		if e.EventID != eventID {
			continue
		}

		for _, st := range statuses {
			if e.Status == st {
				count++

				break
			}
		}
	}

	return count, nil
}

func (s *fakeStore) ListByEvent(_ context.Context, eventID string, statuses ...Status) ([]*Entry, error) {
	var out []*Entry

	for _, e := range s.byID {
		if e.EventID == eventID {
			out = append(out, e)
		}
	}

	return out, nil
}

func (s *fakeStore) ListPendingByUserAndMeet(context.Context, string, string) ([]*Entry, error) {
	return nil, nil
}

func (s *fakeStore) ReassignToFallback(_ context.Context, entryIDs []string, fromEventID, toEventID string) error {
	for _, id := range entryIDs {
		e, ok := s.byID[id]
		if !ok {
			return errors.New("not found")
		}

		delete(s.byAthleteEvnt, e.AthleteID+"|"+fromEventID)
		e.EventID = toEventID
		e.MovedFromNCG = true
		orig := fromEventID
		e.OriginalNCGEvent = &orig
		s.byAthleteEvnt[e.AthleteID+"|"+toEventID] = e
	}

	return nil
}

func standard(v float64) *float64 { return &v }

func TestCreateEntry_Success(t *testing.T) {
	cat := &fakeCatalog{
		athletes: map[string]*catalog.Athlete{"a1": {ID: "a1", Sex: catalog.SexMale}},
		events:   map[string]*catalog.Event{"e1": {ID: "e1", Sex: catalog.SexMale}},
	}
	svc := NewService(newFakeStore(), cat, func() time.Time { return time.Unix(0, 0) })

	entry, err := svc.CreateEntry(context.Background(), "a1", "e1", "u1", 245.5, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if entry.Status != StatusPending {
		t.Fatalf("expected pending status, got %v", entry.Status)
	}
}

func TestCreateEntry_SexMismatch(t *testing.T) {
	cat := &fakeCatalog{
		athletes: map[string]*catalog.Athlete{"a1": {ID: "a1", Sex: catalog.SexFemale}},
		events:   map[string]*catalog.Event{"e1": {ID: "e1", Sex: catalog.SexMale}},
	}
	svc := NewService(newFakeStore(), cat, nil)

	if _, err := svc.CreateEntry(context.Background(), "a1", "e1", "u1", 245.5, nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestCreateEntry_StandardExceeded(t *testing.T) {
	cat := &fakeCatalog{
		athletes: map[string]*catalog.Athlete{"a1": {ID: "a1", Sex: catalog.SexMale}},
		events:   map[string]*catalog.Event{"e1": {ID: "e1", Sex: catalog.SexMale, QualifyingStandard: standard(900)}},
	}
	svc := NewService(newFakeStore(), cat, nil)

	_, err := svc.CreateEntry(context.Background(), "a1", "e1", "u1", 905, nil)
	if !errors.Is(err, ErrStandardExceeded) {
		t.Fatalf("expected ErrStandardExceeded, got %v", err)
	}
}

func TestCreateEntry_Duplicate(t *testing.T) {
	cat := &fakeCatalog{
		athletes: map[string]*catalog.Athlete{"a1": {ID: "a1", Sex: catalog.SexMale}},
		events:   map[string]*catalog.Event{"e1": {ID: "e1", Sex: catalog.SexMale}},
	}
	store := newFakeStore()
	svc := NewService(store, cat, nil)

	if _, err := svc.CreateEntry(context.Background(), "a1", "e1", "u1", 200, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.CreateEntry(context.Background(), "a1", "e1", "u1", 201, nil); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestCreateEntry_Capacity(t *testing.T) {
	maxEntries := 1
	cat := &fakeCatalog{
		athletes: map[string]*catalog.Athlete{
			"a1": {ID: "a1", Sex: catalog.SexMale},
			"a2": {ID: "a2", Sex: catalog.SexMale},
		},
		events: map[string]*catalog.Event{"e1": {ID: "e1", Sex: catalog.SexMale, MaxEntries: &maxEntries}},
	}
	store := newFakeStore()
	svc := NewService(store, cat, nil)

	if _, err := svc.CreateEntry(context.Background(), "a1", "e1", "u1", 200, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.CreateEntry(context.Background(), "a2", "e1", "u1", 201, nil); !errors.Is(err, ErrCapacity) {
		t.Fatalf("expected ErrCapacity, got %v", err)
	}
}

func TestCancelEntry_NoEffectWhenConfirmed(t *testing.T) {
	store := newFakeStore()
	entry := &Entry{ID: "x", Status: StatusConfirmed}
	store.byID["x"] = entry

	svc := NewService(store, &fakeCatalog{}, nil)
	if err := svc.CancelEntry(context.Background(), "x"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if entry.Status != StatusConfirmed {
		t.Fatalf("expected status to remain confirmed, got %v", entry.Status)
	}
}

func TestCancelEntry_PendingBecomesCancelled(t *testing.T) {
	store := newFakeStore()
	entry := &Entry{ID: "x", Status: StatusPending}
	store.byID["x"] = entry

	svc := NewService(store, &fakeCatalog{}, nil)
	if err := svc.CancelEntry(context.Background(), "x"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if entry.Status != StatusCancelled {
		t.Fatalf("expected cancelled, got %v", entry.Status)
	}
}
