package checkin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/trackmeet/engine/internal/heats"
)

type fakeStore struct {
	assignments map[string]*heats.Assignment
}

func newFakeStore() *fakeStore {
	return &fakeStore{assignments: map[string]*heats.Assignment{}}
}

func (f *fakeStore) FindAssignment(_ context.Context, id string) (*heats.Assignment, error) {
	a, ok := f.assignments[id]
	if !ok {
		return nil, errors.New("not found")
	}

	return a, nil
}

func (f *fakeStore) CheckIn(_ context.Context, id string, at time.Time) error {
	a, ok := f.assignments[id]
	if !ok {
		return errors.New("not found")
	}

	a.CheckedIn = true
	a.CheckedInAt = &at

	return nil
}

func (f *fakeStore) MarkStatus(_ context.Context, id string, status Status, _ bool) error {
	a, ok := f.assignments[id]
	if !ok {
		return errors.New("not found")
	}

	a.Status = status
	a.CheckedIn = false

	return nil
}

func (f *fakeStore) ListByHeat(_ context.Context, heatID string) ([]*heats.Assignment, error) {
	var out []*heats.Assignment

	for _, a := range f.assignments {
		if a.HeatID == heatID {
			out = append(out, a)
		}
	}

	return out, nil
}

func (f *fakeStore) Search(context.Context, string, string) ([]*SearchResult, error) {
	return nil, nil
}

// TestCheckIn_Idempotent verifies that the second call at a
// later time leaves the first call's timestamp untouched and reports noop.
func TestCheckIn_Idempotent(t *testing.T) {
	store := newFakeStore()
	store.assignments["a1"] = &heats.Assignment{ID: "a1", Status: StatusAssigned}

	t1 := time.Unix(100, 0)
	t2 := time.Unix(200, 0)

	clock := t1
	svc := NewService(store, func() time.Time { return clock })

	at1, noop1, err := svc.CheckIn(context.Background(), "a1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if noop1 {
		t.Fatalf("expected first check-in to not be a no-op")
	}

	if !at1.Equal(t1) {
		t.Fatalf("expected checked-in time %v, got %v", t1, at1)
	}

	clock = t2

	at2, noop2, err := svc.CheckIn(context.Background(), "a1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !noop2 {
		t.Fatalf("expected second check-in to be a no-op")
	}

	if !at2.Equal(t1) {
		t.Fatalf("expected timestamp to remain %v, got %v", t1, at2)
	}
}

func TestCheckIn_TerminalStateImmutable(t *testing.T) {
	store := newFakeStore()
	store.assignments["a1"] = &heats.Assignment{ID: "a1", Status: StatusDNF}

	svc := NewService(store, nil)

	if _, _, err := svc.CheckIn(context.Background(), "a1"); !errors.Is(err, ErrTerminalStateImmutable) {
		t.Fatalf("expected ErrTerminalStateImmutable, got %v", err)
	}
}

func TestMarkStatus_DNSCascadesUnsetsCheckedIn(t *testing.T) {
	store := newFakeStore()
	at := time.Unix(1, 0)
	store.assignments["a1"] = &heats.Assignment{ID: "a1", Status: StatusAssigned, CheckedIn: true, CheckedInAt: &at}

	svc := NewService(store, nil)

	if err := svc.MarkStatus(context.Background(), "a1", StatusDNS); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if store.assignments["a1"].Status != StatusDNS {
		t.Fatalf("expected status DNS, got %v", store.assignments["a1"].Status)
	}

	if store.assignments["a1"].CheckedIn {
		t.Fatalf("expected checked_in unset after DNS")
	}
}

func TestMarkStatus_FromTerminalFails(t *testing.T) {
	store := newFakeStore()
	store.assignments["a1"] = &heats.Assignment{ID: "a1", Status: StatusDQ}

	svc := NewService(store, nil)

	if err := svc.MarkStatus(context.Background(), "a1", StatusDNF); !errors.Is(err, ErrTerminalStateImmutable) {
		t.Fatalf("expected ErrTerminalStateImmutable, got %v", err)
	}
}

func TestHeatRollup(t *testing.T) {
	store := newFakeStore()
	store.assignments["a1"] = &heats.Assignment{ID: "a1", HeatID: "h1", Status: StatusAssigned, CheckedIn: true}
	store.assignments["a2"] = &heats.Assignment{ID: "a2", HeatID: "h1", Status: StatusAssigned, CheckedIn: true}
	store.assignments["a3"] = &heats.Assignment{ID: "a3", HeatID: "h1", Status: StatusDNS}
	store.assignments["a4"] = &heats.Assignment{ID: "a4", HeatID: "h1", Status: StatusAssigned}

	svc := NewService(store, nil)

	r, err := svc.HeatRollup(context.Background(), "h1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if r.Total != 4 || r.CheckedIn != 2 || r.DNS != 1 || r.Pending != 1 {
		t.Fatalf("unexpected rollup: %+v", r)
	}

	if r.ProgressPct != 50 {
		t.Fatalf("expected progress 50, got %d", r.ProgressPct)
	}
}

func TestHeatRollup_ZeroTotal(t *testing.T) {
	svc := NewService(newFakeStore(), nil)

	r, err := svc.HeatRollup(context.Background(), "empty")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if r.ProgressPct != 0 {
		t.Fatalf("expected progress 0 for empty heat, got %d", r.ProgressPct)
	}
}
