package entries

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/trackmeet/engine/internal/catalog"
)

// Service implements the Entry Store's inbound operations (CreateEntry,
// CancelEntry) against a Store and the Catalog's read-only query surface.
type Service struct {
	store   Store
	catalog catalog.ReadStore
	now     func() time.Time
}

// NewService builds an entries.Service. now defaults to time.Now when nil;
// tests may override it for deterministic timestamps.
func NewService(store Store, cat catalog.ReadStore, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}

	return &Service{store: store, catalog: cat, now: now}
}

// CreateEntry validates uniqueness (athlete, event), sex compatibility, the
// qualifying standard, and the event's entry cap, then persists a new
// Pending entry.
func (s *Service) CreateEntry(
	ctx context.Context, athleteID, eventID, userID string, declared float64, personalBest *float64,
) (*Entry, error) {
	athlete, err := s.catalog.FindAthleteByID(ctx, athleteID)
	if err != nil {
		return nil, fmt.Errorf("%w: athlete lookup failed: %w", ErrValidation, err)
	}

	event, err := s.catalog.FindEventByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("%w: event lookup failed: %w", ErrValidation, err)
	}

	if event.Sex != catalog.SexMixed && athlete.Sex != event.Sex {
		return nil, fmt.Errorf("%w: athlete sex %q incompatible with event sex %q", ErrValidation, athlete.Sex, event.Sex)
	}

	if event.QualifyingStandard != nil && declared > *event.QualifyingStandard {
		return nil, fmt.Errorf("%w: declared=%.2f standard=%.2f", ErrStandardExceeded, declared, *event.QualifyingStandard)
	}

	if existing, err := s.store.FindByAthleteAndEvent(ctx, athleteID, eventID); err == nil && existing != nil {
		return nil, ErrDuplicate
	}

	if event.MaxEntries != nil {
		count, err := s.store.CountByEvent(ctx, eventID, StatusPending, StatusPaymentUploaded, StatusConfirmed)
		if err != nil {
			return nil, fmt.Errorf("capacity check failed: %w", err)
		}

		if count >= *event.MaxEntries {
			return nil, ErrCapacity
		}
	}

	now := s.now()
	entry := &Entry{
		ID:        uuid.NewString(),
		AthleteID: athleteID,
		EventID:   eventID,
		UserID:    userID,
		Declared:  declared,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	entry.PersonalBest = personalBest

	if err := s.store.Create(ctx, entry); err != nil {
		return nil, err
	}

	return entry, nil
}

// CancelEntry sets status to Cancelled unless the entry is already
// Confirmed and paid, in which case it has no effect (the caller should use
// the payment-group cancellation path for confirmed-and-paid entries).
func (s *Service) CancelEntry(ctx context.Context, entryID string) error {
	entry, err := s.store.FindByID(ctx, entryID)
	if err != nil {
		return err
	}

	if entry.Status == StatusConfirmed {
		return nil
	}

	return s.store.UpdateStatus(ctx, entryID, StatusCancelled)
}
