package catalog

import "context"

// WriteStore is the organizer-facing mutation surface. Implementations must
// enforce (meet, event display name) and organization.name uniqueness inside
// the Create methods.
type WriteStore interface {
	CreateOrganization(ctx context.Context, org *Organization) error
	UpdateOrganization(ctx context.Context, org *Organization) error
	CreateAthlete(ctx context.Context, athlete *Athlete) error
	UpdateAthlete(ctx context.Context, athlete *Athlete) error
	CreateMeet(ctx context.Context, meet *Meet) error
	UpdateMeet(ctx context.Context, meet *Meet) error
	CreateEvent(ctx context.Context, event *Event) error
	UpdateEvent(ctx context.Context, event *Event) error
}

// ReadStore is the read-only query surface consumed by every other
// component (entries, heats, bibs, check-in, reports). Segregated from
// WriteStore so downstream packages depend only on what they need.
type ReadStore interface {
	FindOrganizationByName(ctx context.Context, name string) (*Organization, error)
	FindOrganizationByID(ctx context.Context, id string) (*Organization, error)
	FindAthleteByID(ctx context.Context, id string) (*Athlete, error)
	FindAthleteByFederationID(ctx context.Context, federationID string) (*Athlete, error)
	FindMeetByID(ctx context.Context, id string) (*Meet, error)
	FindEventByID(ctx context.Context, id string) (*Event, error)
	ListEventsByMeet(ctx context.Context, meetID string, activeOnly bool) ([]*Event, error)
	ListActiveMeets(ctx context.Context) ([]*Meet, error)
}

// Store is the full Catalog surface; the Postgres implementation in
// internal/storage implements both halves with one concrete type.
type Store interface {
	WriteStore
	ReadStore
}
