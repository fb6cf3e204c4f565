// Package heats implements the heat generator: seeding confirmed (and
// optionally pending) entries into capacity-bounded heats ordered by
// declared time, the NCG overflow cascade to a fallback event, manual lane
// moves, and meet-wide orchestration across both.
package heats

import (
	"errors"
	"time"
)

// AssignmentStatus is the race-day state of an Assignment.
type AssignmentStatus string

const (
	AssignmentAssigned AssignmentStatus = "assigned"
	AssignmentDNS      AssignmentStatus = "dns"
	AssignmentDNF      AssignmentStatus = "dnf"
	AssignmentDQ       AssignmentStatus = "dq"
)

// Heat is an indivisible running group sharing a start time, numbered
// 1-based per event.
type Heat struct {
	ID             string
	EventID        string
	HeatNumber     int
	ScheduledStart *time.Time
	Finalized      bool
}

// Assignment is the (heat, entry, lane) triple with race-day state.
type Assignment struct {
	ID          string
	HeatID      string
	EntryID     string
	LaneNumber  int
	BibNumber   *int
	Status      AssignmentStatus
	CheckedIn   bool
	CheckedInAt *time.Time
}

// GenerateOptions controls GenerateHeats.
type GenerateOptions struct {
	Regenerate     bool
	IncludePending bool
	HeatCount      *int
	// Force overrides FinalizedExists when Regenerate is set and the event
	// already has finalized heats.
	Force bool
}

// CascadeResult reports one NCG event's cascade outcome.
type CascadeResult struct {
	EventID  string
	Retained int
	Cascaded []string // entry IDs moved to the fallback event
	Skipped  []string // entry IDs left in place due to a fallback collision
}

// EventError pairs a per-event failure with the event it occurred on, for
// the batch summary produced by GenerateMeet.
type EventError struct {
	EventID string
	Err     error
}

// MeetGenerateSummary is the structured outcome of GenerateMeet: every
// per-event step runs in its own transaction, so one event's failure is
// recorded and the orchestration continues.
type MeetGenerateSummary struct {
	Cascaded  []CascadeResult
	Generated []string
	Errors    []EventError
}

// Sentinel errors returned by heat generation.
var (
	ErrValidation      = errors.New("heat generation validation error")
	ErrNoFallback      = errors.New("NCG event has no valid fallback event")
	ErrFinalizedExists = errors.New("finalized heats exist; regenerate requires force")
	ErrLaneConflict    = errors.New("target lane is already occupied")
)
