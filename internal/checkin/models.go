// Package checkin implements the check-in state machine: per-
// assignment check-in, DNS/DNF/DQ transitions, heat roll-up statistics, and
// race-day reception search.
package checkin

import (
	"errors"

	"github.com/trackmeet/engine/internal/heats"
)

// Status aliases heats.AssignmentStatus so check-in transitions operate on
// the same state space as heat generation and manual moves.
type Status = heats.AssignmentStatus

// Reachable target statuses for MarkStatus.
const (
	StatusAssigned = heats.AssignmentAssigned
	StatusDNS      = heats.AssignmentDNS
	StatusDNF      = heats.AssignmentDNF
	StatusDQ       = heats.AssignmentDQ
)

// triggers maps a reachable target status to the trigger name used by
// transitionAllowed.
var triggers = map[Status]string{
	StatusDNS: "mark_dns",
	StatusDNF: "mark_dnf",
	StatusDQ:  "mark_dq",
}

// transitionTable is the table of legal (from-status, trigger) pairs: only
// Assigned is non-terminal, so every trigger is reachable from it and from
// nowhere else.
var transitionTable = map[Status]map[string]bool{
	StatusAssigned: {"check_in": true, "mark_dns": true, "mark_dnf": true, "mark_dq": true},
}

func transitionAllowed(from Status, trigger string) bool {
	allowed, ok := transitionTable[from]
	if !ok {
		return false
	}

	return allowed[trigger]
}

// Rollup is the race-day roll-up for one heat.
type Rollup struct {
	Total       int
	CheckedIn   int
	DNS         int
	Pending     int
	ProgressPct int
}

// SearchResult is one race-day reception search hit: a flat, precomputed
// projection joining assignment, entry, athlete, and organization.
type SearchResult struct {
	AssignmentID string
	HeatID       string
	HeatNumber   int
	LaneNumber   int
	EventID      string
	FamilyName   string
	GivenName    string
	OrgName      string
	CheckedIn    bool
}

// Sentinel errors returned by check-in operations.
var (
	ErrStateConflict          = errors.New("assignment is not in a state that permits this transition")
	ErrTerminalStateImmutable = errors.New("assignment is in a terminal state and cannot transition")
)
