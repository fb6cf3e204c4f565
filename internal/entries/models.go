// Package entries implements the entry store: per-(athlete, race)
// entries with declared/personal times and lifecycle status.
package entries

import (
	"errors"
	"time"
)

// Status is the Entry lifecycle state.
type Status string

const (
	StatusPending         Status = "pending"
	StatusPaymentUploaded Status = "payment_uploaded"
	StatusConfirmed       Status = "confirmed"
	StatusCancelled       Status = "cancelled"
	StatusDNS             Status = "dns"
)

// Entry is a single athlete's registration in a single event.
type Entry struct {
	ID                string
	AthleteID         string
	EventID           string
	UserID            string
	Declared          float64 // seconds, 2-decimal canonical
	PersonalBest      *float64
	Status            Status
	MovedFromNCG      bool
	OriginalNCGEvent  *string
	Note              string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Sentinel errors returned by entry operations.
var (
	ErrValidation       = errors.New("entry validation error")
	ErrDuplicate        = errors.New("entry already exists for this athlete and event")
	ErrCapacity         = errors.New("event entry capacity reached")
	ErrStandardExceeded = errors.New("declared time exceeds qualifying standard")
	ErrStateConflict    = errors.New("entry is not in a state that permits this operation")
)
