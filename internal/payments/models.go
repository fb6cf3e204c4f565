// Package payments implements the Entry Group & payment subsystem:
// bundling a user's pending entries into a priced group, ingesting a
// receipt, and cascading approval or rejection across the group and its
// member entries atomically.
package payments

import (
	"errors"
	"time"
)

// GroupStatus is the Entry Group lifecycle state.
type GroupStatus string

const (
	GroupPending         GroupStatus = "pending"
	GroupPaymentUploaded GroupStatus = "payment_uploaded"
	GroupConfirmed       GroupStatus = "confirmed"
	GroupCancelled       GroupStatus = "cancelled"
)

// PaymentStatus is the Payment review state.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentApproved PaymentStatus = "approved"
	PaymentRejected PaymentStatus = "rejected"
)

// EntryGroup bundles a user's entries in one meet into a single priced unit.
type EntryGroup struct {
	ID             string
	OrganizationID *string
	MeetID         string
	UserID         string
	EntryIDs       []string
	TotalAmount    int64 // minor currency unit (yen), snapshot at build time
	Status         GroupStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Payment is one-to-one with an EntryGroup and carries the receipt and its
// review outcome.
type Payment struct {
	ID            string
	GroupID       string
	ReceiptRef    string
	PaymentDate   time.Time
	PaymentAmount int64
	PayerName     string
	Status        PaymentStatus
	ReviewerID    *string
	ReviewedAt    *time.Time
	ReviewNote    string
}

// ForcedNotePrefix marks a review note written via ForceApprovePayment.
const ForcedNotePrefix = "[force] "

var (
	ErrValidation       = errors.New("payment validation error")
	ErrNoPendingEntries = errors.New("no pending entries to group")
	ErrStateConflict    = errors.New("group or payment is not in the required state")
	ErrForbidden        = errors.New("operator key lacks required permission")
)
