package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/trackmeet/engine/internal/catalog"
	"github.com/trackmeet/engine/internal/entries"
)

// Service implements BuildEntryGroup, UploadReceipt, ApprovePayment,
// RejectPayment, and ForceApprovePayment.
type Service struct {
	store   Store
	entries entries.Store
	catalog catalog.ReadStore
	now     func() time.Time
}

// NewService builds a payments.Service. now defaults to time.Now when nil.
func NewService(store Store, entryStore entries.Store, cat catalog.ReadStore, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}

	return &Service{store: store, entries: entryStore, catalog: cat, now: now}
}

// BuildEntryGroup collects every pending entry the user holds in the given
// meet and snapshots total_amount = count × meet.entry_fee.
func (s *Service) BuildEntryGroup(ctx context.Context, userID, meetID string) (*EntryGroup, error) {
	meet, err := s.catalog.FindMeetByID(ctx, meetID)
	if err != nil {
		return nil, fmt.Errorf("%w: meet lookup failed: %w", ErrValidation, err)
	}

	pending, err := s.entries.ListPendingByUserAndMeet(ctx, userID, meetID)
	if err != nil {
		return nil, fmt.Errorf("list pending entries: %w", err)
	}

	if len(pending) == 0 {
		return nil, ErrNoPendingEntries
	}

	ids := make([]string, len(pending))
	for i, e := range pending {
		ids[i] = e.ID
	}

	now := s.now()
	group := &EntryGroup{
		ID:          uuid.NewString(),
		MeetID:      meetID,
		UserID:      userID,
		EntryIDs:    ids,
		TotalAmount: int64(len(pending)) * meet.EntryFee,
		Status:      GroupPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.CreateGroup(ctx, group); err != nil {
		return nil, err
	}

	return group, nil
}

// UploadReceipt records a receipt against a Pending group, transitioning it
// to PaymentUploaded.
func (s *Service) UploadReceipt(
	ctx context.Context, groupID, receiptRef string, paymentDate time.Time, amount int64, payerName string,
) (*Payment, error) {
	group, err := s.store.FindGroupByID(ctx, groupID)
	if err != nil {
		return nil, err
	}

	if group.Status != GroupPending {
		return nil, fmt.Errorf("%w: group status is %q, expected pending", ErrStateConflict, group.Status)
	}

	payment := &Payment{
		ID:            uuid.NewString(),
		GroupID:       groupID,
		ReceiptRef:    receiptRef,
		PaymentDate:   paymentDate,
		PaymentAmount: amount,
		PayerName:     payerName,
		Status:        PaymentPending,
	}

	if err := s.store.RecordReceipt(ctx, groupID, payment); err != nil {
		return nil, err
	}

	return payment, nil
}

// ApprovePayment approves a payment awaiting review, cascading the group and
// every member entry to Confirmed in one transaction.
func (s *Service) ApprovePayment(ctx context.Context, groupID, reviewerID, note string) error {
	group, payment, err := s.requireReviewable(ctx, groupID)
	if err != nil {
		return err
	}

	if payment.Status != PaymentPending || group.Status != GroupPaymentUploaded {
		return fmt.Errorf("%w: payment is not awaiting review", ErrStateConflict)
	}

	return s.store.ApproveCascade(ctx, groupID, reviewerID, note)
}

// RejectPayment rejects a payment awaiting review, reverting the group and
// every member entry to Pending.
func (s *Service) RejectPayment(ctx context.Context, groupID, reviewerID, note string) error {
	group, payment, err := s.requireReviewable(ctx, groupID)
	if err != nil {
		return err
	}

	if payment.Status != PaymentPending || group.Status != GroupPaymentUploaded {
		return fmt.Errorf("%w: payment is not awaiting review", ErrStateConflict)
	}

	return s.store.RejectCascade(ctx, groupID, reviewerID, note)
}

// ForceApprovePayment bypasses the receipt requirement and approves a group
// directly. The caller must already have resolved hasForceApprove against
// the operator key's permission set; note is mandatory and is
// recorded with the ForcedNotePrefix.
func (s *Service) ForceApprovePayment(ctx context.Context, groupID, reviewerID string, hasForceApprove bool, note string) error {
	if !hasForceApprove {
		return ErrForbidden
	}

	if note == "" {
		return fmt.Errorf("%w: force-approve requires a note", ErrValidation)
	}

	group, err := s.store.FindGroupByID(ctx, groupID)
	if err != nil {
		return err
	}

	if group.Status != GroupPending && group.Status != GroupPaymentUploaded {
		return fmt.Errorf("%w: group status is %q, cannot force-approve", ErrStateConflict, group.Status)
	}

	return s.store.ApproveCascade(ctx, groupID, reviewerID, ForcedNotePrefix+note)
}

func (s *Service) requireReviewable(ctx context.Context, groupID string) (*EntryGroup, *Payment, error) {
	group, err := s.store.FindGroupByID(ctx, groupID)
	if err != nil {
		return nil, nil, err
	}

	payment, err := s.store.FindPaymentByGroupID(ctx, groupID)
	if err != nil {
		return nil, nil, err
	}

	return group, payment, nil
}
