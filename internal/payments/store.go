package payments

import "context"

// Store is the persistence surface for entry groups and payments.
//
// ApproveCascade and RejectCascade each run as a single transaction that
// updates the payment, the group, and every member entry, and inserts an
// outbox event recording the confirmation or the rejection for later
// notification delivery. The outbox insert lives in the same
// transaction as the cascade so it can never be lost on commit, and its
// eventual delivery by the background publisher is decoupled from this
// call succeeding.
type Store interface {
	CreateGroup(ctx context.Context, g *EntryGroup) error
	FindGroupByID(ctx context.Context, id string) (*EntryGroup, error)
	FindPaymentByGroupID(ctx context.Context, groupID string) (*Payment, error)

	// RecordReceipt inserts payment and transitions the group to
	// PaymentUploaded in one transaction.
	RecordReceipt(ctx context.Context, groupID string, payment *Payment) error

	ApproveCascade(ctx context.Context, groupID, reviewerID, note string) error
	RejectCascade(ctx context.Context, groupID, reviewerID, note string) error
}
