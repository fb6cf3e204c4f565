package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/trackmeet/engine/internal/notify"
	"github.com/trackmeet/engine/internal/payments"
)

// PaymentStore is the Postgres-backed implementation of payments.Store. Its
// cascades also write the notify outbox row in the same transaction as the
// state change they report.
type PaymentStore struct {
	db *Connection
}

func NewPaymentStore(db *Connection) *PaymentStore {
	return &PaymentStore{db: db}
}

func (s *PaymentStore) CreateGroup(ctx context.Context, g *payments.EntryGroup) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create group: %w", err)
	}

	defer func() { _ = tx.Rollback() }()

	const insertGroup = `INSERT INTO entry_groups (id, organization_id, user_id, meet_id, total_amount, status)
		VALUES ($1,$2,$3,$4,$5,$6)`

	var orgID sql.NullString
	if g.OrganizationID != nil {
		orgID = sql.NullString{String: *g.OrganizationID, Valid: true}
	}

	if _, err := tx.ExecContext(ctx, insertGroup, g.ID, orgID, g.UserID, g.MeetID, g.TotalAmount, g.Status); err != nil {
		return fmt.Errorf("insert entry group: %w", err)
	}

	const insertMember = `INSERT INTO entry_group_members (entry_group_id, entry_id) VALUES ($1,$2)`

	for _, entryID := range g.EntryIDs {
		if _, err := tx.ExecContext(ctx, insertMember, g.ID, entryID); err != nil {
			return fmt.Errorf("insert entry group member: %w", err)
		}
	}

	return tx.Commit()
}

func (s *PaymentStore) FindGroupByID(ctx context.Context, id string) (*payments.EntryGroup, error) {
	const q = `SELECT id, organization_id, user_id, meet_id, total_amount, status, created_at, updated_at
		FROM entry_groups WHERE id=$1`

	var (
		g     payments.EntryGroup
		orgID sql.NullString
	)

	err := s.db.QueryRowContext(ctx, q, id).Scan(&g.ID, &orgID, &g.UserID, &g.MeetID, &g.TotalAmount,
		&g.Status, &g.CreatedAt, &g.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("find entry group: %w", err)
	}

	const memberQ = `SELECT entry_id FROM entry_group_members WHERE entry_group_id=$1`

	rows, err := s.db.QueryContext(ctx, memberQ, id)
	if err != nil {
		return nil, fmt.Errorf("list entry group members: %w", err)
	}

	defer rows.Close()

	for rows.Next() {
		var entryID string
		if err := rows.Scan(&entryID); err != nil {
			return nil, fmt.Errorf("scan entry group member: %w", err)
		}

		g.EntryIDs = append(g.EntryIDs, entryID)
	}

	return &g, rows.Err()
}

func (s *PaymentStore) FindPaymentByGroupID(ctx context.Context, groupID string) (*payments.Payment, error) {
	const q = `SELECT id, entry_group_id, receipt_ref, payment_date, amount, payer_name, status,
		reviewer_id, reviewed_at, note FROM payments WHERE entry_group_id=$1`

	var (
		p           payments.Payment
		receiptRef  sql.NullString
		paymentDate sql.NullTime
		amount      sql.NullInt64
		payerName   sql.NullString
		reviewerID  sql.NullString
		reviewedAt  sql.NullTime
		note        sql.NullString
	)

	err := s.db.QueryRowContext(ctx, q, groupID).Scan(&p.ID, &p.GroupID, &receiptRef, &paymentDate,
		&amount, &payerName, &p.Status, &reviewerID, &reviewedAt, &note)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("find payment: %w", err)
	}

	p.ReceiptRef = receiptRef.String
	p.PaymentDate = paymentDate.Time
	p.PaymentAmount = amount.Int64
	p.PayerName = payerName.String
	p.ReviewNote = note.String

	if reviewerID.Valid {
		p.ReviewerID = &reviewerID.String
	}

	if reviewedAt.Valid {
		p.ReviewedAt = &reviewedAt.Time
	}

	return &p, nil
}

func (s *PaymentStore) RecordReceipt(ctx context.Context, groupID string, payment *payments.Payment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record receipt: %w", err)
	}

	defer func() { _ = tx.Rollback() }()

	// A group whose payment was rejected re-enters Pending and may upload a
	// fresh receipt; the one-payment-per-group row is reused and its review
	// outcome reset.
	const insertPayment = `INSERT INTO payments (id, entry_group_id, receipt_ref, payment_date, amount,
		payer_name, status) VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (entry_group_id) DO UPDATE SET
			receipt_ref=EXCLUDED.receipt_ref, payment_date=EXCLUDED.payment_date,
			amount=EXCLUDED.amount, payer_name=EXCLUDED.payer_name, status=EXCLUDED.status,
			reviewer_id=NULL, reviewed_at=NULL, note=NULL, updated_at=now()`

	if _, err := tx.ExecContext(ctx, insertPayment, payment.ID, groupID, payment.ReceiptRef,
		payment.PaymentDate, payment.PaymentAmount, payment.PayerName, payment.Status); err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}

	const updateGroup = `UPDATE entry_groups SET status=$2, updated_at=now() WHERE id=$1`

	if _, err := tx.ExecContext(ctx, updateGroup, groupID, payments.GroupPaymentUploaded); err != nil {
		return fmt.Errorf("update entry group status: %w", err)
	}

	return tx.Commit()
}

func (s *PaymentStore) ApproveCascade(ctx context.Context, groupID, reviewerID, note string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin approve cascade: %w", err)
	}

	defer func() { _ = tx.Rollback() }()

	const updatePayment = `UPDATE payments SET status=$2, reviewer_id=$3, note=$4, reviewed_at=now(), updated_at=now()
		WHERE entry_group_id=$1`

	if _, err := tx.ExecContext(ctx, updatePayment, groupID, payments.PaymentApproved, reviewerID, note); err != nil {
		return fmt.Errorf("update payment: %w", err)
	}

	const updateGroup = `UPDATE entry_groups SET status=$2, updated_at=now() WHERE id=$1`

	if _, err := tx.ExecContext(ctx, updateGroup, groupID, payments.GroupConfirmed); err != nil {
		return fmt.Errorf("update entry group: %w", err)
	}

	const updateEntries = `UPDATE entries SET status=$2, updated_at=now()
		WHERE id IN (SELECT entry_id FROM entry_group_members WHERE entry_group_id=$1)`

	if _, err := tx.ExecContext(ctx, updateEntries, groupID, "confirmed"); err != nil {
		return fmt.Errorf("update member entries: %w", err)
	}

	payload, err := json.Marshal(map[string]string{"entry_group_id": groupID, "reviewer_id": reviewerID})
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}

	const insertOutbox = `INSERT INTO outbox_events (id, event_type, payload) VALUES ($1,$2,$3)`

	if _, err := tx.ExecContext(ctx, insertOutbox, uuid.NewString(), notify.EventPaymentConfirmed, payload); err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}

	return tx.Commit()
}

func (s *PaymentStore) RejectCascade(ctx context.Context, groupID, reviewerID, note string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reject cascade: %w", err)
	}

	defer func() { _ = tx.Rollback() }()

	const updatePayment = `UPDATE payments SET status=$2, reviewer_id=$3, note=$4, reviewed_at=now(), updated_at=now()
		WHERE entry_group_id=$1`

	if _, err := tx.ExecContext(ctx, updatePayment, groupID, payments.PaymentRejected, reviewerID, note); err != nil {
		return fmt.Errorf("update payment: %w", err)
	}

	// Rejection reverts the group and its member entries to Pending so the
	// user can fix the receipt and resubmit.
	const updateGroup = `UPDATE entry_groups SET status=$2, updated_at=now() WHERE id=$1`

	if _, err := tx.ExecContext(ctx, updateGroup, groupID, payments.GroupPending); err != nil {
		return fmt.Errorf("update entry group: %w", err)
	}

	const updateEntries = `UPDATE entries SET status=$2, updated_at=now()
		WHERE id IN (SELECT entry_id FROM entry_group_members WHERE entry_group_id=$1)`

	if _, err := tx.ExecContext(ctx, updateEntries, groupID, "pending"); err != nil {
		return fmt.Errorf("update member entries: %w", err)
	}

	payload, err := json.Marshal(map[string]string{"entry_group_id": groupID, "reviewer_id": reviewerID})
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}

	const insertOutbox = `INSERT INTO outbox_events (id, event_type, payload) VALUES ($1,$2,$3)`

	if _, err := tx.ExecContext(ctx, insertOutbox, uuid.NewString(), notify.EventPaymentRejected, payload); err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}

	return tx.Commit()
}
