package services

import (
	"context"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/librahub/backend/internal/models"
)

// PaymentService settles penalties. The method is recorded, never processed.
type PaymentService struct {
	db    *sqlx.DB
	clock Clock
	audit *AuditLogger
}

func NewPaymentService(db *sqlx.DB, clock Clock, audit *AuditLogger) *PaymentService {
	return &PaymentService{db: db, clock: clock, audit: audit}
}

type heldPenalty struct {
	models.Penalty
	HolderID int64 `db:"holder_id"`
}

// PayPenalty records a payment for the penalty's current amount and marks it PAID.
func (s *PaymentService) PayPenalty(ctx context.Context, penaltyID int64, method models.PaymentMethod, requester Requester) (*models.Payment, error) {
	if !method.IsValid() {
		return nil, newError(KindBadRequest, "unknown payment method %q", method)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var p heldPenalty
	err = tx.GetContext(ctx, &p, `
		SELECT `+qualify("p", penaltyColumns)+`, l.member_id AS holder_id
		FROM penalties p JOIN loans l ON l.id = p.loan_id
		WHERE p.id = $1 AND p.deleted = false
		FOR UPDATE OF p`, penaltyID)
	if isNoRows(err) {
		return nil, newError(KindNotFound, "penalty %d not found", penaltyID)
	}
	if err != nil {
		return nil, dbError(err, "lock penalty")
	}

	if !requester.CanActFor(p.HolderID) {
		return nil, newError(KindAccessDenied, "penalty %d belongs to another member", penaltyID)
	}
	switch p.Status {
	case models.PenaltyPaid:
		return nil, newError(KindAlreadyExists, "penalty %d already paid", penaltyID)
	case models.PenaltyCancelled:
		return nil, newError(KindIllegalState, "penalty %d was cancelled", penaltyID)
	}

	now := s.clock.Now()
	payment := &models.Payment{
		Amount:      p.Amount,
		PaymentDate: now,
		Method:      method,
		Purpose:     models.PaymentForPenalty,
		MemberID:    p.HolderID,
	}
	err = tx.QueryRowxContext(ctx, `
		INSERT INTO payments (amount, payment_date, method, purpose, member_id, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0)
		RETURNING id`,
		payment.Amount, payment.PaymentDate, payment.Method, payment.Purpose, payment.MemberID, now, now).Scan(&payment.ID)
	if err != nil {
		return nil, dbError(err, "insert payment")
	}
	payment.CreatedAt, payment.UpdatedAt = now, now

	penalty := &p.Penalty
	penalty.PaymentID = &payment.ID
	penalty.Status = models.PenaltyPaid
	if err := savePenalty(ctx, tx, penalty, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	log.Printf("[PAYMENT] Penalty %d paid by %s: %s via %s (payment %d)", penaltyID, requester.Username, payment.Amount, method, payment.ID)
	s.audit.LogTransition("penalty", penaltyID, string(models.PenaltyUnpaid), string(models.PenaltyPaid), map[string]any{
		"payment_id": payment.ID, "amount": payment.Amount.String(), "method": method,
	})
	return payment, nil
}

func (s *PaymentService) GetPayment(ctx context.Context, id int64) (*models.Payment, error) {
	var p models.Payment
	err := s.db.GetContext(ctx, &p, `SELECT `+paymentColumns+` FROM payments WHERE id = $1 AND deleted = false`, id)
	if isNoRows(err) {
		return nil, newError(KindNotFound, "payment %d not found", id)
	}
	if err != nil {
		return nil, dbError(err, "load payment")
	}
	return &p, nil
}
