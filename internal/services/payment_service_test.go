package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/librahub/backend/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sqlLockHeldPenalty = `SELECT (.+), l.member_id AS holder_id FROM penalties p JOIN loans l ON l.id = p.loan_id WHERE p.id = \$1 AND p.deleted = false FOR UPDATE OF p`

func heldPenaltyRows(p models.Penalty, holderID int64) *sqlmock.Rows {
	cols := append(strings.Split(penaltyColumns, ", "), "holder_id")
	return sqlmock.NewRows(cols).AddRow(
		p.ID, p.Amount.String(), string(p.Reason), string(p.Status), nullable(p.LastCalculatedAt),
		p.LoanID, nullable(p.PaymentID), testNow, testNow, p.Version, holderID,
	)
}

func TestPaymentService_PayPenalty(t *testing.T) {
	ctx := context.Background()
	holder := NewRequester(1, "ada", []string{models.RoleMember})
	unpaid := models.Penalty{
		Base:             models.Base{ID: 7, Version: 3},
		Amount:           decimal.NewFromInt(33000),
		Reason:           models.PenaltyOverdueDamaged,
		Status:           models.PenaltyUnpaid,
		LastCalculatedAt: ptr(testNow.Add(-days(1))),
		LoanID:           100,
	}

	expectPaid := func(f *fixture) {
		f.mock.ExpectQuery(`INSERT INTO payments`).
			WithArgs(decimal.NewFromInt(33000), testNow, models.PaymentCash, models.PaymentForPenalty, int64(1), testNow, testNow).
			WillReturnRows(idRows(12))
		f.mock.ExpectExec(sqlSavePenalty).
			WithArgs(decimal.NewFromInt(33000), models.PenaltyOverdueDamaged, models.PenaltyPaid, testNow.Add(-days(1)), int64(12), testNow, int64(7), 3).
			WillReturnResult(sqlmock.NewResult(0, 1))
		f.mock.ExpectCommit()
	}

	t.Run("holder pays the full amount", func(t *testing.T) {
		f := newFixture(t)
		f.mock.ExpectBegin()
		f.mock.ExpectQuery(sqlLockHeldPenalty).WithArgs(int64(7)).WillReturnRows(heldPenaltyRows(unpaid, 1))
		expectPaid(f)

		payment, err := f.payments.PayPenalty(ctx, 7, models.PaymentCash, holder)
		require.NoError(t, err)
		assert.Equal(t, int64(12), payment.ID)
		assert.True(t, decimal.NewFromInt(33000).Equal(payment.Amount))
		assert.Equal(t, models.PaymentForPenalty, payment.Purpose)
		assert.Equal(t, int64(1), payment.MemberID)
		f.verify(t)
	})

	t.Run("staff may pay on the holder's behalf", func(t *testing.T) {
		f := newFixture(t)
		f.mock.ExpectBegin()
		f.mock.ExpectQuery(sqlLockHeldPenalty).WithArgs(int64(7)).WillReturnRows(heldPenaltyRows(unpaid, 1))
		expectPaid(f)

		payment, err := f.payments.PayPenalty(ctx, 7, models.PaymentCash, NewRequester(9, "desk", []string{models.RoleLibrarian}))
		require.NoError(t, err)
		assert.Equal(t, int64(1), payment.MemberID)
		f.verify(t)
	})

	t.Run("another member is refused", func(t *testing.T) {
		f := newFixture(t)
		f.mock.ExpectBegin()
		f.mock.ExpectQuery(sqlLockHeldPenalty).WithArgs(int64(7)).WillReturnRows(heldPenaltyRows(unpaid, 1))
		f.mock.ExpectRollback()

		_, err := f.payments.PayPenalty(ctx, 7, models.PaymentCard, NewRequester(2, "bob", nil))
		assert.True(t, errors.Is(err, ErrAccessDenied))
		f.verify(t)
	})

	t.Run("paying twice", func(t *testing.T) {
		f := newFixture(t)
		paid := unpaid
		paid.Status = models.PenaltyPaid
		paid.PaymentID = ptr(int64(12))
		f.mock.ExpectBegin()
		f.mock.ExpectQuery(sqlLockHeldPenalty).WithArgs(int64(7)).WillReturnRows(heldPenaltyRows(paid, 1))
		f.mock.ExpectRollback()

		_, err := f.payments.PayPenalty(ctx, 7, models.PaymentCash, holder)
		assert.True(t, errors.Is(err, ErrAlreadyExists))
		f.verify(t)
	})

	t.Run("cancelled penalty", func(t *testing.T) {
		f := newFixture(t)
		cancelled := unpaid
		cancelled.Status = models.PenaltyCancelled
		f.mock.ExpectBegin()
		f.mock.ExpectQuery(sqlLockHeldPenalty).WithArgs(int64(7)).WillReturnRows(heldPenaltyRows(cancelled, 1))
		f.mock.ExpectRollback()

		_, err := f.payments.PayPenalty(ctx, 7, models.PaymentCash, holder)
		assert.True(t, errors.Is(err, ErrIllegalState))
		f.verify(t)
	})

	t.Run("unknown penalty", func(t *testing.T) {
		f := newFixture(t)
		f.mock.ExpectBegin()
		f.mock.ExpectQuery(sqlLockHeldPenalty).WithArgs(int64(7)).WillReturnRows(emptyRows())
		f.mock.ExpectRollback()

		_, err := f.payments.PayPenalty(ctx, 7, models.PaymentOnline, holder)
		assert.True(t, errors.Is(err, ErrNotFound))
		f.verify(t)
	})

	t.Run("unknown method never opens a transaction", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.payments.PayPenalty(ctx, 7, models.PaymentMethod("CHEQUE"), holder)
		assert.True(t, errors.Is(err, ErrBadRequest))
		f.verify(t)
	})
}

func TestPaymentService_GetPayment(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectQuery(`SELECT (.+) FROM payments WHERE id = \$1`).
		WithArgs(int64(12)).
		WillReturnRows(sqlmock.NewRows(strings.Split(paymentColumns, ", ")).
			AddRow(int64(12), "6000", "CARD", "PENALTY", int64(1), testNow, testNow, 0))

	p, err := f.payments.GetPayment(context.Background(), 12)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCard, p.Method)
	assert.Equal(t, "6000", p.Amount.String())
	f.verify(t)
}
