package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/librahub/backend/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPenaltyService_CalculateAmount(t *testing.T) {
	f := newFixture(t)
	due := testNow.Add(-days(6))

	tests := []struct {
		name      string
		effective time.Time
		want      int64
	}{
		{"six whole days", due.Add(days(6)), 18000},
		{"partial seventh day truncates", due.Add(days(6) + 23*time.Hour), 18000},
		{"under a day floors to one", due.Add(2 * time.Hour), 3000},
		{"returned before due still one day", due.Add(-time.Hour), 3000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.penalties.CalculateAmount(due, tt.effective)
			assert.True(t, decimal.NewFromInt(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestPenaltyService_CreatePenaltyForReason(t *testing.T) {
	ctx := context.Background()
	overdueLoan := models.Loan{
		Base:     models.Base{ID: 10},
		LoanDate: testNow.Add(-days(20)),
		DueDate:  testNow.Add(-days(6)),
		Status:   models.LoanOverdue,
		MemberID: 1,
		CopyID:   5,
	}

	t.Run("open loan is valued up to now", func(t *testing.T) {
		f := newFixture(t)
		f.mock.ExpectBegin()
		f.mock.ExpectQuery(sqlLockLoan).WithArgs(int64(10)).WillReturnRows(loanRows(overdueLoan))
		f.mock.ExpectQuery(sqlPenaltyForLoan).WithArgs(int64(10)).WillReturnRows(emptyRows())
		f.mock.ExpectQuery(sqlInsertPenalty).
			WithArgs(decimal.NewFromInt(18000), models.PenaltyOverdue, models.PenaltyUnpaid, testNow, int64(10), testNow, testNow).
			WillReturnRows(idRows(77))
		f.mock.ExpectCommit()

		p, err := f.penalties.CreatePenaltyForReason(ctx, 10, models.PenaltyOverdue)
		require.NoError(t, err)
		assert.Equal(t, int64(77), p.ID)
		assert.True(t, decimal.NewFromInt(18000).Equal(p.Amount))
		assert.Equal(t, models.PenaltyUnpaid, p.Status)
		f.verify(t)
	})

	t.Run("returned loan is valued up to its return date", func(t *testing.T) {
		f := newFixture(t)
		returned := overdueLoan
		returned.ReturnDate = ptr(overdueLoan.DueDate.Add(days(2) + time.Hour))
		returned.Status = models.LoanReturned

		f.mock.ExpectBegin()
		f.mock.ExpectQuery(sqlLockLoan).WithArgs(int64(10)).WillReturnRows(loanRows(returned))
		f.mock.ExpectQuery(sqlPenaltyForLoan).WithArgs(int64(10)).WillReturnRows(emptyRows())
		f.mock.ExpectQuery(sqlInsertPenalty).
			WithArgs(decimal.NewFromInt(6000), models.PenaltyDamaged, models.PenaltyUnpaid, testNow, int64(10), testNow, testNow).
			WillReturnRows(idRows(78))
		f.mock.ExpectCommit()

		p, err := f.penalties.CreatePenaltyForReason(ctx, 10, models.PenaltyDamaged)
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(6000).Equal(p.Amount))
		f.verify(t)
	})

	t.Run("loan already penalised", func(t *testing.T) {
		f := newFixture(t)
		f.mock.ExpectBegin()
		f.mock.ExpectQuery(sqlLockLoan).WithArgs(int64(10)).WillReturnRows(loanRows(overdueLoan))
		f.mock.ExpectQuery(sqlPenaltyForLoan).WithArgs(int64(10)).WillReturnRows(penaltyRows(models.Penalty{
			Base: models.Base{ID: 3}, Amount: decimal.NewFromInt(3000), Reason: models.PenaltyOverdue, Status: models.PenaltyUnpaid, LoanID: 10,
		}))
		f.mock.ExpectRollback()

		_, err := f.penalties.CreatePenaltyForReason(ctx, 10, models.PenaltyOverdue)
		assert.True(t, errors.Is(err, ErrAlreadyExists))
		f.verify(t)
	})

	t.Run("unknown loan", func(t *testing.T) {
		f := newFixture(t)
		f.mock.ExpectBegin()
		f.mock.ExpectQuery(sqlLockLoan).WithArgs(int64(404)).WillReturnRows(emptyRows())
		f.mock.ExpectRollback()

		_, err := f.penalties.CreatePenaltyForReason(ctx, 404, models.PenaltyOverdue)
		assert.True(t, errors.Is(err, ErrNotFound))
		f.verify(t)
	})

	t.Run("unknown reason", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.penalties.CreatePenaltyForReason(ctx, 10, "SPILLED_COFFEE")
		assert.Equal(t, KindBadRequest, KindOf(err))
		f.verify(t)
	})
}

func TestPenaltyService_AutoCreatePenaltiesForOverdueLoans(t *testing.T) {
	f := newFixture(t)
	first := models.Loan{Base: models.Base{ID: 1}, LoanDate: testNow.Add(-days(17)), DueDate: testNow.Add(-days(3)), Status: models.LoanOverdue, MemberID: 1, CopyID: 1}
	second := models.Loan{Base: models.Base{ID: 2}, LoanDate: testNow.Add(-days(15)), DueDate: testNow.Add(-days(1)), Status: models.LoanOverdue, MemberID: 2, CopyID: 2}

	f.mock.ExpectBegin()
	f.mock.ExpectQuery(`FROM loans l WHERE l.status = \$1 (.+) NOT EXISTS`).
		WithArgs(models.LoanOverdue).
		WillReturnRows(loanRows(first, second))
	f.mock.ExpectQuery(sqlInsertPenalty).
		WithArgs(decimal.NewFromInt(9000), models.PenaltyOverdue, models.PenaltyUnpaid, testNow, int64(1), testNow, testNow).
		WillReturnRows(idRows(31))
	// A concurrent sweep got there first: ON CONFLICT returns no row.
	f.mock.ExpectQuery(sqlInsertPenalty).
		WithArgs(decimal.NewFromInt(3000), models.PenaltyOverdue, models.PenaltyUnpaid, testNow, int64(2), testNow, testNow).
		WillReturnRows(emptyRows())
	f.mock.ExpectCommit()

	created, err := f.penalties.AutoCreatePenaltiesForOverdueLoans(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), created)
	f.verify(t)
}

func TestPenaltyService_IncrementDailyPenalties(t *testing.T) {
	t.Run("charges once per calendar day", func(t *testing.T) {
		f := newFixture(t)
		startOfToday := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

		f.mock.ExpectExec(`UPDATE penalties p SET amount = p.amount \+ \$1(.+)FROM loans l`).
			WithArgs(decimal.NewFromInt(3000), testNow, models.PenaltyUnpaid, models.LoanOverdue, startOfToday).
			WillReturnResult(sqlmock.NewResult(0, 2))

		n, err := f.penalties.IncrementDailyPenalties(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
		f.verify(t)
	})

	t.Run("day boundary follows the library time zone", func(t *testing.T) {
		f := newFixture(t)
		lagos := time.FixedZone("WAT", 3600)
		f.cfg.Location = lagos
		// 10:00 UTC is 11:00 WAT, so the day started at 23:00 UTC the evening before.
		startOfToday := time.Date(2024, 3, 15, 0, 0, 0, 0, lagos)

		f.mock.ExpectExec(`UPDATE penalties p SET amount`).
			WithArgs(decimal.NewFromInt(3000), testNow, models.PenaltyUnpaid, models.LoanOverdue, startOfToday).
			WillReturnResult(sqlmock.NewResult(0, 0))

		n, err := f.penalties.IncrementDailyPenalties(context.Background())
		require.NoError(t, err)
		assert.Zero(t, n)
		f.verify(t)
	})
}

func TestPenaltyService_FreezePenaltyForLoan(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectExec(sqlFreezePenalty).
		WithArgs(testNow, int64(10), models.PenaltyUnpaid).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectCommit()

	require.NoError(t, f.penalties.FreezePenaltyForLoan(context.Background(), 10))
	f.verify(t)
}

func TestPenaltyService_HasUnpaidPenalties(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectQuery(sqlUnpaidPenalties).
		WithArgs(int64(4), models.PenaltyUnpaid).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	unpaid, err := f.penalties.HasUnpaidPenalties(context.Background(), 4)
	require.NoError(t, err)
	assert.True(t, unpaid)
	f.verify(t)
}

func TestPenaltyService_GetPenalty(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectQuery(`SELECT (.+) FROM penalties WHERE id = \$1`).
		WithArgs(int64(9)).
		WillReturnRows(penaltyRows(models.Penalty{
			Base: models.Base{ID: 9}, Amount: decimal.NewFromInt(6000), Reason: models.PenaltyOverdue, Status: models.PenaltyUnpaid, LoanID: 2,
		}))

	p, err := f.penalties.GetPenalty(context.Background(), 9)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(6000).Equal(p.Amount))
	assert.Equal(t, int64(2), p.LoanID)

	f.mock.ExpectQuery(`SELECT (.+) FROM penalties WHERE id = \$1`).WithArgs(int64(10)).WillReturnRows(emptyRows())
	_, err = f.penalties.GetPenalty(context.Background(), 10)
	assert.True(t, errors.Is(err, ErrNotFound))
	f.verify(t)
}
