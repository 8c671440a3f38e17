package services

import (
	"database/sql/driver"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/librahub/backend/internal/config"
	"github.com/librahub/backend/internal/models"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

type fixture struct {
	db           *sqlx.DB
	mock         sqlmock.Sqlmock
	cfg          *config.CirculationConfig
	penalties    *PenaltyService
	copies       *CopyService
	loans        *LoanService
	reservations *ReservationService
	payments     *PaymentService
	queries      *QueryService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db := sqlx.NewDb(mockDB, "postgres")
	cfg := config.DefaultCirculationConfig()
	clock := FixedClock(testNow)
	audit := NewAuditLogger(clock)
	queries := NewQueryService(db)
	penalties := NewPenaltyService(db, clock, cfg, audit, queries)

	return &fixture{
		db:           db,
		mock:         mock,
		cfg:          cfg,
		penalties:    penalties,
		copies:       NewCopyService(db, clock, cfg, penalties, audit),
		loans:        NewLoanService(db, clock, cfg, penalties, audit),
		reservations: NewReservationService(db, clock, cfg, audit),
		payments:     NewPaymentService(db, clock, audit),
		queries:      queries,
	}
}

func (f *fixture) verify(t *testing.T) {
	t.Helper()
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func nullable[T any](p *T) driver.Value {
	if p == nil {
		return nil
	}
	return *p
}

func ptr[T any](v T) *T {
	return &v
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}

// ---------------------------------------------------------------------------
// Row builders
// ---------------------------------------------------------------------------

func copyRows(copies ...models.Copy) *sqlmock.Rows {
	rows := sqlmock.NewRows(strings.Split(copyColumns, ", "))
	for _, c := range copies {
		rows.AddRow(c.ID, c.Barcode, string(c.Status), c.BookID, nullable(c.LocationID), testNow, testNow, c.Version)
	}
	return rows
}

func loanRows(loans ...models.Loan) *sqlmock.Rows {
	rows := sqlmock.NewRows(strings.Split(loanColumns, ", "))
	for _, l := range loans {
		rows.AddRow(l.ID, l.LoanDate, l.DueDate, nullable(l.ReturnDate), string(l.Status), l.MemberID, l.CopyID, testNow, testNow, l.Version)
	}
	return rows
}

func reservationRows(reservations ...models.Reservation) *sqlmock.Rows {
	rows := sqlmock.NewRows(strings.Split(reservationColumns, ", "))
	for _, r := range reservations {
		var position driver.Value
		if r.QueuePosition != nil {
			position = int64(*r.QueuePosition)
		}
		rows.AddRow(r.ID, r.ReserveDate, nullable(r.ExpireDate), position, string(r.Status), r.MemberID, r.BookID, nullable(r.HeldCopyID), testNow, testNow, r.Version)
	}
	return rows
}

func penaltyRows(penalties ...models.Penalty) *sqlmock.Rows {
	rows := sqlmock.NewRows(strings.Split(penaltyColumns, ", "))
	for _, p := range penalties {
		rows.AddRow(p.ID, p.Amount.String(), string(p.Reason), string(p.Status), nullable(p.LastCalculatedAt), p.LoanID, nullable(p.PaymentID), testNow, testNow, p.Version)
	}
	return rows
}

func idRows(ids ...int64) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id"})
	for _, id := range ids {
		rows.AddRow(id)
	}
	return rows
}

func emptyRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id"})
}

// ---------------------------------------------------------------------------
// Expectations for the shared row helpers
// ---------------------------------------------------------------------------

const (
	sqlLockCopy        = `SELECT (.+) FROM book_copies WHERE id = \$1 AND deleted = false FOR UPDATE`
	sqlSaveCopy        = `UPDATE book_copies SET status = \$1, location_id = \$2`
	sqlMemberExists    = `SELECT id FROM members WHERE id = \$1`
	sqlUnpaidPenalties = `SELECT EXISTS`
	sqlLockTimeout     = `SET LOCAL lock_timeout = '5000ms'`
	sqlActiveQueue     = `SELECT (.+) FROM reservations WHERE book_id = \$1 AND status = \$2`
	sqlHeldReservation = `SELECT (.+) FROM reservations WHERE held_copy_id = \$1`
	sqlLockReservation = `SELECT (.+) FROM reservations WHERE id = \$1 AND deleted = false FOR UPDATE`
	sqlSaveReservation = `UPDATE reservations SET status = \$1, queue_position = \$2`
	sqlInsertLoan      = `INSERT INTO loans`
	sqlLockLoan        = `SELECT (.+) FROM loans WHERE id = \$1 AND deleted = false FOR UPDATE`
	sqlLatestLoan      = `SELECT (.+) FROM loans WHERE copy_id = \$1`
	sqlSaveLoan        = `UPDATE loans SET status = \$1, return_date = \$2`
	sqlFreezePenalty   = `UPDATE penalties SET last_calculated_at = \$1`
	sqlPenaltyForLoan  = `SELECT (.+) FROM penalties WHERE loan_id = \$1`
	sqlInsertPenalty   = `INSERT INTO penalties`
	sqlSavePenalty     = `UPDATE penalties SET amount = \$1, reason = \$2`
	sqlLoadBook        = `SELECT id, title, replacement_cost FROM books`
	sqlLockBook        = `SELECT id FROM books WHERE id = \$1 AND deleted = false FOR UPDATE`
)

func (f *fixture) expectLockCopy(c models.Copy) {
	f.mock.ExpectQuery(sqlLockCopy).WithArgs(c.ID).WillReturnRows(copyRows(c))
}

func (f *fixture) expectSaveCopy(c models.Copy, status models.CopyStatus) {
	f.mock.ExpectExec(sqlSaveCopy).
		WithArgs(status, sqlmock.AnyArg(), testNow, c.ID, c.Version).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func (f *fixture) expectSaveReservation(r models.Reservation, status models.ReservationStatus, position *int) {
	var pos driver.Value
	if position != nil {
		pos = int64(*position)
	}
	f.mock.ExpectExec(sqlSaveReservation).
		WithArgs(status, pos, sqlmock.AnyArg(), sqlmock.AnyArg(), testNow, r.ID, r.Version).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func (f *fixture) expectBook(bookID int64, cost string) {
	f.mock.ExpectQuery(sqlLoadBook).
		WithArgs(bookID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "replacement_cost"}).AddRow(bookID, "Dune", cost))
}
