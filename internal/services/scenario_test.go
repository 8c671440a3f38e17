package services

import (
	"context"
	"testing"

	"github.com/librahub/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Two members queue for one book; the head borrows and the queue closes up.
func TestScenario_QueueHeadBorrowsThenReorder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	const bookID, copyID, m1, m2 = int64(3), int64(5), int64(1), int64(2)

	reserve := func(memberID int64, existing int, id int64) *models.Reservation {
		f.mock.ExpectBegin()
		f.mock.ExpectQuery(sqlLockBook).WithArgs(bookID).WillReturnRows(idRows(bookID))
		f.mock.ExpectQuery(sqlMemberExists).WithArgs(memberID).WillReturnRows(idRows(memberID))
		f.mock.ExpectQuery(`SELECT COUNT\(\*\) FROM reservations WHERE book_id = \$1 AND member_id = \$2`).WillReturnRows(countRows(0))
		f.mock.ExpectQuery(`SELECT COUNT\(\*\) FROM loans l`).WillReturnRows(countRows(0))
		f.mock.ExpectQuery(`SELECT COUNT\(\*\) FROM reservations WHERE book_id = \$1 AND deleted = false`).WillReturnRows(countRows(existing))
		f.mock.ExpectQuery(`INSERT INTO reservations`).WillReturnRows(idRows(id))
		f.mock.ExpectCommit()

		r, err := f.reservations.ReserveBook(ctx, bookID, memberID)
		require.NoError(t, err)
		return r
	}

	r1 := reserve(m1, 0, 30)
	r2 := reserve(m2, 1, 31)
	assert.Equal(t, 1, *r1.QueuePosition)
	assert.Equal(t, 2, *r2.QueuePosition)

	c1 := models.Copy{Base: models.Base{ID: copyID}, Barcode: "BC-3-C1", Status: models.CopyAvailable, BookID: bookID}
	f.expectBorrowPreamble(m1, c1)
	f.mock.ExpectQuery(sqlActiveQueue).WithArgs(bookID, models.ReservationActive).WillReturnRows(reservationRows(*r1, *r2))
	f.expectSaveReservation(*r1, models.ReservationCompleted, nil)
	f.expectLoanInsert(m1, copyID, 100)
	f.expectSaveCopy(c1, models.CopyLoaned)
	f.mock.ExpectCommit()

	loan, err := f.loans.BorrowBook(ctx, m1, copyID)
	require.NoError(t, err)
	assert.Equal(t, m1, loan.MemberID)

	// Only M2 is left, still at position 2 until the queue is reordered.
	f.mock.ExpectBegin()
	f.mock.ExpectQuery(sqlLockBook).WithArgs(bookID).WillReturnRows(idRows(bookID))
	f.mock.ExpectQuery(sqlActiveQueue).WithArgs(bookID, models.ReservationActive).WillReturnRows(reservationRows(*r2))
	f.expectSaveReservation(*r2, models.ReservationActive, ptr(1))
	f.mock.ExpectCommit()

	queue, err := f.reservations.ReorderQueue(ctx, bookID)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, m2, queue[0].MemberID)
	assert.Equal(t, 1, *queue[0].QueuePosition)
	f.verify(t)
}
