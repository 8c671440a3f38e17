package services

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/librahub/backend/internal/models"
)

// Column lists are fixed so scans never meet a column the model lacks.
const (
	copyColumns        = "id, barcode, status, book_id, location_id, created_at, updated_at, version"
	loanColumns        = "id, loan_date, due_date, return_date, status, member_id, copy_id, created_at, updated_at, version"
	reservationColumns = "id, reserve_date, expire_date, queue_position, status, member_id, book_id, held_copy_id, created_at, updated_at, version"
	penaltyColumns     = "id, amount, reason, status, last_calculated_at, loan_id, payment_id, created_at, updated_at, version"
	paymentColumns     = "id, amount, payment_date, method, purpose, member_id, created_at, updated_at, version"
)

func qualify(alias, columns string) string {
	cols := strings.Split(columns, ", ")
	for i, c := range cols {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}

func columnList(columns string) []any {
	cols := strings.Split(columns, ", ")
	out := make([]any, len(cols))
	for i, c := range cols {
		out[i] = c
	}
	return out
}

// checkUpdated turns a zero-row optimistic update into a Conflict.
func checkUpdated(res sql.Result, entity string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return newError(KindConflict, "optimistic lock failed for %s %d", entity, id)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Catalog
// ---------------------------------------------------------------------------

func memberExists(ctx context.Context, tx *sqlx.Tx, memberID int64) error {
	var id int64
	err := tx.GetContext(ctx, &id, `SELECT id FROM members WHERE id = $1 AND deleted = false`, memberID)
	if isNoRows(err) {
		return newError(KindNotFound, "member %d not found", memberID)
	}
	return dbError(err, "load member")
}

func lockBook(ctx context.Context, tx *sqlx.Tx, bookID int64) error {
	var id int64
	err := tx.GetContext(ctx, &id, `SELECT id FROM books WHERE id = $1 AND deleted = false FOR UPDATE`, bookID)
	if isNoRows(err) {
		return newError(KindNotFound, "book %d not found", bookID)
	}
	return dbError(err, "lock book")
}

func loadBook(ctx context.Context, tx *sqlx.Tx, bookID int64) (*models.Book, error) {
	var book models.Book
	err := tx.GetContext(ctx, &book, `SELECT id, title, replacement_cost FROM books WHERE id = $1 AND deleted = false`, bookID)
	if isNoRows(err) {
		return nil, newError(KindNotFound, "book %d not found", bookID)
	}
	if err != nil {
		return nil, dbError(err, "load book")
	}
	return &book, nil
}

// ---------------------------------------------------------------------------
// Copies
// ---------------------------------------------------------------------------

func lockCopy(ctx context.Context, tx *sqlx.Tx, copyID int64) (*models.Copy, error) {
	var c models.Copy
	err := tx.GetContext(ctx, &c, `SELECT `+copyColumns+` FROM book_copies WHERE id = $1 AND deleted = false FOR UPDATE`, copyID)
	if isNoRows(err) {
		return nil, newError(KindNotFound, "copy %d not found", copyID)
	}
	if err != nil {
		return nil, dbError(err, "lock copy")
	}
	return &c, nil
}

// saveCopy persists status and location. CopyService and the queue sweeps are its only callers.
func saveCopy(ctx context.Context, tx *sqlx.Tx, c *models.Copy, now time.Time) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE book_copies
		SET status = $1, location_id = $2, version = version + 1, updated_at = $3
		WHERE id = $4 AND version = $5 AND deleted = false`,
		c.Status, c.LocationID, now, c.ID, c.Version)
	if err != nil {
		return dbError(err, "update copy")
	}
	if err := checkUpdated(res, "copy", c.ID); err != nil {
		return err
	}
	c.Version++
	c.UpdatedAt = now
	return nil
}

// ---------------------------------------------------------------------------
// Loans
// ---------------------------------------------------------------------------

func lockLoan(ctx context.Context, tx *sqlx.Tx, loanID int64) (*models.Loan, error) {
	var l models.Loan
	err := tx.GetContext(ctx, &l, `SELECT `+loanColumns+` FROM loans WHERE id = $1 AND deleted = false FOR UPDATE`, loanID)
	if isNoRows(err) {
		return nil, newError(KindNotFound, "loan %d not found", loanID)
	}
	if err != nil {
		return nil, dbError(err, "lock loan")
	}
	return &l, nil
}

// latestLoanForCopy returns nil when the copy was never lent.
func latestLoanForCopy(ctx context.Context, tx *sqlx.Tx, copyID int64) (*models.Loan, error) {
	var l models.Loan
	err := tx.GetContext(ctx, &l, `
		SELECT `+loanColumns+` FROM loans
		WHERE copy_id = $1 AND deleted = false
		ORDER BY loan_date DESC, id DESC
		LIMIT 1 FOR UPDATE`, copyID)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, dbError(err, "load latest loan")
	}
	return &l, nil
}

func saveLoan(ctx context.Context, tx *sqlx.Tx, l *models.Loan, now time.Time) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE loans
		SET status = $1, return_date = $2, version = version + 1, updated_at = $3
		WHERE id = $4 AND version = $5 AND deleted = false`,
		l.Status, l.ReturnDate, now, l.ID, l.Version)
	if err != nil {
		return dbError(err, "update loan")
	}
	if err := checkUpdated(res, "loan", l.ID); err != nil {
		return err
	}
	l.Version++
	l.UpdatedAt = now
	return nil
}

// ---------------------------------------------------------------------------
// Reservations
// ---------------------------------------------------------------------------

func lockReservation(ctx context.Context, tx *sqlx.Tx, id int64) (*models.Reservation, error) {
	var r models.Reservation
	err := tx.GetContext(ctx, &r, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1 AND deleted = false FOR UPDATE`, id)
	if isNoRows(err) {
		return nil, newError(KindNotFound, "reservation %d not found", id)
	}
	if err != nil {
		return nil, dbError(err, "lock reservation")
	}
	return &r, nil
}

// activeQueue locks and returns a book's ACTIVE reservations, head first.
func activeQueue(ctx context.Context, tx *sqlx.Tx, bookID int64) ([]models.Reservation, error) {
	var queue []models.Reservation
	err := tx.SelectContext(ctx, &queue, `
		SELECT `+reservationColumns+` FROM reservations
		WHERE book_id = $1 AND status = $2 AND deleted = false
		ORDER BY queue_position NULLS LAST, reserve_date, id
		FOR UPDATE`, bookID, models.ReservationActive)
	if err != nil {
		return nil, dbError(err, "load reservation queue")
	}
	return queue, nil
}

// heldReservation returns the AWAITING_PICKUP reservation holding copyID, or nil.
func heldReservation(ctx context.Context, tx *sqlx.Tx, copyID int64) (*models.Reservation, error) {
	var r models.Reservation
	err := tx.GetContext(ctx, &r, `
		SELECT `+reservationColumns+` FROM reservations
		WHERE held_copy_id = $1 AND status = $2 AND deleted = false
		FOR UPDATE`, copyID, models.ReservationAwaitingPickup)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, dbError(err, "load held reservation")
	}
	return &r, nil
}

func saveReservation(ctx context.Context, tx *sqlx.Tx, r *models.Reservation, now time.Time) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE reservations
		SET status = $1, queue_position = $2, expire_date = $3, held_copy_id = $4, version = version + 1, updated_at = $5
		WHERE id = $6 AND version = $7 AND deleted = false`,
		r.Status, r.QueuePosition, r.ExpireDate, r.HeldCopyID, now, r.ID, r.Version)
	if err != nil {
		return dbError(err, "update reservation")
	}
	if err := checkUpdated(res, "reservation", r.ID); err != nil {
		return err
	}
	r.Version++
	r.UpdatedAt = now
	return nil
}

// reorderQueue renumbers a book's ACTIVE reservations 1..N, keeping their relative order.
func reorderQueue(ctx context.Context, tx *sqlx.Tx, bookID int64, now time.Time) ([]models.Reservation, error) {
	queue, err := activeQueue(ctx, tx, bookID)
	if err != nil {
		return nil, err
	}
	for i := range queue {
		want := i + 1
		if queue[i].QueuePosition != nil && *queue[i].QueuePosition == want {
			continue
		}
		queue[i].QueuePosition = &want
		if err := saveReservation(ctx, tx, &queue[i], now); err != nil {
			return nil, err
		}
	}
	return queue, nil
}

// ---------------------------------------------------------------------------
// Penalties
// ---------------------------------------------------------------------------

// penaltyForLoan returns nil when the loan carries no penalty.
func penaltyForLoan(ctx context.Context, tx *sqlx.Tx, loanID int64) (*models.Penalty, error) {
	var p models.Penalty
	err := tx.GetContext(ctx, &p, `SELECT `+penaltyColumns+` FROM penalties WHERE loan_id = $1 AND deleted = false FOR UPDATE`, loanID)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, dbError(err, "load penalty")
	}
	return &p, nil
}

// insertPenalty reports AlreadyExists when another penalty already holds the loan.
func insertPenalty(ctx context.Context, tx *sqlx.Tx, p *models.Penalty, now time.Time) error {
	err := tx.QueryRowxContext(ctx, `
		INSERT INTO penalties (amount, reason, status, last_calculated_at, loan_id, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0)
		ON CONFLICT (loan_id) DO NOTHING
		RETURNING id`,
		p.Amount, p.Reason, p.Status, p.LastCalculatedAt, p.LoanID, now, now).Scan(&p.ID)
	if isNoRows(err) {
		return newError(KindAlreadyExists, "loan %d already has a penalty", p.LoanID)
	}
	if err != nil {
		return dbError(err, "insert penalty")
	}
	p.CreatedAt, p.UpdatedAt = now, now
	return nil
}

func savePenalty(ctx context.Context, tx *sqlx.Tx, p *models.Penalty, now time.Time) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE penalties
		SET amount = $1, reason = $2, status = $3, last_calculated_at = $4, payment_id = $5, version = version + 1, updated_at = $6
		WHERE id = $7 AND version = $8 AND deleted = false`,
		p.Amount, p.Reason, p.Status, p.LastCalculatedAt, p.PaymentID, now, p.ID, p.Version)
	if err != nil {
		return dbError(err, "update penalty")
	}
	if err := checkUpdated(res, "penalty", p.ID); err != nil {
		return err
	}
	p.Version++
	p.UpdatedAt = now
	return nil
}
