package services

import (
	"context"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/librahub/backend/internal/config"
	"github.com/librahub/backend/internal/models"
)

// LoanService orchestrates borrowing and returning copies.
type LoanService struct {
	db        *sqlx.DB
	clock     Clock
	cfg       *config.CirculationConfig
	penalties *PenaltyService
	audit     *AuditLogger
}

func NewLoanService(db *sqlx.DB, clock Clock, cfg *config.CirculationConfig, penalties *PenaltyService, audit *AuditLogger) *LoanService {
	return &LoanService{db: db, clock: clock, cfg: cfg, penalties: penalties, audit: audit}
}

// setLockTimeout bounds how long the transaction waits for a row lock.
func (s *LoanService) setLockTimeout(ctx context.Context, tx *sqlx.Tx) error {
	if s.cfg.LockTimeout <= 0 {
		return nil
	}
	_, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.cfg.LockTimeout.Milliseconds()))
	return dbError(err, "set lock timeout")
}

// BorrowBook lends a copy to a member. An AVAILABLE copy with a waiting queue
// may only go to the queue head; a RESERVED copy only to the member it is held for.
func (s *LoanService) BorrowBook(ctx context.Context, memberID, copyID int64) (*models.Loan, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	unpaid, err := hasUnpaidPenalties(ctx, tx, memberID)
	if err != nil {
		return nil, err
	}
	if unpaid {
		return nil, newError(KindAccessDenied, "member %d has unpaid penalties", memberID)
	}

	if err := memberExists(ctx, tx, memberID); err != nil {
		return nil, err
	}

	if err := s.setLockTimeout(ctx, tx); err != nil {
		return nil, err
	}

	c, err := lockCopy(ctx, tx, copyID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()

	switch c.Status {
	case models.CopyAvailable:
		queue, err := activeQueue(ctx, tx, c.BookID)
		if err != nil {
			return nil, err
		}
		if len(queue) > 0 {
			head := &queue[0]
			if head.MemberID != memberID {
				return nil, newError(KindNotAvailable, "reservation queue exists")
			}
			head.Status = models.ReservationCompleted
			head.QueuePosition = nil
			if err := saveReservation(ctx, tx, head, now); err != nil {
				return nil, err
			}
		}
	case models.CopyReserved:
		held, err := heldReservation(ctx, tx, c.ID)
		if err != nil {
			return nil, err
		}
		if held == nil || held.MemberID != memberID {
			return nil, newError(KindNotAvailable, "copy %d is held for another member", copyID)
		}
		held.Status = models.ReservationCompleted
		held.ExpireDate = nil
		if err := saveReservation(ctx, tx, held, now); err != nil {
			return nil, err
		}
	default:
		return nil, newError(KindNotAvailable, "copy %d is %s", copyID, c.Status)
	}

	loan := &models.Loan{
		LoanDate: now,
		DueDate:  now.Add(s.cfg.LoanDuration),
		Status:   models.LoanActive,
		MemberID: memberID,
		CopyID:   copyID,
	}
	err = tx.QueryRowxContext(ctx, `
		INSERT INTO loans (loan_date, due_date, status, member_id, copy_id, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0)
		RETURNING id`,
		loan.LoanDate, loan.DueDate, loan.Status, loan.MemberID, loan.CopyID, now, now).Scan(&loan.ID)
	if err != nil {
		return nil, dbError(err, "insert loan")
	}
	loan.CreatedAt, loan.UpdatedAt = now, now

	from := c.Status
	c.Status = models.CopyLoaned
	if err := saveCopy(ctx, tx, c, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	log.Printf("[LOAN] Member %d borrowed copy %d (loan %d, due %s)", memberID, copyID, loan.ID, loan.DueDate.Format("2006-01-02"))
	s.audit.LogTransition("copy", c.ID, string(from), string(c.Status), map[string]any{"loan_id": loan.ID, "member_id": memberID})
	return loan, nil
}

// ReturnBook closes a loan and parks the copy for inspection. A late return
// leaves the loan with an OVERDUE penalty.
func (s *LoanService) ReturnBook(ctx context.Context, loanID, memberID, copyID int64) (*models.Loan, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.penalties.freezeTx(ctx, tx, loanID); err != nil {
		return nil, err
	}

	loan, err := lockLoan(ctx, tx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.MemberID != memberID {
		return nil, newError(KindBadRequest, "loan %d does not belong to member %d", loanID, memberID)
	}
	if loan.CopyID != copyID {
		return nil, newError(KindBadRequest, "loan %d is not for copy %d", loanID, copyID)
	}
	if loan.ReturnDate != nil {
		return nil, newError(KindAlreadyExists, "loan %d already returned", loanID)
	}

	now := s.clock.Now()
	loan.ReturnDate = &now
	loan.Status = models.LoanReturned
	if err := saveLoan(ctx, tx, loan, now); err != nil {
		return nil, err
	}

	if now.After(loan.DueDate) {
		existing, err := penaltyForLoan(ctx, tx, loanID)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			penalty, err := s.penalties.createForLoanTx(ctx, tx, loan, models.PenaltyOverdue)
			if err != nil {
				return nil, err
			}
			log.Printf("[LOAN] Loan %d returned late, penalty %d of %s", loanID, penalty.ID, penalty.Amount)
		}
	}

	c, err := lockCopy(ctx, tx, copyID)
	if err != nil {
		return nil, err
	}
	from := c.Status
	c.Status = models.CopyReturnedPendingCheck
	if err := saveCopy(ctx, tx, c, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	log.Printf("[LOAN] Loan %d returned by member %d", loanID, memberID)
	s.audit.LogTransition("copy", c.ID, string(from), string(c.Status), map[string]any{"loan_id": loanID})
	return loan, nil
}

// CheckOverdueLoans flags every open ACTIVE loan past its due date as OVERDUE.
func (s *LoanService) CheckOverdueLoans(ctx context.Context) (int64, error) {
	now := s.clock.Now()
	res, err := s.db.ExecContext(ctx, `
		UPDATE loans
		SET status = $1, version = version + 1, updated_at = $2
		WHERE status = $3 AND due_date < $2 AND return_date IS NULL AND deleted = false`,
		models.LoanOverdue, now, models.LoanActive)
	if err != nil {
		return 0, dbError(err, "flag overdue loans")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Printf("[LOAN] Marked %d loans overdue", n)
	}
	return n, nil
}

func (s *LoanService) GetLoan(ctx context.Context, id int64) (*models.Loan, error) {
	var l models.Loan
	err := s.db.GetContext(ctx, &l, `SELECT `+loanColumns+` FROM loans WHERE id = $1 AND deleted = false`, id)
	if isNoRows(err) {
		return nil, newError(KindNotFound, "loan %d not found", id)
	}
	if err != nil {
		return nil, dbError(err, "load loan")
	}
	return &l, nil
}
