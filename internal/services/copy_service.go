package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/librahub/backend/internal/config"
	"github.com/librahub/backend/internal/models"
)

// CopyService owns the physical state and shelf location of book copies.
type CopyService struct {
	db        *sqlx.DB
	clock     Clock
	cfg       *config.CirculationConfig
	penalties *PenaltyService
	audit     *AuditLogger
}

func NewCopyService(db *sqlx.DB, clock Clock, cfg *config.CirculationConfig, penalties *PenaltyService, audit *AuditLogger) *CopyService {
	return &CopyService{db: db, clock: clock, cfg: cfg, penalties: penalties, audit: audit}
}

func generateBarcode(bookID int64) string {
	return fmt.Sprintf("BC-%d-%s", bookID, strings.ToUpper(uuid.NewString()[:8]))
}

// CreateForBook registers a new AVAILABLE copy of a book.
func (s *CopyService) CreateForBook(ctx context.Context, bookID int64) (*models.Copy, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var id int64
	err = tx.GetContext(ctx, &id, `SELECT id FROM books WHERE id = $1 AND deleted = false`, bookID)
	if isNoRows(err) {
		return nil, newError(KindNotFound, "book %d not found", bookID)
	}
	if err != nil {
		return nil, dbError(err, "load book")
	}

	now := s.clock.Now()
	c := &models.Copy{
		Barcode: generateBarcode(bookID),
		Status:  models.CopyAvailable,
		BookID:  bookID,
	}
	err = tx.QueryRowxContext(ctx, `
		INSERT INTO book_copies (barcode, status, book_id, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, 0)
		RETURNING id`,
		c.Barcode, c.Status, c.BookID, now, now).Scan(&c.ID)
	if err != nil {
		return nil, dbError(err, "insert copy")
	}
	c.CreatedAt, c.UpdatedAt = now, now

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	log.Printf("[COPY] Created copy %d (%s) for book %d", c.ID, c.Barcode, bookID)
	s.audit.LogOperation("COPY_CREATED", "copy", c.ID, map[string]any{"book_id": bookID, "barcode": c.Barcode})
	return c, nil
}

// AssignLocation shelves a copy. Lost and loaned copies cannot be relocated.
func (s *CopyService) AssignLocation(ctx context.Context, copyID, locationID int64) (*models.Copy, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	c, err := lockCopy(ctx, tx, copyID)
	if err != nil {
		return nil, err
	}

	switch c.Status {
	case models.CopyLost:
		return nil, newError(KindBadRequest, "a lost copy has no shelf")
	case models.CopyLoaned:
		return nil, newError(KindBadRequest, "no relocating a copy in circulation")
	}

	var id int64
	err = tx.GetContext(ctx, &id, `SELECT id FROM locations WHERE id = $1 AND deleted = false`, locationID)
	if isNoRows(err) {
		return nil, newError(KindNotFound, "location %d not found", locationID)
	}
	if err != nil {
		return nil, dbError(err, "load location")
	}

	c.LocationID = &locationID
	if err := saveCopy(ctx, tx, c, s.clock.Now()); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	log.Printf("[COPY] Copy %d moved to location %d", copyID, locationID)
	return c, nil
}

// InspectReturn settles a returned copy. A damaged copy is charged against
// its most recent loan.
func (s *CopyService) InspectReturn(ctx context.Context, copyID int64, damaged bool) (*models.Copy, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	c, err := lockCopy(ctx, tx, copyID)
	if err != nil {
		return nil, err
	}
	if c.Status != models.CopyReturnedPendingCheck {
		return nil, newError(KindIllegalState, "copy %d is %s, not awaiting inspection", copyID, c.Status)
	}

	from := c.Status
	if !damaged {
		c.Status = models.CopyAvailable
		if err := saveCopy(ctx, tx, c, s.clock.Now()); err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		s.audit.LogTransition("copy", c.ID, string(from), string(c.Status), nil)
		return c, nil
	}

	c.Status = models.CopyDamaged
	if err := saveCopy(ctx, tx, c, s.clock.Now()); err != nil {
		return nil, err
	}

	loan, err := latestLoanForCopy(ctx, tx, copyID)
	if err != nil {
		return nil, err
	}

	var penalty *models.Penalty
	if loan == nil {
		log.Printf("[COPY] Copy %d damaged with no loan on record, no fee charged", copyID)
	} else {
		book, err := loadBook(ctx, tx, c.BookID)
		if err != nil {
			return nil, err
		}
		fee := book.ReplacementCost.Mul(s.cfg.DamageRate).Round(2)
		penalty, err = s.penalties.applyDamageTx(ctx, tx, loan.ID, fee)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	details := map[string]any{}
	if penalty != nil {
		details["penalty_id"] = penalty.ID
		details["reason"] = penalty.Reason
		details["penalty_status"] = penalty.Status
		details["amount"] = penalty.Amount.String()
	}
	log.Printf("[COPY] Copy %d inspected as damaged", copyID)
	s.audit.LogTransition("copy", c.ID, string(from), string(c.Status), details)
	return c, nil
}

// MarkLost writes a copy off, closing its open loan and charging the
// replacement cost unless the loan is already penalised. A reserved copy
// was lost on the hold shelf, so its previous borrower is not charged.
func (s *CopyService) MarkLost(ctx context.Context, copyID int64) (*models.Copy, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	c, err := lockCopy(ctx, tx, copyID)
	if err != nil {
		return nil, err
	}

	switch c.Status {
	case models.CopyAvailable:
		return nil, newError(KindIllegalState, "copy %d is on the shelf", copyID)
	case models.CopyLost:
		return nil, newError(KindIllegalState, "copy %d is already lost", copyID)
	}

	now := s.clock.Now()
	from := c.Status

	if c.Status == models.CopyReserved {
		if err := s.requeueHolderTx(ctx, tx, c); err != nil {
			return nil, err
		}
	}

	loan, err := latestLoanForCopy(ctx, tx, copyID)
	if err != nil {
		return nil, err
	}
	if loan != nil && loan.IsOpen() {
		loan.ReturnDate = &now
		loan.Status = models.LoanLost
		if err := saveLoan(ctx, tx, loan, now); err != nil {
			return nil, err
		}
	}

	c.Status = models.CopyLost
	if err := saveCopy(ctx, tx, c, now); err != nil {
		return nil, err
	}

	var penalty *models.Penalty
	if loan != nil && from == models.CopyReserved {
		log.Printf("[COPY] Reserved copy %d lost after loan %d was closed, no fee charged", copyID, loan.ID)
	} else if loan != nil {
		existing, err := penaltyForLoan(ctx, tx, loan.ID)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			book, err := loadBook(ctx, tx, c.BookID)
			if err != nil {
				return nil, err
			}
			fee := book.ReplacementCost.Mul(s.cfg.LostRate).Round(2)
			penalty, err = s.penalties.createFixedTx(ctx, tx, loan.ID, models.PenaltyLost, fee)
			if err != nil {
				return nil, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	details := map[string]any{}
	if penalty != nil {
		details["penalty_id"] = penalty.ID
		details["amount"] = penalty.Amount.String()
	}
	log.Printf("[COPY] Copy %d marked lost", copyID)
	s.audit.LogTransition("copy", c.ID, string(from), string(c.Status), details)
	return c, nil
}

// requeueHolderTx puts the reservation holding a reserved copy back at the
// head of its book's queue.
func (s *CopyService) requeueHolderTx(ctx context.Context, tx *sqlx.Tx, c *models.Copy) error {
	held, err := heldReservation(ctx, tx, c.ID)
	if err != nil || held == nil {
		return err
	}

	now := s.clock.Now()
	head := 0
	held.Status = models.ReservationActive
	held.QueuePosition = &head
	held.ExpireDate = nil
	held.HeldCopyID = nil
	if err := saveReservation(ctx, tx, held, now); err != nil {
		return err
	}
	if _, err := reorderQueue(ctx, tx, held.BookID, now); err != nil {
		return err
	}

	log.Printf("[COPY] Reservation %d returned to queue head after copy %d was lost", held.ID, c.ID)
	return nil
}

// ListPendingInspection returns copies waiting for a post-return check, oldest first.
func (s *CopyService) ListPendingInspection(ctx context.Context) ([]models.Copy, error) {
	var copies []models.Copy
	err := s.db.SelectContext(ctx, &copies, `
		SELECT `+copyColumns+` FROM book_copies
		WHERE status = $1 AND deleted = false
		ORDER BY updated_at, id`, models.CopyReturnedPendingCheck)
	if err != nil {
		return nil, dbError(err, "list pending inspection")
	}
	return copies, nil
}

func (s *CopyService) GetCopy(ctx context.Context, copyID int64) (*models.Copy, error) {
	var c models.Copy
	err := s.db.GetContext(ctx, &c, `SELECT `+copyColumns+` FROM book_copies WHERE id = $1 AND deleted = false`, copyID)
	if isNoRows(err) {
		return nil, newError(KindNotFound, "copy %d not found", copyID)
	}
	if err != nil {
		return nil, dbError(err, "load copy")
	}
	return &c, nil
}
