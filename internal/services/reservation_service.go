package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/librahub/backend/internal/config"
	"github.com/librahub/backend/internal/models"
)

// ReservationService keeps the per-book waiting lists.
type ReservationService struct {
	db    *sqlx.DB
	clock Clock
	cfg   *config.CirculationConfig
	audit *AuditLogger
}

func NewReservationService(db *sqlx.DB, clock Clock, cfg *config.CirculationConfig, audit *AuditLogger) *ReservationService {
	return &ReservationService{db: db, clock: clock, cfg: cfg, audit: audit}
}

// ReserveBook appends the member to the book's queue.
func (s *ReservationService) ReserveBook(ctx context.Context, bookID, memberID int64) (*models.Reservation, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := lockBook(ctx, tx, bookID); err != nil {
		return nil, err
	}
	if err := memberExists(ctx, tx, memberID); err != nil {
		return nil, err
	}

	var pending int
	err = tx.GetContext(ctx, &pending, `
		SELECT COUNT(*) FROM reservations
		WHERE book_id = $1 AND member_id = $2 AND status IN ($3, $4) AND deleted = false`,
		bookID, memberID, models.ReservationActive, models.ReservationAwaitingPickup)
	if err != nil {
		return nil, dbError(err, "check reservations")
	}
	if pending > 0 {
		return nil, newError(KindAlreadyExists, "member %d already has a reservation for book %d", memberID, bookID)
	}

	var openLoans int
	err = tx.GetContext(ctx, &openLoans, `
		SELECT COUNT(*) FROM loans l JOIN book_copies c ON c.id = l.copy_id
		WHERE c.book_id = $1 AND l.member_id = $2 AND l.return_date IS NULL AND l.deleted = false`,
		bookID, memberID)
	if err != nil {
		return nil, dbError(err, "check open loans")
	}
	if openLoans > 0 {
		return nil, newError(KindAlreadyExists, "member %d already has book %d on loan", memberID, bookID)
	}

	var existing int
	err = tx.GetContext(ctx, &existing, `SELECT COUNT(*) FROM reservations WHERE book_id = $1 AND deleted = false`, bookID)
	if err != nil {
		return nil, dbError(err, "count reservations")
	}

	now := s.clock.Now()
	position := existing + 1
	r := &models.Reservation{
		ReserveDate:   now,
		QueuePosition: &position,
		Status:        models.ReservationActive,
		MemberID:      memberID,
		BookID:        bookID,
	}
	err = tx.QueryRowxContext(ctx, `
		INSERT INTO reservations (reserve_date, queue_position, status, member_id, book_id, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0)
		RETURNING id`,
		r.ReserveDate, r.QueuePosition, r.Status, r.MemberID, r.BookID, now, now).Scan(&r.ID)
	if err != nil {
		return nil, dbError(err, "insert reservation")
	}
	r.CreatedAt, r.UpdatedAt = now, now

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	log.Printf("[RESERVATION] Member %d reserved book %d at position %d", memberID, bookID, position)
	s.audit.LogOperation("RESERVATION_CREATED", "reservation", r.ID, map[string]any{"book_id": bookID, "member_id": memberID, "position": position})
	return r, nil
}

// CancelReservation withdraws a reservation on behalf of its owner or staff.
func (s *ReservationService) CancelReservation(ctx context.Context, id int64, requester Requester) (*models.Reservation, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	r, err := lockReservation(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if !requester.CanActFor(r.MemberID) {
		return nil, newError(KindAccessDenied, "reservation %d belongs to another member", id)
	}
	if r.IsTerminal() {
		return nil, newError(KindIllegalState, "reservation %d is already %s", id, r.Status)
	}

	now := s.clock.Now()
	from := r.Status
	heldCopyID := r.HeldCopyID

	r.Status = models.ReservationCancelled
	r.QueuePosition = nil
	if err := saveReservation(ctx, tx, r, now); err != nil {
		return nil, err
	}

	if from == models.ReservationAwaitingPickup && heldCopyID != nil {
		if err := releaseHeldCopy(ctx, tx, *heldCopyID, now); err != nil {
			return nil, err
		}
	}

	if _, err := reorderQueue(ctx, tx, r.BookID, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	log.Printf("[RESERVATION] Reservation %d cancelled by %s", id, requester.Username)
	s.audit.LogTransition("reservation", r.ID, string(from), string(r.Status), map[string]any{"by": requester.MemberID})
	return r, nil
}

// releaseHeldCopy puts a copy set aside for pickup back on the shelf.
func releaseHeldCopy(ctx context.Context, tx *sqlx.Tx, copyID int64, now time.Time) error {
	c, err := lockCopy(ctx, tx, copyID)
	if err != nil {
		return err
	}
	if c.Status != models.CopyReserved {
		return nil
	}
	c.Status = models.CopyAvailable
	return saveCopy(ctx, tx, c, now)
}

// ReorderQueue renumbers the book's ACTIVE reservations to 1..N.
func (s *ReservationService) ReorderQueue(ctx context.Context, bookID int64) ([]models.Reservation, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := lockBook(ctx, tx, bookID); err != nil {
		return nil, err
	}

	queue, err := reorderQueue(ctx, tx, bookID, s.clock.Now())
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return queue, nil
}

// ExpireReadyForPickupReservations expires pickups past their window and
// returns their copies to the shelf.
func (s *ReservationService) ExpireReadyForPickupReservations(ctx context.Context) (int64, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	now := s.clock.Now()
	var expired []models.Reservation
	err = tx.SelectContext(ctx, &expired, `
		SELECT `+reservationColumns+` FROM reservations
		WHERE status = $1 AND expire_date < $2 AND deleted = false
		ORDER BY expire_date, id
		FOR UPDATE`, models.ReservationAwaitingPickup, now)
	if err != nil {
		return 0, dbError(err, "load expired pickups")
	}

	for i := range expired {
		r := &expired[i]
		heldCopyID := r.HeldCopyID
		r.Status = models.ReservationExpired
		if err := saveReservation(ctx, tx, r, now); err != nil {
			return 0, err
		}
		if heldCopyID != nil {
			if err := releaseHeldCopy(ctx, tx, *heldCopyID, now); err != nil {
				return 0, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	for _, r := range expired {
		s.audit.LogTransition("reservation", r.ID, string(models.ReservationAwaitingPickup), string(r.Status), nil)
	}
	if len(expired) > 0 {
		log.Printf("[RESERVATION] Expired %d uncollected reservations", len(expired))
	}
	return int64(len(expired)), nil
}

// AssignAvailableCopiesToReservations hands every AVAILABLE copy to the head
// of its book's queue. Each copy is handled in its own transaction.
func (s *ReservationService) AssignAvailableCopiesToReservations(ctx context.Context) (int64, error) {
	var copyIDs []int64
	err := s.db.SelectContext(ctx, &copyIDs, `
		SELECT id FROM book_copies
		WHERE status = $1 AND deleted = false
		ORDER BY id`, models.CopyAvailable)
	if err != nil {
		return 0, dbError(err, "list available copies")
	}

	var assigned int64
	var errs []error
	for _, copyID := range copyIDs {
		ok, err := s.assignCopy(ctx, copyID)
		if err != nil {
			log.Printf("[RESERVATION] Failed to assign copy %d: %v", copyID, err)
			errs = append(errs, err)
			continue
		}
		if ok {
			assigned++
		}
	}

	if assigned > 0 {
		log.Printf("[RESERVATION] Assigned %d copies to waiting members", assigned)
	}
	return assigned, errors.Join(errs...)
}

func (s *ReservationService) assignCopy(ctx context.Context, copyID int64) (bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var c models.Copy
	err = tx.GetContext(ctx, &c, `
		SELECT `+copyColumns+` FROM book_copies
		WHERE id = $1 AND status = $2 AND deleted = false
		FOR UPDATE SKIP LOCKED`, copyID, models.CopyAvailable)
	if isNoRows(err) {
		return false, nil
	}
	if err != nil {
		return false, dbError(err, "lock available copy")
	}

	queue, err := activeQueue(ctx, tx, c.BookID)
	if err != nil {
		return false, err
	}
	if len(queue) == 0 {
		return false, nil
	}

	now := s.clock.Now()
	c.Status = models.CopyReserved
	if err := saveCopy(ctx, tx, &c, now); err != nil {
		return false, err
	}

	head := &queue[0]
	expire := now.Add(s.cfg.PickupWindow)
	head.Status = models.ReservationAwaitingPickup
	head.ExpireDate = &expire
	head.QueuePosition = nil
	head.HeldCopyID = &c.ID
	if err := saveReservation(ctx, tx, head, now); err != nil {
		return false, err
	}

	if _, err := reorderQueue(ctx, tx, c.BookID, now); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}

	log.Printf("[RESERVATION] Copy %d held for reservation %d until %s", c.ID, head.ID, expire.Format("2006-01-02 15:04"))
	s.audit.LogTransition("reservation", head.ID, string(models.ReservationActive), string(head.Status), map[string]any{"copy_id": c.ID})
	return true, nil
}

func (s *ReservationService) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	var r models.Reservation
	err := s.db.GetContext(ctx, &r, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1 AND deleted = false`, id)
	if isNoRows(err) {
		return nil, newError(KindNotFound, "reservation %d not found", id)
	}
	if err != nil {
		return nil, dbError(err, "load reservation")
	}
	return &r, nil
}
