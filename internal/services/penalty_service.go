package services

import (
	"context"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/librahub/backend/internal/config"
	"github.com/librahub/backend/internal/models"
	"github.com/shopspring/decimal"
)

// PenaltyService computes, accrues and freezes the fine attached to a loan.
type PenaltyService struct {
	db      *sqlx.DB
	clock   Clock
	cfg     *config.CirculationConfig
	audit   *AuditLogger
	queries *QueryService
}

func NewPenaltyService(db *sqlx.DB, clock Clock, cfg *config.CirculationConfig, audit *AuditLogger, queries *QueryService) *PenaltyService {
	return &PenaltyService{db: db, clock: clock, cfg: cfg, audit: audit, queries: queries}
}

// daysBetween counts whole 24-hour periods from due to effective, truncated toward zero.
func daysBetween(due, effective time.Time) int64 {
	return int64(effective.Sub(due) / (24 * time.Hour))
}

// CalculateAmount returns dailyFee × max(1, daysBetween(due, effective)).
func (s *PenaltyService) CalculateAmount(due, effective time.Time) decimal.Decimal {
	days := daysBetween(due, effective)
	if days < 1 {
		days = 1
	}
	return s.cfg.DailyFee.Mul(decimal.NewFromInt(days))
}

// CreatePenaltyForReason attaches a penalty to a loan, sized by its overdue days.
func (s *PenaltyService) CreatePenaltyForReason(ctx context.Context, loanID int64, reason models.PenaltyReason) (*models.Penalty, error) {
	if !reason.IsValid() {
		return nil, newError(KindBadRequest, "unknown penalty reason %q", reason)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	loan, err := lockLoan(ctx, tx, loanID)
	if err != nil {
		return nil, err
	}

	existing, err := penaltyForLoan(ctx, tx, loanID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, newError(KindAlreadyExists, "loan %d already has a penalty", loanID)
	}

	penalty, err := s.createForLoanTx(ctx, tx, loan, reason)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	log.Printf("[PENALTY] Created %s penalty %d for loan %d: %s", reason, penalty.ID, loanID, penalty.Amount)
	s.audit.LogOperation("PENALTY_CREATED", "penalty", penalty.ID, map[string]any{
		"loan_id": loanID, "reason": reason, "amount": penalty.Amount.String(),
	})
	return penalty, nil
}

// createForLoanTx inserts a penalty valued from the loan's due date to its
// return date, or to now while the loan is still open.
func (s *PenaltyService) createForLoanTx(ctx context.Context, tx *sqlx.Tx, loan *models.Loan, reason models.PenaltyReason) (*models.Penalty, error) {
	now := s.clock.Now()
	effective := now
	if loan.ReturnDate != nil {
		effective = *loan.ReturnDate
	}

	penalty := &models.Penalty{
		Amount:           s.CalculateAmount(loan.DueDate, effective),
		Reason:           reason,
		Status:           models.PenaltyUnpaid,
		LastCalculatedAt: &now,
		LoanID:           loan.ID,
	}
	if err := insertPenalty(ctx, tx, penalty, now); err != nil {
		return nil, err
	}
	return penalty, nil
}

// createFixedTx inserts a penalty with a precomputed amount, used for damage and loss fees.
func (s *PenaltyService) createFixedTx(ctx context.Context, tx *sqlx.Tx, loanID int64, reason models.PenaltyReason, amount decimal.Decimal) (*models.Penalty, error) {
	now := s.clock.Now()
	penalty := &models.Penalty{
		Amount:           amount,
		Reason:           reason,
		Status:           models.PenaltyUnpaid,
		LastCalculatedAt: &now,
		LoanID:           loanID,
	}
	if err := insertPenalty(ctx, tx, penalty, now); err != nil {
		return nil, err
	}
	return penalty, nil
}

// applyDamageTx charges the damage fee against a loan. An existing OVERDUE
// penalty absorbs the fee: unpaid it grows by the fee, settled or waived it
// reopens as UNPAID for the fee alone. A penalty that already covers damage
// or loss is left untouched.
func (s *PenaltyService) applyDamageTx(ctx context.Context, tx *sqlx.Tx, loanID int64, fee decimal.Decimal) (*models.Penalty, error) {
	existing, err := penaltyForLoan(ctx, tx, loanID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return s.createFixedTx(ctx, tx, loanID, models.PenaltyDamaged, fee)
	}
	if existing.Reason != models.PenaltyOverdue {
		log.Printf("[PENALTY] Loan %d already carries a %s %s penalty, damage fee not applied", loanID, existing.Status, existing.Reason)
		return existing, nil
	}

	now := s.clock.Now()
	from := existing.Status
	settled := existing.Amount
	switch existing.Status {
	case models.PenaltyUnpaid:
		existing.Amount = existing.Amount.Add(fee)
		existing.Reason = models.PenaltyOverdueDamaged
	case models.PenaltyPaid:
		// payment_id keeps pointing at the settled overdue part until the fee is paid
		existing.Amount = fee
		existing.Reason = models.PenaltyOverdueDamaged
		existing.Status = models.PenaltyUnpaid
	case models.PenaltyCancelled:
		existing.Amount = fee
		existing.Reason = models.PenaltyDamaged
		existing.Status = models.PenaltyUnpaid
	}
	existing.LastCalculatedAt = &now
	if err := savePenalty(ctx, tx, existing, now); err != nil {
		return nil, err
	}

	if from != models.PenaltyUnpaid {
		log.Printf("[PENALTY] Penalty %d on loan %d reopened from %s (was %s) for damage fee %s", existing.ID, loanID, from, settled, fee)
	}
	return existing, nil
}

// AutoCreatePenaltiesForOverdueLoans gives every OVERDUE loan without a penalty an OVERDUE one.
func (s *PenaltyService) AutoCreatePenaltiesForOverdueLoans(ctx context.Context) (int64, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var loans []models.Loan
	err = tx.SelectContext(ctx, &loans, `
		SELECT `+qualify("l", loanColumns)+` FROM loans l
		WHERE l.status = $1 AND l.deleted = false
		AND NOT EXISTS (SELECT 1 FROM penalties p WHERE p.loan_id = l.id AND p.deleted = false)
		ORDER BY l.id`, models.LoanOverdue)
	if err != nil {
		return 0, dbError(err, "load overdue loans")
	}

	var created int64
	for i := range loans {
		_, err := s.createForLoanTx(ctx, tx, &loans[i], models.PenaltyOverdue)
		if KindOf(err) == KindAlreadyExists {
			continue
		}
		if err != nil {
			return 0, err
		}
		created++
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	if created > 0 {
		log.Printf("[PENALTY] Auto-created %d overdue penalties", created)
	}
	return created, nil
}

// IncrementDailyPenalties adds one daily fee to every UNPAID penalty on an
// OVERDUE loan not yet recalculated during the current calendar day.
func (s *PenaltyService) IncrementDailyPenalties(ctx context.Context) (int64, error) {
	now := s.clock.Now()
	today := startOfDay(now, s.cfg.Location)

	res, err := s.db.ExecContext(ctx, `
		UPDATE penalties p
		SET amount = p.amount + $1, last_calculated_at = $2, version = p.version + 1, updated_at = $2
		FROM loans l
		WHERE p.loan_id = l.id
		AND p.status = $3 AND l.status = $4
		AND p.deleted = false AND l.deleted = false
		AND (p.last_calculated_at IS NULL OR p.last_calculated_at < $5)`,
		s.cfg.DailyFee, now, models.PenaltyUnpaid, models.LoanOverdue, today)
	if err != nil {
		return 0, dbError(err, "increment penalties")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Printf("[PENALTY] Incremented %d penalties by %s", n, s.cfg.DailyFee)
	}
	return n, nil
}

// FreezePenaltyForLoan stamps the loan's UNPAID penalty as calculated now.
func (s *PenaltyService) FreezePenaltyForLoan(ctx context.Context, loanID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.freezeTx(ctx, tx, loanID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *PenaltyService) freezeTx(ctx context.Context, tx *sqlx.Tx, loanID int64) error {
	now := s.clock.Now()
	_, err := tx.ExecContext(ctx, `
		UPDATE penalties
		SET last_calculated_at = $1, version = version + 1, updated_at = $1
		WHERE loan_id = $2 AND status = $3 AND deleted = false`,
		now, loanID, models.PenaltyUnpaid)
	return dbError(err, "freeze penalty")
}

// HasUnpaidPenalties reports whether any of the member's loans carries an UNPAID penalty.
func (s *PenaltyService) HasUnpaidPenalties(ctx context.Context, memberID int64) (bool, error) {
	return hasUnpaidPenalties(ctx, s.db, memberID)
}

func hasUnpaidPenalties(ctx context.Context, q sqlx.QueryerContext, memberID int64) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, q, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM penalties p JOIN loans l ON l.id = p.loan_id
			WHERE l.member_id = $1 AND p.status = $2 AND p.deleted = false AND l.deleted = false
		)`, memberID, models.PenaltyUnpaid)
	if err != nil {
		return false, dbError(err, "check unpaid penalties")
	}
	return exists, nil
}

func (s *PenaltyService) GetPenalty(ctx context.Context, id int64) (*models.Penalty, error) {
	var p models.Penalty
	err := s.db.GetContext(ctx, &p, `SELECT `+penaltyColumns+` FROM penalties WHERE id = $1 AND deleted = false`, id)
	if isNoRows(err) {
		return nil, newError(KindNotFound, "penalty %d not found", id)
	}
	if err != nil {
		return nil, dbError(err, "load penalty")
	}
	return &p, nil
}

// ListByMember returns the member's penalties, newest first.
func (s *PenaltyService) ListByMember(ctx context.Context, memberID int64) ([]models.Penalty, error) {
	return s.queries.ListPenalties(ctx, PenaltyFilter{MemberID: &memberID})
}
