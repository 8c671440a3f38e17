package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PenaltyReason string

const (
	PenaltyOverdue        PenaltyReason = "OVERDUE"
	PenaltyLost           PenaltyReason = "LOST"
	PenaltyDamaged        PenaltyReason = "DAMAGED"
	PenaltyOverdueDamaged PenaltyReason = "OVERDUE_DAMAGED"
)

// IsValid reports whether r is one of the known reasons.
func (r PenaltyReason) IsValid() bool {
	switch r {
	case PenaltyOverdue, PenaltyLost, PenaltyDamaged, PenaltyOverdueDamaged:
		return true
	}
	return false
}

type PenaltyStatus string

const (
	PenaltyUnpaid    PenaltyStatus = "UNPAID"
	PenaltyPaid      PenaltyStatus = "PAID"
	PenaltyCancelled PenaltyStatus = "CANCELLED"
)

// Penalty is the single fine attached to a loan.
type Penalty struct {
	Base
	Amount           decimal.Decimal `json:"amount" db:"amount"`
	Reason           PenaltyReason   `json:"reason" db:"reason"`
	Status           PenaltyStatus   `json:"status" db:"status"`
	LastCalculatedAt *time.Time      `json:"last_calculated_at,omitempty" db:"last_calculated_at"`
	LoanID           int64           `json:"loan_id" db:"loan_id"`
	PaymentID        *int64          `json:"payment_id,omitempty" db:"payment_id"`
}
