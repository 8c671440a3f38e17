package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "CASH"
	PaymentCard   PaymentMethod = "CARD"
	PaymentOnline PaymentMethod = "ONLINE"
)

// IsValid reports whether m is one of the accepted methods.
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentOnline:
		return true
	}
	return false
}

type PaymentPurpose string

const (
	PaymentForPenalty    PaymentPurpose = "PENALTY"
	PaymentForMembership PaymentPurpose = "MEMBERSHIP"
)

// Payment records money received from a member. The method is recorded only.
type Payment struct {
	Base
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	PaymentDate time.Time       `json:"payment_date" db:"payment_date"`
	Method      PaymentMethod   `json:"method" db:"method"`
	Purpose     PaymentPurpose  `json:"purpose" db:"purpose"`
	MemberID    int64           `json:"member_id" db:"member_id"`
}
