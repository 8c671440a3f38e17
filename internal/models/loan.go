package models

import "time"

type LoanStatus string

const (
	LoanActive   LoanStatus = "ACTIVE"
	LoanOverdue  LoanStatus = "OVERDUE"
	LoanReturned LoanStatus = "RETURNED"
	LoanLost     LoanStatus = "LOST"
)

// Loan is a time-bounded borrowing of one copy by one member.
type Loan struct {
	Base
	LoanDate   time.Time  `json:"loan_date" db:"loan_date"`
	DueDate    time.Time  `json:"due_date" db:"due_date"`
	ReturnDate *time.Time `json:"return_date,omitempty" db:"return_date"`
	Status     LoanStatus `json:"status" db:"status"`
	MemberID   int64      `json:"member_id" db:"member_id"`
	CopyID     int64      `json:"copy_id" db:"copy_id"`
}

// IsOpen reports whether the copy is still out with the member.
func (l *Loan) IsOpen() bool {
	return l.ReturnDate == nil
}
