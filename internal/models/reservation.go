package models

import "time"

type ReservationStatus string

const (
	ReservationActive         ReservationStatus = "ACTIVE"
	ReservationAwaitingPickup ReservationStatus = "AWAITING_PICKUP"
	ReservationCompleted      ReservationStatus = "COMPLETED"
	ReservationCancelled      ReservationStatus = "CANCELLED"
	ReservationExpired        ReservationStatus = "EXPIRED"
)

// Reservation is a queued claim on a Book. QueuePosition is only set while ACTIVE;
// HeldCopyID is only set while AWAITING_PICKUP.
type Reservation struct {
	Base
	ReserveDate   time.Time         `json:"reserve_date" db:"reserve_date"`
	ExpireDate    *time.Time        `json:"expire_date,omitempty" db:"expire_date"`
	QueuePosition *int              `json:"queue_position,omitempty" db:"queue_position"`
	Status        ReservationStatus `json:"status" db:"status"`
	MemberID      int64             `json:"member_id" db:"member_id"`
	BookID        int64             `json:"book_id" db:"book_id"`
	HeldCopyID    *int64            `json:"held_copy_id,omitempty" db:"held_copy_id"`
}

// IsTerminal reports whether the reservation can no longer change state.
func (r *Reservation) IsTerminal() bool {
	switch r.Status {
	case ReservationCompleted, ReservationCancelled, ReservationExpired:
		return true
	}
	return false
}
