package models

import "time"

// Base holds the bookkeeping columns every table carries.
type Base struct {
	ID        int64      `json:"id" db:"id"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	Version   int        `json:"version" db:"version"` // for optimistic locking
	Deleted   bool       `json:"-" db:"deleted"`
	DeletedAt *time.Time `json:"-" db:"deleted_at"`
}
