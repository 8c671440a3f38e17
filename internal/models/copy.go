package models

// CopyStatus is the physical state of a single book copy.
type CopyStatus string

const (
	CopyAvailable            CopyStatus = "AVAILABLE"
	CopyLoaned               CopyStatus = "LOANED"
	CopyReserved             CopyStatus = "RESERVED"
	CopyReturnedPendingCheck CopyStatus = "RETURNED_PENDING_CHECK"
	CopyDamaged              CopyStatus = "DAMAGED"
	CopyLost                 CopyStatus = "LOST"
)

// Copy represents one physical copy of a Book.
type Copy struct {
	Base
	Barcode    string     `json:"barcode" db:"barcode"`
	Status     CopyStatus `json:"status" db:"status"`
	BookID     int64      `json:"book_id" db:"book_id"`
	LocationID *int64     `json:"location_id,omitempty" db:"location_id"`
}
