package models

import (
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Book is catalog data; the circulation engine only reads it.
type Book struct {
	Base
	Title           string          `json:"title" db:"title"`
	Author          string          `json:"author" db:"author"`
	ISBN            string          `json:"isbn" db:"isbn"`
	ReplacementCost decimal.Decimal `json:"replacement_cost" db:"replacement_cost"`
}

// Location is a shelf slot a copy can be assigned to.
type Location struct {
	Base
	Section string `json:"section" db:"section"`
	Shelf   string `json:"shelf" db:"shelf"`
	Row     int    `json:"row" db:"row"`
}

// Roles
const (
	RoleMember    = "MEMBER"
	RoleLibrarian = "LIBRARIAN"
	RoleAdmin     = "ADMIN"
)

// Member is a registered library patron or staff account.
type Member struct {
	Base
	FirstName    string         `json:"first_name" db:"first_name"`
	LastName     string         `json:"last_name" db:"last_name"`
	Username     string         `json:"username" db:"username"`
	PasswordHash string         `json:"-" db:"password_hash"`
	Roles        pq.StringArray `json:"roles" db:"roles"`
}
