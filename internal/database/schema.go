package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
)

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

const baseColumns = `
    id BIGSERIAL PRIMARY KEY,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    version INTEGER NOT NULL DEFAULT 0,
    deleted BOOLEAN NOT NULL DEFAULT false,
    deleted_at TIMESTAMPTZ`

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS members (` + baseColumns + `,
    first_name TEXT NOT NULL,
    last_name TEXT NOT NULL,
    username TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    roles TEXT[] NOT NULL DEFAULT '{MEMBER}'
)`,
	`CREATE TABLE IF NOT EXISTS books (` + baseColumns + `,
    title TEXT NOT NULL,
    author TEXT NOT NULL,
    isbn TEXT UNIQUE,
    replacement_cost NUMERIC(12,2) NOT NULL DEFAULT 0
)`,
	`CREATE TABLE IF NOT EXISTS locations (` + baseColumns + `,
    section TEXT NOT NULL,
    shelf TEXT NOT NULL,
    "row" INTEGER NOT NULL DEFAULT 0
)`,
	`CREATE TABLE IF NOT EXISTS book_copies (` + baseColumns + `,
    barcode TEXT NOT NULL UNIQUE,
    status TEXT NOT NULL,
    book_id BIGINT NOT NULL REFERENCES books(id),
    location_id BIGINT REFERENCES locations(id)
)`,
	`CREATE TABLE IF NOT EXISTS loans (` + baseColumns + `,
    loan_date TIMESTAMPTZ NOT NULL,
    due_date TIMESTAMPTZ NOT NULL,
    return_date TIMESTAMPTZ,
    status TEXT NOT NULL,
    member_id BIGINT NOT NULL REFERENCES members(id),
    copy_id BIGINT NOT NULL REFERENCES book_copies(id),
    CHECK ((return_date IS NULL) = (status IN ('ACTIVE', 'OVERDUE')))
)`,
	`CREATE TABLE IF NOT EXISTS reservations (` + baseColumns + `,
    reserve_date TIMESTAMPTZ NOT NULL,
    expire_date TIMESTAMPTZ,
    queue_position INTEGER,
    status TEXT NOT NULL,
    member_id BIGINT NOT NULL REFERENCES members(id),
    book_id BIGINT NOT NULL REFERENCES books(id),
    held_copy_id BIGINT REFERENCES book_copies(id)
)`,
	`CREATE TABLE IF NOT EXISTS payments (` + baseColumns + `,
    amount NUMERIC(12,2) NOT NULL,
    payment_date TIMESTAMPTZ NOT NULL,
    method TEXT NOT NULL,
    purpose TEXT NOT NULL,
    member_id BIGINT NOT NULL REFERENCES members(id)
)`,
	`CREATE TABLE IF NOT EXISTS penalties (` + baseColumns + `,
    amount NUMERIC(12,2) NOT NULL,
    reason TEXT NOT NULL,
    status TEXT NOT NULL,
    last_calculated_at TIMESTAMPTZ,
    loan_id BIGINT NOT NULL UNIQUE REFERENCES loans(id),
    payment_id BIGINT UNIQUE REFERENCES payments(id)
)`,
	`CREATE INDEX IF NOT EXISTS idx_book_copies_status ON book_copies (status) WHERE deleted = false`,
	`CREATE INDEX IF NOT EXISTS idx_loans_copy_loan_date ON loans (copy_id, loan_date DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_loans_open_due ON loans (due_date) WHERE return_date IS NULL AND deleted = false`,
	`CREATE INDEX IF NOT EXISTS idx_reservations_queue ON reservations (book_id, status, queue_position)`,
	`CREATE INDEX IF NOT EXISTS idx_penalties_status ON penalties (status) WHERE deleted = false`,
}

// Migrate creates the schema if it is older than schemaVersion.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_meta (key TEXT PRIMARY KEY, value INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_meta: %w", err)
	}

	var current int
	err := db.QueryRowContext(ctx, `SELECT value FROM schema_meta WHERE key = 'schema_version'`).Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read schema version: %w", err)
	}
	if current >= schemaVersion {
		log.Printf("[DATABASE] Schema up to date (version %d)", current)
		return nil
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO schema_meta (key, value) VALUES ('schema_version', $1)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	log.Printf("[DATABASE] Schema migrated from version %d to %d", current, schemaVersion)
	return nil
}
