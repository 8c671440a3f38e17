package services

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Kind classifies a circulation failure so callers can react without string matching.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindAlreadyExists
	KindNotAvailable
	KindBadRequest
	KindIllegalState
	KindAccessDenied
	KindLockTimeout
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NOT_FOUND"
	case KindAlreadyExists:
		return "ALREADY_EXISTS"
	case KindNotAvailable:
		return "NOT_AVAILABLE"
	case KindBadRequest:
		return "BAD_REQUEST"
	case KindIllegalState:
		return "ILLEGAL_STATE"
	case KindAccessDenied:
		return "ACCESS_DENIED"
	case KindLockTimeout:
		return "LOCK_TIMEOUT"
	case KindConflict:
		return "CONFLICT"
	}
	return "INTERNAL"
}

// Error is the typed failure returned by every circulation operation.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	if e.Message == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound) works
// for every not-found failure regardless of its message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

var (
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrAlreadyExists = &Error{Kind: KindAlreadyExists}
	ErrNotAvailable  = &Error{Kind: KindNotAvailable}
	ErrBadRequest    = &Error{Kind: KindBadRequest}
	ErrIllegalState  = &Error{Kind: KindIllegalState}
	ErrAccessDenied  = &Error{Kind: KindAccessDenied}
	ErrLockTimeout   = &Error{Kind: KindLockTimeout}
	ErrConflict      = &Error{Kind: KindConflict}
)

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind carried by err, or KindInternal for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus maps an error to the status code handlers answer with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindAlreadyExists, KindNotAvailable, KindIllegalState, KindConflict:
		return http.StatusConflict
	case KindBadRequest:
		return http.StatusBadRequest
	case KindAccessDenied:
		return http.StatusForbidden
	case KindLockTimeout:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// Postgres SQLSTATE codes the engine reacts to.
const (
	pgUniqueViolation  = "23505"
	pgLockNotAvailable = "55P03"
)

func pgCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// dbError translates driver failures into typed errors and wraps everything else.
func dbError(err error, op string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	switch pgCode(err) {
	case pgLockNotAvailable:
		return &Error{Kind: KindLockTimeout, Message: op + ": row is locked, retry later", Err: err}
	case pgUniqueViolation:
		return &Error{Kind: KindAlreadyExists, Message: op + ": duplicate row", Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
