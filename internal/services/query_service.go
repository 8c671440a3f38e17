package services

import (
	"context"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"
	"github.com/librahub/backend/internal/models"
)

const (
	dialectPostgres = "postgres"
	defaultPageSize = 50
	maxPageSize     = 200
)

// Page bounds a listing. Zero Limit means the default page size.
type Page struct {
	Limit  uint `json:"limit"`
	Offset uint `json:"offset"`
}

func (p Page) limit() uint {
	switch {
	case p.Limit == 0:
		return defaultPageSize
	case p.Limit > maxPageSize:
		return maxPageSize
	}
	return p.Limit
}

type LoanFilter struct {
	MemberID *int64
	CopyID   *int64
	Status   models.LoanStatus
	Page
}

type PenaltyFilter struct {
	MemberID *int64
	LoanID   *int64
	Status   models.PenaltyStatus
	Page
}

type ReservationFilter struct {
	MemberID *int64
	BookID   *int64
	Status   models.ReservationStatus
	Page
}

type CopyFilter struct {
	BookID  *int64
	Status  models.CopyStatus
	Keyword string
	Page
}

type PaymentFilter struct {
	MemberID *int64
	Method   models.PaymentMethod
	Page
}

// QueryService serves the read side: filtered, paged listings of core entities.
type QueryService struct {
	db      *sqlx.DB
	builder goqu.DialectWrapper
}

func NewQueryService(db *sqlx.DB) *QueryService {
	return &QueryService{db: db, builder: goqu.Dialect(dialectPostgres)}
}

func (s *QueryService) from(table, columns string) *goqu.SelectDataset {
	return s.builder.From(table).
		Select(columnList(columns)...).
		Where(goqu.Ex{"deleted": false})
}

func (s *QueryService) run(ctx context.Context, dest any, ds *goqu.SelectDataset, page Page) error {
	query, _, err := ds.Limit(page.limit()).Offset(page.Offset).ToSQL()
	if err != nil {
		return err
	}
	return dbError(s.db.SelectContext(ctx, dest, query), "list")
}

func (s *QueryService) ListLoans(ctx context.Context, f LoanFilter) ([]models.Loan, error) {
	ds := s.from("loans", loanColumns)
	if f.MemberID != nil {
		ds = ds.Where(goqu.Ex{"member_id": *f.MemberID})
	}
	if f.CopyID != nil {
		ds = ds.Where(goqu.Ex{"copy_id": *f.CopyID})
	}
	if f.Status != "" {
		ds = ds.Where(goqu.Ex{"status": string(f.Status)})
	}

	loans := []models.Loan{}
	if err := s.run(ctx, &loans, ds.Order(goqu.I("loan_date").Desc(), goqu.I("id").Desc()), f.Page); err != nil {
		return nil, err
	}
	return loans, nil
}

func (s *QueryService) ListPenalties(ctx context.Context, f PenaltyFilter) ([]models.Penalty, error) {
	ds := s.from("penalties", penaltyColumns)
	if f.MemberID != nil {
		memberLoans := s.builder.From("loans").
			Select("id").
			Where(goqu.Ex{"member_id": *f.MemberID, "deleted": false})
		ds = ds.Where(goqu.I("loan_id").In(memberLoans))
	}
	if f.LoanID != nil {
		ds = ds.Where(goqu.Ex{"loan_id": *f.LoanID})
	}
	if f.Status != "" {
		ds = ds.Where(goqu.Ex{"status": string(f.Status)})
	}

	penalties := []models.Penalty{}
	if err := s.run(ctx, &penalties, ds.Order(goqu.I("created_at").Desc(), goqu.I("id").Desc()), f.Page); err != nil {
		return nil, err
	}
	return penalties, nil
}

func (s *QueryService) ListReservations(ctx context.Context, f ReservationFilter) ([]models.Reservation, error) {
	ds := s.from("reservations", reservationColumns)
	if f.MemberID != nil {
		ds = ds.Where(goqu.Ex{"member_id": *f.MemberID})
	}
	if f.BookID != nil {
		ds = ds.Where(goqu.Ex{"book_id": *f.BookID})
	}
	if f.Status != "" {
		ds = ds.Where(goqu.Ex{"status": string(f.Status)})
	}

	reservations := []models.Reservation{}
	order := []exp.OrderedExpression{goqu.I("book_id").Asc(), goqu.I("queue_position").Asc().NullsLast(), goqu.I("reserve_date").Asc(), goqu.I("id").Asc()}
	if err := s.run(ctx, &reservations, ds.Order(order...), f.Page); err != nil {
		return nil, err
	}
	return reservations, nil
}

func (s *QueryService) ListCopies(ctx context.Context, f CopyFilter) ([]models.Copy, error) {
	ds := s.from("book_copies", copyColumns)
	if f.BookID != nil {
		ds = ds.Where(goqu.Ex{"book_id": *f.BookID})
	}
	if f.Status != "" {
		ds = ds.Where(goqu.Ex{"status": string(f.Status)})
	}
	if f.Keyword != "" {
		ds = ds.Where(goqu.I("barcode").ILike("%" + f.Keyword + "%"))
	}

	copies := []models.Copy{}
	if err := s.run(ctx, &copies, ds.Order(goqu.I("id").Asc()), f.Page); err != nil {
		return nil, err
	}
	return copies, nil
}

func (s *QueryService) ListPayments(ctx context.Context, f PaymentFilter) ([]models.Payment, error) {
	ds := s.from("payments", paymentColumns)
	if f.MemberID != nil {
		ds = ds.Where(goqu.Ex{"member_id": *f.MemberID})
	}
	if f.Method != "" {
		ds = ds.Where(goqu.Ex{"method": string(f.Method)})
	}

	payments := []models.Payment{}
	if err := s.run(ctx, &payments, ds.Order(goqu.I("payment_date").Desc(), goqu.I("id").Desc()), f.Page); err != nil {
		return nil, err
	}
	return payments, nil
}
