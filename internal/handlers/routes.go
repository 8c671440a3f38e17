package handlers

import (
	"github.com/go-chi/chi/v5"
	mW "github.com/librahub/backend/internal/middleware"
	"github.com/librahub/backend/internal/services"
)

// Mount registers the /api/v1 routes of lib on r.
func Mount(r chi.Router, lib *services.Library) {
	copies := NewCopyHandler(lib.Copies, lib.Queries, lib.Labels)
	loans := NewLoanHandler(lib.Loans, lib.Queries)
	reservations := NewReservationHandler(lib.Reservations, lib.Queries)
	penalties := NewPenaltyHandler(lib.Penalties, lib.Payments, lib.Loans, lib.Queries)
	admin := NewAdminHandler(lib.Scheduler)

	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints (no auth required)
		r.Post("/auth/register", lib.Auth.Register)
		r.Post("/auth/login", lib.Auth.Login)
		r.Post("/auth/logout", lib.Auth.Logout)

		// Protected endpoints (auth required)
		r.Group(func(r chi.Router) {
			r.Use(mW.AuthMiddleware)

			r.Get("/copies", copies.ListCopies)
			r.Get("/copies/{copyId}/label", copies.Label)

			r.Post("/loans", loans.Borrow)
			r.Get("/loans", loans.ListLoans)
			r.Get("/loans/{loanId}", loans.GetLoan)
			r.Post("/loans/{loanId}/return", loans.Return)

			r.Post("/books/{bookId}/reservations", reservations.Reserve)
			r.Get("/reservations", reservations.ListReservations)
			r.Delete("/reservations/{reservationId}", reservations.Cancel)

			r.Get("/penalties", penalties.ListPenalties)
			r.Get("/penalties/{penaltyId}", penalties.GetPenalty)
			r.Post("/penalties/{penaltyId}/payments", penalties.PayPenalty)
			r.Get("/payments", penalties.ListPayments)
			r.Get("/payments/{paymentId}", penalties.GetPayment)

			// Staff endpoints
			r.Group(func(r chi.Router) {
				r.Use(mW.RequireStaff)

				r.Post("/books/{bookId}/copies", copies.CreateCopy)
				r.Get("/copies/pending-inspection", copies.PendingInspection)
				r.Put("/copies/{copyId}/location", copies.AssignLocation)
				r.Post("/copies/{copyId}/inspection", copies.InspectCopy)
				r.Post("/copies/{copyId}/lost", copies.MarkLost)

				r.Post("/books/{bookId}/reservations/reorder", reservations.Reorder)
				r.Post("/penalties", penalties.CreatePenalty)
				r.Post("/admin/sweeps/run", admin.RunSweeps)
			})
		})
	})
}
