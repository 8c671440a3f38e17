package services

import (
	"fmt"
	"os"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/librahub/backend/internal/config"
)

// Library wires the circulation services around one database handle.
type Library struct {
	Copies       *CopyService
	Loans        *LoanService
	Reservations *ReservationService
	Penalties    *PenaltyService
	Payments     *PaymentService
	Queries      *QueryService
	Labels       *LabelService
	Auth         *AuthService
	Scheduler    *Scheduler
}

// NewLibrary builds every service. redisClient may be nil, in which case
// sweeps run unlocked and labels are not cached.
func NewLibrary(db *sqlx.DB, redisClient *redis.Client, cfg *config.CirculationConfig, clock Clock) *Library {
	if clock == nil {
		clock = SystemClock{Location: cfg.Location}
	}
	audit := NewAuditLogger(clock)
	queries := NewQueryService(db)
	penalties := NewPenaltyService(db, clock, cfg, audit, queries)
	copies := NewCopyService(db, clock, cfg, penalties, audit)
	loans := NewLoanService(db, clock, cfg, penalties, audit)
	reservations := NewReservationService(db, clock, cfg, audit)

	var locker SweepLocker
	if redisClient != nil {
		host, _ := os.Hostname()
		locker = NewRedisSweepLocker(redisClient, fmt.Sprintf("%s:%d", host, os.Getpid()), cfg.SweepLockTTL)
	}

	return &Library{
		Copies:       copies,
		Loans:        loans,
		Reservations: reservations,
		Penalties:    penalties,
		Payments:     NewPaymentService(db, clock, audit),
		Queries:      queries,
		Labels:       NewLabelService(copies, redisClient),
		Auth:         NewAuthService(db, redisClient),
		Scheduler:    NewScheduler(clock, locker, DefaultSweeps(cfg, loans, penalties, reservations)...),
	}
}
