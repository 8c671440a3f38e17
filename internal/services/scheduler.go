package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/librahub/backend/internal/config"
)

// Sweep names, in the order RunOnce executes them.
const (
	SweepCheckOverdue    = "check-overdue-loans"
	SweepCreatePenalties = "create-overdue-penalties"
	SweepIncrementDaily  = "increment-daily-penalties"
	SweepExpirePickups   = "expire-pickups"
	SweepAssignCopies    = "assign-available-copies"
)

type Sweep struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) (int64, error)
}

type SweepResult struct {
	Name     string `json:"name"`
	Affected int64  `json:"affected"`
	Skipped  bool   `json:"skipped,omitempty"`
	Error    string `json:"error,omitempty"`
}

// SweepLocker keeps two instances from running the same sweep at once.
type SweepLocker interface {
	Acquire(ctx context.Context, name string) (bool, error)
	Release(ctx context.Context, name string) error
}

// RedisSweepLocker holds sweep:lock:<name> with SETNX until the sweep ends or the TTL lapses.
type RedisSweepLocker struct {
	client *redis.Client
	owner  string
	ttl    time.Duration
}

func NewRedisSweepLocker(client *redis.Client, owner string, ttl time.Duration) *RedisSweepLocker {
	return &RedisSweepLocker{client: client, owner: owner, ttl: ttl}
}

func sweepLockKey(name string) string {
	return fmt.Sprintf("sweep:lock:%s", name)
}

func (l *RedisSweepLocker) Acquire(ctx context.Context, name string) (bool, error) {
	return l.client.SetNX(ctx, sweepLockKey(name), l.owner, l.ttl).Result()
}

// releaseSweepLock deletes the lock only while it still carries our owner value.
var releaseSweepLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Release drops the lock unless the TTL lapsed and another instance took it over.
func (l *RedisSweepLocker) Release(ctx context.Context, name string) error {
	deleted, err := releaseSweepLock.Run(ctx, l.client, []string{sweepLockKey(name)}, l.owner).Int64()
	if err != nil {
		return err
	}
	if deleted == 0 {
		log.Printf("[SCHEDULER] Lock for sweep %s no longer held by %s, left in place", name, l.owner)
	}
	return nil
}

// Scheduler drives the periodic sweeps in a fixed order.
type Scheduler struct {
	clock  Clock
	sweeps []Sweep
	locker SweepLocker
}

func NewScheduler(clock Clock, locker SweepLocker, sweeps ...Sweep) *Scheduler {
	return &Scheduler{clock: clock, sweeps: sweeps, locker: locker}
}

// DefaultSweeps wires the circulation sweeps with their configured intervals.
func DefaultSweeps(cfg *config.CirculationConfig, loans *LoanService, penalties *PenaltyService, reservations *ReservationService) []Sweep {
	return []Sweep{
		{Name: SweepCheckOverdue, Interval: cfg.SweepIntervals.CheckOverdue, Run: loans.CheckOverdueLoans},
		{Name: SweepCreatePenalties, Interval: cfg.SweepIntervals.CreatePenalties, Run: penalties.AutoCreatePenaltiesForOverdueLoans},
		{Name: SweepIncrementDaily, Interval: cfg.SweepIntervals.IncrementDaily, Run: penalties.IncrementDailyPenalties},
		{Name: SweepExpirePickups, Interval: cfg.SweepIntervals.ExpirePickups, Run: reservations.ExpireReadyForPickupReservations},
		{Name: SweepAssignCopies, Interval: cfg.SweepIntervals.AssignCopies, Run: reservations.AssignAvailableCopiesToReservations},
	}
}

func (s *Scheduler) Sweeps() []Sweep {
	return s.sweeps
}

// RunOnce runs the named sweeps, or all of them, in order. A failing sweep
// does not stop the rest; failures are joined into the returned error.
func (s *Scheduler) RunOnce(ctx context.Context, names ...string) ([]SweepResult, error) {
	selected, err := s.selectSweeps(names)
	if err != nil {
		return nil, err
	}

	results := make([]SweepResult, 0, len(selected))
	var errs []error
	for _, sweep := range selected {
		res, err := s.runSweep(ctx, sweep)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", sweep.Name, err))
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}

func (s *Scheduler) selectSweeps(names []string) ([]Sweep, error) {
	if len(names) == 0 {
		return s.sweeps, nil
	}
	known := make(map[string]bool, len(s.sweeps))
	for _, sweep := range s.sweeps {
		known[sweep.Name] = true
	}
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		if !known[n] {
			return nil, newError(KindBadRequest, "unknown sweep %q", n)
		}
		wanted[n] = true
	}
	var selected []Sweep
	for _, sweep := range s.sweeps {
		if wanted[sweep.Name] {
			selected = append(selected, sweep)
		}
	}
	return selected, nil
}

func (s *Scheduler) runSweep(ctx context.Context, sweep Sweep) (SweepResult, error) {
	res := SweepResult{Name: sweep.Name}

	if s.locker != nil {
		ok, err := s.locker.Acquire(ctx, sweep.Name)
		if err != nil {
			log.Printf("[SCHEDULER] Sweep lock unavailable for %s, running unlocked: %v", sweep.Name, err)
		} else if !ok {
			log.Printf("[SCHEDULER] Sweep %s already running elsewhere, skipping", sweep.Name)
			res.Skipped = true
			return res, nil
		} else {
			defer func() {
				if err := s.locker.Release(ctx, sweep.Name); err != nil {
					log.Printf("[SCHEDULER] Failed to release lock for %s: %v", sweep.Name, err)
				}
			}()
		}
	}

	start := s.clock.Now()
	n, err := sweep.Run(ctx)
	res.Affected = n
	if err != nil {
		res.Error = err.Error()
		log.Printf("[SCHEDULER] Sweep %s failed: %v", sweep.Name, err)
		return res, err
	}
	log.Printf("[SCHEDULER] Sweep %s done: %d affected in %s", sweep.Name, n, s.clock.Now().Sub(start))
	return res, nil
}

// Run starts one ticker per sweep and blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, sweep := range s.sweeps {
		if sweep.Interval <= 0 {
			log.Printf("[SCHEDULER] Sweep %s has no interval, not scheduled", sweep.Name)
			continue
		}
		wg.Add(1)
		go func(sweep Sweep) {
			defer wg.Done()
			ticker := time.NewTicker(sweep.Interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					s.runSweep(ctx, sweep)
				}
			}
		}(sweep)
	}
	log.Printf("[SCHEDULER] Started %d sweeps", len(s.sweeps))
	wg.Wait()
	log.Printf("[SCHEDULER] Stopped")
}
