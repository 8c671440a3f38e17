package config

import (
	"log"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type CirculationConfig struct {
	LoanDuration   time.Duration
	DailyFee       decimal.Decimal
	DamageRate     decimal.Decimal
	LostRate       decimal.Decimal
	PickupWindow   time.Duration
	LockTimeout    time.Duration
	Location       *time.Location
	SweepLockTTL   time.Duration
	SweepIntervals SweepIntervals
}

type SweepIntervals struct {
	CheckOverdue    time.Duration
	CreatePenalties time.Duration
	IncrementDaily  time.Duration
	ExpirePickups   time.Duration
	AssignCopies    time.Duration
}

// LoadCirculationConfig reads the library.* keys, falling back to the defaults below.
func LoadCirculationConfig() *CirculationConfig {
	viper.SetDefault("library.loan.duration_days", 14)
	viper.SetDefault("library.penalty.daily_fee", "3000")
	viper.SetDefault("library.penalty.damage_rate", "0.3")
	viper.SetDefault("library.penalty.lost_rate", "1")
	viper.SetDefault("library.reservation.pickup_window", 24*time.Hour)
	viper.SetDefault("library.loan.lock_timeout", 5*time.Second)
	viper.SetDefault("library.timezone", "UTC")
	viper.SetDefault("library.sweep.lock_ttl", 10*time.Minute)
	viper.SetDefault("library.sweep.check_overdue", time.Hour)
	viper.SetDefault("library.sweep.create_penalties", time.Hour)
	viper.SetDefault("library.sweep.increment_daily", time.Hour)
	viper.SetDefault("library.sweep.expire_pickups", 10*time.Minute)
	viper.SetDefault("library.sweep.assign_copies", 5*time.Minute)

	loc, err := time.LoadLocation(viper.GetString("library.timezone"))
	if err != nil {
		log.Printf("[CONFIG] Unknown timezone %q, using UTC: %v", viper.GetString("library.timezone"), err)
		loc = time.UTC
	}

	return &CirculationConfig{
		LoanDuration: time.Duration(viper.GetInt("library.loan.duration_days")) * 24 * time.Hour,
		DailyFee:     getDecimal("library.penalty.daily_fee", decimal.NewFromInt(3000)),
		DamageRate:   getDecimal("library.penalty.damage_rate", decimal.New(3, -1)),
		LostRate:     getDecimal("library.penalty.lost_rate", decimal.NewFromInt(1)),
		PickupWindow: viper.GetDuration("library.reservation.pickup_window"),
		LockTimeout:  viper.GetDuration("library.loan.lock_timeout"),
		Location:     loc,
		SweepLockTTL: viper.GetDuration("library.sweep.lock_ttl"),
		SweepIntervals: SweepIntervals{
			CheckOverdue:    viper.GetDuration("library.sweep.check_overdue"),
			CreatePenalties: viper.GetDuration("library.sweep.create_penalties"),
			IncrementDaily:  viper.GetDuration("library.sweep.increment_daily"),
			ExpirePickups:   viper.GetDuration("library.sweep.expire_pickups"),
			AssignCopies:    viper.GetDuration("library.sweep.assign_copies"),
		},
	}
}

// DefaultCirculationConfig returns the built-in defaults without touching viper.
func DefaultCirculationConfig() *CirculationConfig {
	return &CirculationConfig{
		LoanDuration: 14 * 24 * time.Hour,
		DailyFee:     decimal.NewFromInt(3000),
		DamageRate:   decimal.New(3, -1),
		LostRate:     decimal.NewFromInt(1),
		PickupWindow: 24 * time.Hour,
		LockTimeout:  5 * time.Second,
		Location:     time.UTC,
		SweepLockTTL: 10 * time.Minute,
		SweepIntervals: SweepIntervals{
			CheckOverdue:    time.Hour,
			CreatePenalties: time.Hour,
			IncrementDaily:  time.Hour,
			ExpirePickups:   10 * time.Minute,
			AssignCopies:    5 * time.Minute,
		},
	}
}

func getDecimal(key string, defaultVal decimal.Decimal) decimal.Decimal {
	val, err := decimal.NewFromString(viper.GetString(key))
	if err != nil {
		log.Printf("[CONFIG] Invalid decimal for %s, using %s: %v", key, defaultVal, err)
		return defaultVal
	}
	return val
}
