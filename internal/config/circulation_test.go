package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestLoadCirculationConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		viper.Reset()

		cfg := LoadCirculationConfig()

		assert.Equal(t, 14*24*time.Hour, cfg.LoanDuration)
		assert.True(t, decimal.NewFromInt(3000).Equal(cfg.DailyFee))
		assert.True(t, decimal.RequireFromString("0.3").Equal(cfg.DamageRate))
		assert.Equal(t, 24*time.Hour, cfg.PickupWindow)
		assert.Equal(t, 5*time.Minute, cfg.SweepIntervals.AssignCopies)
		assert.Equal(t, time.UTC, cfg.Location)
	})

	t.Run("overrides", func(t *testing.T) {
		viper.Reset()
		viper.Set("library.loan.duration_days", 7)
		viper.Set("library.penalty.daily_fee", "1500.50")
		viper.Set("library.loan.lock_timeout", "2s")

		cfg := LoadCirculationConfig()

		assert.Equal(t, 7*24*time.Hour, cfg.LoanDuration)
		assert.Equal(t, "1500.5", cfg.DailyFee.String())
		assert.Equal(t, 2*time.Second, cfg.LockTimeout)
	})

	t.Run("invalid values fall back", func(t *testing.T) {
		viper.Reset()
		viper.Set("library.penalty.daily_fee", "lots")
		viper.Set("library.timezone", "Nowhere/Atlantis")

		cfg := LoadCirculationConfig()

		assert.True(t, decimal.NewFromInt(3000).Equal(cfg.DailyFee))
		assert.Equal(t, time.UTC, cfg.Location)
	})
}

func TestInit_EnvironmentBindings(t *testing.T) {
	viper.Reset()
	t.Setenv("LIBRARY_PENALTY_DAILY_FEE", "2500")
	t.Setenv("LIBRARY_TIMEZONE", "Africa/Lagos")
	t.Setenv("DATABASE_DRIVER", "pgx")

	Init(t.TempDir() + "/missing.env")
	cfg := LoadCirculationConfig()

	assert.Equal(t, "2500", cfg.DailyFee.String())
	assert.Equal(t, "Africa/Lagos", cfg.Location.String())
	assert.Equal(t, "pgx", viper.GetString("database.driver"))
	assert.Equal(t, "8080", viper.GetString("server.port"))
}
