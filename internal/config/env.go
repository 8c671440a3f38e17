package config

import (
	"log"

	"github.com/spf13/viper"
)

var envBindings = map[string]string{
	"database.driver":   "DATABASE_DRIVER",
	"database.host":     "DATABASE_HOST",
	"database.port":     "DATABASE_PORT",
	"database.user":     "DATABASE_USER",
	"database.password": "DATABASE_PASSWORD",
	"database.name":     "DATABASE_NAME",
	"database.ssl_mode": "DATABASE_SSL_MODE",

	"redis.enabled":  "REDIS_ENABLED",
	"redis.host":     "REDIS_HOST",
	"redis.port":     "REDIS_PORT",
	"redis.password": "REDIS_PASSWORD",
	"redis.db":       "REDIS_DB",

	"jwt.secret_key":     "JWT_SECRET_KEY",
	"jwt.expiry_hours":   "JWT_EXPIRY_HOURS",
	"argon2.time":        "ARGON2_TIME",
	"argon2.memory":      "ARGON2_MEMORY",
	"argon2.threads":     "ARGON2_THREADS",
	"argon2.key_length":  "ARGON2_KEY_LENGTH",
	"argon2.salt_length": "ARGON2_SALT_LENGTH",

	"library.loan.duration_days":        "LIBRARY_LOAN_DURATION_DAYS",
	"library.loan.lock_timeout":         "LIBRARY_LOAN_LOCK_TIMEOUT",
	"library.penalty.daily_fee":         "LIBRARY_PENALTY_DAILY_FEE",
	"library.penalty.damage_rate":       "LIBRARY_PENALTY_DAMAGE_RATE",
	"library.penalty.lost_rate":         "LIBRARY_PENALTY_LOST_RATE",
	"library.reservation.pickup_window": "LIBRARY_RESERVATION_PICKUP_WINDOW",
	"library.timezone":                  "LIBRARY_TIMEZONE",
	"library.sweep.lock_ttl":            "LIBRARY_SWEEP_LOCK_TTL",
	"library.sweep.check_overdue":       "LIBRARY_SWEEP_CHECK_OVERDUE",
	"library.sweep.create_penalties":    "LIBRARY_SWEEP_CREATE_PENALTIES",
	"library.sweep.increment_daily":     "LIBRARY_SWEEP_INCREMENT_DAILY",
	"library.sweep.expire_pickups":      "LIBRARY_SWEEP_EXPIRE_PICKUPS",
	"library.sweep.assign_copies":       "LIBRARY_SWEEP_ASSIGN_COPIES",

	"server.port": "PORT",
}

// Init reads the optional config file and binds every known key to its
// environment variable. Environment values win over the file.
func Init(file string) {
	viper.SetConfigFile(file)
	viper.AutomaticEnv()

	for key, env := range envBindings {
		viper.BindEnv(key, env)
	}
	viper.SetDefault("server.port", "8080")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}
}
