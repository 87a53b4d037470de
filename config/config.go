// Package config loads service settings from the environment, optionally
// seeded from a .env file. Every setting has a default so the service runs
// against a local PostgreSQL with no configuration at all.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/Skryldev/user-records/db"
)

// Config is the full set of process settings.
type Config struct {
	// Store connection
	DBDriver   string
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Pool
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBQueryTimeout    time.Duration
	DBMonitorInterval time.Duration
	DBSlowQuery       time.Duration

	// HTTP
	Port            string
	RateLimitRPS    float64
	RateLimitBurst  int
	ShutdownTimeout time.Duration

	LogLevel slog.Level
}

// Load reads .env files (default ".env"; missing files are ignored) and then
// the process environment. Variables already set in the environment win
// over .env entries.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	var errs []error
	cfg := &Config{
		DBDriver:   GetEnvAsString("DB_DRIVER", "postgres"),
		DBHost:     GetEnvAsString("DB_HOST", "localhost"),
		DBPort:     getInt(&errs, "DB_PORT", 5432),
		DBUser:     GetEnvAsString("DB_USER", "postgres"),
		DBPassword: GetEnvAsString("DB_PASSWORD", "password"),
		DBName:     GetEnvAsString("DB_NAME", "test_db"),
		DBSSLMode:  GetEnvAsString("DB_SSLMODE", "disable"),

		DBMaxOpenConns:    getInt(&errs, "DB_MAX_OPEN_CONNS", 10),
		DBMaxIdleConns:    getInt(&errs, "DB_MAX_IDLE_CONNS", 5),
		DBConnMaxLifetime: getDuration(&errs, "DB_CONN_MAX_LIFETIME", 30*time.Minute),
		DBQueryTimeout:    getDuration(&errs, "DB_QUERY_TIMEOUT", 10*time.Second),
		DBMonitorInterval: getDuration(&errs, "DB_MONITOR_INTERVAL", 30*time.Second),
		DBSlowQuery:       getDuration(&errs, "DB_SLOW_QUERY_THRESHOLD", 200*time.Millisecond),

		Port:            GetEnvAsString("PORT", "3000"),
		RateLimitRPS:    getFloat(&errs, "RATE_LIMIT_RPS", 100),
		RateLimitBurst:  getInt(&errs, "RATE_LIMIT_BURST", 200),
		ShutdownTimeout: getDuration(&errs, "SHUTDOWN_TIMEOUT", 10*time.Second),
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(GetEnvAsString("LOG_LEVEL", "info"))); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string { return ":" + c.Port }

// DriverOptions returns the structured connection parameters for
// db.OpenWithDriver. For sqlite3, DBName is the database file path.
func (c *Config) DriverOptions() db.DriverOptions {
	return db.DriverOptions{
		Host:     c.DBHost,
		Port:     c.DBPort,
		User:     c.DBUser,
		Password: c.DBPassword,
		Database: c.DBName,
		SSLMode:  c.DBSSLMode,
	}
}

// Pool returns the pool settings with the given query hooks attached.
func (c *Config) Pool(hooks ...db.Hook) db.Config {
	return db.Config{
		MaxOpenConns:    c.DBMaxOpenConns,
		MaxIdleConns:    c.DBMaxIdleConns,
		ConnMaxLifetime: c.DBConnMaxLifetime,
		DefaultTimeout:  c.DBQueryTimeout,
		Hooks:           hooks,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Environment helpers
// ─────────────────────────────────────────────────────────────────────────────

// GetEnvAsString gets environment variable as string with default value
func GetEnvAsString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvAsInt gets environment variable as int with default value
func GetEnvAsInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%s: %q is not an integer", key, value)
	}
	return n, nil
}

// GetEnvAsDuration gets environment variable as duration with default value
func GetEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%s: %q is not a duration", key, value)
	}
	return d, nil
}

// GetEnvAsFloat gets environment variable as float64 with default value
func GetEnvAsFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue, fmt.Errorf("%s: %q is not a number", key, value)
	}
	return f, nil
}

func getInt(errs *[]error, key string, def int) int {
	v, err := GetEnvAsInt(key, def)
	if err != nil {
		*errs = append(*errs, err)
	}
	return v
}

func getDuration(errs *[]error, key string, def time.Duration) time.Duration {
	v, err := GetEnvAsDuration(key, def)
	if err != nil {
		*errs = append(*errs, err)
	}
	return v
}

func getFloat(errs *[]error, key string, def float64) float64 {
	v, err := GetEnvAsFloat(key, def)
	if err != nil {
		*errs = append(*errs, err)
	}
	return v
}
