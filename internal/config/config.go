package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	LockBackendMemory = "memory"
	LockBackendRedis  = "redis"
)

// Config holds all configuration values
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Log        LogConfig
	Ledger     LedgerConfig
	Settlement SettlementConfig
	Jobs       JobsConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Env  string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	AutoMigrate bool
}

// URL returns the database connection URL
func (c DatabaseConfig) URL() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + strconv.Itoa(c.Port) + "/" + c.DBName + "?sslmode=" + c.SSLMode + "&prepare_threshold=0"
}

// RedisConfig holds Redis configuration. An empty URL runs without Redis.
type RedisConfig struct {
	URL      string
	PASSWORD string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret       string
	Issuer       string
	AccessExpiry time.Duration
}

// LogConfig controls the optional rotated log file.
type LogConfig struct {
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// LedgerConfig holds wallet and payout policy.
type LedgerConfig struct {
	MinWithdrawal       decimal.Decimal
	DefaultHoldPercent  decimal.Decimal
	DefaultWarrantyDays int
	LockBackend         string
	LockTTL             time.Duration
}

// SettlementConfig holds seller settlement cycle settings.
type SettlementConfig struct {
	DefaultCycle string
	PeriodDays   int
}

// JobsConfig controls the background workers.
type JobsConfig struct {
	Enabled            bool
	HoldSweepInterval  time.Duration
	SettlementInterval time.Duration
	BatchSize          int
	Concurrency        int
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Env:  getEnv("SERVER_ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        getEnvAsInt("DB_PORT", 5432),
			User:        getEnv("DB_USER", "postgres"),
			Password:    getEnv("DB_PASSWORD", "postgres"),
			DBName:      getEnv("DB_NAME", "settlement"),
			SSLMode:     getEnv("DB_SSLMODE", "disable"),
			AutoMigrate: getEnvAsBool("DB_AUTO_MIGRATE", false),
		},
		Redis: RedisConfig{
			URL:      os.Getenv("REDIS_URL"),
			PASSWORD: getEnv("REDIS_PASSWORD", ""),
		},
		JWT: JWTConfig{
			Secret:       getEnv("JWT_SECRET", "change-this-in-production"),
			Issuer:       getEnv("JWT_ISSUER", ""),
			AccessExpiry: getEnvAsDuration("JWT_ACCESS_EXPIRY", 15*time.Minute),
		},
		Log: LogConfig{
			File:       getEnv("LOG_FILE", ""),
			MaxSizeMB:  getEnvAsInt("LOG_MAX_SIZE_MB", 100),
			MaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 5),
			MaxAgeDays: getEnvAsInt("LOG_MAX_AGE_DAYS", 30),
		},
		Ledger: LedgerConfig{
			MinWithdrawal:       getEnvAsDecimal("MIN_WITHDRAW_LIMIT", decimal.NewFromInt(100)),
			DefaultHoldPercent:  getEnvAsDecimal("DEFAULT_HOLD_PERCENT", decimal.NewFromInt(10)),
			DefaultWarrantyDays: getEnvAsInt("DEFAULT_WARRANTY_DAYS", 30),
			LockBackend:         strings.ToLower(getEnv("LEDGER_LOCK_BACKEND", LockBackendMemory)),
			LockTTL:             getEnvAsDuration("LEDGER_LOCK_TTL", 10*time.Second),
		},
		Settlement: SettlementConfig{
			DefaultCycle: getEnv("SETTLEMENT_DEFAULT_CYCLE", "T+7"),
			PeriodDays:   getEnvAsInt("SETTLEMENT_PERIOD_DAYS", 7),
		},
		Jobs: JobsConfig{
			Enabled:            getEnvAsBool("JOBS_ENABLED", true),
			HoldSweepInterval:  getEnvAsDuration("HOLD_SWEEP_INTERVAL", time.Hour),
			SettlementInterval: getEnvAsDuration("SETTLEMENT_JOB_INTERVAL", 6*time.Hour),
			BatchSize:          getEnvAsInt("JOB_BATCH_SIZE", 100),
			Concurrency:        getEnvAsInt("JOB_CONCURRENCY", 4),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}
