// Package config loads application configuration from the environment.
// Every knob has a default that works for local development; production
// deployments override through environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION STRUCTURE
// ══════════════════════════════════════════════════════════════════════════════

// Config is the root application configuration.
type Config struct {
	App      AppConfig
	HTTP     HTTPConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Auth     AuthConfig
	EventBus EventBusConfig
}

// AppConfig holds general application settings.
type AppConfig struct {
	// Environment is one of "development", "staging", "production".
	Environment string

	// LogLevel is the minimum level emitted: debug, info, warn, error.
	LogLevel string
}

// IsProduction reports whether the app runs in production.
func (c AppConfig) IsProduction() bool { return c.Environment == "production" }

// HTTPConfig holds the API server settings.
type HTTPConfig struct {
	Host               string
	Port               int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	ShutdownTimeout    time.Duration
	RateLimitPerMinute int
	EnableCORS         bool
}

// PostgresConfig holds database connection settings.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds session store connection settings.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int

	// SessionTTL is how long a master's active-center selection survives
	// without a refresh.
	SessionTTL time.Duration
}

// AuthConfig holds token signing settings.
type AuthConfig struct {
	// JWTSecret signs bearer tokens. Required outside development.
	JWTSecret string

	// TokenTTL is how long issued tokens stay valid.
	TokenTTL time.Duration
}

// EventBusConfig holds in-process event bus settings.
type EventBusConfig struct {
	// Async dispatches event handlers on a worker pool instead of inline.
	Async bool

	// Workers bounds concurrent handler goroutines in async mode.
	Workers int
}

// ══════════════════════════════════════════════════════════════════════════════
// LOADING
// ══════════════════════════════════════════════════════════════════════════════

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		HTTP: HTTPConfig{
			Host:               getEnv("HTTP_HOST", "0.0.0.0"),
			Port:               getEnvInt("HTTP_PORT", 8080),
			ReadTimeout:        getEnvDuration("HTTP_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:       getEnvDuration("HTTP_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:        getEnvDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout:    getEnvDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
			RateLimitPerMinute: getEnvInt("HTTP_RATE_LIMIT_PER_MINUTE", 120),
			EnableCORS:         getEnvBool("HTTP_ENABLE_CORS", true),
		},
		Postgres: PostgresConfig{
			Host:            getEnv("POSTGRES_HOST", "localhost"),
			Port:            getEnvInt("POSTGRES_PORT", 5432),
			User:            getEnv("POSTGRES_USER", "postgres"),
			Password:        getEnv("POSTGRES_PASSWORD", "postgres"),
			Database:        getEnv("POSTGRES_DB", "attendance_hub"),
			SSLMode:         getEnv("POSTGRES_SSLMODE", "disable"),
			MaxConns:        getEnvInt("POSTGRES_MAX_CONNS", 10),
			MinConns:        getEnvInt("POSTGRES_MIN_CONNS", 2),
			MaxConnLifetime: getEnvDuration("POSTGRES_MAX_CONN_LIFETIME", time.Hour),
			MaxConnIdleTime: getEnvDuration("POSTGRES_MAX_CONN_IDLE_TIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			Host:       getEnv("REDIS_HOST", "localhost"),
			Port:       getEnvInt("REDIS_PORT", 6379),
			Password:   getEnv("REDIS_PASSWORD", ""),
			DB:         getEnvInt("REDIS_DB", 0),
			PoolSize:   getEnvInt("REDIS_POOL_SIZE", 10),
			SessionTTL: getEnvDuration("SESSION_TTL", 12*time.Hour),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			TokenTTL:  getEnvDuration("JWT_TOKEN_TTL", 24*time.Hour),
		},
		EventBus: EventBusConfig{
			Async:   getEnvBool("EVENT_BUS_ASYNC", true),
			Workers: getEnvInt("EVENT_BUS_WORKERS", 8),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for mistakes that would only surface
// later at an awkward moment.
func (c *Config) Validate() error {
	switch c.App.Environment {
	case "development", "staging", "production":
	default:
		return fmt.Errorf("config: unknown APP_ENV %q", c.App.Environment)
	}

	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("config: invalid HTTP_PORT %d", c.HTTP.Port)
	}
	if c.Postgres.Host == "" || c.Postgres.Database == "" {
		return errors.New("config: POSTGRES_HOST and POSTGRES_DB are required")
	}
	if c.Postgres.MaxConns < c.Postgres.MinConns {
		return errors.New("config: POSTGRES_MAX_CONNS must be >= POSTGRES_MIN_CONNS")
	}

	if c.Auth.JWTSecret == "" {
		if c.App.IsProduction() {
			return errors.New("config: JWT_SECRET is required in production")
		}
		// Development fallback, useless outside a local setup.
		c.Auth.JWTSecret = "dev-secret-do-not-use-in-production"
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("config: JWT_TOKEN_TTL must be positive")
	}

	if c.EventBus.Async && c.EventBus.Workers <= 0 {
		return errors.New("config: EVENT_BUS_WORKERS must be positive in async mode")
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ENVIRONMENT HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
