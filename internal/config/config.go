// Package config provides configuration management for Tessera.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment represents the deployment environment.
type Environment string

const (
	// EnvDevelopment is the default local development environment.
	EnvDevelopment Environment = "development"
	// EnvStaging is the staging/pre-production environment.
	EnvStaging Environment = "staging"
	// EnvProduction is the production environment.
	EnvProduction Environment = "production"
)

// Config holds server configuration loaded from environment variables.
type Config struct {
	Environment Environment
	ListenAddr  string
	DatabaseURL string
	LogLevel    string

	// AdminToken protects the admin API. Required in production.
	AdminToken string

	// CORSOrigins lists allowed origins. Empty allows all outside production.
	CORSOrigins []string

	RateLimitRequests int64
	RateLimitPeriod   string
	MaxBodyBytes      int64
	ShutdownTimeout   time.Duration

	DBMaxConns int
	DBMinConns int
}

// Load reads server configuration from environment variables.
func Load() (Config, error) {
	env := Environment(os.Getenv("ENV"))
	switch env {
	case EnvDevelopment, EnvStaging, EnvProduction:
		// valid
	default:
		env = EnvDevelopment
	}

	cfg := Config{
		Environment:       env,
		ListenAddr:        getEnvString("LISTEN_ADDR", ":8080"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		LogLevel:          getEnvString("LOG_LEVEL", "info"),
		AdminToken:        os.Getenv("ADMIN_TOKEN"),
		CORSOrigins:       splitCommaList(os.Getenv("CORS_ORIGINS")),
		RateLimitRequests: int64(getEnvInt("RATE_LIMIT_REQUESTS", 120)),
		RateLimitPeriod:   getEnvString("RATE_LIMIT_PERIOD", "1m"),
		MaxBodyBytes:      int64(getEnvInt("MAX_BODY_BYTES", 1<<20)),
		ShutdownTimeout:   time.Duration(getEnvInt("SHUTDOWN_TIMEOUT_SECONDS", 10)) * time.Second,
		DBMaxConns:        getEnvInt("DB_MAX_CONNS", 25),
		DBMinConns:        getEnvInt("DB_MIN_CONNS", 5),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL must be set")
	}
	if cfg.Environment == EnvProduction && cfg.AdminToken == "" {
		return Config{}, fmt.Errorf("ADMIN_TOKEN must be set in production")
	}
	if cfg.RateLimitRequests <= 0 {
		cfg.RateLimitRequests = 120
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}

	return cfg, nil
}

// splitCommaList splits a comma-separated value, trimming whitespace and
// dropping empty entries.
func splitCommaList(val string) []string {
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// getEnvString reads a string from an environment variable, returning the default if unset.
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvInt reads an integer from an environment variable, returning the default if unset or invalid.
func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}
