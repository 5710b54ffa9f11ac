// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// EnvTest is the execution mode that runs without a database connection.
const EnvTest = "test"

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"PORT" envDefault:"3000"`

	// Database (PostgreSQL)
	DBHost           string        `env:"DB_HOST" envDefault:"localhost"`
	DBPort           int           `env:"DB_PORT" envDefault:"5432"`
	DBName           string        `env:"DB_NAME" envDefault:"mydb"`
	DBUser           string        `env:"DB_USER" envDefault:"postgres"`
	DBPassword       string        `env:"DB_PASSWORD" envDefault:"postgres"`
	DBSSLMode        string        `env:"DB_SSLMODE" envDefault:"disable"`
	DBConnectTimeout time.Duration `env:"DB_CONNECT_TIMEOUT" envDefault:"5s"`
	DBMaxConns       int32         `env:"DB_MAX_CONNS" envDefault:"10"`

	// Cache (Redis), optional
	RedisURL          string        `env:"REDIS_URL" envDefault:""`
	RedisPoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	RedisMinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	UserCacheTTL      time.Duration `env:"USER_CACHE_TTL" envDefault:"5m"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`

	// ExposeStoreErrors returns the raw database error message in 500 responses.
	ExposeStoreErrors bool `env:"EXPOSE_STORE_ERRORS" envDefault:"true"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// DatabaseDisabled reports whether the execution mode suppresses the
// database connection entirely.
func (c *Config) DatabaseDisabled() bool {
	return c.AppEnv == EnvTest
}

// DatabaseURL assembles a PostgreSQL connection URL from the DB_* settings.
func (c *Config) DatabaseURL() string {
	q := make(url.Values)
	q.Set("sslmode", c.DBSSLMode)
	if c.DBConnectTimeout > 0 {
		q.Set("connect_timeout", strconv.Itoa(int(c.DBConnectTimeout.Seconds())))
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     net.JoinHostPort(c.DBHost, strconv.Itoa(c.DBPort)),
		Path:     "/" + c.DBName,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Load reads an optional .env file, then parses environment variables
// into a Config. Variables already set in the environment win over .env.
func Load() (*Config, error) {
	return LoadFiles(".env")
}

// LoadFiles is Load with explicit dotenv file names. Missing files are ignored.
func LoadFiles(files ...string) (*Config, error) {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
