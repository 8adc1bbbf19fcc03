// Package config loads runtime settings from the environment.
//
// An optional .env file in the working directory is read first; variables
// already present in the process environment take precedence over it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every setting the server and CLI need.
type Config struct {
	// HTTP server
	Port int

	// Database
	DBPath string

	// Tokens
	JWTKey          string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// Passwords
	PasswordIterations int

	// Transactions
	Retry RetryPolicy

	LogLevel slog.Level

	// malformed lists variables that were set but could not be parsed.
	malformed []string
}

// RetryPolicy bounds how a transaction is retried after lock contention.
// Attempt n (starting at 1) waits min(BaseDelay * 2^(n-1), MaxDelay).
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy is used when no overrides are configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   20 * time.Millisecond,
		MaxDelay:    time.Second,
	}
}

// Delay returns the pause before retry number attempt (1-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Load reads the optional .env file and then the environment.
// A missing .env file is not an error; a malformed one is.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: reading .env: %w", err)
	}
	return FromEnv(), nil
}

// FromEnv builds a Config from the process environment only.
func FromEnv() *Config {
	def := DefaultRetryPolicy()
	env := &envReader{}
	cfg := &Config{
		Port:   env.getInt("PORT", 8080),
		DBPath: getEnv("DB_PATH", "data/ledger.db"),

		JWTKey:          getEnv("JWT_KEY", ""),
		JWTIssuer:       getEnv("JWT_ISSUER", "expense-ledger"),
		JWTAudience:     getEnv("JWT_AUDIENCE", "expense-ledger-clients"),
		AccessTokenTTL:  env.getDuration("ACCESS_TOKEN_TTL", time.Hour),
		RefreshTokenTTL: env.getDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),

		PasswordIterations: env.getInt("PASSWORD_ITERATIONS", 210_000),

		Retry: RetryPolicy{
			MaxAttempts: env.getInt("TX_MAX_ATTEMPTS", def.MaxAttempts),
			BaseDelay:   env.getDuration("TX_BASE_DELAY", def.BaseDelay),
			MaxDelay:    env.getDuration("TX_MAX_DELAY", def.MaxDelay),
		},

		LogLevel: env.getLevel("LOG_LEVEL", slog.LevelInfo),
	}
	cfg.malformed = env.malformed
	return cfg
}

// Validate reports every problem at once so a misconfigured deployment can
// be fixed in one pass.
func (c *Config) Validate() error {
	problems := append([]string(nil), c.malformed...)

	if c.Port < 1 || c.Port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", c.Port))
	}
	if c.DBPath == "" {
		problems = append(problems, "DB_PATH cannot be empty")
	}
	if len(c.JWTKey) < 32 {
		problems = append(problems, "JWT_KEY must be set and at least 32 bytes long")
	}
	if c.JWTIssuer == "" {
		problems = append(problems, "JWT_ISSUER cannot be empty")
	}
	if c.JWTAudience == "" {
		problems = append(problems, "JWT_AUDIENCE cannot be empty")
	}
	if c.AccessTokenTTL <= 0 {
		problems = append(problems, fmt.Sprintf("invalid access token TTL %v: must be positive", c.AccessTokenTTL))
	}
	if c.RefreshTokenTTL <= c.AccessTokenTTL {
		problems = append(problems, "REFRESH_TOKEN_TTL must be longer than ACCESS_TOKEN_TTL")
	}
	if c.PasswordIterations < 10_000 {
		problems = append(problems, fmt.Sprintf("invalid password iterations %d: must be at least 10000", c.PasswordIterations))
	}
	if c.Retry.MaxAttempts < 1 {
		problems = append(problems, fmt.Sprintf("invalid TX_MAX_ATTEMPTS %d: must be at least 1", c.Retry.MaxAttempts))
	}
	if c.Retry.BaseDelay <= 0 || c.Retry.MaxDelay < c.Retry.BaseDelay {
		problems = append(problems, "TX_BASE_DELAY must be positive and not exceed TX_MAX_DELAY")
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// envReader reads typed variables, remembering the ones that fail to parse
// so Validate can report them instead of silently using the default.
type envReader struct {
	malformed []string
}

func (e *envReader) invalid(key, value, want string) {
	e.malformed = append(e.malformed, fmt.Sprintf("invalid %s %q: must be %s", key, value, want))
}

func (e *envReader) getInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		e.invalid(key, value, "an integer")
		return defaultValue
	}
	return i
}

func (e *envReader) getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		e.invalid(key, value, `a duration such as "1h"`)
		return defaultValue
	}
	return d
}

func (e *envReader) getLevel(key string, defaultValue slog.Level) slog.Level {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(value)); err != nil {
		e.invalid(key, value, "one of DEBUG, INFO, WARN, ERROR")
		return defaultValue
	}
	return lvl
}
