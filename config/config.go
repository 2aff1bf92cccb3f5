package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const minTokenSecretLength = 32

// Config holds the application configuration
type Config struct {
	KratosURL           string        // Kratos public URL (Frontend API - port 4433)
	SessionToken        string        // Session token of the terminal's signed-in operator
	Port                string        // Service port
	DatabaseURL         string        // Postgres DSN for the profiles table
	DebounceWindow      time.Duration // Quiet period for auth event bursts
	ClassifyTimeout     time.Duration // Deadline for a single status classification
	WatchInterval       time.Duration // Session polling interval
	AuthSharedSecret    string        // Shared secret for /internal endpoints
	StatusTokenSecret   string        // Secret for signing status JWTs
	StatusTokenIssuer   string        // JWT issuer claim
	StatusTokenAudience string        // JWT audience claim
	StatusTokenTTL      time.Duration // JWT token TTL
}

// Load reads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	config := &Config{
		KratosURL:           getEnv("KRATOS_URL", "http://kratos:4433"),
		SessionToken:        getEnv("SESSION_TOKEN", ""),
		Port:                getEnv("PORT", "8888"),
		DatabaseURL:         getEnv("DATABASE_URL", "postgres://status_hub@db:5432/clinic?sslmode=disable"),
		AuthSharedSecret:    getEnv("AUTH_SHARED_SECRET", ""),
		StatusTokenSecret:   getEnv("STATUS_TOKEN_SECRET", ""),
		StatusTokenIssuer:   getEnv("STATUS_TOKEN_ISSUER", "status-hub"),
		StatusTokenAudience: getEnv("STATUS_TOKEN_AUDIENCE", "clinic-dashboard"),
	}

	durations := []struct {
		key      string
		fallback time.Duration
		dst      *time.Duration
	}{
		{"DEBOUNCE_WINDOW", 300 * time.Millisecond, &config.DebounceWindow},
		{"CLASSIFY_TIMEOUT", 10 * time.Second, &config.ClassifyTimeout},
		{"WATCH_INTERVAL", 30 * time.Second, &config.WatchInterval},
		{"STATUS_TOKEN_TTL", 5 * time.Minute, &config.StatusTokenTTL},
	}
	for _, d := range durations {
		value, err := getDuration(d.key, d.fallback)
		if err != nil {
			return nil, err
		}
		*d.dst = value
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.KratosURL == "" {
		return fmt.Errorf("KRATOS_URL cannot be empty")
	}

	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}

	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL cannot be empty")
	}

	if c.DebounceWindow <= 0 {
		return fmt.Errorf("DEBOUNCE_WINDOW must be positive")
	}

	if c.ClassifyTimeout <= 0 {
		return fmt.Errorf("CLASSIFY_TIMEOUT must be positive")
	}

	if c.WatchInterval <= 0 {
		return fmt.Errorf("WATCH_INTERVAL must be positive")
	}

	if c.StatusTokenTTL <= 0 {
		return fmt.Errorf("STATUS_TOKEN_TTL must be positive")
	}

	if c.StatusTokenSecret != "" && len(c.StatusTokenSecret) < minTokenSecretLength {
		return fmt.Errorf("STATUS_TOKEN_SECRET must be at least %d characters", minTokenSecretLength)
	}

	return nil
}

// getDuration parses a duration variable, falling back when unset
func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	duration, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s format: %w", key, err)
	}
	return duration, nil
}

// getEnv retrieves an environment variable or returns a fallback value
func getEnv(key, fallback string) string {
	// Check for _FILE suffix
	if fileValue := os.Getenv(key + "_FILE"); fileValue != "" {
		content, err := os.ReadFile(fileValue)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}

	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
