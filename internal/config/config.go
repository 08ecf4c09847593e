// Package config provides centralized configuration management for the prenotebook server.
// It loads configuration from CLI flags and environment variables, validates required fields,
// and provides sensible defaults.
//
// CLI flags control which services are mocked (--no-email, --no-s3, --test).
// Environment variables provide secrets and service configuration.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/vedgupta/prenotebook/internal/ratelimit"
)

const (
	defaultTigrisRegion = "auto"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	ListenAddr string
	BaseURL    string

	// Database and encryption
	MasterKey       string        // 64 hex characters (32 bytes), keys the SQLCipher database
	DataDir         string        // Directory holding notes.db
	SessionDuration time.Duration // How long sessions remain valid

	// Rate limiting
	RateLimitConfig ratelimit.Config

	// Mock service flags (controlled by CLI flags, not env vars)
	NoEmail bool // If true, use mock email service (--no-email)
	NoS3    bool // If true, use in-memory S3 (--no-s3)

	// Resend Email
	ResendAPIKey    string
	ResendFromEmail string

	// S3/Tigris Storage (uses AWS_ env vars, set automatically by `fly storage create`)
	AWSEndpointS3      string // AWS_ENDPOINT_URL_S3
	AWSRegion          string // AWS_REGION
	AWSAccessKeyID     string // AWS_ACCESS_KEY_ID
	AWSSecretAccessKey string // AWS_SECRET_ACCESS_KEY
	AWSBucketName      string // BUCKET_NAME
	AWSPublicURL       string // S3_PUBLIC_URL (custom, not set by Tigris)
}

// ValidationError represents a configuration validation error with multiple issues.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// ParseFlags parses CLI flags and returns them. Call before LoadConfig.
// This registers and parses --no-email, --no-s3, --test, and --addr flags.
func ParseFlags() (noEmail, noS3 bool, addr string) {
	var testMode bool
	flag.BoolVar(&noEmail, "no-email", false, "Use mock email service (logs emails to console)")
	flag.BoolVar(&noS3, "no-s3", false, "Use mock S3 storage (in-memory)")
	flag.BoolVar(&testMode, "test", false, "Shorthand for --no-email --no-s3")
	flag.StringVar(&addr, "addr", "", "Listen address (default :8080, overrides LISTEN_ADDR env var)")
	flag.Parse()

	if testMode {
		noEmail = true
		noS3 = true
	}

	return noEmail, noS3, addr
}

// LoadConfig loads configuration from environment variables and CLI flag values.
// The noEmail and noS3 flags control which services use mocks.
// The addr flag overrides the LISTEN_ADDR env var if non-empty.
func LoadConfig(noEmail, noS3 bool, addr string) (*Config, error) {
	cfg := &Config{}

	// CLI flag values
	cfg.NoEmail = noEmail
	cfg.NoS3 = noS3

	// Server settings
	cfg.ListenAddr = getEnvOrDefault("LISTEN_ADDR", ":8080")
	if addr != "" {
		cfg.ListenAddr = addr
	}
	cfg.BaseURL = strings.TrimSpace(os.Getenv("BASE_URL"))
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost" + cfg.ListenAddr
	}

	// Database and encryption
	cfg.MasterKey = os.Getenv("MASTER_KEY")
	cfg.DataDir = getEnvOrDefault("DATA_DIR", "/data")
	cfg.SessionDuration = parseDurationOrDefault("SESSION_DURATION", 24*time.Hour)

	// Rate limiting
	cfg.RateLimitConfig = ratelimit.Config{
		RPS:             parseFloat64OrDefault("RATE_LIMIT_RPS", 10),
		Burst:           parseIntOrDefault("RATE_LIMIT_BURST", 20),
		CleanupInterval: parseDurationOrDefault("RATE_LIMIT_CLEANUP_INTERVAL", time.Hour),
	}

	// Resend Email
	cfg.ResendAPIKey = os.Getenv("RESEND_API_KEY")
	cfg.ResendFromEmail = getEnvOrDefault("RESEND_FROM_EMAIL", "noreply@prenotebook.app")

	// S3/Tigris Storage (AWS_ env vars set automatically by `fly storage create`)
	cfg.AWSEndpointS3 = strings.TrimSpace(os.Getenv("AWS_ENDPOINT_URL_S3"))
	cfg.AWSRegion = getEnvOrDefault("AWS_REGION", defaultTigrisRegion)
	cfg.AWSAccessKeyID = strings.TrimSpace(os.Getenv("AWS_ACCESS_KEY_ID"))
	cfg.AWSSecretAccessKey = strings.TrimSpace(os.Getenv("AWS_SECRET_ACCESS_KEY"))
	cfg.AWSBucketName = strings.TrimSpace(os.Getenv("BUCKET_NAME"))
	cfg.AWSPublicURL = strings.TrimSpace(os.Getenv("S3_PUBLIC_URL"))
	if cfg.AWSPublicURL == "" && cfg.AWSEndpointS3 != "" && cfg.AWSBucketName != "" {
		cfg.AWSPublicURL = strings.TrimRight(cfg.AWSEndpointS3, "/") + "/" + cfg.AWSBucketName
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present and valid.
// When mocks are NOT active for a service, the corresponding secrets are required.
func (c *Config) Validate() error {
	var errs []string

	// Email: require Resend API key unless --no-email
	if !c.NoEmail {
		if c.ResendAPIKey == "" {
			errs = append(errs, "RESEND_API_KEY is required (set env var or use --no-email)")
		}
	}

	// S3/Tigris: require AWS credentials unless --no-s3
	if !c.NoS3 {
		if c.AWSEndpointS3 == "" {
			errs = append(errs, "AWS_ENDPOINT_URL_S3 is required (set env var or use --no-s3)")
		}
		if c.AWSBucketName == "" {
			errs = append(errs, "BUCKET_NAME is required (set env var or use --no-s3)")
		}
		if c.AWSAccessKeyID == "" {
			errs = append(errs, "AWS_ACCESS_KEY_ID is required (set env var or use --no-s3)")
		}
		if c.AWSSecretAccessKey == "" {
			errs = append(errs, "AWS_SECRET_ACCESS_KEY is required (set env var or use --no-s3)")
		}
	}

	// MasterKey: always required (losing it = database unreadable)
	if c.MasterKey == "" {
		errs = append(errs, "MASTER_KEY is required (generate with: openssl rand -hex 32)")
	} else if len(c.MasterKey) != 64 {
		errs = append(errs, "MASTER_KEY must be 64 hex characters (32 bytes)")
	}

	// Validate rate limit config
	if c.RateLimitConfig.RPS <= 0 {
		errs = append(errs, "RATE_LIMIT_RPS must be positive")
	}
	if c.RateLimitConfig.Burst <= 0 {
		errs = append(errs, "RATE_LIMIT_BURST must be positive")
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}

	return nil
}

// DatabasePath returns the path of the SQLCipher database file.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "notes.db")
}

// IsProduction returns true if all mock services are disabled.
func (c *Config) IsProduction() bool {
	return !c.NoEmail && !c.NoS3
}

// IsDevelopment returns true if any mock services are enabled.
func (c *Config) IsDevelopment() bool {
	return c.NoEmail || c.NoS3
}

// RequireSecureCookies returns true if secure cookies should be required.
// Returns false for localhost development URLs.
func (c *Config) RequireSecureCookies() bool {
	return !strings.HasPrefix(c.BaseURL, "http://localhost") &&
		!strings.HasPrefix(c.BaseURL, "http://127.0.0.1")
}

// PrintStartupSummary prints a human-readable summary of the configuration to stderr.
func (c *Config) PrintStartupSummary() {
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "prenotebook server starting...")

	// Email
	if c.NoEmail {
		fmt.Fprintln(os.Stderr, "  Email:   Mock (--no-email)")
	} else {
		fmt.Fprintf(os.Stderr, "  Email:   Resend (real, from: %s)\n", c.ResendFromEmail)
	}

	// Storage
	if c.NoS3 {
		fmt.Fprintln(os.Stderr, "  Storage: Mock S3 (--no-s3)")
	} else {
		fmt.Fprintf(os.Stderr, "  Storage: Tigris S3 (real, endpoint: %s)\n", c.AWSEndpointS3)
	}

	// Master key
	fmt.Fprintln(os.Stderr, "  Master:  From MASTER_KEY env var")

	// Listen address
	fmt.Fprintf(os.Stderr, "  Listen:  %s\n", c.ListenAddr)
	fmt.Fprintf(os.Stderr, "  Base:    %s\n", c.BaseURL)
	fmt.Fprintln(os.Stderr, "")
}

// Helper functions for parsing environment variables

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func parseIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// MustLoadConfig loads configuration and panics if validation fails.
// Use this in main() when you want the application to fail fast on bad config.
func MustLoadConfig(noEmail, noS3 bool, addr string) *Config {
	cfg, err := LoadConfig(noEmail, noS3, addr)
	if err != nil {
		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			panic(fmt.Sprintf("Configuration validation failed:\n  - %s", strings.Join(validationErr.Errors, "\n  - ")))
		}
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}
	return cfg
}
