package config

import (
	"strings"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/vedgupta/prenotebook/internal/ratelimit"
)

func validTestConfig() Config {
	return Config{
		NoEmail:         true,
		NoS3:            true,
		MasterKey:       strings.Repeat("a", 64),
		DataDir:         "/data",
		RateLimitConfig: defaultRateLimitConfig(),
	}
}

func defaultRateLimitConfig() ratelimit.Config {
	return ratelimit.Config{
		RPS:             10,
		Burst:           20,
		CleanupInterval: time.Hour,
	}
}

func TestValidate_TestModeMinimalConfigPasses(t *testing.T) {
	t.Parallel()
	cfg := validTestConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid test-mode config, got error: %v", err)
	}
}

func TestValidate_RequiresServiceSecretsWhenNotMocked(t *testing.T) {
	t.Parallel()
	cfg := validTestConfig()
	cfg.NoEmail = false
	cfg.NoS3 = false

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error when real services are enabled without secrets")
	}
	msg := err.Error()
	for _, expected := range []string{
		"RESEND_API_KEY",
		"AWS_ENDPOINT_URL_S3",
		"BUCKET_NAME",
		"AWS_ACCESS_KEY_ID",
		"AWS_SECRET_ACCESS_KEY",
	} {
		if !strings.Contains(msg, expected) {
			t.Fatalf("expected validation error to mention %q, got: %v", expected, err)
		}
	}
}

func testValidate_RejectsInvalidMasterKeyLength(t *rapid.T) {
	cfg := validTestConfig()

	cfg.MasterKey = strings.Repeat("a", rapid.IntRange(1, 63).Draw(t, "master_key_len"))

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error for short master key")
	}
	if !strings.Contains(err.Error(), "MASTER_KEY") {
		t.Fatalf("expected key-length error mentioning MASTER_KEY, got: %v", err)
	}
}

func TestValidate_RejectsInvalidMasterKeyLength(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testValidate_RejectsInvalidMasterKeyLength)
}

func TestValidate_RejectsNonPositiveRateLimits(t *testing.T) {
	t.Parallel()
	cfg := validTestConfig()
	cfg.RateLimitConfig.RPS = 0
	cfg.RateLimitConfig.Burst = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error for non-positive rate limits")
	}
	msg := err.Error()
	for _, expected := range []string{"RATE_LIMIT_RPS", "RATE_LIMIT_BURST"} {
		if !strings.Contains(msg, expected) {
			t.Fatalf("expected validation error to mention %q, got: %v", expected, err)
		}
	}
}

func TestHelperParsers_DefaultOnBadInput(t *testing.T) {
	t.Setenv("CFG_TEST_INT", "not-an-int")
	t.Setenv("CFG_TEST_FLOAT", "not-a-float")
	t.Setenv("CFG_TEST_DUR", "not-a-duration")
	if got := parseIntOrDefault("CFG_TEST_INT", 7); got != 7 {
		t.Fatalf("parseIntOrDefault fallback mismatch: got=%d want=7", got)
	}
	if got := parseFloat64OrDefault("CFG_TEST_FLOAT", 3.5); got != 3.5 {
		t.Fatalf("parseFloat64OrDefault fallback mismatch: got=%v want=3.5", got)
	}
	if got := parseDurationOrDefault("CFG_TEST_DUR", 2*time.Minute); got != 2*time.Minute {
		t.Fatalf("parseDurationOrDefault fallback mismatch: got=%v want=%v", got, 2*time.Minute)
	}
}

func TestDatabasePath_JoinsDataDir(t *testing.T) {
	t.Parallel()
	cfg := validTestConfig()
	cfg.DataDir = "/var/lib/prenotebook"
	if got := cfg.DatabasePath(); got != "/var/lib/prenotebook/notes.db" {
		t.Fatalf("DatabasePath mismatch: got=%q", got)
	}
}

func TestRequireSecureCookies_LocalhostIsInsecure(t *testing.T) {
	t.Parallel()
	cfg := validTestConfig()

	cfg.BaseURL = "http://localhost:8080"
	if cfg.RequireSecureCookies() {
		t.Fatal("localhost should not require secure cookies")
	}

	cfg.BaseURL = "https://prenotebook.app"
	if !cfg.RequireSecureCookies() {
		t.Fatal("non-localhost base URL should require secure cookies")
	}
}
