package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/boddenberg/sales-flow-bfa-go/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("JWT_SECRET", "")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Port)
	}
	if cfg.CRMAPIURL != "" {
		t.Errorf("expected empty CRM URL, got %q", cfg.CRMAPIURL)
	}
	if cfg.PaymentSettleDelay != 5*time.Second {
		t.Errorf("unexpected settle delay %s", cfg.PaymentSettleDelay)
	}
	if cfg.Location != time.UTC {
		t.Errorf("expected UTC location, got %s", cfg.Location)
	}
	if cfg.AuthEnabled() {
		t.Error("expected auth disabled without JWT_SECRET")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("PORT", "9090")
	t.Setenv("CACHE_TTL", "30s")
	t.Setenv("PAYMENT_MAX_AMOUNT", "1500.50")
	t.Setenv("MAX_RETRIES", "not-a-number")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Port)
	}
	if cfg.CacheTTL != 30*time.Second {
		t.Errorf("expected 30s TTL, got %s", cfg.CacheTTL)
	}
	if cfg.PaymentMaxAmount != 1500.50 {
		t.Errorf("expected 1500.50, got %v", cfg.PaymentMaxAmount)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("expected fallback 3 retries, got %d", cfg.MaxRetries)
	}
	if !cfg.AuthEnabled() {
		t.Error("expected auth enabled with JWT_SECRET set")
	}
}

func TestLoad_InvalidTimezone(t *testing.T) {
	t.Setenv("TIMEZONE", "Mars/Olympus")

	if _, err := config.Load(); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}

func TestLoad_InvalidConcurrency(t *testing.T) {
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("MAX_CONCURRENCY", "0")

	if _, err := config.Load(); err == nil {
		t.Fatal("expected error for zero concurrency")
	}
}

func TestLoadDotEnv_DoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "OPERATOR_USER=from-file\nCRM_API_URL=\"http://crm.local\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("OPERATOR_USER", "from-env")
	t.Setenv("CRM_API_URL", "")
	os.Unsetenv("CRM_API_URL")

	if err := config.LoadDotEnv(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := os.Getenv("OPERATOR_USER"); got != "from-env" {
		t.Errorf("env var was overridden: %q", got)
	}
	if got := os.Getenv("CRM_API_URL"); got != "http://crm.local" {
		t.Errorf("expected value from file, got %q", got)
	}
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	if err := config.LoadDotEnv(filepath.Join(t.TempDir(), "nope.env")); err != nil {
		t.Fatalf("missing file should be ignored, got %v", err)
	}
}
