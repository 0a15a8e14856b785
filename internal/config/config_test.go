package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STATE_DIR", t.TempDir())
	t.Setenv("LOG_RETENTION_DAYS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RetentionDays != 30 {
		t.Fatalf("expected default retention 30, got %d", cfg.RetentionDays)
	}
	if cfg.RotateInterval != time.Hour {
		t.Fatalf("expected default rotate interval 1h, got %v", cfg.RotateInterval)
	}
	if filepath.Base(cfg.ChainDir()) != "chain_logs" {
		t.Fatalf("unexpected chain dir %q", cfg.ChainDir())
	}
}

func TestLoadRetentionOverride(t *testing.T) {
	t.Setenv("STATE_DIR", t.TempDir())
	t.Setenv("LOG_RETENTION_DAYS", "7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RetentionDays != 7 {
		t.Fatalf("expected retention 7, got %d", cfg.RetentionDays)
	}
}

func TestLoadRejectsNonPositiveRetention(t *testing.T) {
	t.Setenv("STATE_DIR", t.TempDir())
	t.Setenv("LOG_RETENTION_DAYS", "0")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for zero retention")
	}
}

func TestLocation(t *testing.T) {
	cfg := &Config{Timezone: "UTC"}
	loc, err := cfg.Location()
	if err != nil || loc != time.UTC {
		t.Fatalf("expected UTC, got %v (%v)", loc, err)
	}

	cfg.Timezone = "Not/AZone"
	if _, err := cfg.Location(); err == nil {
		t.Fatal("expected error for bogus zone")
	}
}
