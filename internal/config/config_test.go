package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENGLI_DB", t.TempDir()+"/engli.db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.SessionTTL != 60*time.Minute {
		t.Fatalf("expected 60m TTL, got %s", cfg.SessionTTL)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*" {
		t.Fatalf("expected wildcard origins, got %v", cfg.AllowedOrigins)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ENGLI_DB", t.TempDir()+"/engli.db")
	t.Setenv("PORT", "9999")
	t.Setenv("ENGLI_SESSION_TTL", "90m")
	t.Setenv("ENGLI_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "9999" {
		t.Fatalf("expected port 9999, got %q", cfg.Port)
	}
	if cfg.SessionTTL != 90*time.Minute {
		t.Fatalf("expected 90m TTL, got %s", cfg.SessionTTL)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins: %v", cfg.AllowedOrigins)
	}
}

func TestGetEnvDuration_BareMinutes(t *testing.T) {
	t.Setenv("ENGLI_TEST_DURATION", "45")
	if got := getEnvDuration("ENGLI_TEST_DURATION", time.Minute); got != 45*time.Minute {
		t.Fatalf("expected 45m, got %s", got)
	}

	t.Setenv("ENGLI_TEST_DURATION", "bogus")
	if got := getEnvDuration("ENGLI_TEST_DURATION", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback, got %s", got)
	}
}
