package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Port)
	}
	if cfg.MaxDeliveryAttempts != 3 {
		t.Errorf("expected 3 delivery attempts, got %d", cfg.MaxDeliveryAttempts)
	}
	if cfg.DispatchTimeout != 15*time.Second {
		t.Errorf("expected 15s dispatch timeout, got %s", cfg.DispatchTimeout)
	}
	if !cfg.EnableAutoCleanup {
		t.Error("expected auto cleanup enabled by default")
	}
	if cfg.JWTSecret == "" {
		t.Error("expected generated JWT secret when not configured")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MAX_DELIVERY_ATTEMPTS", "5")
	t.Setenv("WORKER_INTERVAL_SECONDS", "1")
	t.Setenv("POSTHOG_ENABLED", "true")
	t.Setenv("JWT_SECRET", "configured-secret-value-000000000")

	cfg := Load()

	if cfg.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Port)
	}
	if cfg.MaxDeliveryAttempts != 5 {
		t.Errorf("expected 5 delivery attempts, got %d", cfg.MaxDeliveryAttempts)
	}
	if cfg.WorkerInterval != time.Second {
		t.Errorf("expected 1s worker interval, got %s", cfg.WorkerInterval)
	}
	if !cfg.PostHogEnabled {
		t.Error("expected PostHog enabled")
	}
	if cfg.JWTSecret != "configured-secret-value-000000000" {
		t.Error("expected configured JWT secret to be preserved")
	}
}

func TestAllowedOriginList(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "https://app.adaptivestartup.io, https://staging.adaptivestartup.io ,")

	cfg := Load()
	origins := cfg.AllowedOriginList()
	if len(origins) != 2 {
		t.Fatalf("expected 2 origins, got %v", origins)
	}
	if origins[0] != "https://app.adaptivestartup.io" || origins[1] != "https://staging.adaptivestartup.io" {
		t.Errorf("unexpected origins: %v", origins)
	}

	empty := &Config{}
	if got := empty.AllowedOriginList(); got != nil {
		t.Errorf("expected nil for empty origins, got %v", got)
	}
}

func TestLoad_InvalidIntFallsBack(t *testing.T) {
	t.Setenv("PORT", "not-a-number")

	cfg := Load()
	if cfg.Port != 8080 {
		t.Errorf("expected fallback to default port, got %d", cfg.Port)
	}
}
