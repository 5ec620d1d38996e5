package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "CORS_ALLOWED_ORIGIN", "COOKIE_SECURE", "DATABASE_URL",
		"SESSION_TTL", "SIGNIN_ATTEMPTS_PER_MIN", "SIGNIN_BURST",
		"ARK_API_KEY", "ARK_MODEL", "LOG_FILE",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Fatalf("unexpected addr: %s", cfg.Server.Addr)
	}
	if cfg.Auth.SessionTTL != 24*time.Hour {
		t.Fatalf("unexpected session TTL: %s", cfg.Auth.SessionTTL)
	}
	if cfg.Auth.SignInAttemptsPerMin != 10 || cfg.Auth.SignInBurst != 5 {
		t.Fatalf("unexpected throttle defaults: %+v", cfg.Auth)
	}
	if cfg.Database.URL != "" {
		t.Fatalf("expected empty database URL, got %s", cfg.Database.URL)
	}
	if cfg.AI.Enabled() {
		t.Fatal("AI must be disabled without credentials")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SESSION_TTL", "1h")
	t.Setenv("SIGNIN_ATTEMPTS_PER_MIN", "3")
	t.Setenv("SIGNIN_BURST", "1")
	t.Setenv("CORS_ALLOWED_ORIGIN", "https://app.example.com")
	t.Setenv("ARK_API_KEY", "test-key")
	t.Setenv("ARK_MODEL", "test-model")
	t.Setenv("ARK_TEMPERATURE", "0.7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Server.Addr != ":9090" {
		t.Fatalf("unexpected addr: %s", cfg.Server.Addr)
	}
	if cfg.Server.CORSAllowedOrigin != "https://app.example.com" {
		t.Fatalf("unexpected CORS origin: %s", cfg.Server.CORSAllowedOrigin)
	}
	if cfg.Auth.SessionTTL != time.Hour {
		t.Fatalf("unexpected session TTL: %s", cfg.Auth.SessionTTL)
	}
	if cfg.Auth.SignInAttemptsPerMin != 3 || cfg.Auth.SignInBurst != 1 {
		t.Fatalf("unexpected throttle settings: %+v", cfg.Auth)
	}
	if !cfg.AI.Enabled() {
		t.Fatal("AI should be enabled with key and model")
	}
	if cfg.AI.Temperature == nil || *cfg.AI.Temperature != 0.7 {
		t.Fatalf("unexpected temperature: %v", cfg.AI.Temperature)
	}
}

func TestLoadAcceptsFullListenAddress(t *testing.T) {
	t.Setenv("PORT", "127.0.0.1:8081")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:8081" {
		t.Fatalf("unexpected addr: %s", cfg.Server.Addr)
	}
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	t.Setenv("SESSION_TTL", "not-a-duration")
	if _, err := Load(); err == nil {
		t.Fatal("expected an error for a malformed SESSION_TTL")
	}
}
