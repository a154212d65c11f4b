package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("CORS_ORIGINS", "")
	t.Setenv("VENMO_HANDLE", "")
	t.Setenv("SLOT_HOLD_TTL", "")
	t.Setenv("INLINE_WORKERS", "")
	cfg := Load()
	if !cfg.InlineWorkers {
		t.Fatalf("expected inline workers by default")
	}
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.VenmoHandle != "@Text2toss" {
		t.Fatalf("expected default venmo handle, got %s", cfg.VenmoHandle)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Fatalf("expected wildcard CORS default, got %v", cfg.CORSAllowedOrigins)
	}
	if cfg.SlotHoldTTL != 30*time.Second {
		t.Fatalf("expected default slot hold ttl, got %s", cfg.SlotHoldTTL)
	}
	if cfg.AdminTokenTTL != 12*time.Hour {
		t.Fatalf("expected default admin token ttl, got %s", cfg.AdminTokenTTL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("CORS_ORIGINS", "https://text2toss.com, https://admin.text2toss.com ,")
	t.Setenv("STRIPE_DRY_RUN", "true")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "90")
	t.Setenv("TEMP_IMAGE_MAX_AGE", "24h")
	t.Setenv("PUBLIC_BASE_URL", "https://text2toss.com/")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://admin.text2toss.com" {
		t.Fatalf("unexpected CORS origins: %v", cfg.CORSAllowedOrigins)
	}
	if !cfg.StripeDryRun {
		t.Fatalf("expected stripe dry run enabled")
	}
	if cfg.RateLimitPerMinute != 90 {
		t.Fatalf("expected rate limit override, got %d", cfg.RateLimitPerMinute)
	}
	if cfg.TempImageMaxAge != 24*time.Hour {
		t.Fatalf("expected temp image max age override, got %s", cfg.TempImageMaxAge)
	}
	if cfg.PublicBaseURL != "https://text2toss.com" {
		t.Fatalf("expected trailing slash trimmed, got %s", cfg.PublicBaseURL)
	}
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("RATE_LIMIT_PER_MINUTE", "lots")
	t.Setenv("OUTBOX_INTERVAL", "soon")
	t.Setenv("REDIS_TLS", "maybe")
	cfg := Load()
	if cfg.RateLimitPerMinute != 30 {
		t.Fatalf("expected default rate limit, got %d", cfg.RateLimitPerMinute)
	}
	if cfg.OutboxInterval != 2*time.Second {
		t.Fatalf("expected default outbox interval, got %s", cfg.OutboxInterval)
	}
	if cfg.RedisTLS {
		t.Fatalf("expected redis tls default false")
	}
}

func TestLocation(t *testing.T) {
	cfg := &Config{BusinessTimezone: "America/Chicago"}
	if got := cfg.Location().String(); got != "America/Chicago" {
		t.Fatalf("expected America/Chicago, got %s", got)
	}
	cfg.BusinessTimezone = "Not/AZone"
	if cfg.Location() != time.UTC {
		t.Fatalf("expected UTC fallback for invalid zone")
	}
	var nilCfg *Config
	if nilCfg.Location() != time.UTC {
		t.Fatalf("expected UTC for nil config")
	}
}
