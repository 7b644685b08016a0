package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "ENV", "LOG_LEVEL", "STORE_BACKEND", "DATABASE_URL", "CMS_ENDPOINT",
		"EMAIL_PROVIDER", "SENDGRID_API_KEY", "STAFF_EMAIL", "NOTIFY_TIMEOUT", "CORS_ALLOWED_ORIGINS",
		"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "TIMEZONE",
	} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.StoreBackend != StoreMemory {
		t.Fatalf("expected memory store by default, got %s", cfg.StoreBackend)
	}
	if cfg.EmailProvider != EmailStub {
		t.Fatalf("expected stub email provider by default, got %s", cfg.EmailProvider)
	}
	if cfg.StaffEmail != "dohanimedicare@gmail.com" {
		t.Fatalf("unexpected staff email %s", cfg.StaffEmail)
	}
	if cfg.NotifyTimeout != 5*time.Second {
		t.Fatalf("expected 5s notify timeout, got %s", cfg.NotifyTimeout)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Fatalf("expected wildcard CORS, got %v", cfg.CORSAllowedOrigins)
	}
	if cfg.RateLimitRPS != 2 || cfg.RateLimitBurst != 10 {
		t.Fatalf("unexpected rate limit defaults %v/%d", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	if cfg.Location().String() != "Africa/Nairobi" {
		t.Fatalf("unexpected location %s", cfg.Location())
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("CMS_ENDPOINT", "")
	t.Setenv("SENDGRID_API_KEY", "SG.key")
	t.Setenv("EMAIL_PROVIDER", "")
	t.Setenv("NOTIFY_TIMEOUT", "3s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://dohanimedicare.com, https://admin.dohanimedicare.com")
	t.Setenv("RATE_LIMIT_RPS", "0.5")
	t.Setenv("REDIS_TLS", "true")

	cfg := Load()
	if cfg.Port != "9090" || cfg.Env != "production" || cfg.LogLevel != "debug" {
		t.Fatalf("server overrides not applied: %+v", cfg)
	}
	if cfg.StoreBackend != StorePostgres {
		t.Fatalf("expected postgres backend when DATABASE_URL set, got %s", cfg.StoreBackend)
	}
	if cfg.EmailProvider != EmailSendGrid {
		t.Fatalf("expected sendgrid when key set, got %s", cfg.EmailProvider)
	}
	if cfg.NotifyTimeout != 3*time.Second {
		t.Fatalf("expected 3s notify timeout, got %s", cfg.NotifyTimeout)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://admin.dohanimedicare.com" {
		t.Fatalf("unexpected origins %v", cfg.CORSAllowedOrigins)
	}
	if cfg.RateLimitRPS != 0.5 {
		t.Fatalf("expected 0.5 rps, got %v", cfg.RateLimitRPS)
	}
	if !cfg.RedisTLS {
		t.Fatalf("expected redis TLS enabled")
	}
}

func TestLoadPrefersCMSWhenEndpointSet(t *testing.T) {
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("CMS_ENDPOINT", "https://api.hygraph.com/v2/x/master")
	if got := Load().StoreBackend; got != StoreCMS {
		t.Fatalf("expected cms backend, got %s", got)
	}
}

func TestLocationFallsBackToUTC(t *testing.T) {
	cfg := &Config{Timezone: "Not/AZone"}
	if cfg.Location() != time.UTC {
		t.Fatalf("expected UTC fallback")
	}
	loc, err := cfg.ResolveLocation()
	if err == nil || loc != time.UTC {
		t.Fatalf("expected UTC and an error, got %s, %v", loc, err)
	}
}

func TestResolveLocationUsesEmbeddedZones(t *testing.T) {
	loc, err := (&Config{Timezone: "Africa/Nairobi"}).ResolveLocation()
	if err != nil {
		t.Fatalf("expected Nairobi to resolve: %v", err)
	}
	// EAT has no DST, so the offset is fixed.
	_, offset := time.Date(2026, time.October, 16, 0, 30, 0, 0, loc).Zone()
	if offset != 3*60*60 {
		t.Fatalf("expected +03:00, got %d", offset)
	}
}
