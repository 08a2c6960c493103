package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestLoadSettings_Defaults(t *testing.T) {
	for _, key := range []string{
		"HANDOVER_DISPUTE_TOLERANCE", "BANK_DEPOSIT_TOLERANCE", "HANDOVER_SEQUENCE_MODE",
		"AUDIT_TOPIC", "TOKEN_HOUR_LIFESPAN", "RATE_LIMIT_ENABLED", "RATE_LIMIT_MAX_REQUESTS",
		"RATE_LIMIT_WINDOW_SECONDS", "CORS_ALLOWED_ORIGINS", "GO_ENV", "SKIP_MIGRATIONS",
	} {
		t.Setenv(key, "")
	}

	s := LoadSettings()
	if !s.DisputeTolerance.IsZero() {
		t.Fatalf("expected zero dispute tolerance, got %s", s.DisputeTolerance)
	}
	if !s.DepositTolerance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected deposit tolerance 100, got %s", s.DepositTolerance)
	}
	if s.SequenceMode != SequenceModeStrict {
		t.Fatalf("expected strict mode, got %s", s.SequenceMode)
	}
	if s.TokenLifespan != 24*time.Hour || s.RateLimitEnabled || s.Production || s.SkipMigrations {
		t.Fatalf("unexpected defaults: %+v", s)
	}
	if s.CorsAllowedOrigins != nil {
		t.Fatalf("expected no origins, got %v", s.CorsAllowedOrigins)
	}
}

func TestLoadSettings_FromEnv(t *testing.T) {
	t.Setenv("HANDOVER_DISPUTE_TOLERANCE", "0.50")
	t.Setenv("BANK_DEPOSIT_TOLERANCE", "25")
	t.Setenv("HANDOVER_SEQUENCE_MODE", " Permissive ")
	t.Setenv("AUDIT_TOPIC", "cash-audit")
	t.Setenv("TOKEN_HOUR_LIFESPAN", "8")
	t.Setenv("RATE_LIMIT_ENABLED", "yes")
	t.Setenv("RATE_LIMIT_MAX_REQUESTS", "30")
	t.Setenv("RATE_LIMIT_WINDOW_SECONDS", "10")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("GO_ENV", "production")
	t.Setenv("SKIP_MIGRATIONS", "1")

	s := LoadSettings()
	if !s.DisputeTolerance.Equal(decimal.RequireFromString("0.5")) || !s.DepositTolerance.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("unexpected tolerances: %s %s", s.DisputeTolerance, s.DepositTolerance)
	}
	if s.SequenceMode != SequenceModePermissive || s.AuditTopic != "cash-audit" {
		t.Fatalf("unexpected mode/topic: %s %q", s.SequenceMode, s.AuditTopic)
	}
	if s.TokenLifespan != 8*time.Hour {
		t.Fatalf("expected 8h tokens, got %s", s.TokenLifespan)
	}
	if !s.RateLimitEnabled || s.RateLimitMaxRequests != 30 || s.RateLimitWindow != 10*time.Second {
		t.Fatalf("unexpected rate limit settings: %+v", s)
	}
	if len(s.CorsAllowedOrigins) != 2 || s.CorsAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins: %v", s.CorsAllowedOrigins)
	}
	if !s.Production || !s.SkipMigrations {
		t.Fatalf("expected production with migrations skipped")
	}
}

func TestLoadSettings_IgnoresInvalidValues(t *testing.T) {
	t.Setenv("HANDOVER_DISPUTE_TOLERANCE", "-1")
	t.Setenv("BANK_DEPOSIT_TOLERANCE", "lots")
	t.Setenv("HANDOVER_SEQUENCE_MODE", "chaotic")
	t.Setenv("RATE_LIMIT_MAX_REQUESTS", "-5")

	s := LoadSettings()
	if !s.DisputeTolerance.IsZero() || !s.DepositTolerance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("invalid tolerances must fall back to defaults: %s %s", s.DisputeTolerance, s.DepositTolerance)
	}
	if s.SequenceMode != SequenceModeStrict || s.RateLimitMaxRequests != 600 {
		t.Fatalf("unexpected fallbacks: %+v", s)
	}
}
