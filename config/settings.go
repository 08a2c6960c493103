package config

import (
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type SequenceMode string

const (
	SequenceModeStrict     SequenceMode = "strict"
	SequenceModePermissive SequenceMode = "permissive"
)

// Settings holds the ledger and HTTP policy. It is read once at startup and
// passed to the ledger and handlers. Infrastructure knobs stay with the package
// that owns them and are read from the environment on use: API_SECRET (utils
// token signing), CACHE_LIFESPAN (utils cache TTL), REPORT_SLOW_MS (report
// timing) and the GCS and storage URL variables.
type Settings struct {
	// DisputeTolerance is the largest |actual - expected| a confirm accepts without disputing.
	DisputeTolerance decimal.Decimal
	// DepositTolerance is the largest |deposit - owner handover| a bank deposit accepts.
	DepositTolerance decimal.Decimal
	SequenceMode     SequenceMode

	AuditTopic string

	TokenLifespan time.Duration

	RateLimitEnabled     bool
	RateLimitMaxRequests int64
	RateLimitWindow      time.Duration

	CorsAllowedOrigins []string
	Production         bool
	SkipMigrations     bool
}

func DefaultSettings() Settings {
	return Settings{
		DisputeTolerance:     decimal.Zero,
		DepositTolerance:     decimal.NewFromInt(100),
		SequenceMode:         SequenceModeStrict,
		TokenLifespan:        24 * time.Hour,
		RateLimitMaxRequests: 600,
		RateLimitWindow:      time.Minute,
	}
}

func LoadSettings() Settings {
	s := DefaultSettings()
	s.DisputeTolerance = decimalFromEnv("HANDOVER_DISPUTE_TOLERANCE", s.DisputeTolerance)
	s.DepositTolerance = decimalFromEnv("BANK_DEPOSIT_TOLERANCE", s.DepositTolerance)
	s.SequenceMode = sequenceModeFromEnv()
	s.AuditTopic = strings.TrimSpace(os.Getenv("AUDIT_TOPIC"))
	if h := intFromEnv("TOKEN_HOUR_LIFESPAN", 0); h > 0 {
		s.TokenLifespan = time.Duration(h) * time.Hour
	}
	s.RateLimitEnabled = envFlag("RATE_LIMIT_ENABLED")
	if n := intFromEnv("RATE_LIMIT_MAX_REQUESTS", 0); n > 0 {
		s.RateLimitMaxRequests = int64(n)
	}
	if n := intFromEnv("RATE_LIMIT_WINDOW_SECONDS", 0); n > 0 {
		s.RateLimitWindow = time.Duration(n) * time.Second
	}
	s.CorsAllowedOrigins = splitAndTrim(os.Getenv("CORS_ALLOWED_ORIGINS"))
	s.Production = strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production")
	s.SkipMigrations = envFlag("SKIP_MIGRATIONS")
	return s
}

func decimalFromEnv(key string, def decimal.Decimal) decimal.Decimal {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := decimal.NewFromString(v)
	if err != nil || d.IsNegative() {
		return def
	}
	return d
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
