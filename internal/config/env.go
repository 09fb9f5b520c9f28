package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Env carries process configuration read once at startup.
type Env struct {
	AppAddr string
	AppEnv  string
	GinMode string

	DBDSN string

	ProviderBaseURL string
	ProviderAPIKey  string
	WebhookSecret   string
	FrontendURL     string

	JWTSecret string

	PlatformUserID int64
	SplitRule      SplitRule

	EscrowPendingTimeout time.Duration
	ReconcileInterval    time.Duration

	CORSOrigins []string
}

// SplitRule holds the commission percentages applied at settlement time.
// Percentages are whole percents of the gross booking amount. When no agent
// participates the agent percentage is folded into the host share.
type SplitRule struct {
	PlatformPct int64
	AgentPct    int64
}

// IsProduction reports whether the process runs with production safety rules
// (webhook secret mandatory, no signature bypass).
func (e Env) IsProduction() bool {
	return strings.EqualFold(e.AppEnv, "production")
}

func LoadEnv() Env {
	env := Env{
		AppAddr:         getString("APP_ADDR", ":8080"),
		AppEnv:          getString("APP_ENV", "development"),
		GinMode:         getString("GIN_MODE", ""),
		DBDSN:           getString("DB_DSN", ""),
		ProviderBaseURL: getString("PROVIDER_BASE_URL", "https://api.payments.example.com"),
		ProviderAPIKey:  getString("PROVIDER_API_KEY", ""),
		WebhookSecret:   getString("WEBHOOK_SECRET", ""),
		FrontendURL:     strings.TrimRight(getString("FRONTEND_URL", "http://localhost:3000"), "/"),
		JWTSecret:       getString("JWT_SECRET", "super-secret-key-change-me"),
		PlatformUserID:  getInt("PLATFORM_USER_ID", 1),
		SplitRule: SplitRule{
			PlatformPct: getInt("SPLIT_PLATFORM_PCT", 5),
			AgentPct:    getInt("SPLIT_AGENT_PCT", 10),
		},
		EscrowPendingTimeout: getDuration("ESCROW_PENDING_TIMEOUT", 24*time.Hour),
		ReconcileInterval:    getDuration("RECONCILE_INTERVAL", 15*time.Minute),
	}

	if raw := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS")); raw != "" {
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				env.CORSOrigins = append(env.CORSOrigins, o)
			}
		}
	} else {
		env.CORSOrigins = []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}
	}

	if env.DBDSN == "" {
		env.DBDSN = buildDSN()
	}

	return env
}

func buildDSN() string {
	user := getString("DB_USER", "root")
	pass := getString("DB_PASS", "")
	host := getString("DB_HOST", "127.0.0.1:3306")
	name := getString("DB_NAME", "stayhub")
	return user + ":" + pass + "@tcp(" + host + ")/" + name +
		"?parseTime=true&loc=Local&charset=utf8mb4&timeout=5s&readTimeout=30s&writeTimeout=30s"
}

func getString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int64) int64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}
