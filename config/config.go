// Package config loads process configuration from the environment.
// Configuration is read once at startup and is immutable afterwards.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Config is the full service configuration.
type Config struct {
	// Port is the HTTP listen port.
	Port string

	// TenantID is the Azure AD tenant. Required unless IssuerURL points at
	// a non-Azure OIDC issuer.
	TenantID string
	// ClientID is the app registration's application (client) ID.
	ClientID string
	// Audience is the expected aud claim. Defaults to api://<ClientID>.
	Audience string
	// IssuerURL, when set, selects OIDC well-known discovery instead of
	// Azure authority-shaped endpoints.
	IssuerURL string
	// JWKSURL overrides the derived/discovered key-set URL.
	JWKSURL string
	// EnforceIssuer enables the exact iss claim check.
	EnforceIssuer bool
	// Algorithms is the signing algorithm allow-list.
	Algorithms []string
	// Skew is clock leeway for exp/nbf checks.
	Skew time.Duration
	// JWKSCacheTTL bounds how long a fetched key set is reused.
	JWKSCacheTTL time.Duration
	// JWKSRefreshSchedule is a cron spec for proactive key refreshes.
	JWKSRefreshSchedule string

	// RedirectURL and Scopes are published to clients for the
	// authorization-code flow.
	RedirectURL string
	Scopes      []string

	// ProcessPDFPath is the document served by /getprocessdetails.
	ProcessPDFPath string
	// DatabaseURL enables the Postgres case store and audit trail.
	DatabaseURL string
	// RedisAddr enables the Redis rate limiter and case cache.
	RedisAddr string
}

// Load reads CASEGATE_* environment variables and validates them.
func Load() (Config, error) {
	cfg := Config{
		Port:                envStr("CASEGATE_PORT", "8080"),
		TenantID:            os.Getenv("CASEGATE_TENANT_ID"),
		ClientID:            os.Getenv("CASEGATE_CLIENT_ID"),
		Audience:            os.Getenv("CASEGATE_AUDIENCE"),
		IssuerURL:           os.Getenv("CASEGATE_ISSUER_URL"),
		JWKSURL:             os.Getenv("CASEGATE_JWKS_URL"),
		EnforceIssuer:       envBool("CASEGATE_ENFORCE_ISSUER", false),
		Algorithms:          envList("CASEGATE_ALGORITHMS", []string{"RS256"}),
		JWKSRefreshSchedule: envStr("CASEGATE_JWKS_REFRESH_SCHEDULE", "@every 30m"),
		RedirectURL:         envStr("CASEGATE_REDIRECT_URL", "http://localhost:8080/docs/oauth2-redirect"),
		Scopes:              envList("CASEGATE_SCOPES", []string{"openid", "profile", "email"}),
		ProcessPDFPath:      envStr("CASEGATE_PROCESS_PDF", "pdfs/processo.pdf"),
		DatabaseURL:         os.Getenv("CASEGATE_DATABASE_URL"),
		RedisAddr:           os.Getenv("CASEGATE_REDIS_ADDR"),
	}

	var err error
	if cfg.Skew, err = envDuration("CASEGATE_CLOCK_SKEW", time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.JWKSCacheTTL, err = envDuration("CASEGATE_JWKS_CACHE_TTL", 15*time.Minute); err != nil {
		return Config{}, err
	}

	if cfg.ClientID == "" {
		return Config{}, errors.New("config: CASEGATE_CLIENT_ID is required")
	}
	if cfg.TenantID == "" && cfg.IssuerURL == "" {
		return Config{}, errors.New("config: one of CASEGATE_TENANT_ID or CASEGATE_ISSUER_URL is required")
	}
	if cfg.Audience == "" {
		cfg.Audience = "api://" + cfg.ClientID
	}
	for _, alg := range cfg.Algorithms {
		if strings.EqualFold(alg, "none") {
			return Config{}, errors.New(`config: CASEGATE_ALGORITHMS must not contain "none"`)
		}
	}
	return cfg, nil
}

func envStr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

func envList(key string, def []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s: %w", key, err)
	}
	return d, nil
}
