package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CASEGATE_TENANT_ID", "tenant-1")
	t.Setenv("CASEGATE_CLIENT_ID", "client-123")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Audience != "api://client-123" {
		t.Fatalf("expected derived audience, got %q", cfg.Audience)
	}
	if len(cfg.Algorithms) != 1 || cfg.Algorithms[0] != "RS256" {
		t.Fatalf("expected default RS256 allow-list, got %v", cfg.Algorithms)
	}
	if cfg.JWKSCacheTTL != 15*time.Minute {
		t.Fatalf("expected default cache TTL, got %v", cfg.JWKSCacheTTL)
	}
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %q", cfg.Port)
	}
}

func TestLoadRequiresClientID(t *testing.T) {
	t.Setenv("CASEGATE_TENANT_ID", "tenant-1")
	t.Setenv("CASEGATE_CLIENT_ID", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected missing client id to fail")
	}
}

func TestLoadRejectsNoneAlgorithm(t *testing.T) {
	t.Setenv("CASEGATE_TENANT_ID", "tenant-1")
	t.Setenv("CASEGATE_CLIENT_ID", "client-123")
	t.Setenv("CASEGATE_ALGORITHMS", "RS256,none")

	if _, err := Load(); err == nil {
		t.Fatal(`expected "none" in the allow-list to fail`)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("CASEGATE_TENANT_ID", "tenant-1")
	t.Setenv("CASEGATE_CLIENT_ID", "client-123")
	t.Setenv("CASEGATE_AUDIENCE", "api://other")
	t.Setenv("CASEGATE_ALGORITHMS", "RS256, RS384")
	t.Setenv("CASEGATE_JWKS_CACHE_TTL", "90s")
	t.Setenv("CASEGATE_CLOCK_SKEW", "30s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Audience != "api://other" {
		t.Fatalf("unexpected audience %q", cfg.Audience)
	}
	if len(cfg.Algorithms) != 2 || cfg.Algorithms[1] != "RS384" {
		t.Fatalf("unexpected algorithms %v", cfg.Algorithms)
	}
	if cfg.JWKSCacheTTL != 90*time.Second || cfg.Skew != 30*time.Second {
		t.Fatalf("unexpected durations %v/%v", cfg.JWKSCacheTTL, cfg.Skew)
	}
}

func TestLoadBadDuration(t *testing.T) {
	t.Setenv("CASEGATE_TENANT_ID", "tenant-1")
	t.Setenv("CASEGATE_CLIENT_ID", "client-123")
	t.Setenv("CASEGATE_JWKS_CACHE_TTL", "soon")

	if _, err := Load(); err == nil {
		t.Fatal("expected invalid duration to fail")
	}
}
