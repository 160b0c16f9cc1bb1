package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GIN_MODE", "debug")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DB_NAME", "")
	t.Setenv("CORS_ORIGINS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.DBName != "procurement" {
		t.Errorf("DBName = %q, want procurement", cfg.Database.DBName)
	}
	if cfg.App.JWTSecret == "" {
		t.Error("expected development JWT secret fallback")
	}
	if len(cfg.App.CORSOrigins) != 2 {
		t.Errorf("CORSOrigins = %v", cfg.App.CORSOrigins)
	}
	if cfg.Search.Timeout != 5*time.Second {
		t.Errorf("discovery timeout = %v", cfg.Search.Timeout)
	}
}

func TestLoadRequiresSecretInRelease(t *testing.T) {
	t.Setenv("GIN_MODE", "release")
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error without JWT_SECRET in release mode")
	}
}

func TestDSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: "5433", User: "u", Password: "p", DBName: "x", SSLMode: "require"}
	want := "postgres://u:p@db:5433/x?sslmode=require"
	if got := c.DSN(); got != want {
		t.Fatalf("DSN() = %q, want %q", got, want)
	}
}

func TestOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("RATE_LIMIT_BURST", "7")
	t.Setenv("DISCOVERY_TIMEOUT", "250ms")
	t.Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RateLimit.Burst != 7 {
		t.Errorf("Burst = %d", cfg.RateLimit.Burst)
	}
	if cfg.Search.Timeout != 250*time.Millisecond {
		t.Errorf("Timeout = %v", cfg.Search.Timeout)
	}
	if len(cfg.App.CORSOrigins) != 2 || cfg.App.CORSOrigins[1] != "https://b.example" {
		t.Errorf("CORSOrigins = %v", cfg.App.CORSOrigins)
	}
}
