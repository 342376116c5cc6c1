package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StoreDriver != DriverMemory {
		t.Fatalf("unexpected driver %q", cfg.StoreDriver)
	}
	if cfg.MaxUploadBytes != 5<<20 {
		t.Fatalf("unexpected upload limit %d", cfg.MaxUploadBytes)
	}
	if !strings.HasSuffix(cfg.BadgerDir, filepath.Join(AppName, "kv")) {
		t.Fatalf("unexpected badger dir %q", cfg.BadgerDir)
	}
}

func TestLoadOverlaysEnvironment(t *testing.T) {
	t.Setenv("PORTAL_STORE_DRIVER", "REDIS")
	t.Setenv("PORTAL_REDIS_ADDR", "cache:6379")
	t.Setenv("PORTAL_BACKEND_URL", "https://api.example.com/")
	t.Setenv("PORTAL_SESSION_TTL", "2h")
	t.Setenv("PORTAL_RATE_BURST", "5")
	t.Setenv("PORTAL_CORS_ORIGINS", "https://a.example, ,https://b.example")

	cfg, err := Load(filepath.Join(t.TempDir(), "none.env"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StoreDriver != DriverRedis || cfg.RedisAddr != "cache:6379" {
		t.Fatalf("redis settings not applied: %+v", cfg)
	}
	if cfg.BackendURL != "https://api.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.BackendURL)
	}
	if cfg.SessionTTL != 2*time.Hour || cfg.RateBurst != 5 {
		t.Fatalf("unexpected ttl/burst: %v/%d", cfg.SessionTTL, cfg.RateBurst)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected cors origins: %v", cfg.CORSOrigins)
	}
}

func TestLoadReadsDotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("PORTAL_LISTEN_ADDR=:9999\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Unsetenv("PORTAL_LISTEN_ADDR") })

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":9999" {
		t.Fatalf("expected listen addr from .env, got %q", cfg.ListenAddr)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("PORTAL_BACKEND_TIMEOUT", "soon")
	if _, err := Load(filepath.Join(t.TempDir(), "x.env")); err == nil {
		t.Fatal("expected duration parse error")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.StoreDriver = "etcd" }},
		{"postgres without dsn", func(c *Config) { c.StoreDriver = DriverPostgres }},
		{"empty backend", func(c *Config) { c.BackendURL = " " }},
		{"zero ttl", func(c *Config) { c.SessionTTL = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mut(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
