// Package config loads portal settings from the environment, optionally seeded by a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
)

const (
	// AppName names the data directory under XDG_DATA_HOME.
	AppName = "c2d-portal"

	envPrefix = "PORTAL_"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverBadger   = "badger"
)

// Config holds every runtime setting of the portal.
type Config struct {
	ListenAddr     string
	BackendURL     string
	BackendTimeout time.Duration
	BackendRPS     float64

	StoreDriver string
	RedisAddr   string
	RedisDB     int
	PostgresDSN string
	BadgerDir   string

	SessionTTL     time.Duration
	WizardIdleTTL  time.Duration
	MaxUploadBytes int64

	RateBurst   int
	RatePerSec  int
	CORSOrigins []string

	LogLevel string
}

// Default returns the configuration used when no variable is set.
func Default() Config {
	return Config{
		ListenAddr:     ":8080",
		BackendURL:     "http://localhost:8080",
		BackendTimeout: 15 * time.Second,
		BackendRPS:     10,
		StoreDriver:    DriverMemory,
		RedisAddr:      "localhost:6379",
		BadgerDir:      filepath.Join(xdg.DataHome, AppName, "kv"),
		SessionTTL:     12 * time.Hour,
		WizardIdleTTL:  30 * time.Minute,
		MaxUploadBytes: 5 << 20,
		RateBurst:      40,
		RatePerSec:     20,
		LogLevel:       "info",
	}
}

// Load reads the given .env files (missing files are ignored; none means ".env"),
// then overlays PORTAL_* environment variables on Default().
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := Default()
	var errs []error
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok {
			*dst = v
		}
	}
	dur := func(name string, dst *time.Duration) {
		if v, ok := lookup(name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
				return
			}
			*dst = d
		}
	}
	num := func(name string, dst *int) {
		if v, ok := lookup(name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
				return
			}
			*dst = n
		}
	}

	str("LISTEN_ADDR", &cfg.ListenAddr)
	str("BACKEND_URL", &cfg.BackendURL)
	dur("BACKEND_TIMEOUT", &cfg.BackendTimeout)
	if v, ok := lookup("BACKEND_RPS"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sBACKEND_RPS: %w", envPrefix, err))
		} else {
			cfg.BackendRPS = f
		}
	}
	str("STORE_DRIVER", &cfg.StoreDriver)
	str("REDIS_ADDR", &cfg.RedisAddr)
	num("REDIS_DB", &cfg.RedisDB)
	str("PG_DSN", &cfg.PostgresDSN)
	str("BADGER_DIR", &cfg.BadgerDir)
	dur("SESSION_TTL", &cfg.SessionTTL)
	dur("WIZARD_IDLE_TTL", &cfg.WizardIdleTTL)
	if v, ok := lookup("MAX_UPLOAD_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sMAX_UPLOAD_BYTES: %w", envPrefix, err))
		} else {
			cfg.MaxUploadBytes = n
		}
	}
	num("RATE_BURST", &cfg.RateBurst)
	num("RATE_PER_SEC", &cfg.RatePerSec)
	if v, ok := lookup("CORS_ORIGINS"); ok {
		cfg.CORSOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}
	str("LOG_LEVEL", &cfg.LogLevel)

	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	cfg.StoreDriver = strings.ToLower(cfg.StoreDriver)
	cfg.BackendURL = strings.TrimRight(cfg.BackendURL, "/")
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports settings that cannot work together.
func (c Config) Validate() error {
	if strings.TrimSpace(c.BackendURL) == "" {
		return errors.New("backend url is required")
	}
	switch c.StoreDriver {
	case DriverMemory:
	case DriverRedis:
		if c.RedisAddr == "" {
			return errors.New("redis driver requires PORTAL_REDIS_ADDR")
		}
	case DriverPostgres:
		if c.PostgresDSN == "" {
			return errors.New("postgres driver requires PORTAL_PG_DSN")
		}
	case DriverBadger:
		if c.BadgerDir == "" {
			return errors.New("badger driver requires PORTAL_BADGER_DIR")
		}
	default:
		return fmt.Errorf("unsupported store driver %q", c.StoreDriver)
	}
	if c.SessionTTL <= 0 {
		return errors.New("session ttl must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("max upload bytes must be positive")
	}
	if c.RateBurst <= 0 || c.RatePerSec <= 0 {
		return errors.New("rate limit settings must be positive")
	}
	return nil
}

func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + name)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}
