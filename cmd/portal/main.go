package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"c2d.dev/portal/internal/audit"
	"c2d.dev/portal/internal/backend"
	"c2d.dev/portal/internal/config"
	"c2d.dev/portal/internal/httpapi"
	"c2d.dev/portal/internal/migrate"
	"c2d.dev/portal/internal/obs"
	"c2d.dev/portal/internal/session"
	"c2d.dev/portal/internal/store"
	"c2d.dev/portal/internal/store/badgerstore"
	"c2d.dev/portal/internal/store/pg"
	"c2d.dev/portal/internal/store/redisstore"
	"c2d.dev/portal/internal/upload"
	"c2d.dev/portal/migrations"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

const janitorInterval = time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		obs.Logger().Fatal("config", zap.Error(err))
	}
	if err := obs.Configure(cfg.LogLevel); err != nil {
		obs.Logger().Fatal("log level", zap.String("level", cfg.LogLevel), zap.Error(err))
	}
	log := obs.Logger()
	defer func() { _ = log.Sync() }()

	obs.Init()
	obs.InitBuildInfo(version, commit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore, janitor, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("open store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer closeStore()

	client, err := backend.New(cfg.BackendURL,
		backend.WithTimeout(cfg.BackendTimeout),
		backend.WithRateLimit(cfg.BackendRPS, int(cfg.BackendRPS)+1),
		backend.WithLogger(log.Named("backend")),
	)
	if err != nil {
		log.Fatal("backend client", zap.Error(err))
	}
	uploads := upload.NewService(st,
		upload.WithMaxBytes(cfg.MaxUploadBytes),
		upload.WithBlobTTL(24*time.Hour),
	)

	api := httpapi.New(httpapi.Deps{
		Sessions:       session.NewManager(st, client, session.WithTTL(cfg.SessionTTL), session.WithLogger(log.Named("session"))),
		Backend:        client,
		Drafts:         st,
		Uploads:        uploads,
		Submitter:      backend.NewSubmitter(client, uploads),
		Probe:          httpapi.ReadyProbe{Store: st},
		Version:        version,
		Logger:         log.Named("onboarding"),
		WizardIdleTTL:  cfg.WizardIdleTTL,
		MaxUploadBytes: cfg.MaxUploadBytes,
		RateBurst:      cfg.RateBurst,
		RatePerSec:     cfg.RatePerSec,
		AllowedOrigins: cfg.CORSOrigins,
	})

	go runJanitor(ctx, log, api, janitor)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Handler(),
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Info("portal_starting",
		zap.String("version", version),
		zap.String("addr", srv.Addr),
		zap.String("backend", client.BaseURL()),
		zap.String("store", cfg.StoreDriver),
	)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("portal_stopping")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("portal_stopped")
}

// openStore selects the key-value backend. The returned janitor, when not nil, runs
// backend housekeeping on every tick.
func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) (store.Store, func(), func(context.Context) error, error) {
	switch cfg.StoreDriver {
	case config.DriverRedis:
		st, client, err := redisstore.Open(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			return nil, nil, nil, err
		}
		return st, closer(log, "redis", client), nil, nil

	case config.DriverPostgres:
		st, err := pg.Open(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := st.Ping(ctx); err != nil {
			_ = st.Close()
			return nil, nil, nil, err
		}
		mgr := migrate.NewManager(st.DB(), migrations.FS(), migrate.WithLogger(log.Named("migrate")))
		if pending, err := mgr.Pending(ctx); err != nil {
			log.Warn("migration_status_unavailable", zap.Error(err))
		} else if len(pending) > 0 {
			log.Warn("migrations_pending", zap.Strings("files", pending))
		}
		audit.UseSink(audit.NewSQLSink(st.DB()))
		janitor := func(ctx context.Context) error {
			n, err := st.PurgeExpired(ctx)
			if n > 0 {
				log.Debug("kv_expired_purged", zap.Int64("rows", n))
			}
			return err
		}
		return st, closer(log, "postgres", st), janitor, nil

	case config.DriverBadger:
		if err := os.MkdirAll(cfg.BadgerDir, 0o700); err != nil {
			return nil, nil, nil, err
		}
		st, err := badgerstore.Open(cfg.BadgerDir, log.Named("badger"))
		if err != nil {
			return nil, nil, nil, err
		}
		return st, closer(log, "badger", st), func(context.Context) error { return st.RunGC() }, nil

	default:
		st := store.NewMemory()
		janitor := func(context.Context) error {
			if n := st.PurgeExpired(); n > 0 {
				log.Debug("kv_expired_purged", zap.Int("entries", n))
			}
			return nil
		}
		return st, func() {}, janitor, nil
	}
}

func closer(log *zap.Logger, name string, c io.Closer) func() {
	return func() {
		if err := c.Close(); err != nil {
			log.Warn("store_close_failed", zap.String("driver", name), zap.Error(err))
		}
	}
}

func runJanitor(ctx context.Context, log *zap.Logger, api *httpapi.API, housekeeping func(context.Context) error) {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := api.SweepWizards(); n > 0 {
				log.Debug("wizards_evicted", zap.Int("count", n))
			}
			if housekeeping != nil {
				if err := housekeeping(ctx); err != nil {
					log.Warn("store_housekeeping_failed", zap.Error(err))
				}
			}
		}
	}
}
