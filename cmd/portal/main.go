package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	httptransport "github.com/spec-kit/task-portal/internal/api/http"
	"github.com/spec-kit/task-portal/internal/api/http/handlers"
	"github.com/spec-kit/task-portal/internal/auth"
	"github.com/spec-kit/task-portal/internal/backend"
	"github.com/spec-kit/task-portal/internal/config"
	"github.com/spec-kit/task-portal/internal/cryptox"
	"github.com/spec-kit/task-portal/internal/events"
	"github.com/spec-kit/task-portal/internal/observability"
	"github.com/spec-kit/task-portal/internal/persistence"
	"github.com/spec-kit/task-portal/internal/recovery"
	"github.com/spec-kit/task-portal/internal/session"
	"github.com/spec-kit/task-portal/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(dispatcher, metrics, logger)

	store, checks, jobs, closeStore := openStore(ctx, cfg, logger)
	defer closeStore()

	sealer, err := cryptox.NewSealer(cfg.Storage.SealKey)
	if err != nil {
		logger.Fatal("failed to init storage sealer", zap.Error(err))
	}
	if cfg.Storage.SealKey == "" {
		logger.Warn("STORAGE_SEAL_KEY not set; session storage is kept in plain text")
	}

	api := backend.NewClient(cfg.Backend, logger)
	sessions := session.NewRegistry(session.Dependencies{
		Store:      session.NewSealedStore(store, sealer),
		Auth:       api,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	flows := recovery.NewRegistry(api, recovery.RealClock{}, recovery.Timings{
		OTPWindow:      cfg.Recovery.OTPWindow,
		ResendCooldown: cfg.Recovery.ResendCooldown,
		RedirectDelay:  cfg.Recovery.RedirectDelay,
		Unit:           cfg.Recovery.Unit(),
	}, logger)
	defer flows.Close()

	app := httptransport.NewServer(httptransport.Deps{
		Config:    cfg,
		Logger:    logger,
		Metrics:   metrics,
		Tokens:    auth.NewTokenManager(cfg.Session.CookieSecret, cfg.Session.CookieTTL()),
		Sessions:  sessions,
		Flows:     flows,
		Registrar: api,
		Tasks:     api,
		Admin:     api,
		Checks:    checks,
	})

	jobs = append(jobs,
		worker.Job{Name: "sessions", Run: func(ctx context.Context) (int, error) {
			return sessions.Sweep(ctx, cfg.Session.IdleTimeout()), nil
		}},
		worker.Job{Name: "recovery", Run: func(context.Context) (int, error) {
			return flows.Sweep(cfg.Recovery.IdleTimeout()), nil
		}},
	)
	sweeperDone := worker.NewSweeper(cfg.App.SweepInterval(), logger, jobs...).Start(ctx)

	go func() {
		logger.Info("portal listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
	cancel()
	<-sweeperDone
}

// openStore connects the configured session storage and returns the
// readiness checks and cleanup jobs that belong to it.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (session.Store, []handlers.Check, []worker.Job, func()) {
	switch cfg.Storage.Driver {
	case config.StorageRedis:
		redis := persistence.NewRedis(cfg.Redis, logger)
		store := session.NewRedisStore(redis.Client, cfg.Storage.KeyPrefix, cfg.Storage.TTL())
		return store, []handlers.Check{{Name: "redis", Pinger: redis}}, nil, redis.Close

	case config.StoragePostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Fatal("failed to connect postgres", zap.Error(err))
		}
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		store := session.NewPostgresStore(pg.PoolHandle(), cfg.Storage.TTL())
		purge := worker.Job{Name: "storage", Run: func(ctx context.Context) (int, error) {
			n, err := store.Purge(ctx)
			return int(n), err
		}}
		return store, []handlers.Check{{Name: "postgres", Pinger: pg}}, []worker.Job{purge}, pg.Close
	}

	logger.Warn("sessions are kept in memory and lost on restart")
	return session.NewMemoryStore(), nil, nil, func() {}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
