// Command user-records serves the user record HTTP API.
//
// Startup order: load config, open the pool (retrying while the database is
// unreachable), make sure the users table exists, then listen. On SIGINT or
// SIGTERM the listener drains in-flight requests before the pool is closed.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/Skryldev/user-records/api"
	"github.com/Skryldev/user-records/config"
	"github.com/Skryldev/user-records/db"
	"github.com/Skryldev/user-records/repo"
	"github.com/Skryldev/user-records/service"
)

const instrumentationName = "github.com/Skryldev/user-records"

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// ── Structured logger ────────────────────────────────────────────────
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Store ─────────────────────────────────────────────────────────────
	database, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("db: close failed", slog.Any("error", err))
			return
		}
		logger.Info("db: pool closed")
	}()

	if err := repo.EnsureSchema(ctx, database, database.DriverName()); err != nil {
		return err
	}
	logger.Info("db: users table ready", slog.String("driver", database.DriverName()))

	go database.Monitor(ctx, cfg.DBMonitorInterval, logger)

	// ── HTTP ──────────────────────────────────────────────────────────────
	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: api.NewRouter(service.NewUserService(database), api.Options{
			Logger:         logger,
			RateLimitRPS:   cfg.RateLimitRPS,
			RateLimitBurst: cfg.RateLimitBurst,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down", slog.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

// openStore opens the pool with logging, metrics and tracing hooks, retrying
// while the database refuses connections.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*db.DB, error) {
	metrics, err := db.NewOTelMetrics(otel.Meter(instrumentationName), cfg.DBDriver)
	if err != nil {
		return nil, err
	}
	hooks := []db.Hook{
		db.NewLogHook(db.LogHookConfig{Logger: logger, SlowQueryThreshold: cfg.DBSlowQuery}),
		db.NewMetricsHook(metrics),
		db.NewTracingHook(db.NewOTelTracer(otel.Tracer(instrumentationName), cfg.DBDriver)),
	}

	var database *db.DB
	err = db.WithRetry(ctx, db.RetryConfig{
		MaxAttempts: 5,
		Delay:       2 * time.Second,
		OnRetry: func(attempt int, err error) {
			logger.Warn("db: connect failed, retrying", slog.Int("attempt", attempt), slog.Any("error", err))
		},
	}, func() error {
		d, err := db.OpenWithDriver(cfg.DBDriver, cfg.DriverOptions(), cfg.Pool(hooks...))
		if err != nil {
			return err
		}
		database = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("db: connected",
		slog.String("driver", cfg.DBDriver),
		slog.String("host", cfg.DBHost),
		slog.String("database", cfg.DBName),
	)
	return database, nil
}
