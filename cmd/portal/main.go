// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command portal is the entry point of the Warung Pintar gateway.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Create the metrics registry.
//  4. Choose the credential store (Redis, else in-memory).
//  5. Choose the ingestion audit log (PostgreSQL with migrations, else in-memory).
//  6. Create the backend and model clients.
//  7. Wire the domain handlers.
//  8. Start background sweeps and the HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/taibuivan/warungpintar/internal/api"
	"github.com/taibuivan/warungpintar/internal/assistant"
	"github.com/taibuivan/warungpintar/internal/backend"
	"github.com/taibuivan/warungpintar/internal/gate"
	"github.com/taibuivan/warungpintar/internal/inference"
	"github.com/taibuivan/warungpintar/internal/ingest"
	"github.com/taibuivan/warungpintar/internal/platform/config"
	"github.com/taibuivan/warungpintar/internal/platform/constants"
	"github.com/taibuivan/warungpintar/internal/platform/ctxutil"
	"github.com/taibuivan/warungpintar/internal/platform/metrics"
	"github.com/taibuivan/warungpintar/internal/platform/migration"
	pgstore "github.com/taibuivan/warungpintar/internal/platform/postgres"
	redisstore "github.com/taibuivan/warungpintar/internal/platform/redis"
	"github.com/taibuivan/warungpintar/internal/platform/sec"
	"github.com/taibuivan/warungpintar/internal/proxy"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	log := newLogger(slog.LevelInfo)
	slog.SetDefault(log)

	log.Info("service_initializing", slog.String("version", constants.AppVersion))

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		log = newLogger(slog.LevelDebug)
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("backend_url", cfg.BackendURL),
	)

	// Root context for startup. A 30s deadline surfaces misconfiguration
	// instead of hanging.
	startupCtx, startupCancel := context.WithTimeout(ctxutil.WithLogger(context.Background(), log), 30*time.Second)
	defer startupCancel()

	var checks []api.Check

	// ── 3. Metrics ────────────────────────────────────────────────────────
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	// ── 4. Credential Store ───────────────────────────────────────────────
	var credentials gate.CredentialStore = gate.NewMemoryCredentialStore()
	if cfg.RedisURL != "" {
		rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
		must(log, err, "connect to redis")
		defer func() {
			log.Info("closing_redis_client")
			if cerr := rdb.Close(); cerr != nil {
				log.Error("redis_close_error", slog.Any("error", cerr))
			}
		}()

		credentials = gate.NewRedisCredentialStore(rdb, constants.CredentialTTL)
		checks = append(checks, api.Check{Name: "redis", Probe: func(ctx context.Context) error {
			return redisstore.Ping(ctx, rdb)
		}})
	} else {
		log.Warn("redis_not_configured", slog.String("fallback", "in-memory credential store"))
	}

	// ── 5. Audit Log ──────────────────────────────────────────────────────
	var attempts ingest.AttemptLog = ingest.NewMemoryAttemptLog()
	if cfg.DatabaseURL != "" {
		pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
		must(log, err, "connect to postgres")
		defer func() {
			log.Info("closing_postgres_pool")
			pool.Close()
		}()

		must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

		attempts = ingest.NewPostgresAttemptLog(pool)
		checks = append(checks, api.Check{Name: "postgres", Probe: func(ctx context.Context) error {
			return pgstore.Ping(ctx, pool)
		}})
	} else {
		log.Warn("database_not_configured", slog.String("fallback", "in-memory audit log"))
	}

	// ── 6. Collaborators ──────────────────────────────────────────────────
	client := backend.NewClient(cfg.BackendURL, &http.Client{Timeout: constants.BackendTimeout}, collector)

	var generator ingest.Generator = inference.Disabled{}
	if cfg.GeminiAPIKey != "" {
		model, err := inference.NewClient(cfg.GeminiAPIKey, cfg.GeminiModel, collector)
		must(log, err, "create inference client")
		generator = model
	} else {
		log.Warn("inference_not_configured", slog.String("effect", "file analysis and assistant are unavailable"))
	}

	signer, err := sec.NewCookieSigner(cfg.SessionSecret, constants.SessionIssuer, constants.SessionCookieTTL)
	must(log, err, "initialize cookie signer")

	// ── 7. Domain Wiring ──────────────────────────────────────────────────
	manager := gate.NewManager(gate.NewBackendIdentity(client), credentials, collector)
	resolver := gate.NewResolver(manager, gate.NewRouteTable(gate.DefaultRoutes), collector)
	pipeline := ingest.NewPipeline(ingest.NewModelAnalyzer(generator), client, attempts, collector)

	liveness, readiness := api.NewHealthHandlers(checks, log)
	handlers := api.Handlers{
		Liveness:   liveness,
		Readiness:  readiness,
		Metrics:    metrics.Handler(registry),
		Instrument: collector.Instrument,
		Resolver:   resolver,
		Gate:       gate.NewHandler(resolver),
		Ingest:     ingest.NewHandler(pipeline),
		Assistant:  assistant.NewHandler(assistant.New(generator)),
		Proxy:      proxy.NewHandler(client),
		Shell:      api.NewShell(os.DirFS(cfg.StaticDir)),
	}

	// ── 8. Background Work & HTTP Server ──────────────────────────────────
	runCtx, stopRun := context.WithCancel(ctxutil.WithLogger(context.Background(), log))
	defer stopRun()

	go manager.Run(runCtx)
	go pipeline.Run(runCtx)

	server := api.NewServer(runCtx, cfg, log, signer, handlers)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown_signal_received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server_startup_error", slog.Any("error", err))
	}

	log.Info("shutting_down_server", slog.Duration("timeout", constants.ShutdownTimeout))
	if err := server.Shutdown(constants.ShutdownTimeout); err != nil {
		log.Error("shutdown_error", slog.Any("error", err))
		stopRun()
		os.Exit(1)
	}

	log.Info("server_stopped_cleanly")
}

func newLogger(level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(slog.String("app", constants.AppName))
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is limited to startup wiring. After startup, all errors are returned and
// handled explicitly.
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup_failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
