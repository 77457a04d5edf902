// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command devapi runs an in-memory implementation of the backend REST API for
// local development of the portal. Data is lost on restart.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/warungpintar/internal/devapi"
	"github.com/taibuivan/warungpintar/internal/platform/constants"
	"github.com/taibuivan/warungpintar/internal/platform/middleware"
)

type devConfig struct {
	Port string `env:"DEVAPI_PORT" envDefault:"8000"`
	// Prefix matches the portal's BACKEND_URL path.
	Prefix string `env:"DEVAPI_PREFIX" envDefault:"/api"`
}

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With(slog.String("app", "warungpintar-devapi"))
	slog.SetDefault(log)

	var cfg devConfig
	if err := env.Parse(&cfg); err != nil {
		log.Error("startup_failure", slog.String("context", "load configuration"), slog.Any("error", err))
		os.Exit(1)
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID())
	router.Use(middleware.StructuredLogger(log))
	router.Use(middleware.PanicRecovery(log))
	router.Mount(cfg.Prefix, devapi.NewHandler(devapi.NewStore()).Routes())

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Info("server_starting", slog.String("addr", server.Addr), slog.String("prefix", cfg.Prefix))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server_error", slog.Any("error", err))
		os.Exit(1)
	}
	log.Info("server_stopped_cleanly")
}
