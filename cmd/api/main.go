package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/jerseyhouse/storefront/internal/app"
	"github.com/jerseyhouse/storefront/internal/auth"
	"github.com/jerseyhouse/storefront/internal/config"
	"github.com/jerseyhouse/storefront/internal/httpapi"
	"github.com/jerseyhouse/storefront/internal/logger"
	"github.com/jerseyhouse/storefront/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	logr := logger.New(cfg.Env)

	baseCtx := context.Background()

	application, err := app.New(baseCtx, cfg, logr)
	if err != nil {
		logr.Error("failed to init application", "err", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := application.Close(); cerr != nil {
			logr.Error("error closing database", "err", cerr)
		}
	}()

	issuer, err := auth.NewIssuer(cfg.AdminTokenSecret, cfg.AdminTokenTTL)
	if err != nil {
		logr.Error("failed to init token issuer", "err", err)
		os.Exit(1)
	}

	srv := server.New(cfg, logr)
	srv.SetReadiness(application.Ready)

	httpapi.Register(srv.Mux(), logr, application.Services, issuer)

	if !application.Services.Payments.Config().Configured() {
		logr.Warn("payhere credentials not set; online payments disabled")
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-errCh:
		if err != nil {
			logr.Error("server error", "err", err)
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logr.Error("server shutdown failed", "err", err)
	}
}
