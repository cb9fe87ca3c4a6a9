package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trade-mentor/internal/logger"
	"trade-mentor/internal/trace"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx := context.Background()

	if err := initializeSystem(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() {
		if err := trace.Shutdown(ctx); err != nil {
			logger.ErrorWithErr(ctx, "Failed to shutdown tracer", err)
		}
	}()

	cfg, err := loadConfig(ctx, configPath())
	if err != nil {
		os.Exit(1)
	}

	srv := buildServer(ctx, cfg)

	errc := make(chan error, 1)
	go func() {
		logger.Info(ctx, "HTTP server listening", "address", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigc:
		logger.Info(ctx, "Shutting down", "signal", sig.String())
	case err := <-errc:
		if err != nil {
			logger.ErrorWithErr(ctx, "HTTP server failed", err)
			os.Exit(1)
		}
	}

	stopCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(stopCtx); err != nil {
		logger.ErrorWithErr(ctx, "Graceful shutdown failed", err)
	}
	logger.Info(ctx, "Server stopped")
}

func configPath() string {
	if p := os.Getenv("MENTOR_CONFIG"); p != "" {
		return p
	}
	return "config.yaml"
}
