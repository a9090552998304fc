package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zynqcloud/catalog/internal/catalog"
	"github.com/zynqcloud/catalog/internal/cleanup"
	"github.com/zynqcloud/catalog/internal/collection"
	"github.com/zynqcloud/catalog/internal/config"
	"github.com/zynqcloud/catalog/internal/handler"
	"github.com/zynqcloud/catalog/internal/store"
	"github.com/zynqcloud/catalog/internal/validate"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("catalog service failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	// shutdownSignals is defined in signals.go (os.Interrupt) and extended by
	// signals_unix.go (+ SIGTERM) via build tags.
	ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals...)
	defer stop()

	shutdownTracing, err := setupTracing(ctx, cfg.OTLPEndpoint, logger)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracing shutdown failed", "err", err)
		}
	}()

	backend, err := store.Open(ctx, cfg)
	if err != nil {
		return err
	}
	if c, ok := backend.(io.Closer); ok {
		defer c.Close()
	}
	if ls, ok := backend.(*store.Local); ok && cfg.CleanupInterval > 0 {
		cleanup.RunPeriodic(ctx, ls.Root(), cfg.TmpTTL, cfg.CleanupInterval, logger)
	}

	validator, err := validate.New()
	if err != nil {
		return err
	}
	svc := catalog.New(collection.New(backend, cfg.Collections, logger), validator, logger)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler.New(cfg, svc, backend, logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("catalog service starting", "addr", srv.Addr, "backend", cfg.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down, draining connections")
		sctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("catalog service stopped")
	return nil
}
