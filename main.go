package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"pharmacy/internal/config"
	"pharmacy/internal/logger"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load(viper.New())
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zlog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	srv, err := newServer(ctx, cfg, zlog, reg)
	if err != nil {
		zlog.Fatal("failed to initialize server", zap.Error(err))
	}
	if err := srv.start(ctx); err != nil {
		zlog.Fatal("failed to start background workers", zap.Error(err))
	}

	// --- Start HTTP Server ---
	go func() {
		zlog.Info("starting server",
			zap.String("addr", cfg.AppPort),
			zap.String("storage", cfg.StorageDriver),
			zap.String("broker", cfg.EventsBroker),
		)
		if err := srv.app.Listen(cfg.AppPort); err != nil {
			zlog.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	<-ctx.Done()
	zlog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		zlog.Error("error during shutdown", zap.Error(err))
	}
	zlog.Info("server gracefully stopped")
}
