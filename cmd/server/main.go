// AgriSense classification server entry point
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/TechRanger101/AgriSense-App/internal/archive"
	"github.com/TechRanger101/AgriSense-App/internal/config"
	"github.com/TechRanger101/AgriSense-App/internal/pipeline"
	"github.com/TechRanger101/AgriSense-App/pkg/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A .env file is optional; the environment wins over it.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Set up logger
	logger := setupLogger(cfg.Logging.Level, cfg.Logging.Format)

	logger.Info("starting AgriSense classification service",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	// Optional run archive
	var recorder pipeline.Recorder
	if cfg.Database.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		archiver, err := archive.Connect(ctx, cfg.Database.URL, cfg.Database.MaxConns)
		if err != nil {
			cancel()
			return fmt.Errorf("failed to connect run archive: %w", err)
		}
		defer archiver.Close()

		err = archiver.EnsureSchema(ctx)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to prepare run archive: %w", err)
		}

		recorder = archiver
		logger.Info("archiving runs to PostGIS", "max_conns", cfg.Database.MaxConns)
	}

	srv, err := server.NewFromConfig(cfg, recorder, logger)
	if err != nil {
		return err
	}
	defer srv.Close()

	// Create server
	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      srv.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		logger.Info("received shutdown signal", "signal", sig)
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	logger.Info("shutting down server", "timeout", cfg.Server.ShutdownTimeout)
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func setupLogger(level, format string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
