// Package main provides the entry point for the video generation lab server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KINGMAKER-SYSTEMS/content-posting-lab/internal/bootstrap"
	"github.com/KINGMAKER-SYSTEMS/content-posting-lab/internal/config"
	"github.com/KINGMAKER-SYSTEMS/content-posting-lab/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration from .env and the environment
	cfg, err := config.Load(config.DefaultEnvFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting content posting lab",
		slog.Int("port", cfg.Port),
		slog.String("log_format", cfg.LogFormat),
		slog.String("log_level", cfg.LogLevel),
		slog.String("projects_dir", cfg.ProjectsDir),
		slog.Int("max_in_flight_units", cfg.MaxInFlightUnits),
		slog.Bool("s3_enabled", cfg.S3Enabled()),
		slog.Bool("minio_enabled", cfg.MinIOEnabled()),
	)
	logger.Debug("configuration", slog.String("config", cfg.String()))

	// Unit workflows outlive requests but not the process.
	workCtx, stopWork := context.WithCancel(context.Background())
	defer stopWork()

	deps, err := bootstrap.NewDependencies(workCtx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}

	handlers := server.NewHandlers(deps.Service, deps.Registry, deps.Projects, deps.Resolver, logger,
		server.WithDefaultProject(cfg.DefaultProject),
	)
	router := server.NewRouter(handlers, logger, server.Config{
		AllowedOrigins: cfg.AllowedOrigins,
		ProjectsDir:    cfg.ProjectsDir,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute, // multipart image uploads
		// No write timeout: zip downloads and job streams stay open for minutes.
		IdleTimeout: 60 * time.Second,
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening",
			slog.String("addr", srv.Addr),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server failed: %w", err)
		}
	}()

	select {
	case sig := <-shutdownCh:
		logger.Info("received shutdown signal",
			slog.String("signal", sig.String()),
		)
	case err := <-errCh:
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Info("shutting down server...")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	// In-flight units are abandoned and end up failed.
	stopWork()
	deps.Service.Wait()

	logger.Info("server stopped gracefully")
	return nil
}
