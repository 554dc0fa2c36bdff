// Command server is the entry point for the bulletin board API.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"bulletin/internal/bootstrap"
	"bulletin/internal/config"
	"bulletin/internal/observability"
	"bulletin/internal/server"
	"bulletin/internal/timeutil"

	"github.com/joho/godotenv"
)

// @title Bulletin Board API
// @version 1.0
// @description Anonymous bulletin board with password-protected edits and deletes

// @contact.name API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:3000
// @BasePath /api
// @schemes http https

func main() {
	if err := run(); err != nil {
		slog.Error("server exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	closeLogs, err := observability.SetupLogger(observability.LogConfig{
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
		Location:  timeutil.LoadLocation(cfg.LogTimezone),
		ToFile:    cfg.LogToFile,
		File:      cfg.LogFile,
		ErrorFile: cfg.LogErrorFile,
	})
	if err != nil {
		return err
	}
	defer func() { _ = closeLogs() }()

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		Enabled:        cfg.TracingEnabled,
		ServiceName:    server.ServiceName,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Env,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSamplerRatio,
	})
	if err != nil {
		return err
	}

	rt, err := bootstrap.InitRuntime(cfg, bootstrap.Options{})
	if err != nil {
		return err
	}

	srv, err := server.NewServerWithDeps(cfg, rt.DB, rt.Redis, rt.Hasher)
	if err != nil {
		_ = rt.Close()
		return err
	}

	srv.App()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var serveErr error
	select {
	case sig := <-sigChan:
		slog.Info("shutting down server", slog.String("signal", sig.String()))
	case serveErr = <-errCh:
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server resource shutdown error", slog.String("error", err.Error()))
	}
	if err := shutdownTracing(ctx); err != nil {
		slog.Error("tracer shutdown error", slog.String("error", err.Error()))
	}

	return serveErr
}
