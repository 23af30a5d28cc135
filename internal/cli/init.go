// Package cli provides the startup and shutdown steps shared by
// cmd/kharcha and cmd/emi-reminder.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"kharcha/internal/config"
	"kharcha/internal/log"
)

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// makes it the slog default.
func SetupLogger(component string) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Component = component
	if level, ok := log.ParseLevel(os.Getenv("LOG_LEVEL")); ok {
		cfg.Level = level
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		cfg.Format = format
	}
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads dotenv files (./.env when none are named) without
// overriding variables already set. A missing file is not an error: in
// production the environment is set by the service manager.
func LoadEnvFile(paths ...string) {
	_ = godotenv.Load(paths...)
}

// LoadAndValidateConfig exits the process when the environment does not
// produce a valid configuration.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. On
// that signal cleanup runs with a deadline of timeout; done is closed once
// it returns or the deadline passes.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		defer close(done)
		<-ctx.Done()
		stop()
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		finished := make(chan struct{})
		go func() {
			defer close(finished)
			if cleanup != nil {
				cleanup(shutdownCtx)
			}
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached", log.FieldDuration, timeout.Milliseconds())
		}
	}()

	return ctx, done
}

// WaitForShutdown blocks until the signal arrived and cleanup is over.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
