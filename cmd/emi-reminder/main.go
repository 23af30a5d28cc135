package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"kharcha/internal/amqp"
	"kharcha/internal/backend"
	"kharcha/internal/cli"
	"kharcha/internal/log"
	"kharcha/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentReminder)
	logger.Info("Starting emi-reminder")

	cfg := cli.LoadAndValidateConfig(logger)
	loc, err := cfg.Location()
	if err != nil {
		logger.Error("Failed to load time zone", log.FieldError, err, "timezone", cfg.Timezone)
		os.Exit(1)
	}
	policy, err := services.GetReminderPolicy(cfg.ReminderPolicy)
	if err != nil {
		logger.Error("Invalid reminder policy", log.FieldError, err)
		os.Exit(1)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	processor := services.NewReminderProcessor(result.Repository, result.Publisher, policy,
		services.SystemClock(loc), logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	logger.Info("EMI reminder processor configured",
		"interval", cfg.ReminderInterval,
		"policy", cfg.ReminderPolicy,
		"backend", cfg.DataBackend,
		"events", result.Events != nil)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return processor.Run(gctx, cfg.ReminderInterval)
	})
	if result.Events != nil {
		handler := amqp.Dispatch(services.NewNotificationLog(logger))
		g.Go(func() error {
			return result.Events.Consume(gctx, handler)
		})
	}

	runErr := g.Wait()
	if err := result.Cleanup(); err != nil {
		logger.Error("Backend cleanup error", log.FieldError, err)
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logger.Error("EMI reminder stopped", log.FieldError, runErr)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("EMI reminder shutdown complete")
}
