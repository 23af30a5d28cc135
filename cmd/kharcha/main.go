package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"kharcha/internal/backend"
	"kharcha/internal/cache"
	"kharcha/internal/cli"
	"kharcha/internal/core"
	"kharcha/internal/emi"
	apphttp "kharcha/internal/http"
	"kharcha/internal/log"
	"kharcha/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("Failed to load time zone", log.FieldError, err, "timezone", cfg.Timezone)
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

	repo := result.Repository
	clock := services.SystemClock(loc)

	snapshots := services.NewSnapshotCache(cfg.CacheSize, cfg.CacheTTL)
	schedules := cache.NewLRUCache[[]emi.Installment](cfg.CacheSize, cfg.CacheTTL)
	caches := cache.NewManager(logger.WithComponent(log.ComponentCache).Logger)
	caches.Register(snapshots)
	caches.Register(schedules)
	caches.StartCleanup(cfg.CacheTTL)

	ledger := services.NewLedgerService(repo, result.Publisher, snapshots, clock, logger)
	ledger.SetMembers(core.MembersFromNames(cfg.FamilyMembers))
	svc := apphttp.Services{
		Ledger:     ledger,
		Categories: services.NewCategoryService(repo, result.Publisher, ledger.Invalidate, logger),
		EMIs:       services.NewEMIService(repo, result.Publisher, schedules, clock, logger),
		Budget:     services.NewBudgetService(repo, result.Publisher, clock, logger),
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		Logger:       logger,
		RateLimitRPM: cfg.RateLimitRPM,
		Location:     loc,
		Ready: func(ctx context.Context) error {
			_, err := repo.ListCategories(ctx)
			return err
		},
	})
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		caches.Stop()
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Starting kharcha server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"timezone", loc.String(),
		"events", result.Publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
