// The scheduler is the external trigger for the notification pipeline: every
// interval (or once, for cron deployments) it runs Generate then ProcessAll
// for each account. Per-account errors are logged, never fatal to the sweep.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lease-notify/internal/config"
	"lease-notify/internal/metrics"
	"lease-notify/internal/notifier"
	"lease-notify/internal/repository"
	"lease-notify/internal/service"

	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	once := flag.Bool("once", false, "run a single sweep and exit")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	repo, err := repository.NewSQLiteRepository(cfg.DatabasePath)
	if err != nil {
		logger.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	sender, err := notifier.New(cfg.Sender, cfg.Dispatch, logger)
	if err != nil {
		logger.Error("failed to initialize sender", "error", err)
		os.Exit(1)
	}

	limiter := service.NewDispatchLimiter(cfg.Dispatch.MaxSendsPerMinute)
	engineMetrics := metrics.NewMetrics(prometheus.NewRegistry())
	svc := service.NewNotificationService(repo, sender, limiter, engineMetrics, cfg.Dispatch.Concurrency)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("shutting down scheduler")
		cancel()
	}()

	sweep(ctx, svc, repo, logger)
	if *once {
		return
	}

	ticker := time.NewTicker(cfg.Scheduler.Interval)
	defer ticker.Stop()

	logger.Info("scheduler started", "interval", cfg.Scheduler.Interval.String())
	for {
		select {
		case <-ctx.Done():
			logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			sweep(ctx, svc, repo, logger)
		}
	}
}

// sweep runs generate-then-process for every account that owns leases
func sweep(ctx context.Context, svc *service.NotificationService, repo repository.NotificationRepository, logger *slog.Logger) {
	accounts, err := repo.ListAccountIDs(ctx)
	if err != nil {
		logger.Error("failed to list accounts", "error", err)
		return
	}

	now := time.Now()
	for _, accountID := range accounts {
		generated, err := svc.Generate(ctx, accountID, nil, now)
		if err != nil {
			logger.Error("generation failed", "account_id", accountID, "error", err)
			continue
		}

		processed, err := svc.ProcessAll(ctx, accountID, now)
		if err != nil {
			logger.Error("processing failed", "account_id", accountID, "error", err)
			continue
		}

		logger.Info("sweep completed for account",
			"account_id", accountID,
			"created", generated.CreatedCount,
			"processed", processed.Processed,
			"sent", processed.Sent,
			"failed", processed.Failed,
		)
	}
}
