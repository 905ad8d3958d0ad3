package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lease-notify/internal/config"
	"lease-notify/internal/handler"
	"lease-notify/internal/metrics"
	"lease-notify/internal/notifier"
	"lease-notify/internal/repository"
	"lease-notify/internal/service"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	addr := flag.String("addr", "", "listen address override")
	dbPath := flag.String("db", "", "path to SQLite database override")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	if *dbPath != "" {
		cfg.DatabasePath = *dbPath
	}

	repo, err := repository.NewSQLiteRepository(cfg.DatabasePath)
	if err != nil {
		logger.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	registry := prometheus.NewRegistry()
	engineMetrics := metrics.NewMetrics(registry)

	sender, err := notifier.New(cfg.Sender, cfg.Dispatch, logger)
	if err != nil {
		logger.Error("failed to initialize sender", "error", err)
		os.Exit(1)
	}

	limiter := service.NewDispatchLimiter(cfg.Dispatch.MaxSendsPerMinute)
	svc := service.NewNotificationService(repo, sender, limiter, engineMetrics, cfg.Dispatch.Concurrency)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	handler.NewNotificationHandler(svc).RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	e.GET("/healthz", func(c echo.Context) error {
		if err := repo.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	go func() {
		logger.Info("API server starting", "addr", cfg.ListenAddr)
		if err := e.Start(cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("error during shutdown", "error", err)
	}
	logger.Info("server stopped")
}
