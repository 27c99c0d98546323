package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/lorrybill/lorrybill/internal/app"
	"github.com/lorrybill/lorrybill/internal/invoicing"
	jobmetrics "github.com/lorrybill/lorrybill/internal/jobs"
	"github.com/lorrybill/lorrybill/internal/platform/cache"
	"github.com/lorrybill/lorrybill/internal/platform/db"
	"github.com/lorrybill/lorrybill/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	invoiceRepo := invoicing.NewRepository(pool)
	summaries := invoicing.NewSummaryService(invoiceRepo, invoicing.NewCache(redisClient, cfg.SummaryCacheTTL), logger)
	refreshJob := jobs.NewSummaryRefreshJob(summaries, invoiceRepo, logger, jobmetrics.NewMetrics(nil))

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers:    refreshJob.Handlers(),
		Cron: []jobs.CronRegistration{
			{Spec: jobs.SummaryWarmupSchedule, Task: jobs.NewSummaryWarmupTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
