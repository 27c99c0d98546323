package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/lorrybill/lorrybill/internal/app"
	"github.com/lorrybill/lorrybill/internal/invoicing"
	"github.com/lorrybill/lorrybill/internal/masterdata"
	"github.com/lorrybill/lorrybill/internal/observability"
	"github.com/lorrybill/lorrybill/internal/platform/cache"
	"github.com/lorrybill/lorrybill/internal/platform/db"
	"github.com/lorrybill/lorrybill/internal/shared"
	"github.com/lorrybill/lorrybill/internal/transactions"
	"github.com/lorrybill/lorrybill/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	if cfg.PGMigrate {
		if err := db.Migrate(ctx, dbpool); err != nil {
			logger.Error("migrate schema", slog.Any("error", err))
			os.Exit(1)
		}
	}

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

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	metrics := observability.NewMetrics()
	sessions := shared.NewSessionStore(redisClient, cfg.SessionSecret, cfg.SessionTTL)
	auditLogger := shared.NewAuditLogger(dbpool)

	masterRepo := masterdata.NewRepository(dbpool)
	masterService := masterdata.NewService(masterRepo)
	masterHandler := masterdata.NewHandler(logger, masterService)

	txnRepo := transactions.NewRepository(dbpool)
	txnService := transactions.NewService(txnRepo, masterService, logger)
	txnHandler := transactions.NewHandler(logger, txnService)

	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	invoiceRepo := invoicing.NewRepository(dbpool)
	invoiceCache := invoicing.NewCache(redisClient, cfg.SummaryCacheTTL)
	summaries := invoicing.NewSummaryService(invoiceRepo, invoiceCache, logger)
	invoiceService := invoicing.NewService(invoiceRepo, txnService, masterService, logger,
		invoicing.WithAudit(auditLogger),
		invoicing.WithMetrics(metrics),
		invoicing.WithNotifier(invoicing.CacheNotifier{Cache: invoiceCache, Enqueuer: jobClient}),
		invoicing.WithLocation(cfg.Location()),
	)
	invoiceHandler := invoicing.NewHandler(logger, invoiceService, summaries)

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		Sessions:            sessions,
		MasterDataHandler:   masterHandler,
		TransactionsHandler: txnHandler,
		InvoicingHandler:    invoiceHandler,
		JobHandler:          jobHandler,
		Metrics:             metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
