package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/shelfmart/shelfmart/internal/app"
	"github.com/shelfmart/shelfmart/internal/catalog"
	"github.com/shelfmart/shelfmart/internal/platform/db"
	"github.com/shelfmart/shelfmart/internal/pricing"
	"github.com/shelfmart/shelfmart/internal/sellers"
	"github.com/shelfmart/shelfmart/jobs"
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

	// One connection per recompute worker plus headroom for the sweep cursor.
	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: int32(cfg.PricingWorkers + 2)})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}

	productRepo := catalog.NewRepository(pool)
	sellerRepo := sellers.NewRepository(pool)
	ruleStore := pricing.NewStore(pricing.NewRuleRepository(pool))
	inventoryRepo := pricing.NewInventoryRepository(pool)
	summaryCache := pricing.NewCache(redisClient, cfg.SummaryCacheTTL)

	service := pricing.NewService(productRepo, sellerRepo, ruleStore, inventoryRepo, summaryCache, logger, pricing.ServiceConfig{
		Workers:      cfg.PricingWorkers,
		DefaultStock: cfg.PricingDefaultStock,
	})

	repriceJob := pricing.NewRepriceJob(service, logger)
	sweepJob := jobs.NewCatalogSweepJob(productRepo, service, logger, cfg.PricingSweepBatch)

	sweepTask, err := jobs.NewCatalogSweepTask(time.Now().UTC())
	if err != nil {
		logger.Error("build sweep task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: pricing.TaskRepriceProduct, Handler: repriceJob.Handle},
			{Type: jobs.TaskCatalogSweep, Handler: sweepJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.SweepCron, Task: sweepTask, Options: []asynq.Option{asynq.MaxRetry(2)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
