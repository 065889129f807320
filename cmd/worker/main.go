package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/waypoint-tms/waypoint-tms/internal/app"
	"github.com/waypoint-tms/waypoint-tms/internal/masterdata/charges"
	"github.com/waypoint-tms/waypoint-tms/internal/platform/cache"
	"github.com/waypoint-tms/waypoint-tms/internal/platform/db"
	"github.com/waypoint-tms/waypoint-tms/internal/pricing/taxes"
	"github.com/waypoint-tms/waypoint-tms/jobs"
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
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	chargeRepo := charges.NewRepository(pool)
	taxCache := taxes.NewCache(redisClient, cfg.TaxCacheTTL)
	taxService := taxes.NewService(logger, taxes.NewRepository(pool), chargeRepo, taxCache)

	statusJob := &jobs.StatusChangedJob{Logger: logger}
	warmupJob := jobs.NewTaxWarmupJob(taxService, chargeRepo, logger)

	warmupTask, err := jobs.NewTaxWarmupTask("active")
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskQuotationStatusChanged, Handler: statusJob.Handle},
			{Type: jobs.TaskTaxCacheWarmup, Handler: warmupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "15 1 * * *", Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
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
