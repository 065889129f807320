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

	"github.com/waypoint-tms/waypoint-tms/internal/app"
	"github.com/waypoint-tms/waypoint-tms/internal/fx"
	"github.com/waypoint-tms/waypoint-tms/internal/masterdata/charges"
	"github.com/waypoint-tms/waypoint-tms/internal/masterdata/currencies"
	"github.com/waypoint-tms/waypoint-tms/internal/masterdata/customers"
	"github.com/waypoint-tms/waypoint-tms/internal/masterdata/vendors"
	"github.com/waypoint-tms/waypoint-tms/internal/observability"
	"github.com/waypoint-tms/waypoint-tms/internal/platform/cache"
	"github.com/waypoint-tms/waypoint-tms/internal/platform/db"
	"github.com/waypoint-tms/waypoint-tms/internal/pricing/margins"
	"github.com/waypoint-tms/waypoint-tms/internal/pricing/taxes"
	"github.com/waypoint-tms/waypoint-tms/internal/quotations"
	"github.com/waypoint-tms/waypoint-tms/internal/rating/chargerules"
	"github.com/waypoint-tms/waypoint-tms/internal/rating/vendorrates"
	"github.com/waypoint-tms/waypoint-tms/internal/shared"
	"github.com/waypoint-tms/waypoint-tms/jobs"
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

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	chargeRepo := charges.NewRepository(pool)
	customerRepo := customers.NewRepository(pool)
	vendorRepo := vendors.NewRepository(pool)
	currencyRepo := currencies.NewRepository(pool)

	chargeRuleService := chargerules.NewService(logger, chargerules.NewRepository(pool), chargeRepo)
	vendorRateService := vendorrates.NewService(logger, vendorrates.NewRepository(pool), vendorRepo)
	fxService := fx.NewService(logger, fx.NewRepository(pool), currencyRepo)
	marginService := margins.NewService(logger, margins.NewRepository(pool), chargeRepo, customerRepo)

	taxCache := taxes.NewCache(redisClient, cfg.TaxCacheTTL)
	taxService := taxes.NewService(logger, taxes.NewRepository(pool), chargeRepo, taxCache)

	quotationService := quotations.NewService(logger, quotations.Deps{
		Repo:              quotations.NewRepository(pool),
		CustomerRepo:      customerRepo,
		ChargeRules:       chargeRuleService,
		VendorRates:       vendorRateService,
		FX:                fxService,
		Margins:           marginService,
		Taxes:             taxService,
		Locks:             shared.NewQuotationLocks(),
		Metrics:           metrics,
		Notifier:          &jobs.Notifier{Client: jobClient},
		BaseCurrency:      cfg.BaseCurrency,
		ApprovalThreshold: cfg.ApprovalThreshold,
	})

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		ChargeRulesHandler: chargerules.NewHandler(logger, chargeRuleService),
		VendorRatesHandler: vendorrates.NewHandler(logger, vendorRateService),
		FXHandler:          fx.NewHandler(logger, fxService),
		MarginsHandler:     margins.NewHandler(logger, marginService),
		TaxesHandler:       taxes.NewHandler(logger, taxService),
		QuotationsHandler:  quotations.NewHandler(logger, quotationService),
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", slog.Any("error", err))
	}
	logger.Info("shutdown complete")
}
