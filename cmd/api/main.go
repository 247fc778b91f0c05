package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/MohamedRayeneRomdhane/odoo-SMS-Module/internal/config"
	"github.com/MohamedRayeneRomdhane/odoo-SMS-Module/internal/domain"
	"github.com/MohamedRayeneRomdhane/odoo-SMS-Module/internal/handler"
	"github.com/MohamedRayeneRomdhane/odoo-SMS-Module/internal/infra/postgresql"
	"github.com/MohamedRayeneRomdhane/odoo-SMS-Module/internal/infra/postgresql/migrations"
	infraredis "github.com/MohamedRayeneRomdhane/odoo-SMS-Module/internal/infra/redis"
	"github.com/MohamedRayeneRomdhane/odoo-SMS-Module/internal/observability"
	"github.com/MohamedRayeneRomdhane/odoo-SMS-Module/internal/provider"
	"github.com/MohamedRayeneRomdhane/odoo-SMS-Module/internal/repository"
	"github.com/MohamedRayeneRomdhane/odoo-SMS-Module/internal/service"
	"github.com/MohamedRayeneRomdhane/odoo-SMS-Module/internal/transport"
	"github.com/go-resty/resty/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	limiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.RateLimitPerSec)
	if err != nil {
		logger.Fatal("rate limiter initialization failed", zap.Error(err))
	}

	providerTimeout := time.Duration(cfg.HTTPTimeoutSeconds) * time.Second

	httpProvider, err := provider.NewHTTPProviderWithClient(resty.New().SetTimeout(providerTimeout))
	if err != nil {
		logger.Fatal("http provider initialization failed", zap.Error(err))
	}
	smppProvider, err := provider.NewSMPPProviderWithClient(resty.New().SetTimeout(providerTimeout))
	if err != nil {
		logger.Fatal("smpp provider initialization failed", zap.Error(err))
	}

	providers := provider.NewRegistry()
	providers.Register(domain.MethodHTTP, httpProvider)
	providers.Register(domain.MethodSMPP, smppProvider)

	gatewayRepo := repository.NewGormGatewayRepo(db)
	queueRepo := repository.NewGormQueueRepo(db)
	historyRepo := repository.NewGormHistoryRepo(db)

	metrics := observability.NewMetrics()

	dispatcher, err := service.NewDispatchService(gatewayRepo, queueRepo, historyRepo, providers, service.AllowAll{}, logger)
	if err != nil {
		logger.Fatal("dispatch service initialization failed", zap.Error(err))
	}
	dispatcher.SetMetrics(metrics)

	drainer, err := service.NewDrainService(
		queueRepo, gatewayRepo, historyRepo, providers, limiter,
		time.Duration(cfg.DrainIntervalSeconds)*time.Second,
		cfg.DrainBatchSize,
		logger,
	)
	if err != nil {
		logger.Fatal("drain service initialization failed", zap.Error(err))
	}
	drainer.SetMetrics(metrics)

	receipts, err := service.NewReceiptService(
		historyRepo, gatewayRepo, providers,
		time.Duration(cfg.DLRIntervalSeconds)*time.Second,
		cfg.DLRBatchSize,
		logger,
	)
	if err != nil {
		logger.Fatal("receipt service initialization failed", zap.Error(err))
	}
	receipts.SetMetrics(metrics)

	gateways, err := service.NewGatewayService(gatewayRepo, logger)
	if err != nil {
		logger.Fatal("gateway service initialization failed", zap.Error(err))
	}

	verify, err := service.NewVerificationService(gatewayRepo, dispatcher, logger)
	if err != nil {
		logger.Fatal("verification service initialization failed", zap.Error(err))
	}

	events, err := service.NewEventService(gatewayRepo, dispatcher, logger)
	if err != nil {
		logger.Fatal("event service initialization failed", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(metrics.HTTPMiddleware())
	app.Get("/metrics", func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(metrics.Handler())(c.Context())
		return nil
	})

	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	if err := handler.RegisterMessageRoutes(app, dispatcher, drainer, receipts, queueRepo, historyRepo); err != nil {
		logger.Fatal("message routes registration failed", zap.Error(err))
	}
	if err := handler.RegisterGatewayRoutes(app, gateways, verify); err != nil {
		logger.Fatal("gateway routes registration failed", zap.Error(err))
	}
	if err := handler.RegisterEventRoutes(app, events); err != nil {
		logger.Fatal("event routes registration failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info("sms gateway api started", zap.Int("port", cfg.APIPort))
		return app.Listen(fmt.Sprintf(":%d", cfg.APIPort))
	})
	group.Go(func() error {
		return drainer.Start(groupCtx)
	})
	group.Go(func() error {
		return receipts.Start(groupCtx)
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := group.Wait(); err != nil {
		logger.Error("shutdown with error", zap.Error(err))
	}
}
