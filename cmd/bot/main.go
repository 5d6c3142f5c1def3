package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/fieldops-bot/internal/api/http"
	"github.com/spec-kit/fieldops-bot/internal/api/http/handlers"
	"github.com/spec-kit/fieldops-bot/internal/auth"
	"github.com/spec-kit/fieldops-bot/internal/bot"
	"github.com/spec-kit/fieldops-bot/internal/config"
	"github.com/spec-kit/fieldops-bot/internal/events"
	"github.com/spec-kit/fieldops-bot/internal/observability"
	"github.com/spec-kit/fieldops-bot/internal/persistence"
	"github.com/spec-kit/fieldops-bot/internal/repository"
	"github.com/spec-kit/fieldops-bot/internal/service"
	"github.com/spec-kit/fieldops-bot/internal/session"
	"github.com/spec-kit/fieldops-bot/internal/sla"
	"github.com/spec-kit/fieldops-bot/internal/telegram"
	"github.com/spec-kit/fieldops-bot/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	actorRepo := repository.NewActorRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	progressRepo := repository.NewProgressRepository(pool)
	evidenceRepo := repository.NewEvidenceRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	engine := sla.NewEngine(cfg.SLA.TTILimit(), cfg.SLA.WarningWindow())
	tgClient := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.APIBaseURL)
	sessions := session.NewRedisStore(redis.Client, cfg.Dialog.IdleTTL())

	actorService := service.NewActorService(actorRepo, cfg.Dialog.MinNameLen)
	progressService := service.NewProgressService(progressRepo, nil)
	evidenceService := service.NewEvidenceService(evidenceRepo, orderRepo)
	orderService := service.NewOrderService(service.OrderDependencies{
		OrderRepo:  orderRepo,
		ActorRepo:  actorRepo,
		Progress:   progressService,
		Evidence:   evidenceService,
		Engine:     engine,
		Dispatcher: dispatcher,
	})
	reportService := service.NewReportService(orderRepo, progressRepo, engine, nil)
	notificationService := service.NewNotificationService(service.NotificationDependencies{
		NotificationRepo: notificationRepo,
		ActorRepo:        actorRepo,
		OrderRepo:        orderRepo,
		Engine:           engine,
		Sender:           tgClient,
		Metrics:          metrics,
		Logger:           logger,
		Sweep: service.SweepConfig{
			StaleProgressAfter: time.Duration(cfg.Sweep.StaleProgressHours) * time.Hour,
			DeadlineWindow:     time.Duration(cfg.Sweep.DeadlineWarningHours) * time.Hour,
			DedupWindow:        time.Duration(cfg.Sweep.DedupWindowHours) * time.Hour,
		},
	})

	worker.StartNotificationWorker(notificationService, dispatcher)
	go worker.RunSweeps(ctx, notificationService, time.Duration(cfg.Sweep.IntervalMinutes)*time.Minute, logger)

	botRouter := bot.NewRouter(bot.RouterDependencies{
		Actors:   actorService,
		Orders:   orderService,
		Progress: progressService,
		Evidence: evidenceService,
		Reports:  reportService,
		Sessions: sessions,
		Metrics:  metrics,
		Logger:   logger,
	})

	tokenManager := auth.NewTokenManager(cfg.Admin.JWTSecret, cfg.Admin.TokenTTLMinutes)
	adminMiddleware := auth.NewAdminMiddleware(tokenManager)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:          handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Webhook:         handlers.NewWebhookHandler(botRouter, tgClient, logger),
		Cron:            handlers.NewCronHandler(notificationService, logger),
		Admin:           handlers.NewAdminHandler(actorService, reportService, notificationService, tokenManager, metrics, cfg.Admin.Username, cfg.Admin.PasswordHash),
		AdminMiddleware: adminMiddleware,
		CronSecret:      cfg.Sweep.CronSecret,
	})

	if cfg.Telegram.WebhookURL != "" {
		if err := tgClient.RegisterWebhook(ctx, cfg.Telegram.WebhookURL); err != nil {
			logger.Warn("webhook registration failed", zap.Error(err))
		} else {
			logger.Info("webhook registered", zap.String("url", cfg.Telegram.WebhookURL))
		}
	}

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
	cancel()

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
