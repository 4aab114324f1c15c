package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/feedback-engine/internal/api/http"
	"github.com/spec-kit/feedback-engine/internal/api/http/handlers"
	"github.com/spec-kit/feedback-engine/internal/auth"
	"github.com/spec-kit/feedback-engine/internal/config"
	"github.com/spec-kit/feedback-engine/internal/events"
	"github.com/spec-kit/feedback-engine/internal/observability"
	"github.com/spec-kit/feedback-engine/internal/persistence"
	"github.com/spec-kit/feedback-engine/internal/repository"
	"github.com/spec-kit/feedback-engine/internal/service"
	"github.com/spec-kit/feedback-engine/internal/worker"
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
	caseRepo := repository.NewFeedbackCaseRepository(pool)
	historyRepo := repository.NewCaseHistoryRepository(pool)
	orgRepo := repository.NewOrgRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	taskRepo := repository.NewTaskRepository(pool)
	throttle := repository.NewSurveyThrottle(redis.Client, cfg.Survey.ThrottleWindow())
	recoveryMetricsRepo := repository.NewRecoveryMetricsRepository(redis.Client)

	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	escalationService := service.NewEscalationService(service.EscalationDependencies{
		OrgRepo:          orgRepo,
		NotificationRepo: notificationRepo,
		TaskRepo:         taskRepo,
		Logger:           logger,
	})
	analyticsService := service.NewAnalyticsService(recoveryMetricsRepo, logger)
	caseService := service.NewCaseService(service.CaseDependencies{
		CaseRepo:    caseRepo,
		HistoryRepo: historyRepo,
		Escalation:  escalationService,
		Analytics:   analyticsService,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
	})

	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Survey)
	notificationService.RegisterHandlers()

	surveyDispatcher := service.NewSurveyDispatcher(cfg.Survey, logger)

	slaScanner := worker.NewSLAScanner(caseRepo, caseService, metrics, logger, cfg.Scanner)
	surveyScheduler := worker.NewRecoverySurveyScheduler(caseRepo, throttle, surveyDispatcher, dispatcher, metrics, logger, cfg.Survey)
	go slaScanner.Run(ctx)
	go surveyScheduler.Run(ctx)

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokenManager, cfg.Auth.DetectorAPIKeyHash)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis)
	casesHandler := handlers.NewCasesHandler(caseService, analyticsService)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         healthHandler,
		Cases:          casesHandler,
		AuthMiddleware: authMiddleware,
	})

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
