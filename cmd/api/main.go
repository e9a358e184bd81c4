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

	httptransport "github.com/lexhub/comms-audit/internal/api/http"
	"github.com/lexhub/comms-audit/internal/api/http/handlers"
	"github.com/lexhub/comms-audit/internal/auth"
	"github.com/lexhub/comms-audit/internal/config"
	"github.com/lexhub/comms-audit/internal/events"
	"github.com/lexhub/comms-audit/internal/observability"
	"github.com/lexhub/comms-audit/internal/persistence"
	"github.com/lexhub/comms-audit/internal/repository"
	"github.com/lexhub/comms-audit/internal/retry"
	"github.com/lexhub/comms-audit/internal/service"
	"github.com/lexhub/comms-audit/internal/ticketclient"
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

	var store repository.LogStore
	if pool := pg.PoolHandle(); pool != nil {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pool, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		store = repository.NewPostgresLogStore(pool)
	} else {
		logger.Warn("running with in-memory log store; data will not survive restarts")
		store = repository.NewMemoryLogStore()
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	backoff := retry.NewBackoff(retry.BackoffConfig{
		InitialDelay: time.Duration(cfg.Backoff.InitialDelayMS) * time.Millisecond,
		MaxDelay:     time.Duration(cfg.Backoff.MaxDelayMS) * time.Millisecond,
		Multiplier:   cfg.Backoff.Multiplier,
		MaxAttempts:  cfg.Backoff.MaxAttempts,
	})

	dispatcher := events.NewInMemoryDispatcher()
	alertService := service.NewAlertService(dispatcher, logger, cfg.Alert)
	alertService.RegisterHandlers()

	tickets := ticketclient.New(cfg.TicketService)

	queryService := service.NewAuditQueryService(store, backoff, logger)
	threadService := service.NewThreadService(store, tickets, cfg.TicketService.Timeout(), logger)
	agentService := service.NewAgentHistoryService(store, backoff, logger)
	analyticsService := service.NewAnalyticsService(store, redis, cfg.Redis.CacheTTL, logger)
	redispatchService := service.NewRedispatchService(store, dispatcher, backoff, logger)
	callbackService := service.NewCallbackService(store, dispatcher, backoff, logger)

	authMiddleware := auth.NewAuthMiddleware(auth.NewTokenManager(cfg.Auth.JWTSecret))

	metrics := observability.NewMetrics()
	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Audit: handlers.NewAuditHandler(handlers.AuditHandlerDependencies{
			Queries:   queryService,
			Threads:   threadService,
			Agents:    agentService,
			Analytics: analyticsService,
			Retries:   redispatchService,
		}),
		Callbacks:      handlers.NewCallbackHandler(callbackService, cfg.App.CallbackToken),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
