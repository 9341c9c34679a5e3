package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-gateway/internal/api/http"
	"github.com/spec-kit/helpdesk-gateway/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-gateway/internal/auth"
	"github.com/spec-kit/helpdesk-gateway/internal/config"
	"github.com/spec-kit/helpdesk-gateway/internal/events"
	"github.com/spec-kit/helpdesk-gateway/internal/media"
	"github.com/spec-kit/helpdesk-gateway/internal/observability"
	"github.com/spec-kit/helpdesk-gateway/internal/persistence"
	"github.com/spec-kit/helpdesk-gateway/internal/provider"
	"github.com/spec-kit/helpdesk-gateway/internal/repository"
	"github.com/spec-kit/helpdesk-gateway/internal/service"
	"github.com/spec-kit/helpdesk-gateway/internal/worker"
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

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	store, err := media.NewStore(cfg.Media.Dir)
	if err != nil {
		logger.Fatal("failed to init media store", zap.Error(err))
	}

	pool := pg.PoolHandle()
	contactRepo := repository.NewContactRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	messageRepo := repository.NewMessageRepository(pool)
	queueRepo := repository.NewQueueRepository(pool)
	channelRepo := repository.NewChannelRepository(pool, queueRepo)

	sessions := provider.NewConnectionManager()

	contactService := service.NewContactService(contactRepo, logger, cfg.App.FrontendURL)
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  ticketRepo,
		MessageRepo: messageRepo,
		ChannelRepo: channelRepo,
		Dispatcher:  dispatcher,
		Logger:      logger,
		Metrics:     metrics,
	})
	ingestService := service.NewIngestService(messageRepo, ticketRepo, store, dispatcher, logger, metrics, cfg.Pipeline.MediaWorkers)
	routerService := service.NewRouterService(ticketService, ingestService, service.NoopDialogEngine{}, logger, metrics, cfg.Pipeline.MenuDebounce())
	hoursGate := service.NewHoursGate(cfg.App.Location())
	inboundService := service.NewInboundService(
		contactService, ticketService, ingestService, routerService, hoursGate,
		messageRepo, cfg.Pipeline, logger, metrics,
	)
	ackService := service.NewAckService(messageRepo, dispatcher, logger, metrics, cfg.Pipeline.AckSettleDelay())
	readStateService := service.NewReadStateService(ticketRepo, messageRepo, sessions, dispatcher, logger)

	notificationService := service.NewNotificationService(redis.Client, logger)
	notificationService.Register(dispatcher)

	eventPool := worker.NewEventPool(cfg.Pipeline.EventWorkers, cfg.Pipeline.EventQueueSize, logger, metrics)
	eventPool.Start(ctx)
	defer eventPool.Stop()

	// Session adapters dispatch socket callbacks into the listener as they
	// connect and register with the manager.
	sessions.SetHandler(worker.NewListener(inboundService, ackService, channelRepo, eventPool, logger))

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, 0)
	authMiddleware := auth.NewAuthMiddleware(tokenManager)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Tickets:        handlers.NewTicketsHandler(ticketRepo, readStateService),
		Webhook:        handlers.NewWebhookHandler(cfg.Webhook, inboundService, channelRepo, eventPool, logger),
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
