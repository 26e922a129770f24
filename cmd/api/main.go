package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/smartmaint/maintenance-service/internal/api/http"
	"github.com/smartmaint/maintenance-service/internal/api/http/handlers"
	"github.com/smartmaint/maintenance-service/internal/auth"
	"github.com/smartmaint/maintenance-service/internal/config"
	"github.com/smartmaint/maintenance-service/internal/events"
	"github.com/smartmaint/maintenance-service/internal/observability"
	"github.com/smartmaint/maintenance-service/internal/persistence"
	"github.com/smartmaint/maintenance-service/internal/repository"
	"github.com/smartmaint/maintenance-service/internal/service"
	"github.com/smartmaint/maintenance-service/internal/worker"
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
	userRepo := repository.NewUserRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	conversationRepo := repository.NewConversationRepository(pool)
	attachmentRepo := repository.NewAttachmentRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:       ticketRepo,
		UserRepo:         userRepo,
		ConversationRepo: conversationRepo,
		AttachmentRepo:   attachmentRepo,
		AuditRepo:        auditRepo,
		Dispatcher:       dispatcher,
		Logger:           logger,
	})
	userService := service.NewUserService(service.UserDependencies{
		UserRepo:        userRepo,
		AuditRepo:       auditRepo,
		Cache:           redis,
		Dispatcher:      dispatcher,
		Logger:          logger,
		BcryptCost:      cfg.Auth.BcryptCost,
		SuperadminEmail: cfg.Auth.SuperadminEmail,
	})
	restoreService := service.NewRestoreService(service.RestoreDependencies{
		TicketRepo: ticketRepo,
		UserRepo:   userRepo,
		AuditRepo:  auditRepo,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	authService := service.NewAuthService(cfg.Auth, userRepo)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	app := fiber.New(fiber.Config{DisableStartupMessage: cfg.App.Env == "production"})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService, restoreService),
		Users:          handlers.NewUsersHandler(userService, restoreService),
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
