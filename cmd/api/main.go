package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/casedesk-api/internal/auth"
	"github.com/noah-isme/casedesk-api/internal/broker"
	"github.com/noah-isme/casedesk-api/internal/config"
	"github.com/noah-isme/casedesk-api/internal/database"
	"github.com/noah-isme/casedesk-api/internal/handler"
	"github.com/noah-isme/casedesk-api/internal/middleware"
	"github.com/noah-isme/casedesk-api/internal/models"
	"github.com/noah-isme/casedesk-api/internal/observability"
	"github.com/noah-isme/casedesk-api/internal/realtime"
	"github.com/noah-isme/casedesk-api/internal/repository"
	"github.com/noah-isme/casedesk-api/internal/router"
	"github.com/noah-isme/casedesk-api/internal/service"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	if err := db.AutoMigrate(models.All()...); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(context.Background(), cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
	} else {
		logger.Info().Msg("redis not configured, chat room lookups go to the database")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to nats")
		}
	} else {
		logger.Info().Msg("nats not configured, domain events are not published")
	}

	observability.RegisterMetrics()
	validate := validator.New(validator.WithRequiredStructEnabled())
	verifier := auth.NewJWTVerifier(cfg.JWTSecret)
	publisher := broker.NewNATSPublisher(natsConn, cfg.EventSubjectPrefix, logger)

	chatRepo := repository.NewChatRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	caseRepo := repository.NewCaseRepository(db)

	chatService := service.NewChatService(chatRepo, validate, service.ChatServiceOptions{
		Redis:     redisClient,
		CacheTTL:  cfg.ChatRoomCacheTTL,
		Emitter:   realtime.Relay{},
		Publisher: publisher,
	}, logger)
	notificationService := service.NewNotificationService(notificationRepo, realtime.Relay{}, publisher, validate, logger)
	caseService := service.NewCaseService(caseRepo, chatRepo, chatService, notificationService, validate, logger)

	gatewayOpts := realtime.Options{
		SendBuffer:   cfg.RealtimeSendBuffer,
		PingInterval: cfg.RealtimePingInterval,
	}
	if cfg.VerifyChatMembership {
		gatewayOpts.Membership = chatService
	} else {
		logger.Warn().Msg("chat room joins are not checked against room participants; set CASEDESK_REALTIME_VERIFY_CHAT_MEMBERSHIP=true to enforce")
	}

	registry := realtime.NewRegistry(logger)
	gateway := realtime.NewGateway(verifier, registry, gatewayOpts, logger)
	realtime.InstallRelay(gateway)

	observability.RegisterRoomGauges(
		func() float64 { return float64(registry.Stats().Rooms) },
		func() float64 { return float64(registry.Stats().Subscribers) },
	)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AllowOrigins: cfg.AllowedOrigins})
	router.Register(app, cfg, router.Dependencies{
		Registry:            registry,
		RealtimeHandler:     handler.NewRealtimeHandler(gateway, logger),
		ChatHandler:         handler.NewChatHandler(chatService, middleware.RateLimit("chat_send", cfg.ChatSendRateLimit, cfg.ChatSendRateWindow), logger),
		NotificationHandler: handler.NewNotificationHandler(notificationService, logger),
		CaseHandler:         handler.NewCaseHandler(caseService, validate, logger),
		JWTMiddleware:       middleware.Authenticate(verifier),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	wait := gfshutdown.GracefulShutdown(context.Background(), cfg.ShutdownTimeout, map[string]gfshutdown.Operation{
		"casedesk-api": func(ctx context.Context) error {
			logger.Info().Msg("graceful shutdown initiated")
			return shutdown(ctx, app, db, redisClient, natsConn)
		},
	})

	exitCode := <-wait
	logger.Info().Int("exit_code", exitCode).Msg("server stopped")
	os.Exit(exitCode)
}

// shutdown stops accepting requests before releasing the backends the handlers use.
func shutdown(ctx context.Context, app *fiber.App, db *gorm.DB, redisClient *redis.Client, natsConn *nats.Conn) error {
	var errs []error
	if err := app.ShutdownWithContext(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http: %w", err))
	}
	realtime.ResetRelay()

	if natsConn != nil {
		if err := natsConn.Drain(); err != nil {
			errs = append(errs, fmt.Errorf("nats: %w", err))
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database: %w", err))
		}
	}
	return errors.Join(errs...)
}
