package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/edutrack-api/internal/config"
	"github.com/noah-isme/edutrack-api/internal/database"
	"github.com/noah-isme/edutrack-api/internal/handler"
	"github.com/noah-isme/edutrack-api/internal/middleware"
	"github.com/noah-isme/edutrack-api/internal/observability"
	"github.com/noah-isme/edutrack-api/internal/repository"
	"github.com/noah-isme/edutrack-api/internal/router"
	"github.com/noah-isme/edutrack-api/internal/service"
	"github.com/noah-isme/edutrack-api/pkg/ai"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger = logger.With().Str("service", cfg.AppName).Str("env", cfg.AppEnv).Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	if err := database.AutoMigrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	probes := map[string]handler.HealthProbe{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}

	// Redis and NATS are optional: without them progress reads skip the cache
	// and attempt events are not broadcast.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, continuing without cache")
			redisClient = nil
		} else {
			defer redisClient.Close()
			probes["redis"] = func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			}
		}
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, continuing without event stream")
			natsConn = nil
		} else {
			defer natsConn.Drain()
		}
	}

	generator, err := ai.New(context.Background(), ai.Config{
		Provider:        cfg.AI.Provider,
		Model:           cfg.AI.Model,
		OpenAIAPIKey:    cfg.AI.OpenAIAPIKey,
		AnthropicAPIKey: cfg.AI.AnthropicAPIKey,
		GeminiAPIKey:    cfg.AI.GeminiAPIKey,
		RetryAttempts:   cfg.AI.RetryAttempts,
	})
	if err != nil {
		logger.Warn().Err(err).Str("provider", cfg.AI.Provider).Msg("ai provider unavailable, using deterministic recommendations")
		generator = nil
	}

	observability.RegisterMetrics()

	validate := service.NewValidator()
	store := repository.NewStore(db)

	events := service.NewAttemptEventPublisher(redisClient, cfg.EventsChannel, natsConn, logger)
	progressService := service.NewProgressService(store, redisClient, cfg.ProgressCacheTTL, logger)
	recommendationService := service.NewRecommendationService(store, generator, service.RecommendationOptions{
		Timeout:        cfg.AI.Timeout,
		MaxTokens:      cfg.AI.MaxTokens,
		Temperature:    cfg.AI.Temperature,
		MaxPromptChars: cfg.AI.MaxPromptChars,
	}, logger)
	authService := service.NewAuthService(store.Users, service.TokenConfig{
		Secret: cfg.JWTSecret,
		Issuer: cfg.JWTIssuer,
		TTL:    cfg.JWTTTL,
	}, validate, logger)
	examService := service.NewExamService(store, validate, logger)
	questionService := service.NewQuestionService(store, validate, logger)
	attemptService := service.NewAttemptService(store, service.NewGradingEngine(logger), progressService, recommendationService, events, validate, logger)
	reviewService := service.NewReviewService(store, progressService, recommendationService, events, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{
		Logger:       &logger,
		AllowOrigins: cfg.AllowOrigins,
		AccessLog:    cfg.AppEnv == "development",
	})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:           handler.NewAuthHandler(authService, logger),
		ExamHandler:           handler.NewExamHandler(examService, questionService, logger),
		AttemptHandler:        handler.NewAttemptHandler(attemptService, recommendationService, logger),
		ReviewHandler:         handler.NewReviewHandler(reviewService, logger),
		ProgressHandler:       handler.NewProgressHandler(progressService, logger),
		RecommendationHandler: handler.NewRecommendationHandler(recommendationService, logger),
		HealthProbes:          probes,
		JWTMiddleware:         middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, logger)
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
