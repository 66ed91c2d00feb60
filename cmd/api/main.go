package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/AntiAnoop/smartcode/internal/config"
	"github.com/AntiAnoop/smartcode/internal/database"
	"github.com/AntiAnoop/smartcode/internal/handler"
	"github.com/AntiAnoop/smartcode/internal/middleware"
	"github.com/AntiAnoop/smartcode/internal/models"
	"github.com/AntiAnoop/smartcode/internal/repository"
	"github.com/AntiAnoop/smartcode/internal/router"
	"github.com/AntiAnoop/smartcode/internal/service"
	"github.com/AntiAnoop/smartcode/pkg/ai"
	"github.com/AntiAnoop/smartcode/pkg/payments"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.Task{}, &models.Payment{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis not configured, task list caching disabled")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	} else {
		logger.Warn().Msg("nats not configured, evaluations run inline on submission")
	}

	var evaluator ai.Evaluator
	if cfg.OpenAIAPIKey != "" {
		openAIEvaluator, err := ai.NewOpenAIEvaluator(ai.OpenAIConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.OpenAIModel,
			Logger: logger,
		})
		if err != nil {
			log.Fatalf("failed to create evaluator: %v", err)
		}
		evaluator = openAIEvaluator
	} else {
		logger.Warn().Msg("openai not configured, submissions will fail evaluation")
	}

	provider, err := payments.NewStripeProvider(payments.StripeConfig{
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
		Logger:        logger,
	})
	if err != nil {
		log.Fatalf("failed to create payment provider: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	taskRepo := repository.NewTaskRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)

	var queue service.EvaluationQueue
	if natsConn != nil {
		queue = service.NewNATSEvaluationQueue(natsConn, logger)
	}

	taskService := service.NewTaskService(taskRepo, evaluator, queue, redisClient, validate, logger, service.TaskServiceConfig{
		EvaluationTimeout: cfg.EvaluationTimeout,
		ListCacheTTL:      cfg.TaskListCacheTTL,
	})
	checkoutService := service.NewCheckoutService(taskRepo, paymentRepo, provider, logger, service.CheckoutConfig{
		PriceCents: cfg.ReportPriceCents,
		BaseURL:    cfg.AppBaseURL,
	})
	webhookService := service.NewPaymentWebhookService(taskRepo, paymentRepo, provider, taskService, logger)

	taskHandler := handler.NewTaskHandler(taskService, validate, logger)
	taskStatusHandler := handler.NewTaskStatusHandler(taskService, logger)
	checkoutHandler := handler.NewCheckoutHandler(checkoutService, logger)
	webhookHandler := handler.NewWebhookHandler(webhookService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		TaskHandler:       taskHandler,
		TaskStatusHandler: taskStatusHandler,
		CheckoutHandler:   checkoutHandler,
		WebhookHandler:    webhookHandler,
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
	})

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if natsConn != nil {
		worker := service.NewEvaluationWorker(natsConn, taskService, logger)
		if err := worker.Start(shutdownCtx); err != nil {
			log.Fatalf("failed to start evaluation worker: %v", err)
		}
	}

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
