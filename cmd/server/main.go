package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	subapp "github.com/commercekit/subscriptions/internal/application/subscription"
	"github.com/commercekit/subscriptions/internal/domain/shared"
	"github.com/commercekit/subscriptions/internal/domain/subscription"
	"github.com/commercekit/subscriptions/internal/infrastructure/billing"
	"github.com/commercekit/subscriptions/internal/infrastructure/cache"
	"github.com/commercekit/subscriptions/internal/infrastructure/config"
	"github.com/commercekit/subscriptions/internal/infrastructure/event"
	"github.com/commercekit/subscriptions/internal/infrastructure/logger"
	"github.com/commercekit/subscriptions/internal/infrastructure/persistence"
	"github.com/commercekit/subscriptions/internal/infrastructure/queue"
	"github.com/commercekit/subscriptions/internal/interfaces/http/handler"
	"github.com/commercekit/subscriptions/internal/interfaces/http/middleware"
	"github.com/commercekit/subscriptions/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting subscription service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize repositories
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	historyRepo := persistence.NewGormHistoryRepository(db.DB)
	paymentMethodRepo := persistence.NewGormPaymentMethodRepository(db.DB)
	stripeCustomerRepo := persistence.NewGormStripeCustomerRepository(db.DB)
	scheduleRepo := persistence.NewGormScheduleRepository(db.DB)
	jobRepo := queue.NewGormRepository(db.DB)

	// Idempotency store for webhook deduplication. Redis survives restarts
	// and is shared across replicas; the in-memory store is for single-node
	// development setups.
	var idempotencyStore shared.IdempotencyStore
	if cfg.Redis.Enabled {
		store, err := cache.NewRedisIdempotencyStore(cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		idempotencyStore = store
		log.Info("Using Redis idempotency store",
			zap.String("host", cfg.Redis.Host),
			zap.Int("port", cfg.Redis.Port),
		)
	} else {
		idempotencyStore = cache.NewInMemoryIdempotencyStore()
		log.Warn("Using in-memory idempotency store; webhook dedupe will not survive restarts")
	}

	// Initialize application services
	enqueuer := queue.NewEnqueuer(jobRepo, log)
	gateway := billing.NewStripeGateway(log)
	credResolver := subapp.NewCredentialResolver(paymentMethodRepo)
	historyService := subapp.NewHistoryService(historyRepo, log)
	strategy := subscription.NewScheduleStrategy(scheduleRepo)

	jobService := subapp.NewJobService(subapp.JobServiceConfig{
		Orders:    orderRepo,
		Schedules: scheduleRepo,
		Creds:     credResolver,
		Gateway:   gateway,
		History:   historyService,
		Logger:    log,
	})
	webhookService := subapp.NewWebhookService(subapp.WebhookServiceConfig{
		Creds:       credResolver,
		Orders:      orderRepo,
		Enqueuer:    enqueuer,
		Idempotency: idempotencyStore,
		History:     historyService,
		DedupeTTL:   cfg.Webhook.DedupeTTL,
		Logger:      log,
	})
	intentService := subapp.NewIntentService(subapp.IntentServiceConfig{
		Orders:                orderRepo,
		StripeCustomers:       stripeCustomerRepo,
		Creds:                 credResolver,
		Gateway:               gateway,
		VerificationSurcharge: cfg.Payment.VerificationSurcharge,
		Logger:                log,
	})
	pricingService := subapp.NewPricingService(scheduleRepo, log)
	scheduleService := subapp.NewScheduleService(scheduleRepo, log)

	// Initialize event bus and handlers
	eventBus := event.NewInMemoryEventBus(log)

	// Order line added -> subscription detection and correlation hash
	orderLineAddedHandler := subapp.NewOrderLineAddedHandler(orderRepo, strategy, log)
	eventBus.Subscribe(orderLineAddedHandler)

	// Stock release or cancellation -> subscription cancellation job
	stockMovementHandler := subapp.NewStockMovementHandler(orderRepo, enqueuer, log)
	eventBus.Subscribe(stockMovementHandler)

	log.Info("Event handlers registered",
		zap.Strings("order_line_added_events", orderLineAddedHandler.EventTypes()),
		zap.Strings("stock_movement_events", stockMovementHandler.EventTypes()),
	)

	// Start event bus
	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Start the job worker (if enabled; run cmd/worker instead to process
	// jobs in a dedicated process)
	var worker *queue.Worker
	if cfg.Queue.WorkerEnabled {
		workerConfig := queue.DefaultWorkerConfig()
		workerConfig.BatchSize = cfg.Queue.BatchSize
		workerConfig.PollInterval = cfg.Queue.PollInterval

		worker = queue.NewWorker(jobRepo, workerConfig, log)
		worker.Register(subapp.QueueCreateSubscriptions, jobService.HandleJob)
		worker.Register(subapp.QueueCancelSubscriptions, jobService.HandleJob)
		if err := worker.Start(context.Background()); err != nil {
			log.Fatal("Failed to start job worker", zap.Error(err))
		}
	}

	// Initialize HTTP handlers
	webhookHandler := handler.NewStripeWebhookHandler(webhookService, log)
	checkoutHandler := handler.NewCheckoutHandler(intentService, pricingService, log)
	scheduleHandler := handler.NewScheduleHandler(scheduleService, log)
	healthHandler := handler.NewHealthHandler(db)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	middleware.SetupValidator()

	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Recovery(log))
	engine.Use(middleware.RequestLogger(log))

	router.NewRouter(engine).
		Register(webhookHandler).
		Register(checkoutHandler).
		Register(scheduleHandler).
		Register(healthHandler).
		Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if worker != nil {
		if err := worker.Stop(ctx); err != nil {
			log.Error("Error stopping job worker", zap.Error(err))
		}
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
