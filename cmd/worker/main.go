package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	subapp "github.com/commercekit/subscriptions/internal/application/subscription"
	"github.com/commercekit/subscriptions/internal/infrastructure/billing"
	"github.com/commercekit/subscriptions/internal/infrastructure/config"
	"github.com/commercekit/subscriptions/internal/infrastructure/logger"
	"github.com/commercekit/subscriptions/internal/infrastructure/persistence"
	"github.com/commercekit/subscriptions/internal/infrastructure/queue"
	"go.uber.org/zap"
)

// Standalone job worker. Runs the same queue handlers as the embedded
// server worker; deploy with SUBS_QUEUE_WORKER_ENABLED=false on the API
// nodes so each job is processed by exactly one pool.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

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

	log.Info("Starting subscription job worker",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
	)

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	orderRepo := persistence.NewGormOrderRepository(db.DB)
	historyRepo := persistence.NewGormHistoryRepository(db.DB)
	paymentMethodRepo := persistence.NewGormPaymentMethodRepository(db.DB)
	scheduleRepo := persistence.NewGormScheduleRepository(db.DB)
	jobRepo := queue.NewGormRepository(db.DB)

	jobService := subapp.NewJobService(subapp.JobServiceConfig{
		Orders:    orderRepo,
		Schedules: scheduleRepo,
		Creds:     subapp.NewCredentialResolver(paymentMethodRepo),
		Gateway:   billing.NewStripeGateway(log),
		History:   subapp.NewHistoryService(historyRepo, log),
		Logger:    log,
	})

	workerConfig := queue.DefaultWorkerConfig()
	workerConfig.BatchSize = cfg.Queue.BatchSize
	workerConfig.PollInterval = cfg.Queue.PollInterval

	worker := queue.NewWorker(jobRepo, workerConfig, log)
	worker.Register(subapp.QueueCreateSubscriptions, jobService.HandleJob)
	worker.Register(subapp.QueueCancelSubscriptions, jobService.HandleJob)

	if err := worker.Start(context.Background()); err != nil {
		log.Fatal("Failed to start job worker", zap.Error(err))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down worker...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := worker.Stop(ctx); err != nil {
		log.Fatal("Worker forced to shutdown", zap.Error(err))
	}

	log.Info("Worker exited gracefully")
}
