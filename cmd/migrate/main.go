package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/commercekit/subscriptions/internal/domain/channel"
	"github.com/commercekit/subscriptions/internal/domain/order"
	"github.com/commercekit/subscriptions/internal/domain/subscription"
	"github.com/commercekit/subscriptions/internal/infrastructure/config"
	"github.com/commercekit/subscriptions/internal/infrastructure/logger"
	"github.com/commercekit/subscriptions/internal/infrastructure/persistence"
	"github.com/commercekit/subscriptions/internal/infrastructure/queue"
	"go.uber.org/zap"
)

func main() {
	var logLevel string
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	log.Info("Running migrations",
		zap.String("host", cfg.Database.Host),
		zap.String("dbname", cfg.Database.DBName),
	)

	err = db.DB.AutoMigrate(
		&channel.Channel{},
		&channel.PaymentMethod{},
		&channel.StripeCustomer{},
		&order.Customer{},
		&order.Order{},
		&order.OrderLine{},
		&order.Surcharge{},
		&order.Payment{},
		&order.HistoryEntry{},
		&subscription.Schedule{},
		&subscription.ScheduleVariant{},
		&queue.Job{},
	)
	if err != nil {
		log.Fatal("Migration failed", zap.Error(err))
	}

	log.Info("Migrations completed successfully")
}
