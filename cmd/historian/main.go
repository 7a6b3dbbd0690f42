// cmd/historian is an asynchronous historian service that pops finished rounds from the Redis
// history queue and persists them to PostgreSQL.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/wordlobby/internal/cache"
	"github.com/jason-s-yu/wordlobby/internal/config"
	"github.com/jason-s-yu/wordlobby/internal/database"
	"github.com/jason-s-yu/wordlobby/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	if cfg.RedisAddr == "" || !cfg.Postgres.Enabled() {
		logger.Fatal("historian needs both REDIS_ADDR and PG_HOST")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.Postgres.ConnString(), logger)
	if err != nil {
		logger.Fatalf("database: %v", err)
	}
	defer pool.Close()

	store := database.NewRoundStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Fatalf("database schema: %v", err)
	}

	rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	h := historian.New(rdb, cfg.HistoryQueueName, store, cfg.HistorianBatchSize, cfg.HistorianFlushDelay, logger)
	if err := h.Run(ctx); err != nil {
		logger.Errorf("historian: %v", err)
	}
	logger.Info("historian shutdown complete")
}
