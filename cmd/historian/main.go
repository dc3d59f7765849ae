// cmd/historian/main.go drains the Redis action queue into Postgres.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/pitch/internal/cache"
	"github.com/jason-s-yu/pitch/internal/config"
	"github.com/jason-s-yu/pitch/internal/database"
	"github.com/jason-s-yu/pitch/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()
	logger := logrus.New()
	logger.SetLevel(cfg.LogLevel)

	if cfg.RedisAddr == "" || cfg.DatabaseURL == "" {
		logger.Fatal("historian needs both REDIS_ADDR and DATABASE_URL")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cache.QueueName = cfg.HistorianQueue
	if err := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisDB); err != nil {
		logger.WithError(err).Fatal("failed to connect to redis")
	}

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	pool, err := database.ConnectDB(dbCtx, cfg.DatabaseURL)
	if err == nil {
		err = database.EnsureSchema(dbCtx, pool)
	}
	cancel()
	if err != nil {
		logger.WithError(err).Fatal("failed to prepare database")
	}
	defer pool.Close()

	svc := historian.New(
		historian.RedisSource{},
		database.NewArchive(pool),
		cfg.HistorianBatchSize,
		cfg.HistorianFlush,
		cfg.HistorianInactivity,
		logger,
	)
	logger.WithField("queue", cache.QueueName).Info("historian started")
	svc.Run(ctx)
	logger.Info("historian stopped")
}
