// cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"time"

	"github.com/jason-s-yu/pitch/internal/auth"
	"github.com/jason-s-yu/pitch/internal/cache"
	"github.com/jason-s-yu/pitch/internal/config"
	"github.com/jason-s-yu/pitch/internal/database"
	"github.com/jason-s-yu/pitch/internal/game"
	"github.com/jason-s-yu/pitch/internal/handlers"
	"github.com/jason-s-yu/pitch/internal/middleware"
	"github.com/jason-s-yu/pitch/internal/policy"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()

	logger := logrus.New()
	logger.SetLevel(cfg.LogLevel)
	logrus.SetLevel(cfg.LogLevel)

	if err := auth.Init(cfg.TokenExpiry); err != nil {
		logger.WithError(err).Fatal("failed to initialise seat tokens")
	}

	// Redis and Postgres are optional; without them the server keeps no history.
	if cfg.RedisAddr != "" {
		cache.QueueName = cfg.HistorianQueue
		if err := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisDB); err != nil {
			logger.WithError(err).Warn("redis unavailable, action log disabled")
		}
	}

	rules := game.DefaultHouseRules()
	rules.WinningScore = cfg.WinningScore
	rules.ThinkDelayMs = int(cfg.ThinkDelay / time.Millisecond)

	srv := handlers.NewGameServer(logger, rules)
	srv.NewProvider = func() policy.Provider { return policy.NewRandom(time.Now().UnixNano()) }

	if cfg.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		pool, err := database.ConnectDB(ctx, cfg.DatabaseURL)
		if err == nil {
			err = database.EnsureSchema(ctx, pool)
		}
		cancel()
		if err != nil {
			logger.WithError(err).Warn("postgres unavailable, round archive disabled")
		} else {
			srv.Archive = database.NewArchive(pool)
		}
	}

	mux := http.NewServeMux()
	logged := middleware.LogMiddleware(logger)

	mux.Handle("/game/create", logged(handlers.CreateGameHandler(srv)))
	mux.Handle("/game/state/", logged(handlers.GameStateHandler(srv)))
	mux.Handle("/game/delete/", logged(handlers.DeleteGameHandler(srv)))
	mux.Handle("/game/ws/", logged(handlers.GameWSHandler(logger, srv)))

	addr := ":" + cfg.Port
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.WithError(err).Fatal("server exited")
	}
}
