// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/wordlobby/internal/auth"
	"github.com/jason-s-yu/wordlobby/internal/cache"
	"github.com/jason-s-yu/wordlobby/internal/config"
	"github.com/jason-s-yu/wordlobby/internal/database"
	"github.com/jason-s-yu/wordlobby/internal/game"
	"github.com/jason-s-yu/wordlobby/internal/handlers"
	"github.com/jason-s-yu/wordlobby/internal/lobby"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Warnf("unknown LOG_LEVEL %q, using debug", cfg.LogLevel)
		level = logrus.DebugLevel
	}
	logger.SetLevel(level)

	if cfg.HasAuthKeys() {
		if err := auth.InitFromPath(cfg.AuthPrivateKeyPath, cfg.AuthPublicKeyPath, cfg.TokenExpire); err != nil {
			logger.Fatalf("auth: %v", err)
		}
		logger.Infof("loaded auth keys from %s", cfg.AuthPublicKeyPath)
	} else {
		logger.Warn("AUTH_PRIVATE_KEY_PATH not set, generating a throwaway key pair; external tokens will not verify")
		if err := auth.Init(cfg.TokenExpire); err != nil {
			logger.Fatalf("auth: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := handlers.Options{
		Catalog:             game.DefaultCatalog,
		IDs:                 lobby.NumericIDs{Digits: cfg.LobbyIDDigits},
		MaxIDAttempts:       cfg.LobbyIDMaxAttempts,
		MaxIncorrectGuesses: cfg.MaxIncorrectGuesses,
		ConnectionBuffer:    cfg.ConnectionBuffer,
	}

	if cfg.Postgres.Enabled() {
		pool, err := database.Connect(ctx, cfg.Postgres.ConnString(), logger)
		if err != nil {
			logger.Fatalf("database: %v", err)
		}
		defer pool.Close()

		catalog := database.NewGameCatalog(pool)
		if err := catalog.EnsureSchema(ctx); err != nil {
			logger.Fatalf("database schema: %v", err)
		}
		names := map[int]string{game.WordGameID: "word"}
		if err := catalog.RegisterGames(ctx, names, game.DefaultCatalog); err != nil {
			logger.Fatalf("registering games: %v", err)
		}
		opts.Catalog = catalog
	} else {
		logger.Info("PG_HOST not set, using the built-in game catalog")
	}

	if cfg.RedisAddr != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			logger.Fatalf("redis: %v", err)
		}
		defer rdb.Close()
		opts.Recorder = cache.NewRoundPublisher(rdb, cfg.HistoryQueueName)
		logger.Infof("recording finished rounds to %s", cfg.HistoryQueueName)
	}

	srv := handlers.NewServer(logger, opts)
	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: srv.Routes(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("shutdown: %v", err)
		}
	}()

	logger.Infof("Running on %s", cfg.Addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("server exited: %v", err)
	}
}
