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

	"github.com/jason-s-yu/bingo/internal/auth"
	"github.com/jason-s-yu/bingo/internal/cache"
	"github.com/jason-s-yu/bingo/internal/config"
	"github.com/jason-s-yu/bingo/internal/database"
	"github.com/jason-s-yu/bingo/internal/game"
	"github.com/jason-s-yu/bingo/internal/handlers"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("invalid configuration: %v", err)
	}
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(lvl)
	} else {
		logger.Warnf("unknown LOG_LEVEL %q, using info", cfg.LogLevel)
	}

	if cfg.KeyPath != "" {
		err = auth.InitFromPath(cfg.KeyPath)
	} else {
		err = auth.Init()
	}
	if err != nil {
		logger.Fatalf("auth init: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := game.HallOptions{
		Round: game.RoundConfig{
			SelectionSeconds: cfg.SelectionSeconds,
			WinnerSeconds:    cfg.WinnerSeconds,
			Stake:            cfg.Stake,
			HouseCutPercent:  cfg.HouseCutPercent,
		},
		CallInterval:    cfg.CallInterval,
		ExhaustionDelay: cfg.ExhaustionDelay,
		Deck:            game.NewDeck(cfg.CardCount, cfg.CardSeed),
		Logger:          logger,
	}

	// round history is best effort: without Redis the hall still runs
	if !cfg.HistoryOff {
		rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			logger.Warnf("round history disabled: %v", err)
		} else {
			defer rdb.Close()
			pub := cache.NewHistoryPublisher(rdb, cfg.QueueName, 1024, logger)
			go pub.Run(ctx)
			opts.Recorder = pub
		}
	}

	if cfg.Stake > 0 {
		pool, err := database.ConnectDB(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("wallet database: %v", err)
		}
		defer pool.Close()
		if err := database.EnsureSchema(ctx, pool); err != nil {
			logger.Fatalf("wallet database: %v", err)
		}
		opts.Wallet = database.NewWallet(pool)
		logger.Infof("Stakes enabled: %d per card, house cut %d%%", cfg.Stake, cfg.HouseCutPercent)
	}

	hall := game.NewHall(opts)
	hallDone := make(chan struct{})
	go func() {
		defer close(hallDone)
		if err := hall.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Errorf("hall stopped: %v", err)
		}
	}()

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: handlers.NewRouter(logger, hall, handlers.GatewayOptions{
			OriginPatterns: cfg.AllowedOrigins,
			OutboxSize:     cfg.OutboxSize,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Infof("Running on %s", cfg.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("server exited: %v", err)
	}
	<-hallDone
	logger.Info("Shutdown complete")
}
