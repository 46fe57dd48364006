package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/maximeprn/slaybot/internal/config"
	"github.com/maximeprn/slaybot/internal/feed"
	"github.com/maximeprn/slaybot/internal/logger"
	"github.com/maximeprn/slaybot/internal/monitor"
	"github.com/maximeprn/slaybot/internal/storage"
	"github.com/maximeprn/slaybot/internal/telegram"
)

var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", *configPath)

	store, err := storage.New(cfg.Storage.DBPath)
	if err != nil {
		logger.Fatal("Failed to initialize storage: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage: %v", err)
		}
	}()

	feedClient := feed.NewClient(cfg.Feed.BaseURL, cfg.Feed.Timeout)

	telegramClient, err := telegram.NewClient(
		cfg.Telegram.BotToken,
		store,
		cfg.Telegram.MaxRetries,
		cfg.Telegram.RetryDelayBase,
	)
	if err != nil {
		logger.Fatal("Failed to initialize Telegram client: %v", err)
	}
	logger.Info("Telegram client initialized successfully")

	mon := monitor.New(store, feedClient, telegramClient, monitor.Config{
		Interval:   cfg.Monitor.Interval,
		Workers:    cfg.Monitor.Workers,
		BackoffMin: cfg.Monitor.BackoffMin,
		BackoffMax: cfg.Monitor.BackoffMax,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		cancel()
	}()

	telegramClient.ListenForCommands(ctx)

	logger.Info("Starting monitoring loop (interval: %v, workers: %d)",
		cfg.Monitor.Interval, cfg.Monitor.Workers)

	if err := mon.Run(ctx); err != nil {
		logger.Fatal("Monitoring loop halted: %v", err)
	}
	logger.Info("Service stopped")
}
