package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flor3z/scuttle-bot/internal/api"
	"github.com/flor3z/scuttle-bot/internal/bot"
	"github.com/flor3z/scuttle-bot/internal/cache"
	"github.com/flor3z/scuttle-bot/internal/config"
	"github.com/flor3z/scuttle-bot/internal/registry"
	"github.com/flor3z/scuttle-bot/internal/riot"
	"github.com/flor3z/scuttle-bot/internal/storage"
	"github.com/flor3z/scuttle-bot/internal/tracker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Set up logging
	setupLogging(cfg.LogLevel)

	slog.Info("Starting Scuttle", "storage", cfg.StorageDriver)

	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.Open(ctx, cfg.StorageDriver, cfg.MongoURI, cfg.MongoDatabase, cfg.DatabasePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	clientOpts := []riot.Option{
		riot.WithRegionalBaseURL(cfg.RiotRegionalURL),
		riot.WithMaxRetries(cfg.RateLimitMaxRetries),
	}
	var identityCache *cache.RedisIdentityCache
	if cfg.RedisURL != "" {
		identityCache, err = cache.NewRedisIdentityCache(ctx, cfg.RedisURL)
		if err != nil {
			// Lookups still work without the cache
			slog.Warn("Redis unavailable, identity cache disabled", "error", err)
		} else {
			clientOpts = append(clientOpts, riot.WithIdentityCache(identityCache))
		}
	}
	client := riot.NewClient(cfg.RiotAPIKey, clientOpts...)

	reg := registry.New(client, store)
	t := tracker.New(client, store, reg, tracker.Config{
		WindowDays:    cfg.IngestWindowDays,
		RetentionDays: cfg.MatchRetentionDays,
	})

	// Create and start the bot
	b, err := bot.New(cfg, store, t)
	if err != nil {
		slog.Error("Failed to create bot", "error", err)
		os.Exit(1)
	}

	// Start the bot
	if err := b.Start(ctx); err != nil {
		slog.Error("Failed to start bot", "error", err)
		os.Exit(1)
	}

	var apiServer *api.Server
	if cfg.APIAddr != "" {
		apiServer = api.NewServer(cfg.APIAddr, t, store)
		apiServer.Start()
	}

	slog.Info("Bot is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if apiServer != nil {
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("Error stopping HTTP server", "error", err)
		}
	}

	// Stop the bot gracefully
	if err := b.Stop(); err != nil {
		slog.Error("Error during shutdown", "error", err)
	}

	client.Close()
	if identityCache != nil {
		identityCache.Close()
	}
	if err := store.Close(shutdownCtx); err != nil {
		slog.Error("Error closing storage", "error", err)
	}

	slog.Info("Bot stopped")
}

func setupLogging(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}
