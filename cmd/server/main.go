package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/AubakirovArman/tomoru-sub000/internal/assistant"
	"github.com/AubakirovArman/tomoru-sub000/internal/bots"
	"github.com/AubakirovArman/tomoru-sub000/internal/channels/gateway"
	"github.com/AubakirovArman/tomoru-sub000/internal/channels/telegram"
	"github.com/AubakirovArman/tomoru-sub000/internal/channels/whatsapp"
	"github.com/AubakirovArman/tomoru-sub000/internal/conversation"
	"github.com/AubakirovArman/tomoru-sub000/internal/knowledge"
	"github.com/AubakirovArman/tomoru-sub000/internal/server"
	"github.com/AubakirovArman/tomoru-sub000/internal/server/handlers"
	"github.com/AubakirovArman/tomoru-sub000/internal/storage"
	"github.com/AubakirovArman/tomoru-sub000/pkg/config"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", "config.yaml"))
	}

	// Initialize storage
	var store storage.Storage
	if cfg.Database.UseInMemory {
		logger.Info("Using in-memory storage")
		store = storage.NewMemoryStorage()
	} else {
		logger.Info("Using PostgreSQL storage")
		store, err = storage.NewPostgresStorage(storage.DatabaseConfig{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		})
		if err != nil {
			logger.Fatal("Failed to initialize storage", zap.Error(err))
		}
	}
	defer store.Close()

	// Assistant provider and the turn machinery built on it
	provider := assistant.NewProvider(cfg.OpenAI.APIKey)
	runner := assistant.NewRunner(provider, logger, cfg.OpenAI.RunPollInterval, cfg.OpenAI.RunTimeout)
	threads := assistant.NewThreadManager(provider, logger)
	transcriber := assistant.NewTranscriber(provider, logger)
	builder := assistant.NewBuilderCache(provider, cfg.OpenAI.BuilderAssistantName, cfg.OpenAI.Model, logger)

	// Domain services
	botService := bots.NewService(store, provider, cfg.OpenAI.Model, logger)
	kbService := knowledge.NewService(store, provider, logger)
	turns := conversation.NewService(store, threads, runner, logger)

	// Channel adapters
	telegramAdapter := telegram.NewAdapter(store, turns, transcriber, logger)
	whatsappAdapter := whatsapp.NewAdapter(store, turns, transcriber, logger)
	gatewayAdapter := gateway.NewAdapter(store, turns, logger)

	srv := server.New(cfg, server.Handlers{
		Bots:       handlers.NewBotHandler(botService, store, logger),
		QuickReply: handlers.NewQuickReplyHandler(botService, store, logger),
		Knowledge:  handlers.NewKnowledgeHandler(kbService, botService, logger),
		Builder:    handlers.NewBuilderHandler(builder, threads, runner, logger),
		Webhooks:   handlers.NewWebhookHandler(store, telegramAdapter, whatsappAdapter, gatewayAdapter, logger),
	}, logger)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		logger.Error("Failed to stop server gracefully", zap.Error(err))
	}
}
