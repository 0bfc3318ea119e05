// File: cmd/server/main.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iyunix/go-pdfchat/internal/auth"
	"github.com/iyunix/go-pdfchat/internal/config"
	"github.com/iyunix/go-pdfchat/internal/database"
	"github.com/iyunix/go-pdfchat/internal/handlers"
	"github.com/iyunix/go-pdfchat/internal/ratelimit"
	"github.com/iyunix/go-pdfchat/internal/render"
	chatrepo "github.com/iyunix/go-pdfchat/internal/repository/chat"
	msgrepo "github.com/iyunix/go-pdfchat/internal/repository/message"
	"github.com/iyunix/go-pdfchat/internal/services"
	"github.com/iyunix/go-pdfchat/internal/services/ai"
	"github.com/iyunix/go-pdfchat/internal/services/blob"
	chatservice "github.com/iyunix/go-pdfchat/internal/services/chat"
	"github.com/iyunix/go-pdfchat/internal/services/extract"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	logger, err := services.NewLogger("pdfchat", cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", "error", err)
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *services.ZapLogger) error {
	// --- Storage ---
	db, err := database.Open(database.Config{
		Driver: cfg.DBDriver,
		DSN:    cfg.DatabaseDSN,
		Debug:  !cfg.IsProduction() && cfg.LogLevel == "debug",
	})
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	blobDB, err := blob.OpenBadger(cfg.BlobPath)
	if err != nil {
		return err
	}
	defer blobDB.Close()

	// --- Repositories ---
	chatRepo := chatrepo.NewChatRepository(db, logger.Named("chat_repository"))
	messageRepo := msgrepo.NewMessageRepository(db, logger.Named("message_repository"))

	// --- Services ---
	aiConfig := ai.DefaultConfig()
	aiConfig.APIKey = cfg.OpenAIAPIKey
	aiConfig.BaseURL = cfg.OpenAIBaseURL
	aiConfig.Timeout = cfg.AITimeout
	completions, err := ai.NewOpenAIProvider(aiConfig, logger.Named("openai"))
	if err != nil {
		return err
	}

	blobs := blob.NewBadgerStore(blobDB, cfg.PublicBaseURL, logger.Named("blob_store"))

	chatConfig := chatservice.DefaultConfig()
	chatConfig.ChatModel = cfg.ChatModel
	chatConfig.MaxDocumentChars = cfg.MaxDocumentChars
	// the generation deadline must leave room for every retry
	chatConfig.GenerationTimeout = aiConfig.Budget()
	if cfg.RequestTimeout < chatConfig.GenerationTimeout {
		logger.Warn("request timeout is shorter than the completion retry budget",
			"request_timeout", cfg.RequestTimeout, "generation_budget", chatConfig.GenerationTimeout)
	}

	chatService, err := services.NewChatService(
		chatConfig,
		chatRepo,
		messageRepo,
		completions,
		extract.NewPDFExtractor(logger.Named("extractor")),
		blobs,
		logger.Named("chat"),
	)
	if err != nil {
		return err
	}

	// --- Handlers ---
	chatHandler, err := handlers.NewChatHandler(chatService, render.NewMarkdown(), cfg.MaxUploadBytes, logger.Named("http"))
	if err != nil {
		return err
	}

	limiterConfig := ratelimit.DefaultSendConfig()
	limiterConfig.MaxAttempts = cfg.SendRateLimit
	limiterConfig.WindowSize = cfg.SendRateWindow
	sendLimiter := ratelimit.NewMemoryRateLimiter(limiterConfig)
	defer sendLimiter.Close()

	router := handlers.NewRouter(handlers.RouterConfig{
		Chats:          chatHandler,
		Files:          handlers.NewFileHandler(blobs, logger.Named("http")),
		Logs:           handlers.NewLogHandler(logger.Named("client")),
		Verifier:       auth.NewJWTVerifier([]byte(cfg.JWTSecretKey)),
		SendLimiter:    sendLimiter,
		Ping:           func(ctx context.Context) error { return database.Ping(ctx, db) },
		RequestTimeout: cfg.RequestTimeout,
		Logger:         logger.Named("http"),
	})

	// --- Server Configuration ---
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 10*time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", srv.Addr, "env", cfg.Environment, "db_driver", cfg.DBDriver, "model", cfg.ChatModel)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// --- Graceful Shutdown ---
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return err
	case sig := <-stop:
		logger.Info("shutting down server gracefully", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	logger.Info("server stopped gracefully")
	return nil
}
