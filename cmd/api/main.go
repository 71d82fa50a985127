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

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hopeflow/backend/internal/auth"
	"github.com/hopeflow/backend/internal/config"
	"github.com/hopeflow/backend/internal/handler"
	"github.com/hopeflow/backend/internal/observability"
	"github.com/hopeflow/backend/internal/service/ai"
	"github.com/hopeflow/backend/internal/service/chat"
	"github.com/hopeflow/backend/internal/service/conversation"
	"github.com/hopeflow/backend/internal/service/voice"
	"github.com/hopeflow/backend/internal/store/chatlog"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	metrics := observability.NewMetrics(cfg.Metrics.Namespace)

	store, err := chatlog.NewStore(ctx, cfg.Store.DatabaseURL)
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info("chat log store ready", zap.String("store", store.Kind()))

	chatModel, err := ai.NewChatModel(ctx, cfg.AI)
	if err != nil {
		return err
	}
	aiService, err := ai.NewService(ctx, chatModel, string(cfg.AI.Provider), logger, metrics)
	if err != nil {
		return err
	}
	logger.Info("AI service initialized", zap.String("provider", aiService.Provider()))

	conversations := conversation.NewManager(
		conversation.ExpiryPolicy{Timeout: cfg.Conversation.Timeout},
		conversation.WithExpireHook(func(userID string) {
			metrics.ObserveReset("expired")
			logger.Debug("conversation expired", zap.String("user_id", userID))
		}),
		conversation.WithSweepHook(metrics.SetActiveConversations),
	)
	conversations.StartJanitor(ctx, cfg.Conversation.SweepInterval)

	chatService := chat.NewService(aiService, conversations, store, logger, metrics)

	router := handler.NewRouter(handler.Dependencies{
		ChatService: chatService,
		Resolver:    newResolver(cfg.Auth, logger),
		Provider:    aiService.Provider(),
		Logger:      logger,
		Metrics:     metrics,
		Voice:       voice.DefaultSettings,
	})

	return startServer(ctx, cfg.Server, router, logger)
}

func newResolver(cfg config.AuthConfig, logger *zap.Logger) auth.Resolver {
	if cfg.Mode == config.AuthModeSupabase {
		return auth.NewSupabaseResolver(cfg.SupabaseURL, cfg.AnonKey, nil)
	}
	logger.Warn("AUTH_MODE=header: caller-supplied user ids are trusted, use only for local development")
	return auth.HeaderResolver{}
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger *zap.Logger) error {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("HopeFlow backend listening", zap.String("addr", addr))
	return runServer(ctx, srv)
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
