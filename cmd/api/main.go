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

	"github.com/casefront/legalchat/backend/internal/config"
	"github.com/casefront/legalchat/backend/internal/handler"
	"github.com/casefront/legalchat/backend/internal/realtime"
	"github.com/casefront/legalchat/backend/internal/service/ai"
	"github.com/casefront/legalchat/backend/internal/session"
	"github.com/casefront/legalchat/backend/internal/storage"
	"github.com/casefront/legalchat/backend/internal/store"
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

	// Durable chat store, with realtime publication on every write.
	var chatStore store.ChatStore
	if cfg.Store.Path == "memory" {
		chatStore = store.NewMemoryStore()
		log.Println("using in-memory chat store")
	} else {
		gormStore, err := store.NewGormStore(cfg.Store.Path)
		if err != nil {
			log.Fatalf("failed to open chat store: %v", err)
		}
		chatStore = gormStore
		log.Printf("chat store opened at %s", cfg.Store.Path)
	}
	defer chatStore.Close()

	broker := realtime.NewBroker()
	publishing := realtime.NewPublishingStore(chatStore, broker)

	files, err := storage.NewDiskStore(cfg.Files.Root, cfg.Files.BaseURL)
	if err != nil {
		log.Fatalf("failed to initialize file storage: %v", err)
	}

	// AI provider is optional; without it chats still persist and sync,
	// but no responses stream.
	var provider session.Provider
	if cfg.AI.Enabled() {
		aiService, err := ai.NewService(ctx, cfg.AI)
		if err != nil {
			log.Printf("warning: failed to initialize AI service: %v", err)
			log.Println("continuing without AI functionality")
		} else {
			provider = aiService
			log.Println("AI service initialized successfully")
		}
	} else {
		log.Println("Ark credentials not configured, skipping AI initialization")
	}

	registry := session.NewRegistry(session.Deps{
		Store:    publishing,
		Broker:   broker,
		Files:    files,
		Provider: provider,
		Lang:     cfg.AI.Language,
	})
	defer registry.CloseAll()

	router := handler.NewRouter(publishing, registry, files, broker)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("legalchat backend listening on %s", serverCfg.Addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
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
