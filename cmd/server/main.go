package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/genai"

	"github.com/easeaico/chat-characters/internal/api"
	"github.com/easeaico/chat-characters/internal/characters"
	"github.com/easeaico/chat-characters/internal/chat"
	"github.com/easeaico/chat-characters/internal/config"
	"github.com/easeaico/chat-characters/internal/jobs"
	"github.com/easeaico/chat-characters/internal/memory"
	"github.com/easeaico/chat-characters/internal/models"
	"github.com/easeaico/chat-characters/internal/storage"
)

func main() {
	config.LoadDotEnv()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewStore(ctx, cfg.DatabaseURL, memory.RecencyScorer{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer store.Close()

	directory := characters.NewDirectory(store.Characters)
	seeded, err := directory.Seed(ctx, cfg.CharactersDir)
	if err != nil {
		log.Fatalf("failed to seed characters: %v", err)
	}
	slog.Info("characters loaded", "count", seeded, "dir", cfg.CharactersDir)

	llm, err := models.NewOpenRouterModel(ctx, cfg.ChatModel, cfg.PublicURL, &genai.ClientConfig{
		APIKey:      cfg.OpenRouterAPIKey,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.OpenRouterBaseURL},
	})
	if err != nil {
		log.Fatalf("failed to create completion model: %v", err)
	}
	completer := models.NewLLMCompleter(llm, cfg.Temperature, cfg.MaxTokens)

	chatOpts := chat.Options{
		Memory:            cfg.Memory,
		CompletionTimeout: cfg.CompletionTimeout,
		DefaultModel:      cfg.ChatModel,
	}
	deps := api.Deps{
		Characters: directory,
		Memory:     store.Exchanges,
		Pinger:     store,
		Metrics:    api.NewMetrics(),
	}
	if cfg.GoogleAPIKey != "" {
		embedder, err := models.NewEmbedder(ctx, cfg.GoogleAPIKey, cfg.EmbeddingModel)
		if err != nil {
			log.Fatalf("failed to create embedder: %v", err)
		}
		chatOpts.Indexer = chat.NewEmbeddingIndexer(embedder, store.Exchanges)
		deps.Embedder = embedder
		deps.Searcher = store.Exchanges
	} else {
		slog.Info("GOOGLE_API_KEY not set, semantic memory search disabled")
	}

	service := chat.NewService(store.Exchanges, completer, chatOpts)
	defer service.Wait()
	deps.Chat = service

	retention, err := jobs.NewRetentionJob(store.Exchanges, cfg.Memory.RetentionDays, cfg.SweepInterval)
	if err != nil {
		log.Fatalf("failed to create retention job: %v", err)
	}
	if err := retention.Start(ctx); err != nil {
		log.Fatalf("failed to start retention job: %v", err)
	}
	defer func() {
		if err := retention.Stop(); err != nil {
			slog.Warn("failed to stop retention job", "error", err)
		}
	}()

	server := api.NewServer(deps, api.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		StaticDir:      cfg.StaticDir,
		DefaultModel:   cfg.ChatModel,
		DayBuckets:     cfg.DayBuckets,
		PoolSize:       cfg.Memory.Normalized().PoolSize,
	})
	if err := server.Serve(ctx, cfg.Addr()); err != nil {
		slog.Error("http server stopped", "error", err)
	}
}
