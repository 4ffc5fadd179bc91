package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"intellitube/llm/loader"
	"intellitube/llm/pipeline"
	"intellitube/llm/providers"
	"intellitube/llm/router"
	"intellitube/llm/session"
	"intellitube/llm/summarizer"
	"intellitube/llm/vector"
	"intellitube/pubsub"
	"intellitube/tui/chat"
)

func init() {
	// Load .env file if exists
	_ = godotenv.Load()
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	closeTracing, err := providers.SetupTracing(ctx)
	if err != nil {
		slog.Warn("tracing disabled", "error", err)
	} else {
		defer closeTracing()
	}

	chatModel, err := providers.CreateChatModel(ctx)
	if err != nil {
		return fmt.Errorf("create chat model: %w", err)
	}
	summaryModel, err := providers.CreateSummaryModel(ctx)
	if err != nil {
		return fmt.Errorf("create summary model: %w", err)
	}
	embedder, err := providers.CreateEmbeddingModel(ctx)
	if err != nil {
		return fmt.Errorf("create embedding model: %w", err)
	}

	manager, err := session.NewChat(dataDir())
	if err != nil {
		return fmt.Errorf("create chat session: %w", err)
	}

	store, err := vector.NewRedisStore(ctx, embedder, vector.RedisConfig{
		Addr:       envOr("REDIS_ADDR", "localhost:6379"),
		Password:   os.Getenv("REDIS_PASSWORD"),
		Collection: manager.ChatID(),
		VectorDim:  envInt("EMBEDDING_DIM", 1024),
	})
	if err != nil {
		return fmt.Errorf("connect vector store: %w", err)
	}
	defer store.Close()

	contentLoader, err := loader.New(loader.Config{
		CacheDir: filepath.Join(manager.ChatDir(), "cache"),
	})
	if err != nil {
		return err
	}

	counter, err := summarizer.NewTiktokenCounter("")
	if err != nil {
		return fmt.Errorf("init token counter: %w", err)
	}
	sum, err := summarizer.New(summaryModel, counter, summarizer.DefaultConfig())
	if err != nil {
		return err
	}

	rt, err := router.New(chatModel)
	if err != nil {
		return err
	}

	broker := pubsub.NewBroker[string]()
	defer broker.Shutdown()

	p, err := pipeline.New(rt, contentLoader, sum, store, chatModel, broker, pipeline.DefaultConfig())
	if err != nil {
		return err
	}

	program := tea.NewProgram(
		chat.InitialModel(p, manager, broker),
		tea.WithAltScreen(),
	)
	_, err = program.Run()
	return err
}

func dataDir() string {
	if dir := os.Getenv("INTELLITUBE_DATA_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".intellitube"
	}
	return filepath.Join(home, ".intellitube")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
