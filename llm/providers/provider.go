package providers

import (
	"context"
	"fmt"
	"os"

	clc "github.com/cloudwego/eino-ext/callbacks/cozeloop"
	openaiEmbed "github.com/cloudwego/eino-ext/components/embedding/openai"
	geminiModel "github.com/cloudwego/eino-ext/components/model/gemini"
	openaiModel "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino-ext/components/model/qwen"
	"github.com/cloudwego/eino/callbacks"
	einoEmbedding "github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/model"
	"github.com/coze-dev/cozeloop-go"
	"google.golang.org/genai"
)

// ChatModelConfig defines the configuration for creating a chat model.
type ChatModelConfig struct {
	Provider string // "openai" (any OpenAI-compatible endpoint) or "google"
	APIKey   string
	BaseURL  string
	Model    string
}

// NewChatModel creates a chat model from specific configuration.
func NewChatModel(ctx context.Context, config *ChatModelConfig) (model.ToolCallingChatModel, error) {
	if config.Provider == "google" {
		return newGeminiModel(ctx, config)
	}

	if config.APIKey == "" {
		return nil, fmt.Errorf("API key is required in config")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "https://open.bigmodel.cn/api/paas/v4"
	}

	modelName := config.Model
	if modelName == "" {
		modelName = "glm-4-flash"
	}

	return openaiModel.NewChatModel(ctx, &openaiModel.ChatModelConfig{
		APIKey:  config.APIKey,
		BaseURL: baseURL,
		Model:   modelName,
	})
}

func newGeminiModel(ctx context.Context, config *ChatModelConfig) (model.ToolCallingChatModel, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("API key is required for the google provider")
	}

	modelName := config.Model
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: config.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return geminiModel.NewChatModel(ctx, &geminiModel.Config{
		Client: client,
		Model:  modelName,
	})
}

// CreateChatModel creates the primary chat model from environment variables.
//
// Required environment variables:
//   - API_KEY: API key for the LLM provider
//
// Optional environment variables:
//   - MODEL_PROVIDER: "openai" (default, any OpenAI-compatible API) or "google"
//   - BASE_URL: base URL for OpenAI-compatible APIs
//   - MODEL: model name
func CreateChatModel(ctx context.Context) (model.ToolCallingChatModel, error) {
	apiKey := os.Getenv("API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("API_KEY environment variable is required")
	}

	return NewChatModel(ctx, &ChatModelConfig{
		Provider: os.Getenv("MODEL_PROVIDER"),
		APIKey:   apiKey,
		BaseURL:  os.Getenv("BASE_URL"),
		Model:    os.Getenv("MODEL"),
	})
}

// CreateSummaryModel creates the dedicated summarization model. Falls back
// to the primary chat model configuration when no summary model is set.
func CreateSummaryModel(ctx context.Context) (model.ToolCallingChatModel, error) {
	apiKey := os.Getenv("SUMMARY_MODEL_API_KEY")
	if apiKey == "" {
		return CreateChatModel(ctx)
	}

	return qwen.NewChatModel(ctx, &qwen.ChatModelConfig{
		APIKey:  apiKey,
		BaseURL: os.Getenv("SUMMARY_MODEL_BASE_URL"),
		Model:   os.Getenv("SUMMARY_MODEL"),
	})
}

// EmbeddingConfig defines the configuration for creating an embedding model.
type EmbeddingConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// NewEmbeddingModel creates an OpenAI-compatible embedding model from
// specific configuration.
func NewEmbeddingModel(ctx context.Context, config *EmbeddingConfig) (einoEmbedding.Embedder, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("API key is required in config")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "https://open.bigmodel.cn/api/paas/v4"
	}

	modelName := config.Model
	if modelName == "" {
		modelName = "embedding-3"
	}

	return openaiEmbed.NewEmbedder(ctx, &openaiEmbed.EmbeddingConfig{
		APIKey:  config.APIKey,
		BaseURL: baseURL,
		Model:   modelName,
	})
}

// CreateEmbeddingModel creates an OpenAI-compatible embedding model from
// environment variables.
func CreateEmbeddingModel(ctx context.Context) (einoEmbedding.Embedder, error) {
	apiKey := os.Getenv("EMBEDDING_MODEL_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("EMBEDDING_MODEL_API_KEY or API_KEY environment variable is required")
	}

	return NewEmbeddingModel(ctx, &EmbeddingConfig{
		APIKey:  apiKey,
		BaseURL: os.Getenv("EMBEDDING_MODEL_BASE_URL"),
		Model:   os.Getenv("EMBEDDING_MODEL"),
	})
}

// SetupTracing installs the CozeLoop callback handler when the environment
// carries credentials for it. Returns a close function to flush spans.
func SetupTracing(ctx context.Context) (func(), error) {
	apiToken := os.Getenv("COZELOOP_API_TOKEN")
	workspaceID := os.Getenv("COZELOOP_WORKSPACE_ID")
	if apiToken == "" || workspaceID == "" {
		return func() {}, nil
	}

	client, err := cozeloop.NewClient(
		cozeloop.WithAPIToken(apiToken),
		cozeloop.WithWorkspaceID(workspaceID),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cozeloop client: %w", err)
	}

	callbacks.AppendGlobalHandlers(clc.NewLoopHandler(client))
	return func() { client.Close(ctx) }, nil
}
