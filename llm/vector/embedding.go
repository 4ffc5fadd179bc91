package vector

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/embedding"
)

// EmbeddingService wraps an eino embedder and fixes the vector
// dimensionality for collection creation.
type EmbeddingService struct {
	embedder embedding.Embedder
	dim      int
}

// NewEmbeddingService creates a new embedding service.
func NewEmbeddingService(embedder embedding.Embedder, dim int) *EmbeddingService {
	if dim <= 0 {
		dim = 1024
	}
	return &EmbeddingService{
		embedder: embedder,
		dim:      dim,
	}
}

// Embed generates the embedding vector for a single text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	vectors, err := s.embedder.EmbedStrings(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("empty embedding returned")
	}

	return toFloat32(vectors[0]), nil
}

// EmbedBatch generates embedding vectors for multiple texts, preserving
// order.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("texts cannot be empty")
	}

	vectors, err := s.embedder.EmbedStrings(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(texts))
	}

	result := make([][]float32, len(vectors))
	for i, vec := range vectors {
		result[i] = toFloat32(vec)
	}
	return result, nil
}

// Dimension returns the embedding dimension.
func (s *EmbeddingService) Dimension() int {
	return s.dim
}

func toFloat32(vec []float64) []float32 {
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(v)
	}
	return out
}
