package vector

import (
	"context"
	"errors"

	"intellitube/llm"
)

// Store mediates the per-chat vector collection.
type Store interface {
	// EnsureCollection creates the backing collection if absent, sized to
	// the embedding dimensionality. Idempotent.
	EnsureCollection(ctx context.Context) error

	// AddSource splits and indexes the chunks of one source. When
	// skipIfExists is set and the source key is already indexed, the call
	// is a no-op, not an error.
	AddSource(ctx context.Context, sourceKey string, chunks []llm.Chunk, split SplitConfig, skipIfExists bool) error

	// HasSource reports whether a source key has been indexed.
	HasSource(ctx context.Context, sourceKey string) (bool, error)

	// Query returns up to topK chunks similar to text, filtered to
	// score >= scoreThreshold. An empty result is not an error.
	Query(ctx context.Context, text string, topK int, scoreThreshold float32) ([]llm.SearchResult, error)

	// Close releases any connections or resources.
	Close() error
}

// Errors surfaced by store implementations. Callers distinguish a broken
// store (degrade to empty context) from a broken embedder (retry later).
var (
	ErrStoreUnavailable = errors.New("vector store unavailable")
	ErrEmbeddingFailed  = errors.New("embedding failed")
)

// StoreConfig holds configuration shared by store implementations.
type StoreConfig struct {
	// Collection is the per-chat collection name; it scopes the index,
	// the key prefix, and the indexed-sources set.
	Collection string

	// EmbeddingDim must match the embedding model output.
	EmbeddingDim int
}
