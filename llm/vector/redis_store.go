package vector

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"intellitube/llm"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/redis/go-redis/v9"
)

const (
	defaultEFConstruction = 200
	defaultM              = 16

	// maxWriteAttempts bounds index-write retries before the error is
	// surfaced to the caller.
	maxWriteAttempts = 3

	fieldContent    = "content"
	fieldVector     = "vector"
	fieldSource     = "source"
	fieldTitle      = "title"
	fieldChunkIndex = "chunk_index"
	fieldCreatedAt  = "created_at"
	fieldMetadata   = "metadata"
	fieldScore      = "score"
)

// RedisStore implements Store on Redis with RediSearch HNSW vector search.
// One RediSearch index per collection (chat); a companion Redis SET records
// which source keys have been ingested.
type RedisStore struct {
	client         *redis.Client
	embeddingSvc   *EmbeddingService
	config         StoreConfig
	mu             sync.Mutex
	indexCreated   bool
	efConstruction int
	m              int
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr           string
	Password       string
	DB             int
	PoolSize       int
	Collection     string
	VectorDim      int
	EFConstruction int
	M              int
}

// NewRedisStore creates a Redis-backed vector store for one collection.
func NewRedisStore(ctx context.Context, embedder embedding.Embedder, cfg RedisConfig) (*RedisStore, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedding model is required")
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("collection name is required")
	}

	if cfg.EFConstruction <= 0 {
		cfg.EFConstruction = defaultEFConstruction
	}
	if cfg.M <= 0 {
		cfg.M = defaultM
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to connect to Redis: %v", ErrStoreUnavailable, err)
	}

	return &RedisStore{
		client:       client,
		embeddingSvc: NewEmbeddingService(embedder, cfg.VectorDim),
		config: StoreConfig{
			Collection:   cfg.Collection,
			EmbeddingDim: cfg.VectorDim,
		},
		efConstruction: cfg.EFConstruction,
		m:              cfg.M,
	}, nil
}

func (s *RedisStore) indexName() string {
	return "intellitube:" + s.config.Collection
}

func (s *RedisStore) keyPrefix() string {
	return "vec:" + s.config.Collection + ":"
}

func (s *RedisStore) sourcesKey() string {
	return s.keyPrefix() + "sources"
}

// EnsureCollection creates the HNSW index if it does not exist yet.
func (s *RedisStore) EnsureCollection(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexCreated {
		return nil
	}

	if _, err := s.client.Do(ctx, "FT.INFO", s.indexName()).Result(); err == nil {
		s.indexCreated = true
		return nil
	}

	dim := s.embeddingSvc.Dimension()
	_, err := s.client.Do(ctx, "FT.CREATE", s.indexName(),
		"ON", "HASH",
		"PREFIX", "1", s.keyPrefix(),
		"SCHEMA",
		fieldVector, "VECTOR", "HNSW", "10",
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(dim),
		"DISTANCE_METRIC", "COSINE",
		"EF_CONSTRUCTION", strconv.Itoa(s.efConstruction),
		"M", strconv.Itoa(s.m),
		fieldContent, "TEXT",
		fieldSource, "TAG",
		fieldTitle, "TEXT",
		fieldChunkIndex, "NUMERIC",
		fieldCreatedAt, "NUMERIC",
	).Result()
	if err != nil {
		return fmt.Errorf("%w: failed to create index: %v", ErrStoreUnavailable, err)
	}

	s.indexCreated = true
	return nil
}

// HasSource reports whether sourceKey has been ingested into this
// collection.
func (s *RedisStore) HasSource(ctx context.Context, sourceKey string) (bool, error) {
	ok, err := s.client.SIsMember(ctx, s.sourcesKey(), sourceKey).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return ok, nil
}

// AddSource splits, embeds and indexes the chunks of one source. With
// skipIfExists set, an already-ingested source key is a documented no-op.
func (s *RedisStore) AddSource(ctx context.Context, sourceKey string, chunks []llm.Chunk, split SplitConfig, skipIfExists bool) error {
	if sourceKey == "" {
		return fmt.Errorf("source key cannot be empty")
	}

	if skipIfExists {
		exists, err := s.HasSource(ctx, sourceKey)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
	}

	if err := s.EnsureCollection(ctx); err != nil {
		return err
	}

	pieces := SplitChunks(chunks, split)
	if len(pieces) == 0 {
		// Nothing to embed; still record the source so re-ingestion of an
		// empty document stays a no-op.
		if err := s.client.SAdd(ctx, s.sourcesKey(), sourceKey).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return nil
	}

	texts := make([]string, len(pieces))
	for i, c := range pieces {
		texts[i] = c.Text
	}

	vectors, err := s.embeddingSvc.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	now := time.Now()
	write := func() error {
		pipe := s.client.Pipeline()
		for i, c := range pieces {
			key := s.keyPrefix() + chunkID(sourceKey, i)
			metadataJSON, _ := json.Marshal(c.Metadata)
			pipe.HSet(ctx, key,
				fieldContent, c.Text,
				fieldVector, encodeVector(vectors[i]),
				fieldSource, escapeTag(sourceKey),
				fieldChunkIndex, i,
				fieldCreatedAt, now.Unix(),
				fieldMetadata, metadataJSON,
			)
		}
		pipe.SAdd(ctx, s.sourcesKey(), sourceKey)
		_, err := pipe.Exec(ctx)
		return err
	}

	var lastErr error
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		if lastErr = write(); lastErr == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 200 * time.Millisecond):
		}
	}
	return fmt.Errorf("%w: failed to insert documents: %v", ErrStoreUnavailable, lastErr)
}

// Query runs a KNN search and filters by similarity score.
func (s *RedisStore) Query(ctx context.Context, text string, topK int, scoreThreshold float32) ([]llm.SearchResult, error) {
	if text == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	if topK <= 0 {
		topK = 5
	}
	if topK > 100 {
		topK = 100
	}

	if err := s.EnsureCollection(ctx); err != nil {
		return nil, err
	}

	queryVector, err := s.embeddingSvc.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	queryStr := fmt.Sprintf("*=>[KNN %d @%s $query_vector AS %s]", topK, fieldVector, fieldScore)
	raw, err := s.client.Do(ctx, "FT.SEARCH", s.indexName(), queryStr,
		"PARAMS", "2", "query_vector", encodeVector(queryVector),
		"RETURN", "6", fieldContent, fieldSource, fieldTitle, fieldChunkIndex, fieldMetadata, fieldScore,
		"SORTBY", fieldScore,
		"LIMIT", "0", strconv.Itoa(topK),
		"DIALECT", "2",
	).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: vector search failed: %v", ErrStoreUnavailable, err)
	}

	return parseSearchResults(raw, scoreThreshold), nil
}

// parseSearchResults converts the FT.SEARCH reply (count followed by
// id/fields pairs) into scored results, dropping anything under the
// threshold. The index reports cosine distance; similarity is 1 - distance.
func parseSearchResults(raw interface{}, scoreThreshold float32) []llm.SearchResult {
	values, ok := raw.([]interface{})
	if !ok || len(values) < 1 {
		return []llm.SearchResult{}
	}

	results := []llm.SearchResult{}
	for i := 1; i+1 < len(values); i += 2 {
		docID, ok := values[i].(string)
		if !ok {
			continue
		}
		fields, ok := values[i+1].([]interface{})
		if !ok {
			continue
		}

		doc := llm.Document{ID: docID, Metadata: make(map[string]interface{})}
		score := float32(0)

		for j := 0; j+1 < len(fields); j += 2 {
			name, ok := fields[j].(string)
			if !ok {
				continue
			}
			val, _ := fields[j+1].(string)

			switch name {
			case fieldContent:
				doc.Content = val
			case fieldSource:
				doc.Source = unescapeTag(val)
			case fieldTitle:
				doc.Title = val
			case fieldChunkIndex:
				if n, err := strconv.Atoi(val); err == nil {
					doc.ChunkIndex = n
				}
			case fieldMetadata:
				_ = json.Unmarshal([]byte(val), &doc.Metadata)
			case fieldScore:
				if dist, err := strconv.ParseFloat(val, 32); err == nil {
					score = 1 - float32(dist)
				}
			}
		}

		if score < scoreThreshold {
			continue
		}
		results = append(results, llm.SearchResult{Document: doc, Score: score})
	}
	return results
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// chunkID derives a stable document ID from the source key and chunk
// index, so re-indexing a source overwrites rather than duplicates.
func chunkID(sourceKey string, chunkIndex int) string {
	h := sha256.New()
	h.Write([]byte(sourceKey))
	h.Write([]byte("#"))
	h.Write([]byte(strconv.Itoa(chunkIndex)))
	return hex.EncodeToString(h.Sum(nil))[:32]
}

// encodeVector packs a float32 vector as little-endian bytes, the layout
// RediSearch expects for FLOAT32 vector fields.
func encodeVector(vector []float32) []byte {
	buf := make([]byte, 4*len(vector))
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// escapeTag escapes RediSearch TAG separators in a value.
func escapeTag(s string) string {
	r := strings.NewReplacer(",", "\\,", " ", "\\ ")
	return r.Replace(s)
}

func unescapeTag(s string) string {
	r := strings.NewReplacer("\\,", ",", "\\ ", " ")
	return r.Replace(s)
}
