package llm

// SourceKind classifies what an extracted source reference points at.
type SourceKind string

const (
	KindDocument SourceKind = "document"
	KindWebsite  SourceKind = "website"
	KindYouTube  SourceKind = "youtube_video"
)

// Valid reports whether k is one of the closed set of source kinds.
func (k SourceKind) Valid() bool {
	switch k {
	case KindDocument, KindWebsite, KindYouTube:
		return true
	}
	return false
}

// SourceReference identifies external content to ingest: the raw URL or
// local path as the user wrote it, plus the kind the router inferred.
// If Kind is set, Raw is non-empty.
type SourceReference struct {
	Raw  string     `json:"url"`
	Kind SourceKind `json:"urlof"`
}

// Chunk is one ordered piece of loaded content.
type Chunk struct {
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// LoadedContent is the immutable result of loading one source. SourceKey is
// the canonical form of the reference used for cache and index dedup.
type LoadedContent struct {
	SourceKey string          `json:"source_key"`
	Kind      SourceKind      `json:"kind"`
	Title     string          `json:"title,omitempty"`
	Chunks    []Chunk         `json:"chunks"`
	Summary   string          `json:"summary,omitempty"`
	Ref       SourceReference `json:"ref"`
}

// Document represents a chunk as stored in the vector collection.
type Document struct {
	ID         string                 `json:"id"`
	Content    string                 `json:"content"`
	Source     string                 `json:"source"`
	Title      string                 `json:"title"`
	ChunkIndex int                    `json:"chunk_index"`
	Metadata   map[string]interface{} `json:"metadata"`
	CreatedAt  string                 `json:"created_at"`
}

// SearchResult pairs a retrieved document with its similarity score in
// [0, 1], higher is closer.
type SearchResult struct {
	Document Document
	Score    float32
}
