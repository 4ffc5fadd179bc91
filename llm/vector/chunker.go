package vector

import (
	"strings"

	"intellitube/llm"
)

// SplitConfig configures the sliding-window text splitter.
type SplitConfig struct {
	ChunkSize    int // maximum chunk size in runes
	ChunkOverlap int // overlap carried from the tail of one chunk into the next
}

// DefaultSplitConfig returns the default split configuration.
func DefaultSplitConfig() SplitConfig {
	return SplitConfig{
		ChunkSize:    512,
		ChunkOverlap: 128,
	}
}

// Normalize clamps the configuration to sane values. Overlap is always
// strictly less than chunk size, otherwise splitting could never advance.
func (c SplitConfig) Normalize() SplitConfig {
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultSplitConfig().ChunkSize
	}
	if c.ChunkOverlap < 0 {
		c.ChunkOverlap = 0
	}
	if c.ChunkOverlap >= c.ChunkSize {
		c.ChunkOverlap = c.ChunkSize / 2
	}
	return c
}

// SplitText splits text into overlapping chunks. Paragraph boundaries are
// preferred; paragraphs larger than the chunk size are force-split on the
// rune window.
func SplitText(text string, cfg SplitConfig) []llm.Chunk {
	cfg = cfg.Normalize()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var pieces []string
	var current strings.Builder

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			pieces = append(pieces, s)
		}
		current.Reset()
	}

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		if current.Len() > 0 && current.Len()+len(para) > cfg.ChunkSize {
			prev := current.String()
			flush()
			if cfg.ChunkOverlap > 0 {
				current.WriteString(tailOverlap(prev, cfg.ChunkOverlap))
				current.WriteString("\n\n")
			}
		}

		current.WriteString(para)
		current.WriteString("\n\n")
	}
	flush()

	var chunks []llm.Chunk
	for _, piece := range pieces {
		for _, sub := range forceSplit(piece, cfg.ChunkSize, cfg.ChunkOverlap) {
			chunks = append(chunks, llm.Chunk{
				Text:     sub,
				Metadata: map[string]interface{}{"chunk_index": len(chunks)},
			})
		}
	}
	return chunks
}

// SplitChunks re-splits already-loaded chunks to the configured window,
// preserving order.
func SplitChunks(in []llm.Chunk, cfg SplitConfig) []llm.Chunk {
	var texts []string
	for _, c := range in {
		texts = append(texts, c.Text)
	}
	return SplitText(strings.Join(texts, "\n\n"), cfg)
}

// tailOverlap returns the last size runes, advanced to the next word
// boundary when one exists.
func tailOverlap(text string, size int) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if size >= len(runes) {
		return text
	}

	tail := string(runes[len(runes)-size:])
	if idx := strings.IndexByte(tail, ' '); idx > 0 {
		return tail[idx+1:]
	}
	return tail
}

// forceSplit windows text into at-most-size rune chunks with overlap.
func forceSplit(text string, size, overlap int) []string {
	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}

	var out []string
	for start := 0; start < len(runes); {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
		if end == len(runes) {
			break
		}
		start = end - overlap
	}
	return out
}
