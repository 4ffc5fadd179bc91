package parser

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// MarkdownParser handles markdown files. Frontmatter is parsed into
// metadata; the markdown body is kept as-is since headings and lists carry
// useful retrieval signal.
type MarkdownParser struct{}

// NewMarkdownParser creates a new markdown parser.
func NewMarkdownParser() *MarkdownParser {
	return &MarkdownParser{}
}

// Parse reads markdown from the reader.
func (p *MarkdownParser) Parse(ctx context.Context, r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read markdown: %w", err)
	}
	return p.parse(string(data), ""), nil
}

// ParseFile reads a markdown file.
func (p *MarkdownParser) ParseFile(ctx context.Context, filePath string) (*Document, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return p.parse(string(data), filePath), nil
}

func (p *MarkdownParser) parse(content, filePath string) *Document {
	metadata, body := splitFrontmatter(content)

	title := ExtractTitle(body, filePath)
	if fmTitle, ok := metadata["title"].(string); ok && fmTitle != "" {
		title = fmTitle
	}

	metadata["file_size"] = len(content)
	metadata["line_count"] = strings.Count(content, "\n") + 1

	return &Document{
		Content:  body,
		Title:    title,
		Metadata: metadata,
	}
}

// splitFrontmatter separates a leading YAML frontmatter block (simple
// key: value pairs only) from the markdown body.
func splitFrontmatter(content string) (map[string]interface{}, string) {
	metadata := make(map[string]interface{})

	if !strings.HasPrefix(content, "---\n") {
		return metadata, content
	}

	rest := content[len("---\n"):]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return metadata, content
	}

	for _, line := range strings.Split(rest[:end], "\n") {
		if idx := strings.Index(line, ":"); idx > 0 {
			key := strings.TrimSpace(line[:idx])
			value := strings.Trim(strings.TrimSpace(line[idx+1:]), `"'`)
			metadata[key] = value
		}
	}

	body := rest[end+len("\n---"):]
	body = strings.TrimPrefix(body, "\n")
	return metadata, body
}

// FileType returns the file type this parser handles.
func (p *MarkdownParser) FileType() FileType {
	return FileTypeMD
}
