package parser

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// FileType represents the type of document file.
type FileType string

const (
	FileTypePDF     FileType = "pdf"
	FileTypeDocx    FileType = "docx"
	FileTypeMD      FileType = "md"
	FileTypeHTML    FileType = "html"
	FileTypeTXT     FileType = "txt"
	FileTypeUnknown FileType = "unknown"
)

// Document is the result of parsing one file: plain text content plus
// whatever metadata the format exposed.
type Document struct {
	Content  string
	Title    string
	Metadata map[string]interface{}
}

// Parser extracts text from one document format.
type Parser interface {
	// Parse reads and parses a document from the reader.
	Parse(ctx context.Context, r io.Reader) (*Document, error)

	// ParseFile reads and parses a document from a file path.
	ParseFile(ctx context.Context, filePath string) (*Document, error)

	// FileType returns the file type this parser handles.
	FileType() FileType
}

// Registry maps file types to their parsers.
type Registry struct {
	parsers map[FileType]Parser
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[FileType]Parser)}
}

// Register adds a parser to the registry.
func (r *Registry) Register(p Parser) {
	r.parsers[p.FileType()] = p
}

// GetParser returns a parser for the given file type.
func (r *Registry) GetParser(ft FileType) (Parser, bool) {
	p, ok := r.parsers[ft]
	return p, ok
}

// ParseFile parses a file using the parser registered for its extension.
func (r *Registry) ParseFile(ctx context.Context, filePath string) (*Document, error) {
	ft := FileTypeFromExt(strings.TrimPrefix(filepath.Ext(filePath), "."))
	p, ok := r.parsers[ft]
	if !ok {
		return nil, fmt.Errorf("no parser registered for file: %s", filePath)
	}
	return p.ParseFile(ctx, filePath)
}

// FileTypeFromExt converts a file extension to a FileType.
func FileTypeFromExt(ext string) FileType {
	switch strings.ToLower(ext) {
	case "pdf":
		return FileTypePDF
	case "docx", "doc":
		return FileTypeDocx
	case "md", "markdown":
		return FileTypeMD
	case "html", "htm":
		return FileTypeHTML
	case "txt", "text", "log":
		return FileTypeTXT
	default:
		return FileTypeUnknown
	}
}

// String returns the string representation of the FileType.
func (ft FileType) String() string {
	return string(ft)
}

// DefaultRegistry returns a registry with every built-in parser registered.
func DefaultRegistry() *Registry {
	reg := NewRegistry()
	reg.Register(NewTxtParser())
	reg.Register(NewMarkdownParser())
	reg.Register(NewHTMLParser())
	reg.Register(NewPDFParser())
	reg.Register(NewDocxParser())
	return reg
}

// ExtractTitle picks a title for content: first short non-empty line, or
// the file's base name.
func ExtractTitle(content, filePath string) string {
	for _, line := range strings.Split(strings.TrimSpace(content), "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "# "))
		if line == "" {
			continue
		}
		if len(line) < 100 {
			return line
		}
		break
	}
	if filePath != "" {
		return filepath.Base(filePath)
	}
	return "Untitled"
}
