package parser

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// TxtParser handles plain text files.
type TxtParser struct{}

// NewTxtParser creates a new plain text parser.
func NewTxtParser() *TxtParser {
	return &TxtParser{}
}

// Parse reads plain text from the reader.
func (p *TxtParser) Parse(ctx context.Context, r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read text: %w", err)
	}
	return p.document(string(data), ""), nil
}

// ParseFile reads a plain text file.
func (p *TxtParser) ParseFile(ctx context.Context, filePath string) (*Document, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return p.document(string(data), filePath), nil
}

func (p *TxtParser) document(content, filePath string) *Document {
	return &Document{
		Content: content,
		Title:   ExtractTitle(content, filePath),
		Metadata: map[string]interface{}{
			"file_size":  len(content),
			"line_count": strings.Count(content, "\n") + 1,
		},
	}
}

// FileType returns the file type this parser handles.
func (p *TxtParser) FileType() FileType {
	return FileTypeTXT
}
