package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fumiama/go-docx"
)

// DocxParser extracts paragraph and table text from Word documents.
type DocxParser struct{}

// NewDocxParser creates a new DOCX parser.
func NewDocxParser() *DocxParser {
	return &DocxParser{}
}

// Parse reads and parses a DOCX document from the reader.
func (p *DocxParser) Parse(ctx context.Context, r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read DOCX: %w", err)
	}
	return p.parse(bytes.NewReader(data), int64(len(data)), "")
}

// ParseFile reads and parses a DOCX file.
func (p *DocxParser) ParseFile(ctx context.Context, filePath string) (*Document, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	return p.parse(f, info.Size(), filePath)
}

func (p *DocxParser) parse(r io.ReaderAt, size int64, filePath string) (*Document, error) {
	doc, err := docx.Parse(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DOCX: %w", err)
	}

	var sb strings.Builder
	paragraphs := 0
	for _, item := range doc.Document.Body.Items {
		switch it := item.(type) {
		case *docx.Paragraph:
			text := it.String()
			if strings.TrimSpace(text) == "" {
				continue
			}
			sb.WriteString(text)
			sb.WriteString("\n")
			paragraphs++
		case *docx.Table:
			sb.WriteString(it.String())
			sb.WriteString("\n")
		}
	}

	content := strings.TrimSpace(sb.String())
	if content == "" {
		return nil, fmt.Errorf("no extractable text in DOCX")
	}

	return &Document{
		Content: content,
		Title:   ExtractTitle(content, filePath),
		Metadata: map[string]interface{}{
			"paragraph_count": paragraphs,
		},
	}, nil
}

// FileType returns the file type this parser handles.
func (p *DocxParser) FileType() FileType {
	return FileTypeDocx
}
