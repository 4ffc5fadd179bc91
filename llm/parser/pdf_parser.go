package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/unidoc/unipdf/v3/extractor"
	pdfmodel "github.com/unidoc/unipdf/v3/model"
)

// PDFParser extracts text from PDF files page by page. Pages that fail
// extraction are skipped rather than failing the whole document.
type PDFParser struct{}

// NewPDFParser creates a new PDF parser.
func NewPDFParser() *PDFParser {
	return &PDFParser{}
}

// Parse reads and parses a PDF from the reader.
func (p *PDFParser) Parse(ctx context.Context, r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF: %w", err)
	}
	return p.parse(ctx, bytes.NewReader(data), "")
}

// ParseFile reads and parses a PDF file.
func (p *PDFParser) ParseFile(ctx context.Context, filePath string) (*Document, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	return p.parse(ctx, f, filePath)
}

func (p *PDFParser) parse(ctx context.Context, rs io.ReadSeeker, filePath string) (*Document, error) {
	reader, err := pdfmodel.NewPdfReader(rs)
	if err != nil {
		return nil, fmt.Errorf("failed to load PDF: %w", err)
	}

	numPages, err := reader.GetNumPages()
	if err != nil {
		return nil, fmt.Errorf("failed to get page count: %w", err)
	}

	var sb strings.Builder
	extracted := 0
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := reader.GetPage(i)
		if err != nil {
			continue
		}
		ex, err := extractor.New(page)
		if err != nil {
			continue
		}
		text, err := ex.ExtractText()
		if err != nil {
			continue
		}

		sb.WriteString(text)
		sb.WriteString("\n\n")
		extracted++
	}

	content := strings.TrimSpace(sb.String())
	if content == "" {
		return nil, fmt.Errorf("no extractable text in PDF (%d pages)", numPages)
	}

	return &Document{
		Content: content,
		Title:   ExtractTitle(content, filePath),
		Metadata: map[string]interface{}{
			"page_count":      numPages,
			"pages_extracted": extracted,
		},
	}, nil
}

// FileType returns the file type this parser handles.
func (p *PDFParser) FileType() FileType {
	return FileTypePDF
}
