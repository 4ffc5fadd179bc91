package parser

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var blankLines = regexp.MustCompile(`\n\s*\n\s*\n+`)

// HTMLParser extracts readable text from HTML files.
type HTMLParser struct{}

// NewHTMLParser creates a new HTML parser.
func NewHTMLParser() *HTMLParser {
	return &HTMLParser{}
}

// Parse reads and parses HTML from the reader.
func (p *HTMLParser) Parse(ctx context.Context, r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return p.document(doc, ""), nil
}

// ParseFile reads and parses an HTML file.
func (p *HTMLParser) ParseFile(ctx context.Context, filePath string) (*Document, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return p.document(doc, filePath), nil
}

func (p *HTMLParser) document(doc *goquery.Document, filePath string) *Document {
	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}

	// Navigation, scripts and styling carry no retrieval signal.
	doc.Find("script, style, nav, noscript").Remove()

	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}

	// Keep block boundaries as newlines so chunking can split on
	// paragraphs later.
	var sb strings.Builder
	body.Find("p, h1, h2, h3, h4, h5, h6, li, td, th, pre, blockquote").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text != "" {
			sb.WriteString(text)
			sb.WriteString("\n\n")
		}
	})

	content := sb.String()
	if strings.TrimSpace(content) == "" {
		content = strings.Join(strings.Fields(body.Text()), " ")
	}
	content = strings.TrimSpace(blankLines.ReplaceAllString(content, "\n\n"))

	if title == "" {
		title = ExtractTitle(content, filePath)
	}

	return &Document{
		Content: content,
		Title:   title,
		Metadata: map[string]interface{}{
			"file_size": len(content),
		},
	}
}

// FileType returns the file type this parser handles.
func (p *HTMLParser) FileType() FileType {
	return FileTypeHTML
}
