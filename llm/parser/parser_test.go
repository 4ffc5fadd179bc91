package parser

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileTypeFromExt(t *testing.T) {
	cases := map[string]FileType{
		"pdf":      FileTypePDF,
		"PDF":      FileTypePDF,
		"docx":     FileTypeDocx,
		"md":       FileTypeMD,
		"markdown": FileTypeMD,
		"html":     FileTypeHTML,
		"htm":      FileTypeHTML,
		"txt":      FileTypeTXT,
		"exe":      FileTypeUnknown,
		"":         FileTypeUnknown,
	}
	for ext, want := range cases {
		assert.Equal(t, want, FileTypeFromExt(ext), "ext %q", ext)
	}
}

func TestRegistryUnknownType(t *testing.T) {
	reg := DefaultRegistry()
	_, err := reg.ParseFile(context.Background(), "binary.exe")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no parser registered")
}

func TestTxtParser(t *testing.T) {
	p := NewTxtParser()
	doc, err := p.Parse(context.Background(), strings.NewReader("First line title\nsecond line\n"))
	require.NoError(t, err)
	assert.Equal(t, "First line title", doc.Title)
	assert.Contains(t, doc.Content, "second line")
}

func TestMarkdownParserFrontmatter(t *testing.T) {
	input := "---\ntitle: \"My Doc\"\nauthor: someone\n---\n# Heading\n\nBody text.\n"
	p := NewMarkdownParser()
	doc, err := p.Parse(context.Background(), strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, "My Doc", doc.Title)
	assert.Equal(t, "someone", doc.Metadata["author"])
	assert.NotContains(t, doc.Content, "author:")
	assert.Contains(t, doc.Content, "Body text.")
}

func TestMarkdownParserNoFrontmatter(t *testing.T) {
	p := NewMarkdownParser()
	doc, err := p.Parse(context.Background(), strings.NewReader("# Title Here\n\ncontent"))
	require.NoError(t, err)
	assert.Equal(t, "Title Here", doc.Title)
}

func TestHTMLParser(t *testing.T) {
	input := `<html><head><title>Page Title</title><style>p{color:red}</style></head>
<body><nav>skip me</nav><p>Hello world.</p><script>var x=1;</script><p>Second paragraph.</p></body></html>`

	p := NewHTMLParser()
	doc, err := p.Parse(context.Background(), strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, "Page Title", doc.Title)
	assert.Contains(t, doc.Content, "Hello world.")
	assert.Contains(t, doc.Content, "Second paragraph.")
	assert.NotContains(t, doc.Content, "var x=1")
	assert.NotContains(t, doc.Content, "skip me")
}

func TestExtractTitle(t *testing.T) {
	assert.Equal(t, "Short title", ExtractTitle("Short title\nrest", ""))
	assert.Equal(t, "Heading", ExtractTitle("# Heading\nbody", ""))
	assert.Equal(t, "notes.txt", ExtractTitle("", "/tmp/notes.txt"))

	long := strings.Repeat("x", 150)
	assert.Equal(t, "fallback.md", ExtractTitle(long, "/docs/fallback.md"))
}
