package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"intellitube/llm"
	"intellitube/llm/parser"
)

// documentStrategy reads a local file through the parser registry, so the
// supported formats are whatever the registry knows (txt, md, html, pdf,
// docx).
type documentStrategy struct {
	registry *parser.Registry
}

func newDocumentStrategy() *documentStrategy {
	return &documentStrategy{registry: parser.DefaultRegistry()}
}

func (s *documentStrategy) Load(ctx context.Context, ref llm.SourceReference) (*llm.LoadedContent, error) {
	path := ref.Raw
	info, err := os.Stat(path)
	if err != nil {
		return nil, &Error{
			Code:   FetchFailed,
			Reason: fmt.Sprintf("cannot open file %q", path),
			Err:    err,
		}
	}
	if info.IsDir() {
		return nil, &Error{Code: FetchFailed, Reason: fmt.Sprintf("%q is a directory, not a file", path)}
	}

	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if parser.FileTypeFromExt(ext) == parser.FileTypeUnknown {
		return nil, &Error{
			Code:   UnsupportedKind,
			Reason: fmt.Sprintf("unsupported file type %q", filepath.Ext(path)),
		}
	}

	doc, err := s.registry.ParseFile(ctx, path)
	if err != nil {
		return nil, &Error{
			Code:   ParseFailed,
			Reason: fmt.Sprintf("could not parse %q", filepath.Base(path)),
			Err:    err,
		}
	}

	title := doc.Title
	if title == "" {
		title = filepath.Base(path)
	}
	return &llm.LoadedContent{
		Kind:  llm.KindDocument,
		Title: title,
		Ref:   ref,
		Chunks: []llm.Chunk{{
			Text: doc.Content,
			Metadata: map[string]interface{}{
				"source": path,
				"title":  title,
			},
		}},
	}, nil
}
