package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"intellitube/llm"
)

const (
	fetchTimeout = 30 * time.Second
	// maxFetchSize caps a response body at 5MB.
	maxFetchSize = int64(5 * 1024 * 1024)
)

// webpageStrategy fetches a URL and converts its HTML to markdown, which
// chunks and embeds better than raw tag soup.
type webpageStrategy struct {
	client    *http.Client
	userAgent string
	cache     *DiskCache
}

func newWebpageStrategy(userAgent string, cache *DiskCache) *webpageStrategy {
	return &webpageStrategy{
		client:    &http.Client{Timeout: fetchTimeout},
		userAgent: userAgent,
		cache:     cache,
	}
}

func (s *webpageStrategy) Load(ctx context.Context, ref llm.SourceReference) (*llm.LoadedContent, error) {
	// Cache entries are keyed canonically so spelling variants of the
	// same URL share one entry.
	key := llm.CanonicalKey(ref)
	if s.cache != nil {
		if entry, ok := s.cache.Get(key); ok && entry.Content != "" {
			return webpageContent(ref, entry.Title, entry.Content), nil
		}
	}

	if !strings.HasPrefix(ref.Raw, "http://") && !strings.HasPrefix(ref.Raw, "https://") {
		return nil, &Error{Code: FetchFailed, Reason: "URL must start with http:// or https://"}
	}

	body, contentType, err := s.fetch(ctx, ref.Raw)
	if err != nil {
		return nil, err
	}

	title, markdown, err := htmlToMarkdown(body, contentType)
	if err != nil {
		return nil, &Error{Code: ParseFailed, Reason: "could not parse the page content", Err: err}
	}
	if strings.TrimSpace(markdown) == "" {
		return nil, &Error{Code: ParseFailed, Reason: "the page contained no readable text"}
	}

	if s.cache != nil {
		_ = s.cache.Put(key, CacheEntry{Title: title, Content: markdown})
	}
	return webpageContent(ref, title, markdown), nil
}

func (s *webpageStrategy) fetch(ctx context.Context, url string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", "", &Error{Code: FetchFailed, Reason: "invalid URL", Err: err}
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", "", &Error{Code: FetchFailed, Reason: "could not reach the page", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", &Error{
			Code:   FetchFailed,
			Reason: fmt.Sprintf("the server responded with status %d", resp.StatusCode),
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchSize))
	if err != nil {
		return "", "", &Error{Code: FetchFailed, Reason: "could not read the response", Err: err}
	}
	return string(data), resp.Header.Get("Content-Type"), nil
}

// htmlToMarkdown extracts the page title and converts the body to
// markdown. Non-HTML responses pass through as-is.
func htmlToMarkdown(body, contentType string) (title, markdown string, err error) {
	if contentType != "" && !strings.Contains(contentType, "text/html") {
		return "", body, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", "", err
	}
	title = strings.TrimSpace(doc.Find("title").First().Text())
	doc.Find("script, style, nav, noscript, iframe").Remove()

	cleaned, err := goquery.OuterHtml(doc.Selection)
	if err != nil {
		return "", "", err
	}

	converter := md.NewConverter("", true, nil)
	markdown, err = converter.ConvertString(cleaned)
	if err != nil {
		return "", "", err
	}
	return title, collapseBlankLines(markdown), nil
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			if blank {
				continue
			}
			blank = true
			out = append(out, "")
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

func webpageContent(ref llm.SourceReference, title, markdown string) *llm.LoadedContent {
	return &llm.LoadedContent{
		Kind:  llm.KindWebsite,
		Title: title,
		Ref:   ref,
		Chunks: []llm.Chunk{{
			Text: markdown,
			Metadata: map[string]interface{}{
				"source": ref.Raw,
				"title":  title,
			},
		}},
	}
}
