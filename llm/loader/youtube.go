package loader

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"intellitube/llm"
)

// youtubeStrategy loads a video's transcript. YouTube exposes caption
// tracks through the watch page's player config; the track itself is a
// timedtext XML document.
type youtubeStrategy struct {
	client    *http.Client
	userAgent string
	cache     *DiskCache
}

func newYouTubeStrategy(userAgent string, cache *DiskCache) *youtubeStrategy {
	return &youtubeStrategy{
		client:    &http.Client{Timeout: fetchTimeout},
		userAgent: userAgent,
		cache:     cache,
	}
}

func (s *youtubeStrategy) Load(ctx context.Context, ref llm.SourceReference) (*llm.LoadedContent, error) {
	videoID, err := extractVideoID(ref.Raw)
	if err != nil {
		return nil, &Error{Code: FetchFailed, Reason: "not a recognizable YouTube URL", Err: err}
	}

	key := llm.CanonicalKey(ref)
	if s.cache != nil {
		// A cached entry without a transcript is a miss for this kind:
		// re-fetch the transcript and merge it in, keep the rest.
		if entry, ok := s.cache.Get(key); ok && entry.Transcript != "" {
			return transcriptContent(ref, entry.Title, entry.Transcript), nil
		}
	}

	title, transcript, err := s.fetchTranscript(ctx, videoID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		_ = s.cache.Put(key, CacheEntry{Title: title, Transcript: transcript})
	}
	return transcriptContent(ref, title, transcript), nil
}

func (s *youtubeStrategy) fetchTranscript(ctx context.Context, videoID string) (title, transcript string, err error) {
	page, err := s.get(ctx, "https://www.youtube.com/watch?v="+videoID)
	if err != nil {
		return "", "", err
	}

	title = extractVideoTitle(page)
	trackURL, err := extractCaptionTrackURL(page)
	if err != nil {
		return "", "", &Error{
			Code:   FetchFailed,
			Reason: "the video has no captions available",
			Err:    err,
		}
	}

	raw, err := s.get(ctx, trackURL)
	if err != nil {
		return "", "", err
	}
	transcript, err = parseTimedText([]byte(raw))
	if err != nil {
		return "", "", &Error{Code: ParseFailed, Reason: "could not parse the caption track", Err: err}
	}
	if strings.TrimSpace(transcript) == "" {
		return "", "", &Error{Code: ParseFailed, Reason: "the caption track was empty"}
	}
	return title, transcript, nil
}

func (s *youtubeStrategy) get(ctx context.Context, u string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", &Error{Code: FetchFailed, Reason: "invalid URL", Err: err}
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept-Language", "en")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", &Error{Code: FetchFailed, Reason: "could not reach YouTube", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", &Error{
			Code:   FetchFailed,
			Reason: fmt.Sprintf("YouTube responded with status %d", resp.StatusCode),
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchSize))
	if err != nil {
		return "", &Error{Code: FetchFailed, Reason: "could not read the response", Err: err}
	}
	return string(data), nil
}

var videoIDPattern = regexp.MustCompile(`^[\w-]{11}$`)

// extractVideoID handles the common URL shapes: watch?v=, youtu.be/,
// shorts/, embed/, or a bare 11-character ID.
func extractVideoID(raw string) (string, error) {
	if videoIDPattern.MatchString(raw) {
		return raw, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse URL: %w", err)
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	switch host {
	case "youtu.be":
		id := strings.Trim(u.Path, "/")
		if videoIDPattern.MatchString(id) {
			return id, nil
		}
	case "youtube.com", "m.youtube.com", "music.youtube.com":
		if id := u.Query().Get("v"); videoIDPattern.MatchString(id) {
			return id, nil
		}
		for _, prefix := range []string{"/shorts/", "/embed/", "/live/"} {
			if rest, ok := strings.CutPrefix(u.Path, prefix); ok {
				id := strings.Trim(rest, "/")
				if videoIDPattern.MatchString(id) {
					return id, nil
				}
			}
		}
	}
	return "", fmt.Errorf("no video id in %q", raw)
}

var (
	captionTracksPattern = regexp.MustCompile(`"captionTracks":(\[.*?\])`)
	videoTitlePattern    = regexp.MustCompile(`<title>(.*?)</title>`)
)

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"`
}

// extractCaptionTrackURL finds the caption track list embedded in the
// watch page and picks the best track: manually authored English, then
// any English, then the first track.
func extractCaptionTrackURL(page string) (string, error) {
	m := captionTracksPattern.FindStringSubmatch(page)
	if m == nil {
		return "", fmt.Errorf("no caption tracks on page")
	}

	var tracks []captionTrack
	if err := json.Unmarshal([]byte(m[1]), &tracks); err != nil {
		return "", fmt.Errorf("decode caption tracks: %w", err)
	}
	if len(tracks) == 0 {
		return "", fmt.Errorf("empty caption track list")
	}

	best := tracks[0]
	for _, t := range tracks {
		english := strings.HasPrefix(t.LanguageCode, "en")
		if english && t.Kind != "asr" {
			best = t
			break
		}
		if english && !strings.HasPrefix(best.LanguageCode, "en") {
			best = t
		}
	}
	return html.UnescapeString(best.BaseURL), nil
}

func extractVideoTitle(page string) string {
	m := videoTitlePattern.FindStringSubmatch(page)
	if m == nil {
		return ""
	}
	title := html.UnescapeString(m[1])
	return strings.TrimSpace(strings.TrimSuffix(title, "- YouTube"))
}

type timedText struct {
	Texts []struct {
		Start string `xml:"start,attr"`
		Body  string `xml:",chardata"`
	} `xml:"text"`
}

// parseTimedText flattens a timedtext XML caption document into plain
// text, one caption per line.
func parseTimedText(data []byte) (string, error) {
	var tt timedText
	if err := xml.Unmarshal(data, &tt); err != nil {
		return "", err
	}

	var b strings.Builder
	for _, t := range tt.Texts {
		line := strings.TrimSpace(html.UnescapeString(t.Body))
		if line == "" {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return strings.TrimSpace(b.String()), nil
}

func transcriptContent(ref llm.SourceReference, title, transcript string) *llm.LoadedContent {
	return &llm.LoadedContent{
		Kind:  llm.KindYouTube,
		Title: title,
		Ref:   ref,
		Chunks: []llm.Chunk{{
			Text: transcript,
			Metadata: map[string]interface{}{
				"source": ref.Raw,
				"title":  title,
			},
		}},
	}
}
