package llm

import (
	"net/url"
	"path/filepath"
	"strings"
)

// CanonicalKey derives the dedup key for a source reference. It is a pure
// function: every textual variant of the same logical source must map to
// the same key, or the source gets ingested twice.
//
// URLs: scheme and host lowercased, default ports and fragments stripped,
// trailing slash trimmed. Query strings are kept in their original order;
// reordered parameters are treated as a different source. Local paths:
// cleaned and made absolute.
func CanonicalKey(ref SourceReference) string {
	raw := strings.TrimSpace(ref.Raw)
	if ref.Kind == KindDocument && !strings.Contains(raw, "://") {
		return canonicalPath(raw)
	}
	return canonicalURL(raw)
}

func canonicalPath(raw string) string {
	abs, err := filepath.Abs(raw)
	if err != nil {
		return filepath.Clean(raw)
	}
	return abs
}

func canonicalURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	switch {
	case u.Scheme == "http" && strings.HasSuffix(u.Host, ":80"):
		u.Host = strings.TrimSuffix(u.Host, ":80")
	case u.Scheme == "https" && strings.HasSuffix(u.Host, ":443"):
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}

	u.Path = strings.TrimRight(u.Path, "/")
	return u.String()
}
