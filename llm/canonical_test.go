package llm

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func webRef(raw string) SourceReference {
	return SourceReference{Raw: raw, Kind: KindWebsite}
}

func TestCanonicalKeyEquivalentURLs(t *testing.T) {
	base := CanonicalKey(webRef("https://example.com/docs"))

	for _, variant := range []string{
		"https://Example.com/docs",
		"HTTPS://example.com/docs/",
		"https://example.com:443/docs",
		"https://example.com/docs#section-2",
		"  https://example.com/docs ",
	} {
		assert.Equal(t, base, CanonicalKey(webRef(variant)), variant)
	}
}

func TestCanonicalKeyDistinctURLs(t *testing.T) {
	base := CanonicalKey(webRef("https://example.com/docs?a=1&b=2"))

	for _, variant := range []string{
		"https://example.com/docs",
		"https://example.com/docs?b=2&a=1", // query order is significant
		"http://example.com/docs?a=1&b=2",
		"https://example.org/docs?a=1&b=2",
	} {
		assert.NotEqual(t, base, CanonicalKey(webRef(variant)), variant)
	}
}

func TestCanonicalKeyDefaultPortStripping(t *testing.T) {
	assert.Equal(t,
		CanonicalKey(webRef("http://example.com/a")),
		CanonicalKey(webRef("http://example.com:80/a")))
	// A non-default port is a different source.
	assert.NotEqual(t,
		CanonicalKey(webRef("http://example.com/a")),
		CanonicalKey(webRef("http://example.com:8080/a")))
}

func TestCanonicalKeyLocalPath(t *testing.T) {
	ref := SourceReference{Raw: "./docs/../notes.txt", Kind: KindDocument}
	key := CanonicalKey(ref)

	assert.True(t, filepath.IsAbs(key))
	assert.Equal(t, key, CanonicalKey(ref), "pure function")

	clean := SourceReference{Raw: "notes.txt", Kind: KindDocument}
	assert.Equal(t, key, CanonicalKey(clean))
}
