package loader

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// CacheEntry holds the fetched artifacts for one source. Fields are
// populated independently: a webpage fill leaves Transcript empty, a
// transcript fill leaves Content empty. A lookup that needs a field the
// entry lacks is a miss for that field only.
type CacheEntry struct {
	Title      string    `json:"title,omitempty"`
	Content    string    `json:"content,omitempty"`
	Transcript string    `json:"transcript,omitempty"`
	SavedAt    time.Time `json:"saved_at"`
}

// DiskCache stores one JSON entry per source under a directory, keyed by a
// filename-safe form of the raw reference. Writes merge field-wise into
// any existing entry rather than replacing it.
type DiskCache struct {
	dir string
	mu  sync.Mutex
}

func NewDiskCache(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &DiskCache{dir: dir}, nil
}

// Get returns the entry for raw, or ok=false when none exists.
func (c *DiskCache) Get(raw string) (CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.entryPath(raw))
	if err != nil {
		return CacheEntry{}, false
	}
	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return CacheEntry{}, false
	}
	return entry, true
}

// Put merges the non-empty fields of entry into the stored entry for raw.
// Prior fields survive: caching a transcript for a source whose page
// content is already cached keeps both.
func (c *DiskCache) Put(raw string, entry CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	merged := entry
	if data, err := os.ReadFile(c.entryPath(raw)); err == nil {
		var prior CacheEntry
		if json.Unmarshal(data, &prior) == nil {
			merged = mergeEntries(prior, entry)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("read cache entry: %w", err)
	}
	merged.SavedAt = time.Now().UTC()

	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := os.WriteFile(c.entryPath(raw), data, 0o644); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}

func (c *DiskCache) entryPath(raw string) string {
	return filepath.Join(c.dir, sanitizeFilename(raw)+".json")
}

func mergeEntries(prior, next CacheEntry) CacheEntry {
	out := prior
	if next.Title != "" {
		out.Title = next.Title
	}
	if next.Content != "" {
		out.Content = next.Content
	}
	if next.Transcript != "" {
		out.Transcript = next.Transcript
	}
	return out
}

var filenameReplacer = strings.NewReplacer(
	"://", "_",
	"/", "_",
	"\\", "_",
	"-", "_",
	" ", "_",
	";", "_",
	"'", "_",
	`"`, "_",
	":", "_",
	"?", "_",
	"&", "_",
	"=", "_",
)

// sanitizeFilename flattens a URL or path into a safe cache filename.
func sanitizeFilename(raw string) string {
	name := filenameReplacer.Replace(raw)
	const maxLen = 200
	if len(name) > maxLen {
		name = name[:maxLen]
	}
	return name
}
