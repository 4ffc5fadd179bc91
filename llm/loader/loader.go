// Package loader turns a source reference into loaded content. One
// strategy per source kind; every underlying I/O or parse failure is
// translated into a typed *Error at this boundary.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"intellitube/llm"
)

// ErrorCode classifies a load failure.
type ErrorCode string

const (
	// UnsupportedKind means the reference's kind has no strategy.
	UnsupportedKind ErrorCode = "unsupported_kind"
	// FetchFailed means the content could not be retrieved.
	FetchFailed ErrorCode = "fetch_failed"
	// ParseFailed means the content was retrieved but not understood.
	ParseFailed ErrorCode = "parse_failed"
)

// Error is the loader's only failure type. Callers branch on Code; Reason
// is safe to surface to the user.
type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("load %s: %s: %v", e.Code, e.Reason, e.Err)
	}
	return fmt.Sprintf("load %s: %s", e.Code, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// AsError extracts the loader's *Error from an error chain.
func AsError(err error) (*Error, bool) {
	var le *Error
	ok := errors.As(err, &le)
	return le, ok
}

// Strategy loads content for one source kind.
type Strategy interface {
	Load(ctx context.Context, ref llm.SourceReference) (*llm.LoadedContent, error)
}

// Loader dispatches a reference to the strategy for its kind. The strategy
// table is closed at construction.
type Loader struct {
	strategies map[llm.SourceKind]Strategy
	log        *slog.Logger
}

// Config wires the loader's strategies and their shared disk cache.
type Config struct {
	// CacheDir is where fetched artifacts (page markdown, transcripts)
	// are cached across sessions. Empty disables disk caching.
	CacheDir string
	// UserAgent is sent on outgoing HTTP requests.
	UserAgent string
}

// New builds a Loader with the default strategy per source kind.
func New(cfg Config) (*Loader, error) {
	var cache *DiskCache
	if cfg.CacheDir != "" {
		var err error
		cache, err = NewDiskCache(cfg.CacheDir)
		if err != nil {
			return nil, fmt.Errorf("init loader cache: %w", err)
		}
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "intellitube/1.0"
	}

	return &Loader{
		strategies: map[llm.SourceKind]Strategy{
			llm.KindWebsite:  newWebpageStrategy(cfg.UserAgent, cache),
			llm.KindDocument: newDocumentStrategy(),
			llm.KindYouTube:  newYouTubeStrategy(cfg.UserAgent, cache),
		},
		log: slog.With("component", "loader"),
	}, nil
}

// Load fetches and parses the referenced content. The returned error, when
// non-nil, is always a *Error.
func (l *Loader) Load(ctx context.Context, ref llm.SourceReference) (*llm.LoadedContent, error) {
	strategy, ok := l.strategies[ref.Kind]
	if !ok {
		return nil, &Error{
			Code:   UnsupportedKind,
			Reason: fmt.Sprintf("cannot load content of kind %q", ref.Kind),
		}
	}

	l.log.Info("loading source", "kind", ref.Kind, "ref", ref.Raw)
	content, err := strategy.Load(ctx, ref)
	if err != nil {
		var le *Error
		if !errors.As(err, &le) {
			// Strategies return *Error; anything else is a fetch-side
			// escape hatch.
			err = &Error{Code: FetchFailed, Reason: "loading failed", Err: err}
		}
		l.log.Warn("load failed", "kind", ref.Kind, "ref", ref.Raw, "error", err)
		return nil, err
	}
	return content, nil
}
