// Package router classifies an incoming user message: does it carry a
// source reference (URL, file path, YouTube link), and if so of what kind,
// separated from the user's literal instruction.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"intellitube/llm"
)

const classifyPrompt = `You are a query analyzer. Given one user message,
extract the following as a JSON object with exactly these fields:

{
  "instruction": "the user's instruction quoted word-for-word with any URLs or paths removed; preserve casing, punctuation and wording, do NOT fix typos or grammar",
  "analysis": "one concise sentence describing what the user actually wants",
  "url": "the URL or local file path the user provided, or null if there is none; never fabricate one",
  "urlof": "one of: youtube_video | website | document | null; youtube_video for YouTube links, document for file paths (.txt, .pdf, .md, .docx, ...), website for anything else that is a URL; null when url is null"
}

Respond with the JSON object only, no surrounding text.`

// Classification is the router's parsed model response.
type Classification struct {
	Instruction string  `json:"instruction"`
	Analysis    string  `json:"analysis"`
	URL         *string `json:"url"`
	URLOf       *string `json:"urlof"`
}

// Result is what the pipeline consumes: the instruction with the source
// stripped, and the reference when one was present.
type Result struct {
	Instruction string
	Analysis    string
	// Ref is nil when the message carries no source reference.
	Ref *llm.SourceReference
}

// ChatModel is the slice of an eino chat model the router needs.
type ChatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// Router extracts source references from user messages.
type Router struct {
	model ChatModel
	log   *slog.Logger
}

func New(chatModel ChatModel) (*Router, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is required")
	}
	return &Router{
		model: chatModel,
		log:   slog.With("component", "router"),
	}, nil
}

// Classify runs the extraction over one user message. A malformed model
// response is a RoutingError; a well-formed response with no source yields
// Ref == nil and never an error.
func (r *Router) Classify(ctx context.Context, message string) (Result, error) {
	msg, err := r.model.Generate(ctx, []*schema.Message{
		schema.SystemMessage(classifyPrompt),
		schema.UserMessage(message),
	})
	if err != nil {
		return Result{}, &RoutingError{Raw: message, Err: err}
	}

	cls, err := parseClassification(msg.Content)
	if err != nil {
		return Result{}, &RoutingError{Raw: message, Err: err}
	}
	return normalize(cls, message), nil
}

// parseClassification unmarshals the model reply, tolerating code fences
// around the JSON object.
func parseClassification(content string) (Classification, error) {
	var cls Classification
	if err := json.Unmarshal([]byte(stripFences(content)), &cls); err != nil {
		return Classification{}, fmt.Errorf("malformed classifier response: %w", err)
	}
	return cls, nil
}

// normalize applies the guards the raw model output needs before the rest
// of the pipeline may trust it.
func normalize(cls Classification, original string) Result {
	res := Result{
		Instruction: strings.TrimSpace(cls.Instruction),
		Analysis:    strings.TrimSpace(cls.Analysis),
	}
	if res.Instruction == "" {
		res.Instruction = strings.TrimSpace(original)
	}

	rawURL := derefNullable(cls.URL)
	rawKind := derefNullable(cls.URLOf)
	if rawURL == "" {
		// Kind without a URL violates the reference invariant; treat the
		// whole extraction as "no source".
		return res
	}

	kind := llm.SourceKind(rawKind)
	if !kind.Valid() {
		// Unknown or missing type with a URL present: a URL is most
		// likely a web page.
		kind = llm.KindWebsite
	}
	res.Ref = &llm.SourceReference{Raw: rawURL, Kind: kind}
	return res
}

// derefNullable collapses both JSON null and the literal string "null"
// (which some models emit instead of absence) into the empty string.
func derefNullable(s *string) string {
	if s == nil {
		return ""
	}
	v := strings.TrimSpace(*s)
	if strings.EqualFold(v, "null") || strings.EqualFold(v, "none") {
		return ""
	}
	return v
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// RoutingError wraps a failed or malformed classification. The raw user
// message is preserved so the caller can surface it.
type RoutingError struct {
	Raw string
	Err error
}

func (e *RoutingError) Error() string {
	return fmt.Sprintf("routing failed for message %q: %v", e.Raw, e.Err)
}

func (e *RoutingError) Unwrap() error { return e.Err }
