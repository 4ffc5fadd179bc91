// Package summarizer reduces arbitrarily large content into one
// bounded-size summary: an independent per-chunk map phase, then grouped
// reduce rounds repeated until the aggregate fits the token budget.
package summarizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/sync/errgroup"
)

const mapPrompt = `Write a concise summary of the following content. Keep the
key facts, names and conclusions; drop filler and navigation text.`

const reducePrompt = `The following is a set of summaries of parts of one
document. Distill them into a single consolidated summary of the whole. Keep
the key facts, names and conclusions.`

// Errors returned by Summarize.
var (
	// ErrTaskFailed reports that every map task failed.
	ErrTaskFailed = errors.New("summarize: all map tasks failed")
	// ErrBudgetUnreachable reports that collapse rounds did not converge
	// under the token budget within the round bound.
	ErrBudgetUnreachable = errors.New("summarize: token budget unreachable")
)

// ChatModel is the narrow slice of an eino chat model the summarizer needs.
type ChatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// Config tunes one summarizer instance.
type Config struct {
	// MaxTokens is the aggregate token budget a reduce round's input must
	// fit in. Must be positive.
	MaxTokens int
	// MaxCollapseRounds bounds the reduce loop; exceeded means
	// ErrBudgetUnreachable.
	MaxCollapseRounds int
	// MaxParallel bounds concurrent map tasks and per-round group
	// reductions.
	MaxParallel int
}

// DefaultConfig returns the default summarizer configuration.
func DefaultConfig() Config {
	return Config{
		MaxTokens:         2048,
		MaxCollapseRounds: 8,
		MaxParallel:       4,
	}
}

// A summaryUnit is one summary with its cached token count.
type summaryUnit struct {
	text   string
	tokens int
}

// State carries one summarization run through its phases. Summaries is
// appended by concurrent map tasks in completion order; CollapsedSummaries
// is replaced wholesale each collapse round.
type State struct {
	Documents          []string
	Summaries          []string
	CollapsedSummaries []summaryUnit
	FinalSummary       string

	mu sync.Mutex
}

func (s *State) appendSummary(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Summaries = append(s.Summaries, text)
}

// Summarizer runs the map-reduce summarization workflow.
type Summarizer struct {
	model   ChatModel
	counter TokenCounter
	cfg     Config
	log     *slog.Logger
}

// New creates a Summarizer. MaxTokens must be positive; zero-value config
// fields fall back to defaults.
func New(chatModel ChatModel, counter TokenCounter, cfg Config) (*Summarizer, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is required")
	}
	if counter == nil {
		return nil, fmt.Errorf("token counter is required")
	}
	if cfg.MaxTokens <= 0 {
		return nil, fmt.Errorf("max tokens must be positive, got %d", cfg.MaxTokens)
	}
	def := DefaultConfig()
	if cfg.MaxCollapseRounds <= 0 {
		cfg.MaxCollapseRounds = def.MaxCollapseRounds
	}
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = def.MaxParallel
	}

	return &Summarizer{
		model:   chatModel,
		counter: counter,
		cfg:     cfg,
		log:     slog.With("component", "summarizer"),
	}, nil
}

// Summarize reduces documents to one summary whose inputs fit the token
// budget. Empty input yields an empty summary without error. Individual map
// task failures are logged and excluded; only a fully failed fan-out
// returns ErrTaskFailed.
func (s *Summarizer) Summarize(ctx context.Context, documents []string) (string, error) {
	state := &State{Documents: documents}

	if len(documents) == 0 {
		return "", nil
	}

	if err := s.mapFanout(ctx, state); err != nil {
		return "", err
	}
	s.collectSummaries(state)

	rounds := 0
	for s.shouldCollapse(state) {
		if rounds >= s.cfg.MaxCollapseRounds {
			return "", fmt.Errorf("%w after %d rounds (budget %d tokens)",
				ErrBudgetUnreachable, rounds, s.cfg.MaxTokens)
		}
		if err := s.collapseSummaries(ctx, state); err != nil {
			return "", err
		}
		rounds++
	}

	if err := s.generateFinalSummary(ctx, state); err != nil {
		return "", err
	}
	return state.FinalSummary, nil
}

// mapFanout summarizes every document concurrently. Completion order is
// not the submission order and nothing downstream depends on it.
func (s *Summarizer) mapFanout(ctx context.Context, state *State) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxParallel)

	var failed int
	var failedMu sync.Mutex

	for i, doc := range state.Documents {
		g.Go(func() error {
			out, err := s.generate(ctx, mapPrompt, doc)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.log.Warn("map task failed, excluding chunk", "chunk", i, "error", err)
				failedMu.Lock()
				failed++
				failedMu.Unlock()
				return nil
			}
			state.appendSummary(out)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if failed == len(state.Documents) {
		return ErrTaskFailed
	}
	return nil
}

// collectSummaries wraps the mapped summaries with their token counts.
func (s *Summarizer) collectSummaries(state *State) {
	units := make([]summaryUnit, 0, len(state.Summaries))
	for _, text := range state.Summaries {
		units = append(units, summaryUnit{text: text, tokens: s.counter.Count(text)})
	}
	state.CollapsedSummaries = units
}

// shouldCollapse is the loop decision: another collapse round is needed
// while the aggregate exceeds the budget. Re-evaluated after every round.
func (s *Summarizer) shouldCollapse(state *State) bool {
	return totalTokens(state.CollapsedSummaries) > s.cfg.MaxTokens
}

// collapseSummaries packs the current summaries into budget-sized groups
// in order and reduces each group to one new summary. Groups within a
// round run concurrently; rounds are strictly sequential.
func (s *Summarizer) collapseSummaries(ctx context.Context, state *State) error {
	groups := packGroups(state.CollapsedSummaries, s.cfg.MaxTokens)
	reduced := make([]summaryUnit, len(groups))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxParallel)

	for gi, group := range groups {
		g.Go(func() error {
			out, err := s.reduce(ctx, group)
			if err != nil {
				return fmt.Errorf("collapse group %d: %w", gi, err)
			}
			reduced[gi] = summaryUnit{text: out, tokens: s.counter.Count(out)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	state.CollapsedSummaries = reduced
	return nil
}

// generateFinalSummary reduces the now budget-fitting summaries once more.
func (s *Summarizer) generateFinalSummary(ctx context.Context, state *State) error {
	if len(state.CollapsedSummaries) == 0 {
		state.FinalSummary = ""
		return nil
	}

	out, err := s.reduce(ctx, state.CollapsedSummaries)
	if err != nil {
		return err
	}
	state.FinalSummary = out
	return nil
}

func (s *Summarizer) reduce(ctx context.Context, units []summaryUnit) (string, error) {
	texts := make([]string, len(units))
	for i, u := range units {
		texts[i] = u.text
	}
	return s.generate(ctx, reducePrompt, strings.Join(texts, "\n\n"))
}

func (s *Summarizer) generate(ctx context.Context, prompt, content string) (string, error) {
	msg, err := s.model.Generate(ctx, []*schema.Message{
		schema.SystemMessage(prompt),
		schema.UserMessage(content),
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(msg.Content), nil
}

// packGroups partitions units into groups by scanning in order and closing
// a group once adding the next unit would exceed the budget. Greedy, not
// size-optimal. A single unit over budget forms its own group so the loop
// always makes progress.
func packGroups(units []summaryUnit, maxTokens int) [][]summaryUnit {
	var groups [][]summaryUnit
	var current []summaryUnit
	tokens := 0

	for _, u := range units {
		if len(current) > 0 && tokens+u.tokens > maxTokens {
			groups = append(groups, current)
			current = nil
			tokens = 0
		}
		current = append(current, u)
		tokens += u.tokens
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

func totalTokens(units []summaryUnit) int {
	n := 0
	for _, u := range units {
		n += u.tokens
	}
	return n
}
