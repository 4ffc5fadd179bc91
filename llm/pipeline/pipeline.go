// Package pipeline wires router, loader, cache, summarizer and vector
// store into the turn-level state machine behind RunTurn.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"intellitube/llm"
	"intellitube/llm/loader"
	"intellitube/llm/router"
	"intellitube/llm/session"
	"intellitube/llm/vector"
	"intellitube/pubsub"
)

const answerPrompt = `You are a helpful assistant that answers questions
about content the user has shared (documents, web pages, video
transcripts). Ground your answer in the provided context. When the context
does not cover the question, say so instead of guessing. Answer in the
user's language.`

// Router classifies a user message into instruction and source reference.
type Router interface {
	Classify(ctx context.Context, message string) (router.Result, error)
}

// ContentLoader fetches and parses one source reference.
type ContentLoader interface {
	Load(ctx context.Context, ref llm.SourceReference) (*llm.LoadedContent, error)
}

// Summarizer reduces documents into one bounded summary.
type Summarizer interface {
	Summarize(ctx context.Context, documents []string) (string, error)
}

// ChatModel is the slice of an eino chat model the answerer needs.
type ChatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// Config tunes retrieval and splitting.
type Config struct {
	TopK           int
	ScoreThreshold float32
	Split          vector.SplitConfig
}

func DefaultConfig() Config {
	return Config{
		TopK:           5,
		ScoreThreshold: 0.35,
		Split:          vector.DefaultSplitConfig(),
	}
}

// Pipeline coordinates one full turn: route, load, summarize, index,
// retrieve, answer.
type Pipeline struct {
	router     Router
	loader     ContentLoader
	summarizer Summarizer
	store      vector.Store
	cache      *ContentCache
	model      ChatModel
	events     pubsub.Publisher[string]
	cfg        Config
	log        *slog.Logger
}

// New wires a Pipeline. events may be nil when no front end is listening.
func New(rt Router, ld ContentLoader, sm Summarizer, store vector.Store, chatModel ChatModel, events pubsub.Publisher[string], cfg Config) (*Pipeline, error) {
	switch {
	case rt == nil:
		return nil, fmt.Errorf("router is required")
	case ld == nil:
		return nil, fmt.Errorf("loader is required")
	case store == nil:
		return nil, fmt.Errorf("vector store is required")
	case chatModel == nil:
		return nil, fmt.Errorf("chat model is required")
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultConfig().TopK
	}
	cfg.Split = cfg.Split.Normalize()

	return &Pipeline{
		router:     rt,
		loader:     ld,
		summarizer: sm,
		store:      store,
		cache:      NewContentCache(),
		model:      chatModel,
		events:     events,
		cfg:        cfg,
		log:        slog.With("component", "pipeline"),
	}, nil
}

// node is one state of the turn-level machine.
type node int

const (
	nodeRoute node = iota
	nodeLoad
	nodeSummarize
	nodeIndex
	nodeRetrieve
	nodeDeliverError
	nodeAnswer
	nodeEnd
)

func (n node) String() string {
	switch n {
	case nodeRoute:
		return "route"
	case nodeLoad:
		return "load"
	case nodeSummarize:
		return "summarize"
	case nodeIndex:
		return "index"
	case nodeRetrieve:
		return "retrieve"
	case nodeDeliverError:
		return "deliver_error"
	case nodeAnswer:
		return "answer"
	case nodeEnd:
		return "end"
	}
	return "unknown"
}

// nodeOutcome is a node's tagged result: continue to next, or fail the
// whole turn.
type nodeOutcome struct {
	next node
	err  error
}

func goTo(n node) nodeOutcome { return nodeOutcome{next: n} }

func failTurn(err error) nodeOutcome { return nodeOutcome{next: nodeEnd, err: err} }

// turn is the mutable state threaded through one run.
type turn struct {
	state       *session.ConversationState
	userMessage string

	instruction string
	ref         *llm.SourceReference
	sourceKey   string
	content     *llm.LoadedContent
	retrieved   []llm.SearchResult
	loadReason  string

	outcome Outcome
}

// RunTurn drives one user message through the pipeline and returns its
// outcome. The user message and the resulting assistant message are
// appended to state. RunTurn never panics past a node boundary; external
// failures surface as outcome variants or as the returned error.
func (p *Pipeline) RunTurn(ctx context.Context, state *session.ConversationState, userMessage string) (Outcome, error) {
	t := &turn{
		state:       state,
		userMessage: userMessage,
		instruction: userMessage,
	}
	state.Append(schema.UserMessage(userMessage))

	cur := nodeRoute
	for cur != nodeEnd {
		p.publishStage(cur)
		out := p.step(ctx, cur, t)
		if out.err != nil {
			return Outcome{}, out.err
		}
		cur = out.next
	}
	p.publishFinished()
	return t.outcome, nil
}

// step dispatches one node. The switch is exhaustive over every state the
// machine can be in.
func (p *Pipeline) step(ctx context.Context, cur node, t *turn) nodeOutcome {
	switch cur {
	case nodeRoute:
		return p.route(ctx, t)
	case nodeLoad:
		return p.load(ctx, t)
	case nodeSummarize:
		return p.summarize(ctx, t)
	case nodeIndex:
		return p.index(ctx, t)
	case nodeRetrieve:
		return p.retrieve(ctx, t)
	case nodeDeliverError:
		return p.deliverError(t)
	case nodeAnswer:
		return p.answer(ctx, t)
	}
	return failTurn(fmt.Errorf("pipeline reached unknown node %d", cur))
}

func (p *Pipeline) route(ctx context.Context, t *turn) nodeOutcome {
	res, err := p.router.Classify(ctx, t.userMessage)
	if err != nil {
		p.log.Warn("routing failed", "error", err)
		t.outcome = routingAmbiguous(t.userMessage)
		return goTo(nodeEnd)
	}

	t.instruction = res.Instruction
	if res.Ref == nil {
		return goTo(nodeRetrieve)
	}
	t.ref = res.Ref
	t.sourceKey = llm.CanonicalKey(*res.Ref)
	return goTo(nodeLoad)
}

func (p *Pipeline) load(ctx context.Context, t *turn) nodeOutcome {
	// A cache hit means the source was already summarized and indexed in
	// a prior turn; go straight to retrieval.
	if cached := p.cache.Get(t.sourceKey); cached != nil {
		t.content = cached
		p.log.Info("content cache hit", "key", t.sourceKey)
		return goTo(nodeRetrieve)
	}

	content, err := p.cache.LoadOnce(t.sourceKey, func() (*llm.LoadedContent, error) {
		c, err := p.loader.Load(ctx, *t.ref)
		if err != nil {
			return nil, err
		}
		c.SourceKey = t.sourceKey
		return c, nil
	})
	if err != nil {
		if le, ok := loader.AsError(err); ok {
			t.loadReason = le.Reason
		} else {
			t.loadReason = "loading the content failed"
		}
		return goTo(nodeDeliverError)
	}

	t.content = content
	return goTo(nodeSummarize)
}

// summarize is best-effort: a failed summarization degrades the answer
// context but never blocks indexing or retrieval.
func (p *Pipeline) summarize(ctx context.Context, t *turn) nodeOutcome {
	if p.summarizer == nil {
		return goTo(nodeIndex)
	}

	docs := make([]string, 0, len(t.content.Chunks))
	for _, chunk := range t.content.Chunks {
		docs = append(docs, chunk.Text)
	}

	summary, err := p.summarizer.Summarize(ctx, docs)
	if err != nil {
		p.log.Warn("summarization failed, continuing without summary",
			"key", t.sourceKey, "error", err)
		return goTo(nodeIndex)
	}

	t.content.Summary = summary
	p.cache.AttachSummary(t.sourceKey, summary)
	return goTo(nodeIndex)
}

// index writes the loaded chunks to the vector store. skipIfExists keeps
// ingestion idempotent across turns and sessions; a write failure is
// recoverable and degrades to summary-only answering.
func (p *Pipeline) index(ctx context.Context, t *turn) nodeOutcome {
	if err := p.store.EnsureCollection(ctx); err != nil {
		p.log.Warn("ensure collection failed", "error", err)
		return goTo(nodeRetrieve)
	}
	if err := p.store.AddSource(ctx, t.sourceKey, t.content.Chunks, p.cfg.Split, true); err != nil {
		p.log.Warn("indexing failed", "key", t.sourceKey, "error", err)
	}
	return goTo(nodeRetrieve)
}

// retrieve queries the vector store for the instruction. All candidates
// below threshold, or a store failure, mean answering with empty context,
// never failing the turn.
func (p *Pipeline) retrieve(ctx context.Context, t *turn) nodeOutcome {
	results, err := p.store.Query(ctx, t.instruction, p.cfg.TopK, p.cfg.ScoreThreshold)
	if err != nil {
		p.log.Warn("retrieval failed, answering without context", "error", err)
		return goTo(nodeAnswer)
	}
	t.retrieved = results
	return goTo(nodeAnswer)
}

// deliverError surfaces a load failure into the conversation so the
// answer can explain it.
func (p *Pipeline) deliverError(t *turn) nodeOutcome {
	p.log.Info("delivering load error", "key", t.sourceKey, "reason", t.loadReason)
	t.state.Append(&schema.Message{
		Role:    schema.Tool,
		Content: fmt.Sprintf("Loading %q failed: %s", t.ref.Raw, t.loadReason),
	})
	return goTo(nodeAnswer)
}

func (p *Pipeline) answer(ctx context.Context, t *turn) nodeOutcome {
	msgs := p.composePrompt(t)

	reply, err := p.model.Generate(ctx, msgs)
	if err != nil {
		if t.loadReason != "" {
			// Both the load and the explanatory answer failed.
			t.outcome = loadFailed(t.loadReason)
			return goTo(nodeEnd)
		}
		return failTurn(fmt.Errorf("answer generation: %w", err))
	}

	answer := strings.TrimSpace(reply.Content)
	t.state.Append(schema.AssistantMessage(answer, nil))
	p.publishMessage(answer)
	t.outcome = answered(answer)
	return goTo(nodeEnd)
}

// composePrompt builds the answer request: system prompt, context block
// (retrieved chunks, summary, load failure note), then the conversation
// history which already ends with the user message.
func (p *Pipeline) composePrompt(t *turn) []*schema.Message {
	var b strings.Builder
	b.WriteString(answerPrompt)

	if t.loadReason != "" && t.ref != nil {
		fmt.Fprintf(&b, "\n\nNote: the user shared %q but it could not be loaded: %s. Apologize briefly and explain the problem.",
			t.ref.Raw, t.loadReason)
	}
	if t.content != nil && t.content.Summary != "" {
		fmt.Fprintf(&b, "\n\nSummary of the shared content:\n%s", t.content.Summary)
	}
	if len(t.retrieved) > 0 {
		b.WriteString("\n\nRelevant excerpts:")
		for i, r := range t.retrieved {
			fmt.Fprintf(&b, "\n[%d] %s", i+1, r.Document.Content)
		}
	}

	msgs := []*schema.Message{schema.SystemMessage(b.String())}
	return append(msgs, t.state.Messages()...)
}

func (p *Pipeline) publishStage(n node) {
	if p.events != nil {
		p.events.Publish(pubsub.StageEvent, n.String())
	}
}

func (p *Pipeline) publishMessage(text string) {
	if p.events != nil {
		p.events.Publish(pubsub.MessageEvent, text)
	}
}

func (p *Pipeline) publishFinished() {
	if p.events != nil {
		p.events.Publish(pubsub.FinishedEvent, "")
	}
}
