package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intellitube/llm"
	"intellitube/llm/loader"
	"intellitube/llm/router"
	"intellitube/llm/session"
	"intellitube/llm/vector"
)

type fakeRouter struct {
	result router.Result
	err    error
}

func (r *fakeRouter) Classify(_ context.Context, _ string) (router.Result, error) {
	return r.result, r.err
}

type fakeLoader struct {
	mu      sync.Mutex
	calls   int
	content *llm.LoadedContent
	err     error
}

func (l *fakeLoader) Load(_ context.Context, ref llm.SourceReference) (*llm.LoadedContent, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	c := *l.content
	c.Ref = ref
	return &c, nil
}

type fakeSummarizer struct {
	summary string
	err     error
}

func (s *fakeSummarizer) Summarize(_ context.Context, _ []string) (string, error) {
	return s.summary, s.err
}

// memStore is an in-memory vector.Store honoring skipIfExists.
type memStore struct {
	mu       sync.Mutex
	sources  map[string][]llm.Chunk
	addCalls int
	results  []llm.SearchResult
	queryErr error
}

func newMemStore() *memStore {
	return &memStore{sources: map[string][]llm.Chunk{}}
}

func (s *memStore) EnsureCollection(context.Context) error { return nil }

func (s *memStore) AddSource(_ context.Context, sourceKey string, chunks []llm.Chunk, _ vector.SplitConfig, skipIfExists bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addCalls++
	if _, ok := s.sources[sourceKey]; ok && skipIfExists {
		return nil
	}
	s.sources[sourceKey] = chunks
	return nil
}

func (s *memStore) HasSource(_ context.Context, sourceKey string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sources[sourceKey]
	return ok, nil
}

func (s *memStore) Query(context.Context, string, int, float32) ([]llm.SearchResult, error) {
	return s.results, s.queryErr
}

func (s *memStore) Close() error { return nil }

type answerModel struct {
	reply string
	err   error
}

func (m *answerModel) Generate(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	if m.err != nil {
		return nil, m.err
	}
	return schema.AssistantMessage(m.reply, nil), nil
}

func sourceResult(raw string, kind llm.SourceKind) router.Result {
	return router.Result{
		Instruction: "what is this about?",
		Ref:         &llm.SourceReference{Raw: raw, Kind: kind},
	}
}

func testContent() *llm.LoadedContent {
	return &llm.LoadedContent{
		Kind:   llm.KindWebsite,
		Title:  "Release Notes",
		Chunks: []llm.Chunk{{Text: "v2.0 makes indexing faster."}},
	}
}

func newPipeline(t *testing.T, rt Router, ld ContentLoader, sm Summarizer, store vector.Store, m ChatModel) *Pipeline {
	t.Helper()
	p, err := New(rt, ld, sm, store, m, nil, DefaultConfig())
	require.NoError(t, err)
	return p
}

func TestRunTurnFullFlow(t *testing.T) {
	store := newMemStore()
	store.results = []llm.SearchResult{{Document: llm.Document{Content: "v2.0 makes indexing faster."}, Score: 0.9}}
	ld := &fakeLoader{content: testContent()}
	p := newPipeline(t,
		&fakeRouter{result: sourceResult("https://example.com/notes", llm.KindWebsite)},
		ld,
		&fakeSummarizer{summary: "release notes for v2.0"},
		store,
		&answerModel{reply: "It is about the v2.0 release."},
	)

	state := session.NewConversationState()
	out, err := p.RunTurn(context.Background(), state, "what is this about? https://example.com/notes")
	require.NoError(t, err)

	assert.Equal(t, OutcomeAnswered, out.Kind)
	assert.Equal(t, "It is about the v2.0 release.", out.Answer)
	assert.Equal(t, 1, ld.calls)
	assert.Equal(t, 1, store.addCalls)

	// User message and assistant reply were appended.
	msgs := state.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, schema.User, msgs[0].Role)
	assert.Equal(t, schema.Assistant, msgs[1].Role)

	// The summary landed on the cached content.
	cached := p.cache.Get(llm.CanonicalKey(llm.SourceReference{Raw: "https://example.com/notes", Kind: llm.KindWebsite}))
	require.NotNil(t, cached)
	assert.Equal(t, "release notes for v2.0", cached.Summary)
}

func TestRunTurnNoSourceGoesStraightToRetrieve(t *testing.T) {
	ld := &fakeLoader{content: testContent()}
	store := newMemStore()
	p := newPipeline(t,
		&fakeRouter{result: router.Result{Instruction: "what did we discuss?"}},
		ld, nil, store,
		&answerModel{reply: "We discussed the release."},
	)

	out, err := p.RunTurn(context.Background(), session.NewConversationState(), "what did we discuss?")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAnswered, out.Kind)
	assert.Zero(t, ld.calls)
	assert.Zero(t, store.addCalls)
}

func TestRunTurnSecondTurnHitsCache(t *testing.T) {
	ld := &fakeLoader{content: testContent()}
	store := newMemStore()
	p := newPipeline(t,
		&fakeRouter{result: sourceResult("https://Example.com/notes/", llm.KindWebsite)},
		ld, &fakeSummarizer{summary: "s"}, store,
		&answerModel{reply: "ok"},
	)

	state := session.NewConversationState()
	_, err := p.RunTurn(context.Background(), state, "first")
	require.NoError(t, err)
	_, err = p.RunTurn(context.Background(), state, "second")
	require.NoError(t, err)

	assert.Equal(t, 1, ld.calls, "equivalent URLs load once")
	assert.Equal(t, 1, store.addCalls, "cache hit skips re-indexing")
}

func TestRunTurnLoadFailureStillAnswers(t *testing.T) {
	p := newPipeline(t,
		&fakeRouter{result: sourceResult("x", "podcast")},
		&fakeLoader{err: &loader.Error{Code: loader.UnsupportedKind, Reason: `cannot load content of kind "podcast"`}},
		nil, newMemStore(),
		&answerModel{reply: "Sorry, I cannot load that kind of content."},
	)

	state := session.NewConversationState()
	out, err := p.RunTurn(context.Background(), state, "summarize x")
	require.NoError(t, err)

	assert.Equal(t, OutcomeAnswered, out.Kind)
	assert.Contains(t, out.Answer, "Sorry")

	// The failure was surfaced into the conversation.
	var sawToolNote bool
	for _, msg := range state.Messages() {
		if msg.Role == schema.Tool {
			sawToolNote = true
			assert.Contains(t, msg.Content, "podcast")
		}
	}
	assert.True(t, sawToolNote)
}

func TestRunTurnLoadAndAnswerBothFail(t *testing.T) {
	p := newPipeline(t,
		&fakeRouter{result: sourceResult("https://down.example.com", llm.KindWebsite)},
		&fakeLoader{err: &loader.Error{Code: loader.FetchFailed, Reason: "could not reach the page"}},
		nil, newMemStore(),
		&answerModel{err: errors.New("model down")},
	)

	out, err := p.RunTurn(context.Background(), session.NewConversationState(), "read this")
	require.NoError(t, err)
	assert.Equal(t, OutcomeLoadFailed, out.Kind)
	assert.Equal(t, "could not reach the page", out.Reason)
}

func TestRunTurnRoutingFailure(t *testing.T) {
	p := newPipeline(t,
		&fakeRouter{err: &router.RoutingError{Raw: "???", Err: errors.New("malformed")}},
		&fakeLoader{content: testContent()}, nil, newMemStore(),
		&answerModel{reply: "unused"},
	)

	out, err := p.RunTurn(context.Background(), session.NewConversationState(), "???")
	require.NoError(t, err)
	assert.Equal(t, OutcomeRoutingAmbiguous, out.Kind)
	assert.Equal(t, "???", out.RawMessage)
}

func TestRunTurnSummarizerFailureIsRecoverable(t *testing.T) {
	store := newMemStore()
	p := newPipeline(t,
		&fakeRouter{result: sourceResult("https://example.com/a", llm.KindWebsite)},
		&fakeLoader{content: testContent()},
		&fakeSummarizer{err: errors.New("budget unreachable")},
		store,
		&answerModel{reply: "answered without summary"},
	)

	out, err := p.RunTurn(context.Background(), session.NewConversationState(), "read this https://example.com/a")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAnswered, out.Kind)
	assert.Equal(t, 1, store.addCalls, "indexing still happened")
}

func TestRunTurnRetrievalFailureDegradesToEmptyContext(t *testing.T) {
	store := newMemStore()
	store.queryErr = vector.ErrStoreUnavailable
	p := newPipeline(t,
		&fakeRouter{result: router.Result{Instruction: "hi"}},
		&fakeLoader{content: testContent()}, nil, store,
		&answerModel{reply: "hello"},
	)

	out, err := p.RunTurn(context.Background(), session.NewConversationState(), "hi")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAnswered, out.Kind)
}
