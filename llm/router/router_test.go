package router

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intellitube/llm"
)

type staticModel struct {
	reply string
	err   error
}

func (m *staticModel) Generate(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	if m.err != nil {
		return nil, m.err
	}
	return schema.AssistantMessage(m.reply, nil), nil
}

func classify(t *testing.T, reply, message string) Result {
	t.Helper()
	r, err := New(&staticModel{reply: reply})
	require.NoError(t, err)
	res, err := r.Classify(context.Background(), message)
	require.NoError(t, err)
	return res
}

func TestClassifyWebsite(t *testing.T) {
	res := classify(t,
		`{"instruction":"Summarize this","analysis":"wants a summary","url":"https://x.com/y","urlof":"website"}`,
		"Summarize this https://x.com/y")

	assert.Equal(t, "Summarize this", res.Instruction)
	assert.NotContains(t, res.Instruction, "https://x.com/y")
	require.NotNil(t, res.Ref)
	assert.Equal(t, llm.KindWebsite, res.Ref.Kind)
	assert.Equal(t, "https://x.com/y", res.Ref.Raw)
}

func TestClassifyNoSource(t *testing.T) {
	res := classify(t,
		`{"instruction":"what did we talk about?","analysis":"recall","url":null,"urlof":null}`,
		"what did we talk about?")

	assert.Nil(t, res.Ref)
	assert.Equal(t, "what did we talk about?", res.Instruction)
}

func TestClassifyNullLiteralString(t *testing.T) {
	// Some models emit the string "null" instead of JSON null.
	res := classify(t,
		`{"instruction":"hello","analysis":"greeting","url":"null","urlof":"null"}`,
		"hello")

	assert.Nil(t, res.Ref)
}

func TestClassifyUnknownKindDefaultsToWebsite(t *testing.T) {
	res := classify(t,
		`{"instruction":"read it","analysis":"","url":"https://example.org/a","urlof":"blog_post"}`,
		"read it https://example.org/a")

	require.NotNil(t, res.Ref)
	assert.Equal(t, llm.KindWebsite, res.Ref.Kind)
}

func TestClassifyKindWithoutURL(t *testing.T) {
	res := classify(t,
		`{"instruction":"hi","analysis":"","url":null,"urlof":"website"}`,
		"hi")

	assert.Nil(t, res.Ref)
}

func TestClassifyCodeFencedReply(t *testing.T) {
	res := classify(t,
		"```json\n{\"instruction\":\"explain\",\"analysis\":\"\",\"url\":\"./notes.md\",\"urlof\":\"document\"}\n```",
		"explain ./notes.md")

	require.NotNil(t, res.Ref)
	assert.Equal(t, llm.KindDocument, res.Ref.Kind)
	assert.Equal(t, "./notes.md", res.Ref.Raw)
}

func TestClassifyEmptyInstructionFallsBack(t *testing.T) {
	res := classify(t,
		`{"instruction":"","analysis":"","url":null,"urlof":null}`,
		"  tell me a joke  ")

	assert.Equal(t, "tell me a joke", res.Instruction)
}

func TestClassifyMalformedResponse(t *testing.T) {
	r, err := New(&staticModel{reply: "sure! here is the extraction you asked for"})
	require.NoError(t, err)

	_, err = r.Classify(context.Background(), "hello")
	var rerr *RoutingError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "hello", rerr.Raw)
}

func TestClassifyModelError(t *testing.T) {
	sentinel := errors.New("quota exceeded")
	r, err := New(&staticModel{err: sentinel})
	require.NoError(t, err)

	_, err = r.Classify(context.Background(), "hello")
	var rerr *RoutingError
	require.ErrorAs(t, err, &rerr)
	assert.ErrorIs(t, err, sentinel)
}
