package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wordCounter counts whitespace-separated words, which keeps test budgets
// deterministic without a real tokenizer.
type wordCounter struct{}

func (wordCounter) Count(text string) int {
	return len(strings.Fields(text))
}

// fakeModel returns a canned reply per call, or fails for inputs whose
// user message contains failOn.
type fakeModel struct {
	reply  func(content string) string
	failOn string
	calls  atomic.Int64
}

func (f *fakeModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.calls.Add(1)
	content := input[len(input)-1].Content
	if f.failOn != "" && strings.Contains(content, f.failOn) {
		return nil, errors.New("model unavailable")
	}
	return schema.AssistantMessage(f.reply(content), nil), nil
}

// echoWords replies with the first n words of the input, simulating a
// model that compresses its input.
func echoWords(n int) func(string) string {
	return func(content string) string {
		words := strings.Fields(content)
		if len(words) > n {
			words = words[:n]
		}
		return strings.Join(words, " ")
	}
}

func TestNewValidation(t *testing.T) {
	m := &fakeModel{reply: echoWords(1)}

	_, err := New(nil, wordCounter{}, Config{MaxTokens: 10})
	assert.Error(t, err)

	_, err = New(m, nil, Config{MaxTokens: 10})
	assert.Error(t, err)

	_, err = New(m, wordCounter{}, Config{MaxTokens: 0})
	assert.Error(t, err)

	s, err := New(m, wordCounter{}, Config{MaxTokens: 10})
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().MaxCollapseRounds, s.cfg.MaxCollapseRounds)
	assert.Equal(t, DefaultConfig().MaxParallel, s.cfg.MaxParallel)
}

func TestSummarizeEmptyInput(t *testing.T) {
	m := &fakeModel{reply: echoWords(5)}
	s, err := New(m, wordCounter{}, Config{MaxTokens: 10})
	require.NoError(t, err)

	out, err := s.Summarize(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Zero(t, m.calls.Load(), "no model calls for empty input")
}

func TestSummarizeFitsWithoutCollapse(t *testing.T) {
	m := &fakeModel{reply: echoWords(2)}
	s, err := New(m, wordCounter{}, Config{MaxTokens: 100})
	require.NoError(t, err)

	out, err := s.Summarize(context.Background(), []string{
		"alpha beta gamma delta",
		"epsilon zeta eta theta",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, out)
	// One map call per document plus exactly one final reduce.
	assert.EqualValues(t, 3, m.calls.Load())
}

func TestSummarizeCollapsesUntilBudget(t *testing.T) {
	// Replies are 2 words each against a budget of 6, so the 8 mapped
	// summaries (16 words) pack into groups of three and converge after
	// one collapse round.
	m := &fakeModel{reply: echoWords(2)}
	s, err := New(m, wordCounter{}, Config{MaxTokens: 6, MaxCollapseRounds: 8})
	require.NoError(t, err)

	docs := make([]string, 8)
	for i := range docs {
		docs[i] = fmt.Sprintf("document %d body words one two three four", i)
	}

	out, err := s.Summarize(context.Background(), docs)
	require.NoError(t, err)
	assert.NotEmpty(t, out)
	assert.Greater(t, m.calls.Load(), int64(9), "collapse rounds ran")
}

func TestSummarizePartialMapFailure(t *testing.T) {
	m := &fakeModel{reply: echoWords(2), failOn: "poison"}
	s, err := New(m, wordCounter{}, Config{MaxTokens: 100})
	require.NoError(t, err)

	out, err := s.Summarize(context.Background(), []string{
		"healthy content one",
		"poison content",
		"healthy content two",
	})
	require.NoError(t, err, "failed map tasks are excluded, not fatal")
	assert.NotEmpty(t, out)
}

func TestSummarizeAllMapTasksFail(t *testing.T) {
	m := &fakeModel{reply: echoWords(2), failOn: "poison"}
	s, err := New(m, wordCounter{}, Config{MaxTokens: 100})
	require.NoError(t, err)

	_, err = s.Summarize(context.Background(), []string{"poison a", "poison b"})
	assert.ErrorIs(t, err, ErrTaskFailed)
}

func TestSummarizeBudgetUnreachable(t *testing.T) {
	// Reduce never shrinks below the budget: every reply is 10 words
	// against a budget of 4, so the round bound must trip.
	m := &fakeModel{reply: func(string) string {
		return "w1 w2 w3 w4 w5 w6 w7 w8 w9 w10"
	}}
	s, err := New(m, wordCounter{}, Config{MaxTokens: 4, MaxCollapseRounds: 3})
	require.NoError(t, err)

	_, err = s.Summarize(context.Background(), []string{"doc one", "doc two"})
	assert.ErrorIs(t, err, ErrBudgetUnreachable)
}

func TestPackGroups(t *testing.T) {
	units := []summaryUnit{
		{text: "a", tokens: 3},
		{text: "b", tokens: 3},
		{text: "c", tokens: 5},
		{text: "d", tokens: 9},
		{text: "e", tokens: 1},
	}

	groups := packGroups(units, 8)
	require.Len(t, groups, 4)
	assert.Len(t, groups[0], 2) // a+b = 6
	assert.Len(t, groups[1], 1) // c alone, d would overflow
	assert.Len(t, groups[2], 1) // d exceeds the budget by itself
	assert.Len(t, groups[3], 1)

	// Order is preserved across groups.
	var flat []string
	for _, g := range groups {
		for _, u := range g {
			flat = append(flat, u.text)
		}
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, flat)
}

func TestPackGroupsOversizedUnit(t *testing.T) {
	units := []summaryUnit{{text: "big", tokens: 50}, {text: "small", tokens: 1}}
	groups := packGroups(units, 10)
	require.Len(t, groups, 2)
	assert.Equal(t, "big", groups[0][0].text)
	assert.Equal(t, "small", groups[1][0].text)
}
