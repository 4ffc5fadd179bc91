package pipeline

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intellitube/llm"
)

func TestContentCacheGetPut(t *testing.T) {
	c := NewContentCache()
	assert.Nil(t, c.Get("k"))

	content := &llm.LoadedContent{SourceKey: "k", Title: "T"}
	c.Put("k", content)
	assert.Same(t, content, c.Get("k"))
	assert.Equal(t, 1, c.Len())
}

func TestContentCacheAttachSummary(t *testing.T) {
	c := NewContentCache()
	c.Put("k", &llm.LoadedContent{SourceKey: "k"})

	c.AttachSummary("k", "a summary")
	assert.Equal(t, "a summary", c.Get("k").Summary)

	// Unknown key is a no-op.
	c.AttachSummary("missing", "x")
	assert.Nil(t, c.Get("missing"))
}

func TestLoadOnceSingleFlight(t *testing.T) {
	c := NewContentCache()
	var loads atomic.Int64
	gate := make(chan struct{})

	load := func() (*llm.LoadedContent, error) {
		loads.Add(1)
		<-gate
		return &llm.LoadedContent{SourceKey: "k"}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			content, err := c.LoadOnce("k", load)
			assert.NoError(t, err)
			assert.NotNil(t, content)
		}()
	}
	close(gate)
	wg.Wait()

	assert.EqualValues(t, 1, loads.Load(), "concurrent callers share one load")
}

func TestLoadOnceErrorIsNotCached(t *testing.T) {
	c := NewContentCache()
	calls := 0

	_, err := c.LoadOnce("k", func() (*llm.LoadedContent, error) {
		calls++
		return nil, errors.New("fetch failed")
	})
	require.Error(t, err)
	assert.Nil(t, c.Get("k"))

	content, err := c.LoadOnce("k", func() (*llm.LoadedContent, error) {
		calls++
		return &llm.LoadedContent{SourceKey: "k"}, nil
	})
	require.NoError(t, err)
	assert.NotNil(t, content)
	assert.Equal(t, 2, calls, "failed load retried on next request")
}

func TestLoadOnceCachedSkipsLoad(t *testing.T) {
	c := NewContentCache()
	c.Put("k", &llm.LoadedContent{SourceKey: "k"})

	content, err := c.LoadOnce("k", func() (*llm.LoadedContent, error) {
		t.Fatal("load must not run on cache hit")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "k", content.SourceKey)
}
