package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrokerFlow(t *testing.T) {
	broker := NewBroker[string]()
	defer broker.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := broker.Subscribe(ctx)

	received := make(chan string, 1)
	go func() {
		for event := range events {
			if event.Type == StageEvent {
				received <- event.Payload
			}
		}
	}()

	const testMsg = "loading document"
	broker.Publish(StageEvent, testMsg)

	select {
	case msg := <-received:
		assert.Equal(t, testMsg, msg)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestAutoUnsubscribe(t *testing.T) {
	broker := NewBroker[int]()
	defer broker.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())

	_ = broker.Subscribe(ctx)
	require.Equal(t, 1, broker.GetSubscriberCount())

	cancel()

	// Give the cleanup goroutine a moment to run.
	assert.Eventually(t, func() bool {
		return broker.GetSubscriberCount() == 0
	}, time.Second, 10*time.Millisecond)
}

func TestNonBlockingPublish(t *testing.T) {
	broker := NewBroker[int]()
	defer broker.Shutdown()

	// A subscriber that never drains; publishing past its buffer must not
	// block.
	_ = broker.Subscribe(context.Background())

	for i := 0; i < bufferSize*2; i++ {
		broker.Publish(StageEvent, i)
	}
}

func TestBrokerShutdown(t *testing.T) {
	broker := NewBroker[string]()

	events := broker.Subscribe(context.Background())
	broker.Shutdown()

	select {
	case _, ok := <-events:
		assert.False(t, ok, "subscriber channel should be closed after shutdown")
	case <-time.After(time.Second):
		t.Fatal("subscriber channel not closed after shutdown")
	}
}
