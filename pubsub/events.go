package pubsub

import "context"

const (
	// StageEvent reports a pipeline stage transition.
	StageEvent EventType = "stage"
	// MessageEvent carries a new conversation message.
	MessageEvent EventType = "message"
	// FinishedEvent signals that a pipeline run has completed.
	FinishedEvent EventType = "finished"
)

type (
	// EventType identifies the kind of an event.
	EventType string

	// Event is one occurrence delivered to subscribers.
	Event[T any] struct {
		Type    EventType
		Payload T
	}

	// Publisher publishes events to all subscribers.
	Publisher[T any] interface {
		Publish(EventType, T)
	}

	// Subscriber returns a read-only event channel that closes when the
	// context is done.
	Subscriber[T any] interface {
		Subscribe(context.Context) <-chan Event[T]
	}
)
