// Package session owns conversation state and its on-disk layout: a chat
// list index plus one directory per chat holding the serialized messages
// and the chat's vector collection artifacts.
package session

import (
	"strings"
	"sync"

	"github.com/cloudwego/eino/schema"
)

const (
	// defaultMaxMessages is the sliding window over conversation history.
	defaultMaxMessages = 40
	// defaultMaxToolResponse caps a stored tool response's length.
	defaultMaxToolResponse = 2000
)

// ConversationState is the ordered message history of one chat. Append-only
// within a turn; safe for concurrent readers and one writer.
type ConversationState struct {
	mu              sync.RWMutex
	msgs            []*schema.Message
	maxMessages     int
	maxToolResponse int
}

func NewConversationState() *ConversationState {
	return &ConversationState{
		maxMessages:     defaultMaxMessages,
		maxToolResponse: defaultMaxToolResponse,
	}
}

// Append adds one message, compacting oversized tool responses and
// trimming the window to the most recent messages.
func (c *ConversationState) Append(msg *schema.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if msg.Role == schema.Tool {
		msg = c.compactToolResponse(msg)
	}
	c.msgs = append(c.msgs, msg)

	if len(c.msgs) > c.maxMessages {
		c.msgs = c.msgs[len(c.msgs)-c.maxMessages:]
	}
}

// Messages returns a copy of the current history.
func (c *ConversationState) Messages() []*schema.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*schema.Message, len(c.msgs))
	copy(out, c.msgs)
	return out
}

// Len returns the number of stored messages.
func (c *ConversationState) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.msgs)
}

// Clear drops the history.
func (c *ConversationState) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = nil
}

// replace swaps the full history in, used when loading a persisted chat.
func (c *ConversationState) replace(msgs []*schema.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = msgs
}

// compactToolResponse truncates a long tool response at a sentence or
// line boundary so history stays within the model's useful context.
func (c *ConversationState) compactToolResponse(msg *schema.Message) *schema.Message {
	if len(msg.Content) <= c.maxToolResponse {
		return msg
	}

	truncated := msg.Content[:c.maxToolResponse]
	cutoff := c.maxToolResponse
	for _, bp := range []string{".\n", ". ", "\n\n", "\n"} {
		if idx := strings.LastIndex(truncated, bp); idx > c.maxToolResponse/2 {
			cutoff = idx + len(bp)
			break
		}
	}

	out := *msg
	out.Content = msg.Content[:cutoff] + "\n\n[truncated]"
	return &out
}
