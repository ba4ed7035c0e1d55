package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/toolgate/gateway-client/src/adk"
)

// Message is one entry in the chat history shown to the user.
type Message struct {
	ID        string           `json:"id" yaml:"id"`
	Role      string           `json:"role" yaml:"role"`
	Content   string           `json:"content" yaml:"content"`
	Timestamp time.Time        `json:"timestamp" yaml:"timestamp"`
	Outcome   adk.Outcome      `json:"outcome,omitempty" yaml:"outcome,omitempty"`
	Calls     []adk.CallRecord `json:"calls,omitempty" yaml:"calls,omitempty"`
}

// Conversation is an append-only message history. It is safe for
// concurrent use.
type Conversation struct {
	mu       sync.RWMutex
	messages []Message
	now      func() time.Time
}

// NewConversation returns an empty history.
func NewConversation() *Conversation {
	return &Conversation{now: time.Now}
}

// Append records msg, filling in the ID and timestamp when unset, and
// returns the stored copy.
func (c *Conversation) Append(msg Message) Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = c.now()
	}
	msg.Calls = append([]adk.CallRecord(nil), msg.Calls...)
	c.messages = append(c.messages, msg)
	return msg
}

// Messages returns a snapshot in insertion order.
func (c *Conversation) Messages() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of recorded messages.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// Clear drops the whole history.
func (c *Conversation) Clear() {
	c.mu.Lock()
	c.messages = nil
	c.mu.Unlock()
}
