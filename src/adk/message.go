package adk

import "context"

// Chat roles understood by every provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of a model conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LLM is the minimal surface the agent loop needs from a language model: it
// receives the whole message list and returns the assistant's reply text.
type LLM interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

// LLMFunc adapts a function to the LLM interface.
type LLMFunc func(ctx context.Context, messages []Message) (string, error)

// Chat calls f.
func (f LLMFunc) Chat(ctx context.Context, messages []Message) (string, error) {
	return f(ctx, messages)
}
