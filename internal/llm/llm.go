// Package llm defines the provider interface and implementations for
// language-model interaction. The workflow never relies on structured output
// guarantees from a provider; replies are plain text which callers parse
// defensively.
package llm

import "context"

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single role-tagged entry in a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// System builds a system message.
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }

// User builds a user message.
func User(content string) Message { return Message{Role: RoleUser, Content: content} }

// Assistant builds an assistant message.
func Assistant(content string) Message { return Message{Role: RoleAssistant, Content: content} }

// Settings configures a completion request.
type Settings struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// Provider returns a single textual reply for an ordered conversation.
type Provider interface {
	Complete(ctx context.Context, messages []Message, settings Settings) (string, error)
	Name() string
}
