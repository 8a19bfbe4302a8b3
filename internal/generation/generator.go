// Package generation provides chat-completion providers and the prompts sent to them.
package generation

import "context"

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat message sent to a generator.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Generator turns a chat transcript into a completion. Implementations wrap
// provider failures with models.ErrGenerationProvider.
type Generator interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}
