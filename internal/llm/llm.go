// Package llm defines the generation backend contract and its interchangeable
// implementations. The responder depends only on the Completer interface;
// backends are selected by configuration at startup.
package llm

import "context"

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one turn of conversation history supplied by the client.
type Turn struct {
	Role    Role
	Content string
}

// Completer generates a text completion for a prompt, optionally conditioned
// on prior conversation turns. Implementations classify their failures into
// the package's typed errors.
type Completer interface {
	Complete(ctx context.Context, prompt string, history []Turn) (string, error)
	Name() string
}
