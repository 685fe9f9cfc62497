package llm

import "context"

// Role tags one turn of the history sent to the generative backend.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Turn is one role-tagged utterance of the conversation history.
type Turn struct {
	Role Role
	Text string
}

// Generator is the generative backend: role-tagged history in, reply text
// out. The final turn of the history is the prompt being answered.
// Implementations may fail or time out; callers decide how to recover.
type Generator interface {
	Generate(ctx context.Context, history []Turn) (string, error)
}
