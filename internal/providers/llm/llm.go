package llm

import "context"

const (
	RoleSystem = "system"
	RoleUser   = "user"
	RoleModel  = "model"
)

// Turn is one role-tagged unit of conversational context.
type Turn struct {
	Role string
	Text string
}

// Provider turns an ordered list of turns into a single text completion.
// No streaming: one call, one result.
type Provider interface {
	Complete(ctx context.Context, turns []Turn) (string, error)
	Close() error
}
