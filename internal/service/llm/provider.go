package llm

import (
	"context"
	"errors"
)

// ErrProviderUnavailable marks a provider skipped for lack of a credential or
// because its circuit is open.
var ErrProviderUnavailable = errors.New("provider unavailable")

// Request is one system/user message pair sent to a chat model.
type Request struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
}

// Provider is one chat-completion backend of the gateway chain.
type Provider interface {
	Name() string
	// Available reports whether the provider may be called right now.
	Available() bool
	// Complete returns the raw message content of the first choice.
	Complete(ctx context.Context, req Request) (string, error)
}
