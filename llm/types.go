package llm

import "context"

// Caller performs one agent invocation.
type Caller interface {
	// Call sends the request and returns the agent's text response.
	// It may block for an arbitrary time and must honor ctx cancellation.
	Call(ctx context.Context, req AgentRequest) (string, error)
}

// CallerFunc adapts a function to the Caller interface.
type CallerFunc func(ctx context.Context, req AgentRequest) (string, error)

// Call implements Caller.
func (f CallerFunc) Call(ctx context.Context, req AgentRequest) (string, error) {
	return f(ctx, req)
}

// AgentRequest is what an agent operation sends to a Caller.
type AgentRequest struct {
	// Model is the model identifier from the agent signature.
	Model string

	// Prompt is the final rendered prompt.
	Prompt string

	// Role, Task and Schema are the source fields the prompt was built from.
	Role   string
	Task   string
	Schema string

	// Input is the resolved input value (string, number, bool or []any).
	Input any

	// Options carries generation tuning.
	Options GenerationOptions
}

// GenerationOptions tunes generation.
type GenerationOptions struct {
	// Temperature is nil when unset.
	Temperature *float64

	// MaxTokens is zero when unset.
	MaxTokens int
}
