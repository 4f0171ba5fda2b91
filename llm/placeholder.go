package llm

import (
	"context"
	"fmt"
)

// Placeholder is a deterministic Caller that performs no inference.
type Placeholder struct{}

// Call implements Caller.
func (Placeholder) Call(ctx context.Context, req AgentRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	model := req.Model
	if model == "" {
		model = "default"
	}
	return fmt.Sprintf("[%s] response to %d-character prompt", model, len(req.Prompt)), nil
}
