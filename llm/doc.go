// Package llm defines the agent call boundary used by the AQL interpreter.
//
// The interpreter never performs inference itself. Each agent operation is
// turned into an AgentRequest and handed to a Caller:
//
//	caller := llm.NewAnthropic()  // Uses ANTHROPIC_API_KEY env var
//	interp := dsl.NewInterpreter(dsl.WithCaller(caller))
//
// Placeholder is the reference Caller. It answers deterministically without
// any network access and is the default when no Caller is configured.
//
// # Implementing Custom Callers
//
// Any type with a Call method satisfies Caller, and CallerFunc adapts a
// plain function:
//
//	caller := llm.CallerFunc(func(ctx context.Context, req llm.AgentRequest) (string, error) {
//	    return myBackend.Complete(ctx, req.Model, req.Prompt)
//	})
package llm
