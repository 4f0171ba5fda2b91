// Package aql runs AQL queries: declarative graphs of agent invocations.
//
// AQL describes which agents to call, what each one is told and how their
// outputs feed each other. The engine parses the source, orders operations
// by their dependencies and hands each agent prompt to an llm.Caller.
//
// # Quick Start
//
//	engine := aql.New(aql.WithCaller(llm.NewAnthropic()))
//
//	result, err := engine.Run(ctx, `
//	query Summarize($text: String!) {
//	  summary: agent(model: "claude-sonnet-4-20250514") {
//	    role: "You are a concise editor."
//	    task: "Summarize the input in one sentence."
//	    input: $text
//	  }
//	}`, map[string]any{"text": article})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Results["summary"])
//
// # Execution Settings
//
// The engine holds defaults applied to every execution:
//
//	engine.SetTimeout(time.Minute)
//	engine.SetRetries(2)
//	engine.SetParallel(true) // run parallel groups concurrently
//	engine.SetCaching(true)  // reuse results of identical prompts
//
// # Run History
//
// WithStore records each execution and its operation events, which the
// aql command lists with "aql history".
//
// See package dsl for the language itself and package prompt for the
// tagged block format agents receive.
package aql
