// Package dsl parses and executes AQL, a declarative language for wiring
// agent invocations into a dependency graph.
//
// # Language Overview
//
// An AQL document declares one query with optional typed parameters and a
// body of operations:
//
//	query Review($code: String!, $depth: Int = 3) {
//	  // Agents need an alias; their output is stored under it.
//	  summary: agent(model: "claude-sonnet-4-20250514", temperature: 0.2) {
//	    role: "You are a senior reviewer."
//	    task: "Summarize the change."
//	    input: $code
//	  }
//
//	  checks: parallel {
//	    security: agent(model: "m") { role: "r"; task: "Find security issues."; input: summary }
//	    style: agent(model: "m") { role: "r"; task: "Find style issues."; input: summary }
//	  }
//
//	  report: agent(model: "m") {
//	    role: "You write reports."
//	    task: `Combine the findings
//	into one report.`
//	    input: [security, style]
//	  }
//	}
//
// Field values are literals ("text", `multi-line text`, 12, 0.5, true),
// variables ($code), references to other operations by alias (summary)
// or lists of these. References become dependencies: within one block an
// operation always runs after the siblings it references.
//
// Groups are sequential { }, parallel { }, conditional(condition: x) { }
// and loop(iterations: n) { }. Conditions are not evaluated yet and always
// hold. Parallel groups run their children concurrently only when
// ExecutionConfig.Parallel is set.
//
// # Prompts
//
// Each agent's role, task, input and schema are assembled into tagged
// blocks (see package prompt). A prompt field replaces the assembled text;
// it must still contain ROLE and TASK blocks.
//
// # Using the Package
//
//	q, err := dsl.Parse(source)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	interp := dsl.NewInterpreter(dsl.WithCaller(llm.NewAnthropic()))
//	result, err := interp.Execute(ctx, q, map[string]any{"code": diff})
//	fmt.Println(result.Results["report"])
package dsl
