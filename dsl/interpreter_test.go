package dsl

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/everydev1618/aql/llm"
	"github.com/everydev1618/aql/prompt"
)

// recorder is a Caller that records every request it receives.
type recorder struct {
	mu    sync.Mutex
	reqs  []llm.AgentRequest
	reply func(req llm.AgentRequest) (string, error)
}

func (r *recorder) Call(ctx context.Context, req llm.AgentRequest) (string, error) {
	r.mu.Lock()
	r.reqs = append(r.reqs, req)
	r.mu.Unlock()
	if r.reply != nil {
		return r.reply(req)
	}
	return "out:" + req.Task, nil
}

func (r *recorder) tasks() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.reqs))
	for i, req := range r.reqs {
		out[i] = req.Task
	}
	return out
}

func mustParse(t *testing.T, src string) *Query {
	t.Helper()
	q, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return q
}

func noRetry() ExecutionConfig {
	cfg := DefaultExecutionConfig()
	cfg.Retries = 0
	return cfg
}

func TestDefaultExecutionConfig(t *testing.T) {
	cfg := DefaultExecutionConfig()
	if cfg.Timeout != 30*time.Second || cfg.Retries != 3 {
		t.Errorf("DefaultExecutionConfig() = %+v, want 30s timeout, 3 retries", cfg)
	}
	if cfg.Parallel || cfg.Caching || cfg.Debug {
		t.Errorf("DefaultExecutionConfig() = %+v, want flags off", cfg)
	}
}

func TestExecutePlaceholder(t *testing.T) {
	q := mustParse(t, `query Hello {
  greet: agent(model: "m") { role: "r"; task: "t" }
}`)

	result, err := NewInterpreter().Execute(context.Background(), q, nil)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Status != StatusCompleted || result.Query != "Hello" || result.RunID == "" {
		t.Errorf("result = %+v", result)
	}

	rendered := "<ROLE>\nr\n</ROLE>\n\n<TASK>\nt\n</TASK>"
	want := fmt.Sprintf("[m] response to %d-character prompt", len(rendered))
	if got := result.Results["greet"]; got != want {
		t.Errorf("Results[greet] = %v, want %q", got, want)
	}
	if result.Metadata.OperationsExecuted != 1 {
		t.Errorf("OperationsExecuted = %d, want 1", result.Metadata.OperationsExecuted)
	}
	if want := estimateTokens(rendered) + estimateTokens(want); result.Metadata.TotalTokens != want {
		t.Errorf("TotalTokens = %d, want %d", result.Metadata.TotalTokens, want)
	}
	if len(result.Metadata.Errors) != 0 {
		t.Errorf("Errors = %v, want none", result.Metadata.Errors)
	}
}

func TestExecutePromptAssembly(t *testing.T) {
	rec := &recorder{}
	q := mustParse(t, `query T { a: agent(model:"m"){ role:"R"; task:"X {{name}}" } }`)

	if _, err := NewInterpreter(WithCaller(rec)).Execute(context.Background(), q, nil); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	got := rec.reqs[0].Prompt
	want := "<ROLE>\nR\n</ROLE>\n\n<TASK>\nX {{name}}\n</TASK>"
	if got != want {
		t.Errorf("prompt = %q, want %q", got, want)
	}
	if strings.Contains(got, "<SCHEMA>") || strings.Contains(got, "<INPUT>") {
		t.Errorf("prompt = %q, want no SCHEMA or INPUT block", got)
	}
	if rec.reqs[0].Model != "m" {
		t.Errorf("Model = %q, want m", rec.reqs[0].Model)
	}
}

func TestExecuteReservedOrderWithSchema(t *testing.T) {
	rec := &recorder{}
	q := mustParse(t, `query T {
  a: agent(model: "m", temperature: 0.5, maxTokens: 10) {
    task: "T"
    schema: "S"
    input: "I"
    role: "R"
  }
}`)

	if _, err := NewInterpreter(WithCaller(rec)).Execute(context.Background(), q, nil); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	req := rec.reqs[0]
	want := "<ROLE>\nR\n</ROLE>\n\n<SCHEMA>\nS\n</SCHEMA>\n\n<TASK>\nT\n</TASK>\n\n<INPUT>\nI\n</INPUT>"
	if req.Prompt != want {
		t.Errorf("prompt = %q, want %q", req.Prompt, want)
	}
	if req.Options.Temperature == nil || *req.Options.Temperature != 0.5 || req.Options.MaxTokens != 10 {
		t.Errorf("Options = %+v, want temperature 0.5, max tokens 10", req.Options)
	}
}

func TestExecutePromptOverride(t *testing.T) {
	rec := &recorder{}
	q := mustParse(t, `query T {
  a: agent(model: "m") {
    prompt: "<TASK>do</TASK><NOTES>n</NOTES><ROLE>be</ROLE>"
    input: "data"
  }
}`)

	if _, err := NewInterpreter(WithCaller(rec)).Execute(context.Background(), q, nil); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	want := "<ROLE>\nbe\n</ROLE>\n\n<TASK>\ndo\n</TASK>\n\n<INPUT>\ndata\n</INPUT>\n\n<NOTES>\nn\n</NOTES>"
	if got := rec.reqs[0].Prompt; got != want {
		t.Errorf("prompt = %q, want %q", got, want)
	}
}

func TestExecuteMissingRole(t *testing.T) {
	q := mustParse(t, `query Q { a: agent(model: "m") { input: "data" } }`)

	result, err := NewInterpreter().Execute(context.Background(), q, nil)
	if err == nil {
		t.Fatal("Execute() should fail without a ROLE block")
	}
	if !strings.Contains(err.Error(), "Missing required <ROLE> block in prompt") {
		t.Errorf("Execute() error = %q", err)
	}
	if !errors.Is(err, prompt.ErrMissingBlock) {
		t.Errorf("Execute() error = %v, want ErrMissingBlock", err)
	}

	if result == nil || result.Status != StatusFailed {
		t.Fatalf("result = %+v, want failed result", result)
	}
	if len(result.Metadata.Errors) != 1 {
		t.Fatalf("len(Errors) = %d, want 1", len(result.Metadata.Errors))
	}
	e := result.Metadata.Errors[0]
	if e.Operation != "query" || e.Recoverable || e.Message != err.Error() || e.Timestamp.IsZero() {
		t.Errorf("ExecutionError = %+v", e)
	}
}

func TestExecuteMissingTask(t *testing.T) {
	q := mustParse(t, `query Q { a: agent(model: "m") { role: "r" } }`)
	_, err := NewInterpreter().Execute(context.Background(), q, nil)
	if err == nil || !strings.Contains(err.Error(), "Missing required <TASK> block in prompt") {
		t.Errorf("Execute() error = %v, want missing TASK", err)
	}
}

func TestExecuteCircularDependency(t *testing.T) {
	q := mustParse(t, `query C {
  a: agent(model: "m") { role: "r"; task: "t"; input: c }
  b: agent(model: "m") { role: "r"; task: "t"; input: a }
  c: agent(model: "m") { role: "r"; task: "t"; input: b }
}`)

	if err := q.Validate(); !errors.Is(err, ErrCircularDependency) {
		t.Errorf("Validate() error = %v, want ErrCircularDependency", err)
	}

	rec := &recorder{}
	result, err := NewInterpreter(WithCaller(rec)).Execute(context.Background(), q, nil)
	if err == nil {
		t.Fatal("Execute() should fail on a cycle")
	}
	if !strings.Contains(err.Error(), "Circular dependency detected") {
		t.Errorf("Execute() error = %q", err)
	}
	var de *DependencyError
	if !errors.As(err, &de) || de.OperationID != q.Operations[0].ID {
		t.Errorf("DependencyError = %+v, want operation %s", de, q.Operations[0].ID)
	}
	if len(rec.reqs) != 0 {
		t.Errorf("caller invoked %d times, want 0", len(rec.reqs))
	}
	if result.Status != StatusFailed {
		t.Errorf("Status = %q, want failed", result.Status)
	}
}

func TestExecuteDependencyOrder(t *testing.T) {
	rec := &recorder{}
	q := mustParse(t, `query D {
  report: agent(model: "m") { role: "r"; task: "report"; input: draft }
  draft: agent(model: "m") { role: "r"; task: "draft" }
  other: agent(model: "m") { role: "r"; task: "other"; input: unknown }
}`)

	result, err := NewInterpreter(WithCaller(rec)).Execute(context.Background(), q, nil)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if got := strings.Join(rec.tasks(), ","); got != "draft,report,other" {
		t.Errorf("call order = %q, want draft,report,other", got)
	}
	if !strings.Contains(rec.reqs[1].Prompt, "<INPUT>\nout:draft\n</INPUT>") {
		t.Errorf("report prompt = %q, want draft result as input", rec.reqs[1].Prompt)
	}
	if rec.reqs[1].Input != "out:draft" {
		t.Errorf("report input = %v, want out:draft", rec.reqs[1].Input)
	}
	if rec.reqs[2].Input != "unknown" {
		t.Errorf("other input = %v, want the reference text", rec.reqs[2].Input)
	}
	if result.Results["report"] != "out:report" {
		t.Errorf("Results[report] = %v", result.Results["report"])
	}
}

func TestExecuteVariables(t *testing.T) {
	rec := &recorder{}
	q := mustParse(t, `query V($topic: String!, $depth: Int = 3) {
  a: agent(model: "m") { role: "r"; task: "a"; input: $topic }
  b: agent(model: "m") { role: "r"; task: "b"; input: $depth }
  c: agent(model: "m") { role: "r"; task: "c"; input: [a, "x", $missing] }
}`)

	_, err := NewInterpreter(WithCaller(rec)).Execute(context.Background(), q, map[string]any{"$topic": "go"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if rec.reqs[0].Input != "go" {
		t.Errorf("a input = %v, want go", rec.reqs[0].Input)
	}
	if !strings.Contains(rec.reqs[1].Prompt, "<INPUT>\n3\n</INPUT>") {
		t.Errorf("b prompt = %q, want default 3 as input", rec.reqs[1].Prompt)
	}
	if !strings.Contains(rec.reqs[2].Prompt, "<INPUT>\nout:a\nx\n$missing\n</INPUT>") {
		t.Errorf("c prompt = %q, want joined list input", rec.reqs[2].Prompt)
	}
}

func TestExecuteInterpolation(t *testing.T) {
	rec := &recorder{}
	q := mustParse(t, `query I($lang: String = "Go") {
  review: agent(model: "m") { role: "You review {{$lang}} code."; task: "Comment on {{draft}}. Keep {{tone}}." }
  draft: agent(model: "m") { role: "r"; task: "draft" }
}`)

	cfg := noRetry()
	cfg.Templating = true
	if _, err := NewInterpreter(WithCaller(rec), WithConfig(cfg)).Execute(context.Background(), q, nil); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if got := strings.Join(rec.tasks(), " | "); got != "draft | Comment on out:draft. Keep {{tone}}." {
		t.Errorf("tasks = %q", got)
	}
	if rec.reqs[1].Role != "You review Go code." {
		t.Errorf("role = %q, want interpolated variable", rec.reqs[1].Role)
	}
}

func TestExecutePlaceholdersOffByDefault(t *testing.T) {
	src := `query P {
  a: agent(model: "m") { role: "r"; task: "use {{b}}" }
  b: agent(model: "m") { role: "r"; task: "t"; input: a }
}`

	rec := &recorder{}
	result, err := NewInterpreter(WithCaller(rec)).Execute(context.Background(), mustParse(t, src), nil)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got := strings.Join(rec.tasks(), ","); got != "use {{b}},t" {
		t.Errorf("tasks = %q, want placeholder left verbatim in source order", got)
	}
	if result.Results["a"] != "out:use {{b}}" {
		t.Errorf("Results[a] = %v", result.Results["a"])
	}

	// With templating the placeholder is an edge, closing a cycle with b's input.
	cfg := noRetry()
	cfg.Templating = true
	_, err = NewInterpreter(WithConfig(cfg)).Execute(context.Background(), mustParse(t, src), nil)
	var de *DependencyError
	if !errors.As(err, &de) {
		t.Errorf("Execute() with templating error = %v, want *DependencyError", err)
	}
}

func TestExecuteMissingRequiredVariable(t *testing.T) {
	q := mustParse(t, `query R($name: String!) {
  a: agent(model: "m") { role: "r"; task: "t"; input: $name }
}`)

	result, err := NewInterpreter().Execute(context.Background(), q, map[string]any{})
	if !errors.Is(err, ErrMissingVariable) {
		t.Fatalf("Execute() error = %v, want ErrMissingVariable", err)
	}
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "$name" {
		t.Errorf("ValidationError = %+v, want field $name", ve)
	}
	if result.Metadata.OperationsExecuted != 0 {
		t.Errorf("OperationsExecuted = %d, want 0", result.Metadata.OperationsExecuted)
	}
}

func TestExecuteRetries(t *testing.T) {
	errBusy := errors.New("busy")
	errAuth := &llm.APIError{StatusCode: 401, Body: "invalid x-api-key"}
	errOverloaded := &llm.APIError{StatusCode: 529, Body: "overloaded"}

	tests := []struct {
		name      string
		err       error
		retries   int
		failures  int
		wantCalls int
		wantErr   bool
	}{
		{"succeeds after retries", errBusy, 3, 2, 3, false},
		{"gives up", errBusy, 1, 5, 2, true},
		{"no retries", errBusy, 0, 1, 1, true},
		{"permanent API error", errAuth, 3, 5, 1, true},
		{"overloaded API", errOverloaded, 2, 1, 2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			caller := llm.CallerFunc(func(ctx context.Context, req llm.AgentRequest) (string, error) {
				if int(calls.Add(1)) <= tt.failures {
					return "", tt.err
				}
				return "ok", nil
			})

			cfg := DefaultExecutionConfig()
			cfg.Retries = tt.retries
			interp := NewInterpreter(WithCaller(caller), WithConfig(cfg))
			interp.retryBackoff = time.Millisecond

			q := mustParse(t, `query R { a: agent(model: "m") { role: "r"; task: "t" } }`)
			_, err := interp.Execute(context.Background(), q, nil)

			if int(calls.Load()) != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls.Load(), tt.wantCalls)
			}
			if tt.wantErr != (err != nil) {
				t.Fatalf("Execute() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, tt.err) {
				t.Errorf("Execute() error = %v, want wrapped %v", err, tt.err)
			}
		})
	}
}

func TestExecuteCaching(t *testing.T) {
	rec := &recorder{}
	cfg := noRetry()
	cfg.Caching = true
	interp := NewInterpreter(WithCaller(rec), WithConfig(cfg))

	q := mustParse(t, `query C {
  a: agent(model: "m") { role: "r"; task: "same" }
  b: agent(model: "m") { role: "r"; task: "same" }
  c: agent(model: "m", temperature: 0.9) { role: "r"; task: "same" }
}`)

	result, err := interp.Execute(context.Background(), q, nil)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(rec.reqs) != 2 {
		t.Errorf("caller invoked %d times, want 2 (b served from cache)", len(rec.reqs))
	}
	if result.Results["a"] != result.Results["b"] {
		t.Errorf("Results[b] = %v, want cached %v", result.Results["b"], result.Results["a"])
	}

	// A second execution is fully cached.
	if _, err := interp.Execute(context.Background(), q, nil); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(rec.reqs) != 2 {
		t.Errorf("caller invoked %d times after rerun, want 2", len(rec.reqs))
	}
}

func TestExecuteUnknownOperationType(t *testing.T) {
	q := &Query{
		Name:       "U",
		Operations: []*Operation{{ID: "op-1", Type: OpType("teleport")}},
	}

	_, err := NewInterpreter().Execute(context.Background(), q, nil)
	if !errors.Is(err, ErrUnknownOperation) {
		t.Fatalf("Execute() error = %v, want ErrUnknownOperation", err)
	}
	if err.Error() != "Unknown operation type: teleport" {
		t.Errorf("Execute() error = %q", err)
	}
}

func TestExecuteParallelSequentialByDefault(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32
	rec := &recorder{reply: func(req llm.AgentRequest) (string, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		if n > maxInFlight.Load() {
			maxInFlight.Store(n)
		}
		time.Sleep(5 * time.Millisecond)
		return "out:" + req.Task, nil
	}}

	q := mustParse(t, `query P {
  parallel {
    c: agent(model: "m") { role: "r"; task: "c"; input: [a, b] }
    a: agent(model: "m") { role: "r"; task: "a" }
    b: agent(model: "m") { role: "r"; task: "b" }
  }
}`)

	result, err := NewInterpreter(WithCaller(rec)).Execute(context.Background(), q, nil)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got := strings.Join(rec.tasks(), ","); got != "a,b,c" {
		t.Errorf("call order = %q, want a,b,c", got)
	}
	if maxInFlight.Load() != 1 {
		t.Errorf("max concurrent calls = %d, want 1", maxInFlight.Load())
	}
	if result.Metadata.OperationsExecuted != 4 {
		t.Errorf("OperationsExecuted = %d, want 4", result.Metadata.OperationsExecuted)
	}
}

func TestExecuteParallelFanOut(t *testing.T) {
	started := make(chan struct{})
	var once sync.Once
	var waiting atomic.Int32

	rec := &recorder{}
	rec.reply = func(req llm.AgentRequest) (string, error) {
		if req.Task == "c" {
			return "joined", nil
		}
		// a and b each wait until the other has started.
		if waiting.Add(1) == 2 {
			once.Do(func() { close(started) })
		}
		select {
		case <-started:
			return "out:" + req.Task, nil
		case <-time.After(2 * time.Second):
			return "", fmt.Errorf("%s ran alone", req.Task)
		}
	}

	cfg := noRetry()
	cfg.Parallel = true
	q := mustParse(t, `query P {
  fan: parallel {
    c: agent(model: "m") { role: "r"; task: "c"; input: [a, b] }
    a: agent(model: "m") { role: "r"; task: "a" }
    b: agent(model: "m") { role: "r"; task: "b" }
  }
}`)

	result, err := NewInterpreter(WithCaller(rec), WithConfig(cfg)).Execute(context.Background(), q, nil)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	tasks := rec.tasks()
	if len(tasks) != 3 || tasks[2] != "c" {
		t.Errorf("call order = %v, want c last", tasks)
	}
	last := rec.reqs[2]
	if !strings.Contains(last.Prompt, "<INPUT>\nout:a\nout:b\n</INPUT>") {
		t.Errorf("c prompt = %q, want both results", last.Prompt)
	}
	if result.Results["c"] != "joined" {
		t.Errorf("Results[c] = %v, want joined", result.Results["c"])
	}
}

func TestExecuteParallelFailureCancelsSiblings(t *testing.T) {
	errBoom := errors.New("boom")
	rec := &recorder{}
	rec.reply = func(req llm.AgentRequest) (string, error) {
		if req.Task == "a" {
			return "", errBoom
		}
		return "out:" + req.Task, nil
	}

	cfg := noRetry()
	cfg.Parallel = true
	q := mustParse(t, `query P {
  parallel {
    a: agent(model: "m") { role: "r"; task: "a" }
    b: agent(model: "m") { role: "r"; task: "b"; input: a }
  }
}`)

	_, err := NewInterpreter(WithCaller(rec), WithConfig(cfg)).Execute(context.Background(), q, nil)
	if !errors.Is(err, errBoom) {
		t.Fatalf("Execute() error = %v, want boom", err)
	}
	for _, task := range rec.tasks() {
		if task == "b" {
			t.Error("b should not run after its dependency failed")
		}
	}
}

func TestExecuteConditionalAndLoop(t *testing.T) {
	rec := &recorder{}
	q := mustParse(t, `query L {
  seed: agent(model: "m") { role: "r"; task: "seed" }
  when: conditional(condition: seed) {
    yes: agent(model: "m") { role: "r"; task: "yes" }
  }
  loop(iterations: 3) {
    tick: agent(model: "m") { role: "r"; task: "tick" }
  }
}`)

	result, err := NewInterpreter(WithCaller(rec)).Execute(context.Background(), q, nil)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got := strings.Join(rec.tasks(), ","); got != "seed,yes,tick,tick,tick" {
		t.Errorf("call order = %q", got)
	}
	// seed, when, yes, loop, and three ticks
	if result.Metadata.OperationsExecuted != 7 {
		t.Errorf("OperationsExecuted = %d, want 7", result.Metadata.OperationsExecuted)
	}
}

func TestExecuteTimeout(t *testing.T) {
	caller := llm.CallerFunc(func(ctx context.Context, req llm.AgentRequest) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})

	cfg := noRetry()
	cfg.Timeout = 20 * time.Millisecond
	q := mustParse(t, `query T { a: agent(model: "m") { role: "r"; task: "t" } }`)

	result, err := NewInterpreter(WithCaller(caller), WithConfig(cfg)).Execute(context.Background(), q, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Execute() error = %v, want deadline exceeded", err)
	}
	if result.Status != StatusFailed {
		t.Errorf("Status = %q, want failed", result.Status)
	}
}

func TestExecuteEvents(t *testing.T) {
	var mu sync.Mutex
	var events []Event
	handler := func(e Event) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	}

	q := mustParse(t, `query E {
  g: sequential {
    a: agent(model: "m") { role: "r"; task: "t" }
  }
}`)
	result, err := NewInterpreter(WithEventHandler(handler)).Execute(context.Background(), q, nil)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	var got []string
	for _, e := range events {
		got = append(got, fmt.Sprintf("%s:%s", e.Alias, e.Type))
		if e.RunID != result.RunID {
			t.Errorf("event RunID = %q, want %q", e.RunID, result.RunID)
		}
	}
	if want := "g:started,a:started,a:completed,g:completed"; strings.Join(got, ",") != want {
		t.Errorf("events = %v, want %s", got, want)
	}
	if events[2].Result != result.Results["a"] {
		t.Errorf("completed event Result = %q, want %v", events[2].Result, result.Results["a"])
	}
}

func TestExecuteConcurrentCalls(t *testing.T) {
	interp := NewInterpreter()
	q := mustParse(t, `query C($n: Int!) { a: agent(model: "m") { role: "r"; task: "t"; input: $n } }`)

	var wg sync.WaitGroup
	for n := 0; n < 8; n++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			result, err := interp.Execute(context.Background(), q, map[string]any{"n": n})
			if err != nil {
				t.Errorf("Execute() error = %v", err)
				return
			}
			if len(result.Results) != 1 {
				t.Errorf("len(Results) = %d, want 1", len(result.Results))
			}
		}(n)
	}
	wg.Wait()
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{
		Field:   "$name",
		Message: "required variable missing",
		Hint:    "pass a value",
		Line:    4,
		Err:     ErrMissingVariable,
	}
	want := "$name: required variable missing (line 4)\n  → pass a value"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, ErrMissingVariable) {
		t.Error("ValidationError should unwrap to ErrMissingVariable")
	}
}

func TestStringify(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"s", "s"},
		{3, "3"},
		{[]any{"a", 1, []any{"b"}}, "a\n1\nb"},
		{[]string{"x", "y"}, "x\ny"},
	}
	for _, tt := range tests {
		if got := stringify(tt.in); got != tt.want {
			t.Errorf("stringify(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
