package dsl

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/everydev1618/aql/cache"
	"github.com/everydev1618/aql/llm"
	"github.com/everydev1618/aql/prompt"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// InterpreterOption configures an Interpreter.
type InterpreterOption func(*Interpreter)

// WithCaller sets the agent caller. The default is llm.Placeholder.
func WithCaller(c llm.Caller) InterpreterOption {
	return func(i *Interpreter) {
		i.caller = c
	}
}

// WithConfig sets the execution configuration.
func WithConfig(cfg ExecutionConfig) InterpreterOption {
	return func(i *Interpreter) {
		i.config = cfg
	}
}

// WithCache sets the result cache consulted when caching is enabled.
func WithCache(c cache.Cache) InterpreterOption {
	return func(i *Interpreter) {
		i.cache = c
	}
}

// WithCacheTTL sets how long cached agent results live. Zero keeps them
// until evicted.
func WithCacheTTL(ttl time.Duration) InterpreterOption {
	return func(i *Interpreter) {
		i.cacheTTL = ttl
	}
}

// WithEventHandler registers a handler for operation events.
func WithEventHandler(h EventHandler) InterpreterOption {
	return func(i *Interpreter) {
		i.onEvent = h
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) InterpreterOption {
	return func(i *Interpreter) {
		if l != nil {
			i.logger = l
		}
	}
}

// Interpreter executes parsed queries. It holds no per-execution state, so
// one Interpreter may run any number of executions concurrently.
type Interpreter struct {
	caller       llm.Caller
	config       ExecutionConfig
	cache        cache.Cache
	cacheTTL     time.Duration
	onEvent      EventHandler
	logger       *slog.Logger
	retryBackoff time.Duration
}

// NewInterpreter creates an interpreter.
func NewInterpreter(opts ...InterpreterOption) *Interpreter {
	i := &Interpreter{
		caller:       llm.Placeholder{},
		config:       DefaultExecutionConfig(),
		logger:       slog.Default(),
		retryBackoff: 100 * time.Millisecond,
	}

	for _, opt := range opts {
		opt(i)
	}

	if i.cache == nil {
		i.cache = cache.NewMemory()
	}
	return i
}

// Config returns the interpreter's execution configuration.
func (i *Interpreter) Config() ExecutionConfig {
	return i.config
}

// ExecutionContext is the state of a single execution.
type ExecutionContext struct {
	RunID     string
	Variables map[string]any
	Config    ExecutionConfig

	mu      sync.Mutex
	results map[string]any

	tokens   atomic.Int64
	executed atomic.Int64
}

func newExecutionContext(vars map[string]any, cfg ExecutionConfig) *ExecutionContext {
	return &ExecutionContext{
		RunID:     uuid.NewString(),
		Variables: vars,
		Config:    cfg,
		results:   make(map[string]any),
	}
}

// Result returns the stored result for an alias or operation ID.
func (ec *ExecutionContext) Result(key string) (any, bool) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	v, ok := ec.results[key]
	return v, ok
}

// SetResult stores the result of an operation.
func (ec *ExecutionContext) SetResult(key string, v any) {
	ec.mu.Lock()
	ec.results[key] = v
	ec.mu.Unlock()
}

// Results returns a snapshot of all stored results.
func (ec *ExecutionContext) Results() map[string]any {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	out := make(map[string]any, len(ec.results))
	for k, v := range ec.results {
		out[k] = v
	}
	return out
}

// dependencies returns the siblings op must follow under the execution's
// settings.
func (ec *ExecutionContext) dependencies(op *Operation) []string {
	if ec.Config.Templating {
		return placeholderDependencies(op)
	}
	return op.Dependencies
}

// scope returns the values visible to {{name}} placeholders: stored
// results, overridden by variables of the same name.
func (ec *ExecutionContext) scope() map[string]any {
	scope := ec.Results()
	for k, v := range ec.Variables {
		scope[k] = v
	}
	return scope
}

// Execute runs q with the given variables. Variable names may be given
// with or without the leading $. On failure the returned result is still
// populated, with status failed and the error recorded in its metadata.
func (i *Interpreter) Execute(ctx context.Context, q *Query, vars map[string]any) (*ExecutionResult, error) {
	start := time.Now()
	ec := newExecutionContext(nil, i.config)
	result := &ExecutionResult{
		RunID:  ec.RunID,
		Query:  q.Name,
		Status: StatusRunning,
	}

	if ec.Config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ec.Config.Timeout)
		defer cancel()
	}

	bound, err := bindVariables(q, vars)
	if err == nil {
		ec.Variables = bound
		err = i.run(ctx, ec, q.Operations)
	}

	result.Results = ec.Results()
	result.Metadata.TotalTime = time.Since(start)
	result.Metadata.TotalTokens = int(ec.tokens.Load())
	result.Metadata.OperationsExecuted = int(ec.executed.Load())

	if err != nil {
		result.Status = StatusFailed
		result.Metadata.Errors = append(result.Metadata.Errors, ExecutionError{
			Operation:   "query",
			Message:     err.Error(),
			Timestamp:   time.Now(),
			Recoverable: false,
		})
		i.logger.Error("query execution failed",
			"query", q.Name,
			"run_id", ec.RunID,
			"error", err,
		)
		return result, err
	}

	result.Status = StatusCompleted
	i.logger.Info("query executed",
		"query", q.Name,
		"run_id", ec.RunID,
		"operations", result.Metadata.OperationsExecuted,
		"tokens", result.Metadata.TotalTokens,
		"duration", result.Metadata.TotalTime,
	)
	return result, nil
}

// bindVariables applies parameter defaults and checks required parameters.
func bindVariables(q *Query, vars map[string]any) (map[string]any, error) {
	bound := make(map[string]any, len(vars)+len(q.Parameters))
	for k, v := range vars {
		bound[strings.TrimPrefix(k, "$")] = v
	}

	for _, p := range q.Parameters {
		if _, ok := bound[p.Name]; ok {
			continue
		}
		if p.HasDefault {
			bound[p.Name] = p.Default
			continue
		}
		if p.Required {
			return nil, &ValidationError{
				Field:   "$" + p.Name,
				Message: "required variable missing",
				Hint:    fmt.Sprintf("pass a %s value for $%s", p.Type, p.Name),
				Err:     ErrMissingVariable,
			}
		}
	}
	return bound, nil
}

// run executes ops in dependency order on the calling goroutine.
func (i *Interpreter) run(ctx context.Context, ec *ExecutionContext, ops []*Operation) error {
	ordered, err := orderBy(ops, ec.dependencies)
	if err != nil {
		return err
	}

	for _, op := range ordered {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := i.dispatch(ctx, ec, op); err != nil {
			return err
		}
	}
	return nil
}

// runConcurrent executes ops concurrently. Each operation starts once the
// siblings it depends on have completed.
func (i *Interpreter) runConcurrent(ctx context.Context, ec *ExecutionContext, ops []*Operation) error {
	ordered, err := orderBy(ops, ec.dependencies)
	if err != nil {
		return err
	}

	byName := make(map[string]*Operation, len(ordered))
	done := make(map[*Operation]chan struct{}, len(ordered))
	for _, op := range ordered {
		if op.Name != "" {
			byName[op.Name] = op
		}
		done[op] = make(chan struct{})
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, op := range ordered {
		op := op // per-iteration copy; go.mod targets go 1.21
		var waits []chan struct{}
		for _, dep := range ec.dependencies(op) {
			if target, ok := byName[dep]; ok {
				waits = append(waits, done[target])
			}
		}

		g.Go(func() error {
			for _, w := range waits {
				select {
				case <-w:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			if err := i.dispatch(gctx, ec, op); err != nil {
				return err
			}
			close(done[op])
			return nil
		})
	}
	return g.Wait()
}

func (i *Interpreter) dispatch(ctx context.Context, ec *ExecutionContext, op *Operation) error {
	ec.executed.Add(1)
	if ec.Config.Debug {
		i.logger.Debug("dispatching operation",
			"run_id", ec.RunID,
			"operation", op.Key(),
			"type", op.Type,
		)
	}
	i.emit(ec, op, EventStarted, "", nil)

	var (
		out string
		err error
	)
	switch op.Type {
	case OpAgent:
		out, err = i.executeAgent(ctx, ec, op)
	case OpSequential:
		err = i.run(ctx, ec, op.Children())
	case OpParallel:
		if ec.Config.Parallel {
			err = i.runConcurrent(ctx, ec, op.Children())
		} else {
			err = i.run(ctx, ec, op.Children())
		}
	case OpConditional:
		err = i.executeConditional(ctx, ec, op)
	case OpLoop:
		err = i.executeLoop(ctx, ec, op)
	default:
		err = &UnknownOperationError{Type: op.Type, OperationID: op.ID}
	}

	if err != nil {
		i.emit(ec, op, EventFailed, "", err)
		return err
	}
	i.emit(ec, op, EventCompleted, out, nil)
	return nil
}

func (i *Interpreter) executeConditional(ctx context.Context, ec *ExecutionContext, op *Operation) error {
	cfg, ok := op.Config.(*ConditionalConfig)
	if !ok {
		return fmt.Errorf("operation %s: missing conditional configuration", op.Key())
	}
	if !evaluateCondition(cfg.Condition, ec) {
		return nil
	}
	return i.run(ctx, ec, cfg.Operations)
}

// evaluateCondition always reports true. Conditions are parsed and their
// references ordered, but there is no expression language yet.
func evaluateCondition(Value, *ExecutionContext) bool {
	return true
}

func (i *Interpreter) executeLoop(ctx context.Context, ec *ExecutionContext, op *Operation) error {
	cfg, ok := op.Config.(*LoopConfig)
	if !ok {
		return fmt.Errorf("operation %s: missing loop configuration", op.Key())
	}
	for n := 0; n < cfg.Iterations; n++ {
		if err := i.run(ctx, ec, cfg.Operations); err != nil {
			return err
		}
	}
	return nil
}

func (i *Interpreter) executeAgent(ctx context.Context, ec *ExecutionContext, op *Operation) (string, error) {
	cfg := op.Agent()
	if cfg == nil {
		return "", fmt.Errorf("operation %s: missing agent configuration", op.Key())
	}

	req := llm.AgentRequest{
		Model:  cfg.Model,
		Prompt: cfg.Prompt,
		Role:   cfg.Role,
		Task:   cfg.Task,
		Schema: cfg.Schema,
		Input:  resolve(cfg.Input, ec),
		Options: llm.GenerationOptions{
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		},
	}

	if ec.Config.Templating {
		scope := ec.scope()
		req.Prompt = prompt.Interpolate(req.Prompt, scope)
		req.Role = prompt.Interpolate(req.Role, scope)
		req.Task = prompt.Interpolate(req.Task, scope)
	}

	text, err := assemblePrompt(req)
	if err != nil {
		return "", err
	}
	req.Prompt = text

	var key string
	if ec.Config.Caching && i.cache != nil {
		key = cache.Key(req.Model, req.Prompt, tuningKey(req.Options))
		cached, ok, err := i.cache.Get(ctx, key)
		if err != nil {
			i.logger.Warn("cache lookup failed", "operation", op.Key(), "error", err)
		} else if ok {
			if ec.Config.Debug {
				i.logger.Debug("cache hit", "operation", op.Key())
			}
			ec.SetResult(op.Key(), cached)
			return cached, nil
		}
	}

	out, err := i.call(ctx, ec, op, req)
	if err != nil {
		return "", err
	}

	if key != "" {
		if err := i.cache.Set(ctx, key, out, i.cacheTTL); err != nil {
			i.logger.Warn("cache store failed", "operation", op.Key(), "error", err)
		}
	}

	ec.SetResult(op.Key(), out)
	ec.tokens.Add(int64(estimateTokens(req.Prompt) + estimateTokens(out)))
	return out, nil
}

// call invokes the caller, retrying failed calls up to Retries times with
// a linear backoff. Errors llm.IsRetryable rejects end the call at once.
func (i *Interpreter) call(ctx context.Context, ec *ExecutionContext, op *Operation, req llm.AgentRequest) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= ec.Config.Retries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(attempt) * i.retryBackoff
			i.logger.Warn("agent call failed, retrying",
				"operation", op.Key(),
				"attempt", attempt,
				"wait", wait,
				"error", lastErr,
			)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		out, err := i.caller.Call(ctx, req)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if ctx.Err() != nil || !llm.IsRetryable(err) {
			break
		}
	}
	return "", fmt.Errorf("agent %s: %w", op.Key(), lastErr)
}

// assemblePrompt builds the final prompt for an agent request. The text is
// the explicit prompt or the composed fields, parsed into blocks; an INPUT
// block is added from the resolved input when the text has none.
func assemblePrompt(req llm.AgentRequest) (string, error) {
	input := stringify(req.Input)

	text := req.Prompt
	if text == "" {
		text = prompt.Compose(prompt.FromRequest(prompt.Request{
			Role:   req.Role,
			Task:   req.Task,
			Input:  input,
			Schema: req.Schema,
		}))
	}

	blocks := prompt.ParseBlocks(text)
	if input != "" && !blocks.Has(prompt.TagInput) {
		blocks.Set(prompt.TagInput, input)
	}
	if err := prompt.Validate(blocks); err != nil {
		return "", err
	}
	return prompt.Render(blocks), nil
}

// resolve evaluates an input value: a reference is looked up in the
// results, a variable in the bound variables, and either falls back to its
// own text when absent.
func resolve(v Value, ec *ExecutionContext) any {
	switch v.Kind {
	case ValueReference:
		if r, ok := ec.Result(v.Name); ok {
			return r
		}
		return v.Name
	case ValueVariable:
		if val, ok := ec.Variables[v.Name]; ok {
			return val
		}
		return v.Raw
	case ValueLiteral:
		return v.Literal
	case ValueList:
		items := make([]any, len(v.Items))
		for n, it := range v.Items {
			items[n] = resolve(it, ec)
		}
		return items
	}
	return nil
}

// stringify renders a resolved input as prompt text. List items are
// joined by newlines.
func stringify(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case []string:
		return strings.Join(v, "\n")
	case []any:
		parts := make([]string, len(v))
		for n, it := range v {
			parts[n] = stringify(it)
		}
		return strings.Join(parts, "\n")
	}
	return fmt.Sprint(v)
}

func tuningKey(o llm.GenerationOptions) string {
	temp := "-"
	if o.Temperature != nil {
		temp = fmt.Sprint(*o.Temperature)
	}
	return fmt.Sprintf("temperature=%s max_tokens=%d", temp, o.MaxTokens)
}

// estimateTokens approximates a token count as one token per four bytes.
func estimateTokens(s string) int {
	return (len(s) + 3) / 4
}
