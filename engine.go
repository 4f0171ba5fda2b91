package aql

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/everydev1618/aql/cache"
	"github.com/everydev1618/aql/dsl"
	"github.com/everydev1618/aql/internal/store"
	"github.com/everydev1618/aql/llm"
)

// Engine parses and executes AQL queries with shared defaults.
type Engine struct {
	mu       sync.Mutex
	config   dsl.ExecutionConfig
	caller   llm.Caller
	cache    cache.Cache
	cacheTTL time.Duration
	store    store.Store
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithCaller sets the agent caller. The default is llm.Placeholder.
func WithCaller(c llm.Caller) Option {
	return func(e *Engine) {
		e.caller = c
	}
}

// WithConfig sets the execution defaults.
func WithConfig(cfg dsl.ExecutionConfig) Option {
	return func(e *Engine) {
		e.config = cfg
	}
}

// WithCache sets the result cache shared by all executions.
func WithCache(c cache.Cache) Option {
	return func(e *Engine) {
		e.cache = c
	}
}

// WithCacheTTL sets how long cached results live.
func WithCacheTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		e.cacheTTL = ttl
	}
}

// WithStore records every execution and its events in s.
func WithStore(s store.Store) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		config: dsl.DefaultExecutionConfig(),
		caller: llm.Placeholder{},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.cache == nil {
		e.cache = cache.NewMemory()
	}
	return e
}

// Parse parses AQL source.
func (e *Engine) Parse(source string) (*dsl.Query, error) {
	return dsl.Parse(source)
}

// Run parses source and executes the resulting query.
func (e *Engine) Run(ctx context.Context, source string, vars map[string]any) (*dsl.ExecutionResult, error) {
	q, err := e.Parse(source)
	if err != nil {
		return nil, err
	}
	return e.Execute(ctx, q, vars)
}

// Execute runs a parsed query with the engine's current settings.
func (e *Engine) Execute(ctx context.Context, q *dsl.Query, vars map[string]any) (*dsl.ExecutionResult, error) {
	cfg := e.Config()

	var (
		mu     sync.Mutex
		events []dsl.Event
	)
	opts := []dsl.InterpreterOption{
		dsl.WithCaller(e.caller),
		dsl.WithConfig(cfg),
		dsl.WithCache(e.cache),
		dsl.WithCacheTTL(e.cacheTTL),
		dsl.WithLogger(e.logger),
	}
	if e.store != nil {
		opts = append(opts, dsl.WithEventHandler(func(ev dsl.Event) {
			mu.Lock()
			events = append(events, ev)
			mu.Unlock()
		}))
	}

	started := time.Now()
	result, err := dsl.NewInterpreter(opts...).Execute(ctx, q, vars)

	if e.store != nil {
		mu.Lock()
		recorded := append([]dsl.Event(nil), events...)
		mu.Unlock()
		e.record(result, vars, recorded, started)
	}
	return result, err
}

// record saves a finished execution. Failures are logged, not returned.
func (e *Engine) record(result *dsl.ExecutionResult, vars map[string]any, events []dsl.Event, started time.Time) {
	inputs, err := json.Marshal(vars)
	if err != nil || vars == nil {
		inputs = []byte("{}")
	}

	run := store.Run{
		RunID:     result.RunID,
		Query:     result.Query,
		Inputs:    string(inputs),
		Status:    dsl.StatusRunning,
		StartedAt: started,
	}
	if err := e.store.InsertRun(run); err != nil {
		e.logger.Warn("failed to record run", "run_id", result.RunID, "error", err)
		return
	}

	for _, ev := range events {
		err := e.store.InsertEvent(store.RunEvent{
			RunID:         ev.RunID,
			Type:          string(ev.Type),
			OperationID:   ev.OperationID,
			Alias:         ev.Alias,
			OperationType: string(ev.OperationType),
			Timestamp:     ev.Timestamp,
			Result:        ev.Result,
			Error:         ev.Error,
		})
		if err != nil {
			e.logger.Warn("failed to record event", "run_id", result.RunID, "error", err)
		}
	}

	outcome := store.RunOutcome{
		RunID:       result.RunID,
		Status:      result.Status,
		Tokens:      result.Metadata.TotalTokens,
		Operations:  result.Metadata.OperationsExecuted,
		CompletedAt: started.Add(result.Metadata.TotalTime),
	}
	if data, err := json.Marshal(result.Results); err == nil {
		outcome.Result = string(data)
	}
	if n := len(result.Metadata.Errors); n > 0 {
		outcome.Error = result.Metadata.Errors[n-1].Message
	}
	if err := e.store.FinishRun(outcome); err != nil {
		e.logger.Warn("failed to record run outcome", "run_id", result.RunID, "error", err)
	}
}

// Config returns the current execution defaults.
func (e *Engine) Config() dsl.ExecutionConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.config
}

// SetDebug toggles debug logging of dispatched operations.
func (e *Engine) SetDebug(on bool) {
	e.mu.Lock()
	e.config.Debug = on
	e.mu.Unlock()
}

// SetTimeout sets the per-execution timeout. Zero disables it.
func (e *Engine) SetTimeout(d time.Duration) {
	e.mu.Lock()
	e.config.Timeout = d
	e.mu.Unlock()
}

// SetRetries sets how many times a failing agent call is retried.
func (e *Engine) SetRetries(n int) {
	e.mu.Lock()
	e.config.Retries = n
	e.mu.Unlock()
}

// SetParallel toggles concurrent execution of parallel groups.
func (e *Engine) SetParallel(on bool) {
	e.mu.Lock()
	e.config.Parallel = on
	e.mu.Unlock()
}

// SetCaching toggles result caching.
func (e *Engine) SetCaching(on bool) {
	e.mu.Lock()
	e.config.Caching = on
	e.mu.Unlock()
}

// SetTemplating toggles {{name}} placeholder filling in agent prompts.
func (e *Engine) SetTemplating(on bool) {
	e.mu.Lock()
	e.config.Templating = on
	e.mu.Unlock()
}
