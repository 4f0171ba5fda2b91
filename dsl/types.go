package dsl

import (
	"fmt"
	"sort"
	"time"

	"github.com/everydev1618/aql/prompt"
)

// Pos is a location in AQL source.
type Pos struct {
	Offset int
	Line   int
	Column int
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Query is a parsed AQL document. It is not modified after parsing.
type Query struct {
	Name       string
	Parameters []Parameter
	Operations []*Operation
}

// Parameter returns the declared parameter with the given name.
func (q *Query) Parameter(name string) (Parameter, bool) {
	for _, p := range q.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}

// Walk calls fn for every operation in depth-first source order. Returning
// false from fn skips the operation's children.
func (q *Query) Walk(fn func(op *Operation) bool) {
	var walk func(ops []*Operation)
	walk = func(ops []*Operation) {
		for _, op := range ops {
			if fn(op) {
				walk(op.Children())
			}
		}
	}
	walk(q.Operations)
}

// Lookup finds an operation by alias or ID anywhere in the query.
func (q *Query) Lookup(key string) *Operation {
	var found *Operation
	q.Walk(func(op *Operation) bool {
		if found != nil {
			return false
		}
		if op.Name == key || op.ID == key {
			found = op
			return false
		}
		return true
	})
	return found
}

// Aliases returns every alias defined in the query, sorted.
func (q *Query) Aliases() []string {
	var names []string
	q.Walk(func(op *Operation) bool {
		if op.Name != "" {
			names = append(names, op.Name)
		}
		return true
	})
	sort.Strings(names)
	return names
}

// Parameter is a declared query input.
type Parameter struct {
	Name       string
	Type       Type
	Default    any
	HasDefault bool
	Required   bool
}

// TypeKind distinguishes parameter type shapes.
type TypeKind string

const (
	KindPrimitive  TypeKind = "primitive"
	KindCollection TypeKind = "collection"
	KindCustom     TypeKind = "custom"
)

// primitiveTypes are the built-in scalar type names.
var primitiveTypes = map[string]bool{
	"String":  true,
	"Int":     true,
	"Float":   true,
	"Boolean": true,
}

// Type is a parameter type. Collections carry their element type in Elem.
type Type struct {
	Kind TypeKind
	Name string
	Elem *Type
}

func (t Type) String() string {
	return t.Name
}

// OpType is the kind of an operation.
type OpType string

const (
	OpAgent       OpType = "agent"
	OpSequential  OpType = "sequential"
	OpParallel    OpType = "parallel"
	OpConditional OpType = "conditional"
	OpLoop        OpType = "loop"
)

// DefaultLoopIterations is used when a loop does not name a count.
const DefaultLoopIterations = 10

// Operation is a node in the execution plan.
type Operation struct {
	// ID is generated at parse time and unique per operation.
	ID   string
	Type OpType

	// Name is the alias, empty for unaliased groups.
	Name string

	Config       OperationConfig
	Dependencies []string
	Pos          Pos
}

// Key is the name the operation's result is stored under: the alias if
// present, else the ID.
func (o *Operation) Key() string {
	if o.Name != "" {
		return o.Name
	}
	return o.ID
}

// Children returns the nested operations of a group, or nil.
func (o *Operation) Children() []*Operation {
	switch c := o.Config.(type) {
	case *GroupConfig:
		return c.Operations
	case *ConditionalConfig:
		return c.Operations
	case *LoopConfig:
		return c.Operations
	}
	return nil
}

// Agent returns the agent configuration, or nil for other operation types.
func (o *Operation) Agent() *AgentConfig {
	c, _ := o.Config.(*AgentConfig)
	return c
}

// Fields returns a flat field-name to value view of an agent operation.
// Unset fields are omitted. Values are the literal form for strings and
// numbers and the raw source text for input.
func (o *Operation) Fields() map[string]any {
	c := o.Agent()
	if c == nil {
		return nil
	}
	out := make(map[string]any, len(c.Extra)+8)
	for k, v := range c.Extra {
		out[k] = v
	}
	set := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	set("model", c.Model)
	set("prompt", c.Prompt)
	set("role", c.Role)
	set("task", c.Task)
	set("schema", c.Schema)
	if !c.Input.IsZero() {
		out["input"] = c.Input.Raw
	}
	if c.Temperature != nil {
		out["temperature"] = *c.Temperature
	}
	if c.MaxTokens > 0 {
		out["maxTokens"] = c.MaxTokens
	}
	return out
}

// OperationConfig is the type-specific part of an Operation. It is one of
// *AgentConfig, *GroupConfig, *ConditionalConfig or *LoopConfig.
type OperationConfig interface {
	operationConfig()
}

// AgentConfig configures a single agent invocation.
type AgentConfig struct {
	Model  string
	Prompt string // overrides the composed prompt when set
	Role   string
	Task   string
	Schema string
	Input  Value

	Temperature *float64
	MaxTokens   int

	// Extra holds fields the interpreter does not use.
	Extra map[string]any
}

// Placeholders returns the identifier names used as {{name}} placeholders
// in the prompt, role and task, in order of first use. Variable
// placeholders ({{$name}}) are not included.
func (c *AgentConfig) Placeholders() []string {
	var names []string
	seen := make(map[string]bool)
	for _, text := range []string{c.Prompt, c.Role, c.Task} {
		for _, name := range prompt.ExtractExpressions(text) {
			if identPattern.MatchString(name) && !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names
}

// GroupConfig holds the children of a sequential or parallel group.
type GroupConfig struct {
	Operations []*Operation
}

// ConditionalConfig holds a conditional branch.
type ConditionalConfig struct {
	Condition  Value
	Operations []*Operation
}

// LoopConfig holds a bounded loop.
type LoopConfig struct {
	Iterations int
	Operations []*Operation
}

func (*AgentConfig) operationConfig()       {}
func (*GroupConfig) operationConfig()       {}
func (*ConditionalConfig) operationConfig() {}
func (*LoopConfig) operationConfig()        {}

// ExecutionConfig controls a single execution.
type ExecutionConfig struct {
	// Timeout bounds the whole execution. Zero disables it.
	Timeout time.Duration

	// Retries is how many extra attempts a failing agent call gets.
	Retries int

	// Parallel runs the children of parallel groups concurrently.
	Parallel bool

	// Caching reuses agent results for identical prompts.
	Caching bool

	// Debug logs every dispatched operation.
	Debug bool

	// Templating fills {{name}} placeholders in agent prompts, roles and
	// tasks from variables and results. Placeholders naming a sibling
	// alias then also order the agent after that sibling.
	Templating bool
}

// DefaultExecutionConfig returns the default execution settings.
func DefaultExecutionConfig() ExecutionConfig {
	return ExecutionConfig{
		Timeout: 30 * time.Second,
		Retries: 3,
	}
}

// Execution status values.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ExecutionResult is the outcome of executing a query.
type ExecutionResult struct {
	RunID    string            `json:"run_id" yaml:"run_id"`
	Query    string            `json:"query" yaml:"query"`
	Status   string            `json:"status" yaml:"status"`
	Results  map[string]any    `json:"results" yaml:"results"`
	Metadata ExecutionMetadata `json:"metadata" yaml:"metadata"`
}

// ExecutionMetadata carries timing and accounting for an execution.
type ExecutionMetadata struct {
	TotalTime          time.Duration    `json:"total_time" yaml:"total_time"`
	TotalTokens        int              `json:"total_tokens" yaml:"total_tokens"`
	OperationsExecuted int              `json:"operations_executed" yaml:"operations_executed"`
	Errors             []ExecutionError `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// ExecutionError records a failure during execution.
type ExecutionError struct {
	Operation   string    `json:"operation" yaml:"operation"`
	Message     string    `json:"message" yaml:"message"`
	Timestamp   time.Time `json:"timestamp" yaml:"timestamp"`
	Recoverable bool      `json:"recoverable" yaml:"recoverable"`
}
