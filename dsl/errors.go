package dsl

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrSyntax is wrapped by every SyntaxError.
	ErrSyntax = errors.New("syntax error")

	// ErrCircularDependency is wrapped by DependencyError.
	ErrCircularDependency = errors.New("circular dependency")

	// ErrUnknownOperation is wrapped by UnknownOperationError.
	ErrUnknownOperation = errors.New("unknown operation type")

	// ErrMissingVariable is returned when a required parameter is not bound.
	ErrMissingVariable = errors.New("missing required variable")
)

// Syntax rules reported by SyntaxError.
const (
	RuleMissingDeclaration = "missing query declaration"
	RuleInvalidParameter   = "invalid parameter syntax"
	RuleInvalidSignature   = "invalid operation signature"
	RuleInvalidField       = "invalid field value"
	RuleDuplicateAlias     = "duplicate alias"
	RuleUnterminatedString = "unterminated string literal"
	RuleUnbalancedBraces   = "unbalanced braces"
)

// SyntaxError describes AQL source that does not follow the grammar.
type SyntaxError struct {
	Rule     string
	Message  string
	Fragment string
	Pos      Pos
}

func (e *SyntaxError) Error() string {
	msg := e.Rule
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Fragment != "" {
		msg += fmt.Sprintf(" (near %q)", e.Fragment)
	}
	if e.Pos.Line > 0 {
		return fmt.Sprintf("syntax error at %d:%d: %s", e.Pos.Line, e.Pos.Column, msg)
	}
	return "syntax error: " + msg
}

// Unwrap returns ErrSyntax.
func (e *SyntaxError) Unwrap() error {
	return ErrSyntax
}

// DependencyError reports a dependency cycle between sibling operations.
type DependencyError struct {
	OperationID string
	Alias       string
}

func (e *DependencyError) Error() string {
	return "Circular dependency detected involving operation: " + e.OperationID
}

// Unwrap returns ErrCircularDependency.
func (e *DependencyError) Unwrap() error {
	return ErrCircularDependency
}

// UnknownOperationError reports an operation type the interpreter cannot run.
type UnknownOperationError struct {
	Type        OpType
	OperationID string
}

func (e *UnknownOperationError) Error() string {
	return fmt.Sprintf("Unknown operation type: %s", e.Type)
}

// Unwrap returns ErrUnknownOperation.
func (e *UnknownOperationError) Unwrap() error {
	return ErrUnknownOperation
}

// ValidationError reports invalid execution input.
type ValidationError struct {
	Field   string
	Message string
	Hint    string
	Line    int
	Err     error
}

func (e *ValidationError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Line > 0 {
		msg = msg + " (line " + strconv.Itoa(e.Line) + ")"
	}
	if e.Hint != "" {
		msg = msg + "\n  → " + e.Hint
	}
	return msg
}

// Unwrap returns the underlying sentinel, if any.
func (e *ValidationError) Unwrap() error {
	return e.Err
}
