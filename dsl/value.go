package dsl

import (
	"fmt"
	"strings"
)

// ValueKind tags how a field value is interpreted at execution time.
type ValueKind int

const (
	// ValueNone is the zero Value: the field was not set.
	ValueNone ValueKind = iota

	// ValueLiteral is a constant (string, int, float64 or bool).
	ValueLiteral

	// ValueVariable is a $name reference to a bound query variable.
	ValueVariable

	// ValueReference is a bare alias naming another operation's result.
	ValueReference

	// ValueList is a bracketed sequence of values.
	ValueList
)

func (k ValueKind) String() string {
	switch k {
	case ValueLiteral:
		return "literal"
	case ValueVariable:
		return "variable"
	case ValueReference:
		return "reference"
	case ValueList:
		return "list"
	default:
		return "none"
	}
}

// Value is a field value whose meaning was decided at parse time.
type Value struct {
	Kind    ValueKind
	Literal any
	Name    string
	Items   []Value
	Raw     string
}

// Literal returns a literal Value.
func Literal(v any) Value {
	return Value{Kind: ValueLiteral, Literal: v, Raw: fmt.Sprint(v)}
}

// Variable returns a $name Value.
func Variable(name string) Value {
	return Value{Kind: ValueVariable, Name: name, Raw: "$" + name}
}

// Reference returns a Value referring to the operation aliased name.
func Reference(name string) Value {
	return Value{Kind: ValueReference, Name: name, Raw: name}
}

// List returns a list Value.
func List(items ...Value) Value {
	raws := make([]string, len(items))
	for i, it := range items {
		raws[i] = it.Raw
	}
	return Value{Kind: ValueList, Items: items, Raw: "[" + strings.Join(raws, ", ") + "]"}
}

// IsZero reports whether the value is unset.
func (v Value) IsZero() bool {
	return v.Kind == ValueNone
}

// References returns the operation aliases this value refers to,
// in order of first appearance.
func (v Value) References() []string {
	var refs []string
	seen := make(map[string]bool)
	var walk func(Value)
	walk = func(v Value) {
		switch v.Kind {
		case ValueReference:
			if !seen[v.Name] {
				seen[v.Name] = true
				refs = append(refs, v.Name)
			}
		case ValueList:
			for _, it := range v.Items {
				walk(it)
			}
		}
	}
	walk(v)
	return refs
}

func (v Value) String() string {
	return v.Raw
}

// ParseValue classifies raw field text. A bracketed list parses each
// element; $name is a variable; quoted text, numbers and booleans are
// literals; a bare identifier is a reference to another operation.
// Anything else is kept as literal text.
func ParseValue(raw string) Value {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Value{}
	}

	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		inner := strings.TrimSpace(s[1 : len(s)-1])
		v := Value{Kind: ValueList, Raw: s}
		if inner == "" {
			return v
		}
		for _, part := range SplitTopLevel(inner, ',') {
			if part == "" {
				continue
			}
			v.Items = append(v.Items, ParseValue(part))
		}
		return v
	}

	if strings.HasPrefix(s, "$") && identPattern.MatchString(s[1:]) {
		return Value{Kind: ValueVariable, Name: s[1:], Raw: s}
	}

	if isQuoted(s) {
		return Value{Kind: ValueLiteral, Literal: ParseLiteral(s), Raw: s}
	}

	lit := ParseLiteral(s)
	if str, ok := lit.(string); ok && identPattern.MatchString(str) {
		return Value{Kind: ValueReference, Name: str, Raw: s}
	}
	return Value{Kind: ValueLiteral, Literal: lit, Raw: s}
}
