package dsl

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Parser parses AQL source files.
type Parser struct{}

// NewParser creates a new parser.
func NewParser() *Parser {
	return &Parser{}
}

// ParseFile parses an AQL source file.
func (p *Parser) ParseFile(path string) (*Query, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	return p.Parse(data)
}

// Parse parses AQL source into a Query.
func (p *Parser) Parse(data []byte) (*Query, error) {
	return Parse(string(data))
}

// Parse parses AQL source text into a Query. Errors are *SyntaxError
// values naming the violated rule and the offending fragment.
func Parse(source string) (*Query, error) {
	src := StripComments(source)
	lx := newLexer(src)
	tokens, err := lx.lex()
	if err != nil {
		return nil, err
	}

	p := &parser{
		src:    src,
		lx:     lx,
		tokens: tokens,
		seen:   make(map[string]bool),
	}
	return p.parseQuery()
}

var opKeywords = map[string]OpType{
	"agent":       OpAgent,
	"sequential":  OpSequential,
	"parallel":    OpParallel,
	"conditional": OpConditional,
	"loop":        OpLoop,
}

var paramPattern = regexp.MustCompile(`^\$([A-Za-z_][A-Za-z0-9_]*)\s*:\s*(.+)$`)

type parser struct {
	src    string
	lx     *lexer
	tokens []token

	// seen holds every alias declared so far in the document.
	seen map[string]bool
}

// field is a raw key: value pair from an argument list or field block.
type field struct {
	key string
	raw string
	pos int
}

func (p *parser) parseQuery() (*Query, error) {
	for i, t := range p.tokens {
		if t.typ != tokenWord || t.val != "query" {
			continue
		}

		n := p.skipNewlines(i + 1)
		if p.tokens[n].typ != tokenWord || !identPattern.MatchString(p.tokens[n].val) {
			continue
		}
		q := &Query{Name: p.tokens[n].val}

		k := p.skipNewlines(n + 1)
		if p.tokens[k].typ == tokenLParen {
			rp, err := p.match(k, len(p.tokens))
			if err != nil {
				return nil, err
			}
			params, err := p.parseParameters(k, rp)
			if err != nil {
				return nil, err
			}
			q.Parameters = params
			k = p.skipNewlines(rp + 1)
		}
		if p.tokens[k].typ != tokenLBrace {
			continue
		}

		rb, err := p.match(k, len(p.tokens))
		if err != nil {
			return nil, err
		}
		ops, err := p.parseStatements(k+1, rb)
		if err != nil {
			return nil, err
		}
		q.Operations = ops
		return q, nil
	}

	return nil, &SyntaxError{
		Rule:     RuleMissingDeclaration,
		Message:  "expected `query <Name> { ... }`",
		Fragment: firstLine(p.src),
	}
}

// parseParameters parses the declaration's parameter list between the
// parentheses at tokens lp and rp.
func (p *parser) parseParameters(lp, rp int) ([]Parameter, error) {
	text := p.src[p.tokens[lp].end:p.tokens[rp].pos]
	text = strings.NewReplacer("\r\n", " ", "\n", " ").Replace(text)

	var params []Parameter
	names := make(map[string]bool)
	for _, part := range SplitTopLevel(text, ',') {
		if part == "" {
			continue
		}
		param, err := parseParameter(part)
		if err == nil && names[param.Name] {
			err = fmt.Errorf("parameter $%s is declared twice", param.Name)
		}
		if err != nil {
			return nil, &SyntaxError{
				Rule:     RuleInvalidParameter,
				Message:  err.Error(),
				Fragment: part,
				Pos:      p.lx.posAt(p.tokens[lp].pos),
			}
		}
		names[param.Name] = true
		params = append(params, param)
	}
	return params, nil
}

// parseParameter parses one `$name: Type (= default)? (!)?` field.
func parseParameter(text string) (Parameter, error) {
	m := paramPattern.FindStringSubmatch(text)
	if m == nil {
		return Parameter{}, errors.New("expected `$name: Type`")
	}

	param := Parameter{Name: m[1]}
	rest := strings.TrimSpace(m[2])
	if strings.HasSuffix(rest, "!") {
		param.Required = true
		rest = strings.TrimSpace(strings.TrimSuffix(rest, "!"))
	}

	typ := rest
	if eq := IndexTopLevel(rest, '='); eq >= 0 {
		typ = strings.TrimSpace(rest[:eq])
		def := strings.TrimSpace(rest[eq+1:])
		if def == "" {
			return Parameter{}, errors.New("missing default value after '='")
		}
		param.Default = ParseLiteral(def)
		param.HasDefault = true
	}

	t, err := parseType(typ)
	if err != nil {
		return Parameter{}, err
	}
	param.Type = t
	return param, nil
}

// parseType parses a parameter type. [T] is a collection of T.
func parseType(s string) (Type, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		elem, err := parseType(s[1 : len(s)-1])
		if err != nil {
			return Type{}, err
		}
		return Type{Kind: KindCollection, Name: s, Elem: &elem}, nil
	}
	if !identPattern.MatchString(s) {
		return Type{}, fmt.Errorf("invalid type %q", s)
	}
	if primitiveTypes[s] {
		return Type{Kind: KindPrimitive, Name: s}, nil
	}
	return Type{Kind: KindCustom, Name: s}, nil
}

// parseStatements parses the operations in tokens [lo, hi).
func (p *parser) parseStatements(lo, hi int) ([]*Operation, error) {
	var ops []*Operation
	for i := lo; i < hi; {
		switch p.tokens[i].typ {
		case tokenNewline, tokenSemicolon, tokenComma:
			i++
			continue
		}

		op, next, err := p.parseStatement(i, hi)
		if err != nil {
			return nil, err
		}
		if op != nil {
			ops = append(ops, op)
		}
		i = next
	}
	return ops, nil
}

// parseStatement parses one statement starting at token i. Lines that are
// not operations are skipped. It returns the index to resume at.
func (p *parser) parseStatement(i, hi int) (*Operation, int, error) {
	t := p.tokens[i]
	if t.typ != tokenWord {
		return nil, p.skipLine(i, hi), nil
	}

	// alias: keyword
	if i+1 < hi && p.tokens[i+1].typ == tokenColon {
		k := p.skipNewlines(i + 2)
		if k < hi && p.tokens[k].typ == tokenWord {
			if typ, ok := opKeywords[p.tokens[k].val]; ok {
				if err := p.declare(i); err != nil {
					return nil, 0, err
				}
				return p.parseOperation(typ, t.val, i, k, hi)
			}
		}
		return nil, p.skipLine(i, hi), nil
	}

	typ, ok := opKeywords[t.val]
	if !ok {
		return nil, p.skipLine(i, hi), nil
	}
	next := p.skipNewlines(i + 1)
	if next >= hi || (p.tokens[next].typ != tokenLParen && p.tokens[next].typ != tokenLBrace) {
		return nil, p.skipLine(i, hi), nil
	}
	if typ == OpAgent {
		return nil, 0, p.errorAt(RuleInvalidSignature, "agent operations require an alias", i)
	}
	return p.parseOperation(typ, "", i, i, hi)
}

func (p *parser) parseOperation(typ OpType, alias string, start, kw, hi int) (*Operation, int, error) {
	if typ == OpAgent {
		return p.parseAgent(alias, start, kw, hi)
	}
	return p.parseGroup(typ, alias, start, kw, hi)
}

// declare records the alias at token i, failing if it was seen before.
func (p *parser) declare(i int) error {
	name := p.tokens[i].val
	if !identPattern.MatchString(name) {
		return p.errorAt(RuleInvalidSignature, fmt.Sprintf("invalid alias %q", name), i)
	}
	if p.seen[name] {
		return &SyntaxError{
			Rule:     RuleDuplicateAlias,
			Message:  fmt.Sprintf("Alias %q is already defined.", name),
			Fragment: name,
			Pos:      p.lx.posAt(p.tokens[i].pos),
		}
	}
	p.seen[name] = true
	return nil
}

func (p *parser) parseAgent(alias string, start, kw, hi int) (*Operation, int, error) {
	lp := kw + 1
	if lp >= hi || p.tokens[lp].typ != tokenLParen {
		return nil, 0, p.errorAt(RuleInvalidSignature, "expected '(' after agent", kw)
	}
	rp, err := p.match(lp, hi)
	if err != nil {
		return nil, 0, err
	}
	fields, err := p.inlineFields(lp, rp)
	if err != nil {
		return nil, 0, err
	}

	end := rp + 1
	if lb := p.skipNewlines(rp + 1); lb < hi && p.tokens[lb].typ == tokenLBrace {
		rb, err := p.match(lb, hi)
		if err != nil {
			return nil, 0, err
		}
		block, err := p.blockFields(lb, rb)
		if err != nil {
			return nil, 0, err
		}
		fields = append(fields, block...)
		end = rb + 1
	}

	cfg, err := p.agentConfig(fields)
	if err != nil {
		return nil, 0, err
	}
	return &Operation{
		ID:           uuid.NewString(),
		Type:         OpAgent,
		Name:         alias,
		Config:       cfg,
		Dependencies: cfg.Input.References(),
		Pos:          p.lx.posAt(p.tokens[start].pos),
	}, end, nil
}

func (p *parser) parseGroup(typ OpType, alias string, start, kw, hi int) (*Operation, int, error) {
	var args []field
	i := kw + 1
	if i < hi && p.tokens[i].typ == tokenLParen {
		rp, err := p.match(i, hi)
		if err != nil {
			return nil, 0, err
		}
		if args, err = p.inlineFields(i, rp); err != nil {
			return nil, 0, err
		}
		i = rp + 1
	}

	lb := p.skipNewlines(i)
	if lb >= hi || p.tokens[lb].typ != tokenLBrace {
		return nil, 0, p.errorAt(RuleInvalidSignature, fmt.Sprintf("expected '{' after %s", typ), kw)
	}
	rb, err := p.match(lb, hi)
	if err != nil {
		return nil, 0, err
	}
	children, err := p.parseStatements(lb+1, rb)
	if err != nil {
		return nil, 0, err
	}

	op := &Operation{
		ID:   uuid.NewString(),
		Type: typ,
		Name: alias,
		Pos:  p.lx.posAt(p.tokens[start].pos),
	}

	switch typ {
	case OpConditional:
		cfg := &ConditionalConfig{Operations: children}
		for _, a := range args {
			if a.key != "condition" {
				return nil, 0, p.fieldError(a, "unknown conditional argument")
			}
			cfg.Condition = ParseValue(a.raw)
		}
		op.Config = cfg
		op.Dependencies = cfg.Condition.References()
	case OpLoop:
		cfg := &LoopConfig{Iterations: DefaultLoopIterations, Operations: children}
		for _, a := range args {
			if a.key != "iterations" {
				return nil, 0, p.fieldError(a, "unknown loop argument")
			}
			n, ok := ParseLiteral(a.raw).(int)
			if !ok || n < 0 {
				return nil, 0, p.fieldError(a, "iterations must be a non-negative integer")
			}
			cfg.Iterations = n
		}
		op.Config = cfg
	default:
		op.Config = &GroupConfig{Operations: children}
	}

	return op, rb + 1, nil
}

// inlineFields parses the comma-separated key: value list between the
// parentheses at tokens lp and rp.
func (p *parser) inlineFields(lp, rp int) ([]field, error) {
	text := p.src[p.tokens[lp].end:p.tokens[rp].pos]
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	var fields []field
	for _, part := range SplitTopLevel(text, ',') {
		if part == "" {
			continue
		}
		c := IndexUnquotedColon(part)
		if c <= 0 {
			return nil, &SyntaxError{
				Rule:     RuleInvalidSignature,
				Message:  "expected `key: value`",
				Fragment: part,
				Pos:      p.lx.posAt(p.tokens[lp].pos),
			}
		}
		fields = append(fields, field{
			key: strings.TrimSpace(part[:c]),
			raw: strings.TrimSpace(part[c+1:]),
			pos: p.tokens[lp].pos,
		})
	}
	return fields, nil
}

// blockFields parses the key: value fields between the braces at tokens
// lb and rb. A value is the raw source up to the end of its line or a ';'.
// A list value runs to its closing ']', and a backtick string may span
// lines since it is a single token.
func (p *parser) blockFields(lb, rb int) ([]field, error) {
	var fields []field
	for i := lb + 1; i < rb; {
		t := p.tokens[i]
		if t.typ == tokenNewline || t.typ == tokenSemicolon {
			i++
			continue
		}
		if t.typ != tokenWord || i+1 >= rb || p.tokens[i+1].typ != tokenColon {
			return nil, p.errorAt(RuleInvalidField, "expected `key: value`", i)
		}

		j := i + 2
		if j < rb && p.tokens[j].typ == tokenLBracket {
			end, err := p.match(j, rb)
			if err != nil {
				return nil, err
			}
			j = end + 1
		}
		for j < rb && p.tokens[j].typ != tokenNewline && p.tokens[j].typ != tokenSemicolon {
			j++
		}

		f := field{
			key: t.val,
			raw: strings.TrimSpace(p.src[p.tokens[i+1].end:p.tokens[j].pos]),
			pos: t.pos,
		}
		if f.raw == "" {
			return nil, p.fieldError(f, "missing value")
		}
		fields = append(fields, f)
		i = j
	}
	return fields, nil
}

// agentConfig maps raw fields onto an AgentConfig. Later fields win.
func (p *parser) agentConfig(fields []field) (*AgentConfig, error) {
	cfg := &AgentConfig{}
	for _, f := range fields {
		switch f.key {
		case "model":
			cfg.Model = literalString(f.raw)
		case "prompt":
			cfg.Prompt = literalString(f.raw)
		case "role":
			cfg.Role = literalString(f.raw)
		case "task":
			cfg.Task = literalString(f.raw)
		case "schema":
			cfg.Schema = literalString(f.raw)
		case "input":
			cfg.Input = ParseValue(f.raw)
		case "temperature":
			switch v := ParseLiteral(f.raw).(type) {
			case float64:
				cfg.Temperature = &v
			case int:
				t := float64(v)
				cfg.Temperature = &t
			default:
				return nil, p.fieldError(f, "temperature must be a number")
			}
		case "maxTokens", "max_tokens":
			n, ok := ParseLiteral(f.raw).(int)
			if !ok || n < 0 {
				return nil, p.fieldError(f, "maxTokens must be a non-negative integer")
			}
			cfg.MaxTokens = n
		default:
			if cfg.Extra == nil {
				cfg.Extra = make(map[string]any)
			}
			cfg.Extra[f.key] = ParseLiteral(f.raw)
		}
	}
	return cfg, nil
}

func literalString(raw string) string {
	if s, ok := ParseLiteral(raw).(string); ok {
		return s
	}
	return strings.TrimSpace(raw)
}

// match returns the index of the token closing the bracket at open. The
// closer must come before hi.
func (p *parser) match(open, hi int) (int, error) {
	typ := p.tokens[open].typ
	want := closer[typ]
	depth := 0
	for i := open; i < hi && i < len(p.tokens); i++ {
		switch p.tokens[i].typ {
		case typ:
			depth++
		case want:
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return 0, p.errorAt(RuleUnbalancedBraces, fmt.Sprintf("%s is never closed", typ), open)
}

// skipNewlines returns the index of the first non-newline token at or
// after i.
func (p *parser) skipNewlines(i int) int {
	for i < len(p.tokens)-1 && p.tokens[i].typ == tokenNewline {
		i++
	}
	return i
}

// skipLine returns the index just past the line starting at i. A bracket
// opened on the line is skipped as a whole, so an unrecognized block is
// ignored together with its body.
func (p *parser) skipLine(i, hi int) int {
	for i < hi {
		switch p.tokens[i].typ {
		case tokenNewline:
			return i + 1
		case tokenLParen, tokenLBrace, tokenLBracket:
			end, err := p.match(i, hi)
			if err != nil {
				return hi
			}
			i = end + 1
			continue
		}
		i++
	}
	return hi
}

func (p *parser) errorAt(rule, msg string, tok int) error {
	offset := p.tokens[tok].pos
	return &SyntaxError{
		Rule:     rule,
		Message:  msg,
		Fragment: p.lineAt(offset),
		Pos:      p.lx.posAt(offset),
	}
}

func (p *parser) fieldError(f field, msg string) error {
	return &SyntaxError{
		Rule:     RuleInvalidField,
		Message:  f.key + ": " + msg,
		Fragment: f.key + ": " + f.raw,
		Pos:      p.lx.posAt(f.pos),
	}
}

// lineAt returns the trimmed source line containing offset.
func (p *parser) lineAt(offset int) string {
	pos := p.lx.posAt(offset)
	start := p.lx.lineStarts[pos.Line-1]
	end := strings.IndexByte(p.src[start:], '\n')
	if end < 0 {
		end = len(p.src)
	} else {
		end += start
	}
	return strings.TrimSpace(p.src[start:end])
}

func firstLine(src string) string {
	for _, line := range strings.Split(src, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			if len(line) > 60 {
				line = line[:60]
			}
			return line
		}
	}
	return ""
}
