package dsl

import (
	"fmt"
	"sort"
)

type tokenType int

const (
	tokenWord    tokenType = iota // identifiers, numbers, $vars, bare text
	tokenString                   // "...", '...' or `...`, delimiters included
	tokenLParen                   // (
	tokenRParen                   // )
	tokenLBrace                   // {
	tokenRBrace                   // }
	tokenLBracket                 // [
	tokenRBracket                 // ]
	tokenColon                    // :
	tokenComma                    // ,
	tokenSemicolon                // ;
	tokenEquals                   // =
	tokenBang                     // !
	tokenNewline
	tokenEOF
)

var punctuation = map[byte]tokenType{
	'(': tokenLParen,
	')': tokenRParen,
	'{': tokenLBrace,
	'}': tokenRBrace,
	'[': tokenLBracket,
	']': tokenRBracket,
	':': tokenColon,
	',': tokenComma,
	';': tokenSemicolon,
	'=': tokenEquals,
	'!': tokenBang,
}

// closer maps an opening token to the token that closes it.
var closer = map[tokenType]tokenType{
	tokenLParen:   tokenRParen,
	tokenLBrace:   tokenRBrace,
	tokenLBracket: tokenRBracket,
}

func (t tokenType) String() string {
	switch t {
	case tokenWord:
		return "word"
	case tokenString:
		return "string"
	case tokenNewline:
		return "newline"
	case tokenEOF:
		return "end of input"
	}
	for ch, typ := range punctuation {
		if typ == t {
			return fmt.Sprintf("'%c'", ch)
		}
	}
	return "unknown"
}

type token struct {
	typ tokenType
	val string
	pos int // byte offset of the first byte
	end int // byte offset just past the last byte
}

type lexer struct {
	src        string
	pos        int
	tokens     []token
	lineStarts []int
}

func newLexer(src string) *lexer {
	l := &lexer{src: src, lineStarts: []int{0}}
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			l.lineStarts = append(l.lineStarts, i+1)
		}
	}
	return l
}

// posAt converts a byte offset into a Pos with line and column.
func (l *lexer) posAt(offset int) Pos {
	line := sort.Search(len(l.lineStarts), func(i int) bool {
		return l.lineStarts[i] > offset
	})
	return Pos{Offset: offset, Line: line, Column: offset - l.lineStarts[line-1] + 1}
}

func (l *lexer) lex() ([]token, error) {
	for l.pos < len(l.src) {
		ch := l.src[l.pos]
		switch {
		case ch == '\n':
			l.emit(tokenNewline, l.pos+1)
		case ch == ' ' || ch == '\t' || ch == '\r':
			l.pos++
		case isQuote(ch) && opensQuote(l.src, l.pos):
			if err := l.readString(ch); err != nil {
				return nil, err
			}
		default:
			if typ, ok := punctuation[ch]; ok {
				l.emit(typ, l.pos+1)
				continue
			}
			l.readWord()
		}
	}
	l.tokens = append(l.tokens, token{typ: tokenEOF, pos: len(l.src), end: len(l.src)})
	return l.tokens, nil
}

func (l *lexer) emit(typ tokenType, end int) {
	l.tokens = append(l.tokens, token{typ: typ, val: l.src[l.pos:end], pos: l.pos, end: end})
	l.pos = end
}

func (l *lexer) readString(quote byte) error {
	start := l.pos
	for i := start + 1; i < len(l.src); i++ {
		switch ch := l.src[i]; {
		case ch == '\\':
			i++
		case ch == quote:
			l.emit(tokenString, i+1)
			return nil
		case ch == '\n' && quote != '`':
			return l.unterminated(start, i)
		}
	}
	return l.unterminated(start, len(l.src))
}

func (l *lexer) unterminated(start, end int) error {
	frag := l.src[start:end]
	if len(frag) > 40 {
		frag = frag[:40]
	}
	msg := "string is not closed before end of line"
	if end >= len(l.src) {
		msg = "string is not closed before end of input"
	}
	return &SyntaxError{
		Rule:     RuleUnterminatedString,
		Message:  msg,
		Fragment: frag,
		Pos:      l.posAt(start),
	}
}

func (l *lexer) readWord() {
	end := l.pos
	for end < len(l.src) {
		ch := l.src[end]
		if ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n' {
			break
		}
		if _, ok := punctuation[ch]; ok {
			break
		}
		end++
	}
	l.emit(tokenWord, end)
}
