package dsl

import "strings"

func isQuote(ch byte) bool {
	return ch == '"' || ch == '\'' || ch == '`'
}

// opensQuote reports whether the quote character at s[i] starts a string.
// Quotes inside bare words, like the apostrophe in "don't", are text.
func opensQuote(s string, i int) bool {
	if i == 0 {
		return true
	}
	switch c := s[i-1]; c {
	case ' ', '\t', '\r', '\n':
		return true
	default:
		_, ok := punctuation[c]
		return ok
	}
}

// scanTopLevel calls fn with the index of every byte of s that is outside
// quoted strings and outside (), [] or {} nesting. Scanning stops when fn
// returns false.
func scanTopLevel(s string, fn func(i int) bool) {
	var quote byte
	depth := 0

	for i := 0; i < len(s); i++ {
		ch := s[i]
		if quote != 0 {
			if ch == '\\' {
				i++
				continue
			}
			if ch == quote {
				quote = 0
			}
			continue
		}
		if isQuote(ch) && opensQuote(s, i) {
			quote = ch
			continue
		}
		switch ch {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
		default:
			if depth == 0 && !fn(i) {
				return
			}
		}
	}
}

// SplitTopLevel splits s on sep, ignoring separators inside quoted strings
// and inside (), [] or {} nesting. Parts are trimmed; empty parts are kept
// so callers can decide whether they are an error.
func SplitTopLevel(s string, sep byte) []string {
	var parts []string
	start := 0
	scanTopLevel(s, func(i int) bool {
		if s[i] == sep {
			parts = append(parts, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
		return true
	})
	return append(parts, strings.TrimSpace(s[start:]))
}

// IndexTopLevel returns the index of the first sep outside quoted strings
// and bracket nesting, or -1.
func IndexTopLevel(s string, sep byte) int {
	idx := -1
	scanTopLevel(s, func(i int) bool {
		if s[i] == sep {
			idx = i
			return false
		}
		return true
	})
	return idx
}

// IndexUnquotedColon returns the index of the first ':' outside quoted
// strings, or -1.
func IndexUnquotedColon(s string) int {
	var quote byte
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if quote != 0 {
			if ch == '\\' {
				i++
				continue
			}
			if ch == quote {
				quote = 0
			}
			continue
		}
		switch {
		case isQuote(ch) && opensQuote(s, i):
			quote = ch
		case ch == ':':
			return i
		}
	}
	return -1
}
