package dsl

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	intPattern   = regexp.MustCompile(`^-?\d+$`)
	floatPattern = regexp.MustCompile(`^-?\d+\.\d+$`)
	identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// ParseLiteral converts literal source text into a Go value:
// true/false become bool, integers int, decimals float64, and quoted or
// backtick strings are unquoted and unescaped. Anything else is returned
// as the trimmed source text, which is how bare identifiers pass through.
func ParseLiteral(raw string) any {
	s := strings.TrimSpace(raw)

	switch s {
	case "true":
		return true
	case "false":
		return false
	}

	if intPattern.MatchString(s) {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	if floatPattern.MatchString(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}

	if isQuoted(s) {
		return unescape(s[1 : len(s)-1])
	}

	return s
}

// isQuoted reports whether s is wrapped in matching ", ' or ` delimiters.
func isQuoted(s string) bool {
	if len(s) < 2 {
		return false
	}
	q := s[0]
	if q != '"' && q != '\'' && q != '`' {
		return false
	}
	return s[len(s)-1] == q
}

// escapeOrder lists escape sequences in the order they are decoded. The
// backslash pair is decoded first, so `\\n` ends up as a newline.
var escapeOrder = []struct{ seq, repl string }{
	{`\\`, `\`},
	{`\"`, `"`},
	{"\\`", "`"},
	{`\n`, "\n"},
	{`\t`, "\t"},
	{`\r`, "\r"},
	{`\b`, "\b"},
	{`\'`, `'`},
}

// unescape decodes escape sequences in escapeOrder. Unknown escapes are
// kept as written.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	for _, e := range escapeOrder {
		s = strings.ReplaceAll(s, e.seq, e.repl)
	}
	return s
}
