package dsl

import "strings"

// StripComments removes // comments that appear outside string literals.
// A comment runs to the end of its line; the newline itself is kept so
// line and column positions stay aligned with the original source.
// Stripping is idempotent.
func StripComments(src string) string {
	var b strings.Builder
	b.Grow(len(src))

	var quote byte
	for i := 0; i < len(src); i++ {
		ch := src[i]
		if quote != 0 {
			b.WriteByte(ch)
			if ch == '\\' && i+1 < len(src) {
				i++
				b.WriteByte(src[i])
				continue
			}
			// Only backtick strings may span lines.
			if ch == quote || (ch == '\n' && quote != '`') {
				quote = 0
			}
			continue
		}

		if ch == '/' && i+1 < len(src) && src[i+1] == '/' {
			for i < len(src) && src[i] != '\n' {
				i++
			}
			if i < len(src) {
				b.WriteByte('\n')
			}
			continue
		}

		if isQuote(ch) && opensQuote(src, i) {
			quote = ch
		}
		b.WriteByte(ch)
	}
	return b.String()
}
