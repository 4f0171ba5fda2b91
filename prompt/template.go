package prompt

import (
	"fmt"
	"regexp"
	"strings"
)

var exprPattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// ExtractExpressions finds all {{...}} expressions in a string.
func ExtractExpressions(s string) []string {
	matches := exprPattern.FindAllStringSubmatch(s, -1)
	exprs := make([]string, 0, len(matches))
	for _, m := range matches {
		exprs = append(exprs, strings.TrimSpace(m[1]))
	}
	return exprs
}

// Interpolate replaces {{name}} placeholders with values from vars.
// Unknown names are left untouched.
func Interpolate(template string, vars map[string]any) string {
	return exprPattern.ReplaceAllStringFunc(template, func(match string) string {
		name := strings.TrimSpace(match[2 : len(match)-2])
		name = strings.TrimPrefix(name, "$")
		val, ok := vars[name]
		if !ok {
			return match
		}
		return fmt.Sprint(val)
	})
}
