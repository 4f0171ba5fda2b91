// Package prompt converts between tagged prompt blocks and prompt text.
//
// A block is a delimited region of a prompt:
//
//	<ROLE>
//	You are a reviewer.
//	</ROLE>
//
// ROLE, TASK, INPUT and SCHEMA are reserved. ROLE and TASK must be present
// before a prompt is sent to an agent.
package prompt

import (
	"regexp"
	"strings"
)

// Reserved block tags.
const (
	TagRole   = "ROLE"
	TagTask   = "TASK"
	TagInput  = "INPUT"
	TagSchema = "SCHEMA"
)

// reservedOrder is the order reserved blocks appear in a rendered prompt.
var reservedOrder = []string{TagRole, TagSchema, TagTask, TagInput}

// blockPattern matches <TAG>...</TAG> across lines. Go's regexp has no
// backreferences, so the closing tag is checked in ParseBlocks.
var blockPattern = regexp.MustCompile(`(?s)<([A-Za-z_][A-Za-z0-9_]*)>(.*?)</([A-Za-z_][A-Za-z0-9_]*)>`)

// Blocks is an insertion-ordered mapping of upper-cased tag to content.
type Blocks struct {
	keys   []string
	values map[string]string
}

// NewBlocks creates an empty block mapping.
func NewBlocks() *Blocks {
	return &Blocks{values: make(map[string]string)}
}

// Set stores content under tag. Overwriting keeps the original position.
func (b *Blocks) Set(tag, content string) {
	tag = strings.ToUpper(tag)
	if _, ok := b.values[tag]; !ok {
		b.keys = append(b.keys, tag)
	}
	b.values[tag] = content
}

// Get returns the content stored under tag.
func (b *Blocks) Get(tag string) (string, bool) {
	v, ok := b.values[strings.ToUpper(tag)]
	return v, ok
}

// Has reports whether tag is present.
func (b *Blocks) Has(tag string) bool {
	_, ok := b.values[strings.ToUpper(tag)]
	return ok
}

// Keys returns the tags in insertion order.
func (b *Blocks) Keys() []string {
	out := make([]string, len(b.keys))
	copy(out, b.keys)
	return out
}

// Len returns the number of blocks.
func (b *Blocks) Len() int {
	return len(b.keys)
}

// Map returns a copy of the blocks as a plain map.
func (b *Blocks) Map() map[string]string {
	out := make(map[string]string, len(b.values))
	for k, v := range b.values {
		out[k] = v
	}
	return out
}

// ParseBlocks extracts every <TAG>...</TAG> region from text. Tags are
// upper-cased and content is trimmed. Matching is non-greedy, so a region
// closes at the first end tag with the same name; nested tags of the same
// name are not supported.
func ParseBlocks(text string) *Blocks {
	blocks := NewBlocks()

	rest := text
	for {
		loc := blockPattern.FindStringSubmatchIndex(rest)
		if loc == nil {
			break
		}
		open := rest[loc[2]:loc[3]]

		if open != rest[loc[6]:loc[7]] {
			// The first closing tag belongs to a different block. Look for
			// the matching one further on.
			end := strings.Index(rest[loc[3]+1:], "</"+open+">")
			if end < 0 {
				rest = rest[loc[3]+1:]
				continue
			}
			contentStart := loc[3] + 1
			contentEnd := contentStart + end
			blocks.Set(open, strings.TrimSpace(rest[contentStart:contentEnd]))
			rest = rest[contentEnd+len(open)+3:]
			continue
		}

		blocks.Set(open, strings.TrimSpace(rest[loc[4]:loc[5]]))
		rest = rest[loc[1]:]
	}

	return blocks
}

// Compose renders blocks as <TAG>\ncontent\n</TAG> joined by blank lines,
// in insertion order.
func Compose(blocks *Blocks) string {
	parts := make([]string, 0, blocks.Len())
	for _, tag := range blocks.keys {
		parts = append(parts, renderBlock(tag, blocks.values[tag]))
	}
	return strings.Join(parts, "\n\n")
}

// Render composes the final agent prompt: reserved blocks first in
// ROLE, SCHEMA, TASK, INPUT order (absent ones omitted), followed by all
// other blocks in the order they were encountered.
func Render(blocks *Blocks) string {
	ordered := NewBlocks()
	for _, tag := range reservedOrder {
		if v, ok := blocks.Get(tag); ok {
			ordered.Set(tag, v)
		}
	}
	for _, tag := range blocks.keys {
		if !isReserved(tag) {
			ordered.Set(tag, blocks.values[tag])
		}
	}
	return Compose(ordered)
}

func renderBlock(tag, content string) string {
	return "<" + tag + ">\n" + content + "\n</" + tag + ">"
}

func isReserved(tag string) bool {
	for _, r := range reservedOrder {
		if r == tag {
			return true
		}
	}
	return false
}
