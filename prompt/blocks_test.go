package prompt

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestParseBlocks(t *testing.T) {
	tests := []struct {
		name string
		text string
		want map[string]string
		keys []string
	}{
		{
			name: "single block",
			text: "<ROLE>reviewer</ROLE>",
			want: map[string]string{"ROLE": "reviewer"},
			keys: []string{"ROLE"},
		},
		{
			name: "multi-line content is trimmed",
			text: "<task>\n  line one\n  line two\n</task>",
			want: map[string]string{"TASK": "line one\n  line two"},
			keys: []string{"TASK"},
		},
		{
			name: "later tag overwrites earlier",
			text: "<ROLE>a</ROLE><TASK>t</TASK><ROLE>b</ROLE>",
			want: map[string]string{"ROLE": "b", "TASK": "t"},
			keys: []string{"ROLE", "TASK"},
		},
		{
			name: "different nested tag stays in content",
			text: "<INPUT>x <NOTE>n</NOTE> y</INPUT>",
			want: map[string]string{"INPUT": "x <NOTE>n</NOTE> y"},
			keys: []string{"INPUT"},
		},
		{
			name: "unterminated tag is ignored",
			text: "<ROLE>dangling <TASK>t</TASK>",
			want: map[string]string{"TASK": "t"},
			keys: []string{"TASK"},
		},
		{
			name: "no blocks",
			text: "plain text",
			want: map[string]string{},
			keys: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseBlocks(tt.text)
			if !reflect.DeepEqual(got.Map(), tt.want) {
				t.Errorf("ParseBlocks() = %v, want %v", got.Map(), tt.want)
			}
			if !reflect.DeepEqual(got.Keys(), tt.keys) {
				t.Errorf("ParseBlocks() keys = %v, want %v", got.Keys(), tt.keys)
			}
		})
	}
}

func TestComposeParseRoundTrip(t *testing.T) {
	blocks := NewBlocks()
	blocks.Set("ROLE", "a")
	blocks.Set("TASK", "b")

	text := Compose(blocks)
	want := "<ROLE>\na\n</ROLE>\n\n<TASK>\nb\n</TASK>"
	if text != want {
		t.Errorf("Compose() = %q, want %q", text, want)
	}

	got := ParseBlocks(text).Map()
	if !reflect.DeepEqual(got, map[string]string{"ROLE": "a", "TASK": "b"}) {
		t.Errorf("round trip = %v", got)
	}
}

func TestRenderOrdersReservedBlocks(t *testing.T) {
	blocks := NewBlocks()
	blocks.Set("INPUT", "in")
	blocks.Set("EXAMPLES", "ex")
	blocks.Set("TASK", "task")
	blocks.Set("ROLE", "role")
	blocks.Set("SCHEMA", "schema")
	blocks.Set("NOTES", "notes")

	got := Render(blocks)
	order := []string{"<ROLE>", "<SCHEMA>", "<TASK>", "<INPUT>", "<EXAMPLES>", "<NOTES>"}
	last := -1
	for _, tag := range order {
		idx := strings.Index(got, tag)
		if idx < 0 {
			t.Fatalf("Render() missing %s in %q", tag, got)
		}
		if idx < last {
			t.Errorf("Render() %s out of order in %q", tag, got)
		}
		last = idx
	}
}

func TestBuild(t *testing.T) {
	t.Run("explicit prompt is verbatim", func(t *testing.T) {
		got, err := Build(Request{Prompt: "raw prompt", Role: "ignored"})
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		if got != "raw prompt" {
			t.Errorf("Build() = %q, want %q", got, "raw prompt")
		}
	})

	t.Run("absent fields are omitted", func(t *testing.T) {
		got, err := Build(Request{Role: "R", Task: "T"})
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		if strings.Contains(got, "<INPUT>") || strings.Contains(got, "<SCHEMA>") {
			t.Errorf("Build() = %q, should not contain INPUT or SCHEMA", got)
		}
		if !strings.HasPrefix(got, "<ROLE>\nR\n</ROLE>") {
			t.Errorf("Build() = %q, want ROLE first", got)
		}
	})

	t.Run("missing role", func(t *testing.T) {
		_, err := Build(Request{Task: "T"})
		if err == nil || err.Error() != "Missing required <ROLE> block in prompt" {
			t.Fatalf("Build() error = %v", err)
		}
		if !errors.Is(err, ErrMissingBlock) {
			t.Error("errors.Is(err, ErrMissingBlock) should be true")
		}
	})

	t.Run("missing task", func(t *testing.T) {
		_, err := Build(Request{Role: "R", Input: "x"})
		var ce *ContractError
		if !errors.As(err, &ce) || ce.Block != TagTask {
			t.Fatalf("Build() error = %v, want TASK contract error", err)
		}
	})
}

func TestInterpolate(t *testing.T) {
	vars := map[string]any{"name": "World", "n": 3}

	tests := []struct {
		template string
		want     string
	}{
		{"Hello, {{name}}!", "Hello, World!"},
		{"{{ $name }} x{{n}}", "World x3"},
		{"keep {{missing}}", "keep {{missing}}"},
		{"Static text", "Static text"},
	}

	for _, tt := range tests {
		if got := Interpolate(tt.template, vars); got != tt.want {
			t.Errorf("Interpolate(%q) = %q, want %q", tt.template, got, tt.want)
		}
	}

	if got := ExtractExpressions("{{ a }} and {{b}}"); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("ExtractExpressions() = %v", got)
	}
}
