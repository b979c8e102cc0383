package pipeline

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// ---------------------------------------------------------------------------
// TestExtract - Delimiter stripping and ordering
// ---------------------------------------------------------------------------

func TestExtract(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    []Block
	}{
		{
			name:    "no blocks",
			content: "# Chapter 1\n\nJust prose.\n",
			want:    nil,
		},
		{
			name:    "empty document",
			content: "",
			want:    nil,
		},
		{
			name:    "single flowchart",
			content: "# Title\n\n```mermaid\ngraph TD\n  A-->B\n```\n",
			want:    []Block{{Index: 1, Line: 3, Body: "graph TD\n  A-->B"}},
		},
		{
			name:    "two blocks keep document order",
			content: "```mermaid\nclassDiagram\n  class Agent\n```\n\ntext\n\n```mermaid\nsequenceDiagram\n  A->>B: hi\n```\n",
			want: []Block{
				{Index: 1, Line: 1, Body: "classDiagram\n  class Agent"},
				{Index: 2, Line: 8, Body: "sequenceDiagram\n  A->>B: hi"},
			},
		},
		{
			name:    "other languages ignored",
			content: "```python\nprint('```mermaid')\n```\n\n```mermaid\ngraph LR\n  X-->Y\n```\n",
			want:    []Block{{Index: 1, Line: 5, Body: "graph LR\n  X-->Y"}},
		},
		{
			name:    "mermaid text inside another fence is not a block",
			content: "~~~markdown\n```mermaid\ngraph TD\n```\n~~~\n",
			want:    nil,
		},
		{
			name:    "trailing blank line inside block is preserved",
			content: "```mermaid\ngraph TD\n  A-->B\n\n```\n",
			want:    []Block{{Index: 1, Line: 1, Body: "graph TD\n  A-->B\n"}},
		},
		{
			name:    "empty block",
			content: "```mermaid\n```\n",
			want:    []Block{{Index: 1, Line: 1, Body: ""}},
		},
		{
			name:    "CRLF input normalized",
			content: "intro\r\n```mermaid\r\ngraph TD\r\n  A-->B\r\n```\r\n",
			want:    []Block{{Index: 1, Line: 2, Body: "graph TD\n  A-->B"}},
		},
		{
			name:    "tilde fence and info attributes",
			content: "~~~mermaid {.wide}\ngraph TD\n  A-->B\n~~~\n",
			want:    []Block{{Index: 1, Line: 1, Body: "graph TD\n  A-->B"}},
		},
		{
			name:    "block inside a blockquote",
			content: "> ```mermaid\n> graph TD\n> A-->B\n> ```\n",
			want:    []Block{{Index: 1, Line: 1, Body: "graph TD\nA-->B"}},
		},
		{
			name:    "closer at end of file without newline",
			content: "```mermaid\ngraph TD\n```",
			want:    []Block{{Index: 1, Line: 1, Body: "graph TD"}},
		},
	}

	ex := NewExtractor("")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ex.Extract(tt.content)
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// Every body must equal the bytes strictly between the fence lines.
func TestExtract_RoundTrip(t *testing.T) {
	t.Parallel()

	bodies := []string{
		"graph TD\n  A[Start] --> B{Check}\n  B -->|yes| C",
		"classDiagram\n  class Agent {\n    +run()\n  }\n  note for Agent \"loops\"",
		"sequenceDiagram\n  participant U\n  U->>S: \"quoted\" <b>html</b>",
	}

	var doc strings.Builder
	doc.WriteString("# Chapter\n")
	for _, b := range bodies {
		doc.WriteString("\nSome prose.\n\n```mermaid\n" + b + "\n```\n")
	}

	got, err := NewExtractor("mermaid").Extract(doc.String())
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(got) != len(bodies) {
		t.Fatalf("Extract() returned %d blocks, want %d", len(got), len(bodies))
	}
	for i, b := range got {
		if b.Body != bodies[i] {
			t.Errorf("block %d body = %q, want %q", i+1, b.Body, bodies[i])
		}
		if b.Index != i+1 {
			t.Errorf("block %d index = %d", i+1, b.Index)
		}
	}
}

func TestExtract_Deterministic(t *testing.T) {
	t.Parallel()

	content := "```mermaid\ngraph TD\n  A-->B\n```\n```mermaid\ngraph LR\n```\n"
	ex := NewExtractor("mermaid")

	first, err := ex.Extract(content)
	if err != nil {
		t.Fatal(err)
	}
	second, err := ex.Extract(content)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Extract() not deterministic (-first +second):\n%s", diff)
	}
}

func TestExtract_CustomTag(t *testing.T) {
	t.Parallel()

	ex := NewExtractor("diagram")
	if ex.Tag() != "diagram" {
		t.Errorf("Tag() = %q", ex.Tag())
	}

	got, err := ex.Extract("```mermaid\ngraph TD\n```\n```diagram\ngraph LR\n```\n")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Body != "graph LR" {
		t.Errorf("Extract() = %+v, want only the diagram-tagged block", got)
	}
}

// ---------------------------------------------------------------------------
// TestExtract_Malformed - Fence mismatches are reported, not mis-extracted
// ---------------------------------------------------------------------------

func TestExtract_Malformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		content  string
		wantLine string
	}{
		{
			name:     "unclosed diagram block",
			content:  "# T\n\n```mermaid\ngraph TD\n  A-->B\n",
			wantLine: "line 3",
		},
		{
			name:     "nested opener inside diagram block",
			content:  "```mermaid\ngraph TD\n```mermaid\nA-->B\n```\n",
			wantLine: "line 3",
		},
		{
			name:     "stray closer opens a fence that never ends",
			content:  "```mermaid\ngraph TD\n```\ntext\n```\nmore\n",
			wantLine: "line 5",
		},
		{
			name:     "blockquote ends before the diagram block closes",
			content:  "> ```mermaid\n> graph TD\n\nafter the quote\n```\n",
			wantLine: "line 1",
		},
		{
			name:     "nested blockquote ends before the diagram block closes",
			content:  "> > ```mermaid\n> > graph TD\n> A-->B\n> > ```\n",
			wantLine: "line 1",
		},
		{
			name:     "unclosed fence of another language",
			content:  "```python\nx = 1\n",
			wantLine: "line 1",
		},
	}

	ex := NewExtractor("mermaid")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ex.Extract(tt.content)
			if !errors.Is(err, ErrMalformedInput) {
				t.Fatalf("Extract() error = %v, want ErrMalformedInput", err)
			}
			if got != nil {
				t.Errorf("Extract() returned blocks alongside error: %+v", got)
			}
			if !strings.Contains(err.Error(), tt.wantLine) {
				t.Errorf("Extract() error = %q, want mention of %q", err, tt.wantLine)
			}
		})
	}
}

// Bodies always come back with LF line endings, whatever the document used;
// Line still counts the original lines.
func TestExtract_LineEndingsNormalized(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{name: "CRLF", content: "# T\r\n\r\n```mermaid\r\ngraph TD\r\n  A-->B\r\n  B-->C\r\n```\r\n"},
		{name: "CR", content: "# T\r\r```mermaid\rgraph TD\r  A-->B\r  B-->C\r```\r"},
		{name: "mixed", content: "# T\n\r\n```mermaid\rgraph TD\r\n  A-->B\n  B-->C\r```\n"},
	}

	want := []Block{{Index: 1, Line: 3, Body: "graph TD\n  A-->B\n  B-->C"}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := NewExtractor("").Extract(tt.content)
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
			}
			for _, b := range got {
				if strings.ContainsRune(b.Body, '\r') {
					t.Errorf("body %q keeps a carriage return", b.Body)
				}
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestParseFence - CommonMark fence recognition
// ---------------------------------------------------------------------------

func TestParseFence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line   string
		ok     bool
		char   byte
		length int
		info   string
	}{
		{line: "```mermaid", ok: true, char: '`', length: 3, info: "mermaid"},
		{line: "   ~~~~ mermaid extra", ok: true, char: '~', length: 4, info: "mermaid extra"},
		{line: "```", ok: true, char: '`', length: 3},
		{line: "    ```mermaid", ok: false},
		{line: "``mermaid", ok: false},
		{line: "```a`b", ok: false},
		{line: "", ok: false},
		{line: "text ```", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			t.Parallel()

			f, ok := parseFence(tt.line)
			if ok != tt.ok {
				t.Fatalf("parseFence(%q) ok = %v, want %v", tt.line, ok, tt.ok)
			}
			if !ok {
				return
			}
			if f.char != tt.char || f.length != tt.length || f.info != tt.info {
				t.Errorf("parseFence(%q) = %+v", tt.line, f)
			}
		})
	}
}

func TestNormalizeLineEndings(t *testing.T) {
	t.Parallel()

	if got := NormalizeLineEndings("a\r\nb\rc\n"); got != "a\nb\nc\n" {
		t.Errorf("NormalizeLineEndings() = %q", got)
	}
}
