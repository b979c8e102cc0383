package pipeline

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// ---------------------------------------------------------------------------
// TestStripClassDef - Style definitions removed, declarations kept
// ---------------------------------------------------------------------------

func TestStripClassDef(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "classDef removed",
			input: "classDiagram\n  classDef important fill:#f96\n  class Agent\n",
			want:  "classDiagram\n  class Agent\n",
		},
		{
			name:  "several definitions",
			input: "classDiagram\nclassDef a fill:#fff\nclassDef b stroke:#000\nclass A\n",
			want:  "classDiagram\nclass A\n",
		},
		{
			name:  "no trailing newline",
			input: "classDiagram\n  class Agent\n  classDef x fill:#fff",
			want:  "classDiagram\n  class Agent\n",
		},
		{
			name:  "class named classDefinition untouched",
			input: "classDiagram\n  class classDefinition\n",
			want:  "classDiagram\n  class classDefinition\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := stripClassDef(tt.input); got != tt.want {
				t.Errorf("stripClassDef() = %q, want %q", got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestStripClassStyle - Style assignments removed, structure kept
// ---------------------------------------------------------------------------

func TestStripClassStyle(t *testing.T) {
	t.Parallel()

	input := `classDiagram
  class Agent
  class Tool {
    +run()
  }
  class Agent important
  class Agent,Tool highlight
  cssClass "Agent,Tool" highlight
  style Agent fill:#f9f,color:#000
  class Memory:::warn
  class Box~T~
  Agent --> Tool
`
	want := `classDiagram
  class Agent
  class Tool {
    +run()
  }
  class Memory
  class Box~T~
  Agent --> Tool
`
	if diff := cmp.Diff(want, stripClassStyle(input)); diff != "" {
		t.Errorf("stripClassStyle() mismatch (-want +got):\n%s", diff)
	}
}

// ---------------------------------------------------------------------------
// TestNormalizeNotes - Notes rewritten to the single-line quoted form
// ---------------------------------------------------------------------------

func TestNormalizeNotes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "colon form",
			input: "  note for Agent: \"Runs the loop\"\n",
			want:  "  note for Agent \"Runs the loop\"\n",
		},
		{
			name:  "unquoted text with inner quotes",
			input: "note for Agent : runs \"fast\" loop\n",
			want:  "note for Agent \"runs 'fast' loop\"\n",
		},
		{
			name:  "quoted text with inner quotes",
			input: "note for Agent \"says \"hi\" twice\"\n",
			want:  "note for Agent \"says 'hi' twice\"\n",
		},
		{
			name:  "multi-line quoted note joined",
			input: "  note for Tool \"first line\n      second line\"\nclass Tool\n",
			want:  "  note for Tool \"first line second line\"\nclass Tool\n",
		},
		{
			name:  "general note already normal",
			input: "note \"general remark\"\n",
			want:  "note \"general remark\"\n",
		},
		{
			name:  "general note with colon",
			input: "note : plain text\n",
			want:  "note \"plain text\"\n",
		},
		{
			name:  "unterminated quote left alone",
			input: "note for A \"never closed\nmore text\n",
			want:  "note for A \"never closed\nmore text\n",
		},
		{
			name:  "identifiers starting with note untouched",
			input: "class notebook\nnotebook --> Agent\n",
			want:  "class notebook\nnotebook --> Agent\n",
		},
		{
			name:  "bare note keyword untouched",
			input: "note\n",
			want:  "note\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := normalizeNotes(tt.input); got != tt.want {
				t.Errorf("normalizeNotes() = %q, want %q", got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestRules_Idempotent - Applying a rule twice equals applying it once
// ---------------------------------------------------------------------------

func TestRules_Idempotent(t *testing.T) {
	t.Parallel()

	input := `classDiagram
  classDef hot fill:#f96
  class Agent:::hot {
    +plan()
  }
  class Tool hot
  style Tool stroke:#333
  note for Agent: says "hello"
  note for Tool "spans
    two lines"
  Agent --> Tool
`

	for _, rule := range RulesFor(KindClass) {
		t.Run(rule.Name, func(t *testing.T) {
			t.Parallel()
			once := rule.Apply(input)
			if twice := rule.Apply(once); twice != once {
				t.Errorf("%s not idempotent:\nonce:  %q\ntwice: %q", rule.Name, once, twice)
			}
		})
	}
}

func TestRulesFor(t *testing.T) {
	t.Parallel()

	var names []string
	for _, r := range RulesFor(KindClass) {
		names = append(names, r.Name)
	}
	want := []string{RuleStripClassDef, RuleStripClassStyle, RuleNormalizeNotes}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("RulesFor(class) mismatch (-want +got):\n%s", diff)
	}

	for _, k := range []Kind{KindSequence, KindFlow, KindUnknown} {
		if rules := RulesFor(k); len(rules) != 0 {
			t.Errorf("RulesFor(%v) = %d rules, want none", k, len(rules))
		}
	}
}
