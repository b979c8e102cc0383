package pipeline

import (
	"errors"
	"testing"
)

func TestDetectKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		want    Kind
		wantErr bool
	}{
		{name: "class", body: "classDiagram\n  class Agent", want: KindClass},
		{name: "class v2", body: "classDiagram-v2\n  class Agent", want: KindClass},
		{name: "sequence", body: "sequenceDiagram\n  A->>B: hi", want: KindSequence},
		{name: "graph", body: "graph TD\n  A-->B", want: KindFlow},
		{name: "flowchart with semicolon", body: "flowchart LR;\n  A-->B", want: KindFlow},
		{name: "flowchart elk", body: "flowchart-elk TD\n  A-->B", want: KindFlow},
		{name: "leading blank lines and comments", body: "\n  \n%% generated\nsequenceDiagram\n", want: KindSequence},
		{name: "front matter", body: "---\ntitle: Agents\n---\nclassDiagram\n", want: KindClass},
		{name: "indented header", body: "   graph BT\n", want: KindFlow},
		{name: "pie", body: "pie title Pets\n  \"Dogs\" : 3", wantErr: true},
		{name: "er diagram", body: "erDiagram\n  A ||--o{ B : has", wantErr: true},
		{name: "empty", body: "", wantErr: true},
		{name: "only comments", body: "%% nothing here\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := DetectKind(tt.body)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedKind) {
					t.Fatalf("DetectKind() error = %v, want ErrUnsupportedKind", err)
				}
				if got != KindUnknown {
					t.Errorf("DetectKind() = %v, want unknown", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("DetectKind() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("DetectKind() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKind_String(t *testing.T) {
	t.Parallel()

	for k, want := range map[Kind]string{
		KindClass:    "class",
		KindSequence: "sequence",
		KindFlow:     "flow",
		KindUnknown:  "unknown",
		Kind(42):     "unknown",
	} {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", int(k), got, want)
		}
	}
}
