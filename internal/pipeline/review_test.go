package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
)

const testReviewTemplate = `<title>{{.Title}} {{.Chapter}}</title><style>{{.CSS}}</style>
{{range .Items}}<h2>{{.Name}}</h2>{{if .Image}}<img src="{{.Image}}">{{else}}missing{{end}}{{.Source}}{{end}}`

func TestReviewRenderer_Render(t *testing.T) {
	t.Parallel()

	r := NewReviewRenderer()
	page := ReviewPage{
		Title:   "Diagram review",
		Chapter: "03",
		Items: []ReviewItem{
			{Name: "TD", Image: "images/TD.png", Source: "graph TD\n  A-->B"},
			{Name: "<script>", Source: "classDiagram\n  class Agent"},
		},
	}

	got, err := r.Render(context.Background(), testReviewTemplate, page)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	for _, want := range []string{
		"<title>Diagram review 03</title>",
		`<img src="images/TD.png">`,
		"missing",
		`class="chroma"`,
		".chroma",
		"classDiagram",
		"&lt;script&gt;",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Render() output missing %q", want)
		}
	}
	if strings.Contains(got, "<h2><script>") {
		t.Error("Render() did not escape item name")
	}
}

func TestReviewRenderer_SourceWithBackticks(t *testing.T) {
	t.Parallel()

	r := NewReviewRenderer()
	got, err := r.highlight(context.Background(), "graph TD\n  A[\"```code```\"] --> B")
	if err != nil {
		t.Fatalf("highlight() error = %v", err)
	}
	if !strings.Contains(got, "```code```") {
		t.Errorf("highlight() lost fenced content: %s", got)
	}
}

func TestReviewRenderer_Errors(t *testing.T) {
	t.Parallel()

	r := NewReviewRenderer()

	t.Run("bad template", func(t *testing.T) {
		t.Parallel()
		_, err := r.Render(context.Background(), "{{.Missing", ReviewPage{})
		if !errors.Is(err, ErrReviewRender) {
			t.Errorf("Render() error = %v, want ErrReviewRender", err)
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		page := ReviewPage{Items: []ReviewItem{{Name: "a", Source: "graph TD"}}}
		_, err := r.Render(ctx, testReviewTemplate, page)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Render() error = %v, want context.Canceled", err)
		}
	})
}

func TestMermaidLexerRegistered(t *testing.T) {
	t.Parallel()

	if mermaidLexer == nil || mermaidLexer.Config().Name != "Mermaid" {
		t.Fatalf("mermaid lexer not registered")
	}
}
