package render

import (
	"encoding/json"
	"testing"

	"github.com/nkkko/ai-agent-patterns/internal/assets"
)

func TestMermaidConfig(t *testing.T) {
	t.Parallel()

	raw, err := assets.NewEmbeddedLoader().LoadRendererConfig(assets.DefaultRendererConfig)
	if err != nil {
		t.Fatalf("LoadRendererConfig() error = %v", err)
	}

	tests := []struct {
		name      string
		raw       string
		theme     string
		wantTheme string
		wantErr   bool
	}{
		{name: "embedded default", raw: raw, wantTheme: "default"},
		{name: "theme override", raw: raw, theme: "dark", wantTheme: "dark"},
		{name: "empty config", raw: "", theme: "neutral", wantTheme: "neutral"},
		{name: "invalid JSON", raw: "{theme:", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := MermaidConfig(tt.raw, tt.theme)
			if tt.wantErr {
				if err == nil {
					t.Fatal("MermaidConfig() error = nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("MermaidConfig() error = %v", err)
			}

			var parsed map[string]any
			if err := json.Unmarshal([]byte(got), &parsed); err != nil {
				t.Fatalf("output is not JSON: %v", err)
			}
			if parsed["theme"] != tt.wantTheme {
				t.Errorf("theme = %v, want %s", parsed["theme"], tt.wantTheme)
			}
			if tt.raw == raw {
				if _, ok := parsed["themeCSS"]; !ok {
					t.Error("themeCSS dropped from embedded config")
				}
			}
		})
	}
}
