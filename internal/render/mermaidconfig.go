package render

import (
	"encoding/json"
	"fmt"
)

// MermaidConfig merges theme into the raw JSON renderer config. The result
// feeds both mmdc (-c) and mermaid.initialize in the browser wrapper.
func MermaidConfig(raw, theme string) (string, error) {
	cfg := map[string]any{}
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
			return "", fmt.Errorf("parsing mermaid config: %w", err)
		}
	}
	if theme != "" {
		cfg["theme"] = theme
	}
	out, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding mermaid config: %w", err)
	}
	return string(out), nil
}
