//go:build integration

package render

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// These tests launch a real Chrome and fetch mermaid.js from the CDN.

func TestBrowserBackend_Integration(t *testing.T) {
	b := newTestBrowser(t, BrowserOptions{
		Options:   Options{Timeout: 60 * time.Second},
		ScriptURL: "https://cdn.jsdelivr.net/npm/mermaid@10.6.1/dist/mermaid.min.js",
		Download:  true,
	})
	if err := b.Check(context.Background()); err != nil {
		t.Skipf("no browser: %v", err)
	}

	dir := t.TempDir()
	src := filepath.Join(dir, "TD.mmd")
	if err := os.WriteFile(src, []byte("graph TD\n  A[Start] --> B[End]\n"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	t.Run("renders png", func(t *testing.T) {
		iv := NewInvoker(b, nil, 60*time.Second)
		out, err := iv.Render(context.Background(), src, filepath.Join(dir, "images"))
		if err != nil {
			t.Fatalf("Render() error = %v", err)
		}
		data, err := os.ReadFile(out)
		if err != nil {
			t.Fatalf("reading image: %v", err)
		}
		if len(data) < 8 || string(data[1:4]) != "PNG" {
			t.Errorf("output is not a PNG (%d bytes)", len(data))
		}
	})

	t.Run("syntax error reported", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.mmd")
		if err := os.WriteFile(bad, []byte("graph TD\n  A -->\n"), 0o644); err != nil {
			t.Fatalf("setup: %v", err)
		}
		err := b.Render(context.Background(), bad, filepath.Join(dir, "bad.png"))
		if !errors.Is(err, ErrRenderFailure) {
			t.Errorf("Render() error = %v, want ErrRenderFailure", err)
		}
	})
}
