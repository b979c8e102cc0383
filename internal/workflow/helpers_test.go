package workflow

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/nkkko/ai-agent-patterns/internal/render"
)

// stubBackend writes a fixed PNG, or fails with Err.
type stubBackend struct {
	Err      error
	CheckErr error

	mu      sync.Mutex
	sources []string
}

func (s *stubBackend) Name() string { return "stub" }

func (s *stubBackend) Check(context.Context) error { return s.CheckErr }

func (s *stubBackend) Render(_ context.Context, src, dst string) error {
	s.mu.Lock()
	s.sources = append(s.sources, src)
	s.mu.Unlock()

	if s.Err != nil {
		return s.Err
	}
	return os.WriteFile(dst, []byte("\x89PNG stub"), 0o644)
}

func (s *stubBackend) Close() error { return nil }

func (s *stubBackend) rendered() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sources...)
}

// shared returns a factory handing the same stub to every worker.
func shared(b *stubBackend) func() render.Backend {
	return func() render.Backend { return b }
}

// stubRunner stands in for the mmdc process: it answers --version and
// either writes the -o file or exits non-zero.
type stubRunner struct {
	fail bool
}

func (r *stubRunner) Run(_ context.Context, _ string, args ...string) (string, string, error) {
	if len(args) == 1 && args[0] == "--version" {
		return "10.6.1\n", "", nil
	}
	if r.fail {
		return "", "Error: Parse error on line 2:\n", errors.New("exit status 1")
	}
	for i := 0; i < len(args)-1; i++ {
		if args[i] == "-o" {
			return "", "", os.WriteFile(args[i+1], []byte("\x89PNG mmdc"), 0o644)
		}
	}
	return "", "", errors.New("no -o argument")
}

// cliFactory builds Mermaid CLI backends driven by a stubRunner.
func cliFactory(runner render.CommandRunner) func() render.Backend {
	return func() render.Backend {
		b := render.NewCLIBackend("mmdc", "{}", render.Options{})
		b.Runner = runner
		b.LookPath = func(file string) (string, error) { return "/usr/local/bin/" + file, nil }
		return b
	}
}

// stubPost is a post-processor whose tool lookup fails with CheckErr.
type stubPost struct {
	CheckErr error
}

func (p *stubPost) Name() string { return "stub-post" }

func (p *stubPost) Check() (string, error) { return "/usr/bin/magick", p.CheckErr }

func (p *stubPost) Process(context.Context, string) error { return nil }

// writeFile creates path with content, making parent directories.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}

// listDir returns the entry names of dir, or nil when it does not exist.
func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		t.Fatalf("reading %s: %v", dir, err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
