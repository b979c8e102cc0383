package main

// Notes:
// - Test infrastructure shared by the command tests: a stub renderer wired
//   through Environment.NewBackend, fake tool discovery for doctor, and a
//   chapters tree builder.
// No coverage gaps: this is test infrastructure, not production code.

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nkkko/ai-agent-patterns/internal/assets"
	"github.com/nkkko/ai-agent-patterns/internal/config"
	"github.com/nkkko/ai-agent-patterns/internal/render"
)

// ---------------------------------------------------------------------------
// Stub renderer
// ---------------------------------------------------------------------------

// stubBackend writes a fixed PNG, or fails with Err.
type stubBackend struct {
	Err      error
	CheckErr error
}

func (s *stubBackend) Name() string { return "stub" }

func (s *stubBackend) Check(context.Context) error { return s.CheckErr }

func (s *stubBackend) Render(_ context.Context, _, dst string) error {
	if s.Err != nil {
		return s.Err
	}
	return os.WriteFile(dst, []byte("\x89PNG stub"), 0o644)
}

func (s *stubBackend) Close() error { return nil }

// stubFactory returns a BackendFactory handing out b.
func stubFactory(b *stubBackend) BackendFactory {
	return func(*config.Config, assets.AssetLoader) (func() render.Backend, error) {
		return func() render.Backend { return b }, nil
	}
}

// failingFactory returns a BackendFactory that must not be reached.
func failingFactory(t *testing.T) BackendFactory {
	return func(*config.Config, assets.AssetLoader) (func() render.Backend, error) {
		t.Error("backend factory called")
		return nil, errors.New("unexpected backend")
	}
}

// ---------------------------------------------------------------------------
// Fake tool discovery
// ---------------------------------------------------------------------------

// fakeRunner answers --version / -version with a per-binary string.
type fakeRunner struct {
	versions map[string]string
}

func (r *fakeRunner) Run(_ context.Context, name string, _ ...string) (string, string, error) {
	v, ok := r.versions[filepath.Base(name)]
	if !ok {
		return "", "boom", errors.New("exit status 1")
	}
	return v + "\n", "", nil
}

// fakeLookPath finds exactly the binaries in installed under /usr/bin.
func fakeLookPath(installed ...string) func(string) (string, error) {
	return func(file string) (string, error) {
		for _, bin := range installed {
			if bin == file {
				return "/usr/bin/" + file, nil
			}
		}
		return "", fmt.Errorf("exec: %q: executable file not found in $PATH", file)
	}
}

// ---------------------------------------------------------------------------
// Environment
// ---------------------------------------------------------------------------

// testEnv bundles an Environment with its captured output.
type testEnv struct {
	*Environment
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	vars   map[string]string
}

// newTestEnv returns an isolated Environment: no post-processing, a stub
// renderer, no process environment and no installed tools.
func newTestEnv(t *testing.T, backend *stubBackend) *testEnv {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.PostProcess.Enabled = false

	te := &testEnv{
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
		vars:   map[string]string{},
	}
	tmp := t.TempDir()
	te.Environment = &Environment{
		Stdout:     te.stdout,
		Stderr:     te.stderr,
		Getenv:     func(k string) string { return te.vars[k] },
		Environ:    te.environ,
		Config:     cfg,
		NewBackend: stubFactory(backend),
		LookPath:   fakeLookPath(),
		Runner:     &fakeRunner{},
		LocateBrowser: func(string) (string, error) {
			return "", fmt.Errorf("%w: no Chrome or Chromium found", render.ErrToolUnavailable)
		},
		TempDir: func() string { return tmp },
	}
	return te
}

func (te *testEnv) environ() []string {
	var out []string
	for k, v := range te.vars {
		out = append(out, k+"="+v)
	}
	return out
}

// run invokes runMain with the program name prepended.
func (te *testEnv) run(args ...string) int {
	return runMain(append([]string{appName}, args...), te.Environment)
}

// ---------------------------------------------------------------------------
// Chapters tree
// ---------------------------------------------------------------------------

// writeChapter writes chapters/name with the given mermaid block bodies.
func writeChapter(t *testing.T, chapters, name string, blocks ...string) {
	t.Helper()

	var b strings.Builder
	b.WriteString("# Chapter\n\nSome prose.\n\n")
	for _, block := range blocks {
		b.WriteString("```mermaid\n" + block + "\n```\n\n")
	}
	if err := os.MkdirAll(chapters, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(chapters, name), []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
}

// listDir returns the sorted names in dir, or nil if it does not exist.
func listDir(t *testing.T, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		t.Fatal(err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

// assertContains fails when out lacks any of wants.
func assertContains(t *testing.T, label, out string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(out, want) {
			t.Errorf("%s should contain %q, got:\n%s", label, want, out)
		}
	}
}
