package render

import (
	"context"
	"errors"
	"os"
	"sync"
)

// mockRunner records calls and optionally runs a side effect, such as
// writing the output file a real renderer would produce.
type mockRunner struct {
	mu     sync.Mutex
	Stdout string
	Stderr string
	Err    error
	Effect func(name string, args []string) error
	Calls  [][]string
}

func (m *mockRunner) Run(_ context.Context, name string, args ...string) (string, string, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, append([]string{name}, args...))
	m.mu.Unlock()

	if m.Effect != nil {
		if err := m.Effect(name, args); err != nil {
			return m.Stdout, m.Stderr, err
		}
	}
	return m.Stdout, m.Stderr, m.Err
}

func (m *mockRunner) lastCall() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Calls) == 0 {
		return nil
	}
	return m.Calls[len(m.Calls)-1]
}

// argAfter returns the value following flag in args.
func argAfter(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func lookPathFound(file string) (string, error) { return "/usr/local/bin/" + file, nil }

func lookPathMissing(string) (string, error) { return "", errors.New("executable file not found in $PATH") }

// fakeBackend writes Output to dst, or fails with Err.
type fakeBackend struct {
	Output   []byte
	Err      error
	Block    bool // wait for ctx instead of rendering
	CheckErr error

	mu      sync.Mutex
	renders int
	closed  bool
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Check(context.Context) error { return f.CheckErr }

func (f *fakeBackend) Render(ctx context.Context, _, dst string) error {
	f.mu.Lock()
	f.renders++
	f.mu.Unlock()

	if f.Block {
		<-ctx.Done()
		return ctx.Err()
	}
	if f.Output != nil {
		if err := os.WriteFile(dst, f.Output, 0o644); err != nil {
			return err
		}
	}
	return f.Err
}

func (f *fakeBackend) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// fakePost rewrites the image with Output or fails with Err.
type fakePost struct {
	Output []byte
	Err    error
}

func (f *fakePost) Name() string { return "fake-post" }

func (f *fakePost) Process(_ context.Context, path string) error {
	if f.Err != nil {
		return f.Err
	}
	return os.WriteFile(path, f.Output, 0o644)
}

// blockingRunner waits for ctx like a hung renderer, then fails the way a
// killed subprocess does.
type blockingRunner struct{}

func (blockingRunner) Run(ctx context.Context, _ string, _ ...string) (string, string, error) {
	<-ctx.Done()
	return "", "", errors.New("signal: killed")
}
