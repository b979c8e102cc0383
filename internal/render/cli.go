package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nkkko/ai-agent-patterns/internal/fileutil"
	"github.com/nkkko/ai-agent-patterns/internal/log"
)

// DefaultCLIBin is the Mermaid CLI executable.
const DefaultCLIBin = "mmdc"

// CLIBackend renders through the Mermaid CLI:
//
//	mmdc -i src -o dst -c mermaid.config.json -w W -H H -b BG
type CLIBackend struct {
	Runner   CommandRunner
	LookPath func(file string) (string, error)

	bin     string
	opts    Options
	config  string
	cfgDir  string
	cfgPath string
}

// NewCLIBackend creates a CLIBackend. mermaidConfig is the JSON written next
// to each invocation; see MermaidConfig.
func NewCLIBackend(bin, mermaidConfig string, opts Options) *CLIBackend {
	if bin == "" {
		bin = DefaultCLIBin
	}
	return &CLIBackend{
		Runner:   &ExecRunner{},
		LookPath: exec.LookPath,
		bin:      bin,
		opts:     opts.withDefaults(),
		config:   mermaidConfig,
	}
}

func (b *CLIBackend) Name() string { return BackendCLI }

// Check locates the binary and asks it for its version.
func (b *CLIBackend) Check(ctx context.Context) error {
	path, err := b.LookPath(b.bin)
	if err != nil {
		return fmt.Errorf("%w: %s not found in PATH", ErrToolUnavailable, b.bin)
	}

	stdout, stderr, err := b.Runner.Run(ctx, path, "--version")
	if err != nil {
		return fmt.Errorf("%w: %s --version: %s", ErrToolUnavailable, b.bin, firstLine(stderr, err))
	}

	log.FromContext(ctx).Debug("renderer found", "backend", BackendCLI, "bin", path, "version", strings.TrimSpace(stdout))
	return nil
}

// ensureConfig lazily writes the mermaid config to a private temp dir.
func (b *CLIBackend) ensureConfig() error {
	if b.cfgPath != "" {
		return nil
	}

	dir, err := os.MkdirTemp("", "mermaid-workflow-cli-*")
	if err != nil {
		return fmt.Errorf("%w: creating config dir: %v", ErrIO, err)
	}
	path := filepath.Join(dir, "mermaid.config.json")
	if err := fileutil.WriteFileAtomic(path, []byte(b.config)); err != nil {
		_ = os.RemoveAll(dir)
		return fmt.Errorf("%w: %v", ErrIO, err)
	}

	b.cfgDir, b.cfgPath = dir, path
	return nil
}

// Render runs mmdc once. A non-zero exit is ErrRenderFailure carrying the
// first stderr line; a missing binary is ErrToolUnavailable.
func (b *CLIBackend) Render(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.ensureConfig(); err != nil {
		return err
	}

	args := []string{
		"-i", src,
		"-o", dst,
		"-c", b.cfgPath,
		"-w", strconv.Itoa(b.opts.Width),
		"-H", strconv.Itoa(b.opts.Height),
		"-b", b.opts.Background,
	}
	log.FromContext(ctx).Debug("running renderer", "cmd", b.bin+" "+strings.Join(args, " "))

	_, stderr, err := b.Runner.Run(ctx, b.bin, args...)
	if err == nil {
		return nil
	}
	if errors.Is(err, exec.ErrNotFound) {
		return fmt.Errorf("%w: %s: %v", ErrToolUnavailable, b.bin, err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %s: %w", ErrRenderFailure, b.bin, ctxErr)
	}
	return fmt.Errorf("%w: %s: %s", ErrRenderFailure, b.bin, firstLine(stderr, err))
}

// Close removes the temp config.
func (b *CLIBackend) Close() error {
	if b.cfgDir == "" {
		return nil
	}
	err := os.RemoveAll(b.cfgDir)
	b.cfgDir, b.cfgPath = "", ""
	return err
}

// firstLine keeps error messages to one line: the first non-empty stderr
// line, else err itself.
func firstLine(stderr string, err error) string {
	for _, l := range strings.Split(stderr, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			return fmt.Sprintf("%s (%v)", l, err)
		}
	}
	return err.Error()
}

// Compile-time interface check.
var _ Backend = (*CLIBackend)(nil)
