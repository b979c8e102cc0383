package render

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/nkkko/ai-agent-patterns/internal/process"
)

// CommandRunner abstracts command execution to enable testing without real subprocesses.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (stdout string, stderr string, err error)
}

// ExecRunner implements CommandRunner using os/exec. Cancelling ctx kills
// the command's whole process group.
type ExecRunner struct{}

func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := process.Grouped(exec.CommandContext(ctx, name, args...)) // #nosec G204 -- renderer binaries come from config

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// Compile-time interface check.
var _ CommandRunner = (*ExecRunner)(nil)
