package main

import (
	"io"
	"os"
	"os/exec"

	"github.com/nkkko/ai-agent-patterns/internal/assets"
	"github.com/nkkko/ai-agent-patterns/internal/config"
	"github.com/nkkko/ai-agent-patterns/internal/render"
)

// BackendFactory builds the per-worker renderer constructor for cfg.
type BackendFactory func(cfg *config.Config, loader assets.AssetLoader) (func() render.Backend, error)

// Environment holds injectable dependencies for testability.
// Includes I/O, process environment, configuration, and tool discovery.
type Environment struct {
	Stdout     io.Writer
	Stderr     io.Writer
	Getenv     func(string) string
	Environ    func() []string
	Config     *config.Config // Used when no --config is given
	NewBackend BackendFactory

	// Tool discovery for doctor.
	LookPath      func(file string) (string, error)
	Runner        render.CommandRunner
	LocateBrowser func(configured string) (string, error)
	TempDir       func() string
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Stdout:        os.Stdout,
		Stderr:        os.Stderr,
		Getenv:        os.Getenv,
		Environ:       os.Environ,
		Config:        config.DefaultConfig(),
		NewBackend:    newBackendFactory,
		LookPath:      exec.LookPath,
		Runner:        &render.ExecRunner{},
		LocateBrowser: render.LocateBrowser,
		TempDir:       os.TempDir,
	}
}
