package main

import (
	"errors"
	"os"

	"github.com/nkkko/ai-agent-patterns/internal/assets"
	"github.com/nkkko/ai-agent-patterns/internal/config"
	"github.com/nkkko/ai-agent-patterns/internal/pipeline"
	"github.com/nkkko/ai-agent-patterns/internal/render"
	"github.com/nkkko/ai-agent-patterns/internal/store"
	"github.com/nkkko/ai-agent-patterns/internal/workflow"
)

// Exit codes for mermaid-workflow.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess  = 0 // Every file succeeded (or there was nothing to do)
	ExitGeneral  = 1 // At least one file failed, or an unexpected error
	ExitUsage    = 2 // Invalid flags, config, or validation
	ExitIO       = 3 // Chapters directory or files unreadable/unwritable
	ExitRenderer = 4 // Renderer or browser unavailable, unsupported platform
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Renderer errors (exit 4)
	if errors.Is(err, render.ErrToolUnavailable) ||
		errors.Is(err, render.ErrUnsupportedPlatform) {
		return ExitRenderer
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, workflow.ErrChaptersDir) ||
		errors.Is(err, store.ErrIO) ||
		errors.Is(err, render.ErrIO) ||
		errors.Is(err, assets.ErrAssetRead) {
		return ExitIO
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, ErrUsage) ||
		errors.Is(err, ErrUnknownCommand) ||
		errors.Is(err, ErrConflictingModes) ||
		errors.Is(err, ErrInvalidWorkerCount) ||
		errors.Is(err, ErrUnsupportedShell) ||
		errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, pipeline.ErrUnknownStrategy) ||
		errors.Is(err, store.ErrInvalidCollision) ||
		errors.Is(err, render.ErrUnknownBackend) ||
		errors.Is(err, assets.ErrInvalidBasePath) ||
		errors.Is(err, assets.ErrInvalidAssetName) ||
		errors.Is(err, assets.ErrPathTraversal) {
		return ExitUsage
	}

	return ExitGeneral
}
