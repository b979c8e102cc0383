package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/nkkko/ai-agent-patterns/internal/log"
	"github.com/nkkko/ai-agent-patterns/internal/workflow"
)

// runWatch executes the watch command. An interrupt ends it successfully.
func runWatch(ctx context.Context, args []string, env *Environment) error {
	f, err := parseRunFlags(cmdWatch, args, env.Stderr)
	if err != nil {
		return err
	}
	mode, err := f.runMode()
	if err != nil {
		return err
	}
	if mode == workflow.ModeRender {
		return fmt.Errorf("%w: watch follows chapter documents; --render-only is not supported", ErrUsage)
	}

	cfg, err := loadRunConfig(f, env)
	if err != nil {
		return withHints(err, f, nil)
	}

	ctx = log.ContextWithLogger(ctx, newRunLogger(f.common, env))

	driver, err := buildDriver(cfg, mode, env)
	if err != nil {
		return withHints(err, f, cfg)
	}

	if !f.common.quiet {
		fmt.Fprintf(env.Stdout, "Watching %s (Ctrl+C to stop)\n", cfg.Chapters.Dir)
	}

	err = driver.Watch(ctx, mode, f.debounce, func(c workflow.Change) {
		printChange(c, f.common, env)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	if err != nil {
		return withHints(err, f, cfg)
	}
	return nil
}
