package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nkkko/ai-agent-patterns/internal/config"
	"github.com/nkkko/ai-agent-patterns/internal/hints"
	"github.com/nkkko/ai-agent-patterns/internal/log"
	"github.com/nkkko/ai-agent-patterns/internal/render"
	"github.com/nkkko/ai-agent-patterns/internal/workflow"
)

// ErrFilesFailed reports a run that finished with per-file failures.
var ErrFilesFailed = errors.New("at least one file failed")

// runWorkflow executes the run command.
func runWorkflow(ctx context.Context, args []string, env *Environment) error {
	f, err := parseRunFlags(cmdRun, args, env.Stderr)
	if err != nil {
		return err
	}
	mode, err := f.runMode()
	if err != nil {
		return err
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

	report, err := driver.Run(ctx, mode)
	if report != nil {
		printReport(report, f.common, env)
	}
	if err != nil {
		return withHints(err, f, cfg)
	}
	if !report.OK() {
		return ErrFilesFailed
	}
	return nil
}

// printReport writes per-file lines and the summary, like the batch
// converter output: successes to stdout, failures to stderr.
func printReport(r *workflow.Report, common commonFlags, env *Environment) {
	for _, o := range r.Outcomes {
		printOutcome(o, common, env)
	}
	if !common.quiet {
		for _, sheet := range r.Reviews {
			fmt.Fprintf(env.Stdout, "Review %s\n", sheet)
		}
	}
	fmt.Fprintln(env.Stdout, r.Summary())

	for _, o := range r.Failures() {
		if errors.Is(o.Err, render.ErrTimeout) {
			fmt.Fprintln(env.Stderr, strings.TrimPrefix(hints.ForTimeout(), "\n"))
			break
		}
	}
}

// printOutcome writes one outcome line.
func printOutcome(o workflow.Outcome, common commonFlags, env *Environment) {
	if o.Err != nil {
		fmt.Fprintf(env.Stderr, "FAILED %s: %v\n", o.Input, o.Err)
		return
	}
	if o.Warning != "" {
		fmt.Fprintf(env.Stderr, "warning: %s: %s\n", o.Input, o.Warning)
	}
	if common.quiet {
		return
	}

	verb := "Saved"
	if o.Phase == workflow.PhaseRender {
		verb = "Created"
	}
	if common.verbose {
		fmt.Fprintf(env.Stdout, "%s %s (%v)\n", verb, o.Output, o.Duration.Round(time.Millisecond))
	} else {
		fmt.Fprintf(env.Stdout, "%s %s\n", verb, o.Output)
	}
}

// withHints appends actionable hints to fatal errors. cfg is nil when the
// configuration itself could not be loaded.
func withHints(err error, f *runFlags, cfg *config.Config) error {
	var hint string
	switch {
	case errors.Is(err, config.ErrConfigNotFound):
		name := f.common.config
		if name == "" {
			name = "config"
		}
		hint = hints.ForConfigNotFound(config.SearchPaths(name))
	case cfg == nil:
	case errors.Is(err, render.ErrUnsupportedPlatform):
		hint = hints.ForUnsupportedPlatform(render.SupportedPlatforms())
	case errors.Is(err, render.ErrToolUnavailable):
		if cfg.Render.Backend == render.BackendBrowser {
			hint = hints.ForBrowserConnect()
		} else {
			hint = hints.ForRendererMissing(cfg.Render.CLI.Bin)
		}
	case errors.Is(err, workflow.ErrChaptersDir):
		hint = hints.ForChaptersDir(cfg.Chapters.Dir)
	case errors.Is(err, render.ErrIO):
		hint = hints.ForOutputDirectory()
	}
	if hint == "" {
		return err
	}
	return fmt.Errorf("%w%s", err, hint)
}

// printChange writes the outcome lines of one watch iteration.
func printChange(c workflow.Change, common commonFlags, env *Environment) {
	if !common.quiet {
		fmt.Fprintf(env.Stdout, "Changed %s\n", c.Document)
	}
	for _, o := range c.Outcomes {
		printOutcome(o, common, env)
	}
	if !common.quiet {
		for _, sheet := range c.Reviews {
			fmt.Fprintf(env.Stdout, "Review %s\n", sheet)
		}
	}
}
