package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/nkkko/ai-agent-patterns/internal/config"
	"github.com/nkkko/ai-agent-patterns/internal/render"
	"github.com/nkkko/ai-agent-patterns/internal/workflow"
)

// Sentinel errors for flag handling.
var (
	ErrUsage              = errors.New("invalid usage")
	ErrConflictingModes   = errors.New("--extract-only and --render-only are mutually exclusive")
	ErrInvalidWorkerCount = errors.New("invalid worker count")
)

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
	logJSON bool
}

// modeFlags select the phases of a run.
type modeFlags struct {
	extractOnly  bool
	renderOnly   bool
	generateOnly bool // legacy name of --render-only
}

// runFlags holds all flags for the run and watch commands.
type runFlags struct {
	common        commonFlags
	mode          modeFlags
	chapters      string
	workers       int
	timeout       string
	backend       string
	strategy      string
	collision     string
	noRepair      bool
	noPostprocess bool
	review        bool
	debounce      time.Duration // watch only
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show debug logs and timings")
	fs.BoolVar(&f.logJSON, "log-json", false, "write logs as JSON")
}

// addModeFlags adds phase selection flags to a FlagSet.
func addModeFlags(fs *flag.FlagSet, f *modeFlags) {
	fs.BoolVar(&f.extractOnly, "extract-only", false, "only extract diagrams from chapters")
	fs.BoolVar(&f.renderOnly, "render-only", false, "only render existing diagram files")
	fs.BoolVar(&f.generateOnly, "generate-only", false, "alias of --render-only")
	_ = fs.MarkHidden("generate-only")
}

// addRunFlags adds the pipeline flags shared by run and watch.
func addRunFlags(fs *flag.FlagSet, f *runFlags) {
	fs.StringVarP(&f.chapters, "chapters", "d", "", "chapters directory (default: chapters)")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel renderers (0 = auto)")
	fs.StringVarP(&f.timeout, "timeout", "t", "", "per-diagram render timeout (e.g., 30s, 2m)")
	fs.StringVar(&f.backend, "backend", "", "renderer: cli, browser")
	fs.StringVar(&f.strategy, "strategy", "", "repair strategy: in-place, skeleton")
	fs.StringVar(&f.collision, "collision", "", "duplicate diagram names: suffix, overwrite, error")
	fs.BoolVar(&f.noRepair, "no-repair", false, "render diagrams as written")
	fs.BoolVar(&f.noPostprocess, "no-postprocess", false, "skip ImageMagick trimming and padding")
	fs.BoolVar(&f.review, "review", false, "write an images/index.html review sheet per chapter")

	addCommonFlags(fs, &f.common)
	addModeFlags(fs, &f.mode)
}

// newRunFlagSet registers the flags of command (run or watch).
func newRunFlagSet(command string, f *runFlags) *flag.FlagSet {
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	addRunFlags(fs, f)
	if command == cmdWatch {
		fs.DurationVar(&f.debounce, "debounce", workflow.DefaultDebounce, "quiet period before a changed chapter is processed")
	}
	return fs
}

// parseRunFlags parses run or watch flags. Positional arguments are rejected.
func parseRunFlags(command string, args []string, stderr io.Writer) (*runFlags, error) {
	f := &runFlags{}
	fs := newRunFlagSet(command, f)
	fs.SetOutput(stderr)
	fs.Usage = func() { printCommandUsage(stderr, command) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("%w: unexpected argument %q", ErrUsage, fs.Arg(0))
	}
	return f, nil
}

// runMode resolves the phase selection flags.
func (f *runFlags) runMode() (workflow.Mode, error) {
	renderOnly := f.mode.renderOnly || f.mode.generateOnly
	switch {
	case f.mode.extractOnly && renderOnly:
		return 0, ErrConflictingModes
	case f.mode.extractOnly:
		return workflow.ModeExtract, nil
	case renderOnly:
		return workflow.ModeRender, nil
	default:
		return workflow.ModeAll, nil
	}
}

// mergeFlags applies CLI flags over cfg (CLI wins).
func mergeFlags(f *runFlags, cfg *config.Config) {
	if f.chapters != "" {
		cfg.Chapters.Dir = f.chapters
	}
	if f.collision != "" {
		cfg.Chapters.Collision = f.collision
	}
	if f.workers != 0 {
		cfg.Render.Workers = f.workers
	}
	if f.timeout != "" {
		cfg.Render.Timeout = f.timeout
	}
	if f.backend != "" {
		cfg.Render.Backend = f.backend
	}
	if f.strategy != "" {
		cfg.Repair.Strategy = f.strategy
	}
	if f.noRepair {
		cfg.Repair.Enabled = false
	}
	if f.noPostprocess {
		cfg.PostProcess.Enabled = false
	}
	if f.review {
		cfg.Review.Enabled = true
	}
}

// validateWorkers checks the worker count after flags and env are merged.
func validateWorkers(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d (must be >= 0, 0 means auto)", ErrInvalidWorkerCount, n)
	}
	if n > render.MaxPoolSize {
		return fmt.Errorf("%w: %d (maximum is %d)", ErrInvalidWorkerCount, n, render.MaxPoolSize)
	}
	return nil
}
