package main

import (
	"errors"
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/nkkko/ai-agent-patterns/internal/config"
)

// runConfig prints the effective configuration (file, env vars and
// defaults merged) as YAML.
func runConfig(args []string, env *Environment) error {
	f := &runFlags{}
	fs := buildConfigFlagSet(&f.common)
	fs.SetOutput(env.Stderr)
	fs.Usage = func() { printCommandUsage(env.Stderr, cmdConfig) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: unexpected argument %q", ErrUsage, fs.Arg(0))
	}

	cfg, err := loadRunConfig(f, env)
	if err != nil {
		return withHints(err, f, nil)
	}

	out, err := config.Dump(cfg)
	if err != nil {
		return err
	}
	_, err = env.Stdout.Write(out)
	return err
}
