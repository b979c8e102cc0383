package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	flag "github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Commands.
const (
	cmdRun        = "run"
	cmdWatch      = "watch"
	cmdDoctor     = "doctor"
	cmdCompletion = "completion"
	cmdConfig     = "config"
	cmdVersion    = "version"
	cmdHelp       = "help"
)

var commands = []string{cmdRun, cmdWatch, cmdDoctor, cmdCompletion, cmdConfig, cmdVersion, cmdHelp}

// ErrUnknownCommand is returned for an unrecognized subcommand.
var ErrUnknownCommand = errors.New("unknown command")

func main() {
	// Error ignored: maxprocs.Set only fails if GOMAXPROCS env is invalid,
	// in which case Go runtime defaults apply and the program continues safely.
	if slices.Contains(os.Args[1:], "-v") || slices.Contains(os.Args[1:], "--verbose") {
		_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		}))
	} else {
		_, _ = maxprocs.Set(maxprocs.Logger(func(string, ...interface{}) {}))
	}

	os.Exit(runMain(os.Args, DefaultEnv()))
}

// isCommand reports whether arg names a subcommand.
func isCommand(arg string) bool {
	return slices.Contains(commands, arg)
}

// runMain dispatches args[1:] and returns the process exit code.
// Without a command (or when the first argument is a flag) it runs the workflow.
func runMain(args []string, env *Environment) int {
	ctx, stop := notifyContext(context.Background())
	defer stop()

	command, rest := cmdRun, []string{}
	if len(args) > 1 {
		switch {
		case strings.HasPrefix(args[1], "-"):
			rest = args[1:]
		case isCommand(args[1]):
			command, rest = args[1], args[2:]
		default:
			err := fmt.Errorf("%w: %s", ErrUnknownCommand, args[1])
			fmt.Fprintln(env.Stderr, err)
			printUsage(env.Stderr)
			return exitCodeFor(err)
		}
	}

	var err error
	switch command {
	case cmdRun:
		err = runWorkflow(ctx, rest, env)
	case cmdWatch:
		err = runWatch(ctx, rest, env)
	case cmdDoctor:
		return runDoctorCmd(rest, env)
	case cmdCompletion:
		err = runCompletion(rest, env)
	case cmdConfig:
		err = runConfig(rest, env)
	case cmdVersion:
		fmt.Fprintf(env.Stdout, "mermaid-workflow %s\n", Version)
	case cmdHelp:
		err = runHelp(rest, env)
	}

	if errors.Is(err, flag.ErrHelp) {
		return ExitSuccess
	}
	if err != nil && !errors.Is(err, ErrFilesFailed) {
		fmt.Fprintf(env.Stderr, "error: %v\n", err)
	}
	return exitCodeFor(err)
}
