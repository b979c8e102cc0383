package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: mermaid-workflow [command] [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  run          Extract and render diagrams (default)")
	fmt.Fprintln(w, "  watch        Re-process chapters as they change")
	fmt.Fprintln(w, "  doctor       Check renderer and system setup")
	fmt.Fprintln(w, "  config       Print the effective configuration")
	fmt.Fprintln(w, "  completion   Generate shell completion script")
	fmt.Fprintln(w, "  version      Show version information")
	fmt.Fprintln(w, "  help         Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'mermaid-workflow help <command>' for details on a specific command.")
}

// printRunFlags prints the flags shared by run and watch.
func printRunFlags(w io.Writer) {
	fmt.Fprintln(w, "Phases:")
	fmt.Fprintln(w, "      --extract-only        Only extract diagrams from chapter documents")
	fmt.Fprintln(w, "      --render-only         Only render existing diagram files")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Input:")
	fmt.Fprintln(w, "  -d, --chapters <dir>      Chapters directory (default: chapters)")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "      --collision <s>       Duplicate names: suffix, overwrite, error")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Repair:")
	fmt.Fprintln(w, "      --strategy <s>        Repair strategy: in-place, skeleton")
	fmt.Fprintln(w, "      --no-repair           Render diagrams as written")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Render:")
	fmt.Fprintln(w, "      --backend <s>         Renderer: cli (mmdc), browser (Chrome)")
	fmt.Fprintln(w, "  -w, --workers <n>         Parallel renderers (0 = auto, max 8)")
	fmt.Fprintln(w, "  -t, --timeout <d>         Per-diagram timeout (e.g., 30s, 2m)")
	fmt.Fprintln(w, "      --no-postprocess      Skip ImageMagick trimming and padding")
	fmt.Fprintln(w, "      --review              Write images/index.html review sheets")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output Control:")
	fmt.Fprintln(w, "  -q, --quiet               Only show errors")
	fmt.Fprintln(w, "  -v, --verbose             Show debug logs and timings")
	fmt.Fprintln(w, "      --log-json            Write logs as JSON")
}

// printCommandUsage prints usage for a single command.
func printCommandUsage(w io.Writer, command string) {
	switch command {
	case cmdRun:
		fmt.Fprintln(w, "Usage: mermaid-workflow [run] [flags]")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Extract mermaid blocks from chapters/NN_*.md into chapters/NN/mermaid/,")
		fmt.Fprintln(w, "repair them, and render each to chapters/NN/images/.")
		fmt.Fprintln(w)
		printRunFlags(w)
	case cmdWatch:
		fmt.Fprintln(w, "Usage: mermaid-workflow watch [flags]")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Watch the chapters directory and re-process each changed chapter document.")
		fmt.Fprintln(w)
		printRunFlags(w)
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Watch:")
		fmt.Fprintln(w, "      --debounce <d>        Quiet period before processing (default: 300ms)")
	case cmdDoctor:
		fmt.Fprintln(w, "Usage: mermaid-workflow doctor [--json]")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Check node, mmdc, ImageMagick, Chrome and the system.")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Flags:")
		fmt.Fprintln(w, "      --json                Output as JSON")
	case cmdConfig:
		fmt.Fprintln(w, "Usage: mermaid-workflow config [-c <name>]")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Print the effective configuration as YAML.")
	case cmdCompletion:
		printCompletionUsage(w)
	case cmdVersion:
		fmt.Fprintln(w, "Usage: mermaid-workflow version")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Show version information.")
	case cmdHelp:
		fmt.Fprintln(w, "Usage: mermaid-workflow help [command]")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Show help for a command.")
	}
}

// runHelp prints help for a specific command.
func runHelp(args []string, env *Environment) error {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return nil
	}

	if !isCommand(args[0]) {
		printUsage(env.Stderr)
		return fmt.Errorf("%w: %s", ErrUnknownCommand, args[0])
	}
	printCommandUsage(env.Stdout, args[0])
	return nil
}
