package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/nkkko/ai-agent-patterns/internal/pipeline"
	"github.com/nkkko/ai-agent-patterns/internal/render"
	"github.com/nkkko/ai-agent-patterns/internal/store"
)

// Shell represents a supported shell for completion generation.
type Shell string

// Supported shells for completion.
const (
	ShellBash Shell = "bash"
	ShellZsh  Shell = "zsh"
	ShellFish Shell = "fish"
)

var shells = []string{string(ShellBash), string(ShellZsh), string(ShellFish)}

// ErrUnsupportedShell is returned when an unknown shell is requested.
var ErrUnsupportedShell = errors.New("unsupported shell")

const (
	appName    = "mermaid-workflow"
	appFuncTag = "mermaid_workflow" // appName as a shell identifier
)

// flagType represents the completion type for a flag.
type flagType int

const (
	flagString flagType = iota // default
	flagBool
	flagInt
	flagEnum // has predefined values
	flagFile // file with glob pattern
	flagDir  // directory
)

// flagDef describes a flag for completion purposes.
type flagDef struct {
	Long     string   // --backend
	Short    string   // -c (empty if none)
	Type     flagType // completion type
	Desc     string   // help text
	Values   []string // for enum flags
	FileGlob string   // for file flags
}

// commandDef describes a command for completion.
type commandDef struct {
	Name  string
	Desc  string
	Flags []flagDef
	Args  []string // positional argument values
}

// completionMeta holds completion-specific metadata for flags.
// This is the ONLY place where completion hints are defined.
// Flag names, types, and descriptions come from the FlagSet.
type completionMeta struct {
	Values   []string // enum values
	FileGlob string   // file glob pattern
	IsDir    bool     // directory completion
}

// flagCompletionMeta maps flag names to their completion metadata.
var flagCompletionMeta = map[string]completionMeta{
	// Enum flags
	"backend":   {Values: []string{render.BackendCLI, render.BackendBrowser}},
	"strategy":  {Values: []string{string(pipeline.StrategyInPlace), string(pipeline.StrategySkeleton)}},
	"collision": {Values: []string{string(store.CollisionSuffix), string(store.CollisionOverwrite), string(store.CollisionError)}},

	// File flags with glob patterns
	"config": {FileGlob: "*.yaml,*.yml"},

	// Directory flags
	"chapters": {IsDir: true},
}

// buildConfigFlagSet creates the FlagSet of the config command.
func buildConfigFlagSet(f *commonFlags) *flag.FlagSet {
	fs := flag.NewFlagSet(cmdConfig, flag.ContinueOnError)
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	return fs
}

// extractFlagsFromFlagSet extracts flag definitions from a pflag.FlagSet.
// Enriches with completion metadata from flagCompletionMeta. Hidden flags
// are not offered.
func extractFlagsFromFlagSet(fs *flag.FlagSet) []flagDef {
	var flags []flagDef

	fs.VisitAll(func(f *flag.Flag) {
		if f.Hidden {
			return
		}
		fd := flagDef{
			Long:  f.Name,
			Short: f.Shorthand,
			Desc:  f.Usage,
		}

		// Determine base type from pflag type
		switch f.Value.Type() {
		case "bool":
			fd.Type = flagBool
		case "int", "int8", "int16", "int32", "int64", "uint", "uint8", "uint16", "uint32", "uint64":
			fd.Type = flagInt
		default:
			fd.Type = flagString
		}

		// Override type based on completion metadata
		if meta, ok := flagCompletionMeta[f.Name]; ok {
			if len(meta.Values) > 0 {
				fd.Type = flagEnum
				fd.Values = meta.Values
			} else if meta.FileGlob != "" {
				fd.Type = flagFile
				fd.FileGlob = meta.FileGlob
			} else if meta.IsDir {
				fd.Type = flagDir
			}
		}

		flags = append(flags, fd)
	})

	return flags
}

// getCommands returns the command registry for completion.
// Flags are extracted from the actual FlagSets - single source of truth.
func getCommands() []commandDef {
	return []commandDef{
		{
			Name:  cmdRun,
			Desc:  "Extract and render diagrams",
			Flags: extractFlagsFromFlagSet(newRunFlagSet(cmdRun, &runFlags{})),
		},
		{
			Name:  cmdWatch,
			Desc:  "Re-process chapters as they change",
			Flags: extractFlagsFromFlagSet(newRunFlagSet(cmdWatch, &runFlags{})),
		},
		{
			Name:  cmdDoctor,
			Desc:  "Check renderer and system setup",
			Flags: []flagDef{{Long: "json", Type: flagBool, Desc: "output as JSON"}},
		},
		{
			Name: cmdCompletion,
			Desc: "Generate shell completion script",
			Args: shells,
		},
		{
			Name:  cmdConfig,
			Desc:  "Print the effective configuration",
			Flags: extractFlagsFromFlagSet(buildConfigFlagSet(&commonFlags{})),
		},
		{
			Name: cmdVersion,
			Desc: "Show version information",
		},
		{
			Name: cmdHelp,
			Desc: "Show help for a command",
			Args: commands,
		},
	}
}

// GenerateCompletion writes shell completion script to w.
// Returns error if shell is unsupported or write fails.
func GenerateCompletion(w io.Writer, shell Shell) error {
	switch shell {
	case ShellBash:
		return generateBash(w)
	case ShellZsh:
		return generateZsh(w)
	case ShellFish:
		return generateFish(w)
	default:
		return fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedShell, shell, strings.Join(shells, ", "))
	}
}

// runCompletion handles the completion command.
func runCompletion(args []string, env *Environment) error {
	if len(args) == 0 {
		printCompletionUsage(env.Stdout)
		return nil
	}

	shell := Shell(args[0])
	return GenerateCompletion(env.Stdout, shell)
}

// printCompletionUsage prints help for the completion command.
func printCompletionUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: mermaid-workflow completion <shell>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Generate shell completion script for the specified shell.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Supported shells:")
	fmt.Fprintln(w, "  bash        Bash completion script")
	fmt.Fprintln(w, "  zsh         Zsh completion script")
	fmt.Fprintln(w, "  fish        Fish completion script")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Installation:")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Bash:")
	fmt.Fprintln(w, "    # Add to ~/.bashrc:")
	fmt.Fprintln(w, "    eval \"$(mermaid-workflow completion bash)\"")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Zsh:")
	fmt.Fprintln(w, "    # Add to ~/.zshrc (before compinit):")
	fmt.Fprintln(w, "    eval \"$(mermaid-workflow completion zsh)\"")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Fish:")
	fmt.Fprintln(w, "    mermaid-workflow completion fish > ~/.config/fish/completions/mermaid-workflow.fish")
}

// findCommand returns the named command from cmds.
func findCommand(cmds []commandDef, name string) commandDef {
	for _, c := range cmds {
		if c.Name == name {
			return c
		}
	}
	return commandDef{}
}

// ---------------------------------------------------------------------------
// Bash
// ---------------------------------------------------------------------------

// flagWords returns the flag names of flags, long and short.
func flagWords(flags []flagDef) string {
	var words []string
	for _, f := range flags {
		words = append(words, "--"+f.Long)
		if f.Short != "" {
			words = append(words, "-"+f.Short)
		}
	}
	return strings.Join(words, " ")
}

// bashValueCase writes the case arm completing the value of f, if any.
func bashValueCase(bw *bufio.Writer, f flagDef) {
	pattern := "--" + f.Long
	if f.Short != "" {
		pattern += "|-" + f.Short
	}

	switch f.Type {
	case flagEnum:
		fmt.Fprintf(bw, "        %s)\n", pattern)
		fmt.Fprintf(bw, "            COMPREPLY=($(compgen -W \"%s\" -- \"$cur\"))\n", strings.Join(f.Values, " "))
		fmt.Fprintln(bw, "            return ;;")
	case flagFile:
		fmt.Fprintf(bw, "        %s)\n", pattern)
		fmt.Fprint(bw, "            COMPREPLY=(")
		for _, glob := range strings.Split(f.FileGlob, ",") {
			fmt.Fprintf(bw, "$(compgen -f -X '!%s' -- \"$cur\") ", glob)
		}
		fmt.Fprintln(bw, "$(compgen -d -- \"$cur\"))")
		fmt.Fprintln(bw, "            return ;;")
	case flagDir:
		fmt.Fprintf(bw, "        %s)\n", pattern)
		fmt.Fprintln(bw, "            COMPREPLY=($(compgen -d -- \"$cur\"))")
		fmt.Fprintln(bw, "            return ;;")
	case flagString, flagInt:
		fmt.Fprintf(bw, "        %s)\n", pattern)
		fmt.Fprintln(bw, "            return ;;")
	}
}

func generateBash(w io.Writer) error {
	cmds := getCommands()
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "# bash completion for %s\n\n", appName)
	fmt.Fprintf(bw, "_%s_completions() {\n", appFuncTag)
	fmt.Fprintln(bw, "    local cur prev cmd i")
	fmt.Fprintln(bw, "    cur=\"${COMP_WORDS[COMP_CWORD]}\"")
	fmt.Fprintln(bw, "    prev=\"${COMP_WORDS[COMP_CWORD-1]}\"")
	fmt.Fprintln(bw, "    COMPREPLY=()")
	fmt.Fprintln(bw)
	fmt.Fprintln(bw, "    cmd=\"\"")
	fmt.Fprintln(bw, "    for ((i=1; i<COMP_CWORD; i++)); do")
	fmt.Fprintln(bw, "        case \"${COMP_WORDS[i]}\" in")
	fmt.Fprintf(bw, "            %s)\n", strings.Join(commands, "|"))
	fmt.Fprintln(bw, "                cmd=\"${COMP_WORDS[i]}\"")
	fmt.Fprintln(bw, "                break ;;")
	fmt.Fprintln(bw, "        esac")
	fmt.Fprintln(bw, "    done")
	fmt.Fprintln(bw)

	// Flag values: run and watch share every value-taking flag.
	fmt.Fprintln(bw, "    case \"$prev\" in")
	for _, f := range findCommand(cmds, cmdWatch).Flags {
		bashValueCase(bw, f)
	}
	fmt.Fprintln(bw, "    esac")
	fmt.Fprintln(bw)

	run := findCommand(cmds, cmdRun)
	fmt.Fprintln(bw, "    if [[ -z \"$cmd\" ]]; then")
	fmt.Fprintln(bw, "        if [[ \"$cur\" == -* ]]; then")
	fmt.Fprintf(bw, "            COMPREPLY=($(compgen -W \"%s\" -- \"$cur\"))\n", flagWords(run.Flags))
	fmt.Fprintln(bw, "        else")
	fmt.Fprintf(bw, "            COMPREPLY=($(compgen -W \"%s\" -- \"$cur\"))\n", strings.Join(commands, " "))
	fmt.Fprintln(bw, "        fi")
	fmt.Fprintln(bw, "        return")
	fmt.Fprintln(bw, "    fi")
	fmt.Fprintln(bw)

	fmt.Fprintln(bw, "    case \"$cmd\" in")
	for _, c := range cmds {
		words := flagWords(c.Flags)
		if len(c.Args) > 0 {
			words = strings.TrimSpace(words + " " + strings.Join(c.Args, " "))
		}
		if words == "" {
			continue
		}
		fmt.Fprintf(bw, "        %s)\n", c.Name)
		fmt.Fprintf(bw, "            COMPREPLY=($(compgen -W \"%s\" -- \"$cur\"))\n", words)
		fmt.Fprintln(bw, "            ;;")
	}
	fmt.Fprintln(bw, "    esac")
	fmt.Fprintln(bw, "}")
	fmt.Fprintln(bw)
	fmt.Fprintf(bw, "complete -F _%s_completions %s\n", appFuncTag, appName)

	return bw.Flush()
}

// ---------------------------------------------------------------------------
// Zsh
// ---------------------------------------------------------------------------

// zshEscape escapes text for a single-quoted _arguments spec.
func zshEscape(s string) string {
	r := strings.NewReplacer("'", `'\''`, "[", `\[`, "]", `\]`)
	return r.Replace(s)
}

// zshFlagSpec returns the _arguments spec of f.
func zshFlagSpec(f flagDef) string {
	var action string
	switch f.Type {
	case flagEnum:
		action = fmt.Sprintf(":%s:(%s)", f.Long, strings.Join(f.Values, " "))
	case flagFile:
		action = fmt.Sprintf(":file:_files -g \"%s\"", strings.ReplaceAll(f.FileGlob, ",", " "))
	case flagDir:
		action = ":directory:_files -/"
	case flagString, flagInt:
		action = ":" + f.Long + ":"
	}

	desc := "[" + zshEscape(f.Desc) + "]"
	if f.Short != "" {
		return fmt.Sprintf("'(-%s --%s)'{-%s,--%s}'%s%s'", f.Short, f.Long, f.Short, f.Long, desc, action)
	}
	return fmt.Sprintf("'--%s%s%s'", f.Long, desc, action)
}

func generateZsh(w io.Writer) error {
	cmds := getCommands()
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "#compdef %s\n\n", appName)
	fmt.Fprintf(bw, "_%s() {\n", appFuncTag)
	fmt.Fprintln(bw, "    local -a commands")
	fmt.Fprintln(bw, "    local state line")
	fmt.Fprintln(bw, "    commands=(")
	for _, c := range cmds {
		fmt.Fprintf(bw, "        '%s:%s'\n", c.Name, zshEscape(c.Desc))
	}
	fmt.Fprintln(bw, "    )")
	fmt.Fprintln(bw)
	fmt.Fprintln(bw, "    _arguments -C \\")
	fmt.Fprintln(bw, "        '1: :->command' \\")
	fmt.Fprintln(bw, "        '*:: :->args'")
	fmt.Fprintln(bw)
	fmt.Fprintln(bw, "    case $state in")
	fmt.Fprintln(bw, "        command)")
	fmt.Fprintf(bw, "            _describe -t commands '%s command' commands\n", appName)
	fmt.Fprintln(bw, "            ;;")
	fmt.Fprintln(bw, "        args)")
	fmt.Fprintln(bw, "            case $line[1] in")
	for _, c := range cmds {
		if len(c.Flags) == 0 && len(c.Args) == 0 {
			continue
		}
		fmt.Fprintf(bw, "                %s)\n", c.Name)
		fmt.Fprint(bw, "                    _arguments")
		for _, f := range c.Flags {
			fmt.Fprintf(bw, " \\\n                        %s", zshFlagSpec(f))
		}
		if len(c.Args) > 0 {
			fmt.Fprintf(bw, " \\\n                        '1:%s:(%s)'", c.Name, strings.Join(c.Args, " "))
		}
		fmt.Fprintln(bw)
		fmt.Fprintln(bw, "                    ;;")
	}
	fmt.Fprintln(bw, "            esac")
	fmt.Fprintln(bw, "            ;;")
	fmt.Fprintln(bw, "    esac")
	fmt.Fprintln(bw, "}")
	fmt.Fprintln(bw)
	fmt.Fprintf(bw, "_%s \"$@\"\n", appFuncTag)

	return bw.Flush()
}

// ---------------------------------------------------------------------------
// Fish
// ---------------------------------------------------------------------------

// fishEscape escapes text for a single-quoted fish string.
func fishEscape(s string) string {
	return strings.NewReplacer(`\`, `\\`, "'", `\'`).Replace(s)
}

// fishFlagLine writes the complete line of f under condition.
func fishFlagLine(bw *bufio.Writer, condition string, f flagDef) {
	fmt.Fprintf(bw, "complete -c %s -n '%s' -l %s", appName, condition, f.Long)
	if f.Short != "" {
		fmt.Fprintf(bw, " -s %s", f.Short)
	}
	switch f.Type {
	case flagEnum:
		fmt.Fprintf(bw, " -x -a '%s'", strings.Join(f.Values, " "))
	case flagFile:
		fmt.Fprint(bw, " -r -F")
	case flagDir:
		fmt.Fprint(bw, " -x -a '(__fish_complete_directories)'")
	case flagString, flagInt:
		fmt.Fprint(bw, " -x")
	}
	fmt.Fprintf(bw, " -d '%s'\n", fishEscape(f.Desc))
}

func generateFish(w io.Writer) error {
	cmds := getCommands()
	bw := bufio.NewWriter(w)
	needs := "__fish_" + appFuncTag + "_needs_command"
	using := "__fish_" + appFuncTag + "_using_command"

	fmt.Fprintf(bw, "# fish completion for %s\n\n", appName)

	fmt.Fprintf(bw, "function %s\n", needs)
	fmt.Fprintln(bw, "    set -l cmd (commandline -opc)")
	fmt.Fprintln(bw, "    for c in $cmd[2..-1]")
	fmt.Fprintf(bw, "        if contains -- $c %s\n", strings.Join(commands, " "))
	fmt.Fprintln(bw, "            return 1")
	fmt.Fprintln(bw, "        end")
	fmt.Fprintln(bw, "    end")
	fmt.Fprintln(bw, "    return 0")
	fmt.Fprintln(bw, "end")
	fmt.Fprintln(bw)

	fmt.Fprintf(bw, "function %s\n", using)
	fmt.Fprintln(bw, "    set -l cmd (commandline -opc)")
	fmt.Fprintln(bw, "    for c in $cmd[2..-1]")
	fmt.Fprintln(bw, "        if contains -- $c $argv")
	fmt.Fprintln(bw, "            return 0")
	fmt.Fprintln(bw, "        end")
	fmt.Fprintln(bw, "    end")
	fmt.Fprintln(bw, "    return 1")
	fmt.Fprintln(bw, "end")
	fmt.Fprintln(bw)

	fmt.Fprintf(bw, "complete -c %s -f\n\n", appName)

	fmt.Fprintln(bw, "# Commands")
	for _, c := range cmds {
		fmt.Fprintf(bw, "complete -c %s -n %s -a %s -d '%s'\n", appName, needs, c.Name, fishEscape(c.Desc))
	}

	// run is the default command, so its flags also apply before any command.
	fmt.Fprintln(bw)
	fmt.Fprintln(bw, "# Default command flags")
	for _, f := range findCommand(cmds, cmdRun).Flags {
		fishFlagLine(bw, needs, f)
	}

	for _, c := range cmds {
		if len(c.Flags) == 0 && len(c.Args) == 0 {
			continue
		}
		fmt.Fprintln(bw)
		fmt.Fprintf(bw, "# %s\n", c.Name)
		condition := using + " " + c.Name
		for _, f := range c.Flags {
			fishFlagLine(bw, condition, f)
		}
		if len(c.Args) > 0 {
			fmt.Fprintf(bw, "complete -c %s -n '%s' -a '%s'\n", appName, condition, strings.Join(c.Args, " "))
		}
	}

	return bw.Flush()
}
