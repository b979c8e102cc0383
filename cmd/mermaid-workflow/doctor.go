package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/nkkko/ai-agent-patterns/internal/render"
)

// doctorTimeout bounds each --version probe.
const doctorTimeout = 10 * time.Second

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status   string     `json:"status"` // "ready", "warnings", "errors"
	Tools    toolsInfo  `json:"tools"`
	Chrome   chromeInfo `json:"chrome"`
	Env      envInfo    `json:"environment"`
	System   systemInfo `json:"system"`
	Warnings []string   `json:"warnings,omitempty"`
	Errors   []string   `json:"errors,omitempty"`
}

// toolInfo describes one external program.
type toolInfo struct {
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
}

// toolsInfo holds the external programs the workflow shells out to.
type toolsInfo struct {
	Node        toolInfo `json:"node"`
	Mmdc        toolInfo `json:"mmdc"`
	ImageMagick toolInfo `json:"imagemagick"`
}

// chromeInfo holds Chrome/Chromium detection results.
type chromeInfo struct {
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
	Sandbox bool   `json:"sandbox"`
}

// envInfo holds environment detection results.
type envInfo struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	Container     bool   `json:"container"`
	ContainerHint string `json:"container_hint,omitempty"`
	CI            bool   `json:"ci"`
	NoSandbox     string `json:"rod_no_sandbox"`
	BrowserBin    string `json:"rod_browser_bin"`
}

// systemInfo holds system check results.
type systemInfo struct {
	TempWritable bool `json:"temp_writable"`
}

// runDoctorCmd executes the doctor command and returns an exit code.
// Exit codes: 0 = OK (including warnings), 1 = errors found.
func runDoctorCmd(args []string, env *Environment) int {
	jsonOutput := false
	for _, arg := range args {
		switch arg {
		case "--json":
			jsonOutput = true
		case "-h", "--help":
			printCommandUsage(env.Stdout, cmdDoctor)
			return ExitSuccess
		}
	}

	result := runDoctor(env)

	if jsonOutput {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		printDoctorResult(env.Stdout, result)
	}

	if result.Status == "errors" {
		return ExitGeneral
	}
	return ExitSuccess
}

// runDoctor performs all diagnostic checks.
func runDoctor(env *Environment) *doctorResult {
	result := &doctorResult{
		Status: "ready",
		Env: envInfo{
			OS:         runtime.GOOS,
			Arch:       runtime.GOARCH,
			NoSandbox:  env.Getenv("ROD_NO_SANDBOX"),
			BrowserBin: env.Getenv("ROD_BROWSER_BIN"),
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), doctorTimeout)
	defer cancel()

	checkTools(ctx, result, env)
	checkChrome(ctx, result, env)
	checkRenderer(result, env)
	checkEnvironment(result, env)
	checkSystem(result, env)

	// Determine final status
	if len(result.Errors) > 0 {
		result.Status = "errors"
	} else if len(result.Warnings) > 0 {
		result.Status = "warnings"
	}

	return result
}

// probeTool locates bin and asks it for its version with versionArg.
func probeTool(ctx context.Context, env *Environment, bin, versionArg string) toolInfo {
	path, err := env.LookPath(bin)
	if err != nil {
		return toolInfo{}
	}
	info := toolInfo{Found: true, Path: path}
	if stdout, _, err := env.Runner.Run(ctx, path, versionArg); err == nil {
		info.Version = firstLineOf(stdout)
	}
	return info
}

// checkTools detects node, mmdc and ImageMagick.
func checkTools(ctx context.Context, result *doctorResult, env *Environment) {
	mmdc := render.DefaultCLIBin
	var magickOpts render.MagickOptions
	if env.Config != nil {
		if env.Config.Render.CLI.Bin != "" {
			mmdc = env.Config.Render.CLI.Bin
		}
		magickOpts.Bin = env.Config.PostProcess.Bin
	}

	result.Tools.Node = probeTool(ctx, env, "node", "--version")
	result.Tools.Mmdc = probeTool(ctx, env, mmdc, "--version")

	magick := render.NewMagick(magickOpts)
	magick.LookPath = env.LookPath
	if path, err := magick.Check(); err == nil {
		result.Tools.ImageMagick = toolInfo{Found: true, Path: path}
		if stdout, _, err := env.Runner.Run(ctx, path, "-version"); err == nil {
			result.Tools.ImageMagick.Version = firstLineOf(stdout)
		}
	} else {
		result.Warnings = append(result.Warnings,
			"ImageMagick not found. Images are not trimmed or padded; install it or pass --no-postprocess")
	}

	if result.Tools.Mmdc.Found && !result.Tools.Node.Found {
		result.Warnings = append(result.Warnings, "mmdc found but node is not in PATH")
	}
}

// checkChrome detects Chrome/Chromium for the browser backend.
func checkChrome(ctx context.Context, result *doctorResult, env *Environment) {
	chromePath, err := env.LocateBrowser(result.Env.BrowserBin)
	if err != nil {
		return
	}

	result.Chrome.Found = true
	result.Chrome.Path = chromePath

	// Get version by running chrome --version
	if stdout, _, err := env.Runner.Run(ctx, chromePath, "--version"); err == nil {
		result.Chrome.Version = firstLineOf(stdout)
	} else {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Could not get Chrome version: %v", err))
	}

	// Sandbox status: disabled if ROD_NO_SANDBOX=1
	result.Chrome.Sandbox = result.Env.NoSandbox != "1"
}

// checkRenderer requires at least one usable backend.
func checkRenderer(result *doctorResult, env *Environment) {
	switch {
	case !result.Tools.Mmdc.Found && !result.Chrome.Found:
		if !platformSupported() {
			result.Errors = append(result.Errors, fmt.Sprintf(
				"No renderer: mmdc not in PATH and %s has no known Chrome location (supported: %s)",
				runtime.GOOS, strings.Join(render.SupportedPlatforms(), ", ")))
			return
		}
		result.Errors = append(result.Errors,
			"No renderer: install mmdc (npm install -g @mermaid-js/mermaid-cli) or Chrome, or set ROD_BROWSER_BIN")
	case !result.Tools.Mmdc.Found:
		result.Warnings = append(result.Warnings, "mmdc not found. Use --backend browser")
	case !result.Chrome.Found:
		if env.Config != nil && env.Config.Render.Backend == render.BackendBrowser {
			result.Errors = append(result.Errors,
				"Chrome/Chromium not found but the browser backend is configured. Install Chrome or set ROD_BROWSER_BIN")
		}
	}
}

// platformSupported reports whether the browser backend knows this GOOS.
func platformSupported() bool {
	for _, p := range render.SupportedPlatforms() {
		if p == runtime.GOOS {
			return true
		}
	}
	return false
}

// checkEnvironment detects container and CI environments.
func checkEnvironment(result *doctorResult, env *Environment) {
	// Detect container (multi-signal approach)
	result.Env.Container, result.Env.ContainerHint = isContainer(env.Getenv)

	// Detect CI environments
	ciVars := []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"}
	for _, v := range ciVars {
		if env.Getenv(v) != "" {
			result.Env.CI = true
			break
		}
	}

	// Warn if container/CI without sandbox disabled
	if result.Chrome.Found && (result.Env.Container || result.Env.CI) && result.Env.NoSandbox != "1" {
		result.Warnings = append(result.Warnings,
			"Container/CI detected but ROD_NO_SANDBOX not set. Set ROD_NO_SANDBOX=1")
	}
}

// isContainer detects if running in a container environment.
// Returns (isContainer, hint) where hint indicates which signal was detected.
func isContainer(getenv func(string) string) (bool, string) {
	// Explicit override (highest priority)
	if getenv(envPrefix+"CONTAINER") == "1" {
		return true, envPrefix + "CONTAINER=1"
	}
	// Docker
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true, "/.dockerenv"
	}
	// Podman / systemd-nspawn / general container indicator
	if v := getenv("container"); v != "" {
		return true, "container=" + v
	}
	// Kubernetes
	if getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true, "KUBERNETES_SERVICE_HOST"
	}
	return false, ""
}

// checkSystem verifies the temp directory mmdc configs are written to.
func checkSystem(result *doctorResult, env *Environment) {
	tmpDir := env.TempDir()
	f, err := os.CreateTemp(tmpDir, "mermaid-workflow-doctor-*")
	if err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Temp directory not writable: %s", tmpDir))
		return
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(filepath.Clean(name))
	result.System.TempWritable = true
}

// firstLineOf returns the trimmed first line of s.
func firstLineOf(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(line)
}

// printTool writes one tool line.
func printTool(w io.Writer, name string, t toolInfo, missing string) {
	if !t.Found {
		fmt.Fprintf(w, "  [%s] %s: not found\n", missing, name)
		return
	}
	if t.Version != "" {
		fmt.Fprintf(w, "  [OK] %s: %s (%s)\n", name, t.Path, t.Version)
		return
	}
	fmt.Fprintf(w, "  [OK] %s: %s\n", name, t.Path)
}

// printDoctorResult outputs human-readable diagnostic results.
func printDoctorResult(w io.Writer, r *doctorResult) {
	fmt.Fprintln(w, "mermaid-workflow doctor")
	fmt.Fprintln(w)

	// Tools section
	fmt.Fprintln(w, "Tools")
	printTool(w, "node", r.Tools.Node, "WARN")
	printTool(w, "mmdc", r.Tools.Mmdc, "WARN")
	printTool(w, "ImageMagick", r.Tools.ImageMagick, "WARN")
	fmt.Fprintln(w)

	// Chrome section
	fmt.Fprintln(w, "Chrome/Chromium")
	if r.Chrome.Found {
		fmt.Fprintf(w, "  [OK] Found at %s\n", r.Chrome.Path)
		if r.Chrome.Version != "" {
			fmt.Fprintf(w, "  [OK] Version: %s\n", r.Chrome.Version)
		}
		if r.Chrome.Sandbox {
			fmt.Fprintln(w, "  [OK] Sandbox: enabled")
		} else {
			fmt.Fprintln(w, "  [OK] Sandbox: disabled (ROD_NO_SANDBOX=1)")
		}
	} else {
		fmt.Fprintln(w, "  [WARN] Not found")
	}
	fmt.Fprintln(w)

	// Environment section
	fmt.Fprintln(w, "Environment")
	fmt.Fprintf(w, "  [OK] Platform: %s/%s\n", r.Env.OS, r.Env.Arch)
	if r.Env.Container {
		fmt.Fprintf(w, "  [OK] Container: detected (%s)\n", r.Env.ContainerHint)
	}
	if r.Env.CI {
		fmt.Fprintln(w, "  [OK] CI: detected")
	}
	fmt.Fprintln(w)

	// System section
	fmt.Fprintln(w, "System")
	if r.System.TempWritable {
		fmt.Fprintln(w, "  [OK] Temp directory: writable")
	} else {
		fmt.Fprintln(w, "  [ERROR] Temp directory: not writable")
	}
	fmt.Fprintln(w)

	// Warnings
	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  [WARN] %s\n", warn)
		}
		fmt.Fprintln(w)
	}

	// Errors
	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "Errors:")
		for _, err := range r.Errors {
			fmt.Fprintf(w, "  [ERROR] %s\n", err)
		}
		fmt.Fprintln(w)
	}

	// Final status
	switch r.Status {
	case "ready":
		fmt.Fprintln(w, "Status: Ready to render")
	case "warnings":
		fmt.Fprintln(w, "Status: Ready with warnings")
	case "errors":
		fmt.Fprintln(w, "Status: Not ready (see errors above)")
	}
}
