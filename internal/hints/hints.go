// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"os"
	"runtime"
	"strings"

	"github.com/nkkko/ai-agent-patterns/internal/fileutil"
)

// IsInContainer detects if running inside a Docker container or similar.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// InCI reports whether a well-known CI environment variable is set.
func InCI() bool {
	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"} {
		if os.Getenv(v) != "" {
			return true
		}
	}
	return false
}

// ForBrowserConnect returns hints for browser launch or connection errors.
func ForBrowserConnect() string {
	var hints []string

	if (InCI() || IsInContainer()) && os.Getenv("ROD_NO_SANDBOX") != "1" {
		hints = append(hints, "set ROD_NO_SANDBOX=1 for Docker/CI")
	}
	if os.Getenv("ROD_BROWSER_BIN") == "" {
		hints = append(hints, "set ROD_BROWSER_BIN to use a custom Chrome")
	}

	return formatHints(hints)
}

// ForRendererMissing returns install instructions for a missing renderer binary.
func ForRendererMissing(bin string) string {
	switch bin {
	case "mmdc", "":
		return format("install the Mermaid CLI: npm install -g @mermaid-js/mermaid-cli, or use --backend browser")
	case "magick", "convert":
		return format("install ImageMagick or pass --no-postprocess")
	default:
		return format("check that " + bin + " is installed and in PATH")
	}
}

// ForUnsupportedPlatform lists the platforms with a known browser location.
func ForUnsupportedPlatform(supported []string) string {
	return format(runtime.GOOS + " has no known Chrome location; set ROD_BROWSER_BIN or use --backend cli (supported: " +
		strings.Join(supported, ", ") + ")")
}

// ForTimeout returns a hint about increasing the render timeout.
func ForTimeout() string {
	return format("for large diagrams, raise the --timeout flag")
}

// ForConfigNotFound returns hints for config file not found errors.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/file.yaml"

	for _, p := range searchedPaths {
		if strings.Contains(p, "mermaid-workflow"+string(os.PathSeparator)) || strings.Contains(p, "mermaid-workflow/") {
			hint += " or create " + p
			break
		}
	}

	return format(hint)
}

// ForChaptersDir returns hints when the chapters directory cannot be read.
func ForChaptersDir(dir string) string {
	return format("run from the book root or pass --chapters; looked in " + dir)
}

// ForOutputDirectory returns hints for output directory creation errors.
func ForOutputDirectory() string {
	return format("check parent directory exists and is writable")
}

func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
