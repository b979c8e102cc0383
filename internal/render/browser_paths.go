package render

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"

	"github.com/go-rod/rod/lib/launcher"

	"github.com/nkkko/ai-agent-patterns/internal/fileutil"
)

// browserCandidates lists Chrome/Chromium locations per GOOS, in lookup
// order. Bare names are searched in PATH.
var browserCandidates = map[string][]string{
	"darwin": {
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
		"/Applications/Chromium.app/Contents/MacOS/Chromium",
		"/Applications/Microsoft Edge.app/Contents/MacOS/Microsoft Edge",
	},
	"linux": {
		"google-chrome",
		"google-chrome-stable",
		"chromium",
		"chromium-browser",
		"/snap/bin/chromium",
	},
	"windows": {
		`C:\Program Files\Google\Chrome\Application\chrome.exe`,
		`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
		`C:\Program Files (x86)\Microsoft\Edge\Application\msedge.exe`,
	},
	"freebsd": {
		"chrome",
		"chromium",
		"/usr/local/bin/chrome",
	},
}

// SupportedPlatforms returns the GOOS values with a browser lookup table.
func SupportedPlatforms() []string {
	out := make([]string, 0, len(browserCandidates))
	for goos := range browserCandidates {
		out = append(out, goos)
	}
	slices.Sort(out)
	return out
}

// browserLocator resolves the browser executable. Fields are swappable in tests.
type browserLocator struct {
	goos        string
	getenv      func(string) string
	exists      func(string) bool
	lookPath    func(string) (string, error)
	rodLookPath func() (string, bool)
}

func defaultLocator(goos string) browserLocator {
	return browserLocator{
		goos:        goos,
		getenv:      os.Getenv,
		exists:      fileutil.FileExists,
		lookPath:    exec.LookPath,
		rodLookPath: launcher.LookPath,
	}
}

// resolve returns the browser path, in order: configured, ROD_BROWSER_BIN,
// the GOOS table, rod's own lookup. An empty path with a nil error means
// nothing is installed and download is allowed.
func (l browserLocator) resolve(configured string, download bool) (string, error) {
	for _, explicit := range []string{configured, l.getenv("ROD_BROWSER_BIN")} {
		if explicit == "" {
			continue
		}
		if !l.exists(explicit) {
			return "", fmt.Errorf("%w: browser %s does not exist", ErrToolUnavailable, explicit)
		}
		return explicit, nil
	}

	candidates, ok := browserCandidates[l.goos]
	if !ok {
		return "", fmt.Errorf("%w: no browser lookup for %s", ErrUnsupportedPlatform, l.goos)
	}
	for _, c := range candidates {
		if filepath.IsAbs(c) || filepath.VolumeName(c) != "" {
			if l.exists(c) {
				return c, nil
			}
			continue
		}
		if p, err := l.lookPath(c); err == nil {
			return p, nil
		}
	}

	if p, found := l.rodLookPath(); found {
		return p, nil
	}
	if download {
		return "", nil
	}
	return "", fmt.Errorf("%w: no Chrome or Chromium found", ErrToolUnavailable)
}

// LocateBrowser resolves the browser the browser backend would launch on
// this machine, without downloading one.
func LocateBrowser(configured string) (string, error) {
	return defaultLocator(runtime.GOOS).resolve(configured, false)
}
