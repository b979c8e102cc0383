package main

// Notes:
// - Tests go through runDoctorCmd() with fake tool discovery injected via
//   Environment, so results do not depend on the machine running them.
// - /.dockerenv is the one signal read from the real filesystem; tests that
//   assert "no container" skip when it exists.
// These are acceptable gaps: we test observable behavior, not implementation details.

import (
	"encoding/json"
	"os"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nkkko/ai-agent-patterns/internal/render"
)

// doctorEnv returns a test environment where installed binaries are found
// and answer --version, and chrome (if non-empty) is the located browser.
func doctorEnv(t *testing.T, chrome string, installed ...string) *testEnv {
	t.Helper()

	te := newTestEnv(t, &stubBackend{})
	te.LookPath = fakeLookPath(installed...)
	versions := map[string]string{
		"node":     "v20.11.0",
		"mmdc":     "10.6.1",
		"magick":   "Version: ImageMagick 7.1.1-21 Q16-HDRI\nCopyright: (C) 1999 ImageMagick Studio LLC",
		"chromium": "Chromium 120.0.6099.109",
	}
	te.Runner = &fakeRunner{versions: versions}
	if chrome != "" {
		te.LocateBrowser = func(string) (string, error) { return chrome, nil }
	}
	return te
}

// runDoctorJSON runs doctor --json and decodes the result.
func runDoctorJSON(t *testing.T, te *testEnv) (doctorResult, int) {
	t.Helper()

	code := runDoctorCmd([]string{"--json"}, te.Environment)

	var result doctorResult
	if err := json.Unmarshal(te.stdout.Bytes(), &result); err != nil {
		t.Fatalf("Invalid JSON output: %v\nOutput was: %s", err, te.stdout.String())
	}
	return result, code
}

func noDockerenv(t *testing.T) {
	t.Helper()
	if _, err := os.Stat("/.dockerenv"); err == nil {
		t.Skip("running inside a container")
	}
}

// ---------------------------------------------------------------------------
// TestRunDoctorCmd_JSONOutput - Tools, browser and system in JSON
// ---------------------------------------------------------------------------

func TestRunDoctorCmd_JSONOutput(t *testing.T) {
	t.Parallel()

	te := doctorEnv(t, "/usr/bin/chromium", "node", "mmdc", "magick")
	result, code := runDoctorJSON(t, te)

	want := toolsInfo{
		Node:        toolInfo{Found: true, Path: "/usr/bin/node", Version: "v20.11.0"},
		Mmdc:        toolInfo{Found: true, Path: "/usr/bin/mmdc", Version: "10.6.1"},
		ImageMagick: toolInfo{Found: true, Path: "/usr/bin/magick", Version: "Version: ImageMagick 7.1.1-21 Q16-HDRI"},
	}
	if diff := cmp.Diff(want, result.Tools); diff != "" {
		t.Errorf("tools mismatch (-want +got):\n%s", diff)
	}

	wantChrome := chromeInfo{Found: true, Path: "/usr/bin/chromium", Version: "Chromium 120.0.6099.109", Sandbox: true}
	if diff := cmp.Diff(wantChrome, result.Chrome); diff != "" {
		t.Errorf("chrome mismatch (-want +got):\n%s", diff)
	}

	if result.Env.OS != runtime.GOOS || result.Env.Arch != runtime.GOARCH {
		t.Errorf("platform = %s/%s, want %s/%s", result.Env.OS, result.Env.Arch, runtime.GOOS, runtime.GOARCH)
	}
	if !result.System.TempWritable {
		t.Error("temp dir should be writable")
	}
	if code != ExitSuccess {
		t.Errorf("exit code = %d, want %d", code, ExitSuccess)
	}
}

// ---------------------------------------------------------------------------
// TestRunDoctorCmd_Status - Status and exit code per setup
// ---------------------------------------------------------------------------

func TestRunDoctorCmd_Status(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		chrome     string
		installed  []string
		backend    string
		wantStatus string
		wantCode   int
	}{
		{
			name:       "everything installed",
			chrome:     "/usr/bin/chromium",
			installed:  []string{"node", "mmdc", "magick"},
			wantStatus: "ready",
			wantCode:   ExitSuccess,
		},
		{
			name:       "mmdc without chrome is ready",
			installed:  []string{"node", "mmdc", "magick"},
			wantStatus: "ready",
			wantCode:   ExitSuccess,
		},
		{
			name:       "legacy convert binary counts as ImageMagick",
			installed:  []string{"node", "mmdc", "convert"},
			wantStatus: "ready",
			wantCode:   ExitSuccess,
		},
		{
			name:       "missing ImageMagick warns",
			installed:  []string{"node", "mmdc"},
			wantStatus: "warnings",
			wantCode:   ExitSuccess,
		},
		{
			name:       "mmdc without node warns",
			installed:  []string{"mmdc", "magick"},
			wantStatus: "warnings",
			wantCode:   ExitSuccess,
		},
		{
			name:       "chrome only warns",
			chrome:     "/usr/bin/chromium",
			installed:  []string{"magick"},
			wantStatus: "warnings",
			wantCode:   ExitSuccess,
		},
		{
			name:       "no renderer is an error",
			installed:  []string{"node", "magick"},
			wantStatus: "errors",
			wantCode:   ExitGeneral,
		},
		{
			name:       "browser backend without chrome is an error",
			installed:  []string{"node", "mmdc", "magick"},
			backend:    render.BackendBrowser,
			wantStatus: "errors",
			wantCode:   ExitGeneral,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			noDockerenv(t)

			te := doctorEnv(t, tt.chrome, tt.installed...)
			if tt.backend != "" {
				te.Config.Render.Backend = tt.backend
			}
			result, code := runDoctorJSON(t, te)

			if result.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q (warnings: %v, errors: %v)",
					result.Status, tt.wantStatus, result.Warnings, result.Errors)
			}
			if code != tt.wantCode {
				t.Errorf("exit code = %d, want %d", code, tt.wantCode)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestRunDoctorCmd_Environment - Container, CI and sandbox detection
// ---------------------------------------------------------------------------

func TestRunDoctorCmd_Environment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		vars          map[string]string
		wantContainer bool
		wantHint      string
		wantCI        bool
		wantSandbox   bool
		wantWarnings  int
	}{
		{
			name:          "explicit container override",
			vars:          map[string]string{"MERMAID_WORKFLOW_CONTAINER": "1", "ROD_NO_SANDBOX": "1"},
			wantContainer: true,
			wantHint:      "MERMAID_WORKFLOW_CONTAINER=1",
		},
		{
			name:          "podman",
			vars:          map[string]string{"container": "podman", "ROD_NO_SANDBOX": "1"},
			wantContainer: true,
			wantHint:      "container=podman",
		},
		{
			name:          "kubernetes",
			vars:          map[string]string{"KUBERNETES_SERVICE_HOST": "10.0.0.1", "ROD_NO_SANDBOX": "1"},
			wantContainer: true,
			wantHint:      "KUBERNETES_SERVICE_HOST",
		},
		{
			name:         "CI without sandbox override warns",
			vars:         map[string]string{"GITHUB_ACTIONS": "true"},
			wantCI:       true,
			wantSandbox:  true,
			wantWarnings: 1,
		},
		{
			name:   "CI with sandbox disabled",
			vars:   map[string]string{"CI": "true", "ROD_NO_SANDBOX": "1"},
			wantCI: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if !tt.wantContainer {
				noDockerenv(t)
			}

			te := doctorEnv(t, "/usr/bin/chromium", "node", "mmdc", "magick")
			for k, v := range tt.vars {
				te.vars[k] = v
			}
			result, _ := runDoctorJSON(t, te)

			if result.Env.Container != tt.wantContainer {
				t.Errorf("container = %v, want %v", result.Env.Container, tt.wantContainer)
			}
			if tt.wantHint != "" && result.Env.ContainerHint != tt.wantHint && result.Env.ContainerHint != "/.dockerenv" {
				t.Errorf("container hint = %q, want %q", result.Env.ContainerHint, tt.wantHint)
			}
			if result.Env.CI != tt.wantCI {
				t.Errorf("ci = %v, want %v", result.Env.CI, tt.wantCI)
			}
			if result.Chrome.Sandbox != tt.wantSandbox {
				t.Errorf("sandbox = %v, want %v", result.Chrome.Sandbox, tt.wantSandbox)
			}
			if len(result.Warnings) != tt.wantWarnings {
				t.Errorf("warnings = %v, want %d", result.Warnings, tt.wantWarnings)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestRunDoctorCmd_HumanOutput - Human-readable report
// ---------------------------------------------------------------------------

func TestRunDoctorCmd_HumanOutput(t *testing.T) {
	t.Parallel()

	t.Run("ready", func(t *testing.T) {
		t.Parallel()
		noDockerenv(t)

		te := doctorEnv(t, "/usr/bin/chromium", "node", "mmdc", "magick")
		runDoctorCmd(nil, te.Environment)

		assertContains(t, "stdout", te.stdout.String(),
			"mermaid-workflow doctor",
			"Tools",
			"[OK] mmdc: /usr/bin/mmdc (10.6.1)",
			"[OK] Found at /usr/bin/chromium",
			"[OK] Sandbox: enabled",
			"[OK] Temp directory: writable",
			"Status: Ready to render",
		)
	})

	t.Run("errors", func(t *testing.T) {
		t.Parallel()

		te := doctorEnv(t, "")
		code := runDoctorCmd(nil, te.Environment)

		if code != ExitGeneral {
			t.Errorf("exit code = %d, want %d", code, ExitGeneral)
		}
		assertContains(t, "stdout", te.stdout.String(),
			"[WARN] mmdc: not found",
			"[WARN] ImageMagick: not found",
			"Errors:",
			"[ERROR] No renderer",
			"Status: Not ready (see errors above)",
		)
	})

	t.Run("unwritable temp dir", func(t *testing.T) {
		t.Parallel()

		te := doctorEnv(t, "", "node", "mmdc", "magick")
		te.TempDir = func() string { return "/nonexistent/tmp" }
		code := runDoctorCmd(nil, te.Environment)

		if code != ExitGeneral {
			t.Errorf("exit code = %d, want %d", code, ExitGeneral)
		}
		assertContains(t, "stdout", te.stdout.String(), "[ERROR] Temp directory: not writable")
	})
}
