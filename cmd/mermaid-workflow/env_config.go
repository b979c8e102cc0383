package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nkkko/ai-agent-patterns/internal/config"
)

// envPrefix namespaces the workflow's environment variables.
const envPrefix = "MERMAID_WORKFLOW_"

// envConfig holds configuration from environment variables.
// Provides CI-friendly overrides without requiring YAML files.
type envConfig struct {
	ConfigPath  string        // MERMAID_WORKFLOW_CONFIG: config file name or path
	ChaptersDir string        // MERMAID_WORKFLOW_CHAPTERS: chapters directory
	Backend     string        // MERMAID_WORKFLOW_BACKEND: cli or browser
	Timeout     time.Duration // MERMAID_WORKFLOW_TIMEOUT: per-diagram timeout
	Workers     int           // MERMAID_WORKFLOW_WORKERS: parallel renderers
}

// knownEnvVars lists valid MERMAID_WORKFLOW_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	envPrefix + "CONFIG":   true,
	envPrefix + "CHAPTERS": true,
	envPrefix + "BACKEND":  true,
	envPrefix + "TIMEOUT":  true,
	envPrefix + "WORKERS":  true,

	envPrefix + "CONTAINER": true, // doctor: force container detection
}

// loadEnvConfig reads configuration from environment variables.
// Malformed numbers and durations are ignored.
func loadEnvConfig(getenv func(string) string) *envConfig {
	cfg := &envConfig{
		ConfigPath:  getenv(envPrefix + "CONFIG"),
		ChaptersDir: getenv(envPrefix + "CHAPTERS"),
		Backend:     getenv(envPrefix + "BACKEND"),
	}

	if timeout := getenv(envPrefix + "TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil && d > 0 {
			cfg.Timeout = d
		}
	}

	if workers := getenv(envPrefix + "WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil && w > 0 {
			cfg.Workers = w
		}
	}

	return cfg
}

// warnUnknownEnvVars reports unrecognized MERMAID_WORKFLOW_* variables.
func warnUnknownEnvVars(environ []string, w io.Writer) {
	for _, env := range environ {
		if strings.HasPrefix(env, envPrefix) {
			name := strings.SplitN(env, "=", 2)[0]
			if !knownEnvVars[name] {
				fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
			}
		}
	}
}

// applyEnvConfig applies environment values over the loaded config.
// Precedence: CLI flags > env vars > config file > defaults
// (CLI flags are applied later via mergeFlags).
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	if env.ChaptersDir != "" {
		cfg.Chapters.Dir = env.ChaptersDir
	}
	if env.Backend != "" {
		cfg.Render.Backend = env.Backend
	}
	if env.Timeout > 0 {
		cfg.Render.Timeout = env.Timeout.String()
	}
	if env.Workers > 0 {
		cfg.Render.Workers = env.Workers
	}
}
