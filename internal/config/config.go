package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/nkkko/ai-agent-patterns/internal/fileutil"
	"github.com/nkkko/ai-agent-patterns/internal/yamlutil"
)

// AppName names the per-user config directory.
const AppName = "mermaid-workflow"

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrInvalidValue    = errors.New("invalid config value")
)

// Accepted enumerations.
var (
	Backends         = []string{"cli", "browser"}
	Strategies       = []string{"in-place", "skeleton"}
	CollisionModes   = []string{"suffix", "overwrite", "error"}
	RepairRuleNames  = []string{"strip-classdef", "strip-class-style", "normalize-notes"}
	DefaultScriptURL = "https://cdn.jsdelivr.net/npm/mermaid@10.6.1/dist/mermaid.min.js"
)

// Config holds all configuration for one workflow run.
type Config struct {
	Chapters    ChaptersConfig    `yaml:"chapters"`
	Repair      RepairConfig      `yaml:"repair"`
	Render      RenderConfig      `yaml:"render"`
	PostProcess PostProcessConfig `yaml:"postprocess"`
	Review      ReviewConfig      `yaml:"review"`
	Assets      AssetsConfig      `yaml:"assets"`
}

// ChaptersConfig locates manuscripts and derived files.
type ChaptersConfig struct {
	Dir         string `yaml:"dir"`         // Root holding NN_description.md (default: chapters)
	DiagramsDir string `yaml:"diagramsDir"` // Per-chapter diagram dir (default: mermaid)
	ImagesDir   string `yaml:"imagesDir"`   // Per-chapter image dir (default: images)
	FenceTag    string `yaml:"fenceTag"`    // Code fence language (default: mermaid)
	Extension   string `yaml:"extension"`   // Diagram file extension (default: mmd)
	Collision   string `yaml:"collision"`   // suffix, overwrite, error
}

// RepairConfig controls the DiagramRepairer.
type RepairConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Strategy string   `yaml:"strategy"` // in-place, skeleton
	Disable  []string `yaml:"disable"`  // rule names to skip
}

// RenderConfig controls rasterization.
type RenderConfig struct {
	Backend    string        `yaml:"backend"` // cli, browser
	Width      int           `yaml:"width"`
	Height     int           `yaml:"height"`
	Background string        `yaml:"background"`
	Theme      string        `yaml:"theme"`
	Scale      float64       `yaml:"scale"`   // device scale factor (browser)
	Timeout    string        `yaml:"timeout"` // Go duration, per diagram
	Workers    int           `yaml:"workers"` // 0 = auto
	CLI        CLIConfig     `yaml:"cli"`
	Browser    BrowserConfig `yaml:"browser"`
}

// CLIConfig configures the Mermaid CLI backend.
type CLIConfig struct {
	Bin string `yaml:"bin"` // default: mmdc
}

// BrowserConfig configures the headless browser backend.
type BrowserConfig struct {
	Bin       string `yaml:"bin"`       // empty = ROD_BROWSER_BIN, platform table, rod lookup
	ScriptURL string `yaml:"scriptURL"` // mermaid.js location
	NoSandbox bool   `yaml:"noSandbox"`
	Download  bool   `yaml:"download"` // let rod fetch Chromium when none is installed
}

// PostProcessConfig controls the ImageMagick pass.
type PostProcessConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Bin         string `yaml:"bin"` // empty = magick, then convert
	Trim        bool   `yaml:"trim"`
	Padding     int    `yaml:"padding"`
	BorderColor string `yaml:"borderColor"`
	Density     int    `yaml:"density"`
	Quality     int    `yaml:"quality"`
}

// ReviewConfig controls the per-chapter review sheet.
type ReviewConfig struct {
	Enabled bool   `yaml:"enabled"`
	Title   string `yaml:"title"`
}

// AssetsConfig defines asset loading options.
type AssetsConfig struct {
	BasePath string `yaml:"basePath"` // Empty = use embedded assets
}

// Validate checks enumerations and numeric ranges.
// Called automatically by LoadConfig.
func (c *Config) Validate() error {
	if err := oneOf("chapters.collision", c.Chapters.Collision, CollisionModes); err != nil {
		return err
	}
	if err := oneOf("repair.strategy", c.Repair.Strategy, Strategies); err != nil {
		return err
	}
	for i, name := range c.Repair.Disable {
		if err := oneOf(fmt.Sprintf("repair.disable[%d]", i), name, RepairRuleNames); err != nil {
			return err
		}
	}
	if err := oneOf("render.backend", c.Render.Backend, Backends); err != nil {
		return err
	}
	if strings.ContainsAny(c.Chapters.DiagramsDir+c.Chapters.ImagesDir, "/\\") {
		return fmt.Errorf("%w: chapters.diagramsDir and chapters.imagesDir must be plain directory names", ErrInvalidValue)
	}
	if c.Chapters.Extension != "" {
		if err := fileutil.ValidateExtension(c.Chapters.Extension); err != nil {
			return fmt.Errorf("%w: chapters.extension: %v", ErrInvalidValue, err)
		}
	}

	if c.Render.Width < 0 || c.Render.Height < 0 {
		return fmt.Errorf("%w: render.width/height must be positive, got %dx%d", ErrInvalidValue, c.Render.Width, c.Render.Height)
	}
	if c.Render.Scale < 0 || c.Render.Scale > 8 {
		return fmt.Errorf("%w: render.scale must be between 0 and 8, got %.2f", ErrInvalidValue, c.Render.Scale)
	}
	if c.Render.Workers < 0 {
		return fmt.Errorf("%w: render.workers must be >= 0, got %d", ErrInvalidValue, c.Render.Workers)
	}
	if c.Render.Timeout != "" {
		d, err := time.ParseDuration(c.Render.Timeout)
		if err != nil || d <= 0 {
			return fmt.Errorf("%w: render.timeout %q is not a positive duration", ErrInvalidValue, c.Render.Timeout)
		}
	}
	if u := c.Render.Browser.ScriptURL; u != "" && !fileutil.IsURL(u) && !strings.HasPrefix(u, "file://") {
		return fmt.Errorf("%w: render.browser.scriptURL must be http(s) or file URL, got %q", ErrInvalidValue, u)
	}

	pp := c.PostProcess
	if pp.Padding < 0 || pp.Padding > 1000 {
		return fmt.Errorf("%w: postprocess.padding must be between 0 and 1000, got %d", ErrInvalidValue, pp.Padding)
	}
	if pp.Quality < 0 || pp.Quality > 100 {
		return fmt.Errorf("%w: postprocess.quality must be between 0 and 100, got %d", ErrInvalidValue, pp.Quality)
	}
	if pp.Density < 0 || pp.Density > 2400 {
		return fmt.Errorf("%w: postprocess.density must be between 0 and 2400, got %d", ErrInvalidValue, pp.Density)
	}

	return nil
}

// RenderTimeout returns the configured per-diagram timeout, or def when unset.
func (c *Config) RenderTimeout(def time.Duration) time.Duration {
	d, err := time.ParseDuration(c.Render.Timeout)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func oneOf(field, value string, allowed []string) error {
	if value == "" || slices.Contains(allowed, value) {
		return nil
	}
	return fmt.Errorf("%w: %s: %q (must be one of %s)", ErrInvalidValue, field, value, strings.Join(allowed, ", "))
}

// DefaultConfig reproduces the behavior of the book's original diagram
// script: mmdc at 1080x768 on white, ImageMagick trim with a 20px border.
func DefaultConfig() *Config {
	return &Config{
		Chapters: ChaptersConfig{
			Dir:         "chapters",
			DiagramsDir: "mermaid",
			ImagesDir:   "images",
			FenceTag:    "mermaid",
			Extension:   "mmd",
			Collision:   "suffix",
		},
		Repair: RepairConfig{Enabled: true, Strategy: "in-place"},
		Render: RenderConfig{
			Backend:    "cli",
			Width:      1080,
			Height:     768,
			Background: "white",
			Theme:      "default",
			Scale:      2,
			Timeout:    "30s",
			CLI:        CLIConfig{Bin: "mmdc"},
			Browser:    BrowserConfig{ScriptURL: DefaultScriptURL},
		},
		PostProcess: PostProcessConfig{
			Enabled:     true,
			Trim:        true,
			Padding:     20,
			BorderColor: "white",
			Density:     300,
			Quality:     100,
		},
		Review: ReviewConfig{Title: "Diagram review"},
	}
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Keys absent from the file keep their DefaultConfig values.
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	var err error

	if fileutil.IsFilePath(nameOrPath) {
		configPath = nameOrPath
	} else {
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yamlutil.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Dump returns cfg as YAML, for the config command.
func Dump(cfg *Config) ([]byte, error) {
	return yamlutil.Marshal(cfg)
}

// SearchPaths lists the candidate files for a config name, in lookup order:
// current directory (.yaml, .yml), then the user config directory.
func SearchPaths(name string) []string {
	extensions := []string{".yaml", ".yml"}
	paths := make([]string, 0, len(extensions)*2)
	for _, ext := range extensions {
		paths = append(paths, name+ext)
	}
	if userConfigDir, err := os.UserConfigDir(); err == nil {
		for _, ext := range extensions {
			paths = append(paths, filepath.Join(userConfigDir, AppName, name+ext))
		}
	}
	return paths
}

func resolveConfigPath(name string) (string, error) {
	tried := SearchPaths(name)
	for _, p := range tried {
		if fileutil.FileExists(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(tried, ", "))
}
