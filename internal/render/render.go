// Package render turns diagram files into raster images through an external
// renderer: the Mermaid CLI or a headless browser driven by go-rod. An
// optional ImageMagick pass trims and pads the result.
package render

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for render operations.
var (
	ErrRenderFailure       = errors.New("render failed")
	ErrTimeout             = errors.New("timed out")
	ErrToolUnavailable     = errors.New("renderer not available")
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	ErrIO                  = errors.New("image file I/O failed")
	ErrUnknownBackend      = errors.New("unknown render backend")
)

// Backend names.
const (
	BackendCLI     = "cli"
	BackendBrowser = "browser"
)

// Backend rasterizes one diagram file to a PNG.
// A Backend is used by one goroutine at a time.
type Backend interface {
	// Name identifies the backend in logs and reports.
	Name() string

	// Check reports ErrToolUnavailable or ErrUnsupportedPlatform when the
	// backend cannot work on this machine. Called once before a batch.
	Check(ctx context.Context) error

	// Render writes the image for the diagram at src to dst.
	Render(ctx context.Context, src, dst string) error

	// Close releases processes and temp files.
	Close() error
}

// Options holds the rendering parameters shared by both backends.
type Options struct {
	Width      int
	Height     int
	Background string
	Theme      string
	Scale      float64
	Timeout    time.Duration
}

// Defaults reproduce the book's original mmdc invocation.
const (
	DefaultWidth      = 1080
	DefaultHeight     = 768
	DefaultBackground = "white"
	DefaultTimeout    = 30 * time.Second
)

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Background == "" {
		o.Background = DefaultBackground
	}
	if o.Scale <= 0 {
		o.Scale = 1
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}
