package render

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/nkkko/ai-agent-patterns/internal/fileutil"
)

// PostProcessor enhances a rendered image in place. Failures must leave the
// image at path untouched.
type PostProcessor interface {
	Name() string
	Process(ctx context.Context, path string) error
}

// MagickOptions configures the ImageMagick pass.
type MagickOptions struct {
	Bin         string // empty = magick, then convert
	Trim        bool
	Padding     int
	BorderColor string
	Density     int
	Quality     int
}

// magickCandidates are tried in order when no binary is configured.
var magickCandidates = []string{"magick", "convert"}

// Magick trims, pads and resamples images with ImageMagick.
type Magick struct {
	Runner   CommandRunner
	LookPath func(file string) (string, error)

	opts MagickOptions
	mu   sync.Mutex
	bin  string
}

// NewMagick creates a Magick post-processor.
func NewMagick(opts MagickOptions) *Magick {
	if opts.BorderColor == "" {
		opts.BorderColor = DefaultBackground
	}
	return &Magick{Runner: &ExecRunner{}, LookPath: exec.LookPath, opts: opts}
}

func (m *Magick) Name() string { return "imagemagick" }

// Check resolves the ImageMagick binary. Safe for concurrent use.
func (m *Magick) Check() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bin != "" {
		return m.bin, nil
	}
	candidates := magickCandidates
	if m.opts.Bin != "" {
		candidates = []string{m.opts.Bin}
	}
	for _, c := range candidates {
		if p, err := m.LookPath(c); err == nil {
			m.bin = p
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: none of %v found in PATH", ErrToolUnavailable, candidates)
}

// Args returns the ImageMagick arguments that turn in into out.
func (m *Magick) Args(in, out string) []string {
	args := []string{in}
	if m.opts.Trim {
		args = append(args, "-trim", "+repage")
	}
	if m.opts.Padding > 0 {
		pad := strconv.Itoa(m.opts.Padding)
		args = append(args, "-bordercolor", m.opts.BorderColor, "-border", pad+"x"+pad)
	}
	if m.opts.Density > 0 {
		args = append(args, "-density", strconv.Itoa(m.opts.Density))
	}
	if m.opts.Quality > 0 {
		args = append(args, "-quality", strconv.Itoa(m.opts.Quality))
	}
	return append(args, out)
}

// Process works on a copy next to path and renames it over path only when
// ImageMagick succeeded and produced a non-empty file.
func (m *Magick) Process(ctx context.Context, path string) error {
	bin, err := m.Check()
	if err != nil {
		return err
	}

	tmp, err := copyToTemp(path)
	if err != nil {
		return err
	}
	keep := false
	defer func() {
		if !keep {
			_ = os.Remove(tmp)
		}
	}()

	if _, stderr, err := m.Runner.Run(ctx, bin, m.Args(tmp, tmp)...); err != nil {
		return fmt.Errorf("%s: %s", filepath.Base(bin), firstLine(stderr, err))
	}
	if !fileutil.NonEmptyFile(tmp) {
		return fmt.Errorf("%s produced an empty image", filepath.Base(bin))
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("%w: replacing %s: %v", ErrIO, path, err)
	}
	keep = true
	return nil
}

// copyToTemp copies path to a hidden sibling with the same extension.
func copyToTemp(path string) (string, error) {
	src, err := os.Open(path) // #nosec G304 -- image produced by this run
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrIO, err)
	}
	defer src.Close()

	dst, err := os.CreateTemp(filepath.Dir(path), ".pp-*"+filepath.Ext(path))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrIO, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(dst.Name())
		return "", fmt.Errorf("%w: copying %s: %v", ErrIO, path, err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(dst.Name())
		return "", fmt.Errorf("%w: %v", ErrIO, err)
	}
	return dst.Name(), nil
}

// Compile-time interface check.
var _ PostProcessor = (*Magick)(nil)
