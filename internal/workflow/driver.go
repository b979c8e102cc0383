// Package workflow drives the diagram toolchain over a chapters directory:
// extract fenced diagrams to files, repair them, and render each to an image.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/nkkko/ai-agent-patterns/internal/log"
	"github.com/nkkko/ai-agent-patterns/internal/pipeline"
	"github.com/nkkko/ai-agent-patterns/internal/render"
	"github.com/nkkko/ai-agent-patterns/internal/store"
)

// Sentinel errors for workflow operations.
var (
	ErrChaptersDir  = errors.New("cannot read chapters directory")
	ErrReadDocument = errors.New("failed to read chapter document")
	ErrReadDiagram  = errors.New("failed to read diagram file")
	ErrWriteDiagram = errors.New("failed to write repaired diagram")
	ErrNoBackend    = errors.New("no render backend configured")
)

// Mode selects the phases of a run.
type Mode int

const (
	ModeAll Mode = iota
	ModeExtract
	ModeRender
)

func (m Mode) String() string {
	switch m {
	case ModeExtract:
		return "extract"
	case ModeRender:
		return "render"
	default:
		return "all"
	}
}

// DefaultImagesDir is the per-chapter image directory.
const DefaultImagesDir = "images"

// reviewSheet is the file name of a chapter's review sheet.
const reviewSheet = "index.html"

// Option configures a Driver.
type Option func(*Driver)

// Driver runs the extract and render phases. All paths derive from the
// chapters directory; the process working directory is never changed.
type Driver struct {
	chaptersDir string
	imagesDir   string
	workers     int
	timeout     time.Duration

	extractor  *pipeline.Extractor
	store      *store.Store
	repairer   *pipeline.Repairer // nil disables repair
	newBackend func() render.Backend
	post       render.PostProcessor

	review         *pipeline.ReviewRenderer // nil disables review sheets
	reviewTemplate string
	reviewTitle    string
}

// New creates a Driver over chaptersDir. newBackend builds one renderer per
// worker; it may be nil for extract-only runs.
func New(chaptersDir string, newBackend func() render.Backend, opts ...Option) *Driver {
	d := &Driver{
		chaptersDir: chaptersDir,
		imagesDir:   DefaultImagesDir,
		timeout:     render.DefaultTimeout,
		extractor:   pipeline.NewExtractor(pipeline.DefaultFenceTag),
		store:       store.New(store.Options{Root: chaptersDir}),
		repairer:    pipeline.NewRepairer(pipeline.StrategyInPlace),
		newBackend:  newBackend,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// WithExtractor replaces the default mermaid extractor.
func WithExtractor(e *pipeline.Extractor) Option {
	return func(d *Driver) { d.extractor = e }
}

// WithStore replaces the default store. Its root should be the chapters
// directory.
func WithStore(s *store.Store) Option {
	return func(d *Driver) { d.store = s }
}

// WithRepairer sets the repairer run before each render; nil disables repair.
func WithRepairer(r *pipeline.Repairer) Option {
	return func(d *Driver) { d.repairer = r }
}

// WithPostProcessor enables image post-processing.
func WithPostProcessor(p render.PostProcessor) Option {
	return func(d *Driver) { d.post = p }
}

// WithImagesDir sets the per-chapter image directory name.
func WithImagesDir(name string) Option {
	return func(d *Driver) {
		if name != "" {
			d.imagesDir = name
		}
	}
}

// WithWorkers sets the render worker count; 0 sizes the pool from GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(d *Driver) { d.workers = n }
}

// WithTimeout sets the per-diagram render timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Driver) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithReview writes an index.html review sheet into every chapter's image
// directory after rendering, using the given html/template text.
func WithReview(tpl, title string) Option {
	return func(d *Driver) {
		d.review = pipeline.NewReviewRenderer()
		d.reviewTemplate = tpl
		d.reviewTitle = title
	}
}

// Run executes the phases selected by mode. Per-file failures are recorded
// in the report; the returned error is reserved for conditions that stop the
// whole run: an unreadable chapters directory, a missing renderer, or
// cancellation.
func (d *Driver) Run(ctx context.Context, mode Mode) (*Report, error) {
	logger := log.FromContext(ctx).With("mode", mode.String())
	ctx = log.ContextWithLogger(ctx, logger)

	report := &Report{Mode: mode}

	if mode != ModeRender {
		if err := d.extractAll(ctx, report); err != nil {
			return report, err
		}
	}
	if mode != ModeExtract {
		if err := d.renderAll(ctx, report); err != nil {
			return report, err
		}
	}

	logger.Info("run complete",
		"attempted", report.Attempted(),
		"succeeded", report.Succeeded())
	return report, ctx.Err()
}

// imagesDirFor returns the image directory that pairs with a diagram file:
// {chapter}/{diagramsDir}/x.mmd renders into {chapter}/{imagesDir}.
func (d *Driver) imagesDirFor(diagramPath string) string {
	chapterDir := filepath.Dir(filepath.Dir(diagramPath))
	return filepath.Join(chapterDir, d.imagesDir)
}

func (d *Driver) chaptersDirError(err error) error {
	return fmt.Errorf("%w: %s: %v", ErrChaptersDir, d.chaptersDir, err)
}
