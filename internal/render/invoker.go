package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nkkko/ai-agent-patterns/internal/fileutil"
	"github.com/nkkko/ai-agent-patterns/internal/log"
)

// ImageExtension is the extension of every rendered image.
const ImageExtension = ".png"

// Invoker renders diagram files to images with the temp-file-and-rename
// discipline: a failed render never leaves a file at the target path.
type Invoker struct {
	backend Backend
	post    PostProcessor // nil disables post-processing
	timeout time.Duration
}

// NewInvoker creates an Invoker. post may be nil. A non-positive timeout
// means DefaultTimeout.
func NewInvoker(backend Backend, post PostProcessor, timeout time.Duration) *Invoker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Invoker{backend: backend, post: post, timeout: timeout}
}

// ImagePath returns where the image for diagramPath lands in outputDir.
func ImagePath(diagramPath, outputDir string) string {
	base := filepath.Base(diagramPath)
	return filepath.Join(outputDir, strings.TrimSuffix(base, filepath.Ext(base))+ImageExtension)
}

// Render produces outputDir/{name}.png from diagramPath and returns its
// path. Post-processing failures are logged and the base image kept.
func (iv *Invoker) Render(ctx context.Context, diagramPath, outputDir string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	logger := log.FromContext(ctx)

	if err := fileutil.EnsureDir(outputDir); err != nil {
		return "", fmt.Errorf("%w: %v", ErrIO, err)
	}

	target := ImagePath(diagramPath, outputDir)
	name := strings.TrimSuffix(filepath.Base(target), ImageExtension)

	tmpFile, err := os.CreateTemp(outputDir, "."+name+"-*"+ImageExtension)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrIO, err)
	}
	tmp := tmpFile.Name()
	_ = tmpFile.Close()

	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmp)
		}
	}()

	renderCtx, cancel := context.WithTimeout(ctx, iv.timeout)
	err = iv.backend.Render(renderCtx, diagramPath, tmp)
	timedOut := errors.Is(renderCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil
	cancel()
	switch {
	case err != nil && timedOut && errors.Is(err, ErrRenderFailure):
		return "", fmt.Errorf("%w after %s: %w", ErrTimeout, iv.timeout, err)
	case err != nil && timedOut:
		return "", fmt.Errorf("%w: %w after %s: %v", ErrRenderFailure, ErrTimeout, iv.timeout, err)
	case err != nil:
		return "", err
	case !fileutil.NonEmptyFile(tmp):
		return "", fmt.Errorf("%w: %s produced no output", ErrRenderFailure, iv.backend.Name())
	}

	if iv.post != nil {
		if err := iv.post.Process(ctx, tmp); err != nil {
			logger.Warn("post-processing skipped", "diagram", diagramPath, "tool", iv.post.Name(), "error", err)
		}
	}

	if err := os.Rename(tmp, target); err != nil {
		return "", fmt.Errorf("%w: %v", ErrIO, err)
	}
	committed = true

	logger.Debug("rendered", "diagram", diagramPath, "image", target, "backend", iv.backend.Name())
	return target, nil
}
