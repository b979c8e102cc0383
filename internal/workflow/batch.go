package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/nkkko/ai-agent-patterns/internal/fileutil"
	"github.com/nkkko/ai-agent-patterns/internal/log"
	"github.com/nkkko/ai-agent-patterns/internal/pipeline"
	"github.com/nkkko/ai-agent-patterns/internal/render"
)

// backendPool abstracts render.Pool for the batch loop.
type backendPool interface {
	Acquire() render.Backend
	Release(render.Backend)
	Size() int
}

var _ backendPool = (*render.Pool)(nil)

// checker is implemented by post-processors that can detect their tool.
type checker interface {
	Check() (string, error)
}

// Diagrams lists every diagram file under the chapters directory, sorted.
func (d *Driver) Diagrams() ([]string, error) {
	if _, err := os.Stat(d.chaptersDir); err != nil {
		return nil, d.chaptersDirError(err)
	}
	pattern := filepath.Join(d.store.Dir("*"), "*."+d.store.Extension())
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, d.chaptersDirError(err)
	}
	slices.Sort(files)
	return files, nil
}

func (d *Driver) renderAll(ctx context.Context, report *Report) error {
	files, err := d.Diagrams()
	if err != nil {
		return err
	}
	if len(files) == 0 {
		log.FromContext(ctx).Info("no diagram files to render", "dir", d.chaptersDir)
		return nil
	}

	outcomes, reviews, err := d.RenderFiles(ctx, files)
	for _, o := range outcomes {
		report.add(o)
	}
	report.Reviews = append(report.Reviews, reviews...)
	return err
}

// RenderFiles repairs and renders files on a pool of backends and returns
// one outcome per file in input order, plus the review sheets written. The
// error is non-nil only when no backend can render at all.
func (d *Driver) RenderFiles(ctx context.Context, files []string) ([]Outcome, []string, error) {
	if len(files) == 0 {
		return nil, nil, nil
	}
	if d.newBackend == nil {
		return nil, nil, ErrNoBackend
	}
	logger := log.FromContext(ctx)

	pool := render.NewPool(min(render.ResolvePoolSize(d.workers), len(files)), d.newBackend)
	defer func() {
		if err := pool.Close(); err != nil {
			logger.Warn("closing renderers", "error", err)
		}
	}()

	probe := pool.Acquire()
	err := probe.Check(ctx)
	pool.Release(probe)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("renderer ready", "backend", probe.Name(), "workers", pool.Size(), "files", len(files))

	post := d.post
	if c, ok := post.(checker); ok {
		if _, err := c.Check(); err != nil {
			logger.Warn("post-processing disabled", "error", err)
			post = nil
		}
	}

	outcomes := d.renderBatch(ctx, pool, files, post)

	var reviews []string
	if d.review != nil {
		reviews = d.writeReviews(ctx, outcomes)
	}
	return outcomes, reviews, nil
}

// renderBatch fans files out over the pool; each worker holds one backend
// for the whole batch.
func (d *Driver) renderBatch(ctx context.Context, pool backendPool, files []string, post render.PostProcessor) []Outcome {
	concurrency := min(pool.Size(), len(files))

	results := make([]Outcome, len(files))
	var wg sync.WaitGroup
	jobs := make(chan int, len(files))

	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			backend := pool.Acquire()
			defer pool.Release(backend)
			iv := render.NewInvoker(backend, post, d.timeout)

			for idx := range jobs {
				if err := ctx.Err(); err != nil {
					results[idx] = Outcome{Phase: PhaseRender, Input: files[idx], Err: err}
					continue
				}
				results[idx] = d.renderFile(ctx, iv, files[idx])
			}
		}()
	}

	for i := range files {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
	return results
}

// renderFile repairs one diagram file in place when needed, then renders it.
func (d *Driver) renderFile(ctx context.Context, iv *render.Invoker, path string) Outcome {
	start := time.Now()
	logger := log.FromContext(ctx).With("diagram", path)
	result := Outcome{Phase: PhaseRender, Input: path}

	if d.repairer != nil {
		warning, err := d.repairFile(ctx, path)
		if err != nil {
			result.Err = err
			result.Duration = time.Since(start)
			logger.Error("repair failed", "error", err)
			return result
		}
		result.Warning = warning
	}

	out, err := iv.Render(ctx, path, d.imagesDirFor(path))
	result.Duration = time.Since(start)
	if err != nil {
		result.Err = err
		logger.Error("render failed", "error", err)
		return result
	}
	result.Output = out
	return result
}

// repairFile rewrites path when the repairer changes its text. It returns a
// warning for diagram kinds the repairer does not recognize.
func (d *Driver) repairFile(ctx context.Context, path string) (string, error) {
	logger := log.FromContext(ctx).With("diagram", path)

	data, err := os.ReadFile(path) // #nosec G304 -- discovered diagram file
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrReadDiagram, err)
	}

	body := strings.TrimSuffix(pipeline.NormalizeLineEndings(string(data)), "\n")
	res := d.repairer.Repair(body)

	if res.Unsupported {
		logger.Warn("unsupported diagram kind, rendering unchanged")
		return "unsupported diagram kind; not repaired", nil
	}
	text := strings.TrimSuffix(res.Text, "\n")
	if !res.Changed || text == body {
		return "", nil
	}

	if err := fileutil.WriteFileAtomic(path, []byte(text+"\n")); err != nil {
		return "", fmt.Errorf("%w: %v", ErrWriteDiagram, err)
	}
	logger.Info("diagram repaired", "kind", res.Kind.String(), "strategy", string(d.repairer.Strategy()), "rules", res.Applied)
	return "", nil
}
