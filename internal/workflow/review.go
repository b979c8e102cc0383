package workflow

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/nkkko/ai-agent-patterns/internal/fileutil"
	"github.com/nkkko/ai-agent-patterns/internal/log"
	"github.com/nkkko/ai-agent-patterns/internal/pipeline"
)

// writeReviews writes one review sheet per chapter touched by outcomes and
// returns their paths. Sheets are a convenience: failures are logged only.
func (d *Driver) writeReviews(ctx context.Context, outcomes []Outcome) []string {
	logger := log.FromContext(ctx)

	var chapters []string
	pages := make(map[string]*pipeline.ReviewPage)
	for _, o := range outcomes {
		chapterDir := filepath.Dir(filepath.Dir(o.Input))
		page, ok := pages[chapterDir]
		if !ok {
			page = &pipeline.ReviewPage{Title: d.reviewTitle, Chapter: filepath.Base(chapterDir)}
			pages[chapterDir] = page
			chapters = append(chapters, chapterDir)
		}

		source, err := os.ReadFile(o.Input) // #nosec G304 -- discovered diagram file
		if err != nil {
			logger.Warn("review sheet: skipping diagram", "diagram", o.Input, "error", err)
			continue
		}
		item := pipeline.ReviewItem{
			Name:   strings.TrimSuffix(filepath.Base(o.Input), filepath.Ext(o.Input)),
			Source: strings.TrimSuffix(string(source), "\n"),
		}
		if o.Err == nil && o.Output != "" {
			item.Image = filepath.Base(o.Output)
		}
		page.Items = append(page.Items, item)
	}

	var written []string
	for _, chapterDir := range chapters {
		path := filepath.Join(chapterDir, d.imagesDir, reviewSheet)
		html, err := d.review.Render(ctx, d.reviewTemplate, *pages[chapterDir])
		if err != nil {
			logger.Warn("review sheet not written", "path", path, "error", err)
			continue
		}
		if err := fileutil.EnsureDir(filepath.Dir(path)); err != nil {
			logger.Warn("review sheet not written", "path", path, "error", err)
			continue
		}
		if err := fileutil.WriteFileAtomic(path, []byte(html)); err != nil {
			logger.Warn("review sheet not written", "path", path, "error", err)
			continue
		}
		written = append(written, path)
	}
	return written
}
