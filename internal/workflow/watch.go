package workflow

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/nkkko/ai-agent-patterns/internal/fileutil"
	"github.com/nkkko/ai-agent-patterns/internal/log"
)

// DefaultDebounce is how long a chapter document must stay quiet before it
// is processed. Editors often write a file several times per save.
const DefaultDebounce = 300 * time.Millisecond

// watchTick is the debounce polling interval.
const watchTick = 100 * time.Millisecond

// Change is the result of processing one changed chapter document.
type Change struct {
	Document string
	Outcomes []Outcome
	Reviews  []string
}

// Watch processes every chapter document that changes in the chapters
// directory until ctx is done. ModeExtract only re-extracts; any other mode
// also renders the document's diagrams. onChange is called from a single
// goroutine. Watch returns ctx.Err() on cancellation, or the first error
// that stops rendering altogether.
func (d *Driver) Watch(ctx context.Context, mode Mode, debounce time.Duration, onChange func(Change)) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watching chapters: %w", err)
	}
	defer func() {
		_ = watcher.Close()
	}()

	if err := watcher.Add(d.chaptersDir); err != nil {
		return d.chaptersDirError(err)
	}
	log.FromContext(ctx).Info("watching", "dir", d.chaptersDir, "debounce", debounce)

	changed := make(chan string, 16)
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		defer close(changed)
		return d.watchLoop(ctx, watcher, debounce, changed)
	})
	eg.Go(func() error {
		for doc := range changed {
			c, err := d.processChange(ctx, mode, doc)
			if err != nil {
				return err
			}
			if c != nil {
				onChange(*c)
			}
		}
		return nil
	})
	return eg.Wait()
}

// watchLoop turns bursts of filesystem events into one notification per
// document once it has been quiet for debounce.
func (d *Driver) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, debounce time.Duration, changed chan<- string) error {
	logger := log.FromContext(ctx)
	pending := make(map[string]time.Time)

	ticker := time.NewTicker(watchTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			var ready []string
			for doc, at := range pending {
				if time.Since(at) >= debounce {
					ready = append(ready, doc)
				}
			}
			slices.Sort(ready)
			for _, doc := range ready {
				delete(pending, doc)
				select {
				case changed <- doc:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || !isChapterDocument(filepath.Base(event.Name)) {
				continue
			}
			pending[event.Name] = time.Now()
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("chapter watcher error", "error", watchErr)
		}
	}
}

// processChange re-extracts doc and renders what it produced. A document
// removed before it settled is ignored.
func (d *Driver) processChange(ctx context.Context, mode Mode, doc string) (*Change, error) {
	if !fileutil.FileExists(doc) {
		return nil, nil
	}
	log.FromContext(ctx).Debug("chapter changed", "document", doc)

	c := &Change{Document: doc, Outcomes: d.ExtractDocument(ctx, doc)}
	if mode == ModeExtract {
		return c, nil
	}

	var files []string
	for _, o := range c.Outcomes {
		if o.Err == nil && o.Output != "" {
			files = append(files, o.Output)
		}
	}
	outcomes, reviews, err := d.RenderFiles(ctx, files)
	if err != nil {
		return nil, err
	}
	c.Outcomes = append(c.Outcomes, outcomes...)
	c.Reviews = reviews
	return c, nil
}
