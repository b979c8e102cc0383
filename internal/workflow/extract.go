package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nkkko/ai-agent-patterns/internal/log"
	"github.com/nkkko/ai-agent-patterns/internal/store"
)

// chapterExt is the extension of chapter documents.
const chapterExt = ".md"

// Documents lists the chapter documents in the chapters directory, sorted by
// name. Markdown files without a chapter id prefix are skipped.
func (d *Driver) Documents() ([]string, error) {
	entries, err := os.ReadDir(d.chaptersDir)
	if err != nil {
		return nil, d.chaptersDirError(err)
	}

	var docs []string
	for _, e := range entries {
		if e.IsDir() || !isChapterDocument(e.Name()) {
			continue
		}
		docs = append(docs, filepath.Join(d.chaptersDir, e.Name()))
	}
	return docs, nil
}

func isChapterDocument(name string) bool {
	if !strings.EqualFold(filepath.Ext(name), chapterExt) {
		return false
	}
	_, err := store.ChapterID(name)
	return err == nil
}

func (d *Driver) extractAll(ctx context.Context, report *Report) error {
	docs, err := d.Documents()
	if err != nil {
		return err
	}
	log.FromContext(ctx).Debug("chapter documents found", "count", len(docs), "dir", d.chaptersDir)

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, o := range d.ExtractDocument(ctx, doc) {
			report.add(o)
		}
	}
	return nil
}

// ExtractDocument reads one chapter document and saves its diagrams. Each
// saved file is one successful outcome; a document that cannot be read,
// parsed or fully saved adds one failed outcome. A document without diagrams
// yields no outcomes.
func (d *Driver) ExtractDocument(ctx context.Context, doc string) []Outcome {
	logger := log.FromContext(ctx).With("document", doc)
	start := time.Now()

	fail := func(err error) Outcome {
		logger.Error("extraction failed", "error", err)
		return Outcome{Phase: PhaseExtract, Input: doc, Err: err, Duration: time.Since(start)}
	}

	chapter, err := store.ChapterID(doc)
	if err != nil {
		return []Outcome{fail(err)}
	}

	content, err := os.ReadFile(doc) // #nosec G304 -- discovered chapter document
	if err != nil {
		return []Outcome{fail(fmt.Errorf("%w: %v", ErrReadDocument, err))}
	}

	blocks, err := d.extractor.Extract(string(content))
	if err != nil {
		return []Outcome{fail(err)}
	}
	if len(blocks) == 0 {
		logger.Info("no diagrams found")
		return nil
	}

	paths, err := d.store.SaveDocument(doc, chapter, blocks)
	outcomes := make([]Outcome, 0, len(paths)+1)
	for _, p := range paths {
		outcomes = append(outcomes, Outcome{Phase: PhaseExtract, Input: doc, Output: p, Duration: time.Since(start)})
	}
	if err != nil {
		outcomes = append(outcomes, fail(err))
	}
	logger.Debug("diagrams saved", "count", len(paths), "blocks", len(blocks))
	return outcomes
}
