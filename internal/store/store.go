// Package store persists extracted diagram blocks as one file per diagram
// under a chapter-scoped directory.
package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/nkkko/ai-agent-patterns/internal/fileutil"
	"github.com/nkkko/ai-agent-patterns/internal/pipeline"
)

// Sentinel errors for store operations.
var (
	ErrIO                 = errors.New("diagram file I/O failed")
	ErrNameCollision      = errors.New("diagram name collision")
	ErrNotChapterDocument = errors.New("not a chapter document")
	ErrInvalidCollision   = errors.New("invalid collision policy")
)

// CollisionPolicy decides what happens when two blocks derive the same file
// name in one chapter, within a document or across documents sharing the
// chapter id.
type CollisionPolicy string

const (
	// CollisionSuffix appends _2, _3, ... to later duplicates.
	CollisionSuffix CollisionPolicy = "suffix"
	// CollisionOverwrite lets the later block replace the earlier file.
	CollisionOverwrite CollisionPolicy = "overwrite"
	// CollisionError fails the document before anything is written.
	CollisionError CollisionPolicy = "error"
)

// ParseCollisionPolicy validates a policy name. Empty means CollisionSuffix.
func ParseCollisionPolicy(s string) (CollisionPolicy, error) {
	switch CollisionPolicy(s) {
	case "", CollisionSuffix:
		return CollisionSuffix, nil
	case CollisionOverwrite:
		return CollisionOverwrite, nil
	case CollisionError:
		return CollisionError, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidCollision, s)
	}
}

// DefaultExtension is the diagram file extension.
const DefaultExtension = "mmd"

// Options configures a Store.
type Options struct {
	Root        string // chapters directory
	DiagramsDir string // per-chapter subdirectory (default: mermaid)
	Extension   string // without dot (default: mmd)
	Collision   CollisionPolicy
}

// Store writes diagram files to {Root}/{chapter}/{DiagramsDir}/{name}.{Extension}.
// It remembers which document claimed each name for its lifetime, so one
// Store should serve one run.
type Store struct {
	opts Options

	mu     sync.Mutex
	owners map[string]string // chapter/name -> document
}

// New creates a Store, filling unset options with defaults.
func New(opts Options) *Store {
	if opts.DiagramsDir == "" {
		opts.DiagramsDir = "mermaid"
	}
	if opts.Extension == "" {
		opts.Extension = DefaultExtension
	}
	if opts.Collision == "" {
		opts.Collision = CollisionSuffix
	}
	return &Store{opts: opts, owners: make(map[string]string)}
}

// Dir returns the diagram directory of chapter.
func (s *Store) Dir(chapter string) string {
	return filepath.Join(s.opts.Root, chapter, s.opts.DiagramsDir)
}

// Extension returns the diagram file extension, without dot.
func (s *Store) Extension() string { return s.opts.Extension }

// Save writes one file per block and returns the written paths in block
// order. Existing files at those paths are replaced. No directory is created
// when blocks is empty. On a write failure the paths written so far are
// returned with an error wrapping ErrIO. Names are not tracked across calls;
// see SaveDocument.
func (s *Store) Save(chapter string, blocks []pipeline.Block) ([]string, error) {
	return s.SaveDocument("", chapter, blocks)
}

// SaveDocument is Save for the blocks of document doc. Names already claimed
// in chapter by another document go through the collision policy like
// duplicates within doc. Saving doc again releases the names it held.
func (s *Store) SaveDocument(doc, chapter string, blocks []pipeline.Block) ([]string, error) {
	if len(blocks) == 0 {
		return nil, nil
	}

	names, err := s.resolveNames(doc, chapter, blocks)
	if err != nil {
		return nil, err
	}

	dir := s.Dir(chapter)
	if err := fileutil.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}

	paths := make([]string, 0, len(blocks))
	for i, b := range blocks {
		path := filepath.Join(dir, names[i]+"."+s.opts.Extension)
		body := b.Body
		if !strings.HasSuffix(body, "\n") {
			body += "\n"
		}
		if err := fileutil.WriteFileAtomic(path, []byte(body)); err != nil {
			return paths, fmt.Errorf("%w: %v", ErrIO, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// resolveNames derives every block's name, applies the collision policy
// and records doc as the owner of the result.
func (s *Store) resolveNames(doc, chapter string, blocks []pipeline.Block) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ownerOf := func(name string) string {
		if doc == "" {
			return ""
		}
		if owner := s.owners[filepath.Join(chapter, name)]; owner != doc {
			return owner
		}
		return ""
	}

	names := make([]string, len(blocks))
	seen := make(map[string]int, len(blocks))
	for i, b := range blocks {
		name := DeriveName(b.Body, b.Index)
		seen[name]++
		n := seen[name]
		owner := ownerOf(name)
		if n > 1 || owner != "" {
			switch s.opts.Collision {
			case CollisionError:
				if owner != "" {
					return nil, fmt.Errorf("%w: block %d (line %d) derives %q, already written by %s",
						ErrNameCollision, b.Index, b.Line, name, owner)
				}
				return nil, fmt.Errorf("%w: block %d (line %d) derives %q, already used",
					ErrNameCollision, b.Index, b.Line, name)
			case CollisionSuffix:
				name = uniqueName(name, max(n, 2), seen, ownerOf)
			}
		}
		names[i] = name
	}

	if doc != "" {
		for key, owner := range s.owners {
			if owner == doc {
				delete(s.owners, key)
			}
		}
		for _, name := range names {
			s.owners[filepath.Join(chapter, name)] = doc
		}
	}
	return names, nil
}

// uniqueName finds the first name_N, starting at n, that is neither used in
// this batch nor owned by another document.
func uniqueName(base string, n int, seen map[string]int, ownerOf func(string) string) string {
	for ; ; n++ {
		candidate := base + "_" + strconv.Itoa(n)
		if seen[candidate] == 0 && ownerOf(candidate) == "" {
			seen[candidate] = 1
			return candidate
		}
	}
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// DeriveName names a diagram after its first non-empty line: a graph or
// flowchart header contributes its second token (usually the direction),
// anything else falls back to diagram_{index}. The result only contains
// [A-Za-z0-9_-].
func DeriveName(body string, index int) string {
	fallback := "diagram_" + strconv.Itoa(index)

	var first string
	for _, line := range strings.Split(pipeline.NormalizeLineEndings(body), "\n") {
		if t := strings.TrimSpace(line); t != "" {
			first = t
			break
		}
	}

	fields := strings.Fields(first)
	if len(fields) < 2 || !isFlowKeyword(fields[0]) {
		return fallback
	}
	if name := unsafeNameChars.ReplaceAllString(fields[1], ""); name != "" {
		return name
	}
	return fallback
}

func isFlowKeyword(token string) bool {
	return token == "graph" || token == "flowchart" || strings.HasPrefix(token, "flowchart-")
}

var chapterFile = regexp.MustCompile(`^(\d[\w-]*?)_`)

// ChapterID returns the chapter number prefix of a document file name,
// e.g. "03" for chapters/03_tool_use.md.
func ChapterID(path string) (string, error) {
	base := filepath.Base(path)
	m := chapterFile.FindStringSubmatch(base)
	if m == nil {
		return "", fmt.Errorf("%w: %s (want NN_description.md)", ErrNotChapterDocument, base)
	}
	return m[1], nil
}
