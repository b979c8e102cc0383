package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ErrMalformedInput indicates fence markers that cannot be paired.
var ErrMalformedInput = errors.New("malformed diagram fences")

// DefaultFenceTag is the code fence language that marks a diagram block.
const DefaultFenceTag = "mermaid"

// Block is one fenced diagram found in a chapter document.
type Block struct {
	Index int    // 1-based position among the document's diagram blocks
	Line  int    // 1-based line of the opening fence
	Body  string // text strictly between the fence lines, without the final newline
}

// Extractor locates diagram blocks in Markdown documents.
// It is stateless and safe for concurrent use.
type Extractor struct {
	tag string
	md  goldmark.Markdown
}

// NewExtractor creates an Extractor for fences labeled tag
// (DefaultFenceTag when empty).
func NewExtractor(tag string) *Extractor {
	if tag == "" {
		tag = DefaultFenceTag
	}
	return &Extractor{tag: tag, md: goldmark.New()}
}

// Tag returns the fence language this extractor matches.
func (e *Extractor) Tag() string { return e.tag }

// Extract returns the document's diagram blocks in order. A document without
// diagram blocks yields an empty slice and no error. Unclosed fences and
// fence openers nested inside a diagram block yield ErrMalformedInput.
func (e *Extractor) Extract(content string) ([]Block, error) {
	content = NormalizeLineEndings(content)

	if err := validateFences(content, e.tag); err != nil {
		return nil, err
	}

	src := []byte(content)
	doc := e.md.Parser().Parse(text.NewReader(src))
	lineStarts := indexLines(src)

	var blocks []Block
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fcb, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		if fcb.Info == nil || string(fcb.Language(src)) != e.tag {
			return ast.WalkSkipChildren, nil
		}

		var body strings.Builder
		lines := fcb.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			body.Write(seg.Value(src))
		}

		blocks = append(blocks, Block{
			Index: len(blocks) + 1,
			Line:  lineOf(lineStarts, fcb.Info.Segment.Start),
			Body:  strings.TrimSuffix(body.String(), "\n"),
		})
		return ast.WalkSkipChildren, nil
	})
	if err != nil {
		return nil, err
	}

	return blocks, nil
}

// fence is an opening or closing code fence line.
type fence struct {
	char   byte
	length int
	info   string
}

// parseFence recognizes a CommonMark code fence: at most three spaces of
// indentation, then three or more backticks or tildes.
func parseFence(line string) (fence, bool) {
	indent := 0
	for indent < len(line) && line[indent] == ' ' {
		indent++
	}
	if indent > 3 || indent >= len(line) {
		return fence{}, false
	}
	rest := line[indent:]
	c := rest[0]
	if c != '`' && c != '~' {
		return fence{}, false
	}
	n := 0
	for n < len(rest) && rest[n] == c {
		n++
	}
	if n < 3 {
		return fence{}, false
	}
	info := strings.TrimSpace(rest[n:])
	// A backtick fence's info string may not contain backticks.
	if c == '`' && strings.ContainsRune(info, '`') {
		return fence{}, false
	}
	return fence{char: c, length: n, info: info}, true
}

func firstWord(s string) string {
	if f := strings.Fields(s); len(f) > 0 {
		return f[0]
	}
	return ""
}

// validateFences pairs fence lines the way a CommonMark parser would and
// reports the boundaries that would otherwise be silently mis-extracted.
// A stray closer surfaces as an unclosed fence, since CommonMark treats it
// as an opener running to the end of the document. A fence opened inside a
// blockquote is unclosed when the quote ends first. Fences nested in list
// items are not followed.
func validateFences(content, tag string) error {
	var (
		open      *fence
		openLine  int
		openDepth int
		diagram   bool
	)

	for i, raw := range strings.Split(content, "\n") {
		if open == nil {
			line, depth := stripQuoteMarkers(raw, -1)
			if f, ok := parseFence(line); ok {
				open, openLine, openDepth, diagram = &f, i+1, depth, firstWord(f.info) == tag
			}
			continue
		}

		line, depth := stripQuoteMarkers(raw, openDepth)
		if depth < openDepth {
			return unclosedFence(open, openLine)
		}
		f, ok := parseFence(line)
		if !ok || f.char != open.char {
			continue
		}
		if f.info == "" && f.length >= open.length {
			open = nil
			continue
		}
		if diagram && f.info != "" {
			return fmt.Errorf("%w: line %d: fence opener %q inside %s block opened at line %d",
				ErrMalformedInput, i+1, strings.TrimSpace(line), tag, openLine)
		}
	}

	if open != nil {
		return unclosedFence(open, openLine)
	}
	return nil
}

func unclosedFence(open *fence, line int) error {
	label := firstWord(open.info)
	if label == "" {
		label = "unlabeled"
	}
	return fmt.Errorf("%w: line %d: %s fence is never closed", ErrMalformedInput, line, label)
}

// stripQuoteMarkers removes up to limit leading blockquote markers (all of
// them when limit is negative) and returns the rest of the line with the
// number removed.
func stripQuoteMarkers(line string, limit int) (string, int) {
	depth := 0
	for limit < 0 || depth < limit {
		t := strings.TrimLeft(line, " ")
		if len(line)-len(t) > 3 || !strings.HasPrefix(t, ">") {
			break
		}
		line = strings.TrimPrefix(t[1:], " ")
		depth++
	}
	return line, depth
}

// indexLines returns the byte offset at which each line starts.
func indexLines(src []byte) []int {
	starts := []int{0}
	for i, b := range src {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// lineOf maps a byte offset to its 1-based line number.
func lineOf(starts []int, offset int) int {
	lo, hi := 0, len(starts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if starts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo + 1
}
