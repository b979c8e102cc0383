package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/renderer/html"
)

// ErrReviewRender indicates the review sheet could not be produced.
var ErrReviewRender = errors.New("review sheet rendering failed")

// reviewStyle is the Chroma style used for diagram listings.
const reviewStyle = "github"

// Chroma ships no Mermaid lexer; this one colors keywords, arrows, strings
// and comments, which is all a reviewer needs.
var mermaidLexer = lexers.Register(chroma.MustNewLexer(
	&chroma.Config{
		Name:      "Mermaid",
		Aliases:   []string{"mermaid", "mmd"},
		Filenames: []string{"*.mmd"},
	},
	func() chroma.Rules {
		return chroma.Rules{
			"root": {
				{Pattern: `%%[^\n]*`, Type: chroma.CommentSingle},
				{Pattern: `"[^"\n]*"`, Type: chroma.LiteralString},
				{Pattern: `\b(classDiagram|sequenceDiagram|flowchart|graph|subgraph|end|participant|actor|class|note|for|over|style|classDef|linkStyle|click|direction|loop|alt|else|opt|par|and|rect|activate|deactivate|autonumber)\b`, Type: chroma.Keyword},
				{Pattern: `\b(TD|TB|BT|RL|LR)\b`, Type: chroma.KeywordConstant},
				{Pattern: `(?:<\|?|\*)?(?:-{1,2}>>|--+|==+|-\.+-?|\.\.|->|-x|-\))(?:\|?>|\*|x|\))?`, Type: chroma.Operator},
				{Pattern: `[\[\]\(\)\{\}|:;,&+~]`, Type: chroma.Punctuation},
				{Pattern: `\w+`, Type: chroma.Name},
				{Pattern: `\s+`, Type: chroma.TextWhitespace},
				{Pattern: `.`, Type: chroma.Text},
			},
		}
	},
))

// ReviewItem is one rendered diagram listed on a review sheet.
type ReviewItem struct {
	Name   string
	Image  string // path relative to the sheet; empty when rendering failed
	Source string
}

// ReviewPage is the data for one chapter's review sheet.
type ReviewPage struct {
	Title   string
	Chapter string
	Items   []ReviewItem
}

// reviewItemView is what the template sees.
type reviewItemView struct {
	Name   string
	Image  string
	Source template.HTML
}

// ReviewRenderer turns diagram sources into a self-contained HTML sheet that
// shows each image beside its highlighted source.
type ReviewRenderer struct {
	md  goldmark.Markdown
	css string
}

// NewReviewRenderer creates a ReviewRenderer with Chroma class-based highlighting.
func NewReviewRenderer() *ReviewRenderer {
	md := goldmark.New(
		goldmark.WithExtensions(
			highlighting.NewHighlighting(
				highlighting.WithStyle(reviewStyle),
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true),
					chromahtml.WithLineNumbers(true),
				),
			),
		),
		goldmark.WithRendererOptions(html.WithXHTML()),
	)

	var css bytes.Buffer
	formatter := chromahtml.New(chromahtml.WithClasses(true), chromahtml.WithLineNumbers(true))
	// WriteCSS only fails on writer errors; a bytes.Buffer has none.
	_ = formatter.WriteCSS(&css, styles.Get(reviewStyle))

	return &ReviewRenderer{md: md, css: css.String()}
}

// Render executes tpl (an html/template) over page.
func (r *ReviewRenderer) Render(ctx context.Context, tpl string, page ReviewPage) (string, error) {
	t, err := template.New("review").Parse(tpl)
	if err != nil {
		return "", fmt.Errorf("%w: parsing template: %v", ErrReviewRender, err)
	}

	items := make([]reviewItemView, 0, len(page.Items))
	for _, it := range page.Items {
		src, err := r.highlight(ctx, it.Source)
		if err != nil {
			return "", err
		}
		items = append(items, reviewItemView{Name: it.Name, Image: it.Image, Source: template.HTML(src)}) // #nosec G203 -- goldmark output without WithUnsafe
	}

	var out bytes.Buffer
	err = t.Execute(&out, struct {
		Title   string
		Chapter string
		CSS     template.CSS
		Items   []reviewItemView
	}{
		Title:   page.Title,
		Chapter: page.Chapter,
		CSS:     template.CSS(r.css), // #nosec G203 -- generated by chroma
		Items:   items,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrReviewRender, err)
	}
	return out.String(), nil
}

// highlight renders source as a fenced mermaid listing. Goldmark has no
// context support, so conversion runs in a goroutine raced against ctx.
func (r *ReviewRenderer) highlight(ctx context.Context, source string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	fenceLen := 3
	for strings.Contains(source, strings.Repeat("`", fenceLen)) {
		fenceLen++
	}
	fenceMark := strings.Repeat("`", fenceLen)
	doc := fenceMark + mermaidLexer.Config().Aliases[0] + "\n" + source + "\n" + fenceMark + "\n"

	type result struct {
		html string
		err  error
	}
	done := make(chan result, 1)

	go func() {
		var buf bytes.Buffer
		if err := r.md.Convert([]byte(doc), &buf); err != nil {
			done <- result{err: fmt.Errorf("%w: %v", ErrReviewRender, err)}
			return
		}
		done <- result{html: buf.String()}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-done:
		return res.html, res.err
	}
}
