package render

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/nkkko/ai-agent-patterns/internal/fileutil"
	"github.com/nkkko/ai-agent-patterns/internal/log"
	"github.com/nkkko/ai-agent-patterns/internal/process"
)

// JavaScript run against the wrapper page. The wrapper template sets
// window.__mermaidState to "pending", then "done" or "error".
const (
	jsRenderSettled = `() => window.__mermaidState !== undefined && window.__mermaidState !== "pending"`
	jsRenderError   = `() => window.__mermaidState === "error" ? String(window.__mermaidError || "unknown error") : ""`
)

// BrowserOptions configures the headless browser backend.
type BrowserOptions struct {
	Options
	Bin       string // empty = ROD_BROWSER_BIN, platform table, rod lookup
	ScriptURL string // mermaid.js location (http(s) or file URL)
	NoSandbox bool
	Download  bool // let rod fetch Chromium when none is installed
}

// wrapperData is the wrapper template input.
type wrapperData struct {
	Name       string
	Background string
	ScriptURL  template.URL
	Diagram    string
	Init       template.JS
}

// ParseWrapper parses the HTML wrapper template used by BrowserBackend.
func ParseWrapper(text string) (*template.Template, error) {
	tpl, err := template.New("wrapper").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parsing wrapper template: %w", err)
	}
	return tpl, nil
}

// BrowserBackend renders a diagram by loading an HTML wrapper in headless
// Chrome and screenshotting the resulting SVG. The browser is launched on
// first use and reused until Close.
type BrowserBackend struct {
	opts    BrowserOptions
	tpl     *template.Template
	init    template.JS
	locator browserLocator

	bin      string
	resolved bool
	tmpDir   string
	launcher *launcher.Launcher
	browser  *rod.Browser
}

// NewBrowserBackend creates a BrowserBackend from a parsed wrapper template
// and the mermaid JSON config passed to mermaid.initialize.
func NewBrowserBackend(wrapper *template.Template, mermaidConfig string, opts BrowserOptions) *BrowserBackend {
	opts.Options = opts.Options.withDefaults()
	if mermaidConfig == "" {
		mermaidConfig = "{}"
	}
	return &BrowserBackend{
		opts:    opts,
		tpl:     wrapper,
		init:    template.JS(mermaidConfig), // #nosec G203 -- JSON produced by MermaidConfig
		locator: defaultLocator(runtime.GOOS),
	}
}

func (b *BrowserBackend) Name() string { return BackendBrowser }

// Check resolves the browser binary without launching it.
func (b *BrowserBackend) Check(ctx context.Context) error {
	if err := b.resolveBin(); err != nil {
		return err
	}
	bin := b.bin
	if bin == "" {
		bin = "(download on first use)"
	}
	log.FromContext(ctx).Debug("renderer found", "backend", BackendBrowser, "bin", bin)
	return nil
}

func (b *BrowserBackend) resolveBin() error {
	if b.resolved {
		return nil
	}
	bin, err := b.locator.resolve(b.opts.Bin, b.opts.Download)
	if err != nil {
		return err
	}
	b.bin, b.resolved = bin, true
	return nil
}

func (b *BrowserBackend) noSandbox() bool {
	return b.opts.NoSandbox ||
		os.Getenv("CI") == "true" ||
		os.Getenv("ROD_NO_SANDBOX") == "1" ||
		os.Getenv("ROD_BROWSER_BIN") != ""
}

// ensureBrowser lazily launches and connects to the browser.
func (b *BrowserBackend) ensureBrowser() error {
	if b.browser != nil {
		return nil
	}
	if err := b.resolveBin(); err != nil {
		return err
	}

	l := launcher.New().Headless(true)
	if b.bin != "" {
		l = l.Bin(b.bin)
	}
	if b.noSandbox() {
		l = l.NoSandbox(true)
	}

	u, err := l.Launch()
	if err != nil {
		l.Kill()
		return fmt.Errorf("%w: launching browser: %v", ErrToolUnavailable, err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		process.KillProcessGroup(l.PID())
		l.Kill()
		return fmt.Errorf("%w: connecting to browser: %v", ErrToolUnavailable, err)
	}

	b.launcher, b.browser = l, browser
	return nil
}

// writeWrapper renders the wrapper for one diagram into the backend's temp dir.
func (b *BrowserBackend) writeWrapper(name, diagram string) (string, func(), error) {
	if b.tmpDir == "" {
		dir, err := os.MkdirTemp("", "mermaid-workflow-browser-*")
		if err != nil {
			return "", nil, fmt.Errorf("%w: creating temp dir: %v", ErrIO, err)
		}
		b.tmpDir = dir
	}

	var buf bytes.Buffer
	err := b.tpl.Execute(&buf, wrapperData{
		Name:       name,
		Background: b.opts.Background,
		ScriptURL:  template.URL(b.opts.ScriptURL), // #nosec G203 -- validated by config
		Diagram:    diagram,
		Init:       b.init,
	})
	if err != nil {
		return "", nil, fmt.Errorf("%w: wrapper template: %v", ErrRenderFailure, err)
	}

	return fileutil.WriteTempFile(b.tmpDir, buf.String(), "html")
}

// Render loads the diagram in a fresh page and screenshots its SVG. Waiting
// is bounded by ctx's deadline, or by the configured timeout without one.
func (b *BrowserBackend) Render(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := os.ReadFile(src) // #nosec G304 -- discovered diagram path
	if err != nil {
		return fmt.Errorf("%w: reading %s: %v", ErrIO, src, err)
	}

	name := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	htmlPath, cleanup, err := b.writeWrapper(name, string(body))
	if err != nil {
		return err
	}
	defer cleanup()

	if err := b.ensureBrowser(); err != nil {
		return err
	}

	timeout := b.opts.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return fmt.Errorf("%w: %w", ErrRenderFailure, context.DeadlineExceeded)
		}
	}

	page, err := b.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return fmt.Errorf("%w: creating page: %v", ErrRenderFailure, err)
	}
	defer page.Close()

	p := page.Context(ctx).Timeout(timeout)
	defer p.CancelTimeout()

	err = p.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             b.opts.Width,
		Height:            b.opts.Height,
		DeviceScaleFactor: b.opts.Scale,
	})
	if err != nil {
		return fmt.Errorf("%w: setting viewport: %v", ErrRenderFailure, err)
	}

	if err := p.Navigate("file://" + htmlPath); err != nil {
		return fmt.Errorf("%w: loading wrapper: %v", ErrRenderFailure, err)
	}
	if err := p.Wait(rod.Eval(jsRenderSettled)); err != nil {
		return fmt.Errorf("%w: waiting for mermaid: %v", ErrRenderFailure, err)
	}

	res, err := p.Eval(jsRenderError)
	if err != nil {
		return fmt.Errorf("%w: reading render state: %v", ErrRenderFailure, err)
	}
	if msg := res.Value.Str(); msg != "" {
		return fmt.Errorf("%w: mermaid: %s", ErrRenderFailure, msg)
	}

	el, err := p.Element("#container svg")
	if err != nil {
		return fmt.Errorf("%w: locating svg: %v", ErrRenderFailure, err)
	}
	img, err := el.Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
	if err != nil {
		return fmt.Errorf("%w: screenshot: %v", ErrRenderFailure, err)
	}

	// #nosec G306 -- images are meant to be readable
	if err := os.WriteFile(dst, img, fileutil.FilePerm); err != nil {
		return fmt.Errorf("%w: writing %s: %v", ErrIO, dst, err)
	}
	return nil
}

// Close shuts the browser down and removes temp files.
func (b *BrowserBackend) Close() error {
	var err error
	if b.browser != nil {
		err = b.browser.Close()
		b.browser = nil
	}
	if b.launcher != nil {
		process.KillProcessGroup(b.launcher.PID())
		b.launcher.Kill()
		b.launcher.Cleanup()
		b.launcher = nil
	}
	if b.tmpDir != "" {
		if rmErr := os.RemoveAll(b.tmpDir); rmErr != nil && err == nil {
			err = rmErr
		}
		b.tmpDir = ""
	}
	return err
}

// Compile-time interface check.
var _ Backend = (*BrowserBackend)(nil)
