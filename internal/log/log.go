// Package log builds the structured loggers used across the workflow and
// carries them through context.Context.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// LoggerConfig is a minimal, convenient set of options.
type LoggerConfig struct {
	Version string

	// If Out is nil, stderr is used; stdout carries the workflow report.
	Out io.Writer

	Level slog.Level
	JSON  bool // true => JSON output, false => text
}

// NewLogger creates a configured *slog.Logger tagged with a fresh run id.
func NewLogger(cfg LoggerConfig) *slog.Logger {
	out := cfg.Out
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: cfg.Level}
	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return slog.New(handler).With(
		slog.String("version", cfg.Version),
		slog.String("run_id", uuid.NewString()),
	)
}

// ParseLevel maps the CLI verbosity switches onto a slog level.
func ParseLevel(verbose, quiet bool) slog.Level {
	switch {
	case quiet:
		return slog.LevelError
	case verbose:
		return slog.LevelDebug
	default:
		return slog.LevelWarn
	}
}

type nopHandler struct{}

func (n *nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (n *nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (n *nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return n }
func (n *nopHandler) WithGroup(string) slog.Handler             { return n }

// NewNopLogger returns a logger that discards all log events.
func NewNopLogger() *slog.Logger {
	return slog.New(&nopHandler{})
}

var _ slog.Handler = (*nopHandler)(nil)

type ctxKeyType struct{}

var ctxKey ctxKeyType

// ContextWithLogger stores lg on ctx.
func ContextWithLogger(ctx context.Context, lg *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey, lg)
}

// FromContext returns the logger stored on ctx, or a nop logger.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if lg, ok := ctx.Value(ctxKey).(*slog.Logger); ok && lg != nil {
			return lg
		}
	}
	return NewNopLogger()
}

// Entry is one record captured by a TestHandler.
type Entry struct {
	Level slog.Level
	Msg   string
	Attrs map[string]any
}

// TestHandler captures structured entries for assertions. Safe for
// concurrent use by render workers.
type TestHandler struct {
	mu      *sync.Mutex
	entries *[]Entry
	attrs   []slog.Attr
}

// NewTestLogger returns a logger recording every event into the handler.
func NewTestLogger() (*slog.Logger, *TestHandler) {
	h := &TestHandler{mu: &sync.Mutex{}, entries: &[]Entry{}}
	return slog.New(h), h
}

func (h *TestHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *TestHandler) Handle(_ context.Context, r slog.Record) error {
	e := Entry{Level: r.Level, Msg: r.Message, Attrs: map[string]any{}}
	for _, a := range h.attrs {
		e.Attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		e.Attrs[a.Key] = a.Value.Any()
		return true
	})

	h.mu.Lock()
	*h.entries = append(*h.entries, e)
	h.mu.Unlock()
	return nil
}

func (h *TestHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TestHandler{mu: h.mu, entries: h.entries, attrs: append(append([]slog.Attr(nil), h.attrs...), attrs...)}
}

func (h *TestHandler) WithGroup(string) slog.Handler { return h }

// Entries returns a copy of the captured records.
func (h *TestHandler) Entries() []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Entry(nil), *h.entries...)
}

// Find returns captured records whose message contains substr.
func (h *TestHandler) Find(substr string) []Entry {
	var out []Entry
	for _, e := range h.Entries() {
		if strings.Contains(e.Msg, substr) {
			out = append(out, e)
		}
	}
	return out
}

var _ slog.Handler = (*TestHandler)(nil)
