package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestNewLogger_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	lg := NewLogger(LoggerConfig{Version: "1.2.3", Out: &buf, Level: slog.LevelInfo, JSON: true})
	lg.Info("rendered", slog.String("diagram", "TD"))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if rec["version"] != "1.2.3" {
		t.Errorf("version = %v, want 1.2.3", rec["version"])
	}
	if rec["diagram"] != "TD" {
		t.Errorf("diagram = %v, want TD", rec["diagram"])
	}
	runID, _ := rec["run_id"].(string)
	if _, err := uuid.Parse(runID); err != nil {
		t.Errorf("run_id %q is not a UUID: %v", runID, err)
	}
}

func TestNewLogger_LevelFilters(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	lg := NewLogger(LoggerConfig{Out: &buf, Level: slog.LevelWarn})
	lg.Info("hidden")
	lg.Warn("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Error("info record written at warn level")
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Error("warn record missing")
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		verbose, quiet bool
		want           slog.Level
	}{
		{name: "default", want: slog.LevelWarn},
		{name: "verbose", verbose: true, want: slog.LevelDebug},
		{name: "quiet", quiet: true, want: slog.LevelError},
		{name: "quiet wins", verbose: true, quiet: true, want: slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := ParseLevel(tt.verbose, tt.quiet); got != tt.want {
				t.Errorf("ParseLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestContextRoundTrip(t *testing.T) {
	t.Parallel()

	lg, h := NewTestLogger()
	ctx := ContextWithLogger(context.Background(), lg.With(slog.String("chapter", "03")))

	FromContext(ctx).Warn("post-process failed", slog.String("diagram", "TD"))

	got := h.Find("post-process")
	if len(got) != 1 {
		t.Fatalf("captured %d entries, want 1", len(got))
	}
	if got[0].Attrs["chapter"] != "03" || got[0].Attrs["diagram"] != "TD" {
		t.Errorf("attrs = %v", got[0].Attrs)
	}
}

func TestFromContext_Missing(t *testing.T) {
	t.Parallel()

	lg := FromContext(context.Background())
	if lg == nil {
		t.Fatal("FromContext() = nil")
	}
	if lg.Enabled(context.Background(), slog.LevelError) {
		t.Error("fallback logger should discard events")
	}
}
