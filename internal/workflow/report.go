package workflow

import (
	"fmt"
	"strings"
	"time"
)

// Phase names a stage of a run.
type Phase string

const (
	PhaseExtract Phase = "extract"
	PhaseRender  Phase = "render"
)

// Outcome is the result of one unit of work: a saved diagram file, a failed
// chapter document, or a rendered (or failed) diagram.
type Outcome struct {
	Phase    Phase
	Input    string
	Output   string // empty on failure
	Err      error
	Warning  string // non-fatal note, e.g. an unsupported diagram kind
	Duration time.Duration
}

// PhaseStats counts the units of one phase.
type PhaseStats struct {
	Attempted int
	Succeeded int
	Failed    int
}

// Report aggregates every outcome of a run. There is no rollback: files
// written before a failure stay on disk.
type Report struct {
	Mode     Mode
	Extract  PhaseStats
	Render   PhaseStats
	Outcomes []Outcome
	Reviews  []string // review sheets written
}

func (r *Report) add(o Outcome) {
	stats := &r.Extract
	if o.Phase == PhaseRender {
		stats = &r.Render
	}
	stats.Attempted++
	if o.Err != nil {
		stats.Failed++
	} else {
		stats.Succeeded++
	}
	r.Outcomes = append(r.Outcomes, o)
}

// Attempted returns the number of units across phases.
func (r *Report) Attempted() int { return r.Extract.Attempted + r.Render.Attempted }

// Succeeded returns the number of successful units across phases.
func (r *Report) Succeeded() int { return r.Extract.Succeeded + r.Render.Succeeded }

// OK reports whether every attempted unit succeeded. A run with nothing to
// do is OK.
func (r *Report) OK() bool { return r.Succeeded() == r.Attempted() }

// Failures returns the failed outcomes in run order.
func (r *Report) Failures() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			out = append(out, o)
		}
	}
	return out
}

// Summary returns the per-phase counts followed by the overall line.
func (r *Report) Summary() string {
	var b strings.Builder
	if r.Mode != ModeRender {
		fmt.Fprintf(&b, "Extract: %d diagram(s) saved, %d failed\n", r.Extract.Succeeded, r.Extract.Failed)
	}
	if r.Mode != ModeExtract {
		fmt.Fprintf(&b, "Render: %d image(s) created, %d failed\n", r.Render.Succeeded, r.Render.Failed)
	}
	fmt.Fprintf(&b, "Summary: %d of %d file(s) succeeded", r.Succeeded(), r.Attempted())
	return b.String()
}
