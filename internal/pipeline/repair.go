package pipeline

import (
	"errors"
	"fmt"
)

// ErrUnknownStrategy indicates a repair strategy name that is not recognized.
var ErrUnknownStrategy = errors.New("unknown repair strategy")

// Strategy selects how diagrams are repaired. Exactly one applies per run.
type Strategy string

const (
	// StrategyInPlace applies the named per-kind rules and keeps everything else.
	StrategyInPlace Strategy = "in-place"
	// StrategySkeleton discards the body and regenerates a minimal valid one.
	StrategySkeleton Strategy = "skeleton"
)

// ParseStrategy validates a strategy name. Empty means StrategyInPlace.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyInPlace:
		return StrategyInPlace, nil
	case StrategySkeleton:
		return StrategySkeleton, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
}

// Result describes one repair.
type Result struct {
	Text        string
	Kind        Kind
	Changed     bool
	Unsupported bool     // kind not recognized; Text is the input unchanged
	Applied     []string // rules that modified the text (in-place only)
}

// Repairer normalizes diagram bodies known to trip the renderer.
// It never fails: unrecognized kinds come back unchanged and flagged.
type Repairer struct {
	strategy Strategy
	disabled map[string]bool
}

// NewRepairer creates a Repairer; rules named in disable are skipped.
func NewRepairer(strategy Strategy, disable ...string) *Repairer {
	if strategy == "" {
		strategy = StrategyInPlace
	}
	r := &Repairer{strategy: strategy, disabled: make(map[string]bool, len(disable))}
	for _, name := range disable {
		r.disabled[name] = true
	}
	return r
}

// Strategy returns the configured strategy.
func (r *Repairer) Strategy() Strategy { return r.strategy }

// Repair applies the configured strategy to body.
func (r *Repairer) Repair(body string) Result {
	kind, err := DetectKind(body)
	if err != nil {
		return Result{Text: body, Kind: KindUnknown, Unsupported: true}
	}

	if r.strategy == StrategySkeleton {
		out := Skeleton(kind, body)
		return Result{Text: out, Kind: kind, Changed: out != body}
	}

	res := Result{Text: body, Kind: kind}
	for _, rule := range RulesFor(kind) {
		if r.disabled[rule.Name] {
			continue
		}
		next := rule.Apply(res.Text)
		if next != res.Text {
			res.Applied = append(res.Applied, rule.Name)
			res.Text = next
		}
	}
	res.Changed = res.Text != body
	return res
}
