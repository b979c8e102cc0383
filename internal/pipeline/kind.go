package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedKind indicates a diagram whose header keyword has no repair rules.
var ErrUnsupportedKind = errors.New("unsupported diagram kind")

// Kind classifies a diagram by its header keyword.
type Kind int

const (
	KindUnknown Kind = iota
	KindClass
	KindSequence
	KindFlow
)

func (k Kind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindSequence:
		return "sequence"
	case KindFlow:
		return "flow"
	default:
		return "unknown"
	}
}

// DetectKind inspects the first meaningful token of body. Blank lines,
// %% comments and a leading --- front matter block are skipped.
func DetectKind(body string) (Kind, error) {
	token := headerToken(body)
	switch {
	case token == "classDiagram" || strings.HasPrefix(token, "classDiagram-"):
		return KindClass, nil
	case token == "sequenceDiagram":
		return KindSequence, nil
	case token == "graph" || token == "flowchart" || strings.HasPrefix(token, "flowchart-"):
		return KindFlow, nil
	case token == "":
		return KindUnknown, fmt.Errorf("%w: empty diagram", ErrUnsupportedKind)
	default:
		return KindUnknown, fmt.Errorf("%w: %q", ErrUnsupportedKind, token)
	}
}

// headerLine returns the first line carrying the diagram keyword.
func headerLine(body string) string {
	lines := strings.Split(NormalizeLineEndings(body), "\n")
	i := 0
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	if i < len(lines) && strings.TrimSpace(lines[i]) == "---" {
		for i++; i < len(lines) && strings.TrimSpace(lines[i]) != "---"; i++ {
		}
		i++
	}
	for ; i < len(lines); i++ {
		t := strings.TrimSpace(lines[i])
		if t == "" || strings.HasPrefix(t, "%%") {
			continue
		}
		return t
	}
	return ""
}

func headerToken(body string) string {
	return firstWord(strings.TrimRight(headerLine(body), ";"))
}
