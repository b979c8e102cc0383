package pipeline

import (
	"regexp"
	"strings"
)

// Rule is a named, idempotent text transform for one diagram kind.
type Rule struct {
	Name  string
	Apply func(string) string
}

// Rule names, usable in repair.disable.
const (
	RuleStripClassDef   = "strip-classdef"
	RuleStripClassStyle = "strip-class-style"
	RuleNormalizeNotes  = "normalize-notes"
)

var (
	classDefLine = regexp.MustCompile(`^\s*classDef\s`)

	// class A someStyle / class A,B someStyle; a lone "class A" or
	// "class A {" is a declaration and stays.
	classStyleLine = regexp.MustCompile(`^\s*class\s+[\w-]+(\s*,\s*[\w-]+)*\s+[\w-]+\s*;?\s*$`)
	cssClassLine   = regexp.MustCompile(`^\s*cssClass\s`)
	styleLine      = regexp.MustCompile(`^\s*style\s+[\w-]+\s`)
	styleSuffix    = regexp.MustCompile(`:::[\w-]+`)

	noteLine = regexp.MustCompile(`^(\s*)note(?:\s+for\s+([\w-]+))?\s*:?\s*(.*?)\s*;?\s*$`)
)

var classRules = []Rule{
	{Name: RuleStripClassDef, Apply: stripClassDef},
	{Name: RuleStripClassStyle, Apply: stripClassStyle},
	{Name: RuleNormalizeNotes, Apply: normalizeNotes},
}

// RulesFor returns the in-place rules for k. Sequence and flow diagrams
// currently render as written and have none.
func RulesFor(k Kind) []Rule {
	switch k {
	case KindClass:
		return classRules
	default:
		return nil
	}
}

// dropLines removes every line matching drop, newline included.
func dropLines(text string, drop func(line string) bool) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, l := range strings.SplitAfter(text, "\n") {
		if l != "" && drop(strings.TrimRight(l, "\r\n")) {
			continue
		}
		b.WriteString(l)
	}
	return b.String()
}

func stripClassDef(text string) string {
	return dropLines(text, classDefLine.MatchString)
}

func stripClassStyle(text string) string {
	text = dropLines(text, func(l string) bool {
		return classStyleLine.MatchString(l) || cssClassLine.MatchString(l) || styleLine.MatchString(l)
	})
	return styleSuffix.ReplaceAllString(text, "")
}

// normalizeNotes rewrites class diagram notes into the single-line quoted
// form: note for X "text" or note "text". Multi-line quoted notes are joined
// with spaces; double quotes inside unquoted text become single quotes.
func normalizeNotes(text string) string {
	lines := strings.SplitAfter(text, "\n")
	var b strings.Builder
	b.Grow(len(text))

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		bare := strings.TrimRight(line, "\r\n")
		eol := line[len(bare):]

		m := noteLine.FindStringSubmatch(bare)
		if m == nil || !isNoteStatement(bare) {
			b.WriteString(line)
			continue
		}
		indent, target, rest := m[1], m[2], m[3]

		var note string
		switch {
		case len(rest) >= 2 && rest[0] == '"' && rest[len(rest)-1] == '"':
			note = strings.ReplaceAll(rest[1:len(rest)-1], `"`, "'")
		case strings.HasPrefix(rest, `"`):
			body := rest[1:]
			if end := strings.IndexByte(body, '"'); end >= 0 {
				note = body[:end]
				break
			}
			// Quote left open: gather continuation lines until it closes.
			parts := []string{strings.TrimSpace(body)}
			j := i + 1
			for ; j < len(lines); j++ {
				cont := strings.TrimRight(lines[j], "\r\n")
				if end := strings.IndexByte(cont, '"'); end >= 0 {
					parts = append(parts, strings.TrimSpace(cont[:end]))
					break
				}
				parts = append(parts, strings.TrimSpace(cont))
			}
			if j == len(lines) {
				// Never closed: leave the text alone.
				b.WriteString(line)
				continue
			}
			note = strings.Join(nonEmpty(parts), " ")
			eol = lines[j][len(strings.TrimRight(lines[j], "\r\n")):]
			i = j
		case rest == "":
			b.WriteString(line)
			continue
		default:
			note = strings.ReplaceAll(rest, `"`, "'")
		}

		b.WriteString(indent)
		b.WriteString("note ")
		if target != "" {
			b.WriteString("for ")
			b.WriteString(target)
			b.WriteString(" ")
		}
		b.WriteString(`"` + note + `"`)
		b.WriteString(eol)
	}
	return b.String()
}

// isNoteStatement filters out identifiers that merely start with "note",
// such as a class named notebook.
func isNoteStatement(line string) bool {
	t := strings.TrimSpace(line)
	if !strings.HasPrefix(t, "note") {
		return false
	}
	rest := t[len("note"):]
	return rest == "" || rest[0] == ' ' || rest[0] == '\t' || rest[0] == ':' || rest[0] == '"'
}

func nonEmpty(parts []string) []string {
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
