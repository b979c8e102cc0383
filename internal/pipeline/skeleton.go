package pipeline

import (
	"regexp"
	"strings"
)

// Placeholder bodies used when nothing usable survives regeneration.
const (
	placeholderClass    = "classDiagram\n    class Placeholder\n"
	placeholderSequence = "sequenceDiagram\n    participant A\n    participant B\n    A->>B: Message\n"
	placeholderFlow     = "flowchart TD\n    A[Start] --> B[End]\n"
)

var (
	classDecl = regexp.MustCompile(`^\s*class\s+(\w+)`)
	classRel  = regexp.MustCompile(`^\s*(\w+)\s*(?:"[^"]*"\s*)?(?:<\|--|--\|>|\*--|--\*|o--|--o|<--|-->|\.\.\|>|<\|\.\.|\.\.>|<\.\.|--|\.\.)\s*(?:"[^"]*"\s*)?(\w+)`)

	seqParticipant = regexp.MustCompile(`^\s*(?:participant|actor)\s+(\w+)`)
	seqMessage     = regexp.MustCompile(`^\s*(\w+)\s*(?:-->>|->>|--x|-x|--\)|-\)|-->|->)\s*[+-]?\s*(\w+)\s*:(.*)$`)

	flowHeader    = regexp.MustCompile(`^(?:graph|flowchart)(?:\s+(TD|TB|BT|RL|LR))?`)
	flowPipeLabel = regexp.MustCompile(`\|[^|]*\|`)
	flowShape     = regexp.MustCompile(`[\[\(\{][^\]\)\}]*[\]\)\}]+`)
	flowTextLabel = regexp.MustCompile(`(^|[^-=.])(?:--|==|-\.)\s+[^\s>|][^>|]*?\s+(?:-{2,}>|={2,}>|\.->|-{3,}|={3,})`)
	flowLink      = regexp.MustCompile(`<?(?:-{2,}|={2,}|-\.+-|~{3,})>?`)
	flowNodeID    = regexp.MustCompile(`^\w+(?:-\w+)*`)
)

// flowKeywords start lines that declare no nodes or edges.
var flowKeywords = []string{"subgraph", "end", "style", "classDef", "class", "click", "linkStyle", "direction", "%%"}

// orderedSet keeps first-seen order.
type orderedSet struct {
	seen  map[string]bool
	items []string
}

func (s *orderedSet) add(v string) {
	if s.seen == nil {
		s.seen = map[string]bool{}
	}
	if !s.seen[v] {
		s.seen[v] = true
		s.items = append(s.items, v)
	}
}

// Skeleton regenerates a minimal body of kind k that keeps only the
// structure it can recognize in body.
func Skeleton(k Kind, body string) string {
	body = NormalizeLineEndings(body)
	switch k {
	case KindClass:
		return classSkeleton(body)
	case KindSequence:
		return sequenceSkeleton(body)
	case KindFlow:
		return flowSkeleton(body)
	default:
		return body
	}
}

func classSkeleton(body string) string {
	var classes, edges orderedSet
	for _, line := range strings.Split(body, "\n") {
		if m := classDecl.FindStringSubmatch(line); m != nil {
			classes.add(m[1])
			continue
		}
		if m := classRel.FindStringSubmatch(line); m != nil && m[1] != "classDiagram" {
			classes.add(m[1])
			classes.add(m[2])
			edges.add(m[1] + " --> " + m[2])
		}
	}
	if len(classes.items) == 0 {
		return placeholderClass
	}

	var b strings.Builder
	b.WriteString("classDiagram\n")
	for _, c := range classes.items {
		b.WriteString("    class " + c + "\n")
	}
	for _, e := range edges.items {
		b.WriteString("    " + e + "\n")
	}
	return b.String()
}

func sequenceSkeleton(body string) string {
	var participants orderedSet
	var messages []string
	for _, line := range strings.Split(body, "\n") {
		if m := seqParticipant.FindStringSubmatch(line); m != nil {
			participants.add(m[1])
			continue
		}
		if m := seqMessage.FindStringSubmatch(line); m != nil {
			participants.add(m[1])
			participants.add(m[2])
			text := strings.TrimSpace(m[3])
			if text == "" {
				text = "Message"
			}
			messages = append(messages, m[1]+"->>"+m[2]+": "+text)
		}
	}
	if len(participants.items) == 0 {
		return placeholderSequence
	}
	if len(messages) == 0 && len(participants.items) >= 2 {
		messages = append(messages, participants.items[0]+"->>"+participants.items[1]+": Message")
	}

	var b strings.Builder
	b.WriteString("sequenceDiagram\n")
	for _, p := range participants.items {
		b.WriteString("    participant " + p + "\n")
	}
	for _, m := range messages {
		b.WriteString("    " + m + "\n")
	}
	return b.String()
}

func flowSkeleton(body string) string {
	header := headerLine(body)
	direction := "TD"
	if m := flowHeader.FindStringSubmatch(header); m != nil && m[1] != "" {
		direction = m[1]
	}

	var nodes, edges orderedSet
	pastHeader := false
	for _, line := range strings.Split(body, "\n") {
		t := strings.TrimSpace(line)
		if !pastHeader {
			if t == header {
				pastHeader = true
			}
			continue
		}
		if t == "" || hasKeyword(t) {
			continue
		}
		// Several statements may share a line.
		for _, stmt := range strings.Split(t, ";") {
			parseFlowStatement(stmt, &nodes, &edges)
		}
	}
	if len(nodes.items) == 0 {
		return placeholderFlow
	}

	var b strings.Builder
	b.WriteString("flowchart " + direction + "\n")
	for _, n := range nodes.items {
		b.WriteString("    " + n + "\n")
	}
	for _, e := range edges.items {
		b.WriteString("    " + e + "\n")
	}
	return b.String()
}

func hasKeyword(line string) bool {
	for _, kw := range flowKeywords {
		if strings.HasPrefix(line, kw) {
			rest := line[len(kw):]
			if kw == "%%" || rest == "" || rest[0] == ' ' || rest[0] == '\t' {
				return true
			}
		}
	}
	return false
}

// parseFlowStatement records the node ids and edges of one chain such as
// A[Start] -->|go| B & C --- D. Labels and shapes are dropped.
func parseFlowStatement(stmt string, nodes, edges *orderedSet) {
	stmt = styleSuffix.ReplaceAllString(stmt, "")
	stmt = flowPipeLabel.ReplaceAllString(stmt, "")
	stmt = flowShape.ReplaceAllString(stmt, "")
	stmt = flowTextLabel.ReplaceAllString(stmt, "${1}-->")

	var groups [][]string
	for _, seg := range flowLink.Split(stmt, -1) {
		var group []string
		for _, ref := range strings.Split(seg, "&") {
			ref = strings.TrimSpace(ref)
			// Circle and cross arrow heads: A --o B, A --x B.
			if len(ref) > 2 && (ref[0] == 'o' || ref[0] == 'x') && ref[1] == ' ' {
				ref = strings.TrimSpace(ref[2:])
			}
			if id := flowNodeID.FindString(ref); id != "" && id != "end" {
				group = append(group, id)
			}
		}
		if len(group) == 0 {
			return
		}
		groups = append(groups, group)
	}

	for i, group := range groups {
		for _, id := range group {
			nodes.add(id)
		}
		if i == 0 {
			continue
		}
		for _, from := range groups[i-1] {
			for _, to := range group {
				edges.add(from + " --> " + to)
			}
		}
	}
}
