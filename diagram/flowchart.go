package diagram

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Shape is the outline of a flowchart node.
type Shape string

const (
	ShapeBox        Shape = "box"
	ShapeRounded    Shape = "rounded"
	ShapeStadium    Shape = "stadium"
	ShapeSubroutine Shape = "subroutine"
	ShapeCylinder   Shape = "cylinder"
	ShapeCircle     Shape = "circle"
	ShapeDiamond    Shape = "diamond"
	ShapeHexagon    Shape = "hexagon"
	ShapeFlag       Shape = "flag"
	ShapeSlanted    Shape = "slanted"
)

// EdgeStroke is the line style of a flowchart edge.
type EdgeStroke string

const (
	StrokeNormal EdgeStroke = "normal"
	StrokeDotted EdgeStroke = "dotted"
	StrokeThick  EdgeStroke = "thick"
)

// Node is a flowchart vertex.
type Node struct {
	ID      string
	Label   string
	Shape   Shape
	Classes []string
	Style   map[string]string
}

// Edge connects two nodes.
type Edge struct {
	From   string
	To     string
	Label  string
	Stroke EdgeStroke
	// Arrow is false for open links (---).
	Arrow         bool
	Bidirectional bool
}

// Cluster is a subgraph grouping nodes.
type Cluster struct {
	ID    string
	Label string
	Nodes []string
}

// Flowchart is the parsed form of a flowchart source.
type Flowchart struct {
	Orientation Orientation
	Nodes       []*Node
	Edges       []Edge
	Clusters    []*Cluster
	ClassDefs   map[string]map[string]string

	index map[string]*Node
}

// Node returns the node with id, or nil.
func (f *Flowchart) Node(id string) *Node {
	return f.index[id]
}

// NodeStyle resolves the effective style of n: the default class, then
// assigned classes in order, then inline style statements.
func (f *Flowchart) NodeStyle(n *Node) map[string]string {
	out := map[string]string{}
	merge := func(props map[string]string) {
		for k, v := range props {
			out[k] = v
		}
	}
	if len(n.Classes) == 0 {
		merge(f.ClassDefs["default"])
	}
	for _, class := range n.Classes {
		merge(f.ClassDefs[class])
	}
	merge(n.Style)
	return out
}

// SyntaxError reports a malformed flowchart statement.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

var (
	flowHeaderPattern = regexp.MustCompile(`^(graph|flowchart)(?:\s+(\S+))?$`)
	edgePattern       = regexp.MustCompile(`^\s*(<)?(-{2,}>|-{3,}|-\.+->|-\.+-|={2,}>|={3,})\s*(?:\|([^|]*)\|)?`)
	textEdgePattern   = regexp.MustCompile(`^\s*(<)?(--|==|-\.)\s+([^|]+?)\s+(-{2,}>|-{3,}|\.+->|\.+-|={2,}>|={3,})`)
)

type shapeDelim struct {
	open  string
	close string
	shape Shape
}

// Longer openers first so "((" wins over "(".
var shapeDelims = []shapeDelim{
	{"(((", ")))", ShapeCircle},
	{"((", "))", ShapeCircle},
	{"([", "])", ShapeStadium},
	{"[[", "]]", ShapeSubroutine},
	{"[(", ")]", ShapeCylinder},
	{"{{", "}}", ShapeHexagon},
	{"[/", "/]", ShapeSlanted},
	{"[\\", "\\]", ShapeSlanted},
	{"(", ")", ShapeRounded},
	{"[", "]", ShapeBox},
	{"{", "}", ShapeDiamond},
	{">", "]", ShapeFlag},
}

// ParseFlowchart parses the flowchart subset of the diagram language.
func ParseFlowchart(src Source) (*Flowchart, error) {
	f := &Flowchart{
		Orientation: src.normalizedOrientation(),
		ClassDefs:   map[string]map[string]string{},
		index:       map[string]*Node{},
	}

	var stack []*Cluster
	sawHeader := false

	for i, raw := range strings.Split(strings.ReplaceAll(src.Text, "\r\n", "\n"), "\n") {
		lineNo := i + 1
		for _, stmt := range splitStatements(raw) {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" || strings.HasPrefix(stmt, "%%") {
				continue
			}
			if !sawHeader {
				m := flowHeaderPattern.FindStringSubmatch(stmt)
				if m == nil {
					return nil, &SyntaxError{Line: lineNo, Msg: "expected graph or flowchart header"}
				}
				if m[2] != "" {
					if _, err := ParseOrientation(m[2]); err != nil {
						return nil, &SyntaxError{Line: lineNo, Msg: err.Error()}
					}
				}
				sawHeader = true
				continue
			}

			keyword, rest := splitKeyword(stmt)
			switch keyword {
			case "subgraph":
				c := parseSubgraph(rest, len(f.Clusters))
				f.Clusters = append(f.Clusters, c)
				stack = append(stack, c)
				continue
			case "end":
				if len(stack) == 0 {
					return nil, &SyntaxError{Line: lineNo, Msg: "end without subgraph"}
				}
				stack = stack[:len(stack)-1]
				continue
			case "direction", "linkStyle", "click":
				continue
			case "classDef":
				names, props := splitKeyword(rest)
				if names == "" {
					return nil, &SyntaxError{Line: lineNo, Msg: "classDef needs a name"}
				}
				for _, name := range strings.Split(names, ",") {
					f.ClassDefs[strings.TrimSpace(name)] = parseStyleProps(props)
				}
				continue
			case "class":
				ids, class := splitKeyword(rest)
				class = strings.TrimSpace(class)
				if ids == "" || class == "" {
					return nil, &SyntaxError{Line: lineNo, Msg: "class needs node ids and a class name"}
				}
				for _, id := range strings.Split(ids, ",") {
					n := f.ensureNode(strings.TrimSpace(id), stack)
					n.Classes = append(n.Classes, class)
				}
				continue
			case "style":
				id, props := splitKeyword(rest)
				if id == "" {
					return nil, &SyntaxError{Line: lineNo, Msg: "style needs a node id"}
				}
				n := f.ensureNode(id, stack)
				if n.Style == nil {
					n.Style = map[string]string{}
				}
				for k, v := range parseStyleProps(props) {
					n.Style[k] = v
				}
				continue
			}

			if err := f.parseChain(stmt, stack); err != nil {
				return nil, &SyntaxError{Line: lineNo, Msg: err.Error()}
			}
		}
	}

	if !sawHeader {
		return nil, &SyntaxError{Line: 1, Msg: "empty diagram"}
	}
	if len(stack) > 0 {
		return nil, &SyntaxError{Line: strings.Count(src.Text, "\n") + 1, Msg: fmt.Sprintf("subgraph %q is not closed", stack[len(stack)-1].ID)}
	}
	return f, nil
}

func (f *Flowchart) parseChain(stmt string, stack []*Cluster) error {
	rest := stmt
	left, rest, err := f.parseNodeGroup(rest, stack)
	if err != nil {
		return err
	}

	for strings.TrimSpace(rest) != "" {
		edge, remaining, ok := parseEdge(rest)
		if !ok {
			return fmt.Errorf("unexpected %q", strings.TrimSpace(rest))
		}
		if strings.TrimSpace(remaining) == "" {
			return fmt.Errorf("edge without target")
		}
		right, remaining, err := f.parseNodeGroup(remaining, stack)
		if err != nil {
			return err
		}
		for _, from := range left {
			for _, to := range right {
				e := edge
				e.From, e.To = from, to
				f.Edges = append(f.Edges, e)
			}
		}
		left, rest = right, remaining
	}
	return nil
}

func (f *Flowchart) parseNodeGroup(input string, stack []*Cluster) ([]string, string, error) {
	var ids []string
	rest := input
	for {
		id, r, err := f.parseNode(rest, stack)
		if err != nil {
			return nil, "", err
		}
		ids = append(ids, id)
		rest = r
		trimmed := strings.TrimLeftFunc(rest, unicode.IsSpace)
		if !strings.HasPrefix(trimmed, "&") {
			return ids, rest, nil
		}
		rest = trimmed[1:]
	}
}

func (f *Flowchart) parseNode(input string, stack []*Cluster) (string, string, error) {
	s := strings.TrimLeftFunc(input, unicode.IsSpace)
	end := 0
	for end < len(s) && isIDByte(s[end]) {
		end++
	}
	if end == 0 {
		if s == "" {
			return "", "", fmt.Errorf("missing node id")
		}
		return "", "", fmt.Errorf("unexpected %q", s)
	}
	id := s[:end]
	s = s[end:]

	var label string
	var shape Shape
	for _, d := range shapeDelims {
		if !strings.HasPrefix(s, d.open) {
			continue
		}
		body := s[len(d.open):]
		var text string
		if strings.HasPrefix(body, `"`) {
			closeQuote := strings.Index(body[1:], `"`)
			if closeQuote < 0 {
				return "", "", fmt.Errorf("unterminated string in node %s", id)
			}
			text = body[1 : closeQuote+1]
			body = body[closeQuote+2:]
			if !strings.HasPrefix(body, d.close) {
				return "", "", fmt.Errorf("expected %q after label of node %s", d.close, id)
			}
		} else {
			idx := strings.Index(body, d.close)
			if idx < 0 {
				return "", "", fmt.Errorf("unclosed %q in node %s", d.open, id)
			}
			text = strings.TrimSpace(body[:idx])
			body = body[idx:]
		}
		label, shape = text, d.shape
		s = body[len(d.close):]
		break
	}

	var class string
	if strings.HasPrefix(s, ":::") {
		s = s[3:]
		n := 0
		for n < len(s) && (isIDByte(s[n]) || s[n] == '-') {
			n++
		}
		class, s = s[:n], s[n:]
	}

	node := f.ensureNode(id, stack)
	if shape != "" {
		node.Label = label
		node.Shape = shape
	}
	if class != "" {
		node.Classes = append(node.Classes, class)
	}
	return id, s, nil
}

func (f *Flowchart) ensureNode(id string, stack []*Cluster) *Node {
	if n, ok := f.index[id]; ok {
		return n
	}
	n := &Node{ID: id, Label: id, Shape: ShapeBox}
	f.index[id] = n
	f.Nodes = append(f.Nodes, n)
	if len(stack) > 0 {
		c := stack[len(stack)-1]
		c.Nodes = append(c.Nodes, id)
	}
	return n
}

func parseEdge(input string) (Edge, string, bool) {
	if m := edgePattern.FindStringSubmatchIndex(input); m != nil {
		token := input[m[4]:m[5]]
		e := edgeFromToken(token, m[2] >= 0)
		if m[6] >= 0 {
			e.Label = strings.TrimSpace(input[m[6]:m[7]])
		}
		return e, input[m[1]:], true
	}
	if m := textEdgePattern.FindStringSubmatchIndex(input); m != nil {
		open := input[m[4]:m[5]]
		closing := input[m[8]:m[9]]
		e := edgeFromToken(open+closing, m[2] >= 0)
		e.Label = strings.Trim(strings.TrimSpace(input[m[6]:m[7]]), `"`)
		return e, input[m[1]:], true
	}
	return Edge{}, input, false
}

func edgeFromToken(token string, back bool) Edge {
	e := Edge{Stroke: StrokeNormal, Arrow: strings.HasSuffix(token, ">"), Bidirectional: back}
	switch {
	case strings.Contains(token, "."):
		e.Stroke = StrokeDotted
	case strings.HasPrefix(token, "="):
		e.Stroke = StrokeThick
	}
	return e
}

func parseSubgraph(rest string, index int) *Cluster {
	rest = strings.TrimSpace(rest)
	c := &Cluster{ID: fmt.Sprintf("subgraph_%d", index)}
	switch {
	case rest == "":
	case strings.HasPrefix(rest, `"`):
		c.Label = strings.Trim(rest, `"`)
	default:
		id, label := rest, ""
		if i := strings.IndexAny(rest, " ["); i >= 0 {
			id, label = rest[:i], strings.TrimSpace(rest[i:])
		}
		c.ID = id
		label = strings.TrimSuffix(strings.TrimPrefix(label, "["), "]")
		c.Label = strings.Trim(label, `"`)
		if c.Label == "" {
			c.Label = id
		}
	}
	return c
}

// parseStyleProps reads "fill:#fff,stroke:#000,color:white".
func parseStyleProps(raw string) map[string]string {
	props := map[string]string{}
	for _, part := range strings.Split(strings.TrimSuffix(strings.TrimSpace(raw), ";"), ",") {
		key, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		props[key] = strings.TrimSpace(value)
	}
	return props
}

func splitKeyword(stmt string) (string, string) {
	stmt = strings.TrimSpace(stmt)
	i := strings.IndexFunc(stmt, unicode.IsSpace)
	if i < 0 {
		return stmt, ""
	}
	return stmt[:i], strings.TrimSpace(stmt[i:])
}

// splitStatements splits a line on semicolons outside quotes, edge labels
// and shape brackets.
func splitStatements(line string) []string {
	var out []string
	depth := 0
	quoted, piped := false, false
	start := 0
	for i := 0; i < len(line); i++ {
		switch c := line[i]; {
		case c == '"':
			quoted = !quoted
		case quoted:
		case c == '|':
			piped = !piped
		case piped:
		case c == '[' || c == '(' || c == '{':
			depth++
		case c == ']' || c == ')' || c == '}':
			if depth > 0 {
				depth--
			}
		case c == ';' && depth == 0:
			out = append(out, line[start:i])
			start = i + 1
		}
	}
	return append(out, line[start:])
}

// isIDByte accepts ASCII word characters and any byte of a multi-byte rune,
// so identifiers in non-Latin scripts scan whole.
func isIDByte(c byte) bool {
	return c >= 0x80 || c == '_' || ('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}
