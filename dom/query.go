package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// selector is a compound selector: tag, #id and any number of .class parts.
type selector struct {
	tag     string
	id      string
	classes []string
}

func parseSelector(raw string) selector {
	var sel selector
	raw = strings.TrimSpace(raw)
	i := 0
	for i < len(raw) && raw[i] != '#' && raw[i] != '.' {
		i++
	}
	sel.tag = strings.ToLower(raw[:i])
	for i < len(raw) {
		kind := raw[i]
		j := i + 1
		for j < len(raw) && raw[j] != '#' && raw[j] != '.' {
			j++
		}
		part := raw[i+1 : j]
		if kind == '#' {
			sel.id = part
		} else if part != "" {
			sel.classes = append(sel.classes, part)
		}
		i = j
	}
	return sel
}

func (s selector) matches(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if s.tag != "" && s.tag != "*" && !strings.EqualFold(n.Data, s.tag) {
		return false
	}
	if s.id != "" && attr(n, "id") != s.id {
		return false
	}
	if len(s.classes) > 0 {
		have := strings.Fields(attr(n, "class"))
		for _, want := range s.classes {
			found := false
			for _, c := range have {
				if c == want {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}

// QuerySelector returns the first descendant matching a compound selector
// such as "svg", "#diagram", ".node" or "rect.print-background".
func (e *Element) QuerySelector(raw string) *Element {
	all := e.query(raw, 1)
	if len(all) == 0 {
		return nil
	}
	return all[0]
}

// QuerySelectorAll returns every descendant matching raw in document order.
func (e *Element) QuerySelectorAll(raw string) []*Element {
	return e.query(raw, -1)
}

func (e *Element) query(raw string, limit int) []*Element {
	sel := parseSelector(raw)
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()

	var out []*Element
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if sel.matches(c) {
				out = append(out, e.doc.wrap(c))
				if limit > 0 && len(out) >= limit {
					return true
				}
			}
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(e.node)
	return out
}
