// Package dom is a small mutable HTML tree with subtree observers.
//
// It stands in for the host page: renderers commit markup into container
// elements, and WaitForRender watches a container until an svg element
// appears. All access goes through the owning Document, which serializes
// mutations and delivers observer callbacks after releasing its lock.
package dom

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// MutationKind names what changed.
type MutationKind string

const (
	ChildList  MutationKind = "childList"
	Attributes MutationKind = "attributes"
)

// Mutation describes one change inside an observed subtree.
type Mutation struct {
	Kind      MutationKind
	Target    *Element
	Attribute string
}

type observer struct {
	id uint64
	fn func(Mutation)
}

// Document owns a tree of elements.
type Document struct {
	mu        sync.RWMutex
	root      *html.Node
	body      *html.Node
	observers map[*html.Node][]observer
	nextID    uint64
}

// NewDocument returns an empty html document.
func NewDocument() *Document {
	doc, _ := Parse(strings.NewReader("<!DOCTYPE html><html><head></head><body></body></html>"))
	return doc
}

// Parse reads a full html document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	d := &Document{root: root, observers: make(map[*html.Node][]observer)}
	d.body = findFirst(root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == atom.Body
	})
	return d, nil
}

// Body returns the body element.
func (d *Document) Body() *Element {
	return d.wrap(d.body)
}

// CreateElement returns a detached element.
func (d *Document) CreateElement(tag string) *Element {
	tag = strings.ToLower(tag)
	return d.wrap(&html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))})
}

// ParseFragment parses markup as children of a detached element with tag.
func (d *Document) ParseFragment(markup, tag string) (*Element, error) {
	holder := d.CreateElement(tag)
	if err := holder.SetInnerHTML(markup); err != nil {
		return nil, err
	}
	return holder, nil
}

// Render writes the whole document.
func (d *Document) Render(w io.Writer) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return html.Render(w, d.root)
}

// GetElementByID searches the document.
func (d *Document) GetElementByID(id string) *Element {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.wrap(findFirst(d.root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && attr(n, "id") == id
	}))
}

// ObserverCount reports the number of registered observers.
func (d *Document) ObserverCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	total := 0
	for _, list := range d.observers {
		total += len(list)
	}
	return total
}

func (d *Document) wrap(n *html.Node) *Element {
	if n == nil {
		return nil
	}
	return &Element{doc: d, node: n}
}

// observe registers fn for mutations in the subtree of n.
func (d *Document) observe(n *html.Node, fn func(Mutation)) func() {
	d.mu.Lock()
	d.nextID++
	id := d.nextID
	d.observers[n] = append(d.observers[n], observer{id: id, fn: fn})
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			defer d.mu.Unlock()
			list := d.observers[n]
			for i, o := range list {
				if o.id == id {
					list = append(list[:i:i], list[i+1:]...)
					break
				}
			}
			if len(list) == 0 {
				delete(d.observers, n)
			} else {
				d.observers[n] = list
			}
		})
	}
}

// mutate runs fn under the write lock, then notifies observers of target
// and its ancestors.
func (d *Document) mutate(target *html.Node, m Mutation, fn func() error) error {
	d.mu.Lock()
	if err := fn(); err != nil {
		d.mu.Unlock()
		return err
	}
	var pending []func(Mutation)
	for n := target; n != nil; n = n.Parent {
		for _, o := range d.observers[n] {
			pending = append(pending, o.fn)
		}
	}
	d.mu.Unlock()

	m.Target = d.wrap(target)
	for _, fn := range pending {
		fn(m)
	}
	return nil
}

// Element is a handle to an element node.
type Element struct {
	doc  *Document
	node *html.Node
}

// Same reports whether e and other refer to the same node.
func (e *Element) Same(other *Element) bool {
	return e != nil && other != nil && e.node == other.node
}

// Document returns the owning document.
func (e *Element) Document() *Document {
	return e.doc
}

// Tag returns the lower-case tag name.
func (e *Element) Tag() string {
	return e.node.Data
}

// Attr returns an attribute value.
func (e *Element) Attr(key string) (string, bool) {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	for _, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets an attribute.
func (e *Element) SetAttr(key, value string) {
	_ = e.doc.mutate(e.node, Mutation{Kind: Attributes, Attribute: key}, func() error {
		setAttr(e.node, key, value)
		return nil
	})
}

// RemoveAttr deletes an attribute.
func (e *Element) RemoveAttr(key string) {
	_ = e.doc.mutate(e.node, Mutation{Kind: Attributes, Attribute: key}, func() error {
		out := e.node.Attr[:0]
		for _, a := range e.node.Attr {
			if a.Namespace == "" && a.Key == key {
				continue
			}
			out = append(out, a)
		}
		e.node.Attr = out
		return nil
	})
}

// Style returns one inline style property.
func (e *Element) Style(prop string) string {
	value, _ := e.Attr("style")
	for _, decl := range parseStyle(value) {
		if decl[0] == prop {
			return decl[1]
		}
	}
	return ""
}

// SetStyle sets one inline style property, keeping the others in order.
func (e *Element) SetStyle(prop, value string) {
	_ = e.doc.mutate(e.node, Mutation{Kind: Attributes, Attribute: "style"}, func() error {
		decls := parseStyle(attr(e.node, "style"))
		found := false
		for i := range decls {
			if decls[i][0] == prop {
				decls[i][1] = value
				found = true
			}
		}
		if !found {
			decls = append(decls, [2]string{prop, value})
		}
		parts := make([]string, 0, len(decls))
		for _, d := range decls {
			parts = append(parts, d[0]+": "+d[1])
		}
		setAttr(e.node, "style", strings.Join(parts, "; ")+";")
		return nil
	})
}

// Parent returns the parent element, or nil.
func (e *Element) Parent() *Element {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	if e.node.Parent == nil || e.node.Parent.Type != html.ElementNode {
		return nil
	}
	return e.doc.wrap(e.node.Parent)
}

// Children returns the element children.
func (e *Element) Children() []*Element {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	var out []*Element
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, e.doc.wrap(c))
		}
	}
	return out
}

// FirstElementChild returns the first element child, or nil.
func (e *Element) FirstElementChild() *Element {
	children := e.Children()
	if len(children) == 0 {
		return nil
	}
	return children[0]
}

// AppendChild moves child to the end of e.
func (e *Element) AppendChild(child *Element) error {
	return e.InsertBefore(child, nil)
}

// InsertBefore moves child before ref; a nil ref appends.
func (e *Element) InsertBefore(child, ref *Element) error {
	if child == nil {
		return fmt.Errorf("insert nil element")
	}
	if child.doc != e.doc {
		return fmt.Errorf("element belongs to another document")
	}
	return e.doc.mutate(e.node, Mutation{Kind: ChildList}, func() error {
		for n := e.node; n != nil; n = n.Parent {
			if n == child.node {
				return fmt.Errorf("cannot insert %s into its own subtree", child.node.Data)
			}
		}
		var refNode *html.Node
		if ref != nil {
			if ref.node.Parent != e.node {
				return fmt.Errorf("reference element is not a child of %s", e.node.Data)
			}
			refNode = ref.node
		}
		if child.node.Parent != nil {
			child.node.Parent.RemoveChild(child.node)
		}
		e.node.InsertBefore(child.node, refNode)
		return nil
	})
}

// Remove detaches e from its parent.
func (e *Element) Remove() {
	e.doc.mu.RLock()
	parent := e.node.Parent
	e.doc.mu.RUnlock()
	if parent == nil {
		return
	}
	_ = e.doc.mutate(parent, Mutation{Kind: ChildList}, func() error {
		if e.node.Parent == parent {
			parent.RemoveChild(e.node)
		}
		return nil
	})
}

// InnerHTML serializes the children of e.
func (e *Element) InnerHTML() string {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	var buf bytes.Buffer
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&buf, c)
	}
	return buf.String()
}

// OuterHTML serializes e.
func (e *Element) OuterHTML() string {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	var buf bytes.Buffer
	_ = html.Render(&buf, e.node)
	return buf.String()
}

// SetInnerHTML replaces the children of e with parsed markup.
func (e *Element) SetInnerHTML(markup string) error {
	e.doc.mu.RLock()
	holder := &html.Node{Type: html.ElementNode, Data: e.node.Data, DataAtom: e.node.DataAtom, Namespace: e.node.Namespace}
	e.doc.mu.RUnlock()

	nodes, err := html.ParseFragment(strings.NewReader(markup), holder)
	if err != nil {
		return fmt.Errorf("parse fragment: %w", err)
	}
	return e.doc.mutate(e.node, Mutation{Kind: ChildList}, func() error {
		for c := e.node.FirstChild; c != nil; {
			next := c.NextSibling
			e.node.RemoveChild(c)
			c = next
		}
		for _, n := range nodes {
			e.node.AppendChild(n)
		}
		return nil
	})
}

// TextContent concatenates the text of the subtree.
func (e *Element) TextContent() string {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(e.node)
	return sb.String()
}

// Observe calls fn for every mutation in the subtree of e until the
// returned disconnect function runs.
func (e *Element) Observe(fn func(Mutation)) (disconnect func()) {
	return e.doc.observe(e.node, fn)
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, value string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: value})
}

func parseStyle(value string) [][2]string {
	var out [][2]string
	for _, part := range strings.Split(value, ";") {
		key, val, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			continue
		}
		out = append(out, [2]string{key, strings.TrimSpace(val)})
	}
	return out
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n == nil {
		return nil
	}
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}
