package dom

import (
	"strings"
	"sync/atomic"
	"testing"
)

func TestElement_TreeOperations(t *testing.T) {
	doc := NewDocument()
	body := doc.Body()

	container := doc.CreateElement("div")
	container.SetAttr("id", "diagram")
	if err := body.AppendChild(container); err != nil {
		t.Fatalf("append: %v", err)
	}
	header := doc.CreateElement("header")
	if err := body.InsertBefore(header, container); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if first := body.FirstElementChild(); !first.Same(header) {
		t.Fatalf("expected header first, got %s", first.Tag())
	}
	if got := doc.GetElementByID("diagram"); !got.Same(container) {
		t.Fatalf("expected container by id")
	}

	header.Remove()
	if len(body.Children()) != 1 {
		t.Fatalf("expected header removed, got %d children", len(body.Children()))
	}
	if err := container.AppendChild(body); err == nil {
		t.Fatalf("expected cycle rejection")
	}
}

func TestElement_InnerHTMLWithSVG(t *testing.T) {
	doc := NewDocument()
	container := doc.CreateElement("div")
	markup := `<svg viewBox="0 0 200 100" width="200"><g class="node"><rect fill="#fff"/></g></svg>`
	if err := container.SetInnerHTML(markup); err != nil {
		t.Fatalf("set inner html: %v", err)
	}

	svg := container.QuerySelector("svg")
	if svg == nil {
		t.Fatalf("expected svg element")
	}
	if v, _ := svg.Attr("viewBox"); v != "0 0 200 100" {
		t.Fatalf("expected camel-case viewBox to survive parsing, got %q", v)
	}
	if container.QuerySelector("g.node") == nil || container.QuerySelector(".missing") != nil {
		t.Fatalf("unexpected selector results")
	}
	if !strings.Contains(container.InnerHTML(), `viewBox="0 0 200 100"`) {
		t.Fatalf("expected serialized viewBox, got %s", container.InnerHTML())
	}
	if len(container.QuerySelectorAll("rect")) != 1 {
		t.Fatalf("expected one rect")
	}
}

func TestElement_Styles(t *testing.T) {
	doc := NewDocument()
	el := doc.CreateElement("div")
	el.SetAttr("style", "color: red; display:none")
	el.SetStyle("display", "block")
	el.SetStyle("width", "600px")

	if el.Style("display") != "block" || el.Style("color") != "red" || el.Style("width") != "600px" {
		t.Fatalf("unexpected style %q", el.OuterHTML())
	}
	if v, _ := el.Attr("style"); v != "color: red; display: block; width: 600px;" {
		t.Fatalf("unexpected style attribute %q", v)
	}
}

func TestObserve_SubtreeAndDisconnect(t *testing.T) {
	doc := NewDocument()
	container := doc.CreateElement("div")
	inner := doc.CreateElement("section")
	_ = container.AppendChild(inner)

	var calls int32
	disconnect := container.Observe(func(m Mutation) {
		atomic.AddInt32(&calls, 1)
	})
	if doc.ObserverCount() != 1 {
		t.Fatalf("expected one observer")
	}

	inner.SetAttr("data-x", "1")
	_ = inner.SetInnerHTML("<span>hi</span>")
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("expected 2 subtree notifications, got %d", got)
	}

	disconnect()
	disconnect()
	inner.SetAttr("data-x", "2")
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("expected no notifications after disconnect, got %d", got)
	}
	if doc.ObserverCount() != 0 {
		t.Fatalf("expected observers cleaned up, got %d", doc.ObserverCount())
	}
}

func TestObserve_CallbackMayReadTree(t *testing.T) {
	doc := NewDocument()
	container := doc.CreateElement("div")
	var sawSVG atomic.Bool
	disconnect := container.Observe(func(Mutation) {
		if container.QuerySelector("svg") != nil {
			sawSVG.Store(true)
		}
	})
	defer disconnect()

	_ = container.SetInnerHTML("<svg></svg>")
	if !sawSVG.Load() {
		t.Fatalf("expected callback to observe committed svg")
	}
}
