package document

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-workflow-export/diagram"
	"github.com/goliatone/go-workflow-export/dom"
	"github.com/goliatone/go-workflow-export/export"
	"github.com/goliatone/go-workflow-export/locale"
	"github.com/goliatone/go-workflow-export/strategy"
)

type captureExporter struct {
	calls    int
	markup   string
	filename string
	geometry export.Geometry
	err      error
}

func (c *captureExporter) ToPDF(ctx context.Context, doc *dom.Element, filename string, geometry export.Geometry) (export.ArtifactRef, error) {
	c.calls++
	c.markup = doc.OuterHTML()
	c.filename = filename
	c.geometry = geometry
	if c.err != nil {
		return export.ArtifactRef{}, c.err
	}
	return export.ArtifactRef{Key: "exports/test/" + filename, Meta: export.ArtifactMeta{Filename: filename, Pages: 1, Size: 42}}, nil
}

const wideDiagram = `<svg xmlns="http://www.w3.org/2000/svg" width="1200" height="400" viewBox="0 0 1200 400" style="max-width: 1200px;"><g><rect fill="#ffffff" width="10" height="10"></rect><text style="fill: #374151; color: white">Start</text></g></svg>`

func newTestDocument(t *testing.T, diagramMarkup string, state diagram.State) (*dom.Element, *dom.Element) {
	t.Helper()
	doc := dom.NewDocument()
	root := doc.CreateElement("article")
	if err := root.SetInnerHTML(`<section class="strategy"><p>Grow revenue</p></section><div id="` + DiagramContainerID + `"></div>`); err != nil {
		t.Fatalf("build document: %v", err)
	}
	if err := doc.Body().AppendChild(root); err != nil {
		t.Fatalf("attach: %v", err)
	}
	container := doc.GetElementByID(DiagramContainerID)
	if err := container.SetInnerHTML(diagramMarkup); err != nil {
		t.Fatalf("set diagram: %v", err)
	}
	container.SetAttr(RenderStateAttr, string(state))
	return root, container
}

func fixedComposer(exporter Exporter) *Composer {
	c := NewComposer(exporter)
	c.RenderTimeout = 20 * time.Millisecond
	c.Now = func() time.Time { return time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC) }
	return c
}

func TestComposerExport_ComposesAndRestores(t *testing.T) {
	root, container := newTestDocument(t, wideDiagram, diagram.StateRendered)
	before := container.InnerHTML()
	exporter := &captureExporter{}
	composer := fixedComposer(exporter)

	ref, err := composer.Export(context.Background(), root, container, Meta{
		StrategyType: strategy.Tax,
		Industry:     "Retail",
		Language:     locale.English,
	})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if ref.Meta.Filename != "Strategy_Tax_Retail.pdf" || exporter.filename != "Strategy_Tax_Retail.pdf" {
		t.Fatalf("unexpected filename %q / %q", ref.Meta.Filename, exporter.filename)
	}

	captured := exporter.markup
	if !strings.Contains(captured, `class="`+HeaderClass+`"`) {
		t.Fatalf("expected export header in composed document: %s", captured)
	}
	if !strings.Contains(captured, "Tax Strategy for Retail") || !strings.Contains(captured, "1/2/2024") {
		t.Fatalf("expected title and creation date in header: %s", captured)
	}
	if strings.Index(captured, HeaderClass) > strings.Index(captured, "Grow revenue") {
		t.Fatalf("expected header before content")
	}
	if !strings.Contains(captured, `width="600"`) || !strings.Contains(captured, `height="200"`) {
		t.Fatalf("expected diagram scaled to 600x200: %s", captured)
	}
	if !strings.Contains(captured, "max-width: 600px") {
		t.Fatalf("expected max-width style updated: %s", captured)
	}
	if strings.Contains(captured, `fill="#ffffff"`) || !strings.Contains(captured, diagram.PrintBackgroundClass) {
		t.Fatalf("expected print-safe diagram: %s", captured)
	}

	if root.QuerySelector("."+HeaderClass) != nil {
		t.Fatalf("expected header removed after export")
	}
	if container.InnerHTML() != before {
		t.Fatalf("expected container restored\nwant %s\ngot  %s", before, container.InnerHTML())
	}
	if exporter.geometry.PageSize != "LETTER" || exporter.geometry.Scale != 3 {
		t.Fatalf("expected default geometry, got %+v", exporter.geometry)
	}
}

func TestComposerExport_RestoresOnExporterFailure(t *testing.T) {
	root, container := newTestDocument(t, wideDiagram, diagram.StateRendered)
	before := container.InnerHTML()
	exporter := &captureExporter{err: export.NewError(export.KindExport, "browser crashed", nil)}

	_, err := fixedComposer(exporter).Export(context.Background(), root, container, Meta{Industry: "Retail"})
	if export.KindFromError(err) != export.KindExport {
		t.Fatalf("expected export error, got %v", err)
	}
	if root.QuerySelector("."+HeaderClass) != nil {
		t.Fatalf("expected header removed after failure")
	}
	if container.InnerHTML() != before {
		t.Fatalf("expected container restored after failure")
	}
}

func TestComposerExport_FailedDiagramSkipsWait(t *testing.T) {
	root, container := newTestDocument(t, diagram.Placeholder(locale.English), diagram.StateFailed)
	exporter := &captureExporter{}
	composer := fixedComposer(exporter)
	composer.RenderTimeout = time.Hour

	done := make(chan error, 1)
	go func() {
		_, err := composer.Export(context.Background(), root, container, Meta{Industry: "Retail"})
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("export: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("export waited for a diagram that failed to render")
	}
	if !strings.Contains(exporter.markup, diagram.ErrorClass) {
		t.Fatalf("expected placeholder in export: %s", exporter.markup)
	}
}

func TestComposerExport_ToleratesRenderTimeout(t *testing.T) {
	root, container := newTestDocument(t, "", diagram.StateRendered)
	exporter := &captureExporter{}

	if _, err := fixedComposer(exporter).Export(context.Background(), root, container, Meta{Industry: "Retail"}); err != nil {
		t.Fatalf("expected export to proceed after timeout, got %v", err)
	}
	if exporter.calls != 1 {
		t.Fatalf("expected one exporter call, got %d", exporter.calls)
	}
}

func TestComposerExport_Canceled(t *testing.T) {
	root, container := newTestDocument(t, "", diagram.StateRendered)
	exporter := &captureExporter{}
	composer := fixedComposer(exporter)
	composer.RenderTimeout = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := composer.Export(ctx, root, container, Meta{Industry: "Retail"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if exporter.calls != 0 {
		t.Fatalf("exporter must not run after cancellation")
	}
	if root.QuerySelector("."+HeaderClass) != nil {
		t.Fatalf("expected header removed after cancellation")
	}
}

func TestComposerExport_ArabicFilenameAndHeader(t *testing.T) {
	root, container := newTestDocument(t, wideDiagram, diagram.StateRendered)
	exporter := &captureExporter{}

	_, err := fixedComposer(exporter).Export(context.Background(), root, container, Meta{
		Industry: "التقنية",
		Language: locale.Arabic,
	})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	want := "استراتيجية_" + strategyTypeName("", locale.Arabic) + "_التقنية.pdf"
	if exporter.filename != want {
		t.Fatalf("expected %q, got %q", want, exporter.filename)
	}
	if !strings.Contains(exporter.markup, `dir="rtl"`) {
		t.Fatalf("expected rtl header: %s", exporter.markup)
	}
}

func TestComposerExport_RequiresExporter(t *testing.T) {
	root, container := newTestDocument(t, wideDiagram, diagram.StateRendered)
	var composer Composer
	if _, err := composer.Export(context.Background(), root, container, Meta{}); export.KindFromError(err) != export.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestFitWidth(t *testing.T) {
	cases := []struct {
		name       string
		markup     string
		wantWidth  string
		wantHeight string
		wantView   string
	}{
		{
			name:       "pixels",
			markup:     `<svg width="1200" height="300"></svg>`,
			wantWidth:  "600",
			wantHeight: "150",
			wantView:   "0 0 1200 300",
		},
		{
			name:       "points",
			markup:     `<svg width="900pt" height="450pt" viewBox="0 0 900 450"></svg>`,
			wantWidth:  "600",
			wantHeight: "300",
			wantView:   "0 0 900 450",
		},
		{
			name:       "viewbox only",
			markup:     `<svg viewBox="0 0 800 200"></svg>`,
			wantWidth:  "600",
			wantHeight: "150",
			wantView:   "0 0 800 200",
		},
		{
			name:       "small diagram untouched",
			markup:     `<svg width="300" height="100"></svg>`,
			wantWidth:  "300",
			wantHeight: "100",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := dom.NewDocument()
			holder, err := doc.ParseFragment(tc.markup, "div")
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			svg := holder.QuerySelector("svg")
			fitWidth(svg, DefaultMaxDiagramWidth)
			if got, _ := svg.Attr("width"); got != tc.wantWidth {
				t.Fatalf("width = %q, want %q", got, tc.wantWidth)
			}
			if got, _ := svg.Attr("height"); got != tc.wantHeight {
				t.Fatalf("height = %q, want %q", got, tc.wantHeight)
			}
			if got, _ := svg.Attr("viewBox"); got != tc.wantView {
				t.Fatalf("viewBox = %q, want %q", got, tc.wantView)
			}
		})
	}
}
