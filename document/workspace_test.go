package document

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goliatone/go-workflow-export/diagram"
	"github.com/goliatone/go-workflow-export/dom"
	"github.com/goliatone/go-workflow-export/export"
	"github.com/goliatone/go-workflow-export/locale"
	"github.com/goliatone/go-workflow-export/strategy"
)

const engineSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="200" height="100" viewBox="0 0 200 100"><rect fill="#ffffff" width="20" height="20"></rect></svg>`

type recordingMetrics struct {
	mu     sync.Mutex
	events []export.MetricsEvent
}

func (m *recordingMetrics) Emit(ctx context.Context, evt export.MetricsEvent) error {
	m.mu.Lock()
	m.events = append(m.events, evt)
	m.mu.Unlock()
	return nil
}

func (m *recordingMetrics) names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.events))
	for _, evt := range m.events {
		out = append(out, evt.Name)
	}
	return out
}

func countingEngine(calls *atomic.Int32) diagram.Engine {
	return diagram.EngineFunc(func(ctx context.Context, src diagram.Source, cfg diagram.LayoutConfig) ([]byte, error) {
		calls.Add(1)
		return []byte(engineSVG), nil
	})
}

func sampleResponse() strategy.Response {
	return strategy.Response{
		Success:         true,
		Strategy:        "Expand into new markets\n\nReduce churn",
		KPIs:            []string{"Revenue growth", "Churn rate"},
		WorkflowDiagram: "graph TD\n  A[Start] --> B[Plan]",
		StrategyType:    strategy.Marketing,
	}
}

func newTestWorkspace(t *testing.T, engine diagram.Engine, exporter Exporter) *Workspace {
	t.Helper()
	ws, err := NewWorkspace(sampleResponse(), diagram.NewRenderer(engine), *fixedComposer(exporter), Options{ID: "doc-1", Industry: "Retail"})
	if err != nil {
		t.Fatalf("new workspace: %v", err)
	}
	return ws
}

func TestNewWorkspace_BuildsDocument(t *testing.T) {
	var calls atomic.Int32
	ws := newTestWorkspace(t, countingEngine(&calls), &captureExporter{})

	if lang, _ := ws.Root().Attr("lang"); lang != "en-US" {
		t.Fatalf("unexpected lang %q", lang)
	}
	if dir, _ := ws.Root().Attr("dir"); dir != "ltr" {
		t.Fatalf("unexpected dir %q", dir)
	}
	html := ws.HTML()
	for _, want := range []string{"Expand into new markets", "Reduce churn", "Churn rate", "Key Performance Indicators", "Workflow Diagram"} {
		if !strings.Contains(html, want) {
			t.Fatalf("expected %q in document: %s", want, html)
		}
	}
	if ws.Container() == nil || ws.Container().InnerHTML() != "" {
		t.Fatalf("expected empty diagram container")
	}
	if calls.Load() != 0 {
		t.Fatalf("engine must not run before Render")
	}
}

func TestNewWorkspace_ArabicDirection(t *testing.T) {
	var calls atomic.Int32
	resp := sampleResponse()
	resp.Strategy = "تحسين الامتثال الضريبي"
	ws, err := NewWorkspace(resp, diagram.NewRenderer(countingEngine(&calls)), *NewComposer(&captureExporter{}), Options{})
	if err != nil {
		t.Fatalf("new workspace: %v", err)
	}
	if ws.Language != locale.Arabic {
		t.Fatalf("expected Arabic, got %s", ws.Language)
	}
	if dir, _ := ws.Root().Attr("dir"); dir != "rtl" {
		t.Fatalf("unexpected dir %q", dir)
	}
	if !strings.Contains(ws.HTML(), locale.Arabic.Messages().DiagramHeading) {
		t.Fatalf("expected Arabic headings")
	}
}

func TestWorkspaceRender_CommitsAndSkipsUnchanged(t *testing.T) {
	var calls atomic.Int32
	ws := newTestWorkspace(t, countingEngine(&calls), &captureExporter{})
	metrics := &recordingMetrics{}
	ws.SetMetrics(metrics)
	ctx := context.Background()

	d, err := ws.Render(ctx, diagram.Light, "")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if d.State != diagram.StateRendered || d.Generation != 1 {
		t.Fatalf("unexpected diagram %+v", d)
	}
	if state, _ := ws.Container().Attr(RenderStateAttr); state != string(diagram.StateRendered) {
		t.Fatalf("unexpected render state %q", state)
	}
	if ws.Container().QuerySelector("svg") == nil {
		t.Fatalf("expected svg in container")
	}

	if _, err := ws.Render(ctx, diagram.Light, diagram.TopDown); err != nil {
		t.Fatalf("render: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected unchanged render to be skipped, engine calls=%d", calls.Load())
	}

	dark, err := ws.Render(ctx, diagram.Dark, "")
	if err != nil {
		t.Fatalf("render dark: %v", err)
	}
	if !strings.Contains(dark.Markup, `fill="#374151"`) || strings.Contains(dark.Markup, `fill="#ffffff"`) {
		t.Fatalf("expected dark palette: %s", dark.Markup)
	}
	if theme, _ := ws.Container().Attr("data-theme"); theme != string(diagram.Dark) {
		t.Fatalf("unexpected theme attr %q", theme)
	}

	lr, err := ws.Render(ctx, "", diagram.LeftRight)
	if err != nil {
		t.Fatalf("render LR: %v", err)
	}
	if lr.Source.Orientation != diagram.LeftRight || !strings.HasPrefix(lr.Source.Text, "graph LR") || lr.Theme != diagram.Dark {
		t.Fatalf("unexpected LR source %+v", lr.Source)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 engine calls, got %d", calls.Load())
	}
	if got := metrics.names(); len(got) != 3 || got[0] != export.EventRenderCommitted {
		t.Fatalf("unexpected metrics %v", got)
	}
}

func TestWorkspaceRender_StaleRenderDiscarded(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	engine := diagram.EngineFunc(func(ctx context.Context, src diagram.Source, cfg diagram.LayoutConfig) ([]byte, error) {
		if src.Orientation == diagram.TopDown {
			close(started)
			<-release
			return []byte(`<svg width="10" height="10"><text>old</text></svg>`), nil
		}
		return []byte(`<svg width="10" height="10"><text>new</text></svg>`), nil
	})
	ws := newTestWorkspace(t, engine, &captureExporter{})
	ctx := context.Background()

	slow := make(chan error, 1)
	go func() {
		_, err := ws.Render(ctx, diagram.Light, diagram.TopDown)
		slow <- err
	}()
	<-started

	if _, err := ws.Render(ctx, diagram.Light, diagram.LeftRight); err != nil {
		t.Fatalf("render LR: %v", err)
	}
	close(release)

	err := <-slow
	if export.KindFromError(err) != export.KindConflict {
		t.Fatalf("expected stale render to be rejected, got %v", err)
	}
	if !strings.Contains(ws.Container().InnerHTML(), "new") || strings.Contains(ws.Container().InnerHTML(), "old") {
		t.Fatalf("stale render overwrote newer markup: %s", ws.Container().InnerHTML())
	}
	if ws.Diagram().Source.Orientation != diagram.LeftRight {
		t.Fatalf("unexpected committed diagram %+v", ws.Diagram())
	}
}

func TestWorkspaceRender_FailureAndEmpty(t *testing.T) {
	failing := diagram.EngineFunc(func(ctx context.Context, src diagram.Source, cfg diagram.LayoutConfig) ([]byte, error) {
		return nil, errors.New("parse error on line 2")
	})
	ws := newTestWorkspace(t, failing, &captureExporter{})
	metrics := &recordingMetrics{}
	ws.SetMetrics(metrics)

	d, err := ws.Render(context.Background(), "", "")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if d.State != diagram.StateFailed || ws.Container().QuerySelector("."+diagram.ErrorClass) == nil {
		t.Fatalf("expected failure placeholder, got %s", ws.Container().InnerHTML())
	}
	if got := metrics.names(); len(got) != 1 || got[0] != export.EventRenderFailed {
		t.Fatalf("unexpected metrics %v", got)
	}

	var calls atomic.Int32
	resp := sampleResponse()
	resp.WorkflowDiagram = "  "
	empty, err := NewWorkspace(resp, diagram.NewRenderer(countingEngine(&calls)), *NewComposer(&captureExporter{}), Options{})
	if err != nil {
		t.Fatalf("new workspace: %v", err)
	}
	d, err = empty.Render(context.Background(), "", "")
	if err != nil {
		t.Fatalf("render empty: %v", err)
	}
	if d.State != diagram.StateEmpty || calls.Load() != 0 {
		t.Fatalf("expected empty state without engine call, got %+v", d)
	}
	if !strings.Contains(empty.Container().InnerHTML(), "diagram-empty") {
		t.Fatalf("expected empty placeholder: %s", empty.Container().InnerHTML())
	}
}

type blockingExporter struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingExporter) ToPDF(ctx context.Context, doc *dom.Element, filename string, geometry export.Geometry) (export.ArtifactRef, error) {
	close(b.entered)
	<-b.release
	return export.ArtifactRef{Key: "exports/" + filename, Meta: export.ArtifactMeta{Filename: filename, Pages: 1}}, nil
}

func TestWorkspaceExport_RejectsConcurrentExport(t *testing.T) {
	var calls atomic.Int32
	exporter := &blockingExporter{entered: make(chan struct{}), release: make(chan struct{})}
	ws := newTestWorkspace(t, countingEngine(&calls), exporter)
	metrics := &recordingMetrics{}
	ws.SetMetrics(metrics)
	ctx := context.Background()
	if _, err := ws.Render(ctx, "", ""); err != nil {
		t.Fatalf("render: %v", err)
	}

	first := make(chan error, 1)
	go func() {
		_, err := ws.Export(ctx, export.Geometry{}, "")
		first <- err
	}()
	<-exporter.entered

	_, err := ws.Export(ctx, export.Geometry{}, "")
	if export.KindFromError(err) != export.KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if !strings.Contains(err.Error(), locale.English.Messages().ExportInProgress) {
		t.Fatalf("expected localized message, got %q", err.Error())
	}

	close(exporter.release)
	select {
	case err := <-first:
		if err != nil {
			t.Fatalf("first export: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("first export did not finish")
	}

	names := metrics.names()
	if names[len(names)-2] != export.EventExportRejected || names[len(names)-1] != export.EventExportCompleted {
		t.Fatalf("unexpected metrics %v", names)
	}
}

func TestWorkspaceExport_RestoresScreenPalette(t *testing.T) {
	var calls atomic.Int32
	exporter := &captureExporter{}
	ws := newTestWorkspace(t, countingEngine(&calls), exporter)
	ctx := context.Background()
	if _, err := ws.Render(ctx, diagram.Dark, ""); err != nil {
		t.Fatalf("render: %v", err)
	}
	before := ws.Container().InnerHTML()

	ref, err := ws.Export(ctx, export.Geometry{}, "")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if ref.Meta.Filename != "Strategy_Marketing_Retail.pdf" {
		t.Fatalf("unexpected filename %q", ref.Meta.Filename)
	}
	if !strings.Contains(exporter.markup, diagram.PrintBackgroundClass) {
		t.Fatalf("expected print-safe diagram in export: %s", exporter.markup)
	}
	if ws.Container().InnerHTML() != before {
		t.Fatalf("expected screen palette restored")
	}
}

// themedEngine draws with the layout style the way the real engines do,
// through attributes and a theme stylesheet.
func themedEngine() diagram.Engine {
	return diagram.EngineFunc(func(ctx context.Context, src diagram.Source, cfg diagram.LayoutConfig) ([]byte, error) {
		s := cfg.Style
		return []byte(fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="200" height="100" viewBox="0 0 200 100">`+
			`<style>.node rect{fill: %[2]s !important; stroke: %[3]s !important} .cluster rect{fill: %[6]s !important} .label{color: %[1]s !important}</style>`+
			`<g class="cluster"><rect fill="%[6]s" stroke="%[7]s"></rect></g>`+
			`<g class="node"><rect fill="%[2]s" stroke="%[3]s"></rect><text fill="%[1]s">One</text></g>`+
			`<path stroke="%[4]s" fill="none"></path><g class="edgeLabel"><rect fill="%[5]s"></rect><text fill="%[1]s">go</text></g>`+
			`</svg>`, s.Text, s.NodeFill, s.NodeStroke, s.EdgeStroke, s.LabelBackground, s.ClusterFill, s.ClusterStroke)), nil
	})
}

func TestWorkspaceExport_DarkRenderPrintsBlackOnWhite(t *testing.T) {
	exporter := &captureExporter{}
	ws := newTestWorkspace(t, themedEngine(), exporter)
	ctx := context.Background()
	if _, err := ws.Render(ctx, diagram.Dark, ""); err != nil {
		t.Fatalf("render: %v", err)
	}
	screen := ws.Container().InnerHTML()
	if !strings.Contains(screen, "#374151") {
		t.Fatalf("expected dark theme on screen: %s", screen)
	}

	if _, err := ws.Export(ctx, export.Geometry{}, ""); err != nil {
		t.Fatalf("export: %v", err)
	}
	printed := strings.ToLower(exporter.markup)
	for _, color := range []string{"#f3f4f6", "#374151", "#9ca3af", "#1f2937"} {
		if strings.Contains(printed, color) {
			t.Fatalf("dark theme color %s reached the exporter: %s", color, exporter.markup)
		}
	}
	if !strings.Contains(exporter.markup, diagram.PrintBackgroundClass) || !strings.Contains(exporter.markup, `<text fill="#000000">One</text>`) {
		t.Fatalf("expected black on white diagram in export: %s", exporter.markup)
	}
	if ws.Container().InnerHTML() != screen {
		t.Fatalf("expected dark screen diagram restored after export")
	}
}

func TestWorkspaceRender_WaitsForExportInFlight(t *testing.T) {
	exporter := &blockingExporter{entered: make(chan struct{}), release: make(chan struct{})}
	ws := newTestWorkspace(t, themedEngine(), exporter)
	ctx := context.Background()
	if _, err := ws.Render(ctx, diagram.Light, ""); err != nil {
		t.Fatalf("render: %v", err)
	}

	exported := make(chan error, 1)
	go func() {
		_, err := ws.Export(ctx, export.Geometry{}, "")
		exported <- err
	}()
	<-exporter.entered

	shortCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if _, err := ws.Render(shortCtx, diagram.Dark, ""); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected render to wait for the export, got %v", err)
	}
	if !strings.Contains(ws.Container().InnerHTML(), diagram.PrintBackgroundClass) {
		t.Fatalf("expected print markup to stay in place during export: %s", ws.Container().InnerHTML())
	}
	if ws.Diagram().Theme != diagram.Light {
		t.Fatalf("expected light diagram still committed, got %s", ws.Diagram().Theme)
	}

	close(exporter.release)
	select {
	case err := <-exported:
		if err != nil {
			t.Fatalf("export: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("export did not finish")
	}
	if strings.Contains(ws.Container().InnerHTML(), diagram.PrintBackgroundClass) {
		t.Fatalf("expected screen markup restored after export")
	}

	d, err := ws.Render(ctx, diagram.Dark, "")
	if err != nil {
		t.Fatalf("render after export: %v", err)
	}
	if d.Theme != diagram.Dark || ws.Diagram().Theme != diagram.Dark {
		t.Fatalf("expected dark render committed, got %s", ws.Diagram().Theme)
	}
	if !strings.Contains(ws.Container().InnerHTML(), "#374151") {
		t.Fatalf("expected dark markup in container: %s", ws.Container().InnerHTML())
	}
}
