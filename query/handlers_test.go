package query

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-workflow-export/diagram"
	"github.com/goliatone/go-workflow-export/document"
	"github.com/goliatone/go-workflow-export/export"
	"github.com/goliatone/go-workflow-export/strategy"
)

func TestExportStatusAndHistory(t *testing.T) {
	ctx := context.Background()
	tracker := export.NewMemoryTracker()
	svc := &document.Service{Tracker: tracker}

	id, err := tracker.Start(ctx, export.ExportRecord{DocumentID: "doc-1"})
	if err != nil {
		t.Fatalf("tracker start: %v", err)
	}
	if err := tracker.Complete(ctx, id, export.ArtifactRef{Key: "exports/a.pdf", Meta: export.ArtifactMeta{Filename: "a.pdf"}}); err != nil {
		t.Fatalf("tracker complete: %v", err)
	}

	record, err := NewExportStatusHandler(svc).Query(ctx, ExportStatus{ExportID: id})
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if record.State != export.StateCompleted || record.Filename != "a.pdf" {
		t.Fatalf("unexpected record %+v", record)
	}

	if _, err := NewExportStatusHandler(svc).Query(ctx, ExportStatus{}); err == nil {
		t.Fatalf("expected validation error")
	}
	if _, err := NewExportStatusHandler(svc).Query(ctx, ExportStatus{ExportID: "missing"}); export.KindFromError(err) != export.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}

	history, err := NewExportHistoryHandler(svc).Query(ctx, ExportHistory{Filter: export.HistoryFilter{DocumentID: "doc-1"}})
	if err != nil || len(history) != 1 {
		t.Fatalf("unexpected history %v %+v", err, history)
	}

	now := time.Now()
	bad := ExportHistory{Filter: export.HistoryFilter{Since: now, Until: now.Add(-time.Hour)}}
	if _, err := NewExportHistoryHandler(svc).Query(ctx, bad); err == nil {
		t.Fatalf("expected range error")
	}
}

func TestExportHistory_TrackingDisabled(t *testing.T) {
	_, err := NewExportHistoryHandler(&document.Service{}).Query(context.Background(), ExportHistory{})
	if export.KindFromError(err) != export.KindNotImpl {
		t.Fatalf("expected not implemented, got %v", err)
	}
}

func TestDocumentViewHandler(t *testing.T) {
	engine := diagram.EngineFunc(func(ctx context.Context, src diagram.Source, cfg diagram.LayoutConfig) ([]byte, error) {
		return []byte(`<svg width="10" height="10"></svg>`), nil
	})
	svc := &document.Service{
		Renderer: diagram.NewRenderer(engine),
		Composer: document.NewComposer(nil),
	}
	ws, err := svc.Open(context.Background(), strategy.Response{
		Success:         true,
		Strategy:        "Grow",
		WorkflowDiagram: "graph LR\nA-->B",
		StrategyType:    strategy.Finance,
	}, document.OpenOptions{Industry: "Banking", Theme: diagram.Dark})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	view, err := NewDocumentViewHandler(svc).Query(context.Background(), DocumentView{DocumentID: ws.ID, IncludeHTML: true})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if view.Theme != "dark" || view.Orientation != "LR" || view.RenderState != "rendered" || view.Direction != "ltr" {
		t.Fatalf("unexpected view %+v", view)
	}
	if !strings.Contains(view.HTML, "<svg") {
		t.Fatalf("expected html in view")
	}

	if _, err := NewDocumentViewHandler(svc).Query(context.Background(), DocumentView{DocumentID: "missing"}); export.KindFromError(err) != export.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
