package command

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goliatone/go-workflow-export/document"
	"github.com/goliatone/go-workflow-export/export"
	"github.com/goliatone/go-workflow-export/locale"
	"github.com/goliatone/go-workflow-export/strategy"
)

func TestBatchCommand_RunHonorsLimits(t *testing.T) {
	svc := &stubService{}
	loader := func(ctx context.Context) ([]BatchItem, error) {
		return []BatchItem{
			{Response: validResponse(), Industry: "Retail"},
			{Response: validResponse(), Industry: "Energy"},
		}, nil
	}

	cmd := NewBatchExportCommand(svc, loader, WithBatchLimits(BatchLimits{MaxItems: 1, MinInterval: time.Millisecond}))
	cmd.sleep = func(time.Duration) {}

	results, err := cmd.Run(context.Background(), "")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(results) != 1 || results[0].Err != nil {
		t.Fatalf("expected one successful result, got %+v", results)
	}
	if len(svc.closed) != 1 {
		t.Fatalf("expected the document to be closed after export")
	}
}

func TestBatchCommand_ReportsItemFailures(t *testing.T) {
	var opened []document.OpenOptions
	svc := &stubService{
		open: func(ctx context.Context, resp strategy.Response, opts document.OpenOptions) (*document.Workspace, error) {
			opened = append(opened, opts)
			if !resp.Success {
				return nil, export.NewError(export.KindValidation, "strategy response was not successful", nil)
			}
			return &document.Workspace{ID: "doc-1"}, nil
		},
	}
	loader := func(ctx context.Context) ([]BatchItem, error) {
		return []BatchItem{
			{Response: strategy.Response{}, Industry: "Retail"},
			{Response: validResponse(), Industry: "Energy", Language: "ar", Theme: "dark", Orientation: "LR"},
			{Response: validResponse(), Theme: "neon"},
		}, nil
	}

	results, err := NewBatchExportCommand(svc, loader).Run(context.Background(), "")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Err == nil || results[1].Err != nil || results[2].Err == nil {
		t.Fatalf("unexpected results %+v", results)
	}
	if len(opened) != 2 || opened[1].Language != locale.Arabic || opened[1].Orientation != "LR" {
		t.Fatalf("unexpected open options %+v", opened)
	}
}

func TestBatchCommand_LoadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.json")
	payload := `[{"industry":"Retail","response":{"success":true,"strategy":"Grow","workflow_diagram":"graph TD\nA-->B","strategy_type":"tax"}}]`
	if err := os.WriteFile(path, []byte(payload), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	items, err := LoadBatchFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(items) != 1 || items[0].Response.StrategyType != "tax" || items[0].Industry != "Retail" {
		t.Fatalf("unexpected items %+v", items)
	}

	results, err := NewBatchExportCommand(&stubService{}, nil).Run(context.Background(), path)
	if err != nil || len(results) != 1 {
		t.Fatalf("unexpected run %v %+v", err, results)
	}

	if _, err := NewBatchExportCommand(&stubService{}, nil).Run(context.Background(), ""); err == nil {
		t.Fatalf("expected loader error")
	}
	if _, err := LoadBatchFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected read error")
	}
}

func TestBatchCommand_CLIOptions(t *testing.T) {
	cmd := NewBatchExportCommand(&stubService{}, nil)
	opts := cmd.CLIOptions()
	if len(opts.Path) != 1 || opts.Path[0] != "batch" || opts.Group != "exports" {
		t.Fatalf("unexpected cli options %+v", opts)
	}
}
