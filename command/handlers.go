package command

import (
	"context"
	"time"

	gcmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-errors"

	"github.com/goliatone/go-workflow-export/diagram"
	"github.com/goliatone/go-workflow-export/document"
	"github.com/goliatone/go-workflow-export/export"
	"github.com/goliatone/go-workflow-export/strategy"
)

// DocumentService is the part of document.Service the handlers drive.
type DocumentService interface {
	Open(ctx context.Context, resp strategy.Response, opts document.OpenOptions) (*document.Workspace, error)
	Render(ctx context.Context, id string, theme diagram.Theme, orientation diagram.Orientation) (diagram.Diagram, error)
	Export(ctx context.Context, id string, opts document.ExportOptions) (export.ExportRecord, error)
	Close(id string) error
}

var _ DocumentService = (*document.Service)(nil)

func serviceRequired() error {
	return errors.New("document service is required", errors.CategoryInternal).
		WithTextCode("SERVICE_REQUIRED")
}

// OpenDocumentHandler opens documents.
type OpenDocumentHandler struct {
	Service DocumentService
}

func NewOpenDocumentHandler(svc DocumentService) *OpenDocumentHandler {
	return &OpenDocumentHandler{Service: svc}
}

func (h *OpenDocumentHandler) Execute(ctx context.Context, msg OpenDocument) error {
	if h == nil || h.Service == nil {
		return serviceRequired()
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	ws, err := h.Service.Open(ctx, msg.Response, msg.Options)
	if err != nil {
		return err
	}
	if msg.Result != nil {
		*msg.Result = ws.ID
	}
	if res := gcmd.ResultFromContext[string](ctx); res != nil {
		res.Store(ws.ID)
	}
	return nil
}

// RenderDiagramHandler re-renders diagrams.
type RenderDiagramHandler struct {
	Service DocumentService
}

func NewRenderDiagramHandler(svc DocumentService) *RenderDiagramHandler {
	return &RenderDiagramHandler{Service: svc}
}

func (h *RenderDiagramHandler) Execute(ctx context.Context, msg RenderDiagram) error {
	if h == nil || h.Service == nil {
		return serviceRequired()
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	var theme diagram.Theme
	if msg.Theme != "" {
		theme, _ = diagram.ParseTheme(msg.Theme)
	}
	var orientation diagram.Orientation
	if msg.Orientation != "" {
		orientation, _ = diagram.ParseOrientation(msg.Orientation)
	}
	d, err := h.Service.Render(ctx, msg.DocumentID, theme, orientation)
	if err != nil {
		return err
	}
	if msg.Result != nil {
		*msg.Result = d
	}
	if res := gcmd.ResultFromContext[diagram.Diagram](ctx); res != nil {
		res.Store(d)
	}
	return nil
}

// ExportDocumentHandler exports documents.
type ExportDocumentHandler struct {
	Service DocumentService
}

func NewExportDocumentHandler(svc DocumentService) *ExportDocumentHandler {
	return &ExportDocumentHandler{Service: svc}
}

func (h *ExportDocumentHandler) Execute(ctx context.Context, msg ExportDocument) error {
	if h == nil || h.Service == nil {
		return serviceRequired()
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	record, err := h.Service.Export(ctx, msg.DocumentID, msg.Options)
	if err != nil {
		return err
	}
	if msg.Result != nil {
		*msg.Result = record
	}
	if res := gcmd.ResultFromContext[export.ExportRecord](ctx); res != nil {
		res.Store(record)
	}
	return nil
}

// CloseDocumentHandler closes documents.
type CloseDocumentHandler struct {
	Service DocumentService
}

func NewCloseDocumentHandler(svc DocumentService) *CloseDocumentHandler {
	return &CloseDocumentHandler{Service: svc}
}

func (h *CloseDocumentHandler) Execute(ctx context.Context, msg CloseDocument) error {
	if h == nil || h.Service == nil {
		return serviceRequired()
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	return h.Service.Close(msg.DocumentID)
}

// Cleaner removes expired exports.
type Cleaner interface {
	Cleanup(ctx context.Context, now time.Time) (int, error)
}

var _ Cleaner = (*document.Service)(nil)

// CleanupExportsHandler removes expired exports.
type CleanupExportsHandler struct {
	Service Cleaner
	Config  gcmd.HandlerConfig
	Clock   func() time.Time
}

func NewCleanupExportsHandler(svc Cleaner) *CleanupExportsHandler {
	return &CleanupExportsHandler{
		Service: svc,
		Config:  gcmd.HandlerConfig{Expression: "0 * * * *"},
	}
}

func (h *CleanupExportsHandler) Execute(ctx context.Context, msg CleanupExports) error {
	if h == nil || h.Service == nil {
		return serviceRequired()
	}
	now := msg.Now
	if now.IsZero() && h.Clock != nil {
		now = h.Clock()
	}
	count, err := h.Service.Cleanup(ctx, now)
	if err != nil {
		return err
	}
	if msg.Result != nil {
		*msg.Result = count
	}
	if res := gcmd.ResultFromContext[int](ctx); res != nil {
		res.Store(count)
	}
	return nil
}

// CronHandler runs a cleanup with a background context.
func (h *CleanupExportsHandler) CronHandler() func() error {
	return func() error {
		return h.Execute(context.Background(), CleanupExports{})
	}
}

func (h *CleanupExportsHandler) CronOptions() gcmd.HandlerConfig {
	if h == nil {
		return gcmd.HandlerConfig{}
	}
	return h.Config
}

// CLIOptions describes cleanup CLI metadata.
func (h *CleanupExportsHandler) CLIOptions() gcmd.CLIConfig {
	return gcmd.CLIConfig{
		Path:        []string{"cleanup"},
		Description: "Remove expired export artifacts",
		Group:       "exports",
	}
}
