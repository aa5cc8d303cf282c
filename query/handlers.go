package query

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"

	"github.com/goliatone/go-workflow-export/document"
	"github.com/goliatone/go-workflow-export/export"
)

// HistoryService is the read side of document.Service.
type HistoryService interface {
	Status(ctx context.Context, exportID string) (export.ExportRecord, error)
	History(ctx context.Context, filter export.HistoryFilter) ([]export.ExportRecord, error)
}

// WorkspaceGetter finds open documents.
type WorkspaceGetter interface {
	Get(id string) (*document.Workspace, error)
}

func serviceRequired() error {
	return errors.New("document service is required", errors.CategoryInternal).
		WithTextCode("SERVICE_REQUIRED")
}

// ExportStatusHandler returns a single export record.
type ExportStatusHandler struct {
	Service HistoryService
}

func NewExportStatusHandler(svc HistoryService) *ExportStatusHandler {
	return &ExportStatusHandler{Service: svc}
}

func (h *ExportStatusHandler) Query(ctx context.Context, msg ExportStatus) (export.ExportRecord, error) {
	if h == nil || h.Service == nil {
		return export.ExportRecord{}, serviceRequired()
	}
	if err := msg.Validate(); err != nil {
		return export.ExportRecord{}, err
	}
	return h.Service.Status(ctx, msg.ExportID)
}

// ExportHistoryHandler returns export history.
type ExportHistoryHandler struct {
	Service HistoryService
}

func NewExportHistoryHandler(svc HistoryService) *ExportHistoryHandler {
	return &ExportHistoryHandler{Service: svc}
}

func (h *ExportHistoryHandler) Query(ctx context.Context, msg ExportHistory) ([]export.ExportRecord, error) {
	if h == nil || h.Service == nil {
		return nil, serviceRequired()
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return h.Service.History(ctx, msg.Filter)
}

// View is the state of an open document.
type View struct {
	ID           string    `json:"id"`
	StrategyType string    `json:"strategy_type,omitempty"`
	Industry     string    `json:"industry,omitempty"`
	Language     string    `json:"language"`
	Direction    string    `json:"direction"`
	Theme        string    `json:"theme"`
	Orientation  string    `json:"orientation"`
	RenderState  string    `json:"render_state"`
	Generation   uint64    `json:"generation"`
	Created      time.Time `json:"created"`
	HTML         string    `json:"html,omitempty"`
}

// DocumentViewHandler describes an open document.
type DocumentViewHandler struct {
	Workspaces WorkspaceGetter
}

func NewDocumentViewHandler(ws WorkspaceGetter) *DocumentViewHandler {
	return &DocumentViewHandler{Workspaces: ws}
}

func (h *DocumentViewHandler) Query(ctx context.Context, msg DocumentView) (View, error) {
	if h == nil || h.Workspaces == nil {
		return View{}, serviceRequired()
	}
	if err := msg.Validate(); err != nil {
		return View{}, err
	}
	if err := ctx.Err(); err != nil {
		return View{}, err
	}
	ws, err := h.Workspaces.Get(msg.DocumentID)
	if err != nil {
		return View{}, err
	}
	theme, orientation := ws.View()
	d := ws.Diagram()
	view := View{
		ID:           ws.ID,
		StrategyType: ws.Response.StrategyType,
		Industry:     ws.Industry,
		Language:     string(ws.Language),
		Direction:    ws.Language.Direction(),
		Theme:        string(theme),
		Orientation:  string(orientation),
		RenderState:  string(d.State),
		Generation:   d.Generation,
		Created:      ws.Created,
	}
	if msg.IncludeHTML {
		view.HTML = ws.HTML()
	}
	return view, nil
}
