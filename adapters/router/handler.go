package exportrouter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/goliatone/go-router"

	"github.com/goliatone/go-workflow-export/command"
	"github.com/goliatone/go-workflow-export/diagram"
	"github.com/goliatone/go-workflow-export/document"
	"github.com/goliatone/go-workflow-export/export"
	"github.com/goliatone/go-workflow-export/locale"
	"github.com/goliatone/go-workflow-export/query"
)

const defaultBasePath = "/api"

// Service is everything the routes need from document.Service.
type Service interface {
	command.DocumentService
	query.HistoryService
	query.WorkspaceGetter
	Download(ctx context.Context, exportID string) (io.ReadCloser, export.ArtifactMeta, error)
}

var _ Service = (*document.Service)(nil)

// Config configures the go-router adapter.
type Config struct {
	Service  Service
	BasePath string
	Logger   export.Logger
}

// Handler exposes document and export routes for go-router.
type Handler struct {
	service  Service
	base     string
	logger   export.Logger
	open     *command.OpenDocumentHandler
	render   *command.RenderDiagramHandler
	export   *command.ExportDocumentHandler
	close    *command.CloseDocumentHandler
	status   *query.ExportStatusHandler
	history  *query.ExportHistoryHandler
	document *query.DocumentViewHandler
}

// NewHandler creates a go-router handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = export.NopLogger{}
	}
	return &Handler{
		service:  cfg.Service,
		base:     strings.TrimRight(cfg.BasePath, "/"),
		logger:   logger,
		open:     command.NewOpenDocumentHandler(cfg.Service),
		render:   command.NewRenderDiagramHandler(cfg.Service),
		export:   command.NewExportDocumentHandler(cfg.Service),
		close:    command.NewCloseDocumentHandler(cfg.Service),
		status:   query.NewExportStatusHandler(cfg.Service),
		history:  query.NewExportHistoryHandler(cfg.Service),
		document: query.NewDocumentViewHandler(cfg.Service),
	}
}

// RegisterRoutes registers routes on a compatible go-router router.
func (h *Handler) RegisterRoutes(router any) {
	r, ok := router.(routeRegistrar)
	if !ok {
		return
	}
	base := h.basePath()

	r.Get(base+"/strategy-types", h.Types)
	r.Post(base+"/documents", h.Open)
	r.Get(base+"/documents/:id", h.View)
	r.Post(base+"/documents/:id/render", h.Render)
	r.Post(base+"/documents/:id/export", h.Export)
	r.Delete(base+"/documents/:id", h.Close)
	r.Get(base+"/exports", h.History)
	r.Get(base+"/exports/:id", h.Status)
	r.Get(base+"/exports/:id/download", h.Download)
}

// Types lists the strategy types in the language of the lang query.
func (h *Handler) Types(c router.Context) error {
	if c == nil {
		return nil
	}
	lang := locale.Parse(c.Query("lang"))
	return routerResponse{ctx: c}.WriteJSON(http.StatusOK, typesResponse(lang))
}

// Open creates a document and renders its diagram.
func (h *Handler) Open(c router.Context) error {
	if c == nil {
		return nil
	}
	res := routerResponse{ctx: c}
	if !h.ready(res) {
		return nil
	}
	var req OpenRequest
	if err := decodeBody(c, &req); err != nil {
		WriteError(res, err)
		return nil
	}
	opts, err := req.options()
	if err != nil {
		WriteError(res, err)
		return nil
	}

	var id string
	ctx := c.Context()
	if err := h.open.Execute(ctx, command.OpenDocument{Response: req.Response, Options: opts, Result: &id}); err != nil {
		WriteError(res, err)
		return nil
	}
	view, err := h.document.Query(ctx, query.DocumentView{DocumentID: id})
	if err != nil {
		WriteError(res, err)
		return nil
	}
	res.SetHeader("Location", h.basePath()+"/documents/"+id)
	return res.WriteJSON(http.StatusCreated, view)
}

// View describes an open document. html=1 includes the markup.
func (h *Handler) View(c router.Context) error {
	if c == nil {
		return nil
	}
	res := routerResponse{ctx: c}
	if !h.ready(res) {
		return nil
	}
	includeHTML, _ := strconv.ParseBool(c.Query("html", "false"))
	view, err := h.document.Query(c.Context(), query.DocumentView{
		DocumentID:  c.Param("id"),
		IncludeHTML: includeHTML,
	})
	if err != nil {
		WriteError(res, err)
		return nil
	}
	return res.WriteJSON(http.StatusOK, view)
}

// Render re-renders the diagram of a document.
func (h *Handler) Render(c router.Context) error {
	if c == nil {
		return nil
	}
	res := routerResponse{ctx: c}
	if !h.ready(res) {
		return nil
	}
	var req RenderRequest
	if err := decodeBody(c, &req); err != nil {
		WriteError(res, err)
		return nil
	}
	var d diagram.Diagram
	msg := command.RenderDiagram{
		DocumentID:  c.Param("id"),
		Theme:       req.Theme,
		Orientation: req.Orientation,
		Result:      &d,
	}
	if err := h.render.Execute(c.Context(), msg); err != nil {
		WriteError(res, err)
		return nil
	}
	return res.WriteJSON(http.StatusOK, diagramResponse(d))
}

// Export prints a document and records the attempt.
func (h *Handler) Export(c router.Context) error {
	if c == nil {
		return nil
	}
	res := routerResponse{ctx: c}
	if !h.ready(res) {
		return nil
	}
	var req ExportRequest
	if err := decodeBody(c, &req); err != nil {
		WriteError(res, err)
		return nil
	}
	var record export.ExportRecord
	msg := command.ExportDocument{
		DocumentID: c.Param("id"),
		Options:    req.options(),
		Result:     &record,
	}
	if err := h.export.Execute(c.Context(), msg); err != nil {
		h.logger.Errorf("export document %s: %v", msg.DocumentID, err)
		WriteError(res, err)
		return nil
	}
	return res.WriteJSON(http.StatusOK, h.recordResponse(record))
}

// Close discards an open document.
func (h *Handler) Close(c router.Context) error {
	if c == nil {
		return nil
	}
	res := routerResponse{ctx: c}
	if !h.ready(res) {
		return nil
	}
	if err := h.close.Execute(c.Context(), command.CloseDocument{DocumentID: c.Param("id")}); err != nil {
		WriteError(res, err)
		return nil
	}
	res.WriteHeader(http.StatusNoContent)
	return nil
}

// History lists export records.
func (h *Handler) History(c router.Context) error {
	if c == nil {
		return nil
	}
	res := routerResponse{ctx: c}
	if !h.ready(res) {
		return nil
	}
	filter, err := parseFilter(c)
	if err != nil {
		WriteError(res, err)
		return nil
	}
	records, err := h.history.Query(c.Context(), query.ExportHistory{Filter: filter})
	if err != nil {
		WriteError(res, err)
		return nil
	}
	out := make([]RecordResponse, 0, len(records))
	for _, record := range records {
		out = append(out, h.recordResponse(record))
	}
	return res.WriteJSON(http.StatusOK, out)
}

// Status returns one export record.
func (h *Handler) Status(c router.Context) error {
	if c == nil {
		return nil
	}
	res := routerResponse{ctx: c}
	if !h.ready(res) {
		return nil
	}
	record, err := h.status.Query(c.Context(), query.ExportStatus{ExportID: c.Param("id")})
	if err != nil {
		WriteError(res, err)
		return nil
	}
	return res.WriteJSON(http.StatusOK, h.recordResponse(record))
}

// Download streams the PDF of a completed export.
func (h *Handler) Download(c router.Context) error {
	if c == nil {
		return nil
	}
	res := routerResponse{ctx: c}
	if !h.ready(res) {
		return nil
	}
	id := c.Param("id")
	rc, meta, err := h.service.Download(c.Context(), id)
	if err != nil {
		WriteError(res, err)
		return nil
	}
	defer rc.Close()

	contentType := meta.ContentType
	if contentType == "" {
		contentType = "application/pdf"
	}
	filename := meta.Filename
	if filename == "" {
		filename = id + ".pdf"
	}
	res.SetHeader("Content-Type", contentType)
	res.SetHeader("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	res.SetHeader("X-Export-Id", id)
	if meta.Size > 0 {
		res.SetHeader("Content-Length", strconv.FormatInt(meta.Size, 10))
	}
	if err := stream(c, res, rc); err != nil {
		h.logger.Errorf("download export %s: %v", id, err)
	}
	return nil
}

func (h *Handler) ready(res Response) bool {
	if h == nil || h.service == nil {
		WriteError(res, export.NewError(export.KindInternal, "handler is nil", nil))
		return false
	}
	return true
}

func (h *Handler) basePath() string {
	if h == nil || h.base == "" {
		return defaultBasePath
	}
	return h.base
}

type routeRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Delete(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}
