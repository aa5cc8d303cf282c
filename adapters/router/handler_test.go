package exportrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-router"

	"github.com/goliatone/go-workflow-export/diagram"
	"github.com/goliatone/go-workflow-export/document"
	"github.com/goliatone/go-workflow-export/dom"
	"github.com/goliatone/go-workflow-export/export"
)

type storingExporter struct {
	store export.ArtifactStore
}

func (s storingExporter) ToPDF(ctx context.Context, doc *dom.Element, filename string, geometry export.Geometry) (export.ArtifactRef, error) {
	return s.store.Put(ctx, "exports/"+filename, bytes.NewBufferString("%PDF-1.7 "+doc.TextContent()), export.ArtifactMeta{
		ContentType: "application/pdf",
		Filename:    filename,
		Pages:       1,
	})
}

func newTestService() *document.Service {
	engine := diagram.EngineFunc(func(ctx context.Context, src diagram.Source, cfg diagram.LayoutConfig) ([]byte, error) {
		if strings.Contains(src.Text, "broken") {
			return nil, export.NewError(export.KindRender, "parse error on line 1", nil)
		}
		return []byte(`<svg width="200" height="100"><rect fill="#ffffff"/></svg>`), nil
	})
	store := export.NewMemoryStore()
	composer := document.NewComposer(storingExporter{store: store})
	composer.RenderTimeout = 20 * time.Millisecond
	return &document.Service{
		Renderer: diagram.NewRenderer(engine),
		Composer: composer,
		Tracker:  export.NewMemoryTracker(),
		Store:    store,
	}
}

const openBody = `{
  "industry": "Retail",
  "theme": "dark",
  "response": {
    "success": true,
    "strategy": "Grow the loyalty program.",
    "kpis": ["Repeat purchase rate"],
    "workflow_diagram": "graph TD\n  A[Start] --> B[Plan]",
    "strategy_type": "marketing"
  }
}`

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(&out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func openDocument(t *testing.T, h *Handler) string {
	t.Helper()
	c := newTestContext(http.MethodPost, "/api/documents", []byte(openBody), nil, nil)
	if err := h.Open(c); err != nil {
		t.Fatalf("open: %v", err)
	}
	if c.recorder.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", c.recorder.Code, c.recorder.Body.String())
	}
	view := decodeJSON[map[string]any](t, c.recorder)
	id, _ := view["id"].(string)
	if id == "" {
		t.Fatalf("missing document id in %+v", view)
	}
	if c.recorder.Header().Get("Location") != "/api/documents/"+id {
		t.Fatalf("unexpected location %q", c.recorder.Header().Get("Location"))
	}
	return id
}

func TestRoutes_OpenRenderExportDownload(t *testing.T) {
	h := NewHandler(Config{Service: newTestService()})
	id := openDocument(t, h)

	view := newTestContext(http.MethodGet, "/api/documents/"+id, nil, nil, map[string]string{"html": "1"})
	view.params["id"] = id
	_ = h.View(view)
	got := decodeJSON[map[string]any](t, view.recorder)
	if got["theme"] != "dark" || got["render_state"] != "rendered" || got["direction"] != "ltr" {
		t.Fatalf("unexpected view %+v", got)
	}
	if html, _ := got["html"].(string); !strings.Contains(html, "Grow the loyalty program.") {
		t.Fatalf("expected document html, got %q", html)
	}

	render := newTestContext(http.MethodPost, "/api/documents/"+id+"/render", []byte(`{"theme":"light","orientation":"LR"}`), nil, nil)
	render.params["id"] = id
	_ = h.Render(render)
	rendered := decodeJSON[DiagramResponse](t, render.recorder)
	if rendered.State != "rendered" || rendered.Theme != "light" || rendered.Orientation != "LR" || rendered.Generation < 2 {
		t.Fatalf("unexpected render %+v", rendered)
	}

	exp := newTestContext(http.MethodPost, "/api/documents/"+id+"/export", []byte(`{"page_size":"a4"}`), nil, nil)
	exp.params["id"] = id
	_ = h.Export(exp)
	if exp.recorder.Code != http.StatusOK {
		t.Fatalf("export failed %d: %s", exp.recorder.Code, exp.recorder.Body.String())
	}
	record := decodeJSON[RecordResponse](t, exp.recorder)
	if record.State != "completed" || record.Filename != "Strategy_Marketing_Retail.pdf" {
		t.Fatalf("unexpected record %+v", record)
	}
	if record.DownloadURL != "/api/exports/"+record.ID+"/download" {
		t.Fatalf("unexpected download url %q", record.DownloadURL)
	}

	status := newTestContext(http.MethodGet, record.StatusURL, nil, nil, nil)
	status.params["id"] = record.ID
	_ = h.Status(status)
	if decodeJSON[RecordResponse](t, status.recorder).State != "completed" {
		t.Fatalf("unexpected status %s", status.recorder.Body.String())
	}

	history := newTestContext(http.MethodGet, "/api/exports", nil, nil, map[string]string{"document_id": id, "limit": "5"})
	_ = h.History(history)
	if records := decodeJSON[[]RecordResponse](t, history.recorder); len(records) != 1 {
		t.Fatalf("unexpected history %+v", records)
	}

	download := newTestHTTPContext(http.MethodGet, record.DownloadURL, nil, nil, nil)
	download.params["id"] = record.ID
	_ = h.Download(download)
	if download.recorder.Code != http.StatusOK {
		t.Fatalf("download failed %d", download.recorder.Code)
	}
	if ct := download.recorder.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cd := download.recorder.Header().Get("Content-Disposition"); cd != `attachment; filename="Strategy_Marketing_Retail.pdf"` {
		t.Fatalf("unexpected disposition %q", cd)
	}
	if download.recorder.Header().Get("X-Export-Id") != record.ID {
		t.Fatalf("missing export id header")
	}
	if !strings.HasPrefix(download.recorder.Body.String(), "%PDF-1.7") {
		t.Fatalf("unexpected artifact %q", download.recorder.Body.String())
	}

	closeCtx := newTestContext(http.MethodDelete, "/api/documents/"+id, nil, nil, nil)
	closeCtx.params["id"] = id
	_ = h.Close(closeCtx)
	if closeCtx.recorder.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", closeCtx.recorder.Code)
	}
}

func TestDownload_StreamsWithoutHTTPContext(t *testing.T) {
	h := NewHandler(Config{Service: newTestService()})
	id := openDocument(t, h)

	exp := newTestContext(http.MethodPost, "/api/documents/"+id+"/export", nil, nil, nil)
	exp.params["id"] = id
	_ = h.Export(exp)
	record := decodeJSON[RecordResponse](t, exp.recorder)

	download := newTestContext(http.MethodGet, record.DownloadURL, nil, nil, nil)
	download.params["id"] = record.ID
	_ = h.Download(download)
	if !strings.Contains(download.recorder.Body.String(), "Grow the loyalty program.") {
		t.Fatalf("unexpected body %q", download.recorder.Body.String())
	}
	if download.recorder.Header().Get("Content-Length") == "" {
		t.Fatalf("expected content length")
	}
}

func TestRoutes_ErrorStatus(t *testing.T) {
	h := NewHandler(Config{Service: newTestService()})
	id := openDocument(t, h)

	cases := []struct {
		name   string
		call   func(router.Context) error
		ctx    *testContext
		status int
		code   string
	}{
		{
			name:   "missing document",
			call:   h.View,
			ctx:    withParam(newTestContext(http.MethodGet, "/api/documents/nope", nil, nil, nil), "nope"),
			status: http.StatusNotFound,
			code:   "not_found",
		},
		{
			name:   "unknown theme",
			call:   h.Open,
			ctx:    newTestContext(http.MethodPost, "/api/documents", []byte(`{"theme":"sepia"}`), nil, nil),
			status: http.StatusBadRequest,
			code:   "validation",
		},
		{
			name:   "malformed body",
			call:   h.Render,
			ctx:    withParam(newTestContext(http.MethodPost, "/", []byte(`{`), nil, nil), id),
			status: http.StatusBadRequest,
			code:   "validation",
		},
		{
			name:   "unsuccessful response",
			call:   h.Open,
			ctx:    newTestContext(http.MethodPost, "/api/documents", []byte(`{"response":{"success":false}}`), nil, nil),
			status: http.StatusBadRequest,
			code:   "RESPONSE_UNSUCCESSFUL",
		},
		{
			name:   "bad limit",
			call:   h.History,
			ctx:    newTestContext(http.MethodGet, "/api/exports", nil, nil, map[string]string{"limit": "x"}),
			status: http.StatusBadRequest,
			code:   "validation",
		},
		{
			name:   "missing export",
			call:   h.Download,
			ctx:    withParam(newTestContext(http.MethodGet, "/", nil, nil, nil), "exp-404"),
			status: http.StatusNotFound,
			code:   "not_found",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_ = tc.call(tc.ctx)
			if tc.ctx.recorder.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, tc.ctx.recorder.Code, tc.ctx.recorder.Body.String())
			}
			payload := decodeJSON[ErrorResponse](t, tc.ctx.recorder)
			if tc.code != "" && payload.Error.Code != tc.code {
				t.Fatalf("expected code %q, got %+v", tc.code, payload)
			}
		})
	}
}

func TestStatusForError(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{export.NewError(export.KindValidation, "bad", nil), http.StatusBadRequest},
		{export.NewError(export.KindNotFound, "gone", nil), http.StatusNotFound},
		{export.NewError(export.KindConflict, "busy", nil), http.StatusConflict},
		{export.NewError(export.KindRender, "syntax", nil), http.StatusUnprocessableEntity},
		{export.NewError(export.KindExport, "chromium", nil), http.StatusBadGateway},
		{export.NewError(export.KindNotImpl, "no tracker", nil), http.StatusNotImplemented},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{context.Canceled, http.StatusRequestTimeout},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusForError(export.AsGoError(tc.err)); got != tc.status {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.status, got)
		}
	}
}

func TestTypes_Localized(t *testing.T) {
	h := NewHandler(Config{})
	c := newTestContext(http.MethodGet, "/api/strategy-types", nil, nil, map[string]string{"lang": "ar"})
	_ = h.Types(c)
	types := decodeJSON[[]TypeResponse](t, c.recorder)
	if len(types) != 5 {
		t.Fatalf("expected five strategy types, got %d", len(types))
	}
	for _, typ := range types {
		if typ.ID == "tax" && typ.Name == "Tax" {
			t.Fatalf("expected arabic names, got %+v", typ)
		}
	}
}

func TestNilService(t *testing.T) {
	h := NewHandler(Config{})
	c := newTestContext(http.MethodGet, "/api/exports", nil, nil, nil)
	_ = h.History(c)
	if c.recorder.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", c.recorder.Code)
	}
}

type recordingRegistrar struct {
	routes []string
}

func (r *recordingRegistrar) add(method, path string) router.RouteInfo {
	r.routes = append(r.routes, method+" "+path)
	var info router.RouteInfo
	return info
}

func (r *recordingRegistrar) Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo {
	return r.add(http.MethodGet, path)
}

func (r *recordingRegistrar) Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo {
	return r.add(http.MethodPost, path)
}

func (r *recordingRegistrar) Delete(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo {
	return r.add(http.MethodDelete, path)
}

func TestRegisterRoutes(t *testing.T) {
	reg := &recordingRegistrar{}
	NewHandler(Config{Service: newTestService(), BasePath: "/v1/"}).RegisterRoutes(reg)
	joined := strings.Join(reg.routes, "\n")
	for _, want := range []string{
		"GET /v1/strategy-types",
		"POST /v1/documents",
		"POST /v1/documents/:id/export",
		"DELETE /v1/documents/:id",
		"GET /v1/exports/:id/download",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("missing route %q in %v", want, reg.routes)
		}
	}
}

func withParam(c *testContext, id string) *testContext {
	c.params["id"] = id
	return c
}

type unimplementedContext interface{ router.Context }

// testContext implements the router.Context methods the handlers call.
// Anything else goes to the nil embedded interface and panics.
type testContext struct {
	unimplementedContext

	body          []byte
	query         map[string]string
	params        map[string]string
	ctx           context.Context
	recorder      *httptest.ResponseRecorder
	statusWritten bool
}

func newTestContext(method, path string, body []byte, headers map[string]string, query map[string]string) *testContext {
	if query == nil {
		query = make(map[string]string)
	}
	return &testContext{
		body:     body,
		query:    query,
		params:   make(map[string]string),
		ctx:      context.Background(),
		recorder: httptest.NewRecorder(),
	}
}

func (c *testContext) Context() context.Context { return c.ctx }

func (c *testContext) Param(name string, defaultValue ...string) string {
	if val, ok := c.params[name]; ok {
		return val
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (c *testContext) Query(name string, defaultValue ...string) string {
	if val, ok := c.query[name]; ok {
		return val
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (c *testContext) Body() []byte { return c.body }

func (c *testContext) Status(code int) router.Context {
	c.writeHeader(code)
	return c
}

func (c *testContext) Send(body []byte) error {
	if !c.statusWritten {
		c.writeHeader(http.StatusOK)
	}
	_, err := c.recorder.Write(body)
	return err
}

func (c *testContext) JSON(code int, v any) error {
	c.recorder.Header().Set("Content-Type", "application/json")
	c.writeHeader(code)
	return json.NewEncoder(c.recorder).Encode(v)
}

func (c *testContext) SendStream(r io.Reader) error {
	if !c.statusWritten {
		c.writeHeader(http.StatusOK)
	}
	_, err := io.Copy(c.recorder, r)
	return err
}

func (c *testContext) SetHeader(key, val string) router.Context {
	c.recorder.Header().Set(key, val)
	return c
}

func (c *testContext) writeHeader(code int) {
	if c.statusWritten {
		return
	}
	c.statusWritten = true
	c.recorder.WriteHeader(code)
}

type testHTTPContext struct {
	*testContext
	req *http.Request
}

func newTestHTTPContext(method, path string, body []byte, headers map[string]string, query map[string]string) *testHTTPContext {
	base := newTestContext(method, path, body, headers, query)
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	base.ctx = req.Context()
	return &testHTTPContext{testContext: base, req: req}
}

func (c *testHTTPContext) Request() *http.Request { return c.req }

func (c *testHTTPContext) Response() http.ResponseWriter { return c.recorder }

var _ router.Context = (*testContext)(nil)
var _ router.HTTPContext = (*testHTTPContext)(nil)
