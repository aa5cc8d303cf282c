package exportrouter

import (
	"net/http"
	"time"

	errorslib "github.com/goliatone/go-errors"

	"github.com/goliatone/go-workflow-export/diagram"
	"github.com/goliatone/go-workflow-export/export"
	"github.com/goliatone/go-workflow-export/locale"
	"github.com/goliatone/go-workflow-export/strategy"
)

// ErrorResponse describes JSON error responses.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody contains error details.
type ErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// TypeResponse is one strategy type in the caller's language.
type TypeResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func typesResponse(lang locale.Language) []TypeResponse {
	types := strategy.Types()
	out := make([]TypeResponse, 0, len(types))
	for _, t := range types {
		out = append(out, TypeResponse{
			ID:          t.ID,
			Name:        t.DisplayName(lang),
			Description: t.Description.In(lang),
		})
	}
	return out
}

// DiagramResponse describes a committed render.
type DiagramResponse struct {
	State       string `json:"state"`
	Theme       string `json:"theme"`
	Orientation string `json:"orientation"`
	Generation  uint64 `json:"generation"`
	Markup      string `json:"markup,omitempty"`
	Error       string `json:"error,omitempty"`
}

func diagramResponse(d diagram.Diagram) DiagramResponse {
	res := DiagramResponse{
		State:       string(d.State),
		Theme:       string(d.Theme),
		Orientation: string(d.Source.Orientation),
		Generation:  d.Generation,
		Markup:      d.Markup,
	}
	if d.Failure != nil {
		res.Error = d.Failure.Error()
	}
	return res
}

// RecordResponse describes one export attempt.
type RecordResponse struct {
	ID          string    `json:"id"`
	DocumentID  string    `json:"document_id"`
	State       string    `json:"state"`
	Filename    string    `json:"filename,omitempty"`
	Pages       int       `json:"pages,omitempty"`
	Size        int64     `json:"size,omitempty"`
	ErrorKind   string    `json:"error_kind,omitempty"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
	StatusURL   string    `json:"status_url"`
	DownloadURL string    `json:"download_url,omitempty"`
}

func (h *Handler) recordResponse(record export.ExportRecord) RecordResponse {
	res := RecordResponse{
		ID:          record.ID,
		DocumentID:  record.DocumentID,
		State:       string(record.State),
		Filename:    record.Filename,
		Pages:       record.Artifact.Meta.Pages,
		Size:        record.Artifact.Meta.Size,
		ErrorKind:   string(record.ErrorKind),
		Error:       record.Error,
		CreatedAt:   record.CreatedAt,
		CompletedAt: record.CompletedAt,
		StatusURL:   h.basePath() + "/exports/" + record.ID,
	}
	if record.State == export.StateCompleted {
		res.DownloadURL = res.StatusURL + "/download"
	}
	return res
}

// WriteError maps err onto a status code and a JSON error body.
func WriteError(res Response, err error) {
	if err == nil {
		res.WriteHeader(http.StatusNoContent)
		return
	}
	ge := export.AsGoError(err)
	payload := ErrorResponse{
		Error: ErrorBody{
			Message: ge.Message,
			Code:    ge.TextCode,
		},
	}
	_ = res.WriteJSON(statusForError(ge), payload)
}

func statusForError(err *errorslib.Error) int {
	if err == nil {
		return http.StatusInternalServerError
	}
	switch err.TextCode {
	case "not_implemented":
		return http.StatusNotImplemented
	case "conflict":
		return http.StatusConflict
	case "timeout":
		return http.StatusGatewayTimeout
	case "canceled":
		return http.StatusRequestTimeout
	case "render_failed":
		return http.StatusUnprocessableEntity
	case "export_failed":
		return http.StatusBadGateway
	}
	switch err.Category {
	case errorslib.CategoryValidation:
		return http.StatusBadRequest
	case errorslib.CategoryAuthz:
		return http.StatusForbidden
	case errorslib.CategoryNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
