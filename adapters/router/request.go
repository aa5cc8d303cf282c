package exportrouter

import (
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-router"

	"github.com/goliatone/go-workflow-export/diagram"
	"github.com/goliatone/go-workflow-export/document"
	"github.com/goliatone/go-workflow-export/export"
	"github.com/goliatone/go-workflow-export/locale"
	"github.com/goliatone/go-workflow-export/strategy"
)

// OpenRequest opens a document from an upstream strategy response.
type OpenRequest struct {
	Response    strategy.Response `json:"response"`
	Industry    string            `json:"industry"`
	Language    string            `json:"language,omitempty"`
	Theme       string            `json:"theme,omitempty"`
	Orientation string            `json:"orientation,omitempty"`
}

func (req OpenRequest) options() (document.OpenOptions, error) {
	theme, err := diagram.ParseTheme(req.Theme)
	if err != nil {
		return document.OpenOptions{}, export.NewError(export.KindValidation, err.Error(), nil)
	}
	opts := document.OpenOptions{Theme: theme, Industry: strings.TrimSpace(req.Industry)}
	if req.Orientation != "" {
		o, err := diagram.ParseOrientation(req.Orientation)
		if err != nil {
			return document.OpenOptions{}, export.NewError(export.KindValidation, err.Error(), nil)
		}
		opts.Orientation = o
	}
	if req.Language != "" {
		opts.Language = locale.Parse(req.Language)
	}
	return opts, nil
}

// RenderRequest switches the theme or layout direction of a document.
type RenderRequest struct {
	Theme       string `json:"theme,omitempty"`
	Orientation string `json:"orientation,omitempty"`
}

// ExportRequest overrides page geometry for one export.
type ExportRequest struct {
	PageSize         string  `json:"page_size,omitempty"`
	Landscape        bool    `json:"landscape,omitempty"`
	Margin           string  `json:"margin,omitempty"`
	Scale            float64 `json:"scale,omitempty"`
	DPI              int     `json:"dpi,omitempty"`
	FilenameTemplate string  `json:"filename_template,omitempty"`
}

func (req ExportRequest) options() document.ExportOptions {
	return document.ExportOptions{
		Geometry: export.Geometry{
			PageSize:     strings.ToUpper(strings.TrimSpace(req.PageSize)),
			Landscape:    req.Landscape,
			MarginTop:    req.Margin,
			MarginBottom: req.Margin,
			MarginLeft:   req.Margin,
			MarginRight:  req.Margin,
			Scale:        req.Scale,
			DPI:          req.DPI,
		},
		FilenameTemplate: req.FilenameTemplate,
	}
}

func parseFilter(c router.Context) (export.HistoryFilter, error) {
	filter := export.HistoryFilter{
		DocumentID: c.Query("document_id"),
		State:      export.ExportState(c.Query("state")),
	}
	if since := c.Query("since"); since != "" {
		ts, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return export.HistoryFilter{}, export.NewError(export.KindValidation, "invalid since timestamp", err)
		}
		filter.Since = ts
	}
	if until := c.Query("until"); until != "" {
		ts, err := time.Parse(time.RFC3339, until)
		if err != nil {
			return export.HistoryFilter{}, export.NewError(export.KindValidation, "invalid until timestamp", err)
		}
		filter.Until = ts
	}
	if limit := c.Query("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			return export.HistoryFilter{}, export.NewError(export.KindValidation, "invalid limit", err)
		}
		filter.Limit = n
	}
	return filter, nil
}
