// Package exportotel records render and export events with OpenTelemetry.
package exportotel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/goliatone/go-workflow-export/export"
)

// ScopeName is the instrumentation scope of the hook.
const ScopeName = "github.com/goliatone/go-workflow-export"

// Hook implements export.MetricsHook on top of an OpenTelemetry meter.
type Hook struct {
	renders       metric.Int64Counter
	renderLatency metric.Float64Histogram
	exports       metric.Int64Counter
	exportLatency metric.Float64Histogram
	exportBytes   metric.Int64Histogram
	exportPages   metric.Int64Histogram
	rejected      metric.Int64Counter
}

// NewHook builds the instruments on the global meter provider.
func NewHook() (*Hook, error) {
	return NewHookWithMeter(otel.Meter(ScopeName))
}

// NewHookWithMeter builds the instruments on meter.
func NewHookWithMeter(meter metric.Meter) (*Hook, error) {
	renders, err := meter.Int64Counter("workflowpdf.diagram.renders",
		metric.WithDescription("Number of committed diagram renders"),
	)
	if err != nil {
		return nil, err
	}
	renderLatency, err := meter.Float64Histogram("workflowpdf.diagram.render_latency_ms",
		metric.WithDescription("Diagram layout latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}
	exports, err := meter.Int64Counter("workflowpdf.document.exports",
		metric.WithDescription("Number of finished document exports"),
	)
	if err != nil {
		return nil, err
	}
	exportLatency, err := meter.Float64Histogram("workflowpdf.document.export_latency_ms",
		metric.WithDescription("Document export latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}
	exportBytes, err := meter.Int64Histogram("workflowpdf.document.export_size_bytes",
		metric.WithDescription("Exported PDF size in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}
	exportPages, err := meter.Int64Histogram("workflowpdf.document.export_pages",
		metric.WithDescription("Exported PDF page count"),
	)
	if err != nil {
		return nil, err
	}
	rejected, err := meter.Int64Counter("workflowpdf.document.exports_rejected",
		metric.WithDescription("Exports rejected because another export was in flight"),
	)
	if err != nil {
		return nil, err
	}

	return &Hook{
		renders:       renders,
		renderLatency: renderLatency,
		exports:       exports,
		exportLatency: exportLatency,
		exportBytes:   exportBytes,
		exportPages:   exportPages,
		rejected:      rejected,
	}, nil
}

// Emit records evt. Unknown event names are ignored.
func (h *Hook) Emit(ctx context.Context, evt export.MetricsEvent) error {
	if h == nil {
		return nil
	}
	ms := float64(evt.Duration.Microseconds()) / 1000

	switch evt.Name {
	case export.EventRenderCommitted, export.EventRenderFailed:
		attrs := metric.WithAttributes(
			attribute.String("theme", evt.Theme),
			attribute.Bool("success", evt.Name == export.EventRenderCommitted),
			attribute.String("error_kind", string(evt.ErrorKind)),
		)
		h.renders.Add(ctx, 1, attrs)
		h.renderLatency.Record(ctx, ms, attrs)

	case export.EventExportCompleted, export.EventExportFailed:
		success := evt.Name == export.EventExportCompleted
		attrs := metric.WithAttributes(
			attribute.Bool("success", success),
			attribute.String("error_kind", string(evt.ErrorKind)),
		)
		h.exports.Add(ctx, 1, attrs)
		h.exportLatency.Record(ctx, ms, attrs)
		if success {
			h.exportBytes.Record(ctx, evt.Bytes)
			h.exportPages.Record(ctx, int64(evt.Pages))
		}

	case export.EventExportRejected:
		h.rejected.Add(ctx, 1)
	}
	return nil
}

var _ export.MetricsHook = (*Hook)(nil)
