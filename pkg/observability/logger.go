package observability

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

const (
	attrTraceID = "trace_id"
	attrSpanID  = "span_id"
	attrService = "service"
	attrEnv     = "env"
	attrMode    = "mode"
)

type seriesKey struct{}

// ContextWithSeries tags ctx with the name of the series being screened.
// Records logged under ctx through a [TracingHandler] carry it as "series".
func ContextWithSeries(ctx context.Context, name string) context.Context {
	if name == "" {
		return ctx
	}

	return context.WithValue(ctx, seriesKey{}, name)
}

// SeriesFromContext returns the series name set by [ContextWithSeries].
func SeriesFromContext(ctx context.Context) string {
	name, _ := ctx.Value(seriesKey{}).(string)

	return name
}

// TracingHandler is an [slog.Handler] that adds the active span's trace_id
// and span_id, and the series tagged on the context, to every record. Service metadata (service, mode, env) is
// attached once at construction so it stays at the top level under groups.
type TracingHandler struct {
	inner slog.Handler
}

// NewTracingHandler wraps inner with trace context and service metadata.
func NewTracingHandler(inner slog.Handler, service, env string, appMode AppMode) *TracingHandler {
	attrs := []slog.Attr{
		slog.String(attrService, service),
		slog.String(attrMode, string(appMode)),
	}

	if env != "" {
		attrs = append(attrs, slog.String(attrEnv, env))
	}

	return &TracingHandler{inner: inner.WithAttrs(attrs)}
}

// Enabled delegates to the inner handler.
func (th *TracingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return th.inner.Enabled(ctx, level)
}

// Handle adds trace context and series attributes from ctx, then delegates.
// A record that names its series explicitly keeps its own.
func (th *TracingHandler) Handle(ctx context.Context, record slog.Record) error {
	sc := trace.SpanContextFromContext(ctx)
	if sc.IsValid() {
		record.AddAttrs(
			slog.String(attrTraceID, sc.TraceID().String()),
			slog.String(attrSpanID, sc.SpanID().String()),
		)
	}

	name := SeriesFromContext(ctx)
	if name != "" && !hasAttr(record, AttrSeries) {
		record.AddAttrs(slog.String(AttrSeries, name))
	}

	err := th.inner.Handle(ctx, record)
	if err != nil {
		return fmt.Errorf("tracing handler: %w", err)
	}

	return nil
}

// WithAttrs implements [slog.Handler].
func (th *TracingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TracingHandler{inner: th.inner.WithAttrs(attrs)}
}

// WithGroup implements [slog.Handler].
func (th *TracingHandler) WithGroup(name string) slog.Handler {
	return &TracingHandler{inner: th.inner.WithGroup(name)}
}

func hasAttr(record slog.Record, key string) bool {
	found := false

	record.Attrs(func(a slog.Attr) bool {
		found = a.Key == key

		return !found
	})

	return found
}
