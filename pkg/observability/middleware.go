package observability

import (
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// StatusWriter wraps [http.ResponseWriter] to capture the status code.
type StatusWriter struct {
	http.ResponseWriter

	statusCode int
	written    bool
}

// NewStatusWriter wraps rw.
func NewStatusWriter(rw http.ResponseWriter) *StatusWriter {
	return &StatusWriter{ResponseWriter: rw}
}

// StatusCode returns the status written so far, 200 when nothing was written.
func (sw *StatusWriter) StatusCode() int {
	if !sw.written {
		return http.StatusOK
	}

	return sw.statusCode
}

// WriteHeader captures the status code before delegating to the wrapped writer.
func (sw *StatusWriter) WriteHeader(code int) {
	if !sw.written {
		sw.statusCode = code
		sw.written = true
	}

	sw.ResponseWriter.WriteHeader(code)
}

func (sw *StatusWriter) Write(buf []byte) (int, error) {
	if !sw.written {
		sw.statusCode = http.StatusOK
		sw.written = true
	}

	n, err := sw.ResponseWriter.Write(buf)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}

	return n, nil
}

// HTTPMiddleware returns an [http.Handler] that creates a server span per
// request named "METHOD /path", continuing any W3C trace context in the headers.
func HTTPMiddleware(tracer trace.Tracer, next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, hr *http.Request) {
		spanName := hr.Method + " " + hr.URL.Path

		parentCtx := otel.GetTextMapPropagator().Extract(hr.Context(), propagation.HeaderCarrier(hr.Header))

		ctx, span := tracer.Start(parentCtx, spanName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPRequestMethodKey.String(hr.Method),
				attribute.String("http.target", hr.URL.Path),
			),
		)
		defer span.End()

		sw := NewStatusWriter(rw)
		next.ServeHTTP(sw, hr.WithContext(ctx))

		status := sw.StatusCode()
		span.SetAttributes(semconv.HTTPResponseStatusCode(status))

		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	})
}
