package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/Sumatoshi-tech/gridscreen/pkg/observability"
)

// HeaderRequestID carries the request identifier in both directions.
const HeaderRequestID = "X-Request-ID"

type requestIDKey struct{}

// RequestID returns the identifier assigned to the request carried by ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)

	return id
}

// requestIDMiddleware keeps a caller supplied X-Request-ID or assigns a new one.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, hr *http.Request) {
		id := hr.Header.Get(HeaderRequestID)
		if id == "" {
			id = uuid.New().String()
		}

		rw.Header().Set(HeaderRequestID, id)

		next.ServeHTTP(rw, hr.WithContext(context.WithValue(hr.Context(), requestIDKey{}, id)))
	})
}

// rateLimitMiddleware answers 429 once the shared token bucket is empty.
func rateLimitMiddleware(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, hr *http.Request) {
			if !limiter.Allow() {
				rw.Header().Set("Retry-After", "1")
				writeError(rw, hr, http.StatusTooManyRequests, errRateLimited)

				return
			}

			next.ServeHTTP(rw, hr)
		})
	}
}

type requestTagsKey struct{}

// requestTags collects what a handler learns about a request for the
// request log and metrics.
type requestTags struct {
	series string
	cache  string
}

// tagRequest records the series name and cache outcome of the request
// carried by ctx. Empty values are left unset.
func tagRequest(ctx context.Context, seriesName, cache string) {
	tags, ok := ctx.Value(requestTagsKey{}).(*requestTags)
	if !ok {
		return
	}

	if seriesName != "" {
		tags.series = seriesName
	}

	if cache != "" {
		tags.cache = cache
	}
}

func (rt *requestTags) attributes() []attribute.KeyValue {
	var attrs []attribute.KeyValue

	if rt.series != "" {
		attrs = append(attrs, attribute.String(observability.AttrSeries, rt.series))
	}

	if rt.cache != "" {
		attrs = append(attrs, attribute.String(observability.AttrCache, rt.cache))
	}

	return attrs
}

// loggingMiddleware logs every request and records its RED metrics, tagged
// with the screened series and cache outcome when the handler reports them.
func loggingMiddleware(logger *slog.Logger, red *observability.REDMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, hr *http.Request) {
			start := time.Now()
			op := hr.Method + " " + hr.URL.Path

			done := func() {}
			if red != nil {
				done = red.TrackInflight(hr.Context(), op)
			}

			tags := &requestTags{}
			hr = hr.WithContext(context.WithValue(hr.Context(), requestTagsKey{}, tags))

			sw := observability.NewStatusWriter(rw)
			next.ServeHTTP(sw, hr)
			done()

			elapsed := time.Since(start)
			status := sw.StatusCode()

			if red != nil {
				outcome := observability.StatusOK
				if status >= http.StatusBadRequest {
					outcome = observability.StatusError
				}

				red.RecordRequest(hr.Context(), op, outcome, elapsed, tags.attributes()...)
			}

			attrs := []any{
				"method", hr.Method,
				"path", hr.URL.Path,
				"status", status,
				"request_id", RequestID(hr.Context()),
				"duration", elapsed,
			}
			if tags.cache != "" {
				attrs = append(attrs, observability.AttrCache, tags.cache)
			}

			logger.InfoContext(observability.ContextWithSeries(hr.Context(), tags.series), "request", attrs...)
		})
	}
}
