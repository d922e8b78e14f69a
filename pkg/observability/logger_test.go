package observability_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/gridscreen/pkg/observability"
)

func decodeRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var record map[string]any

	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	return record
}

func TestTracingHandler_InjectsTraceContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(observability.NewTracingHandler(inner, "test-svc", "test", observability.ModeCLI))

	traceID, err := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	require.NoError(t, err)

	spanID, err := trace.SpanIDFromHex("0102030405060708")
	require.NoError(t, err)

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	logger.InfoContext(ctx, "series screened")

	record := decodeRecord(t, &buf)
	assert.Equal(t, "0102030405060708090a0b0c0d0e0f10", record["trace_id"])
	assert.Equal(t, "0102030405060708", record["span_id"])
	assert.Equal(t, "test-svc", record["service"])
	assert.Equal(t, "test", record["env"])
	assert.Equal(t, "cli", record["mode"])
}

func TestTracingHandler_NoTraceContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	inner := slog.NewJSONHandler(&buf, nil)
	logger := slog.New(observability.NewTracingHandler(inner, "gridscreen", "", observability.ModeServe))

	logger.Info("listening")

	record := decodeRecord(t, &buf)
	assert.NotContains(t, record, "trace_id")
	assert.NotContains(t, record, "env")
	assert.Equal(t, "serve", record["mode"])
}

func TestTracingHandler_GroupKeepsServiceAtTopLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	inner := slog.NewJSONHandler(&buf, nil)
	logger := slog.New(observability.NewTracingHandler(inner, "gridscreen", "", observability.ModeCLI))

	logger.WithGroup("series").Info("screened", "name", "demand")

	record := decodeRecord(t, &buf)
	assert.Equal(t, "gridscreen", record["service"])

	group, ok := record["series"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "demand", group["name"])
}

func TestTracingHandler_RespectsLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})
	logger := slog.New(observability.NewTracingHandler(inner, "gridscreen", "", observability.ModeCLI))

	logger.Info("dropped")

	assert.Zero(t, buf.Len())
}

func TestTracingHandler_SeriesFromContext(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		ctx   context.Context
		args  []any
		want  any
		count int
	}{
		{"tagged context", observability.ContextWithSeries(context.Background(), "north"), nil, "north", 1},
		{"explicit attribute wins", observability.ContextWithSeries(context.Background(), "north"),
			[]any{"series", "south"}, "south", 1},
		{"untagged context", context.Background(), nil, nil, 0},
		{"empty name", observability.ContextWithSeries(context.Background(), ""), nil, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer

			inner := slog.NewJSONHandler(&buf, nil)
			logger := slog.New(observability.NewTracingHandler(inner, "gridscreen", "", observability.ModeCLI))

			logger.InfoContext(tt.ctx, "stage done", tt.args...)

			assert.Equal(t, tt.count, strings.Count(buf.String(), `"series"`))
			assert.Equal(t, tt.want, decodeRecord(t, &buf)["series"])
		})
	}
}

func TestSeriesFromContext(t *testing.T) {
	t.Parallel()

	assert.Empty(t, observability.SeriesFromContext(context.Background()))
	assert.Equal(t, "north",
		observability.SeriesFromContext(observability.ContextWithSeries(context.Background(), "north")))
}
