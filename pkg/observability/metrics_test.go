package observability_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Sumatoshi-tech/gridscreen/pkg/observability"
)

func newManualMeter(t *testing.T) (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	t.Cleanup(func() { require.NoError(t, mp.Shutdown(context.Background())) })

	return mp, reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics

	err := reader.Collect(context.Background(), &rm)
	require.NoError(t, err)

	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for idx := range rm.ScopeMetrics {
		for midx := range rm.ScopeMetrics[idx].Metrics {
			if rm.ScopeMetrics[idx].Metrics[midx].Name == name {
				return &rm.ScopeMetrics[idx].Metrics[midx]
			}
		}
	}

	return nil
}

func sumByAttr(t *testing.T, m *metricdata.Metrics, key, value string) int64 {
	t.Helper()

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "%s is not an int64 sum", m.Name)

	var total int64

	for _, dp := range sum.DataPoints {
		v, found := dp.Attributes.Value(attribute.Key(key))
		if found && v.AsString() == value {
			total += dp.Value
		}
	}

	return total
}

func TestREDMetrics_RecordRequest(t *testing.T) {
	t.Parallel()

	mp, reader := newManualMeter(t)

	red, err := observability.NewREDMetrics(mp.Meter("test"))
	require.NoError(t, err)

	red.RecordRequest(context.Background(), "screen", observability.StatusOK, 100*time.Millisecond)

	rm := collectMetrics(t, reader)

	reqTotal := findMetric(rm, "gridscreen.requests.total")
	require.NotNil(t, reqTotal)
	assert.Equal(t, int64(1), sumByAttr(t, reqTotal, "op", "screen"))
	require.NotNil(t, findMetric(rm, "gridscreen.request.duration.seconds"))
	assert.Nil(t, findMetric(rm, "gridscreen.errors.total"))
}

func TestREDMetrics_RecordRequestExtraAttributes(t *testing.T) {
	t.Parallel()

	mp, reader := newManualMeter(t)

	red, err := observability.NewREDMetrics(mp.Meter("test"))
	require.NoError(t, err)

	red.RecordRequest(context.Background(), "screen", observability.StatusOK, time.Millisecond,
		attribute.String(observability.AttrSeries, "north"),
		attribute.String(observability.AttrCache, "hit"),
	)
	red.RecordRequest(context.Background(), "screen", observability.StatusError, time.Millisecond,
		attribute.String(observability.AttrSeries, "south"),
	)

	rm := collectMetrics(t, reader)

	reqTotal := findMetric(rm, "gridscreen.requests.total")
	require.NotNil(t, reqTotal)
	assert.Equal(t, int64(1), sumByAttr(t, reqTotal, observability.AttrSeries, "north"))
	assert.Equal(t, int64(1), sumByAttr(t, reqTotal, observability.AttrCache, "hit"))

	errTotal := findMetric(rm, "gridscreen.errors.total")
	require.NotNil(t, errTotal)
	assert.Equal(t, int64(1), sumByAttr(t, errTotal, observability.AttrSeries, "south"))
	assert.Zero(t, sumByAttr(t, errTotal, observability.AttrSeries, "north"))
}

func TestREDMetrics_RecordRequestError(t *testing.T) {
	t.Parallel()

	mp, reader := newManualMeter(t)

	red, err := observability.NewREDMetrics(mp.Meter("test"))
	require.NoError(t, err)

	red.RecordRequest(context.Background(), "screen", observability.StatusError, time.Second)

	errTotal := findMetric(collectMetrics(t, reader), "gridscreen.errors.total")
	require.NotNil(t, errTotal)
	assert.Equal(t, int64(1), sumByAttr(t, errTotal, "op", "screen"))
}

func TestREDMetrics_TrackInflight(t *testing.T) {
	t.Parallel()

	mp, reader := newManualMeter(t)

	red, err := observability.NewREDMetrics(mp.Meter("test"))
	require.NoError(t, err)

	done := red.TrackInflight(context.Background(), "screen")

	inflight := findMetric(collectMetrics(t, reader), "gridscreen.inflight.requests")
	require.NotNil(t, inflight)
	assert.Equal(t, int64(1), sumByAttr(t, inflight, "op", "screen"))

	done()

	inflight = findMetric(collectMetrics(t, reader), "gridscreen.inflight.requests")
	assert.Equal(t, int64(0), sumByAttr(t, inflight, "op", "screen"))
}

func TestScreeningMetrics_RecordScreening(t *testing.T) {
	t.Parallel()

	mp, reader := newManualMeter(t)

	sm, err := observability.NewScreeningMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	sm.RecordScreening(ctx, 10, map[string]int{"OKAY": 8, "DELTA": 2, "MISSING": 0}, time.Millisecond)
	sm.RecordScreening(ctx, 5, map[string]int{"OKAY": 5}, time.Millisecond)

	rm := collectMetrics(t, reader)

	runs := findMetric(rm, "gridscreen.screen.runs.total")
	require.NotNil(t, runs)

	runSum, ok := runs.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, runSum.DataPoints, 1)
	assert.Equal(t, int64(2), runSum.DataPoints[0].Value)

	samples := findMetric(rm, "gridscreen.screen.samples.total")
	require.NotNil(t, samples)
	assert.Equal(t, int64(13), sumByAttr(t, samples, "category", "OKAY"))
	assert.Equal(t, int64(2), sumByAttr(t, samples, "category", "DELTA"))
	assert.Equal(t, int64(0), sumByAttr(t, samples, "category", "MISSING"))

	require.NotNil(t, findMetric(rm, "gridscreen.screen.duration.seconds"))
}

func TestScreeningMetrics_NilReceiver(t *testing.T) {
	t.Parallel()

	var sm *observability.ScreeningMetrics

	assert.NotPanics(t, func() {
		sm.RecordScreening(context.Background(), 1, map[string]int{"OKAY": 1}, time.Millisecond)
	})
}
