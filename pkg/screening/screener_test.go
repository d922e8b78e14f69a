package screening_test

import (
	"bytes"
	"context"
	"log/slog"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sumatoshi-tech/gridscreen/pkg/observability"
	"github.com/Sumatoshi-tech/gridscreen/pkg/screening"
	"github.com/Sumatoshi-tech/gridscreen/pkg/series"
)

func defaultParams() screening.Params {
	return screening.Params{
		ShortHourWindow:       24,
		IQRHours:              120,
		NDays:                 10,
		GlobalDemCut:          10,
		LocalDemCutUp:         3.5,
		LocalDemCutDown:       2.5,
		DeltaMultiplier:       2,
		DeltaSingleMultiplier: 2,
		RelMultiplier:         15,
		AnomalousRegionsWidth: 24,
		AnomalousPct:          0.85,
	}
}

const (
	negIdx   = 102 // Daily peak.
	spikeIdx = 294 // Daily peak.
)

// diurnalSeries is 30 days of a clean daily demand cycle with one negative
// reading and one extreme spike, both at a daily peak.
func diurnalSeries(t *testing.T) series.Series {
	t.Helper()

	const days = 30

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	timestamps := make([]time.Time, days*24)
	values := make([]float64, days*24)

	for i := range values {
		timestamps[i] = start.Add(time.Duration(i) * time.Hour)
		values[i] = 100 + 20*math.Sin(2*math.Pi*float64(i)/24)
	}

	values[negIdx] = -5
	values[spikeIdx] = 10000

	s, err := series.New("demand", timestamps, values)
	require.NoError(t, err)

	return s
}

func newScreener(t *testing.T, opts ...screening.Option) *screening.Screener {
	t.Helper()

	s, err := screening.NewScreener(defaultParams(), opts...)
	require.NoError(t, err)

	return s
}

func TestScreen_DiurnalSeries(t *testing.T) {
	t.Parallel()

	in := diurnalSeries(t)
	res := newScreener(t).Screen(context.Background(), in)

	require.Equal(t, in.Len(), res.Series.Len())

	for i, sample := range res.Series.Samples {
		switch i {
		case negIdx:
			assert.Equal(t, series.CategoryNegOrZero, sample.Category)
		case spikeIdx:
			assert.Equal(t, series.CategoryGlobalDem, sample.Category)
		case spikeIdx - 1, spikeIdx + 1:
			assert.Equal(t, series.CategoryGlobalDemPlusMinus, sample.Category, "index %d", i)
		default:
			assert.Equal(t, series.CategoryOkay, sample.Category, "index %d", i)
		}
	}

	assert.True(t, math.IsNaN(res.Series.Samples[spikeIdx].Value))
	assert.InDelta(t, 10000.0, res.Removed[screening.StageGlobalDem][spikeIdx], 0)
	assert.Equal(t, 4, res.Flagged())

	counts := res.Counts()
	assert.Equal(t, 2, counts[series.CategoryGlobalDemPlusMinus])
	assert.Equal(t, in.Len()-4, counts[series.CategoryOkay])
	assert.Zero(t, counts[series.CategoryAnomalousRegion])
	assert.Len(t, counts, len(series.AllCategories()))
}

func TestScreen_DoesNotModifyInput(t *testing.T) {
	t.Parallel()

	in := diurnalSeries(t)
	before := in.Clone()

	newScreener(t).Screen(context.Background(), in)

	assert.Equal(t, before.Categories(), in.Categories())
	assert.InDelta(t, 10000.0, in.Samples[spikeIdx].Value, 0)
}

func TestScreen_Idempotent(t *testing.T) {
	t.Parallel()

	s := newScreener(t)
	first := s.Screen(context.Background(), diurnalSeries(t))
	second := s.Screen(context.Background(), first.Series)

	for i, c := range first.Series.Categories() {
		if c != series.CategoryOkay {
			assert.Equal(t, c, second.Series.Samples[i].Category, "index %d", i)
		}
	}
}

func TestScreen_OneCategoryPerSample(t *testing.T) {
	t.Parallel()

	res := newScreener(t).Screen(context.Background(), diurnalSeries(t))

	for i, sample := range res.Series.Samples {
		owners := 0

		for _, column := range res.Removed {
			if !math.IsNaN(column[i]) {
				owners++
			}
		}

		if sample.Category.IsFiltered() {
			assert.Equal(t, 1, owners, "index %d", i)
			assert.True(t, sample.Missing())
		} else {
			assert.Zero(t, owners, "index %d", i)
		}
	}
}

func TestScreen_ShortSeries(t *testing.T) {
	t.Parallel()

	res := newScreener(t).Screen(context.Background(), series.FromValues([]float64{5, -1, 0, 3}))

	// Too short for any complete quality window, so surviving samples are
	// left in an anomalous region.
	assert.Equal(t, []series.Category{
		series.CategoryAnomalousRegion, series.CategoryNegOrZero, series.CategoryNegOrZero, series.CategoryAnomalousRegion,
	}, res.Series.Categories())
	assert.InDelta(t, 5.0, res.Removed[screening.StageAnomalousRegion][0], 0)
}

func TestScreen_Empty(t *testing.T) {
	t.Parallel()

	res := newScreener(t).Screen(context.Background(), series.Series{})

	assert.Zero(t, res.Series.Len())
	assert.Zero(t, res.Flagged())
}

func TestNewScreener_InvalidParams(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*screening.Params)
	}{
		{"zero short window", func(p *screening.Params) { p.ShortHourWindow = 0 }},
		{"negative n_days", func(p *screening.Params) { p.NDays = -1 }},
		{"zero width", func(p *screening.Params) { p.AnomalousRegionsWidth = 0 }},
		{"zero global cut", func(p *screening.Params) { p.GlobalDemCut = 0 }},
		{"nan multiplier", func(p *screening.Params) { p.DeltaMultiplier = math.NaN() }},
		{"infinite multiplier", func(p *screening.Params) { p.RelMultiplier = math.Inf(1) }},
		{"pct above one", func(p *screening.Params) { p.AnomalousPct = 1.5 }},
		{"negative pct", func(p *screening.Params) { p.AnomalousPct = -0.1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := defaultParams()
			tt.mutate(&p)

			_, err := screening.NewScreener(p)
			require.ErrorIs(t, err, screening.ErrInvalidParams)
		})
	}
}

func TestParams_LongHourWindow(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 240, defaultParams().LongHourWindow())
}

type fakeRecorder struct {
	mu      sync.Mutex
	samples int
	counts  map[string]int
	calls   int
}

func (f *fakeRecorder) RecordScreening(_ context.Context, samples int, counts map[string]int, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	f.samples = samples
	f.counts = counts
}

func TestScreen_RecordsRun(t *testing.T) {
	t.Parallel()

	rec := &fakeRecorder{}
	in := diurnalSeries(t)

	newScreener(t, screening.WithRecorder(rec)).Screen(context.Background(), in)

	assert.Equal(t, 1, rec.calls)
	assert.Equal(t, in.Len(), rec.samples)
	assert.Equal(t, 1, rec.counts["GLOBAL_DEM"])
	assert.Equal(t, 1, rec.counts["NEG_OR_ZERO"])
}

func TestScreen_LogsRun(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(observability.NewTracingHandler(inner, "gridscreen", "", observability.ModeCLI))

	newScreener(t, screening.WithLogger(logger)).Screen(context.Background(), diurnalSeries(t))

	out := buf.String()
	assert.Contains(t, out, `"msg":"series screened"`)
	assert.Contains(t, out, `"stage":"global_dem","removed":1,"series":"demand"`)
	assert.Equal(t, 1, strings.Count(out[strings.Index(out, `"msg":"series screened"`):], `"series":"demand"`))
}

func TestScreen_Spans(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	t.Cleanup(func() { require.NoError(t, tp.Shutdown(context.Background())) })

	newScreener(t, screening.WithTracer(tp.Tracer("test"))).Screen(context.Background(), diurnalSeries(t))

	spans := exporter.GetSpans()
	names := make(map[string]bool, len(spans))

	var root tracetest.SpanStub

	for _, span := range spans {
		names[span.Name] = true

		if span.Name == "gridscreen.screen" {
			root = span
		}
	}

	require.True(t, names["gridscreen.screen"])
	assert.True(t, names["gridscreen.screen.derive"])
	assert.True(t, names["gridscreen.screen.neg_or_zero"])
	assert.True(t, names["gridscreen.screen.anomalous_region"])

	for _, span := range spans {
		if span.Name != "gridscreen.screen" {
			assert.Equal(t, root.SpanContext.SpanID(), span.Parent.SpanID(), span.Name)
		}
	}
}
