package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricScreenRuns     = "gridscreen.screen.runs.total"
	metricScreenSamples  = "gridscreen.screen.samples.total"
	metricScreenDuration = "gridscreen.screen.duration.seconds"

	attrCategory = "category"
)

// ScreeningMetrics holds OTel instruments for screening runs.
type ScreeningMetrics struct {
	runs     metric.Int64Counter
	samples  metric.Int64Counter
	duration metric.Float64Histogram
}

// NewScreeningMetrics creates screening metric instruments from the given meter.
func NewScreeningMetrics(mt metric.Meter) (*ScreeningMetrics, error) {
	runs, err := mt.Int64Counter(metricScreenRuns,
		metric.WithDescription("Total series screened"),
		metric.WithUnit("{series}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricScreenRuns, err)
	}

	samples, err := mt.Int64Counter(metricScreenSamples,
		metric.WithDescription("Screened samples by final category"),
		metric.WithUnit("{sample}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricScreenSamples, err)
	}

	duration, err := mt.Float64Histogram(metricScreenDuration,
		metric.WithDescription("Per-series screening duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricScreenDuration, err)
	}

	return &ScreeningMetrics{
		runs:     runs,
		samples:  samples,
		duration: duration,
	}, nil
}

// RecordScreening records one screened series. counts maps category labels to
// sample counts; zero counts are skipped. Safe to call on a nil receiver (no-op).
func (sm *ScreeningMetrics) RecordScreening(ctx context.Context, _ int, counts map[string]int, elapsed time.Duration) {
	if sm == nil {
		return
	}

	sm.runs.Add(ctx, 1)
	sm.duration.Record(ctx, elapsed.Seconds())

	for category, n := range counts {
		if n == 0 {
			continue
		}

		sm.samples.Add(ctx, int64(n), metric.WithAttributes(attribute.String(attrCategory, category)))
	}
}
