package screening

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/gridscreen/pkg/observability"
	"github.com/Sumatoshi-tech/gridscreen/pkg/series"
)

const spanPrefix = "gridscreen.screen"

// Recorder receives the outcome of every screening run.
type Recorder interface {
	RecordScreening(ctx context.Context, samples int, counts map[string]int, elapsed time.Duration)
}

// Option configures a Screener.
type Option func(*Screener)

// WithLogger sets the logger used for per-run and per-stage records.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Screener) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTracer sets the tracer used for run and stage spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Screener) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithRecorder sets the recorder notified after each run.
func WithRecorder(rec Recorder) Option {
	return func(s *Screener) {
		s.recorder = rec
	}
}

// Screener runs the screening pipeline with fixed parameters. It holds no
// per-run state and is safe for concurrent use.
type Screener struct {
	params   Params
	logger   *slog.Logger
	tracer   trace.Tracer
	recorder Recorder
}

// NewScreener returns a Screener for p.
func NewScreener(p Params, opts ...Option) (*Screener, error) {
	err := p.Validate()
	if err != nil {
		return nil, err
	}

	s := &Screener{
		params: p,
		logger: slog.New(slog.DiscardHandler),
		tracer: nooptrace.NewTracerProvider().Tracer(spanPrefix),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Params returns the screening parameters.
func (s *Screener) Params() Params {
	return s.params
}

// Screen labels every sample of in. The input series is not modified.
func (s *Screener) Screen(ctx context.Context, in series.Series) *Result {
	start := time.Now()

	ctx, span := s.tracer.Start(ctx, spanPrefix,
		trace.WithAttributes(
			attribute.String("series.name", in.Name),
			attribute.Int("series.samples", in.Len()),
		),
	)
	defer span.End()

	ctx = observability.ContextWithSeries(ctx, in.Name)

	p := s.params
	st := NewState(in)

	st = s.stage(ctx, StageNegOrZero, st, FilterNegOrZero)
	st = s.stage(ctx, StageIdenticalRun, st, FilterIdenticalRuns)
	st = s.stage(ctx, StageGlobalDem, st, func(in State) State {
		return FilterGlobalExtreme(in, p.GlobalDemCut)
	})
	st = s.stage(ctx, StageGlobalDemPlusMinus, st, FilterGlobalPlusMinusOne)

	d := s.derive(ctx, st.Values)

	st = s.stage(ctx, StageLocalDemUp, st, func(in State) State {
		return FilterLocalBand(in, d, p.LocalDemCutUp, p.LocalDemCutDown)
	})
	st = s.stage(ctx, StageDelta, st, func(in State) State {
		return FilterDoubleSidedDelta(in, d, p.DeltaMultiplier)
	})
	st = s.stage(ctx, StageSingleDeltaForward, st, func(in State) State {
		return FilterSingleSidedDeltas(in, d, p.DeltaSingleMultiplier, p.RelMultiplier, d.IQRRelativeDeltas)
	})
	st = s.stage(ctx, StageAnomalousRegion, st, func(in State) State {
		return FilterAnomalousRegions(in, p.AnomalousRegionsWidth, p.AnomalousPct)
	})

	res := newResult(in, st, d)
	elapsed := time.Since(start)

	counts := make(map[string]int)
	for c, n := range res.Counts() {
		counts[c.String()] = n
	}

	span.SetAttributes(attribute.Int("screen.flagged", res.Flagged()))

	s.logger.InfoContext(ctx, "series screened",
		"series", in.Name,
		"samples", in.Len(),
		"flagged", res.Flagged(),
		"iqr_relative_deltas", d.IQRRelativeDeltas,
		"duration", elapsed,
	)

	if s.recorder != nil {
		s.recorder.RecordScreening(ctx, in.Len(), counts, elapsed)
	}

	return res
}

// stage runs one filter inside its own span. The local band and single-sided
// sweep each cover two Removed stages; the span is named after the first.
func (s *Screener) stage(ctx context.Context, name Stage, in State, fn func(State) State) State {
	ctx, span := s.tracer.Start(ctx, spanPrefix+"."+string(name))
	defer span.End()

	out := fn(in)

	removed := flaggedDelta(in, out)
	span.SetAttributes(attribute.Int("stage.removed", removed))

	s.logger.DebugContext(ctx, "stage done", "stage", string(name), "removed", removed)

	return out
}

func (s *Screener) derive(ctx context.Context, values []float64) *Derived {
	_, span := s.tracer.Start(ctx, spanPrefix+".derive")
	defer span.End()

	d := ComputeDerived(values, s.params)
	span.SetAttributes(attribute.Float64("iqr_relative_deltas", d.IQRRelativeDeltas))

	return d
}

// flaggedDelta counts samples that went from OKAY to a filter category.
func flaggedDelta(before, after State) int {
	n := 0

	for i, c := range after.Categories {
		if before.Categories[i] == series.CategoryOkay && c.IsFiltered() {
			n++
		}
	}

	return n
}
