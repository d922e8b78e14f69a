package series

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"
)

// Interval is the spacing between consecutive samples.
const Interval = time.Hour

// ErrInvalidSeries is matched by every *InvalidSeriesError.
var ErrInvalidSeries = errors.New("invalid series")

// Reasons reported by InvalidSeriesError.
const (
	ReasonNonMonotonic     = "timestamps are not increasing"
	ReasonNotHourly        = "timestamps are not spaced one hour apart"
	ReasonOffGrid          = "timestamp is not a whole number of hours from the series start"
	ReasonMissingTimestamp = "sample has no timestamp"
)

// InvalidSeriesError describes an index whose timestamp breaks the regular
// hourly grid the screening offsets depend on.
type InvalidSeriesError struct {
	Index     int
	Timestamp time.Time
	Reason    string
}

func (e *InvalidSeriesError) Error() string {
	return fmt.Sprintf("invalid series at index %d (%s): %s",
		e.Index, e.Timestamp.Format(time.RFC3339), e.Reason)
}

// Is makes errors.Is(err, ErrInvalidSeries) hold.
func (e *InvalidSeriesError) Is(target error) bool {
	return target == ErrInvalidSeries
}

// Validate checks that timestamps increase by exactly one hour per sample.
// Positional series (no timestamps) are always valid.
func Validate(s Series) error {
	if s.Positional() {
		return nil
	}

	for i := 1; i < len(s.Samples); i++ {
		prev, cur := s.Samples[i-1].Timestamp, s.Samples[i].Timestamp

		switch {
		case cur.IsZero():
			return &InvalidSeriesError{Index: i, Timestamp: cur, Reason: ReasonMissingTimestamp}
		case !cur.After(prev):
			return &InvalidSeriesError{Index: i, Timestamp: cur, Reason: ReasonNonMonotonic}
		case cur.Sub(prev) != Interval:
			return &InvalidSeriesError{Index: i, Timestamp: cur, Reason: ReasonNotHourly}
		}
	}

	return nil
}

// RegularizeStats reports what Regularize changed.
type RegularizeStats struct {
	Inserted   int
	Duplicates int
}

// Regularize sorts the samples by timestamp, keeps the first of any duplicated
// timestamps and fills every absent hour with a missing sample, returning a
// series that passes Validate. A timestamp that is not a whole number of hours
// away from the earliest one yields an *InvalidSeriesError.
func Regularize(s Series) (Series, RegularizeStats, error) {
	var stats RegularizeStats

	if s.Len() == 0 {
		return s.Clone(), stats, nil
	}

	for i, sample := range s.Samples {
		if sample.Timestamp.IsZero() {
			return Series{}, stats, &InvalidSeriesError{Index: i, Reason: ReasonMissingTimestamp}
		}
	}

	sorted := slices.Clone(s.Samples)
	slices.SortStableFunc(sorted, func(a, b Sample) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	start := sorted[0].Timestamp
	out := make([]Sample, 0, len(sorted))

	for i, sample := range sorted {
		offset := sample.Timestamp.Sub(start)
		if offset%Interval != 0 {
			return Series{}, stats, &InvalidSeriesError{Index: i, Timestamp: sample.Timestamp, Reason: ReasonOffGrid}
		}

		if len(out) > 0 {
			last := out[len(out)-1].Timestamp

			if sample.Timestamp.Equal(last) {
				stats.Duplicates++

				continue
			}

			for ts := last.Add(Interval); ts.Before(sample.Timestamp); ts = ts.Add(Interval) {
				out = append(out, Sample{Timestamp: ts, Value: math.NaN(), Category: CategoryMissing})
				stats.Inserted++
			}
		}

		out = append(out, sample)
	}

	return Series{Name: s.Name, Samples: out}, stats, nil
}
