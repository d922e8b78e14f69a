// Package series provides the hourly demand series model: samples carrying a
// value (NaN when missing) and a quality category, plus validation,
// regularization and a CSV codec.
package series

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrLengthMismatch is returned when timestamps and values differ in length.
var ErrLengthMismatch = errors.New("timestamps and values must have the same length")

// Sample is one hourly observation.
type Sample struct {
	Timestamp time.Time
	Value     float64
	Category  Category
}

// Missing reports whether the sample has no value.
func (s Sample) Missing() bool {
	return math.IsNaN(s.Value)
}

// Series is an ordered, integer-indexed sequence of hourly samples.
type Series struct {
	Name    string
	Samples []Sample
}

// New builds a series from parallel timestamp and value slices. Every sample
// starts uncategorized.
func New(name string, timestamps []time.Time, values []float64) (Series, error) {
	if len(timestamps) != len(values) {
		return Series{}, fmt.Errorf("%w: %d timestamps, %d values", ErrLengthMismatch, len(timestamps), len(values))
	}

	samples := make([]Sample, len(values))

	for i := range values {
		samples[i] = Sample{Timestamp: timestamps[i], Value: values[i]}
	}

	return Series{Name: name, Samples: samples}, nil
}

// FromValues builds a positional series without timestamps.
func FromValues(values []float64) Series {
	samples := make([]Sample, len(values))

	for i, v := range values {
		samples[i] = Sample{Value: v}
	}

	return Series{Samples: samples}
}

// Len returns the number of samples.
func (s Series) Len() int {
	return len(s.Samples)
}

// Values returns a copy of the sample values.
func (s Series) Values() []float64 {
	out := make([]float64, len(s.Samples))

	for i, sample := range s.Samples {
		out[i] = sample.Value
	}

	return out
}

// Categories returns a copy of the sample categories.
func (s Series) Categories() []Category {
	out := make([]Category, len(s.Samples))

	for i, sample := range s.Samples {
		out[i] = sample.Category
	}

	return out
}

// Clone returns a deep copy of the series.
func (s Series) Clone() Series {
	samples := make([]Sample, len(s.Samples))
	copy(samples, s.Samples)

	return Series{Name: s.Name, Samples: samples}
}

// Positional reports whether the series carries no timestamps.
func (s Series) Positional() bool {
	return len(s.Samples) == 0 || s.Samples[0].Timestamp.IsZero()
}
