// Package stats provides core statistical functions for numerical analysis.
// Missing observations are represented as NaN; the Nan* variants skip them
// and return NaN only when nothing is left to summarize.
package stats

import (
	"math"
	"slices"

	mfstats "github.com/montanaflynn/stats"
)

// Well-known percentile thresholds.
const (
	PercentileLowerQuartile = 0.25
	PercentileMedian        = 0.5
	PercentileUpperQuartile = 0.75
)

// Percentile returns the p-th percentile of values using linear interpolation.
// p must be in [0, 1]. The input slice is not modified (a copy is sorted internally).
// Returns 0 for an empty slice.
func Percentile(values []float64, p float64) float64 {
	count := len(values)
	if count == 0 {
		return 0
	}

	sorted := make([]float64, count)
	copy(sorted, values)
	slices.Sort(sorted)

	return percentileSorted(sorted, p)
}

func percentileSorted(sorted []float64, p float64) float64 {
	count := len(sorted)

	idx := p * float64(count-1)
	lower := int(math.Floor(idx))
	upper := int(math.Ceil(idx))

	if lower == upper || upper >= count {
		return sorted[lower]
	}

	frac := idx - float64(lower)

	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

// DropNaN returns the non-NaN elements of values in their original order.
func DropNaN(values []float64) []float64 {
	out := make([]float64, 0, len(values))

	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}

	return out
}

// NanPercentile is Percentile over the non-NaN elements of values.
// Returns NaN when every element is NaN.
func NanPercentile(values []float64, p float64) float64 {
	clean := DropNaN(values)
	if len(clean) == 0 {
		return math.NaN()
	}

	return Percentile(clean, p)
}

// NanMedian returns the median of the non-NaN elements of values; even counts
// average the two middle elements. Returns NaN when every element is NaN.
func NanMedian(values []float64) float64 {
	clean := DropNaN(values)
	if len(clean) == 0 {
		return math.NaN()
	}

	median, err := mfstats.Median(clean)
	if err != nil {
		return math.NaN()
	}

	return median
}

// NanIQR returns the interquartile range (75th minus 25th percentile) of the
// non-NaN elements of values. Returns NaN when every element is NaN.
func NanIQR(values []float64) float64 {
	clean := DropNaN(values)
	if len(clean) == 0 {
		return math.NaN()
	}

	slices.Sort(clean)

	return percentileSorted(clean, PercentileUpperQuartile) - percentileSorted(clean, PercentileLowerQuartile)
}

// Ratio divides num by den, returning NaN instead of an infinity or when either
// operand is NaN.
func Ratio(num, den float64) float64 {
	if den == 0 || math.IsNaN(num) || math.IsNaN(den) {
		return math.NaN()
	}

	return num / den
}
