package stats

import (
	"math"
	"slices"
)

// WindowBounds returns the half-open index range [lo, hi) of the rolling window
// for position i in a sequence of length n. halfWidth is the number of samples
// on each side, so the full window holds 2*halfWidth samples.
//
// A centered window covers [i-halfWidth, i+halfWidth-1], a trailing window
// covers [i-2*halfWidth+1, i]. Windows shrink at the sequence boundaries; they
// never wrap or pad.
func WindowBounds(i, n, halfWidth int, centered bool) (lo, hi int) {
	size := max(2*halfWidth, 1)

	if centered {
		lo = i - size/2
		hi = lo + size
	} else {
		hi = i + 1
		lo = hi - size
	}

	return max(lo, 0), min(hi, n)
}

// RollingMedian returns the moving median of values. NaN elements are excluded
// from each window; a window with no finite element yields NaN.
func RollingMedian(values []float64, halfWidth int, centered bool) []float64 {
	return rolling(values, halfWidth, centered, func(sorted []float64) float64 {
		return percentileSorted(sorted, PercentileMedian)
	})
}

// RollingIQR returns the moving interquartile range of values with the same
// window and NaN policy as RollingMedian.
func RollingIQR(values []float64, halfWidth int, centered bool) []float64 {
	return rolling(values, halfWidth, centered, func(sorted []float64) float64 {
		return percentileSorted(sorted, PercentileUpperQuartile) - percentileSorted(sorted, PercentileLowerQuartile)
	})
}

func rolling(values []float64, halfWidth int, centered bool, reduce func(sorted []float64) float64) []float64 {
	count := len(values)
	out := make([]float64, count)
	buf := make([]float64, 0, 2*max(halfWidth, 1))

	for i := range count {
		lo, hi := WindowBounds(i, count, halfWidth, centered)

		buf = buf[:0]

		for _, v := range values[lo:hi] {
			if !math.IsNaN(v) {
				buf = append(buf, v)
			}
		}

		if len(buf) == 0 {
			out[i] = math.NaN()

			continue
		}

		slices.Sort(buf)
		out[i] = reduce(buf)
	}

	return out
}

// Diff returns values[i] - values[i-periods]. A negative periods compares with
// later elements instead. Positions without a partner, or with a NaN operand,
// are NaN.
func Diff(values []float64, periods int) []float64 {
	shifted := Shift(values, periods)
	out := make([]float64, len(values))

	for i, v := range values {
		out[i] = v - shifted[i]
	}

	return out
}

// Shift returns a copy of values moved by periods positions: out[i] equals
// values[i-periods]. Vacated positions are NaN.
func Shift(values []float64, periods int) []float64 {
	out := make([]float64, len(values))

	for i := range out {
		src := i - periods
		if src < 0 || src >= len(values) {
			out[i] = math.NaN()

			continue
		}

		out[i] = values[src]
	}

	return out
}
