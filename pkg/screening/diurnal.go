package screening

import (
	"math"

	"github.com/Sumatoshi-tech/gridscreen/pkg/alg/stats"
)

const hoursPerDay = 24

// DiurnalTemplate returns, for every sample, the scale factor
//
//	1 + median(demMinusRolling[i + 24k] for k in ±1..±nDays) / rollingLong[i]
//
// i.e. how far this hour of the day typically sits from the rolling median,
// judged from the same position on the surrounding days. Offsets outside the
// series or holding NaN are skipped; the factor is NaN when no offset is usable
// or rollingLong[i] is zero or NaN.
func DiurnalTemplate(demMinusRolling, rollingLong []float64, nDays int) []float64 {
	count := len(demMinusRolling)
	out := make([]float64, count)
	buf := make([]float64, 0, 2*nDays)

	for i := range count {
		buf = buf[:0]

		for k := -nDays; k <= nDays; k++ {
			if k == 0 {
				continue
			}

			j := i + k*hoursPerDay
			if j < 0 || j >= count || math.IsNaN(demMinusRolling[j]) {
				continue
			}

			buf = append(buf, demMinusRolling[j])
		}

		out[i] = 1 + stats.Ratio(stats.NanMedian(buf), rollingLong[i])
	}

	return out
}
