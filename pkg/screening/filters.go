package screening

import (
	"math"

	"github.com/Sumatoshi-tech/gridscreen/pkg/alg/stats"
	"github.com/Sumatoshi-tech/gridscreen/pkg/series"
)

// FilterNegOrZero removes every value that is zero or negative.
func FilterNegOrZero(in State) State {
	out := in.Clone()

	for i, v := range in.Values {
		if out.Candidate(i) && v <= 0 {
			out.remove(StageNegOrZero, i, series.CategoryNegOrZero)
		}
	}

	return out
}

// FilterIdenticalRuns removes the third and later repeats in a run of
// identical values. The first two samples of the run survive.
func FilterIdenticalRuns(in State) State {
	out := in.Clone()
	v := in.Values

	for i := 2; i < len(v); i++ {
		if out.Candidate(i) && v[i] == v[i-1] && v[i] == v[i-2] {
			out.remove(StageIdenticalRun, i, series.CategoryIdenticalRun)
		}
	}

	return out
}

// FilterGlobalExtreme removes values at or above multiplier times the median
// of the whole series. A series without values is returned unchanged.
func FilterGlobalExtreme(in State, multiplier float64) State {
	out := in.Clone()

	median := stats.NanMedian(in.Values)
	if math.IsNaN(median) {
		return out
	}

	limit := median * multiplier

	for i, v := range in.Values {
		if out.Candidate(i) && v >= limit {
			out.remove(StageGlobalDem, i, series.CategoryGlobalDem)
		}
	}

	return out
}

// FilterGlobalPlusMinusOne removes the OKAY neighbours of every GLOBAL_DEM
// sample. It runs once; removed neighbours do not spread further.
func FilterGlobalPlusMinusOne(in State) State {
	out := in.Clone()

	for i, category := range in.Categories {
		if category != series.CategoryGlobalDem {
			continue
		}

		for _, j := range []int{i - 1, i + 1} {
			if j >= 0 && j < out.Len() && out.Candidate(j) {
				out.remove(StageGlobalDemPlusMinus, j, series.CategoryGlobalDemPlusMinus)
			}
		}
	}

	return out
}

// FilterLocalBand removes values outside the band around the diurnally scaled
// short rolling median: first those above
// RollingShort*HourlyScale + up*DemMinusRollingIQR, then those below
// RollingShort*HourlyScale - down*DemMinusRollingIQR. Samples whose band is
// undefined are kept.
func FilterLocalBand(in State, d *Derived, up, down float64) State {
	out := in.Clone()

	for i, v := range in.Values {
		expected := d.RollingShort[i] * d.HourlyScale[i]
		if out.Candidate(i) && v > expected+up*d.DemMinusRollingIQR[i] {
			out.remove(StageLocalDemUp, i, series.CategoryLocalDemUp)
		}
	}

	for i, v := range out.Values {
		expected := d.RollingShort[i] * d.HourlyScale[i]
		if out.Candidate(i) && v < expected-down*d.DemMinusRollingIQR[i] {
			out.remove(StageLocalDemDown, i, series.CategoryLocalDemDown)
		}
	}

	return out
}

// FilterDoubleSidedDelta removes spike-and-return samples: both the backward
// and the forward delta exceed multiplier times the rolling delta IQR in the
// same direction.
func FilterDoubleSidedDelta(in State, d *Derived, multiplier float64) State {
	out := in.Clone()

	for i := range in.Values {
		if !out.Candidate(i) {
			continue
		}

		limit := d.DeltaIQR[i] * multiplier
		pre, post := d.DeltaPre[i], d.DeltaPost[i]

		if (pre > limit && post > limit) || (pre < -limit && post < -limit) {
			out.remove(StageDelta, i, series.CategoryDelta)
		}
	}

	return out
}
