package screening

import (
	"math"

	"github.com/Sumatoshi-tech/gridscreen/pkg/series"
)

// goodCursor remembers the last sample a sweep accepted as good.
type goodCursor struct {
	index int
	set   bool
}

func (c *goodCursor) accept(i int) {
	c.index = i
	c.set = true
}

// singleDeltaSweep compares each sample with the last accepted one.
type singleDeltaSweep struct {
	derived       *Derived
	multiplier    float64
	relMultiplier float64
	iqrRelDeltas  float64
}

// jump reports whether cur moved too far from ref in both absolute demand and
// relative deviation. NaN operands never jump.
func (sw singleDeltaSweep) jump(values []float64, ref, cur int) bool {
	deltaDem := math.Abs(values[ref] - values[cur])
	deltaRel := math.Abs(sw.derived.RelDev[ref] - sw.derived.RelDev[cur])

	return deltaDem > sw.derived.DeltaIQR[cur]*sw.multiplier &&
		deltaRel > sw.relMultiplier*sw.iqrRelDeltas
}

// deviation is the larger distance of sample i from its short and long
// expectations, ignoring whichever is undefined.
func (sw singleDeltaSweep) deviation(i int) float64 {
	short := math.Abs(1 - sw.derived.RelDev[i])
	long := math.Abs(1 - sw.derived.RelDevLong[i])

	switch {
	case math.IsNaN(short):
		return long
	case math.IsNaN(long):
		return short
	default:
		return math.Max(short, long)
	}
}

// FilterSingleSidedDeltas removes samples that jump away from the last good
// sample. A forward sweep runs first: on a jump it keeps whichever of the two
// samples lies closer to its expectation, so when the stale reference is the
// outlier the current sample becomes the new reference and is kept. A backward
// sweep over the result then removes every jumping sample outright. Both
// sweeps label SINGLE_DELTA and record into their own Removed stage.
func FilterSingleSidedDeltas(in State, d *Derived, multiplier, relMultiplier, iqrRelDeltas float64) State {
	sw := singleDeltaSweep{
		derived:       d,
		multiplier:    multiplier,
		relMultiplier: relMultiplier,
		iqrRelDeltas:  iqrRelDeltas,
	}

	out := in.Clone()

	var fwd goodCursor

	for i := range out.Len() {
		if !out.Candidate(i) {
			continue
		}

		if !fwd.set || !sw.jump(out.Values, fwd.index, i) {
			fwd.accept(i)

			continue
		}

		if sw.deviation(i) < sw.deviation(fwd.index) {
			fwd.accept(i)

			continue
		}

		out.remove(StageSingleDeltaForward, i, series.CategorySingleDelta)
	}

	var bwd goodCursor

	for i := out.Len() - 1; i >= 0; i-- {
		if !out.Candidate(i) {
			continue
		}

		if !bwd.set || !sw.jump(out.Values, bwd.index, i) {
			bwd.accept(i)

			continue
		}

		out.remove(StageSingleDeltaBackward, i, series.CategorySingleDelta)
	}

	return out
}
