package screening

import "github.com/Sumatoshi-tech/gridscreen/pkg/series"

// qualityProfile summarizes the good/bad layout around every sample. OKAY and
// MISSING samples count as good.
type qualityProfile struct {
	// prefix[i] is the number of good samples in [0, i).
	prefix []int
	// runLen is the length of the good run containing each sample. It stays 0
	// for bad samples and for a run still open at the end of the series.
	runLen []int
}

func newQualityProfile(categories []series.Category) qualityProfile {
	n := len(categories)
	q := qualityProfile{
		prefix: make([]int, n+1),
		runLen: make([]int, n),
	}

	start := -1

	for i, c := range categories {
		good := c == series.CategoryOkay || c == series.CategoryMissing

		q.prefix[i+1] = q.prefix[i]
		if good {
			q.prefix[i+1]++

			if start < 0 {
				start = i
			}

			continue
		}

		q.closeRun(start, i)
		start = -1
	}

	return q
}

func (q qualityProfile) closeRun(start, end int) {
	if start < 0 {
		return
	}

	for j := start; j < end; j++ {
		q.runLen[j] = end - start
	}
}

// fraction returns the share of good samples in [lo, hi]. A window that
// leaves the series has no measurement and reads as 0.
func (q qualityProfile) fraction(lo, hi int) float64 {
	if lo < 0 || hi >= len(q.runLen) {
		return 0
	}

	return float64(q.prefix[hi+1]-q.prefix[lo]) / float64(hi-lo+1)
}

// FilterAnomalousRegions removes OKAY samples stranded in stretches of poor
// data. Around every sample whose centered window of 2*width+1 samples is at
// most pct good, OKAY samples in [i-width, i+width) are removed unless they
// open or close a clean stretch (the width+1 samples before or after them
// are all good) or their closed good run is longer than width.
//
// Windows that do not fit inside the series read as 0 good, so the first
// and last width samples always trigger a scan and nothing is protected by
// an incomplete window.
func FilterAnomalousRegions(in State, width int, pct float64) State {
	out := in.Clone()
	n := in.Len()
	q := newQualityProfile(in.Categories)

	protected := func(j int) bool {
		return q.fraction(j-width, j) == 1 ||
			q.fraction(j, j+width) == 1 ||
			q.runLen[j] > width
	}

	for i := range n {
		if q.fraction(i-width, i+width) > pct {
			continue
		}

		for j := max(i-width, 0); j < min(i+width, n); j++ {
			if out.Candidate(j) && !protected(j) {
				out.remove(StageAnomalousRegion, j, series.CategoryAnomalousRegion)
			}
		}
	}

	return out
}
