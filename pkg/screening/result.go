package screening

import (
	"github.com/Sumatoshi-tech/gridscreen/pkg/series"
)

// Result is the outcome of one screening run.
type Result struct {
	// Series is the labeled copy of the input: every removed value is NaN and
	// its sample carries the category of the stage that removed it.
	Series series.Series

	// Derived holds the statistics computed after the global stages.
	Derived *Derived

	// IQRRelativeDeltas is the run-wide IQR of the hour-to-hour relative
	// deviation deltas.
	IQRRelativeDeltas float64

	// Removed maps each stage that removed anything to the removed values,
	// aligned with Series (NaN where the stage removed nothing).
	Removed map[Stage][]float64
}

// Counts returns the number of samples per category. Every category is
// present, including those with a zero count.
func (r *Result) Counts() map[series.Category]int {
	counts := make(map[series.Category]int, len(series.AllCategories()))

	for _, c := range series.AllCategories() {
		counts[c] = 0
	}

	for _, sample := range r.Series.Samples {
		counts[sample.Category]++
	}

	return counts
}

// Flagged returns the number of samples carrying a filter category.
func (r *Result) Flagged() int {
	total := 0

	for _, sample := range r.Series.Samples {
		if sample.Category.IsFiltered() {
			total++
		}
	}

	return total
}

func newResult(in series.Series, st State, d *Derived) *Result {
	out := in.Clone()

	for i := range out.Samples {
		out.Samples[i].Value = st.Values[i]
		out.Samples[i].Category = st.Categories[i]
	}

	return &Result{
		Series:            out,
		Derived:           d,
		IQRRelativeDeltas: d.IQRRelativeDeltas,
		Removed:           st.Removed,
	}
}
