package screening

import (
	"github.com/Sumatoshi-tech/gridscreen/pkg/alg/stats"
	"github.com/Sumatoshi-tech/gridscreen/pkg/series"
)

// Derived holds the per-sample statistics the local stages compare against.
// It is computed once per run from the values left after the global filters.
type Derived struct {
	RollingShort       []float64 // Short centered rolling median.
	RollingLong        []float64 // Long centered rolling median.
	DemMinusRolling    []float64 // Value minus RollingShort.
	DemMinusRollingIQR []float64 // Rolling IQR of DemMinusRolling.
	DeltaPre           []float64 // value[i] - value[i-1].
	DeltaPost          []float64 // value[i] - value[i+1].
	DeltaIQR           []float64 // Rolling IQR of DeltaPre.
	HourlyScale        []float64 // Diurnal template scale factor.
	RelDev             []float64 // Value relative to RollingShort*HourlyScale.
	RelDevLong         []float64 // Value relative to RollingLong*HourlyScale.
	RelDevDeltaPre     []float64 // RelDev[i] - RelDev[i-1].
	RelDevDeltaPost    []float64 // RelDev[i] - RelDev[i+1].

	// IQRRelativeDeltas is the IQR of RelDevDeltaPre over the whole series.
	IQRRelativeDeltas float64
}

// ComputeDerived derives the rolling statistics of values.
func ComputeDerived(values []float64, p Params) *Derived {
	d := &Derived{}

	d.RollingShort = stats.RollingMedian(values, p.ShortHourWindow, true)
	d.RollingLong = stats.RollingMedian(values, p.LongHourWindow(), true)
	d.DemMinusRolling = subtract(values, d.RollingShort)
	d.DemMinusRollingIQR = stats.RollingIQR(d.DemMinusRolling, p.IQRHours, true)
	d.DeltaPre = stats.Diff(values, 1)
	d.DeltaPost = stats.Diff(values, -1)
	d.DeltaIQR = stats.RollingIQR(d.DeltaPre, p.IQRHours, true)
	d.HourlyScale = DiurnalTemplate(d.DemMinusRolling, d.RollingLong, p.NDays)
	d.RelDev = relativeDeviation(values, d.RollingShort, d.HourlyScale)
	d.RelDevLong = relativeDeviation(values, d.RollingLong, d.HourlyScale)
	d.RelDevDeltaPre = stats.Diff(d.RelDev, 1)
	d.RelDevDeltaPost = stats.Diff(d.RelDev, -1)
	d.IQRRelativeDeltas = stats.NanIQR(d.RelDevDeltaPre)

	return d
}

// Columns exposes the derived statistics as named CSV columns.
func (d *Derived) Columns() []series.Column {
	return []series.Column{
		{Name: "rolling_dem", Values: d.RollingShort},
		{Name: "rolling_dem_long", Values: d.RollingLong},
		{Name: "dem_minus_rolling", Values: d.DemMinusRolling},
		{Name: "dem_minus_rolling_iqr", Values: d.DemMinusRollingIQR},
		{Name: "delta_pre", Values: d.DeltaPre},
		{Name: "delta_post", Values: d.DeltaPost},
		{Name: "delta_rolling_iqr", Values: d.DeltaIQR},
		{Name: "hourly_median_dem_dev", Values: d.HourlyScale},
		{Name: "dem_rel_diff_wrt_hourly", Values: d.RelDev},
		{Name: "dem_rel_diff_wrt_hourly_long", Values: d.RelDevLong},
		{Name: "dem_rel_diff_wrt_hourly_delta_pre", Values: d.RelDevDeltaPre},
		{Name: "dem_rel_diff_wrt_hourly_delta_post", Values: d.RelDevDeltaPost},
	}
}

func subtract(a, b []float64) []float64 {
	out := make([]float64, len(a))

	for i := range a {
		out[i] = a[i] - b[i]
	}

	return out
}

// relativeDeviation is value / (rolling * scale); NaN where the expectation is
// zero or undefined.
func relativeDeviation(values, rolling, scale []float64) []float64 {
	out := make([]float64, len(values))

	for i, v := range values {
		out[i] = stats.Ratio(v, rolling[i]*scale[i])
	}

	return out
}
