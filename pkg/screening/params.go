// Package screening flags data-quality anomalies in hourly demand series.
//
// A Screener passes a series through a fixed sequence of filters. Each filter
// only considers samples that are still OKAY, nulls the values it rejects and
// labels them with its own category, so the first filter to reject a sample
// owns it. Rolling statistics are derived once, after the global filters, and
// are read-only input to the later stages.
package screening

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidParams is returned for out-of-range screening parameters.
var ErrInvalidParams = errors.New("invalid screening parameters")

// Params holds the screening thresholds. All fields are required.
type Params struct {
	// ShortHourWindow is the half width in hours of the short rolling median.
	ShortHourWindow int `json:"short_hour_window" mapstructure:"short_hour_window" yaml:"short_hour_window"`
	// IQRHours is the half width in hours of the rolling IQR windows.
	IQRHours int `json:"iqr_hours" mapstructure:"iqr_hours" yaml:"iqr_hours"`
	// NDays sets the diurnal template span and the long rolling median half width (NDays*24 hours).
	NDays int `json:"n_days" mapstructure:"n_days" yaml:"n_days"`

	GlobalDemCut          float64 `json:"global_dem_cut" mapstructure:"global_dem_cut" yaml:"global_dem_cut"`
	LocalDemCutUp         float64 `json:"local_dem_cut_up" mapstructure:"local_dem_cut_up" yaml:"local_dem_cut_up"`
	LocalDemCutDown       float64 `json:"local_dem_cut_down" mapstructure:"local_dem_cut_down" yaml:"local_dem_cut_down"`
	DeltaMultiplier       float64 `json:"delta_multiplier" mapstructure:"delta_multiplier" yaml:"delta_multiplier"`
	DeltaSingleMultiplier float64 `json:"delta_single_multiplier" mapstructure:"delta_single_multiplier" yaml:"delta_single_multiplier"`
	RelMultiplier         float64 `json:"rel_multiplier" mapstructure:"rel_multiplier" yaml:"rel_multiplier"`

	// AnomalousRegionsWidth is the half width in hours of the anomalous region filter.
	AnomalousRegionsWidth int `json:"anomalous_regions_width" mapstructure:"anomalous_regions_width" yaml:"anomalous_regions_width"`
	// AnomalousPct is the good-data fraction at or below which a region is anomalous.
	AnomalousPct float64 `json:"anomalous_pct" mapstructure:"anomalous_pct" yaml:"anomalous_pct"`
}

// Validate reports the first out-of-range parameter.
func (p Params) Validate() error {
	windows := []struct {
		name  string
		value int
	}{
		{"short_hour_window", p.ShortHourWindow},
		{"iqr_hours", p.IQRHours},
		{"n_days", p.NDays},
		{"anomalous_regions_width", p.AnomalousRegionsWidth},
	}

	for _, w := range windows {
		if w.value < 1 {
			return fmt.Errorf("%w: %s must be at least 1, got %d", ErrInvalidParams, w.name, w.value)
		}
	}

	multipliers := []struct {
		name  string
		value float64
	}{
		{"global_dem_cut", p.GlobalDemCut},
		{"local_dem_cut_up", p.LocalDemCutUp},
		{"local_dem_cut_down", p.LocalDemCutDown},
		{"delta_multiplier", p.DeltaMultiplier},
		{"delta_single_multiplier", p.DeltaSingleMultiplier},
		{"rel_multiplier", p.RelMultiplier},
	}

	for _, m := range multipliers {
		if !(m.value > 0) || math.IsInf(m.value, 0) {
			return fmt.Errorf("%w: %s must be a positive number, got %v", ErrInvalidParams, m.name, m.value)
		}
	}

	if !(p.AnomalousPct >= 0 && p.AnomalousPct <= 1) {
		return fmt.Errorf("%w: anomalous_pct must be within [0, 1], got %v", ErrInvalidParams, p.AnomalousPct)
	}

	return nil
}

// LongHourWindow is the half width in hours of the long rolling median.
func (p Params) LongHourWindow() int {
	return p.NDays * hoursPerDay
}
