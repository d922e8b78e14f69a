// Package report summarizes screening results and renders the summaries as a
// terminal table, JSON or YAML.
package report

import (
	"math"

	"github.com/Sumatoshi-tech/gridscreen/pkg/screening"
	"github.com/Sumatoshi-tech/gridscreen/pkg/series"
)

// CategoryCount is the number of samples carrying one category.
type CategoryCount struct {
	Category series.Category `json:"category" yaml:"category"`
	Count    int             `json:"count"    yaml:"count"`
	Fraction float64         `json:"fraction" yaml:"fraction"`
}

// StageCount is the number of values one stage removed.
type StageCount struct {
	Stage   screening.Stage `json:"stage"   yaml:"stage"`
	Removed int             `json:"removed" yaml:"removed"`
}

// Summary describes the outcome of screening one series.
type Summary struct {
	Name         string  `json:"name"          yaml:"name"`
	Samples      int     `json:"samples"       yaml:"samples"`
	Okay         int     `json:"okay"          yaml:"okay"`
	Missing      int     `json:"missing"       yaml:"missing"`
	Flagged      int     `json:"flagged"       yaml:"flagged"`
	OkayFraction float64 `json:"okay_fraction" yaml:"okay_fraction"`
	// IQRRelativeDeltas is nil when the series had too little data to define it.
	IQRRelativeDeltas *float64        `json:"iqr_relative_deltas,omitempty" yaml:"iqr_relative_deltas,omitempty"`
	Categories        []CategoryCount `json:"categories"                    yaml:"categories"`
	Stages            []StageCount    `json:"stages"                        yaml:"stages"`
}

// Summarize builds the summary of res. Categories and stages are listed in
// screening order, zero counts included.
func Summarize(name string, res *screening.Result) Summary {
	counts := res.Counts()
	total := res.Series.Len()

	sum := Summary{
		Name:         name,
		Samples:      total,
		Okay:         counts[series.CategoryOkay],
		Missing:      counts[series.CategoryMissing],
		Flagged:      res.Flagged(),
		OkayFraction: fraction(counts[series.CategoryOkay], total),
	}

	if !math.IsNaN(res.IQRRelativeDeltas) {
		iqr := res.IQRRelativeDeltas
		sum.IQRRelativeDeltas = &iqr
	}

	for _, c := range series.AllCategories() {
		sum.Categories = append(sum.Categories, CategoryCount{
			Category: c,
			Count:    counts[c],
			Fraction: fraction(counts[c], total),
		})
	}

	for _, stage := range screening.Stages() {
		removed := 0

		for _, v := range res.Removed[stage] {
			if !math.IsNaN(v) {
				removed++
			}
		}

		sum.Stages = append(sum.Stages, StageCount{Stage: stage, Removed: removed})
	}

	return sum
}

func fraction(n, total int) float64 {
	if total == 0 {
		return 0
	}

	return float64(n) / float64(total)
}
