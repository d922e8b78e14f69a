package screening

import (
	"math"
	"slices"

	"github.com/Sumatoshi-tech/gridscreen/pkg/series"
)

// Stage names a value-removing screening step.
type Stage string

// Screening stages in execution order.
const (
	StageNegOrZero           Stage = "neg_or_zero"
	StageIdenticalRun        Stage = "identical_run"
	StageGlobalDem           Stage = "global_dem"
	StageGlobalDemPlusMinus  Stage = "global_dem_plus_minus"
	StageLocalDemUp          Stage = "local_dem_up"
	StageLocalDemDown        Stage = "local_dem_down"
	StageDelta               Stage = "delta"
	StageSingleDeltaForward  Stage = "single_delta_forward"
	StageSingleDeltaBackward Stage = "single_delta_backward"
	StageAnomalousRegion     Stage = "anomalous_region"
)

// Stages returns every stage in execution order.
func Stages() []Stage {
	return []Stage{
		StageNegOrZero,
		StageIdenticalRun,
		StageGlobalDem,
		StageGlobalDemPlusMinus,
		StageLocalDemUp,
		StageLocalDemDown,
		StageDelta,
		StageSingleDeltaForward,
		StageSingleDeltaBackward,
		StageAnomalousRegion,
	}
}

// State is the working copy a stage consumes. Stage functions never modify
// their input; they return a new State.
type State struct {
	Values     []float64
	Categories []series.Category
	// Removed maps a stage to the values it nulled, aligned with Values
	// (NaN where the stage removed nothing).
	Removed map[Stage][]float64
}

// NewState labels the samples of s: a value-less sample is MISSING unless it
// already carries a filter category, every other sample is OKAY.
func NewState(s series.Series) State {
	st := State{
		Values:     s.Values(),
		Categories: make([]series.Category, s.Len()),
		Removed:    make(map[Stage][]float64),
	}

	for i, sample := range s.Samples {
		switch {
		case !sample.Missing():
			st.Categories[i] = series.CategoryOkay
		case sample.Category.IsFiltered():
			st.Categories[i] = sample.Category
		default:
			st.Categories[i] = series.CategoryMissing
		}
	}

	return st
}

// Len returns the number of samples.
func (st State) Len() int {
	return len(st.Values)
}

// Candidate reports whether sample i may still be flagged: it has a value and
// no earlier stage claimed it.
func (st State) Candidate(i int) bool {
	return st.Categories[i] == series.CategoryOkay && !math.IsNaN(st.Values[i])
}

// Clone returns a State that shares nothing mutable with st.
func (st State) Clone() State {
	removed := make(map[Stage][]float64, len(st.Removed))

	for stage, column := range st.Removed {
		removed[stage] = slices.Clone(column)
	}

	return State{
		Values:     slices.Clone(st.Values),
		Categories: slices.Clone(st.Categories),
		Removed:    removed,
	}
}

// RemovedCount returns how many values stage nulled.
func (st State) RemovedCount(stage Stage) int {
	count := 0

	for _, v := range st.Removed[stage] {
		if !math.IsNaN(v) {
			count++
		}
	}

	return count
}

// remove nulls sample i on behalf of stage and labels it.
func (st *State) remove(stage Stage, i int, category series.Category) {
	column, ok := st.Removed[stage]
	if !ok {
		column = make([]float64, len(st.Values))
		for j := range column {
			column[j] = math.NaN()
		}

		st.Removed[stage] = column
	}

	column[i] = st.Values[i]
	st.Values[i] = math.NaN()
	st.Categories[i] = category
}
