package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Sumatoshi-tech/gridscreen/pkg/report"
	"github.com/Sumatoshi-tech/gridscreen/pkg/screening"
	"github.com/Sumatoshi-tech/gridscreen/pkg/series"
)

// Request payload errors.
var (
	ErrEmptySeries     = errors.New("request carries no samples")
	ErrMixedTimestamps = errors.New("either every sample or no sample must carry a timestamp")
)

// SamplePayload is one sample on the wire. A null value is a missing sample.
type SamplePayload struct {
	Timestamp *time.Time      `json:"timestamp,omitempty"`
	Value     *float64        `json:"value"`
	Category  series.Category `json:"category,omitempty"`
}

// ScreenRequest is the body of POST /v1/screen.
type ScreenRequest struct {
	Name string `json:"name,omitempty"`
	// Params overrides individual screening parameters; omitted fields keep
	// the server defaults.
	Params      json.RawMessage `json:"params,omitempty"`
	Samples     []SamplePayload `json:"samples"`
	FillGaps    bool            `json:"fill_gaps,omitempty"`
	WithDerived bool            `json:"with_derived,omitempty"`
}

// ScreenResponse is the body answered by POST /v1/screen.
type ScreenResponse struct {
	RequestID string                `json:"request_id"`
	Params    screening.Params      `json:"params"`
	Samples   []SamplePayload       `json:"samples"`
	Summary   report.Summary        `json:"summary"`
	Derived   map[string][]*float64 `json:"derived,omitempty"`
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	RequestID string `json:"request_id,omitempty"`
	Error     string `json:"error"`
}

// params resolves the request overrides on top of defaults. Unknown
// parameter names are rejected.
func (req *ScreenRequest) params(defaults screening.Params) (screening.Params, error) {
	p := defaults

	if len(req.Params) == 0 {
		return p, nil
	}

	dec := json.NewDecoder(bytes.NewReader(req.Params))
	dec.DisallowUnknownFields()

	err := dec.Decode(&p)
	if err != nil {
		return screening.Params{}, fmt.Errorf("%w: %w", screening.ErrInvalidParams, err)
	}

	return p, nil
}

// series converts the payload samples. Either every sample carries a
// timestamp or none does.
func (req *ScreenRequest) series() (series.Series, error) {
	if len(req.Samples) == 0 {
		return series.Series{}, ErrEmptySeries
	}

	out := series.Series{Name: req.Name, Samples: make([]series.Sample, len(req.Samples))}
	stamped := req.Samples[0].Timestamp != nil

	for i, sp := range req.Samples {
		sample := series.Sample{Value: math.NaN(), Category: sp.Category}

		if sp.Value != nil {
			sample.Value = *sp.Value
		}

		if (sp.Timestamp != nil) != stamped {
			return series.Series{}, fmt.Errorf("%w: sample %d", ErrMixedTimestamps, i)
		}

		if stamped {
			sample.Timestamp = *sp.Timestamp
		}

		out.Samples[i] = sample
	}

	return out, nil
}

func toPayload(s series.Series) []SamplePayload {
	out := make([]SamplePayload, s.Len())

	for i, sample := range s.Samples {
		sp := SamplePayload{Value: nullable(sample.Value), Category: sample.Category}

		if !sample.Timestamp.IsZero() {
			ts := sample.Timestamp
			sp.Timestamp = &ts
		}

		out[i] = sp
	}

	return out
}

func derivedPayload(d *screening.Derived) map[string][]*float64 {
	columns := d.Columns()
	out := make(map[string][]*float64, len(columns))

	for _, col := range columns {
		values := make([]*float64, len(col.Values))

		for i, v := range col.Values {
			values[i] = nullable(v)
		}

		out[col.Name] = values
	}

	return out
}

// nullable maps NaN and infinities to JSON null.
func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}

	return &v
}
