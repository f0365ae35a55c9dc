package table

import (
	"github.com/carbocation/hmmdash/features"
	"github.com/carbocation/hmmdash/literal"
	"gopkg.in/guregu/null.v3"
)

// Row is one generated HMM configuration with its evaluation results. The
// embedded Features are derived once at load time. Rows are not modified
// after Load returns; use Clone to build a variant.
type Row struct {
	NumStates       int
	NumObservations int

	A  [][]float64
	B  [][]float64
	Pi []float64

	features.Features

	// Values as printed in the table, when it carried them.
	ReportedAEntropy null.Float
	ReportedBEntropy null.Float
	SteadyState      literal.Value

	Metrics map[MetricKey]literal.Value

	// Other columns: numeric or bracketed cells in Values, anything else in
	// Text.
	Values map[string]literal.Value
	Text   map[string]string

	// Source is the name of the table the row was loaded from.
	Source string
}

func newRow() *Row {
	return &Row{
		Metrics: make(map[MetricKey]literal.Value),
		Values:  make(map[string]literal.Value),
		Text:    make(map[string]string),
	}
}

// Metric returns the value stored under k.
func (r *Row) Metric(k MetricKey) (literal.Value, bool) {
	v, ok := r.Metrics[k]
	return v, ok
}

// Number returns a scalar column by name. Structural columns and derived
// descriptors are addressable by their canonical names.
func (r *Row) Number(name string) (float64, bool) {
	switch name {
	case "num_states":
		return float64(r.NumStates), true
	case "num_observations":
		return float64(r.NumObservations), true
	case "a_entropy":
		return r.AEntropy, true
	case "b_entropy":
		return r.BEntropy, true
	case "lambda2":
		return r.Lambda2.Float64, r.Lambda2.Valid
	}

	v, ok := r.Values[name]
	if !ok {
		return 0, false
	}

	return v.Float()
}

// Clone returns a copy whose maps can be modified without touching r. The
// matrices are shared, since nothing writes to them.
func (r *Row) Clone() *Row {
	out := *r
	out.Metrics = make(map[MetricKey]literal.Value, len(r.Metrics))
	for k, v := range r.Metrics {
		out.Metrics[k] = v
	}
	out.Values = make(map[string]literal.Value, len(r.Values))
	for k, v := range r.Values {
		out.Values[k] = v
	}
	out.Text = make(map[string]string, len(r.Text))
	for k, v := range r.Text {
		out.Text[k] = v
	}

	return &out
}
