// Package aggregate reduces a filtered row set to one mean per model and
// sequence length. Absent results stay absent: a zero accuracy is data, an
// empty position is not.
package aggregate

import (
	"math"

	"github.com/carbocation/hmmdash/table"
	"gonum.org/v1/gonum/stat"
	"gopkg.in/guregu/null.v3"
)

// DefaultSeqLens is the sequence-length axis the experiment generators use.
var DefaultSeqLens = []int{4, 8, 16, 32, 64, 128, 256, 512, 1024, 2048}

// Point is the reduction at one sequence length.
type Point struct {
	SeqLen int        `json:"seq_len"`
	Mean   null.Float `json:"mean"`
	StdDev null.Float `json:"std_dev"`
	N      int        `json:"n"`
}

// Series has exactly one Point per entry of the sequence-length axis it was
// built for.
type Series struct {
	Key     table.MetricKey `json:"-"`
	Model   string          `json:"model"`
	Measure table.Measure   `json:"measure"`

	// Dataset is set when series from several tables are compared.
	Dataset string  `json:"dataset,omitempty"`
	Points  []Point `json:"points"`
}

// Means returns the mean of every point.
func (s Series) Means() []null.Float {
	out := make([]null.Float, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Mean
	}

	return out
}

// Empty reports whether no point has data.
func (s Series) Empty() bool {
	for _, p := range s.Points {
		if p.Mean.Valid {
			return false
		}
	}

	return true
}

// samples collects the finite values of key at position i. A scalar counts at
// every position; a list contributes its element i, if it has one.
func samples(rows []*table.Row, key table.MetricKey, i int) []float64 {
	out := make([]float64, 0, len(rows))
	for _, r := range rows {
		v, ok := r.Metric(key)
		if !ok {
			continue
		}

		switch {
		case v.IsNumber():
			f, _ := v.Float()
			out = append(out, f)
		case v.IsList() && i < v.Len():
			if f, ok := v.At(i).Float(); ok && !math.IsNaN(f) && !math.IsInf(f, 0) {
				out = append(out, f)
			}
		}
	}

	return out
}

// Mean is the arithmetic mean of key at each position of seqLens, absent
// where no row has a finite value. An unknown key yields an all-absent slice
// of the same length.
func Mean(rows []*table.Row, key table.MetricKey, seqLens []int) []null.Float {
	return Aggregate(rows, key, seqLens).Means()
}

// Aggregate is Mean with the sample count and standard deviation of each
// point. The standard deviation needs at least two samples.
func Aggregate(rows []*table.Row, key table.MetricKey, seqLens []int) Series {
	s := Series{
		Key:     key,
		Model:   key.Model,
		Measure: key.Measure,
		Points:  make([]Point, len(seqLens)),
	}

	for i, seqLen := range seqLens {
		x := samples(rows, key, i)
		p := Point{SeqLen: seqLen, N: len(x)}

		switch len(x) {
		case 0:
		case 1:
			p.Mean = null.FloatFrom(x[0])
		default:
			mean, std := stat.MeanStdDev(x, nil)
			p.Mean = null.FloatFrom(mean)
			p.StdDev = null.FloatFrom(std)
		}

		s.Points[i] = p
	}

	return s
}
