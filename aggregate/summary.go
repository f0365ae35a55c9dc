package aggregate

import (
	"fmt"
	"strconv"

	"github.com/carbocation/hmmdash/table"
	"github.com/montanaflynn/stats"
	"gopkg.in/guregu/null.v3"
)

// Stats describes one descriptor over a row set. Every field is absent when
// the set is empty.
type Stats struct {
	Mean   null.Float `json:"mean"`
	Median null.Float `json:"median"`
	Min    null.Float `json:"min"`
	Max    null.Float `json:"max"`
	StdDev null.Float `json:"std_dev"`
}

// Summary is the information panel shown next to a chart.
type Summary struct {
	Count    int   `json:"count"`
	AEntropy Stats `json:"a_entropy"`
	BEntropy Stats `json:"b_entropy"`
}

// Summarize describes the entropy of the configurations in rows.
func Summarize(rows []*table.Row) (Summary, error) {
	a := make([]float64, 0, len(rows))
	b := make([]float64, 0, len(rows))
	for _, r := range rows {
		a = append(a, r.AEntropy)
		b = append(b, r.BEntropy)
	}

	out := Summary{Count: len(rows)}

	var err error
	if out.AEntropy, err = describe(a); err != nil {
		return out, fmt.Errorf("a_entropy: %w", err)
	}
	if out.BEntropy, err = describe(b); err != nil {
		return out, fmt.Errorf("b_entropy: %w", err)
	}

	return out, nil
}

func describe(values []float64) (Stats, error) {
	var out Stats

	data := stats.LoadRawData(values)
	if data.Len() < 1 {
		return out, nil
	}

	for _, field := range []struct {
		dst *null.Float
		fn  func() (float64, error)
	}{
		{&out.Mean, data.Mean},
		{&out.Median, data.Median},
		{&out.Min, data.Min},
		{&out.Max, data.Max},
		{&out.StdDev, data.StandardDeviation},
	} {
		v, err := field.fn()
		if err != nil {
			return out, err
		}
		*field.dst = null.FloatFrom(v)
	}

	return out, nil
}

// String renders the fields for plain-text output, with N/A for absent ones.
func (s Stats) String() string {
	f := func(v null.Float) string {
		if !v.Valid {
			return "N/A"
		}
		return strconv.FormatFloat(v.Float64, 'f', 3, 64)
	}

	return fmt.Sprintf("mean=%s median=%s min=%s max=%s sd=%s", f(s.Mean), f(s.Median), f(s.Min), f(s.Max), f(s.StdDev))
}
