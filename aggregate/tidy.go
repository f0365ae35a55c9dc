package aggregate

import (
	"strconv"

	"gopkg.in/guregu/null.v3"
)

// CSVFloat writes an absent value as an empty cell.
type CSVFloat struct {
	null.Float
}

func (f CSVFloat) MarshalCSV() (string, error) {
	if !f.Valid {
		return "", nil
	}
	return strconv.FormatFloat(f.Float64, 'g', -1, 64), nil
}

// TidyPoint is one long-format output row.
type TidyPoint struct {
	Dataset string   `csv:"dataset"`
	Model   string   `csv:"model"`
	Measure string   `csv:"measure"`
	SeqLen  int      `csv:"seq_len"`
	Mean    CSVFloat `csv:"mean"`
	StdDev  CSVFloat `csv:"std_dev"`
	N       int      `csv:"n"`
}

// Tidy flattens series into one row per point, keeping absent points.
func Tidy(series []Series) []TidyPoint {
	out := make([]TidyPoint, 0)
	for _, s := range series {
		for _, p := range s.Points {
			out = append(out, TidyPoint{
				Dataset: s.Dataset,
				Model:   s.Model,
				Measure: string(s.Measure),
				SeqLen:  p.SeqLen,
				Mean:    CSVFloat{p.Mean},
				StdDev:  CSVFloat{p.StdDev},
				N:       p.N,
			})
		}
	}

	return out
}
