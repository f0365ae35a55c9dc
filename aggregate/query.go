package aggregate

import (
	"errors"
	"fmt"

	"github.com/carbocation/hmmdash/index"
	"github.com/carbocation/hmmdash/table"
)

var ErrNoMeasure = errors.New("no measure selected")

// Query is one aggregate request: which rows, which predictors, which
// measure, and along which sequence-length axis.
type Query struct {
	Filter  index.Filter
	Models  []string
	Measure table.Measure

	// SeqLens names the sequence length of each position in the metric
	// lists: element i is reported at SeqLens[i]. It describes the table's
	// axis and does not pick lengths out of it. Defaults to DefaultSeqLens.
	SeqLens []int
}

func (q Query) seqLens() []int {
	if len(q.SeqLens) == 0 {
		return DefaultSeqLens
	}
	return q.SeqLens
}

// Result holds one series per requested model. Matched is the number of rows
// that passed the filter; zero is a valid outcome, not an error.
type Result struct {
	Series  []Series `json:"series"`
	Matched int      `json:"matched"`
}

// Empty reports whether the filter selected no configuration.
func (r Result) Empty() bool {
	return r.Matched == 0
}

// keys validates every requested model against catalog. With no models named,
// every model reporting the measure is used.
func (q Query) keys(catalog *table.Catalog) ([]table.MetricKey, error) {
	if q.Measure == "" {
		return nil, ErrNoMeasure
	}

	models := q.Models
	if len(models) == 0 {
		models = catalog.Models(q.Measure)
		if len(models) == 0 {
			return nil, fmt.Errorf("%w: no model reports %s", table.ErrUnknownMetric, q.Measure)
		}
	}

	out := make([]table.MetricKey, 0, len(models))
	for _, m := range models {
		k, err := catalog.Key(m, q.Measure)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}

	return out, nil
}

// Run validates the query against catalog, filters rows and aggregates one
// series per model. Unknown model and measure pairs fail before any row is
// touched.
func Run(rows []*table.Row, catalog *table.Catalog, q Query) (Result, error) {
	keys, err := q.keys(catalog)
	if err != nil {
		return Result{}, err
	}

	matched := q.Filter.Apply(rows)
	res := Result{
		Series:  make([]Series, 0, len(keys)),
		Matched: len(matched),
	}
	for _, k := range keys {
		res.Series = append(res.Series, Aggregate(matched, k, q.seqLens()))
	}

	return res, nil
}

// CompareModels puts several predictors side by side on one table.
func CompareModels(rows []*table.Row, catalog *table.Catalog, q Query) (Result, error) {
	return Run(rows, catalog, q)
}

// Dataset is one named table taking part in a comparison.
type Dataset struct {
	Name    string
	Rows    []*table.Row
	Catalog *table.Catalog
}

// CompareDatasets aggregates the same predictors over several tables, one
// series per dataset and model. A model a dataset does not report gives an
// all-absent series for that dataset; a model no dataset reports is an
// error.
func CompareDatasets(sets []Dataset, q Query) (Result, error) {
	catalogs := make([]*table.Catalog, 0, len(sets))
	for _, ds := range sets {
		catalogs = append(catalogs, ds.Catalog)
	}
	keys, err := q.keys(table.UnionCatalogs(catalogs...))
	if err != nil {
		return Result{}, err
	}

	res := Result{Series: make([]Series, 0, len(sets)*len(keys))}
	for _, ds := range sets {
		matched := q.Filter.Apply(ds.Rows)
		res.Matched += len(matched)

		for _, k := range keys {
			s := Aggregate(matched, k, q.seqLens())
			s.Dataset = ds.Name
			res.Series = append(res.Series, s)
		}
	}

	return res, nil
}
