package aggregate

import (
	"errors"
	"math"
	"testing"

	"github.com/carbocation/hmmdash/features"
	"github.com/carbocation/hmmdash/index"
	"github.com/carbocation/hmmdash/literal"
	"github.com/carbocation/hmmdash/table"
	"github.com/gocarina/gocsv"
)

var (
	llmAcc    = table.MetricKey{Model: "llm_emission", Measure: table.Accuracy}
	randomAcc = table.MetricKey{Model: "random_emission", Measure: table.Accuracy}
)

func row(states int, aEnt float64, metrics map[table.MetricKey]literal.Value) *table.Row {
	return &table.Row{
		NumStates:       states,
		NumObservations: 4,
		Features: features.Features{
			AEntropy:  aEnt,
			ACategory: features.Categorize(aEnt),
			BCategory: features.Entropy0,
		},
		Metrics: metrics,
	}
}

func TestMeanSkipsNonFinite(t *testing.T) {
	rows := []*table.Row{
		row(4, 1, map[table.MetricKey]literal.Value{llmAcc: literal.Floats(0.5, math.NaN(), 0.9)}),
	}

	got := Mean(rows, llmAcc, []int{8, 16, 32})
	if len(got) != 3 {
		t.Fatalf("Expected 3 points, got %d", len(got))
	}
	if !got[0].Valid || got[0].Float64 != 0.5 {
		t.Errorf("Position 0: expected 0.5, got %+v", got[0])
	}
	if got[1].Valid {
		t.Errorf("Position 1: expected absent, got %+v", got[1])
	}
	if !got[2].Valid || got[2].Float64 != 0.9 {
		t.Errorf("Position 2: expected 0.9, got %+v", got[2])
	}
}

func TestMeanUnknownKeyIsAbsent(t *testing.T) {
	rows := []*table.Row{
		row(4, 1, map[table.MetricKey]literal.Value{llmAcc: literal.Floats(0.5, 0.6)}),
	}

	got := Mean(rows, table.MetricKey{Model: "gpt", Measure: table.Hellinger}, DefaultSeqLens)
	if len(got) != len(DefaultSeqLens) {
		t.Fatalf("Expected %d points, got %d", len(DefaultSeqLens), len(got))
	}
	for i, v := range got {
		if v.Valid {
			t.Errorf("Position %d: expected absent, got %v", i, v.Float64)
		}
	}

	if got := Mean(nil, llmAcc, []int{4, 8}); len(got) != 2 || got[0].Valid || got[1].Valid {
		t.Errorf("Expected two absent points for no rows, got %+v", got)
	}
}

func TestMeanScalarsAndShortLists(t *testing.T) {
	rows := []*table.Row{
		row(4, 1, map[table.MetricKey]literal.Value{llmAcc: literal.Numeric(0.3)}),
		row(4, 1, map[table.MetricKey]literal.Value{llmAcc: literal.Floats(0.5)}),
		row(4, 1, map[table.MetricKey]literal.Value{llmAcc: literal.Missing()}),
		row(4, 1, map[table.MetricKey]literal.Value{llmAcc: literal.Floats(0.1, math.Inf(1), 0)}),
	}

	s := Aggregate(rows, llmAcc, []int{4, 8, 16})

	// Position 0: 0.3, 0.5, 0.1. Position 1: 0.3. Position 2: 0.3, 0.
	for i, c := range []struct {
		Mean float64
		N    int
	}{
		{0.3, 3},
		{0.3, 1},
		{0.15, 2},
	} {
		p := s.Points[i]
		if p.N != c.N || !p.Mean.Valid || math.Abs(p.Mean.Float64-c.Mean) > 1e-12 {
			t.Errorf("Position %d: expected mean %f over %d, got %+v", i, c.Mean, c.N, p)
		}
	}
	if s.Points[1].StdDev.Valid {
		t.Error("A single sample should have no standard deviation")
	}
	if !s.Points[0].StdDev.Valid || math.Abs(s.Points[0].StdDev.Float64-0.2) > 1e-12 {
		t.Errorf("Expected a standard deviation of 0.2, got %+v", s.Points[0].StdDev)
	}
	if s.Points[2].SeqLen != 16 {
		t.Errorf("Expected sequence length 16, got %d", s.Points[2].SeqLen)
	}
}

func TestZeroIsNotAbsent(t *testing.T) {
	rows := []*table.Row{
		row(4, 1, map[table.MetricKey]literal.Value{llmAcc: literal.Floats(0, 0)}),
	}

	got := Mean(rows, llmAcc, []int{4, 8})
	if !got[0].Valid || got[0].Float64 != 0 {
		t.Errorf("Expected a present zero, got %+v", got[0])
	}
}

func fixture() ([]*table.Row, *table.Catalog) {
	rows := []*table.Row{
		row(4, 1, map[table.MetricKey]literal.Value{llmAcc: literal.Floats(0.4, 0.6), randomAcc: literal.Numeric(0.25)}),
		row(4, 1, map[table.MetricKey]literal.Value{llmAcc: literal.Floats(0.6, 0.8), randomAcc: literal.Numeric(0.25)}),
		row(8, 2, map[table.MetricKey]literal.Value{llmAcc: literal.Floats(0.1, 0.1)}),
	}

	return rows, table.NewCatalog(llmAcc, randomAcc)
}

func TestRun(t *testing.T) {
	rows, catalog := fixture()

	res, err := Run(rows, catalog, Query{
		Filter:  index.Filter{}.Where(index.NumStates, index.Number(4)),
		Models:  []string{"llm_emission", "random_emission"},
		Measure: table.Accuracy,
		SeqLens: []int{4, 8},
	})
	if err != nil {
		t.Fatal(err)
	}

	if res.Matched != 2 || res.Empty() {
		t.Errorf("Expected 2 matched rows, got %d", res.Matched)
	}
	if len(res.Series) != 2 {
		t.Fatalf("Expected 2 series, got %d", len(res.Series))
	}
	if m := res.Series[0].Means(); math.Abs(m[0].Float64-0.5) > 1e-12 || math.Abs(m[1].Float64-0.7) > 1e-12 {
		t.Errorf("Unexpected llm means %+v", m)
	}
	if m := res.Series[1].Means(); m[0].Float64 != 0.25 || m[1].Float64 != 0.25 {
		t.Errorf("Unexpected random means %+v", m)
	}
}

func TestRunAllModelsAndDefaultAxis(t *testing.T) {
	rows, catalog := fixture()

	res, err := Run(rows, catalog, Query{Measure: table.Accuracy})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Series) != 2 || res.Series[0].Model != "llm_emission" {
		t.Errorf("Expected every accuracy model in order, got %+v", res.Series)
	}
	if len(res.Series[0].Points) != len(DefaultSeqLens) {
		t.Errorf("Expected the default axis, got %d points", len(res.Series[0].Points))
	}
	if res.Matched != 3 {
		t.Errorf("The empty filter should match every row, got %d", res.Matched)
	}
}

func TestRunSeqLensArePositional(t *testing.T) {
	rows, catalog := fixture()
	q := Query{
		Filter:  index.Filter{}.Where(index.NumStates, index.Number(4)),
		Models:  []string{"llm_emission"},
		Measure: table.Accuracy,
	}

	q.SeqLens = []int{4, 8}
	first, err := Run(rows, catalog, q)
	if err != nil {
		t.Fatal(err)
	}

	// Relabelling the axis keeps the values of the first two list elements.
	q.SeqLens = []int{64, 128}
	relabelled, err := Run(rows, catalog, q)
	if err != nil {
		t.Fatal(err)
	}

	a, b := first.Series[0].Points, relabelled.Series[0].Points
	if len(b) != 2 || b[0].SeqLen != 64 || b[1].SeqLen != 128 {
		t.Fatalf("Unexpected axis %+v", b)
	}
	for i := range b {
		if a[i].Mean != b[i].Mean {
			t.Errorf("Position %d: expected %+v, got %+v", i, a[i].Mean, b[i].Mean)
		}
	}
}

func TestRunRejectsUnknownMetric(t *testing.T) {
	rows, catalog := fixture()

	_, err := Run(rows, catalog, Query{Models: []string{"llm_emission"}, Measure: table.Hellinger})
	if !errors.Is(err, table.ErrUnknownMetric) {
		t.Errorf("Expected ErrUnknownMetric, got %v", err)
	}

	_, err = Run(rows, catalog, Query{Models: []string{"llm_emission"}})
	if !errors.Is(err, ErrNoMeasure) {
		t.Errorf("Expected ErrNoMeasure, got %v", err)
	}
}

func TestRunEmptyFilteredSet(t *testing.T) {
	rows, catalog := fixture()

	res, err := Run(rows, catalog, Query{
		Filter:  index.Filter{}.Where(index.NumStates, index.Number(16)),
		Models:  []string{"llm_emission"},
		Measure: table.Accuracy,
		SeqLens: []int{4, 8},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Empty() {
		t.Error("Expected an empty result")
	}
	if len(res.Series) != 1 || !res.Series[0].Empty() || len(res.Series[0].Points) != 2 {
		t.Errorf("Expected one all-absent series, got %+v", res.Series)
	}
}

func TestCompareDatasets(t *testing.T) {
	rows, catalog := fixture()
	other := []*table.Row{
		row(4, 1, map[table.MetricKey]literal.Value{llmAcc: literal.Floats(0.9, 0.9)}),
	}

	res, err := CompareDatasets([]Dataset{
		{Name: "Qwen2.5-7B", Rows: rows, Catalog: catalog},
		{Name: "Qwen2.5-3B", Rows: other, Catalog: table.NewCatalog(llmAcc)},
	}, Query{
		Filter:  index.Filter{}.Where(index.NumStates, index.Number(4)),
		Models:  []string{"llm_emission", "random_emission"},
		Measure: table.Accuracy,
		SeqLens: []int{4, 8},
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(res.Series) != 4 || res.Matched != 3 {
		t.Fatalf("Expected 4 series over 3 rows, got %d over %d", len(res.Series), res.Matched)
	}
	if res.Series[2].Dataset != "Qwen2.5-3B" || res.Series[2].Means()[0].Float64 != 0.9 {
		t.Errorf("Unexpected series %+v", res.Series[2])
	}
	if !res.Series[3].Empty() {
		t.Error("A model the dataset does not report should be all absent")
	}

	if _, err := CompareDatasets(nil, Query{Models: []string{"llm_emission"}, Measure: table.Accuracy}); !errors.Is(err, table.ErrUnknownMetric) {
		t.Errorf("Expected ErrUnknownMetric, got %v", err)
	}
}

func TestSummarize(t *testing.T) {
	rows, _ := fixture()

	s, err := Summarize(rows)
	if err != nil {
		t.Fatal(err)
	}
	if s.Count != 3 {
		t.Errorf("Expected 3 rows, got %d", s.Count)
	}
	if s.AEntropy.Min.Float64 != 1 || s.AEntropy.Max.Float64 != 2 || math.Abs(s.AEntropy.Mean.Float64-4.0/3) > 1e-12 {
		t.Errorf("Unexpected A entropy summary %s", s.AEntropy)
	}

	empty, err := Summarize(nil)
	if err != nil {
		t.Fatal(err)
	}
	if empty.Count != 0 || empty.AEntropy.Mean.Valid {
		t.Errorf("Expected an absent summary, got %+v", empty)
	}
	if empty.AEntropy.String() != "mean=N/A median=N/A min=N/A max=N/A sd=N/A" {
		t.Errorf("Unexpected rendering %q", empty.AEntropy.String())
	}
}

func TestTidyCSV(t *testing.T) {
	rows := []*table.Row{
		row(4, 1, map[table.MetricKey]literal.Value{llmAcc: literal.Floats(0.5, math.NaN())}),
	}
	s := Aggregate(rows, llmAcc, []int{4, 8})

	points := Tidy([]Series{s})
	if len(points) != 2 {
		t.Fatalf("Expected 2 tidy rows, got %d", len(points))
	}

	out, err := gocsv.MarshalString(&points)
	if err != nil {
		t.Fatal(err)
	}

	expected := "dataset,model,measure,seq_len,mean,std_dev,n\n" +
		",llm_emission,acc,4,0.5,,1\n" +
		",llm_emission,acc,8,,,0\n"
	if out != expected {
		t.Errorf("Expected\n%s\ngot\n%s", expected, out)
	}
}
