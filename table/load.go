// Package table loads HMM experiment-result tables into typed rows. Matrix
// and vector cells are decoded by package literal and the structural
// descriptors are derived by package features, once per row.
package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/carbocation/hmmdash"
	"github.com/carbocation/hmmdash/features"
	"github.com/carbocation/hmmdash/literal"
	"github.com/carbocation/pfx"
	"gopkg.in/guregu/null.v3"
)

var (
	ErrEmpty    = errors.New("table is empty")
	ErrNoHeader = errors.New("table has no header row")
)

// Table is a loaded result table.
type Table struct {
	Name    string
	Columns []string
	Rows    []*Row
	Catalog *Catalog

	// Dropped counts records without a usable state count.
	Dropped int
}

// Load parses raw delimited text with a header row. See LoadNamed.
func Load(raw []byte, schema Schema) (*Table, error) {
	return LoadNamed("", raw, schema)
}

// LoadNamed parses raw (optionally compressed) delimited text with a header
// row and tags every row with name. Records whose state count is absent,
// empty or not an integer are dropped and counted. Problems inside individual
// cells never fail the load.
func LoadNamed(name string, raw []byte, schema Schema) (*Table, error) {
	schema = schema.WithDefaults()

	raw, err := hmmdash.MaybeDecompress(raw)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %w", name, err))
	}
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, pfx.Err(fmt.Errorf("%s: %w", name, ErrEmpty))
	}

	var reader recordReader
	if hmmdash.DetectDataType(raw) == hmmdash.DataTypeXLS {
		records, err := workbookRecords(raw)
		if err != nil {
			return nil, pfx.Err(fmt.Errorf("%s: %w", name, err))
		}
		reader = &sliceReader{records: records}
	} else {
		csvReader := csv.NewReader(bytes.NewReader(raw))
		csvReader.Comma = hmmdash.DetermineDelimiterBytes(raw)
		csvReader.LazyQuotes = true
		csvReader.FieldsPerRecord = -1
		reader = csvReader
	}

	header, err := reader.Read()
	if err == io.EOF {
		return nil, pfx.Err(fmt.Errorf("%s: %w", name, ErrNoHeader))
	} else if err != nil {
		return nil, pfx.Err(err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	cols := schema.resolve(header)
	if cols.states < 0 {
		return nil, pfx.Err(fmt.Errorf("%s: %w: none of the state count columns %v are present", name, ErrNoHeader, schema.States))
	}

	metricCols := make(map[int]MetricKey)
	catalog := NewCatalog()
	for i, h := range header {
		if cols.structural(i) {
			continue
		}
		if k, ok := schema.MetricKey(h); ok {
			metricCols[i] = k
			catalog.keys[k] = struct{}{}
		}
	}

	t := &Table{
		Name:    name,
		Columns: header,
		Rows:    make([]*Row, 0),
		Catalog: catalog,
	}

	normalize := literal.NewNormalizer()

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, pfx.Err(err)
		}

		cell := func(i int) string {
			if i < 0 || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		states, ok := ParseCount(cell(cols.states))
		if !ok {
			t.Dropped++
			continue
		}

		row := newRow()
		row.Source = name
		row.NumStates = states
		row.NumObservations, _ = ParseCount(cell(cols.observations))
		row.A = normalize(cell(cols.a)).Matrix()
		row.B = normalize(cell(cols.b)).Matrix()
		row.Pi = normalize(cell(cols.pi)).Vector()
		row.ReportedAEntropy = parseNullFloat(cell(cols.aEntropy))
		row.ReportedBEntropy = parseNullFloat(cell(cols.bEntropy))
		if cols.steadySt >= 0 {
			row.SteadyState = normalize(cell(cols.steadySt))
		}

		row.Features = derive(row, parseNullFloat(cell(cols.lambda2)))

		for i, h := range header {
			if cols.structural(i) {
				continue
			}

			v, isText := typeCell(cell(i))
			if k, ok := metricCols[i]; ok {
				row.Metrics[k] = v
				continue
			}
			if isText {
				row.Text[h] = cell(i)
				continue
			}
			row.Values[h] = v
		}

		t.Rows = append(t.Rows, row)
	}

	return t, nil
}

// derive computes the descriptors from the matrices. When a matrix column is
// absent the reported entropy, if any, stands in. A reported lambda2 takes
// precedence over the computed eigenvalue.
func derive(row *Row, lambda2 null.Float) features.Features {
	f := features.Extract(row.A, row.B, row.Pi)

	if len(row.A) == 0 && row.ReportedAEntropy.Valid {
		f.AEntropy = row.ReportedAEntropy.Float64
		f.ACategory = features.Categorize(f.AEntropy)
	}
	if len(row.B) == 0 && row.ReportedBEntropy.Valid {
		f.BEntropy = row.ReportedBEntropy.Float64
		f.BCategory = features.Categorize(f.BEntropy)
	}
	if lambda2.Valid {
		f.Lambda2 = lambda2
	}

	return f
}

// typeCell decodes numeric and bracketed text. isText is set for anything
// else, in which case v is the missing marker.
func typeCell(cell string) (v literal.Value, isText bool) {
	if literal.LooksBracketed(cell) {
		return literal.Normalize(cell), false
	}

	v, err := literal.Parse(cell)
	if err != nil {
		return literal.Missing(), true
	}

	return v, false
}

// ParseCount parses a non-negative integer count, accepting integral floats
// such as "4.0".
func ParseCount(cell string) (int, bool) {
	if cell == "" {
		return 0, false
	}

	if n, err := strconv.Atoi(cell); err == nil {
		if n < 0 {
			return 0, false
		}
		return n, true
	}

	f, err := strconv.ParseFloat(cell, 64)
	if err != nil || f < 0 || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}

	return int(f), true
}

func parseNullFloat(cell string) null.Float {
	v, err := literal.Parse(cell)
	if err != nil {
		return null.Float{}
	}
	f, ok := v.Float()
	if !ok {
		return null.Float{}
	}

	return null.FloatFrom(f)
}

// Rename returns a copy of t whose model identifiers carry prefix, so two
// tables reporting the same model can be merged without collisions.
func (t *Table) Rename(prefix string) *Table {
	out := &Table{
		Name:    t.Name,
		Columns: make([]string, len(t.Columns)),
		Rows:    make([]*Row, 0, len(t.Rows)),
		Catalog: t.Catalog.withPrefix(prefix),
		Dropped: t.Dropped,
	}

	for i, c := range t.Columns {
		out.Columns[i] = c
		for k := range t.Catalog.keys {
			if k.Column() == c {
				out.Columns[i] = prefix + c
				break
			}
		}
	}

	for _, r := range t.Rows {
		out.Rows = append(out.Rows, RenameModels(r, prefix))
	}

	return out
}

// RenameModels returns a copy of r whose metric keys carry prefix.
func RenameModels(r *Row, prefix string) *Row {
	out := r.Clone()
	out.Metrics = make(map[MetricKey]literal.Value, len(r.Metrics))
	for k, v := range r.Metrics {
		out.Metrics[MetricKey{Model: prefix + k.Model, Measure: k.Measure}] = v
	}

	return out
}
