// Package merge combines independently generated result tables that
// describe overlapping HMM configurations.
package merge

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/carbocation/hmmdash/index"
	"github.com/carbocation/hmmdash/literal"
	"github.com/carbocation/hmmdash/table"
)

// Policy decides which value survives when both sides carry the same metric.
type Policy int

const (
	// LastWriterWins lets the incoming table overwrite every position it
	// reports, including positions it reports as missing.
	LastWriterWins Policy = iota

	// FillGaps keeps every non-missing base value and only takes incoming
	// values where the base has nothing.
	FillGaps
)

func (p Policy) String() string {
	switch p {
	case FillGaps:
		return "fill_gaps"
	}
	return "last_writer_wins"
}

// ParsePolicy reads a policy name. The empty string is LastWriterWins.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "last_writer_wins", "lww":
		return LastWriterWins, nil
	case "fill_gaps", "fill":
		return FillGaps, nil
	}

	return LastWriterWins, fmt.Errorf("unknown merge policy %q", s)
}

// Options controls how rows are matched and combined.
type Options struct {
	// Exact dimensions must be equal, after grid rounding.
	Exact []index.Dimension

	// Approx dimensions must be within Tolerance of each other.
	Approx    []index.Dimension
	Tolerance float64

	Policy Policy

	// Prefix is prepended to incoming model ids before the union.
	Prefix string
}

// DefaultOptions matches on state count, observation count and emission
// entropy exactly and on transition entropy within 1e-4.
func DefaultOptions() Options {
	return Options{
		Exact:     []index.Dimension{index.NumStates, index.NumObservations, index.BEntropy},
		Approx:    []index.Dimension{index.AEntropy},
		Tolerance: index.Tolerance,
		Policy:    LastWriterWins,
	}
}

// Merge returns base with incoming folded in. An incoming row that matches a
// base row has its metrics unioned into a copy of the first matching base
// row; otherwise it is appended. Incoming rows are only matched against base,
// never against each other. Neither input is modified.
func Merge(base, incoming []*table.Row, opts Options) []*table.Row {
	if opts.Tolerance <= 0 {
		opts.Tolerance = index.Tolerance
	}

	out := make([]*table.Row, len(base), len(base)+len(incoming))
	copy(out, base)
	cloned := make(map[int]bool)

	lookup := newLookup(base, opts)

	for _, in := range incoming {
		if opts.Prefix != "" {
			in = table.RenameModels(in, opts.Prefix)
		}

		i, ok := lookup.find(in)
		if !ok {
			out = append(out, in)
			continue
		}

		if !cloned[i] {
			out[i] = base[i].Clone()
			cloned[i] = true
		}
		union(out[i], in, opts.Policy)
	}

	return out
}

// MergeTables merges incoming into base and unions their catalogs.
func MergeTables(base, incoming *table.Table, opts Options) *table.Table {
	inCatalog := incoming.Catalog
	if opts.Prefix != "" {
		inCatalog = incoming.Rename(opts.Prefix).Catalog
	}

	return &table.Table{
		Name:    base.Name,
		Columns: base.Columns,
		Rows:    Merge(base.Rows, incoming.Rows, opts),
		Catalog: table.UnionCatalogs(base.Catalog, inCatalog),
		Dropped: base.Dropped + incoming.Dropped,
	}
}

// union folds the metrics of src into dst under policy.
func union(dst, src *table.Row, policy Policy) {
	for k, v := range src.Metrics {
		existing, ok := dst.Metrics[k]
		if !ok {
			dst.Metrics[k] = v
			continue
		}
		dst.Metrics[k] = combine(existing, v, policy)
	}
}

// combine merges two values of one metric. Lists combine position by
// position; anything else is replaced whole.
func combine(base, in literal.Value, policy Policy) literal.Value {
	if base.IsList() && in.IsList() {
		n := base.Len()
		if in.Len() > n {
			n = in.Len()
		}

		items := make([]literal.Value, n)
		for i := 0; i < n; i++ {
			b, x := base.At(i), in.At(i)
			inHas := i < in.Len()

			switch {
			case policy == FillGaps && !b.IsMissing():
				items[i] = b
			case inHas:
				items[i] = x
			default:
				items[i] = b
			}
		}

		return literal.List(items...)
	}

	if policy == FillGaps && !base.IsMissing() {
		return base
	}

	return in
}

// lookup is a hash index over base rows. Approximate dimensions are bucketed
// into cells one tolerance wide, so a match can only live in the same cell or
// an adjacent one.
type lookup struct {
	opts  Options
	cells map[string][]int
	rows  []*table.Row
}

func newLookup(rows []*table.Row, opts Options) *lookup {
	l := &lookup{
		opts:  opts,
		cells: make(map[string][]int),
		rows:  rows,
	}

	for i, r := range rows {
		exact, ok := l.exactKey(r)
		if !ok {
			continue
		}
		cells, ok := l.cellsOf(r)
		if !ok {
			continue
		}
		key := exact + "|" + joinCells(cells)
		l.cells[key] = append(l.cells[key], i)
	}

	return l
}

// find returns the index of the first base row matching r.
func (l *lookup) find(r *table.Row) (int, bool) {
	exact, ok := l.exactKey(r)
	if !ok {
		return 0, false
	}
	cells, ok := l.cellsOf(r)
	if !ok {
		return 0, false
	}

	best := -1
	for _, probe := range neighbours(cells) {
		for _, i := range l.cells[exact+"|"+joinCells(probe)] {
			if (best < 0 || i < best) && l.close(l.rows[i], r) {
				best = i
			}
		}
	}

	return best, best >= 0
}

func (l *lookup) exactKey(r *table.Row) (string, bool) {
	parts := make([]string, 0, len(l.opts.Exact))
	for _, d := range l.opts.Exact {
		c, ok := d.Value(r)
		if !ok {
			return "", false
		}
		if c.IsText {
			parts = append(parts, "t:"+c.Text)
		} else {
			parts = append(parts, "n:"+c.String())
		}
	}

	return strings.Join(parts, ","), true
}

func (l *lookup) cellsOf(r *table.Row) ([]int64, bool) {
	out := make([]int64, 0, len(l.opts.Approx))
	for _, d := range l.opts.Approx {
		c, ok := d.Raw(r)
		if !ok || c.IsText || math.IsNaN(c.Num) || math.IsInf(c.Num, 0) {
			return nil, false
		}
		out = append(out, int64(math.Floor(c.Num/l.opts.Tolerance)))
	}

	return out, true
}

func (l *lookup) close(a, b *table.Row) bool {
	for _, d := range l.opts.Approx {
		x, _ := d.Raw(a)
		y, _ := d.Raw(b)
		// The slack absorbs the representation error of decimal inputs such
		// as 1.0001.
		if math.Abs(x.Num-y.Num) > l.opts.Tolerance*(1+1e-9) {
			return false
		}
	}

	return true
}

// neighbours enumerates every cell tuple within one step of cells.
func neighbours(cells []int64) [][]int64 {
	out := [][]int64{{}}
	for _, c := range cells {
		next := make([][]int64, 0, len(out)*3)
		for _, prefix := range out {
			for _, delta := range []int64{-1, 0, 1} {
				tuple := append(append([]int64(nil), prefix...), c+delta)
				next = append(next, tuple)
			}
		}
		out = next
	}

	return out
}

func joinCells(cells []int64) string {
	parts := make([]string, len(cells))
	for i, c := range cells {
		parts[i] = strconv.FormatInt(c, 10)
	}

	return strings.Join(parts, ",")
}
