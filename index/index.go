// Package index groups loaded rows by configuration. It answers the
// dependent-selection questions of a dashboard: which values of a varying
// descriptor exist once the other descriptors are fixed, and which values
// each filterable dimension takes at all.
package index

import (
	"sort"
	"strings"

	"github.com/carbocation/hmmdash/table"
)

type group struct {
	coords []Coord
	values []Coord
	rows   []*table.Row
}

// Index maps a tuple of fixed coordinates to the sorted distinct values of
// the varying dimension observed among the rows sharing that tuple. It is
// built once and never modified.
type Index struct {
	fixed   []Dimension
	varying Dimension
	groups  map[string]*group
	order   []string
}

// Build groups rows by the fixed dimensions. Rows that do not carry one of
// the dimensions are left out.
func Build(rows []*table.Row, fixed []Dimension, varying Dimension) *Index {
	ix := &Index{
		fixed:   append([]Dimension(nil), fixed...),
		varying: varying,
		groups:  make(map[string]*group),
	}

Rows:
	for _, r := range rows {
		coords := make([]Coord, 0, len(fixed))
		for _, d := range fixed {
			c, ok := d.Value(r)
			if !ok {
				continue Rows
			}
			coords = append(coords, c)
		}
		v, ok := varying.Value(r)
		if !ok {
			continue
		}

		key := tupleKey(coords)
		g, exists := ix.groups[key]
		if !exists {
			g = &group{coords: coords}
			ix.groups[key] = g
			ix.order = append(ix.order, key)
		}
		g.rows = append(g.rows, r)
		g.values = append(g.values, v)
	}

	for _, g := range ix.groups {
		g.values = distinct(varying, g.values)
	}

	sort.Slice(ix.order, func(i, j int) bool {
		return tupleLess(ix.groups[ix.order[i]].coords, ix.groups[ix.order[j]].coords)
	})

	return ix
}

// Lookup returns the varying values for a fixed tuple, or nil if no row has
// it. The coordinates are rounded to each dimension's grid first.
func (ix *Index) Lookup(coords ...Coord) []Coord {
	g := ix.find(coords)
	if g == nil {
		return nil
	}

	return append([]Coord(nil), g.values...)
}

// Rows returns the rows sharing a fixed tuple.
func (ix *Index) Rows(coords ...Coord) []*table.Row {
	g := ix.find(coords)
	if g == nil {
		return nil
	}

	return append([]*table.Row(nil), g.rows...)
}

func (ix *Index) find(coords []Coord) *group {
	if len(coords) != len(ix.fixed) {
		return nil
	}

	rounded := make([]Coord, len(coords))
	for i, c := range coords {
		rounded[i] = ix.fixed[i].Round(c)
	}

	return ix.groups[tupleKey(rounded)]
}

// Keys lists the fixed tuples in ascending order.
func (ix *Index) Keys() [][]Coord {
	out := make([][]Coord, 0, len(ix.order))
	for _, key := range ix.order {
		out = append(out, append([]Coord(nil), ix.groups[key].coords...))
	}

	return out
}

func (ix *Index) Fixed() []Dimension { return append([]Dimension(nil), ix.fixed...) }
func (ix *Index) Varying() Dimension { return ix.varying }

// Options lists the distinct values each dimension takes over rows, sorted.
func Options(rows []*table.Row, dims ...Dimension) map[string][]Coord {
	out := make(map[string][]Coord, len(dims))
	for _, d := range dims {
		values := make([]Coord, 0)
		for _, r := range rows {
			if c, ok := d.Value(r); ok {
				values = append(values, c)
			}
		}
		out[d.Name] = distinct(d, values)
	}

	return out
}

// distinct sorts values and drops those d considers the same as their
// predecessor.
func distinct(d Dimension, values []Coord) []Coord {
	sort.Slice(values, func(i, j int) bool { return values[i].Less(values[j]) })

	out := make([]Coord, 0, len(values))
	for _, v := range values {
		if len(out) > 0 && d.Same(out[len(out)-1], v) {
			continue
		}
		out = append(out, v)
	}

	return out
}

func tupleKey(coords []Coord) string {
	parts := make([]string, 0, len(coords))
	for _, c := range coords {
		if c.IsText {
			parts = append(parts, "t:"+c.Text)
			continue
		}
		parts = append(parts, "n:"+c.String())
	}

	return strings.Join(parts, "\x1f")
}

func tupleLess(a, b []Coord) bool {
	for i := range a {
		if i >= len(b) {
			return false
		}
		if a[i].Less(b[i]) {
			return true
		}
		if b[i].Less(a[i]) {
			return false
		}
	}

	return len(a) < len(b)
}
