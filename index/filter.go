package index

import (
	"fmt"
	"strings"

	"github.com/carbocation/hmmdash/table"
)

// Constraint pins one dimension to one coordinate.
type Constraint struct {
	Dimension Dimension
	Coord     Coord
}

// Filter is a conjunction of constraints. The empty filter matches every row.
type Filter []Constraint

// Where returns a copy of f with one more constraint.
func (f Filter) Where(d Dimension, c Coord) Filter {
	out := make(Filter, 0, len(f)+1)
	out = append(out, f...)
	return append(out, Constraint{Dimension: d, Coord: d.Round(c)})
}

// Match reports whether r satisfies every constraint. It reads rows through
// the same accessor and grid as Build, so coordinates taken from an Index or
// from Options always select their rows.
func (f Filter) Match(r *table.Row) bool {
	for _, c := range f {
		v, ok := c.Dimension.Value(r)
		if !ok || !c.Dimension.Same(v, c.Coord) {
			return false
		}
	}

	return true
}

// Apply returns the matching rows in their original order.
func (f Filter) Apply(rows []*table.Row) []*table.Row {
	out := make([]*table.Row, 0)
	for _, r := range rows {
		if f.Match(r) {
			out = append(out, r)
		}
	}

	return out
}

func (f Filter) String() string {
	parts := make([]string, 0, len(f))
	for _, c := range f {
		parts = append(parts, c.Dimension.Name+"="+c.Coord.String())
	}

	return strings.Join(parts, ",")
}

// ParseFilter reads "num_states=4,b_category=0". An empty string is the empty
// filter.
func ParseFilter(s string) (Filter, error) {
	out := make(Filter, 0)
	if strings.TrimSpace(s) == "" {
		return out, nil
	}

	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 || strings.TrimSpace(kv[0]) == "" {
			return nil, fmt.Errorf("filter term %q is not name=value", part)
		}

		d := ByName(strings.TrimSpace(kv[0]))
		c, err := d.Parse(kv[1])
		if err != nil {
			return nil, err
		}
		out = append(out, Constraint{Dimension: d, Coord: c})
	}

	return out, nil
}
