package index

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/carbocation/hmmdash/features"
	"github.com/carbocation/hmmdash/table"
)

// Tolerance is the absolute tolerance under which two floating descriptors on
// an ungridded dimension are the same configuration.
const Tolerance = 1e-4

// Coord is one value along a Dimension: a number or a categorical label.
type Coord struct {
	Num    float64
	Text   string
	IsText bool
}

func Number(f float64) Coord { return Coord{Num: f} }
func Label(s string) Coord   { return Coord{Text: s, IsText: true} }

func (c Coord) String() string {
	if c.IsText {
		return c.Text
	}
	return strconv.FormatFloat(c.Num, 'g', -1, 64)
}

// Less orders numbers ascending, then labels lexically. The entropy category
// labels sort correctly as text.
func (c Coord) Less(o Coord) bool {
	if c.IsText != o.IsText {
		return !c.IsText
	}
	if c.IsText {
		return c.Text < o.Text
	}
	return c.Num < o.Num
}

func (c Coord) MarshalJSON() ([]byte, error) {
	if c.IsText {
		return json.Marshal(c.Text)
	}
	return json.Marshal(c.Num)
}

// Dimension is a named axis rows can be grouped or filtered on. Grid, when
// non-zero, is the step values are rounded to before comparison.
type Dimension struct {
	Name string
	Grid float64

	value func(*table.Row) (Coord, bool)
	parse func(string) (Coord, error)
}

// Value reads the dimension from r, rounded to the grid.
func (d Dimension) Value(r *table.Row) (Coord, bool) {
	c, ok := d.value(r)
	if !ok {
		return c, false
	}

	return d.Round(c), true
}

// Raw reads the dimension from r without rounding.
func (d Dimension) Raw(r *table.Row) (Coord, bool) {
	return d.value(r)
}

// Round snaps a numeric coordinate to the grid. Labels pass through.
func (d Dimension) Round(c Coord) Coord {
	if c.IsText || d.Grid <= 0 {
		return c
	}

	return Number(snap(c.Num, d.Grid))
}

// Parse reads a coordinate from user input, rounded to the grid.
func (d Dimension) Parse(s string) (Coord, error) {
	c, err := d.parse(strings.TrimSpace(s))
	if err != nil {
		return c, fmt.Errorf("%s: %w", d.Name, err)
	}

	return d.Round(c), nil
}

// Same reports whether a and b denote the same configuration along d. Gridded
// dimensions compare after rounding; others use Tolerance.
func (d Dimension) Same(a, b Coord) bool {
	if a.IsText || b.IsText {
		return a.IsText == b.IsText && a.Text == b.Text
	}
	if d.Grid > 0 {
		return snap(a.Num, d.Grid) == snap(b.Num, d.Grid)
	}

	return math.Abs(a.Num-b.Num) < Tolerance
}

// snap rounds v to a multiple of grid and strips the floating point residue
// so that equal grid points compare equal.
func snap(v, grid float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}

	decimals := int(math.Ceil(-math.Log10(grid)))
	if decimals < 0 {
		decimals = 0
	}
	r := math.Round(v/grid) * grid
	out, err := strconv.ParseFloat(strconv.FormatFloat(r, 'f', decimals, 64), 64)
	if err != nil {
		return r
	}

	return out
}

func parseNumber(s string) (Coord, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Coord{}, err
	}
	return Number(f), nil
}

func parseCategory(s string) (Coord, error) {
	c, err := features.ParseCategory(s)
	if err != nil {
		return Coord{}, err
	}
	return Label(string(c)), nil
}

func parsePiType(s string) (Coord, error) {
	p, err := features.ParsePiType(s)
	if err != nil {
		return Coord{}, err
	}
	return Label(string(p)), nil
}

// descriptorGrid is the rounding step for the continuous descriptors.
const descriptorGrid = 1e-4

var (
	NumStates = Dimension{
		Name:  "num_states",
		value: func(r *table.Row) (Coord, bool) { return Number(float64(r.NumStates)), true },
		parse: parseNumber,
	}
	NumObservations = Dimension{
		Name:  "num_observations",
		value: func(r *table.Row) (Coord, bool) { return Number(float64(r.NumObservations)), true },
		parse: parseNumber,
	}
	AEntropy = Dimension{
		Name:  "a_entropy",
		Grid:  descriptorGrid,
		value: func(r *table.Row) (Coord, bool) { return Number(r.AEntropy), true },
		parse: parseNumber,
	}
	BEntropy = Dimension{
		Name:  "b_entropy",
		Grid:  descriptorGrid,
		value: func(r *table.Row) (Coord, bool) { return Number(r.BEntropy), true },
		parse: parseNumber,
	}
	ACategory = Dimension{
		Name:  "a_category",
		value: func(r *table.Row) (Coord, bool) { return Label(string(r.ACategory)), true },
		parse: parseCategory,
	}
	BCategory = Dimension{
		Name:  "b_category",
		value: func(r *table.Row) (Coord, bool) { return Label(string(r.BCategory)), true },
		parse: parseCategory,
	}
	PiType = Dimension{
		Name:  "pi_type",
		value: func(r *table.Row) (Coord, bool) { return Label(string(r.PiType)), true },
		parse: parsePiType,
	}
	Lambda2 = Dimension{
		Name:  "lambda2",
		Grid:  descriptorGrid,
		value: func(r *table.Row) (Coord, bool) { return Number(r.Lambda2.Float64), r.Lambda2.Valid },
		parse: parseNumber,
	}
)

var builtins = []Dimension{NumStates, NumObservations, AEntropy, BEntropy, ACategory, BCategory, PiType, Lambda2}

// Builtins lists the dimensions every row carries.
func Builtins() []Dimension {
	out := make([]Dimension, len(builtins))
	copy(out, builtins)
	return out
}

// Column is a numeric dimension over any other table column, such as seed.
func Column(name string) Dimension {
	return Dimension{
		Name: name,
		value: func(r *table.Row) (Coord, bool) {
			f, ok := r.Number(name)
			return Number(f), ok
		},
		parse: parseNumber,
	}
}

// ByName resolves a built-in dimension, accepting the singular header
// spellings and pi_category. Unknown names become Column dimensions.
func ByName(name string) Dimension {
	switch name {
	case "num_state":
		return NumStates
	case "num_observation":
		return NumObservations
	case "pi_category":
		return PiType
	}
	for _, d := range builtins {
		if d.Name == name {
			return d
		}
	}

	return Column(name)
}
