package literal

import (
	"math"
	"strconv"
	"strings"
)

type Kind byte

const (
	KindMissing Kind = iota
	KindNumber
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindList:
		return "list"
	}

	return "missing"
}

// Value is a decoded table cell: a finite number, the missing marker, or a
// list of Values (a matrix is a list of lists). The zero Value is missing.
type Value struct {
	kind   Kind
	number float64
	items  []Value
}

// Missing is the marker substituted for nan, inf and null tokens.
func Missing() Value {
	return Value{}
}

// Numeric wraps f. Non-finite floats become the missing marker, so a Value
// that reports KindNumber is always finite.
func Numeric(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Missing()
	}

	return Value{kind: KindNumber, number: f}
}

// List builds a list Value from its elements.
func List(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}

	return Value{kind: KindList, items: items}
}

// Floats builds a flat list Value from a slice, mapping non-finite entries to
// the missing marker.
func Floats(fs ...float64) Value {
	items := make([]Value, 0, len(fs))
	for _, f := range fs {
		items = append(items, Numeric(f))
	}

	return List(items...)
}

func (v Value) Kind() Kind      { return v.kind }
func (v Value) IsMissing() bool { return v.kind == KindMissing }
func (v Value) IsNumber() bool  { return v.kind == KindNumber }
func (v Value) IsList() bool    { return v.kind == KindList }

// Float returns the scalar and true if v is a number.
func (v Value) Float() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}

	return v.number, true
}

// Len is the number of list elements; 0 for scalars and missing values.
func (v Value) Len() int {
	return len(v.items)
}

// At returns the i'th list element, or the missing marker when out of range.
func (v Value) At(i int) Value {
	if i < 0 || i >= len(v.items) {
		return Missing()
	}

	return v.items[i]
}

// Items exposes the list elements. The slice must not be modified.
func (v Value) Items() []Value {
	return v.items
}

// Vector flattens a one-level list into floats, with NaN standing in for
// missing or nested elements. A scalar yields a one-element slice.
func (v Value) Vector() []float64 {
	switch v.kind {
	case KindNumber:
		return []float64{v.number}
	case KindMissing:
		return nil
	}

	out := make([]float64, 0, len(v.items))
	for _, item := range v.items {
		if f, ok := item.Float(); ok {
			out = append(out, f)
			continue
		}
		out = append(out, math.NaN())
	}

	return out
}

// Matrix converts a list of lists into rows of floats. Elements that are not
// lists become empty rows.
func (v Value) Matrix() [][]float64 {
	if v.kind != KindList {
		return nil
	}

	out := make([][]float64, 0, len(v.items))
	for _, row := range v.items {
		if !row.IsList() {
			out = append(out, []float64{})
			continue
		}
		out = append(out, row.Vector())
	}

	return out
}

// String renders v back in bracketed form, with nan for missing elements.
func (v Value) String() string {
	var sb strings.Builder
	v.write(&sb)
	return sb.String()
}

func (v Value) write(sb *strings.Builder) {
	switch v.kind {
	case KindMissing:
		sb.WriteString("nan")
	case KindNumber:
		sb.WriteString(strconv.FormatFloat(v.number, 'g', -1, 64))
	case KindList:
		sb.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				sb.WriteString(", ")
			}
			item.write(sb)
		}
		sb.WriteByte(']')
	}
}
