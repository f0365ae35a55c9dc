// Package literal decodes the textual cell encodings found in experiment
// result tables: plain numbers, Python-style lists and matrices (single
// quotes, nan/inf tokens) and numpy's space-separated array printing.
package literal

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"regexp"
	"strconv"
	"strings"

	"github.com/BenLubar/memoize"
)

var (
	ErrNotLiteral = errors.New("cell is neither numeric nor a bracketed literal")
	ErrMalformed  = errors.New("malformed bracketed literal")
)

// nonFinite matches the tokens Python and numpy emit for values JSON cannot
// carry. Word boundaries keep identifiers such as "info" intact.
var nonFinite = regexp.MustCompile(`(?i)[-+]?\b(?:infinity|inf|nan|none)\b`)

// bareDecimal matches numpy's whole-number floats ("1." and "0."), which JSON
// rejects.
var bareDecimal = regexp.MustCompile(`(\d)\.([\s,\]])`)

// maxLoggedCell bounds how much of a malformed cell ends up in the log.
const maxLoggedCell = 200

// Normalize decodes cell and never fails: a malformed literal is logged and
// replaced by an empty list, so that a handful of bad cells cannot abort the
// load of a whole table.
func Normalize(cell string) Value {
	return normalize(cell)
}

// Normalizer is Normalize with a cache: identical cells are decoded, and
// logged, only once. The cache lives as long as the Normalizer, so make one
// per table.
type Normalizer func(cell string) Value

func NewNormalizer() Normalizer {
	return memoize.Memoize(normalize).(func(string) Value)
}

func normalize(cell string) Value {
	v, err := Parse(cell)
	if err != nil {
		shown := cell
		if len(shown) > maxLoggedCell {
			shown = shown[:maxLoggedCell] + "..."
		}
		log.Printf("Could not parse cell %q: %v\n", shown, err)
		return List()
	}

	return v
}

// Parse is the strict decoder behind Normalize. Empty cells and the nan, inf
// and None tokens decode to the missing marker.
func Parse(cell string) (Value, error) {
	s := strings.TrimSpace(cell)
	if s == "" || isMissingToken(s) {
		return Missing(), nil
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Numeric(f), nil
	} else if errors.Is(err, strconv.ErrRange) {
		return Missing(), nil
	}

	if !LooksBracketed(s) {
		return Missing(), ErrNotLiteral
	}

	clean := nonFinite.ReplaceAllString(s, "null")
	clean = strings.ReplaceAll(clean, "'", `"`)
	clean = bareDecimal.ReplaceAllString(clean, "${1}.0${2}")

	v, err := decode(clean)
	if err == nil {
		return v, nil
	}

	// numpy prints arrays without commas: [[0.1 0.2]\n [0.3 0.4]]
	if v, err2 := decode(insertCommas(clean)); err2 == nil {
		return v, nil
	}

	return Missing(), fmt.Errorf("%w: %v", ErrMalformed, err)
}

// LooksBracketed reports whether s is shaped like a list literal.
func LooksBracketed(s string) bool {
	s = strings.TrimSpace(s)
	return len(s) >= 2 && s[0] == '[' && s[len(s)-1] == ']'
}

func isMissingToken(s string) bool {
	switch strings.ToLower(s) {
	case "nan", "-nan", "+nan",
		"inf", "-inf", "+inf",
		"infinity", "-infinity", "+infinity",
		"none", "null", "na", "n/a":
		return true
	}

	return false
}

func decode(s string) (Value, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return Missing(), err
	}

	// Trailing garbage after the closing bracket is malformed too.
	var rest interface{}
	if err := dec.Decode(&rest); err != io.EOF {
		return Missing(), fmt.Errorf("unexpected content after literal")
	}

	return fromJSON(raw)
}

func fromJSON(x interface{}) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Missing(), nil
	case json.Number:
		return parseNumber(string(t))
	case string:
		ts := strings.TrimSpace(t)
		if ts == "" || isMissingToken(ts) {
			return Missing(), nil
		}
		return parseNumber(ts)
	case bool:
		if t {
			return Numeric(1), nil
		}
		return Numeric(0), nil
	case []interface{}:
		items := make([]Value, 0, len(t))
		for _, elem := range t {
			v, err := fromJSON(elem)
			if err != nil {
				return Missing(), err
			}
			items = append(items, v)
		}
		return List(items...), nil
	}

	return Missing(), fmt.Errorf("unsupported element of type %T", x)
}

func parseNumber(s string) (Value, error) {
	f, err := strconv.ParseFloat(s, 64)
	if errors.Is(err, strconv.ErrRange) {
		return Missing(), nil
	} else if err != nil {
		return Missing(), fmt.Errorf("%q is not numeric", s)
	}

	return Numeric(f), nil
}

// insertCommas turns whitespace that separates two elements into a comma and
// drops all other whitespace outside of quoted strings.
func insertCommas(s string) string {
	var out bytes.Buffer
	out.Grow(len(s) + len(s)/4)

	var prev byte
	inString := false
	for i := 0; i < len(s); i++ {
		c := s[i]

		if inString {
			out.WriteByte(c)
			if c == '\\' && i+1 < len(s) {
				i++
				out.WriteByte(s[i])
			} else if c == '"' {
				inString = false
				prev = c
			}
			continue
		}

		if !isSpace(c) {
			if c == '"' {
				inString = true
			}
			out.WriteByte(c)
			prev = c
			continue
		}

		// Skip the whole whitespace run and look at what follows it.
		j := i
		for j < len(s) && isSpace(s[j]) {
			j++
		}
		if j < len(s) && prev != 0 && prev != '[' && prev != ',' && s[j] != ']' && s[j] != ',' {
			out.WriteByte(',')
		}
		i = j - 1
	}

	return out.String()
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r':
		return true
	}

	return false
}
