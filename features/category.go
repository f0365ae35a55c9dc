package features

import (
	"fmt"
	"math"
)

// Category is a half-unit-wide entropy bucket.
type Category string

const (
	Entropy0   Category = "0"
	Entropy0_5 Category = "0.5"
	Entropy1   Category = "1.0"
	Entropy1_5 Category = "1.5"
	Entropy2   Category = "2.0"
	Entropy2_5 Category = "2.5"
	Entropy3   Category = "3.0"
	Entropy3_5 Category = "3.5"
	Entropy4Up Category = "4.0+"
)

var categories = []Category{
	Entropy0, Entropy0_5, Entropy1, Entropy1_5, Entropy2,
	Entropy2_5, Entropy3, Entropy3_5, Entropy4Up,
}

// categoryHalfWidth places bucket k on [k-0.25, k+0.25). The "0" bucket
// absorbs everything below 0.25 and "4.0+" everything from 3.75 up.
const categoryHalfWidth = 0.25

// Categories lists the buckets in ascending order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// Categorize maps an entropy onto its bucket. It is total: negative values and
// NaN land in "0", +Inf in "4.0+".
func Categorize(entropy float64) Category {
	if math.IsNaN(entropy) || entropy < categoryHalfWidth {
		return Entropy0
	}

	for i := 1; i < len(categories)-1; i++ {
		upper := float64(i)*0.5 + categoryHalfWidth
		if entropy < upper {
			return categories[i]
		}
	}

	return Entropy4Up
}

// Lower is the inclusive lower bound of the bucket; the "0" bucket reports
// -Inf.
func (c Category) Lower() float64 {
	for i, cat := range categories {
		if cat == c {
			if i == 0 {
				return math.Inf(-1)
			}
			return float64(i)*0.5 - categoryHalfWidth
		}
	}

	return math.NaN()
}

// ParseCategory validates a bucket label such as "1.5" or "4.0+".
func ParseCategory(s string) (Category, error) {
	for _, cat := range categories {
		if string(cat) == s {
			return cat, nil
		}
	}

	// "0.0" was used for the lowest bucket by some of the result tables.
	if s == "0.0" {
		return Entropy0, nil
	}

	return "", fmt.Errorf("unknown entropy category %q", s)
}

// PiType classifies an initial-state distribution.
type PiType string

const (
	PiDeterministic PiType = "deterministic"
	PiUniform       PiType = "uniform"
)

const piTolerance = 1e-5

// ClassifyPi is deterministic iff exactly one entry is within 1e-5 of 1 and
// every other entry is within 1e-5 of 0. Everything else is reported as
// uniform, including distributions that are neither one-hot nor flat: the
// generated tables only contain those two shapes.
func ClassifyPi(pi []float64) PiType {
	ones, zeros := 0, 0
	for _, p := range pi {
		switch {
		case math.Abs(p-1) < piTolerance:
			ones++
		case math.Abs(p) < piTolerance:
			zeros++
		}
	}

	if ones == 1 && zeros == len(pi)-1 {
		return PiDeterministic
	}

	return PiUniform
}

// ParsePiType validates a pi classification label.
func ParsePiType(s string) (PiType, error) {
	switch PiType(s) {
	case PiDeterministic, PiUniform:
		return PiType(s), nil
	}

	return "", fmt.Errorf("unknown pi type %q", s)
}
