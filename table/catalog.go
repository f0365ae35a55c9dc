package table

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownMetric is returned when a model and measure pair does not name a
// column of any loaded table.
var ErrUnknownMetric = errors.New("unknown metric")

// Measure is an evaluation metric computed per sequence length.
type Measure string

const (
	Accuracy  Measure = "acc"
	ReverseKL Measure = "reverse_kl"
	ForwardKL Measure = "forward_kl"
	Hellinger Measure = "hellinger_distance"
)

// MetricKey identifies a <model>_<measure> column.
type MetricKey struct {
	Model   string
	Measure Measure
}

// Column is the header name the key was discovered under.
func (k MetricKey) Column() string {
	return k.Model + "_" + string(k.Measure)
}

func (k MetricKey) String() string {
	return k.Column()
}

// Catalog is the set of metric keys discovered in one or more table headers.
// It is immutable once built.
type Catalog struct {
	keys map[MetricKey]struct{}
}

// NewCatalog builds a catalog from explicit keys.
func NewCatalog(keys ...MetricKey) *Catalog {
	c := &Catalog{keys: make(map[MetricKey]struct{}, len(keys))}
	for _, k := range keys {
		c.keys[k] = struct{}{}
	}

	return c
}

// UnionCatalogs returns a catalog holding every key of the inputs. Nil
// catalogs are skipped.
func UnionCatalogs(cs ...*Catalog) *Catalog {
	out := NewCatalog()
	for _, c := range cs {
		if c == nil {
			continue
		}
		for k := range c.keys {
			out.keys[k] = struct{}{}
		}
	}

	return out
}

// Has reports whether k was discovered.
func (c *Catalog) Has(k MetricKey) bool {
	if c == nil {
		return false
	}
	_, ok := c.keys[k]
	return ok
}

// Key validates model and measure and returns the tagged key. Unknown pairs
// produce an error wrapping ErrUnknownMetric.
func (c *Catalog) Key(model string, measure Measure) (MetricKey, error) {
	k := MetricKey{Model: model, Measure: measure}
	if !c.Has(k) {
		return k, fmt.Errorf("%w: %s", ErrUnknownMetric, k.Column())
	}

	return k, nil
}

// Len is the number of discovered keys.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.keys)
}

// Keys lists every key ordered by model, then measure.
func (c *Catalog) Keys() []MetricKey {
	if c == nil {
		return nil
	}

	out := make([]MetricKey, 0, len(c.keys))
	for k := range c.keys {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Model != out[j].Model {
			return out[i].Model < out[j].Model
		}
		return out[i].Measure < out[j].Measure
	})

	return out
}

// Models lists the models that report measure, sorted.
func (c *Catalog) Models(measure Measure) []string {
	out := make([]string, 0)
	for _, k := range c.Keys() {
		if k.Measure == measure {
			out = append(out, k.Model)
		}
	}

	return out
}

// Measures lists the distinct measures, sorted.
func (c *Catalog) Measures() []Measure {
	seen := make(map[Measure]struct{})
	out := make([]Measure, 0)
	for _, k := range c.Keys() {
		if _, ok := seen[k.Measure]; ok {
			continue
		}
		seen[k.Measure] = struct{}{}
		out = append(out, k.Measure)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	return out
}

// withPrefix returns a copy whose models are prefixed.
func (c *Catalog) withPrefix(prefix string) *Catalog {
	out := NewCatalog()
	if c == nil {
		return out
	}
	for k := range c.keys {
		out.keys[MetricKey{Model: prefix + k.Model, Measure: k.Measure}] = struct{}{}
	}

	return out
}
