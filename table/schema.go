package table

import (
	"sort"
	"strings"
)

// Schema names the columns the loader understands. Each structural column
// accepts several header aliases because the generators were not consistent
// about pluralization.
type Schema struct {
	States       []string `yaml:"states"`
	Observations []string `yaml:"observations"`
	A            []string `yaml:"a"`
	B            []string `yaml:"b"`
	Pi           []string `yaml:"pi"`

	// Precomputed descriptors some tables carry. They are optional.
	AEntropy    []string `yaml:"a_entropy"`
	BEntropy    []string `yaml:"b_entropy"`
	Lambda2     []string `yaml:"lambda2"`
	SteadyState []string `yaml:"steady_state"`

	// Measures are the recognised <model>_<measure> suffixes.
	Measures []Measure `yaml:"measures"`
}

// DefaultSchema matches the result tables produced by the HMM experiment
// generators.
func DefaultSchema() Schema {
	return Schema{
		States:       []string{"num_states", "num_state"},
		Observations: []string{"num_observations", "num_observation"},
		A:            []string{"A"},
		B:            []string{"B"},
		Pi:           []string{"pi"},
		AEntropy:     []string{"A_entropy", "a_entropy"},
		BEntropy:     []string{"B_entropy", "b_entropy"},
		Lambda2:      []string{"lambda2"},
		SteadyState:  []string{"steady_state"},
		Measures:     []Measure{Accuracy, ReverseKL, ForwardKL, Hellinger},
	}
}

// WithDefaults fills every empty field of s from DefaultSchema, so a
// configuration file only needs to name what differs.
func (s Schema) WithDefaults() Schema {
	d := DefaultSchema()
	fill := func(dst *[]string, src []string) {
		if len(*dst) == 0 {
			*dst = src
		}
	}
	fill(&s.States, d.States)
	fill(&s.Observations, d.Observations)
	fill(&s.A, d.A)
	fill(&s.B, d.B)
	fill(&s.Pi, d.Pi)
	fill(&s.AEntropy, d.AEntropy)
	fill(&s.BEntropy, d.BEntropy)
	fill(&s.Lambda2, d.Lambda2)
	fill(&s.SteadyState, d.SteadyState)
	if len(s.Measures) == 0 {
		s.Measures = d.Measures
	}

	return s
}

// columns resolves each structural role to its index in header, or -1.
type columns struct {
	states, observations, a, b, pi        int
	aEntropy, bEntropy, lambda2, steadySt int
}

func (s Schema) resolve(header []string) columns {
	return columns{
		states:       findColumn(header, s.States),
		observations: findColumn(header, s.Observations),
		a:            findColumn(header, s.A),
		b:            findColumn(header, s.B),
		pi:           findColumn(header, s.Pi),
		aEntropy:     findColumn(header, s.AEntropy),
		bEntropy:     findColumn(header, s.BEntropy),
		lambda2:      findColumn(header, s.Lambda2),
		steadySt:     findColumn(header, s.SteadyState),
	}
}

func (c columns) structural(i int) bool {
	switch i {
	case c.states, c.observations, c.a, c.b, c.pi, c.aEntropy, c.bEntropy, c.lambda2, c.steadySt:
		return true
	}

	return false
}

// findColumn returns the first alias present in header. An exact match is
// preferred over a case-insensitive one.
func findColumn(header []string, aliases []string) int {
	for _, alias := range aliases {
		for i, h := range header {
			if h == alias {
				return i
			}
		}
	}
	for _, alias := range aliases {
		for i, h := range header {
			if strings.EqualFold(h, alias) {
				return i
			}
		}
	}

	return -1
}

// MetricKey splits a column name into its model and measure, using the
// longest recognised measure suffix. The model part must be non-empty.
func (s Schema) MetricKey(column string) (MetricKey, bool) {
	measures := make([]Measure, len(s.Measures))
	copy(measures, s.Measures)
	sort.SliceStable(measures, func(i, j int) bool {
		return len(measures[i]) > len(measures[j])
	})

	for _, m := range measures {
		suffix := "_" + string(m)
		if len(column) > len(suffix) && strings.HasSuffix(column, suffix) {
			return MetricKey{Model: column[:len(column)-len(suffix)], Measure: m}, true
		}
	}

	return MetricKey{}, false
}
