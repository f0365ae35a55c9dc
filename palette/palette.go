// Package palette maps predictor, measure and dataset identifiers to display
// labels and colors. The mapping is closed: identifiers that are not listed
// get a generated fallback, and Lookup says so.
package palette

import (
	"fmt"
	"hash/fnv"
	"image/color"
	"sort"
	"strconv"
	"strings"

	"github.com/carbocation/hmmdash/table"
)

// A Style is how one identifier is shown. Color is RGB hex, e.g. #8884d8.
type Style struct {
	Label     string `yaml:"label" json:"label"`
	Color     string `yaml:"color" json:"color"`
	SortOrder int    `yaml:"sort_order,omitempty" json:"sort_order,omitempty"`
}

// Map is keyed by identifier.
type Map map[string]Style

// Predictors are the emission predictors the experiment generators score.
var Predictors = Map{
	"llm_emission":           {Label: "LLM Model", Color: "#8884d8", SortOrder: 1},
	"new_llm_emission":       {Label: "LLM Model (new)", Color: "#ff6b81", SortOrder: 2},
	"lstm_emission":          {Label: "LSTM", Color: "#4299e1", SortOrder: 3},
	"random_emission":        {Label: "Random", Color: "#82ca9d", SortOrder: 4},
	"previous_emission":      {Label: "Bigram", Color: "#57c754", SortOrder: 5},
	"viterbi":                {Label: "Viterbi", Color: "#ffc658", SortOrder: 6},
	"bw":                     {Label: "Baum-Welch", Color: "#00c49f", SortOrder: 7},
	"1-gram":                 {Label: "1-gram", Color: "#38a169", SortOrder: 8},
	"2-gram":                 {Label: "2-gram", Color: "#2f855a", SortOrder: 9},
	"3-gram":                 {Label: "3-gram", Color: "#276749", SortOrder: 10},
	"4-gram":                 {Label: "4-gram", Color: "#22543d", SortOrder: 11},
	"p_o_given_prev_h":       {Label: "P(O|Prev H)", Color: "#f6e05e", SortOrder: 12},
	"p_o_t_given_prev_1_o":   {Label: "P(O|Prev 1 O)", Color: "#ecc94b", SortOrder: 13},
	"p_o_t_given_prev_2_o":   {Label: "P(O|Prev 2 O)", Color: "#d69e2e", SortOrder: 14},
	"p_o_t_given_prev_3_o":   {Label: "P(O|Prev 3 O)", Color: "#b7791f", SortOrder: 15},
	"p_o_t_given_prev_4_o":   {Label: "P(O|Prev 4 O)", Color: "#975a16", SortOrder: 16},
	"p_o_t_given_prev_5_o":   {Label: "P(O|Prev 5 O)", Color: "#a4de6c", SortOrder: 17},
	"p_o_t_given_prev_6_o":   {Label: "P(O|Prev 6 O)", Color: "#d0ed57", SortOrder: 18},
	"p_o_t_given_prev_7_o":   {Label: "P(O|Prev 7 O)", Color: "#83a6ed", SortOrder: 19},
	"p_o_t_given_prev_8_o":   {Label: "P(O|Prev 8 O)", Color: "#8dd1e1", SortOrder: 20},
	"p_o_t_given_prev_all_o": {Label: "P(O|All Prev O)", Color: "#744210", SortOrder: 21},
}

// Measures are the evaluation metrics.
var Measures = Map{
	string(table.Accuracy):  {Label: "Accuracy", SortOrder: 1},
	string(table.ReverseKL): {Label: "Reverse KL Divergence", SortOrder: 2},
	string(table.ForwardKL): {Label: "Forward KL Divergence", SortOrder: 3},
	string(table.Hellinger): {Label: "Hellinger Distance", SortOrder: 4},
}

// Datasets are the result tables published alongside the dashboards.
var Datasets = Map{
	"Qwen2.5-7B":   {Label: "Qwen 2 (7B)", Color: "#97266d", SortOrder: 1},
	"Qwen2.5-3B":   {Label: "Qwen 2 (3B)", Color: "#b83280", SortOrder: 2},
	"Qwen2.5-1.5B": {Label: "Qwen 2 (1.5B)", Color: "#d53f8c", SortOrder: 3},
	"Qwen2.5-0.5B": {Label: "Qwen 2 (0.5B)", Color: "#f687b3", SortOrder: 4},
}

// Cycle colors identifiers no map knows about.
var Cycle = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728",
	"#9467bd", "#8c564b", "#e377c2", "#7f7f7f",
	"#bcbd22", "#17becf", "#aec7e8", "#ffbb78", "#98df8a",
}

// Lookup returns the style for id. The second return is false when id is not
// in the map, in which case the style is the fallback: the id as its own
// label and a Cycle color chosen by a stable hash of the id.
func (m Map) Lookup(id string) (Style, bool) {
	if s, ok := m[id]; ok {
		return s, true
	}

	return Fallback(id), false
}

// Style is Lookup without the membership flag.
func (m Map) Style(id string) Style {
	s, _ := m.Lookup(id)
	return s
}

// Sorted lists the styles by SortOrder, then label.
func (m Map) Sorted() []Style {
	out := make([]Style, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].Label < out[j].Label
	})

	return out
}

// With returns a copy of m with overrides applied. Colors are lowercased, as
// Go renders them.
func (m Map) With(overrides Map) Map {
	out := make(Map, len(m)+len(overrides))
	for k, v := range m {
		out[k] = v
	}
	for k, v := range overrides {
		v.Color = strings.ToLower(v.Color)
		base, known := m.Lookup(k)
		if v.Label == "" {
			v.Label = base.Label
		}
		if v.Color == "" {
			v.Color = base.Color
		}
		if v.SortOrder == 0 && known {
			v.SortOrder = base.SortOrder
		}
		out[k] = v
	}

	return out
}

// Fallback is the style of an unknown identifier.
func Fallback(id string) Style {
	h := fnv.New32a()
	h.Write([]byte(id))

	return Style{
		Label:     id,
		Color:     Cycle[h.Sum32()%uint32(len(Cycle))],
		SortOrder: 1 << 20,
	}
}

// Predictor is the style of a model id in the default Predictors map.
func Predictor(id string) (Style, bool) {
	return Predictors.Predictor(id)
}

// Predictor is Lookup for model ids. A prefix added when merging a second
// table, such as new_, is looked through so the label stays readable.
func (m Map) Predictor(id string) (Style, bool) {
	if s, ok := m.Lookup(id); ok {
		return s, true
	}

	// The longest known suffix wins, so extra_new_llm_emission is a prefixed
	// new_llm_emission rather than a prefixed llm_emission.
	best := ""
	for known := range m {
		if strings.HasSuffix(id, "_"+known) && len(known) > len(best) {
			best = known
		}
	}
	if best == "" {
		return Fallback(id), false
	}

	s := m[best]
	prefix := strings.TrimSuffix(id, "_"+best)
	return Style{Label: s.Label + " (" + prefix + ")", Color: Fallback(id).Color, SortOrder: s.SortOrder}, false
}

// MeasureLabel is the display name of a measure.
func MeasureLabel(m table.Measure) string {
	return Measures.Style(string(m)).Label
}

// RGBA parses a #rrggbb color. Short or empty codes are transparent.
func RGBA(code string) (color.RGBA, error) {
	code = strings.TrimPrefix(code, "#")

	if len(code) < 6 {
		return color.RGBA{0, 0, 0, 0}, nil
	}

	var channels [3]uint8
	for i := range channels {
		v, err := strconv.ParseUint(code[2*i:2*i+2], 16, 8)
		if err != nil {
			return color.RGBA{}, fmt.Errorf("color %q: %w", code, err)
		}
		channels[i] = uint8(v)
	}

	return color.RGBA{R: channels[0], G: channels[1], B: channels[2], A: 255}, nil
}
