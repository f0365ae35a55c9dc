package main

import (
	"bytes"
	"fmt"
	"net/http"
	"runtime"

	"github.com/carbocation/hmmdash/aggregate"
	"github.com/carbocation/hmmdash/compileinfo"
	"github.com/carbocation/hmmdash/index"
	"github.com/carbocation/hmmdash/palette"
	"github.com/carbocation/hmmdash/pipeline"
	"github.com/carbocation/hmmdash/render"
	"github.com/gorilla/mux"
)

func (h *handler) NotFound(w http.ResponseWriter, r *http.Request) {
	JSONError(h, w, r, fmt.Errorf("no route for %s %s", r.Method, r.URL.Path), http.StatusNotFound)
}

func (h *handler) Version(w http.ResponseWriter, r *http.Request) {
	renderJSON(h, w, r, compileinfo.Get())
}

func (h *handler) Goroutines(w http.ResponseWriter, r *http.Request) {
	renderJSON(h, w, r, struct{ Goroutines int }{runtime.NumGoroutine()})
}

func (h *handler) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.Global.Reload(r.Context()); err != nil {
		JSONError(h, w, r, err, http.StatusBadGateway)
		return
	}

	snap := h.Snapshot()
	renderJSON(h, w, r, struct {
		Success  bool
		Datasets []string
	}{true, snap.Datasets()})
}

type datasetInfo struct {
	Name    string        `json:"name"`
	Style   palette.Style `json:"style"`
	Rows    int           `json:"rows"`
	Dropped int           `json:"dropped"`
	Metrics []string      `json:"metrics"`
}

func (h *handler) Datasets(w http.ResponseWriter, r *http.Request) {
	snap := h.Snapshot()
	styles := snap.Palettes().Datasets

	output := struct {
		Datasets []datasetInfo `json:"datasets"`
		Merged   datasetInfo   `json:"merged"`
		LoadedAt string        `json:"loaded_at"`
	}{
		LoadedAt: snap.LoadedAt().Format("2006-01-02T15:04:05Z07:00"),
	}

	for _, name := range snap.Datasets() {
		t, _ := snap.Dataset(name)
		info := datasetInfo{Name: name, Style: styles.Style(name), Rows: len(t.Rows), Dropped: t.Dropped}
		for _, k := range t.Catalog.Keys() {
			info.Metrics = append(info.Metrics, k.Column())
		}
		output.Datasets = append(output.Datasets, info)
	}

	merged := snap.Merged()
	output.Merged = datasetInfo{Name: merged.Name, Style: styles.Style(merged.Name), Rows: len(merged.Rows), Dropped: merged.Dropped}
	for _, k := range merged.Catalog.Keys() {
		output.Merged.Metrics = append(output.Merged.Metrics, k.Column())
	}

	renderJSON(h, w, r, output)
}

type modelInfo struct {
	ID    string        `json:"id"`
	Style palette.Style `json:"style"`
}

func (h *handler) Options(w http.ResponseWriter, r *http.Request) {
	snap := h.Snapshot()
	dataset := r.FormValue("dataset")

	opts, err := snap.Options(dataset, dimensions(r, "dims")...)
	if err != nil {
		JSONError(h, w, r, err)
		return
	}

	catalog := snap.Catalog()
	if t, ok := snap.Dataset(dataset); ok {
		catalog = t.Catalog
	}

	output := struct {
		Options map[string][]index.Coord `json:"options"`
		Models  map[string][]modelInfo   `json:"models"`
		SeqLens []int                    `json:"seq_lens"`
	}{
		Options: opts,
		Models:  make(map[string][]modelInfo),
		SeqLens: snap.SeqLens(),
	}
	for _, m := range catalog.Measures() {
		for _, model := range catalog.Models(m) {
			st, _ := snap.Palettes().Predictors.Predictor(model)
			output.Models[string(m)] = append(output.Models[string(m)], modelInfo{ID: model, Style: st})
		}
	}

	renderJSON(h, w, r, output)
}

type indexEntry struct {
	Key    []index.Coord `json:"key"`
	Values []index.Coord `json:"values"`
	Rows   int           `json:"rows"`
}

func (h *handler) Index(w http.ResponseWriter, r *http.Request) {
	fixed := dimensions(r, "fixed")
	if len(fixed) == 0 {
		fixed = []index.Dimension{index.NumStates, index.NumObservations}
	}
	varying := index.AEntropy
	if v := r.FormValue("varying"); v != "" {
		varying = index.ByName(v)
	}

	filter, err := index.ParseFilter(r.FormValue("filter"))
	if err != nil {
		JSONError(h, w, r, fmt.Errorf("%w: filter: %s", errBadParameter, err))
		return
	}

	ix, err := h.Snapshot().Index(r.FormValue("dataset"), fixed, varying)
	if err != nil {
		JSONError(h, w, r, err)
		return
	}

	output := struct {
		Fixed   []string     `json:"fixed"`
		Varying string       `json:"varying"`
		Entries []indexEntry `json:"entries"`
	}{
		Varying: varying.Name,
		Entries: make([]indexEntry, 0),
	}
	for _, d := range ix.Fixed() {
		output.Fixed = append(output.Fixed, d.Name)
	}
	for _, key := range ix.Keys() {
		rows := filter.Apply(ix.Rows(key...))
		if len(rows) == 0 {
			continue
		}
		output.Entries = append(output.Entries, indexEntry{Key: key, Values: ix.Lookup(key...), Rows: len(rows)})
	}

	renderJSON(h, w, r, output)
}

type seriesOutput struct {
	Measure      string                   `json:"measure"`
	MeasureLabel string                   `json:"measure_label"`
	Filter       string                   `json:"filter"`
	Styles       map[string]palette.Style `json:"styles"`
	aggregate.Result
}

// newSeriesOutput styles res from the palettes of the snapshot that produced
// it.
func newSeriesOutput(snap *pipeline.Snapshot, res aggregate.Result, q aggregate.Query) seriesOutput {
	out := seriesOutput{
		Measure:      string(q.Measure),
		MeasureLabel: palette.MeasureLabel(q.Measure),
		Filter:       q.Filter.String(),
		Styles:       make(map[string]palette.Style),
		Result:       res,
	}
	for _, s := range res.Series {
		out.Styles[s.Model], _ = snap.Palettes().Predictors.Predictor(s.Model)
		if s.Dataset != "" {
			out.Styles[s.Dataset] = snap.Palettes().Datasets.Style(s.Dataset)
		}
	}

	return out
}

func (h *handler) Aggregate(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		JSONError(h, w, r, err)
		return
	}

	snap := h.Snapshot()
	res, err := snap.Aggregate(r.FormValue("dataset"), q)
	if err != nil {
		JSONError(h, w, r, err)
		return
	}

	renderJSON(h, w, r, newSeriesOutput(snap, res, q))
}

func (h *handler) Compare(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		JSONError(h, w, r, err)
		return
	}

	snap := h.Snapshot()
	res, err := snap.CompareDatasets(list(r, "datasets"), q)
	if err != nil {
		JSONError(h, w, r, err)
		return
	}

	renderJSON(h, w, r, newSeriesOutput(snap, res, q))
}

func (h *handler) Summary(w http.ResponseWriter, r *http.Request) {
	filter, err := index.ParseFilter(r.FormValue("filter"))
	if err != nil {
		JSONError(h, w, r, fmt.Errorf("%w: filter: %s", errBadParameter, err))
		return
	}

	sum, err := h.Snapshot().Summary(r.FormValue("dataset"), filter)
	if err != nil {
		JSONError(h, w, r, err)
		return
	}

	renderJSON(h, w, r, sum)
}

// Chart draws the aggregate, or the dataset comparison when datasets is set.
func (h *handler) Chart(w http.ResponseWriter, r *http.Request) {
	format, err := render.ParseFormat(mux.Vars(r)["format"])
	if err != nil {
		JSONError(h, w, r, fmt.Errorf("%w: %s", errBadParameter, err))
		return
	}

	q, err := parseQuery(r)
	if err != nil {
		JSONError(h, w, r, err)
		return
	}

	snap := h.Snapshot()

	var res aggregate.Result
	if datasets := list(r, "datasets"); len(datasets) > 0 {
		res, err = snap.CompareDatasets(datasets, q)
	} else {
		res, err = snap.Aggregate(r.FormValue("dataset"), q)
	}
	if err != nil {
		JSONError(h, w, r, err)
		return
	}

	label := palette.MeasureLabel(q.Measure)
	title := label
	if len(q.Filter) > 0 {
		title = fmt.Sprintf("%s (%s)", label, q.Filter)
	}

	// Render into a buffer so a failure can still become a JSON error.
	var buf bytes.Buffer
	err = render.Render(&buf, res.Series, render.Options{
		Title:      title,
		YLabel:     label,
		Format:     format,
		Predictors: snap.Palettes().Predictors,
		Datasets:   snap.Palettes().Datasets,
	})
	if err != nil {
		JSONError(h, w, r, err)
		return
	}

	contentType := "image/png"
	if format == render.SVG {
		contentType = "image/svg+xml"
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(buf.Bytes())
}
