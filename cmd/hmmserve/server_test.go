package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io/ioutil"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/carbocation/hmmdash/aggregate"
	"github.com/carbocation/hmmdash/palette"
	"github.com/carbocation/hmmdash/pipeline"
	"github.com/carbocation/hmmdash/source"
	"github.com/carbocation/hmmdash/table"
)

const qwen7b = `num_states,num_observations,A,B,pi,llm_emission_acc,random_emission_acc
2,2,"[[0.5, 0.5], [0.5, 0.5]]","[[1, 0], [0, 1]]","[0.5, 0.5]","[0.5, 0.6]","[0.5, 0.5]"
2,2,"[[0.9, 0.1], [0.1, 0.9]]","[[1, 0], [0, 1]]","[0.5, 0.5]","[0.7, 0.8]","[0.5, 0.5]"
`

const lstm = `num_states,num_observations,A,B,pi,lstm_emission_acc
2,2,"[[0.5, 0.5], [0.5, 0.5]]","[[1, 0], [0, 1]]","[0.5, 0.5]","[0.4, 0.45]"
3,2,"[[1, 0, 0], [0, 1, 0], [0, 0, 1]]","[[1, 0], [0, 1], [1, 0]]","[1, 0, 0]","[0.3, 0.3]"
`

const qwen3b = `num_states,num_observations,A,B,pi,llm_emission_acc
2,2,"[[0.5, 0.5], [0.5, 0.5]]","[[1, 0], [0, 1]]","[0.5, 0.5]","[0.2, nan]"
`

func testServer(t *testing.T) http.Handler {
	t.Helper()

	g := &Global{
		Site: "test",
		log:  log.New(ioutil.Discard, "", 0),
		fetcher: source.Memory{
			"Qwen2.5-7B.csv": []byte(qwen7b),
			"lstm.csv":       []byte(lstm),
			"Qwen2.5-3B.csv": []byte(qwen3b),
		},
		config: pipeline.Config{
			Sources: []pipeline.Source{
				{Path: "Qwen2.5-7B.csv", Required: true},
				{Path: "lstm.csv", Merge: true},
				{Path: "Qwen2.5-3B.csv"},
			},
			SeqLens: []int{4, 8},
		},
	}
	if err := g.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}

	return router(g)
}

func get(t *testing.T, h http.Handler, url string) *httptest.ResponseRecorder {
	t.Helper()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, nil))
	return w
}

type errorBody struct {
	Success bool
	Message string
}

type seriesBody struct {
	Measure      string `json:"measure"`
	MeasureLabel string `json:"measure_label"`
	Matched      int    `json:"matched"`
	Series       []struct {
		Model   string `json:"model"`
		Dataset string `json:"dataset"`
		Points  []struct {
			SeqLen int      `json:"seq_len"`
			Mean   *float64 `json:"mean"`
			N      int      `json:"n"`
		} `json:"points"`
	} `json:"series"`
	Styles map[string]struct {
		Label string `json:"label"`
	} `json:"styles"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()

	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("Could not decode %q: %v", w.Body.String(), err)
	}
}

func TestAggregateEndpoint(t *testing.T) {
	h := testServer(t)

	w := get(t, h, "/aggregate?measure=acc&models=llm_emission,lstm_emission")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body)
	}

	var body seriesBody
	decode(t, w, &body)
	if body.Matched != 3 || len(body.Series) != 2 {
		t.Fatalf("Unexpected body %+v", body)
	}
	if body.MeasureLabel != "Accuracy" {
		t.Errorf("Unexpected measure label %q", body.MeasureLabel)
	}
	if body.Styles["lstm_emission"].Label != "LSTM" {
		t.Errorf("Unexpected styles %+v", body.Styles)
	}

	pts := body.Series[1].Points
	if len(pts) != 2 || pts[0].Mean == nil || pts[0].N != 2 {
		t.Errorf("Unexpected lstm points %+v", pts)
	}
}

func TestAggregateFilterAndSeqLens(t *testing.T) {
	h := testServer(t)

	w := get(t, h, "/aggregate?measure=acc&models=llm_emission&filter=num_states=3&seq_lens=4")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body)
	}

	var body seriesBody
	decode(t, w, &body)
	if body.Matched != 1 {
		t.Errorf("Expected 1 matching row, got %d", body.Matched)
	}
	if pts := body.Series[0].Points; len(pts) != 1 || pts[0].Mean != nil {
		t.Errorf("Expected one absent point, got %+v", pts)
	}
}

func TestErrors(t *testing.T) {
	h := testServer(t)

	for _, c := range []struct {
		URL  string
		Code int
	}{
		{"/aggregate?measure=acc&models=gpt_emission", http.StatusBadRequest},
		{"/aggregate?models=llm_emission", http.StatusBadRequest},
		{"/aggregate?measure=acc&filter=num_states", http.StatusBadRequest},
		{"/aggregate?measure=acc&seq_lens=4,x", http.StatusBadRequest},
		{"/aggregate?measure=acc&dataset=Qwen2.5-14B", http.StatusNotFound},
		{"/compare?measure=acc&datasets=Qwen2.5-14B", http.StatusNotFound},
		{"/chart.png?measure=acc&filter=num_states=9", http.StatusNotFound},
		{"/nowhere", http.StatusNotFound},
	} {
		w := get(t, h, c.URL)
		if w.Code != c.Code {
			t.Errorf("%s: expected %d, got %d", c.URL, c.Code, w.Code)
			continue
		}

		var body errorBody
		decode(t, w, &body)
		if body.Success || body.Message == "" {
			t.Errorf("%s: unexpected error body %+v", c.URL, body)
		}
	}
}

func TestCompareEndpoint(t *testing.T) {
	h := testServer(t)

	w := get(t, h, "/compare?measure=acc&models=llm_emission&datasets=Qwen2.5-7B,Qwen2.5-3B")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body)
	}

	var body seriesBody
	decode(t, w, &body)
	if len(body.Series) != 2 || body.Series[1].Dataset != "Qwen2.5-3B" {
		t.Fatalf("Unexpected series %+v", body.Series)
	}
	if body.Styles["Qwen2.5-3B"].Label != "Qwen 2 (3B)" {
		t.Errorf("Unexpected dataset style %+v", body.Styles["Qwen2.5-3B"])
	}
	if pts := body.Series[1].Points; pts[0].Mean == nil || pts[1].Mean != nil {
		t.Errorf("Expected the nan cell to be absent, got %+v", pts)
	}
}

func TestSeriesOutputUsesQueriedSnapshot(t *testing.T) {
	fetcher := source.Memory{"Qwen2.5-7B.csv": []byte(qwen7b)}
	load := func(label string) *pipeline.Snapshot {
		cfg := pipeline.Config{
			Sources: []pipeline.Source{{Path: "Qwen2.5-7B.csv", Required: true}},
			Palette: pipeline.Palettes{Datasets: palette.Map{"Qwen2.5-7B": {Label: label, Color: "#112233"}}},
		}
		snap, err := pipeline.Load(context.Background(), fetcher, cfg)
		if err != nil {
			t.Fatal(err)
		}
		return snap
	}

	before, after := load("before"), load("after")

	q := aggregate.Query{Measure: table.Accuracy}
	res, err := before.CompareDatasets(nil, q)
	if err != nil {
		t.Fatal(err)
	}

	for _, c := range []struct {
		Snap     *pipeline.Snapshot
		Expected string
	}{
		{before, "before"},
		{after, "after"},
	} {
		out := newSeriesOutput(c.Snap, res, q)
		if got := out.Styles["Qwen2.5-7B"].Label; got != c.Expected {
			t.Errorf("Expected the %s palette, got %q", c.Expected, got)
		}
	}
}

func TestOptionsEndpoint(t *testing.T) {
	h := testServer(t)

	w := get(t, h, "/options?dims=num_states,pi_type")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body)
	}

	var body struct {
		Options map[string][]interface{} `json:"options"`
		Models  map[string][]struct {
			ID string `json:"id"`
		} `json:"models"`
		SeqLens []int `json:"seq_lens"`
	}
	decode(t, w, &body)

	if got := body.Options["num_states"]; len(got) != 2 {
		t.Errorf("Unexpected num_states options %v", got)
	}
	if got := body.Options["pi_type"]; len(got) != 2 {
		t.Errorf("Expected uniform and deterministic pi types, got %v", got)
	}
	if len(body.Models["acc"]) != 3 {
		t.Errorf("Expected 3 models reporting acc, got %+v", body.Models["acc"])
	}
	if len(body.SeqLens) != 2 {
		t.Errorf("Unexpected seq_lens %v", body.SeqLens)
	}
}

func TestIndexEndpoint(t *testing.T) {
	h := testServer(t)

	w := get(t, h, "/index?fixed=num_states&varying=a_entropy")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body)
	}

	var body struct {
		Fixed   []string `json:"fixed"`
		Varying string   `json:"varying"`
		Entries []struct {
			Key    []float64 `json:"key"`
			Values []float64 `json:"values"`
			Rows   int       `json:"rows"`
		} `json:"entries"`
	}
	decode(t, w, &body)

	if len(body.Entries) != 2 || body.Entries[0].Key[0] != 2 || len(body.Entries[0].Values) != 2 {
		t.Errorf("Unexpected index %+v", body)
	}
}

func TestChartEndpoint(t *testing.T) {
	h := testServer(t)

	w := get(t, h, "/chart.png?measure=acc&models=llm_emission,random_emission")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body)
	}
	if w.Header().Get("Content-Type") != "image/png" || !bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("Expected a PNG")
	}

	w = get(t, h, "/chart.svg?measure=acc&models=llm_emission&datasets=Qwen2.5-7B,Qwen2.5-3B")
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte("<svg")) {
		t.Errorf("Expected an SVG comparison chart, got %d", w.Code)
	}
}

func TestVersionAndReload(t *testing.T) {
	h := testServer(t)

	w := get(t, h, "/version")
	var info struct {
		Version string `json:"version"`
	}
	decode(t, w, &info)
	if info.Version == "" {
		t.Error("Expected a version")
	}

	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, httptest.NewRequest(http.MethodPost, "/reload", nil))
	if rw.Code != http.StatusOK {
		t.Errorf("Expected 200 from reload, got %d: %s", rw.Code, rw.Body)
	}
}

func TestBuildConfig(t *testing.T) {
	cfg, err := buildConfig("", "a/Qwen2.5-7B.csv,b/lstm.csv", true, "fill_gaps")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Sources[0].Merge || !cfg.Sources[1].Merge {
		t.Errorf("Only sources after the first should merge: %+v", cfg.Sources)
	}
	if cfg.MergePolicy != "fill_gaps" {
		t.Errorf("Unexpected policy %q", cfg.MergePolicy)
	}

	if _, err := buildConfig("", "a.csv", false, "newest"); err == nil {
		t.Error("Expected an unknown policy to fail")
	}
}
