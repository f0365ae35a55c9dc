package pipeline

import (
	"errors"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/carbocation/hmmdash/merge"
	"github.com/carbocation/hmmdash/table"
)

const dashboard = `
sources:
  - name: Qwen2.5-7B
    path: gs://hmm-results/qwen/7b.csv.gz
    required: true
  - path: https://example.com/results/lstm.tsv
    merge: true
    prefix: new_
seq_lens: [4, 16, 64]
merge_policy: fill_gaps
merge_tolerance: 0.001
schema:
  states: [n_states]
  measures: [acc, perplexity]
palette:
  datasets:
    Qwen2.5-7B:
      label: Qwen 7B
      color: "#ABCDEF"
`

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(dashboard))
	if err != nil {
		t.Fatal(err)
	}

	if len(cfg.Sources) != 2 {
		t.Fatalf("Expected 2 sources, got %d", len(cfg.Sources))
	}
	if src := cfg.Sources[1]; src.Name != "lstm" || !src.Merge || src.Prefix != "new_" || src.Required {
		t.Errorf("Unexpected second source %+v", src)
	}
	if len(cfg.SeqLens) != 3 || cfg.SeqLens[2] != 64 {
		t.Errorf("Unexpected seq_lens %v", cfg.SeqLens)
	}

	opts := cfg.MergeOptions()
	if opts.Policy != merge.FillGaps || opts.Tolerance != 0.001 {
		t.Errorf("Unexpected merge options %+v", opts)
	}

	schema := cfg.Schema.WithDefaults()
	if schema.States[0] != "n_states" || schema.A[0] != "A" {
		t.Errorf("Schema overrides were not merged with the defaults: %+v", schema)
	}
	if len(schema.Measures) != 2 || schema.Measures[1] != table.Measure("perplexity") {
		t.Errorf("Unexpected measures %v", schema.Measures)
	}

	if s := cfg.Palette.Datasets["Qwen2.5-7B"]; s.Label != "Qwen 7B" {
		t.Errorf("Unexpected palette override %+v", s)
	}
}

func TestParseConfigErrors(t *testing.T) {
	for _, c := range []struct {
		Name string
		YAML string
	}{
		{"no sources", "seq_lens: [4]\n"},
		{"typo", "sources:\n  - path: a.csv\n    requried: true\n"},
		{"no path", "sources:\n  - name: a\n"},
		{"duplicate name", "sources:\n  - path: x/a.csv\n  - path: y/a.csv\n"},
		{"bad seq len", "sources:\n  - path: a.csv\nseq_lens: [4, 0]\n"},
		{"bad policy", "sources:\n  - path: a.csv\nmerge_policy: newest\n"},
	} {
		if _, err := ParseConfig([]byte(c.YAML)); err == nil {
			t.Errorf("%s: expected an error", c.Name)
		}
	}

	if _, err := ParseConfig([]byte("seq_lens: [4]\n")); !errors.Is(err, ErrNoSources) {
		t.Errorf("Expected ErrNoSources, got %v", err)
	}
}

func TestReadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashboard.yaml")
	if err := ioutil.WriteFile(path, []byte(dashboard), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := ReadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Sources[0].Path != "gs://hmm-results/qwen/7b.csv.gz" {
		t.Errorf("Unexpected first source %+v", cfg.Sources[0])
	}
}

func TestNameOf(t *testing.T) {
	for _, c := range []struct {
		Path     string
		Expected string
	}{
		{"gs://hmm-results/qwen/Qwen2.5-7B.csv.gz", "Qwen2.5-7B"},
		{"~/results/lstm.tsv", "lstm"},
		{"https://example.com/a/results.txt", "results"},
		{"plain", "plain"},
	} {
		if got := NameOf(c.Path); got != c.Expected {
			t.Errorf("%s: expected %q, got %q", c.Path, c.Expected, got)
		}
	}
}

func TestFromPaths(t *testing.T) {
	cfg := FromPaths("a/x.csv", "b/y.tsv")
	if len(cfg.Sources) != 2 || cfg.Sources[1].Name != "y" || !cfg.Sources[1].Required {
		t.Errorf("Unexpected sources %+v", cfg.Sources)
	}
	if err := cfg.Validate(); err != nil {
		t.Error(err)
	}
}
