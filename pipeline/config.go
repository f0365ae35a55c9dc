package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"io/ioutil"
	"path/filepath"
	"strings"

	"github.com/carbocation/hmmdash"
	"github.com/carbocation/hmmdash/merge"
	"github.com/carbocation/hmmdash/palette"
	"github.com/carbocation/hmmdash/table"
	"github.com/carbocation/pfx"
	"gopkg.in/yaml.v3"
)

// DefaultConcurrency bounds how many sources are fetched at once.
const DefaultConcurrency = 4

var ErrNoSources = errors.New("no sources configured")

// Source is one result table.
type Source struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`

	// A required source that cannot be fetched or parsed fails the load. An
	// optional one is logged and left out.
	Required bool `yaml:"required"`

	// Prefix is prepended to every model id the source reports.
	Prefix string `yaml:"prefix"`

	// Merge folds the source into the base table: the first required
	// source that is not itself flagged merge.
	Merge bool `yaml:"merge"`
}

// Palettes override display labels and colors.
type Palettes struct {
	Predictors palette.Map `yaml:"predictors"`
	Datasets   palette.Map `yaml:"datasets"`
}

// Config describes a dashboard: its sources and how to combine them.
type Config struct {
	Sources []Source     `yaml:"sources"`
	SeqLens []int        `yaml:"seq_lens"`
	Schema  table.Schema `yaml:"schema"`

	MergePolicy    string  `yaml:"merge_policy"`
	MergeTolerance float64 `yaml:"merge_tolerance"`

	Palette Palettes `yaml:"palette"`

	Concurrency int `yaml:"concurrency"`
}

// ReadConfig reads a YAML config file. ~ is expanded.
func ReadConfig(path string) (Config, error) {
	path, err := hmmdash.ExpandHome(path)
	if err != nil {
		return Config{}, err
	}

	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return Config{}, pfx.Err(err)
	}

	cfg, err := ParseConfig(raw)
	if err != nil {
		return Config{}, pfx.Err(fmt.Errorf("%s: %w", path, err))
	}

	return cfg, nil
}

// ParseConfig decodes YAML. Unknown keys are errors, so a typo does not
// silently fall back to a default.
func ParseConfig(raw []byte) (Config, error) {
	var cfg Config

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// FromPaths builds a config in which every path is a required, unmerged
// source named after its file.
func FromPaths(paths ...string) Config {
	cfg := Config{}
	for _, p := range paths {
		cfg.Sources = append(cfg.Sources, Source{Name: NameOf(p), Path: p, Required: true})
	}

	return cfg
}

// NameOf is the default dataset name for a path: its base name without
// compression or table extensions.
func NameOf(path string) string {
	name := filepath.Base(strings.TrimRight(path, "/"))
	for _, ext := range []string{".gz", ".bz2", ".xz", ".zip", ".csv", ".tsv", ".txt"} {
		name = strings.TrimSuffix(name, ext)
	}

	return name
}

// Validate checks the config and fills in source names.
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return ErrNoSources
	}

	seen := make(map[string]struct{})
	for i := range c.Sources {
		src := &c.Sources[i]
		if src.Path == "" {
			return fmt.Errorf("source %d has no path", i)
		}
		if src.Name == "" {
			src.Name = NameOf(src.Path)
		}
		if _, exists := seen[src.Name]; exists {
			return fmt.Errorf("source name %q is used more than once", src.Name)
		}
		seen[src.Name] = struct{}{}
	}

	for _, l := range c.SeqLens {
		if l <= 0 {
			return fmt.Errorf("sequence length %d is not positive", l)
		}
	}

	if _, err := merge.ParsePolicy(c.MergePolicy); err != nil {
		return err
	}

	if c.MergeTolerance < 0 {
		return fmt.Errorf("merge tolerance %g is negative", c.MergeTolerance)
	}

	return nil
}

// MergeOptions are the merge defaults with the configured policy and
// tolerance.
func (c Config) MergeOptions() merge.Options {
	opts := merge.DefaultOptions()
	opts.Policy, _ = merge.ParsePolicy(c.MergePolicy)
	if c.MergeTolerance > 0 {
		opts.Tolerance = c.MergeTolerance
	}

	return opts
}

func (c Config) concurrency() int {
	if c.Concurrency <= 0 {
		return DefaultConcurrency
	}
	return c.Concurrency
}
