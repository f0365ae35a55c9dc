// hmmseries aggregates HMM experiment results over the sequence-length axis
// and writes them as tidy CSV, optionally with a chart and an entropy
// summary.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/carbocation/hmmdash/aggregate"
	_ "github.com/carbocation/hmmdash/compileinfoprint"
	"github.com/carbocation/hmmdash/index"
	"github.com/carbocation/hmmdash/pipeline"
	"github.com/carbocation/hmmdash/render"
	"github.com/carbocation/hmmdash/source"
	"github.com/carbocation/hmmdash/table"
	"github.com/carbocation/pfx"
)

type options struct {
	configPath, sources, policy string
	mergeAll, anonymous         bool
	timeout                     time.Duration

	dataset, datasets string
	measure, models   string
	filter, seqLens   string

	out, chartPath string
	summary        bool
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", "", "(Optional) YAML file describing the sources. Either --config or --sources must be set.")
	flag.StringVar(&o.sources, "sources", "", "(Optional) Comma-separated result tables. Each may be a local path, an http(s) URL or a gs:// URL.")
	flag.BoolVar(&o.mergeAll, "merge", false, "(Optional) With --sources, merge every table after the first into the first.")
	flag.StringVar(&o.policy, "policy", "", "(Optional) Merge collision policy: last_writer_wins (default) or fill_gaps.")
	flag.BoolVar(&o.anonymous, "anonymous", false, "(Optional) Read gs:// sources without credentials.")
	flag.DurationVar(&o.timeout, "timeout", source.DefaultTimeout, "Timeout for each http(s) fetch.")
	flag.StringVar(&o.dataset, "dataset", "", "(Optional) Dataset to aggregate. Defaults to the merged table.")
	flag.StringVar(&o.datasets, "compare", "", "(Optional) Comma-separated datasets to compare side by side instead of aggregating one.")
	flag.StringVar(&o.measure, "measure", string(table.Accuracy), "Measure to aggregate, e.g. acc, reverse_kl, forward_kl, hellinger_distance.")
	flag.StringVar(&o.models, "models", "", "(Optional) Comma-separated predictors. Defaults to every predictor reporting --measure.")
	flag.StringVar(&o.filter, "filter", "", "(Optional) Configuration filter, e.g. num_states=4,b_category=0")
	flag.StringVar(&o.seqLens, "seq_lens", "", "(Optional) Comma-separated sequence length of each position in the metric lists, in order. This labels the table's axis; it does not select lengths from it. Defaults to the config, or 4 through 2048.")
	flag.StringVar(&o.out, "out", "", "(Optional) Path for the tidy CSV. Defaults to STDOUT.")
	flag.StringVar(&o.chartPath, "png", "", "(Optional) Path for a chart of the series. A .svg extension writes SVG.")
	flag.BoolVar(&o.summary, "summary", false, "(Optional) Print an entropy summary and histogram of the selected configurations to STDERR.")
	flag.Parse()

	if o.configPath == "" && o.sources == "" {
		flag.PrintDefaults()
		os.Exit(1)
	}

	if err := run(context.Background(), o); err != nil {
		log.Fatalln(err)
	}
}

func run(ctx context.Context, o options) error {
	cfg, err := buildConfig(o)
	if err != nil {
		return err
	}

	fetcher, err := newFetcher(ctx, cfg, o)
	if err != nil {
		return err
	}

	snap, err := pipeline.Load(ctx, fetcher, cfg)
	if err != nil {
		return err
	}

	q, err := buildQuery(o)
	if err != nil {
		return err
	}

	var res aggregate.Result
	if o.datasets != "" {
		res, err = snap.CompareDatasets(splitList(o.datasets), q)
	} else {
		res, err = snap.Aggregate(o.dataset, q)
	}
	if err != nil {
		return err
	}

	if res.Empty() {
		log.Printf("No configuration matched the filter %q\n", q.Filter)
	}

	out := io.Writer(os.Stdout)
	if o.out != "" {
		f, err := os.Create(o.out)
		if err != nil {
			return pfx.Err(err)
		}
		defer f.Close()
		out = f
	}

	if err := writeTidy(out, res.Series); err != nil {
		return err
	}

	if o.chartPath != "" {
		if err := writeChart(o.chartPath, res.Series, q, snap.Palettes()); err != nil {
			return err
		}
		log.Println("Wrote chart to", o.chartPath)
	}

	if o.summary {
		t, ok := snap.Dataset(o.dataset)
		if !ok {
			t = snap.Merged()
		}
		if err := writeSummary(os.Stderr, q.Filter.Apply(t.Rows)); err != nil {
			return err
		}
	}

	return nil
}

func buildConfig(o options) (pipeline.Config, error) {
	var cfg pipeline.Config
	var err error

	if o.configPath != "" {
		cfg, err = pipeline.ReadConfig(o.configPath)
		if err != nil {
			return cfg, err
		}
	} else {
		cfg = pipeline.FromPaths(splitList(o.sources)...)
		if o.mergeAll {
			for i := 1; i < len(cfg.Sources); i++ {
				cfg.Sources[i].Merge = true
			}
		}
	}

	if o.policy != "" {
		cfg.MergePolicy = o.policy
	}

	return cfg, cfg.Validate()
}

func newFetcher(ctx context.Context, cfg pipeline.Config, o options) (source.Fetcher, error) {
	opener := &source.Opener{HTTP: &http.Client{Timeout: o.timeout}}

	paths := make([]string, 0, len(cfg.Sources))
	for _, src := range cfg.Sources {
		paths = append(paths, src.Path)
	}

	if source.NeedsStorage(paths...) {
		client, err := source.NewStorageClient(ctx, o.anonymous)
		if err != nil {
			return nil, err
		}
		opener.Storage = client
	}

	return opener, nil
}

func buildQuery(o options) (aggregate.Query, error) {
	q := aggregate.Query{
		Measure: table.Measure(o.measure),
		Models:  splitList(o.models),
	}

	filter, err := index.ParseFilter(o.filter)
	if err != nil {
		return q, err
	}
	q.Filter = filter

	for _, v := range splitList(o.seqLens) {
		l, err := strconv.Atoi(v)
		if err != nil || l <= 0 {
			return q, fmt.Errorf("sequence length %q is not a positive integer", v)
		}
		q.SeqLens = append(q.SeqLens, l)
	}

	return q, nil
}

func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}

	return out
}

func chartFormat(path string) render.Format {
	if strings.EqualFold(filepath.Ext(path), ".svg") {
		return render.SVG
	}
	return render.PNG
}
