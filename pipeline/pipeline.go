// Package pipeline loads a dashboard's result tables concurrently and serves
// queries from an immutable snapshot of them.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/carbocation/hmmdash/aggregate"
	"github.com/carbocation/hmmdash/index"
	"github.com/carbocation/hmmdash/merge"
	"github.com/carbocation/hmmdash/palette"
	"github.com/carbocation/hmmdash/source"
	"github.com/carbocation/hmmdash/table"
	"github.com/carbocation/pfx"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

var (
	ErrUnknownDataset = errors.New("unknown dataset")
	ErrNothingLoaded  = errors.New("no source could be loaded")
)

// Load fetches and parses every source, at most cfg.Concurrency at a time.
// If a required source fails, the whole load fails and no snapshot is
// returned. Optional sources that fail are logged and left out.
func Load(ctx context.Context, fetcher source.Fetcher, cfg Config) (*Snapshot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, pfx.Err(err)
	}

	tables := make([]*table.Table, len(cfg.Sources))

	sem := semaphore.NewWeighted(int64(cfg.concurrency()))
	g, gctx := errgroup.WithContext(ctx)

	for i, src := range cfg.Sources {
		i, src := i, src
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			t, err := loadSource(gctx, fetcher, src, cfg.Schema)
			if err == nil {
				tables[i] = t
				return nil
			}

			if src.Required {
				return fmt.Errorf("required source %s: %w", src.Name, err)
			}

			// A failing required source cancels the rest. That is not the
			// optional source's fault, so stay quiet.
			if gctx.Err() == nil {
				log.Printf("Skipping optional source %s: %v\n", src.Name, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, pfx.Err(err)
	}

	return newSnapshot(cfg, tables)
}

func loadSource(ctx context.Context, fetcher source.Fetcher, src Source, schema table.Schema) (*table.Table, error) {
	started := time.Now()

	raw, err := fetcher.Fetch(ctx, src.Path)
	if err != nil {
		return nil, err
	}

	t, err := table.LoadNamed(src.Name, raw, schema)
	if err != nil {
		return nil, err
	}

	if src.Prefix != "" {
		t = t.Rename(src.Prefix)
	}

	log.Printf("Loaded %s: %d rows (%d dropped), %d metrics in %v\n", src.Name, len(t.Rows), t.Dropped, t.Catalog.Len(), time.Since(started))

	return t, nil
}

// Snapshot is the result of one Load. It never changes; reloading builds a
// new Snapshot. Tables and rows handed out by a Snapshot are shared and must
// not be modified.
type Snapshot struct {
	order    []string
	datasets map[string]*table.Table
	merged   *table.Table
	seqLens  []int
	palettes Palettes
	loadedAt time.Time
}

func newSnapshot(cfg Config, tables []*table.Table) (*Snapshot, error) {
	s := &Snapshot{
		datasets: make(map[string]*table.Table),
		seqLens:  cfg.SeqLens,
		palettes: Palettes{
			Predictors: palette.Predictors.With(cfg.Palette.Predictors),
			Datasets:   palette.Datasets.With(cfg.Palette.Datasets),
		},
		loadedAt: time.Now(),
	}
	if len(s.seqLens) == 0 {
		s.seqLens = aggregate.DefaultSeqLens
	}

	for _, t := range tables {
		if t == nil {
			continue
		}
		s.order = append(s.order, t.Name)
		s.datasets[t.Name] = t
	}
	if len(s.order) == 0 {
		return nil, pfx.Err(ErrNothingLoaded)
	}

	base := baseSource(cfg.Sources, tables)

	opts := cfg.MergeOptions()
	s.merged = tables[base]
	for i, t := range tables {
		if t == nil || i == base || !cfg.Sources[i].Merge {
			continue
		}
		s.merged = merge.MergeTables(s.merged, t, opts)
		log.Printf("Merged %s into %s: %d rows\n", t.Name, tables[base].Name, len(s.merged.Rows))
	}

	return s, nil
}

// baseSource picks the table merge sources fold into: the first required
// unmerged source, else the first unmerged one, else the first loaded.
func baseSource(sources []Source, tables []*table.Table) int {
	for _, want := range []func(Source) bool{
		func(src Source) bool { return src.Required && !src.Merge },
		func(src Source) bool { return !src.Merge },
		func(Source) bool { return true },
	} {
		for i, t := range tables {
			if t != nil && want(sources[i]) {
				return i
			}
		}
	}

	return -1
}

// Datasets lists the loaded dataset names in config order.
func (s *Snapshot) Datasets() []string {
	return append([]string(nil), s.order...)
}

// Dataset returns one loaded table, before any merging.
func (s *Snapshot) Dataset(name string) (*table.Table, bool) {
	t, ok := s.datasets[name]
	return t, ok
}

// Merged is the base table with every merge source folded in.
func (s *Snapshot) Merged() *table.Table {
	return s.merged
}

func (s *Snapshot) Catalog() *table.Catalog {
	return s.merged.Catalog
}

func (s *Snapshot) SeqLens() []int {
	return append([]int(nil), s.seqLens...)
}

func (s *Snapshot) Palettes() Palettes {
	return s.palettes
}

func (s *Snapshot) LoadedAt() time.Time {
	return s.loadedAt
}

// lookup resolves a dataset name. The empty name is the merged table.
func (s *Snapshot) lookup(name string) (*table.Table, error) {
	if name == "" {
		return s.merged, nil
	}
	t, ok := s.datasets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDataset, name)
	}
	return t, nil
}

// Options lists the filterable values of dims over a dataset's rows. With no
// dims, every built-in dimension is listed.
func (s *Snapshot) Options(dataset string, dims ...index.Dimension) (map[string][]index.Coord, error) {
	t, err := s.lookup(dataset)
	if err != nil {
		return nil, err
	}
	if len(dims) == 0 {
		dims = index.Builtins()
	}

	return index.Options(t.Rows, dims...), nil
}

// Index builds a configuration index over a dataset's rows.
func (s *Snapshot) Index(dataset string, fixed []index.Dimension, varying index.Dimension) (*index.Index, error) {
	t, err := s.lookup(dataset)
	if err != nil {
		return nil, err
	}

	return index.Build(t.Rows, fixed, varying), nil
}

// Aggregate runs q against one dataset. The configured sequence lengths are
// used when q names none.
func (s *Snapshot) Aggregate(dataset string, q aggregate.Query) (aggregate.Result, error) {
	t, err := s.lookup(dataset)
	if err != nil {
		return aggregate.Result{}, err
	}
	if len(q.SeqLens) == 0 {
		q.SeqLens = s.seqLens
	}

	return aggregate.Run(t.Rows, t.Catalog, q)
}

// CompareDatasets runs q against several datasets, or all of them when names
// is empty.
func (s *Snapshot) CompareDatasets(names []string, q aggregate.Query) (aggregate.Result, error) {
	if len(names) == 0 {
		names = s.order
	}
	if len(q.SeqLens) == 0 {
		q.SeqLens = s.seqLens
	}

	sets := make([]aggregate.Dataset, 0, len(names))
	for _, name := range names {
		t, err := s.lookup(name)
		if err != nil {
			return aggregate.Result{}, err
		}
		sets = append(sets, aggregate.Dataset{Name: name, Rows: t.Rows, Catalog: t.Catalog})
	}

	return aggregate.CompareDatasets(sets, q)
}

// Summary describes the rows of one dataset that pass filter.
func (s *Snapshot) Summary(dataset string, filter index.Filter) (aggregate.Summary, error) {
	t, err := s.lookup(dataset)
	if err != nil {
		return aggregate.Summary{}, err
	}

	return aggregate.Summarize(filter.Apply(t.Rows))
}
