package main

import (
	"fmt"
	"io"
	"os"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/carbocation/hmmdash/aggregate"
	"github.com/carbocation/hmmdash/palette"
	"github.com/carbocation/hmmdash/pipeline"
	"github.com/carbocation/hmmdash/render"
	"github.com/carbocation/hmmdash/table"
	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"
)

func writeTidy(w io.Writer, series []aggregate.Series) error {
	points := aggregate.Tidy(series)
	if err := gocsv.Marshal(&points, w); err != nil {
		return pfx.Err(err)
	}

	return nil
}

func writeChart(path string, series []aggregate.Series, q aggregate.Query, palettes pipeline.Palettes) error {
	f, err := os.Create(path)
	if err != nil {
		return pfx.Err(err)
	}
	defer f.Close()

	label := palette.MeasureLabel(q.Measure)
	title := label
	if len(q.Filter) > 0 {
		title = fmt.Sprintf("%s (%s)", label, q.Filter)
	}

	return render.Render(f, series, render.Options{
		Title:      title,
		YLabel:     label,
		Format:     chartFormat(path),
		Predictors: palettes.Predictors,
		Datasets:   palettes.Datasets,
	})
}

// writeSummary prints the entropy panel for rows and a histogram of their
// transition entropy.
func writeSummary(w io.Writer, rows []*table.Row) error {
	sum, err := aggregate.Summarize(rows)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%d configurations\n", sum.Count)
	fmt.Fprintf(w, "A entropy: %s\n", sum.AEntropy)
	fmt.Fprintf(w, "B entropy: %s\n", sum.BEntropy)

	if len(rows) < 1 {
		return nil
	}

	entropies := make([]float64, 0, len(rows))
	for _, r := range rows {
		entropies = append(entropies, r.AEntropy)
	}

	fmt.Fprintln(w, "A entropy histogram:")
	hist := histogram.Hist(25, entropies)
	if err := histogram.Fprint(w, hist, histogram.Linear(5)); err != nil {
		return pfx.Err(err)
	}

	return nil
}
