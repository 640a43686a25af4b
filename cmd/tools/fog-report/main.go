// fog-report renders an HTML summary of recorded simulation runs: the
// outcome distribution per run and how the replaced fraction grows with fog
// density. Reads the run records fog-sim stores in the fog database.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/fogsim/internal/fog/fogdb"
	"github.com/banshee-data/fogsim/internal/units"
)

func main() {
	dbPath := flag.String("db", "fog.db", "Path to the fog SQLite database")
	key := flag.String("key", "", "Restrict to one table parameterisation key (all runs when empty)")
	outPath := flag.String("out", "fog_report.html", "Output HTML file")
	flag.Parse()

	fdb, err := fogdb.NewFogDB(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot open %s: %v\n", *dbPath, err)
		os.Exit(1)
	}
	defer fdb.Close()

	runs, err := fdb.ListSimRuns(*key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot list runs: %v\n", err)
		os.Exit(1)
	}
	if len(runs) == 0 {
		fmt.Fprintln(os.Stderr, "no recorded runs; simulate some scans with fog-sim first")
		os.Exit(1)
	}

	page := components.NewPage()
	page.PageTitle = "Fog simulation report"
	page.AddCharts(outcomeBar(runs), replacedScatter(runs))

	if dir := filepath.Dir(*outPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "cannot create %s: %v\n", dir, err)
			os.Exit(1)
		}
	}
	f, err := os.Create(*outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot create %s: %v\n", *outPath, err)
		os.Exit(1)
	}
	defer f.Close()
	if err := page.Render(f); err != nil {
		fmt.Fprintf(os.Stderr, "render failed: %v\n", err)
		os.Exit(1)
	}
	log.Printf("[FogReport] wrote %s (%d runs)", *outPath, len(runs))
}

// outcomeBar stacks the per-run outcome counts so a growing replaced share
// is visible at a glance across runs.
func outcomeBar(runs []fogdb.SimRun) *charts.Bar {
	labels := make([]string, len(runs))
	unchanged := make([]opts.BarData, len(runs))
	attenuated := make([]opts.BarData, len(runs))
	replaced := make([]opts.BarData, len(runs))
	for i, r := range runs {
		labels[i] = fmt.Sprintf("%s\nMOR %.0f m", r.RunID[:8], units.VisibilityFromExtinction(r.Alpha))
		unchanged[i] = opts.BarData{Value: r.PointsUnchanged}
		attenuated[i] = opts.BarData{Value: r.PointsAttenuated}
		replaced[i] = opts.BarData{Value: r.PointsReplaced}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Fog outcomes", Theme: "dark", Width: "1100px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: "Outcome distribution per run"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(labels)
	bar.AddSeries("unchanged", unchanged, charts.WithBarChartOpts(opts.BarChart{Stack: "outcomes"}))
	bar.AddSeries("attenuated", attenuated, charts.WithBarChartOpts(opts.BarChart{Stack: "outcomes"}))
	bar.AddSeries("replaced", replaced, charts.WithBarChartOpts(opts.BarChart{Stack: "outcomes"}))
	return bar
}

// replacedScatter plots the replaced fraction against the extinction
// coefficient across all recorded runs.
func replacedScatter(runs []fogdb.SimRun) *charts.Scatter {
	data := make([]opts.ScatterData, 0, len(runs))
	for _, r := range runs {
		if r.PointsTotal == 0 {
			continue
		}
		frac := float64(r.PointsReplaced) / float64(r.PointsTotal)
		data = append(data, opts.ScatterData{Value: []interface{}{r.Alpha, frac}})
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Replaced fraction", Theme: "dark", Width: "1100px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: "Replaced fraction vs extinction coefficient"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "alpha (1/m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "replaced fraction", Min: 0, Max: 1, NameLocation: "middle", NameGap: 30}),
	)
	scatter.AddSeries("runs", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}))
	return scatter
}
