// theory-plot renders the received-power curves behind the fog response
// decision: the attenuated hard-target power against the fog backscatter
// power, for a set of visibilities. Useful when tuning the pulse model or
// the backscatter gain.
package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/fogsim/internal/config"
	"github.com/banshee-data/fogsim/internal/fog"
	"github.com/banshee-data/fogsim/internal/units"
)

func main() {
	configPath := flag.String("config", "", "Path to fog tuning JSON (defaults apply when empty)")
	outDir := flag.String("out", "plots", "Output directory for PNG plots")
	targetRange := flag.Float64("target", 50, "Hard target range in meters")
	intensity := flag.Float64("intensity", 1.0, "Hard target clear-weather intensity")
	flag.Parse()

	cfg := config.EmptyFogConfig()
	if *configPath != "" {
		loaded, err := config.LoadFogConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "config error: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	tp := cfg.TableParams()
	table, err := fog.BuildTable(tp)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build failed: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "cannot create %s: %v\n", *outDir, err)
		os.Exit(1)
	}

	visibilities := []float64{20, 30, 50, 100, 200}
	palette := []color.Color{
		color.RGBA{R: 68, G: 1, B: 84, A: 255},
		color.RGBA{R: 59, G: 82, B: 139, A: 255},
		color.RGBA{R: 33, G: 145, B: 140, A: 255},
		color.RGBA{R: 94, G: 201, B: 98, A: 255},
		color.RGBA{R: 253, G: 231, B: 37, A: 255},
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Fog backscatter vs hard target at %.0f m", *targetRange)
	p.X.Label.Text = "Range (m)"
	p.Y.Label.Text = "Received power (normalized)"
	p.Y.Scale = plot.LogScale{}
	p.Y.Tick.Marker = plot.LogTicks{}

	step := tp.RangeStep
	for i, vis := range visibilities {
		alpha := units.ExtinctionFromVisibility(vis)
		k := tp.Pulse.BackscatterGain * units.BackscatterFromExtinction(alpha)

		pts := make(plotter.XYs, 0, int(*targetRange/step))
		for r := step; r <= *targetRange; r += step {
			integral, err := table.Integral(r, alpha)
			if err != nil {
				fmt.Fprintf(os.Stderr, "integral at r=%.2f: %v\n", r, err)
				os.Exit(1)
			}
			if v := k * integral; v > 0 {
				pts = append(pts, plotter.XY{X: r, Y: v})
			}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "plot error: %v\n", err)
			os.Exit(1)
		}
		line.Width = vg.Points(1)
		line.Color = palette[i%len(palette)]
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("fog, MOR %.0f m", vis), line)

		// The hard-target power is flat in r but depends on alpha, so draw
		// one horizontal level per visibility.
		pHard := *intensity * math.Exp(-2*alpha**targetRange)
		hard := plotter.XYs{{X: step, Y: pHard}, {X: *targetRange, Y: pHard}}
		hardLine, err := plotter.NewLine(hard)
		if err != nil {
			fmt.Fprintf(os.Stderr, "plot error: %v\n", err)
			os.Exit(1)
		}
		hardLine.Width = vg.Points(1)
		hardLine.Color = palette[i%len(palette)]
		hardLine.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
		p.Add(hardLine)
	}

	outFile := filepath.Join(*outDir, "fog_power_curves.png")
	if err := p.Save(10*vg.Inch, 6*vg.Inch, outFile); err != nil {
		fmt.Fprintf(os.Stderr, "save failed: %v\n", err)
		os.Exit(1)
	}
	log.Printf("[TheoryPlot] wrote %s (table %s)", outFile, table.Key())
}
