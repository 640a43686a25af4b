// fog-sim applies the fog response to clear-weather point cloud files. Input
// clouds are binary XYZI scans; outputs are written in the same layout, with
// an optional .asc export that keeps the per-point outcome tags. Each
// processed scan is recorded in the fog database for later reporting.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/fogsim/internal/cloud"
	"github.com/banshee-data/fogsim/internal/config"
	"github.com/banshee-data/fogsim/internal/fog"
	"github.com/banshee-data/fogsim/internal/fog/fogdb"
	"github.com/banshee-data/fogsim/internal/fsutil"
	"github.com/banshee-data/fogsim/internal/units"
	"github.com/banshee-data/fogsim/internal/version"
)

func main() {
	configPath := flag.String("config", "", "Path to fog tuning JSON (defaults apply when empty)")
	dbPath := flag.String("db", "fog.db", "Path to the fog SQLite database")
	outDir := flag.String("out", "fog_out", "Directory for augmented clouds")
	unit := flag.String("units", units.Visibility, "Fog density units: "+units.GetValidUnitsString())
	density := flag.Float64("density", 50, "Fog density in the chosen units")
	asc := flag.Bool("asc", false, "Also export .asc files with outcome tags")
	noRecord := flag.Bool("no-record", false, "Skip recording runs in the database")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("fog-sim %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: fog-sim [flags] scan.bin [scan.bin ...]")
		flag.PrintDefaults()
		os.Exit(2)
	}
	if !units.IsValid(*unit) {
		fmt.Fprintf(os.Stderr, "invalid units %q; valid: %s\n", *unit, units.GetValidUnitsString())
		os.Exit(2)
	}

	alpha := *density
	if *unit == units.Visibility {
		alpha = units.ExtinctionFromVisibility(*density)
	}

	cfg := config.EmptyFogConfig()
	if *configPath != "" {
		loaded, err := config.LoadFogConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "config error: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	fdb, err := fogdb.NewFogDB(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot open %s: %v\n", *dbPath, err)
		os.Exit(1)
	}
	defer fdb.Close()

	table, err := fdb.LoadTable(cfg.TableParams())
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot load fog table: %v\n", err)
		os.Exit(1)
	}

	opts := []fog.Option{
		fog.WithMinSeparation(cfg.GetMinSeparation()),
		fog.WithWorkers(cfg.GetWorkers()),
	}
	if cfg.NoiseEnabled() {
		opts = append(opts, fog.WithNoise(cfg.NoiseModel()))
	}
	sim, err := fog.NewSimulator(table, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "simulator error: %v\n", err)
		os.Exit(1)
	}

	log.Printf("[FogSim] table %s, alpha=%.5f (visibility %.1f m), %d scans",
		table.Key(), alpha, units.VisibilityFromExtinction(alpha), flag.NArg())

	xyzi := &cloud.XYZIFile{}
	for _, in := range flag.Args() {
		points, err := xyzi.ReadCloud(in)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", in, err)
			os.Exit(1)
		}

		out, err := sim.SimulateCloud(points, alpha)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", in, err)
			os.Exit(1)
		}
		unchanged, attenuated, replaced := out.Counts()
		intensities := make([]float64, out.Len())
		for i, p := range out.Points {
			intensities[i] = p.Intensity
		}
		log.Printf("[FogSim] %s: %d points (%d unchanged, %d attenuated, %d replaced), mean intensity %.4f",
			in, out.Len(), unchanged, attenuated, replaced, stat.Mean(intensities, nil))

		base := filepath.Base(in)
		outPath := filepath.Join(*outDir, base)
		if err := xyzi.WriteCloud(outPath, out); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", outPath, err)
			os.Exit(1)
		}
		if *asc {
			ascPath := filepath.Join(*outDir, strings.TrimSuffix(base, filepath.Ext(base))+".asc")
			if err := cloud.ExportASC(fsutil.OSFileSystem{}, ascPath, out); err != nil {
				fmt.Fprintf(os.Stderr, "%s: %v\n", ascPath, err)
				os.Exit(1)
			}
		}

		if !*noRecord {
			var seed int64
			if cfg.NoiseEnabled() {
				seed = cfg.NoiseModel().Seed
			}
			run := fogdb.NewSimRun(table.Key(), alpha, seed, out, in)
			if err := fdb.InsertSimRun(run); err != nil {
				fmt.Fprintf(os.Stderr, "cannot record run: %v\n", err)
				os.Exit(1)
			}
		}
	}
}
