// fog-build precomputes the fog backscatter integral table for a pulse
// parameterisation and stores it in the fog database, keyed by the
// parameterisation digest. Simulation runs (fog-sim) load it from there.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/banshee-data/fogsim/internal/config"
	"github.com/banshee-data/fogsim/internal/fog"
	"github.com/banshee-data/fogsim/internal/fog/fogdb"
	"github.com/banshee-data/fogsim/internal/version"
)

func main() {
	configPath := flag.String("config", "", "Path to fog tuning JSON (defaults apply when empty)")
	dbPath := flag.String("db", "fog.db", "Path to the fog SQLite database")
	force := flag.Bool("force", false, "Rebuild even if a table for this parameterisation already exists")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("fog-build %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
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

	tp := cfg.TableParams()
	key, err := tp.Key()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot derive table key: %v\n", err)
		os.Exit(1)
	}

	fdb, err := fogdb.NewFogDB(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot open %s: %v\n", *dbPath, err)
		os.Exit(1)
	}
	defer fdb.Close()

	if !*force {
		existing, err := fdb.GetTableSnapshot(key)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cannot query existing table: %v\n", err)
			os.Exit(1)
		}
		if existing != nil {
			log.Printf("[FogBuild] table %s already built (%dx%d bins); use -force to rebuild",
				key, existing.RangeBins, existing.AlphaBins)
			return
		}
	}

	start := time.Now()
	table, err := fog.BuildTable(tp)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build failed: %v\n", err)
		os.Exit(1)
	}
	log.Printf("[FogBuild] built table %s: %d range bins x %d alpha bins in %v",
		table.Key(), table.RangeBins(), table.AlphaBins(), time.Since(start).Round(time.Millisecond))

	snap, err := table.Snapshot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "snapshot failed: %v\n", err)
		os.Exit(1)
	}
	if _, err := fdb.InsertTableSnapshot(snap); err != nil {
		fmt.Fprintf(os.Stderr, "persist failed: %v\n", err)
		os.Exit(1)
	}
	log.Printf("[FogBuild] stored in %s (blob %d bytes)", *dbPath, len(snap.Blob))
}
