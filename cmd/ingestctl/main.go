// Command ingestctl processes a drop folder of assessment files end to
// end: schema and response tables are loaded into the store, mastery
// rollups are recomputed, and the strategy document index is rebuilt.
//
// Usage:
//
//	go run ./cmd/ingestctl -data ./assessment_scores -docs ./data
//	go run ./cmd/ingestctl -sample        # write starter files and exit
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/lmoretti/edumastery"
	"github.com/lmoretti/edumastery/ingest"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to config file (JSON)")
		dataDir    = flag.String("data", "", "Drop folder with assessment files (default from config)")
		docRoot    = flag.String("docs", "", "Strategy document folder (default from config)")
		dbPath     = flag.String("db", "", "SQLite database path (default from config)")
		threshold  = flag.Float64("threshold", 0, "Mastery threshold for the summary (default from config)")
		sample     = flag.Bool("sample", false, "Write sample assessment files into the drop folder and exit")
		verbose    = flag.Bool("v", false, "Verbose logging")
	)
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))

	cfg := edumastery.DefaultConfig()
	if *configPath != "" {
		f, err := os.Open(*configPath)
		if err != nil {
			fatal("opening config: %v", err)
		}
		if err := json.NewDecoder(f).Decode(&cfg); err != nil {
			f.Close()
			fatal("parsing config: %v", err)
		}
		f.Close()
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *docRoot != "" {
		cfg.DocumentRoot = *docRoot
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *threshold > 0 {
		cfg.Threshold = *threshold
	}

	if *sample {
		dir, err := ingest.WriteSampleFiles(cfg.DataDir)
		if err != nil {
			fatal("writing samples: %v", err)
		}
		fmt.Printf("Sample files written to %s\n", dir)
		fmt.Println("Move them into the drop folder and rerun without -sample to process them.")
		return
	}

	engine, err := edumastery.New(cfg)
	if err != nil {
		fatal("creating engine: %v", err)
	}
	defer engine.Close()

	ctx := context.Background()

	report, err := engine.ProcessDataDir(ctx, cfg.DataDir)
	if err != nil {
		fatal("processing data folder: %v", err)
	}
	for _, f := range report.Files {
		if f.Error != "" {
			fmt.Printf("  %-30s %-14s %s (%s)\n", f.Name, f.Type, f.Status, f.Error)
		} else {
			fmt.Printf("  %-30s %-14s %s\n", f.Name, f.Type, f.Status)
		}
	}
	fmt.Printf("Processed %d file(s), %d failed, %d skipped\n",
		report.Processed, report.Failed, report.Skipped)

	chunks, err := engine.BuildIndex(cfg.DocumentRoot)
	if err != nil {
		fatal("building index: %v", err)
	}
	fmt.Printf("Document index: %d chunk(s) from %s\n", chunks, cfg.DocumentRoot)

	students, err := engine.Students(ctx)
	if err != nil {
		fatal("listing students: %v", err)
	}
	if len(students) == 0 {
		fmt.Println("No students loaded.")
		return
	}

	fmt.Printf("\nMastery summary (threshold %.0f%%):\n", cfg.Threshold)
	for _, student := range students {
		low, err := engine.LowPerforming(ctx, student, cfg.Threshold)
		if err != nil {
			fatal("low areas for %s: %v", student, err)
		}
		fmt.Printf("  %-20s %d low topic(s), %d low standard(s)\n",
			student, len(low.LowTopics), len(low.LowStandards))
	}
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "ingestctl: "+format+"\n", args...)
	os.Exit(1)
}
