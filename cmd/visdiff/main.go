package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strconv"

	"github.com/radioastro/visdiff/internal/compare"
	"github.com/radioastro/visdiff/internal/storage"
	"github.com/radioastro/visdiff/pkg/logger"
)

// Exit codes: 0 when within tolerance, 1 when the comparison ran but
// failed (tolerance exceeded or any pair failed), 2 when no comparison
// was possible at all.
const (
	exitOK    = 0
	exitDiff  = 1
	exitSetup = 2
)

var (
	baselineDir   string
	tolerance     float64
	quiet         bool
	jobs          int
	historyDB     string
	failOnMissing bool
)

func init() {
	flag.StringVar(&baselineDir, "baseline", getEnvOrDefault("VISDIFF_BASELINE_DIR", "./baseline"),
		"Directory containing the baseline simulate-vis outputs to compare against")
	flag.Float64Var(&tolerance, "tolerance", getEnvFloatOrDefault("VISDIFF_TOLERANCE", compare.DefaultTolerance),
		"Fail if the maximum difference between any two files exceeds this value")
	flag.BoolVar(&quiet, "quiet", false,
		"Do not print anything; success or failure is determined only by the exit code")
	flag.IntVar(&jobs, "jobs", runtime.NumCPU(),
		"How many band pairs to compare concurrently")
	flag.StringVar(&historyDB, "history", os.Getenv("VISDIFF_HISTORY_DB"),
		"Optional SQLite database recording every comparison run")
	flag.BoolVar(&failOnMissing, "fail-on-missing", false,
		"Treat bands present in only one directory as a failure instead of a warning")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] [CURRENT_DIR]\n\n", os.Args[0])
		fmt.Fprintln(flag.CommandLine.Output(),
			"Compares the hyperdrive_bandNN.bin files in CURRENT_DIR (default .) against\nthose in the baseline directory and fails if they differ by more than the\ntolerance.")
		fmt.Fprintln(flag.CommandLine.Output())
		flag.PrintDefaults()
	}
	flag.Parse()

	log := logger.GetLogger()
	if quiet {
		log.SetLevel(logger.FATAL)
	}

	currentDir := "."
	if flag.NArg() > 0 {
		currentDir = flag.Arg(0)
	}

	opts := []compare.Option{
		compare.WithTolerance(tolerance),
		compare.WithWorkers(jobs),
		compare.WithFailOnMissing(failOnMissing),
		compare.WithLogger(log),
	}

	if historyDB != "" {
		history, err := storage.Open(historyDB)
		if err != nil {
			log.Errorf("opening history database: %v", err)
			os.Exit(exitSetup)
		}
		defer history.Close()
		opts = append(opts, compare.WithHistory(history))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	engine := compare.New(opts...)
	report, err := engine.Run(ctx, currentDir, baselineDir)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Errorf("interrupted")
		} else {
			log.Errorf("%v", err)
		}
		os.Exit(exitSetup)
	}

	if !quiet {
		fmt.Println(report.Summary())
	}
	if !report.WithinTolerance() {
		os.Exit(exitDiff)
	}
}
