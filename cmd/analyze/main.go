// Package main provides a one-shot CLI that prints job analytics as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/job-insights/internal/config"
	"github.com/job-insights/internal/ingest"
	"github.com/job-insights/internal/logging"
	"github.com/job-insights/internal/mockdata"
	"github.com/job-insights/internal/service"
	"github.com/job-insights/internal/types"
)

func main() {
	var (
		csvPath     = flag.String("csv", "", "Path to a job export CSV")
		csvURL      = flag.String("url", "", "URL of a job export CSV")
		mockJobs    = flag.Int("mock", 0, "Generate this many mock jobs instead of reading an export")
		seed        = flag.Int64("seed", 1, "Seed for -mock")
		weightsFile = flag.String("weights", "", "YAML weight profile")
		section     = flag.String("section", "report", "Output: report, summary, durations, wait-times, recommendations, anomalies")
		timeout     = flag.Duration("timeout", 30*time.Second, "Fetch timeout for -url")
		pretty      = flag.Bool("pretty", true, "Indent JSON output")
		verbose     = flag.Bool("v", false, "Log progress to stderr")
	)
	flag.Parse()

	level := logging.LevelWarn
	if *verbose {
		level = logging.LevelDebug
	}
	logger := logging.NewLoggerWithOutput(level, logging.FormatText, os.Stderr)
	logging.SetGlobalLogger(logger)

	source, err := selectSource(*csvPath, *csvURL, *mockJobs, *seed, *timeout)
	if err != nil {
		log.Fatalf("Invalid source: %v", err)
	}

	weights := types.DefaultWeights()
	if *weightsFile != "" {
		if weights, err = config.LoadWeightsFile(*weightsFile); err != nil {
			log.Fatalf("Failed to load weights: %v", err)
		}
	}

	ctx := logging.WithLogger(context.Background(), logger)
	dashboard := service.NewDashboardService(source, nil, weights)
	if _, err := dashboard.Reload(ctx); err != nil {
		log.Fatalf("Failed to load jobs from %s: %v", source.Name(), err)
	}

	out, err := render(ctx, dashboard, *section, weights)
	if err != nil {
		log.Fatalf("Failed to build %s: %v", *section, err)
	}

	enc := json.NewEncoder(os.Stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(out); err != nil {
		log.Fatalf("Failed to write output: %v", err)
	}
}

// selectSource requires exactly one of -csv, -url and -mock
func selectSource(csvPath, csvURL string, mockJobs int, seed int64, timeout time.Duration) (ingest.Source, error) {
	chosen := 0
	for _, set := range []bool{csvPath != "", csvURL != "", mockJobs > 0} {
		if set {
			chosen++
		}
	}
	if chosen != 1 {
		return nil, fmt.Errorf("exactly one of -csv, -url or -mock must be given")
	}

	switch {
	case csvPath != "":
		return ingest.NewFileSource(csvPath), nil
	case csvURL != "":
		return ingest.NewURLSource(csvURL, ingest.NewFetcher(timeout)), nil
	default:
		return mockdata.NewSource(mockJobs, seed), nil
	}
}

func render(ctx context.Context, dashboard *service.DashboardService, section string, weights types.Weights) (interface{}, error) {
	switch section {
	case "report":
		return dashboard.Report(ctx, weights)
	case "summary":
		return dashboard.Summary()
	case "durations":
		return dashboard.Durations()
	case "wait-times":
		return dashboard.WaitTimes()
	case "recommendations":
		return dashboard.Recommendations(weights)
	case "anomalies":
		return dashboard.Anomalies()
	default:
		return nil, fmt.Errorf("unknown section %q", section)
	}
}
