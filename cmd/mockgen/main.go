// Package main provides a CLI that writes a synthetic job export CSV.
package main

import (
	"bufio"
	"flag"
	"io"
	"log"
	"os"

	"github.com/job-insights/internal/mockdata"
)

func main() {
	var (
		n         = flag.Int("n", 500, "Number of jobs to generate")
		seed      = flag.Int64("seed", 1, "Random seed; the same seed yields the same export")
		out       = flag.String("out", "", "Output file (default stdout)")
		malformed = flag.Float64("malformed", 0, "Fraction of rows to corrupt, 0 to 1")
	)
	flag.Parse()

	if *n < 0 {
		log.Fatalf("-n must not be negative, got %d", *n)
	}
	if *malformed < 0 || *malformed > 1 {
		log.Fatalf("-malformed must be between 0 and 1, got %v", *malformed)
	}

	var w io.Writer = os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			log.Fatalf("Failed to create %s: %v", *out, err)
		}
		defer f.Close()
		w = f
	}

	buf := bufio.NewWriter(w)
	jobs := mockdata.NewGenerator(*seed, mockdata.WithMalformed(*malformed)).Generate(*n)
	if err := mockdata.WriteCSV(buf, jobs); err != nil {
		log.Fatalf("Failed to write export: %v", err)
	}
	if err := buf.Flush(); err != nil {
		log.Fatalf("Failed to write export: %v", err)
	}

	if *out != "" {
		log.Printf("Wrote %d jobs to %s", len(jobs), *out)
	}
}
