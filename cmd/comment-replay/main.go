package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/sentimoji/internal/replay"
)

// Default configuration constants.
const (
	defaultNumComments = 1000
	defaultBatchSize   = 50
	defaultTopN        = 20
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultRunTimeout  = 10 * time.Minute
)

func main() {
	var (
		baseURL     = flag.String("url", "http://localhost:8080", "Base URL of the service")
		numComments = flag.Int("comments", defaultNumComments, "Number of synthetic comments to generate")
		input       = flag.String("input", "", "JSON file with comments to replay")
		batchSize   = flag.Int("batch", defaultBatchSize, "Comments per batch request")
		topN        = flag.Int("top", defaultTopN, "Number of board entries to fetch")
		workers     = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent submitters")
		timeout     = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile  = flag.String("output", "", "Output file for analyses (default: replay_results_TIMESTAMP.json)")
		logFile     = flag.String("log", "", "Log file for run output (default: replay_log_TIMESTAMP.log)")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
		help        = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		replay.ShowHelp()
		return
	}

	if err := replay.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	config := &replay.Config{
		BaseURL:     *baseURL,
		NumComments: *numComments,
		BatchSize:   *batchSize,
		TopN:        *topN,
		Workers:     *workers,
		Timeout:     *timeout,
		Input:       *input,
		OutputFile:  *outputFile,
		LogFile:     *logFile,
		Verbose:     *verbose,
	}

	if _, err := replay.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Replay failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1)
	}
}
