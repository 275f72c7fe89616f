package replay

import (
	"context"
	"io"
	"log"
	"os"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/okian/sentimoji/pkg/logger"
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	if err := logger.Init(); err != nil {
		return errors.Wrap(err, "failed to initialize logger")
	}

	if logFile == "" {
		logFile = "replay_log_" + time.Now().Format("20060102_150405") + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, filePermission)
	if err != nil {
		return errors.Wrap(err, "failed to create log file")
	}

	log.SetOutput(io.MultiWriter(os.Stdout, file))
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the replay tool.
func ShowHelp() {
	os.Stdout.WriteString(`sentimoji comment replay
========================

Replays comments against a running sentimoji service through the batch
endpoint, then checks the emoji usage board against what was sent.

Usage:
  go run ./cmd/comment-replay [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:8080")
  -comments int
        Number of synthetic comments to generate (default 1000)
  -input string
        JSON file with comments to replay instead of generating them
  -batch int
        Comments per batch request (default 50)
  -top int
        Number of board entries to fetch and verify (default 20)
  -workers int
        Number of concurrent submitters (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Output file for analyses (default: replay_results_TIMESTAMP.json)
  -log string
        Log file for run output (default: replay_log_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Replay 5000 synthetic comments
  go run ./cmd/comment-replay -comments 5000

  # Replay a captured file in batches of 100
  go run ./cmd/comment-replay -input comments.json -batch 100
`)
}
