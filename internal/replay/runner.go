package replay

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/okian/sentimoji/internal/domain/fusion"
	"github.com/okian/sentimoji/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	filePermission      = 0600
)

// Run replays comments against the service, checks the emoji board and
// returns the collected statistics.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	if config.Workers < 1 {
		config.Workers = 1
	}
	if config.TopN < 1 {
		config.TopN = defaultTopN
	}

	logger.Get().Info(ctx, "starting comment replay",
		logger.String("baseURL", config.BaseURL),
		logger.Int("comments", config.NumComments),
		logger.Int("batchSize", config.BatchSize),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.String("input", config.Input),
		logger.Bool("verbose", config.Verbose))

	if err := checkServiceHealth(ctx, config); err != nil {
		return stats, errors.Wrap(err, "service health check failed")
	}

	comments, err := loadOrGenerate(ctx, config)
	if err != nil {
		return stats, errors.Wrap(err, "loading comments failed")
	}
	stats.CommentsLoaded = len(comments)

	results := submitBatches(ctx, config, chunk(comments, config.BatchSize), stats)
	seen := tally(results, stats)

	board, err := getBoard(ctx, config, stats)
	if err != nil {
		return stats, errors.Wrap(err, "board retrieval failed")
	}
	if err := verifyBoard(board, seen); err != nil {
		return stats, errors.Wrap(err, "board verification failed")
	}
	displayBoard(board, seen)

	if err := saveResults(ctx, config, results); err != nil {
		logger.Get().Warn(ctx, "failed to save results", logger.Error(err))
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(stats)

	logger.Get().Info(ctx, "replay completed successfully")
	return stats, nil
}

func loadOrGenerate(ctx context.Context, config *Config) ([]fusion.Comment, error) {
	if config.Input != "" {
		return loadComments(config.Input)
	}
	if config.NumComments < 1 {
		return nil, errors.New("nothing to replay: set an input file or a comment count")
	}
	return generateComments(ctx, config.NumComments), nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	resp, err := newHTTPClient(config.Timeout).Get(ctx, config.BaseURL+healthPath)
	if err != nil {
		return errors.Wrap(err, "failed to connect to service")
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(ctx, "failed to close response body", logger.Error(err))
		}
	}()

	if resp.StatusCode != StatusOK {
		return errors.Newf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// saveResults writes every returned analysis to a JSON file.
func saveResults(ctx context.Context, config *Config, results [][]fusion.Analysis) error {
	var flat []fusion.Analysis
	for _, batch := range results {
		flat = append(flat, batch...)
	}
	if len(flat) == 0 {
		return errors.New("no results to save")
	}

	filename := config.OutputFile
	if filename == "" {
		filename = "replay_results_" + time.Now().Format("20060102_150405") + ".json"
	}

	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return errors.Wrap(err, "failed to create directory")
		}
	}

	data, err := json.MarshalIndent(flat, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal results")
	}
	if err := os.WriteFile(filename, data, filePermission); err != nil {
		return errors.Wrap(err, "failed to write results")
	}

	logger.Get().Info(ctx, "results saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final run statistics.
func displayFinalStats(stats *Stats) {
	var acceptRate, commentsPerSecond float64

	if stats.BatchesSubmitted > 0 {
		accepted := stats.BatchesSubmitted - stats.BatchesRejected - stats.BatchesFailed
		acceptRate = float64(accepted) / float64(stats.BatchesSubmitted) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		commentsPerSecond = float64(stats.CommentsAnalyzed) / stats.Duration.Seconds()
	}

	labels := make(map[string]int, len(stats.Labels))
	for l, n := range stats.Labels {
		labels[string(l)] = n
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("commentsLoaded", stats.CommentsLoaded),
		logger.Int("batchesSubmitted", stats.BatchesSubmitted),
		logger.Int("batchesRejected", stats.BatchesRejected),
		logger.Int("batchesFailed", stats.BatchesFailed),
		logger.Int("commentsAnalyzed", stats.CommentsAnalyzed),
		logger.Int("degraded", stats.Degraded),
		logger.Int("errors", stats.Errors),
		logger.Any("labels", labels),
		logger.Int("boardEntries", stats.BoardEntries),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("acceptRate", acceptRate),
		logger.Float64("commentsPerSecond", commentsPerSecond))
}
