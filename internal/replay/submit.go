package replay

import (
	"context"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/okian/sentimoji/internal/domain/emoji"
	"github.com/okian/sentimoji/internal/domain/fusion"
)

// submitBatches posts every batch concurrently and returns the analyses in
// input order. Rejected or failed batches leave their slots empty.
func submitBatches(ctx context.Context, config *Config, batches [][]fusion.Comment, stats *Stats) [][]fusion.Analysis {
	log.Printf("📤 Submitting %d batches with %d workers...", len(batches), config.Workers)

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + batchPath
	results := make([][]fusion.Analysis, len(batches))

	var submitted, rejected, failed atomic.Int64
	var lastReport atomic.Int64

	indexChan := make(chan int, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for index := range indexChan {
				if ctx.Err() != nil {
					return
				}

				out, err := submitBatch(ctx, client, url, batches[index])
				submitted.Add(1)
				var se *StatusError
				switch {
				case err == nil:
					results[index] = out
				case errors.As(err, &se) && se.Code == http.StatusTooManyRequests:
					rejected.Add(1)
				default:
					failed.Add(1)
					if config.Verbose {
						log.Printf("⚠️  Batch %d failed: %v", index, err)
					}
				}

				now := time.Now().UnixNano()
				last := lastReport.Load()
				if now-last >= int64(progressInterval) && lastReport.CompareAndSwap(last, now) {
					log.Printf("📊 Progress: %d/%d batches (rejected: %d, failed: %d)",
						submitted.Load(), len(batches), rejected.Load(), failed.Load())
				}
			}
		}()
	}

	go func() {
		defer close(indexChan)
		for i := range batches {
			select {
			case <-ctx.Done():
				return
			case indexChan <- i:
			}
		}
	}()

	wg.Wait()

	stats.BatchesSubmitted = int(submitted.Load())
	stats.BatchesRejected = int(rejected.Load())
	stats.BatchesFailed = int(failed.Load())

	log.Printf(`✅ Batch submission completed:
   Submitted: %d
   Rejected: %d
   Failed: %d
`, stats.BatchesSubmitted, stats.BatchesRejected, stats.BatchesFailed)

	return results
}

func submitBatch(ctx context.Context, client *HTTPClient, url string, batch []fusion.Comment) ([]fusion.Analysis, error) {
	resp, err := client.Post(ctx, url, BatchRequest{Comments: batch})
	if err != nil {
		return nil, errors.Wrap(err, "request failed")
	}

	var out BatchResponse
	if err := readJSON(resp, &out); err != nil {
		return nil, err
	}
	if len(out.Results) != len(batch) {
		return nil, errors.Newf("got %d results for %d comments", len(out.Results), len(batch))
	}
	return out.Results, nil
}

// tally folds the analyses into stats and counts the emoji that were sent,
// keyed the way the board keys them.
func tally(results [][]fusion.Analysis, stats *Stats) map[string]int64 {
	seen := map[string]int64{}
	stats.Labels = map[fusion.Label]int{}
	for _, batch := range results {
		for _, a := range batch {
			stats.CommentsAnalyzed++
			stats.Labels[a.CombinedSentiment]++
			if a.Degraded {
				stats.Degraded++
			}
			if a.Error != "" {
				stats.Errors++
			}
			for e, n := range a.EmojiAnalysis.EmojiCounts {
				seen[emoji.Normalize(e)] += int64(n)
			}
		}
	}
	return seen
}
