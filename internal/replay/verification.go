package replay

import (
	"context"
	"log"
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/okian/sentimoji/internal/adapters/repository"
)

// ErrInconsistent marks a board that disagrees with what was submitted.
var ErrInconsistent = errors.New("board inconsistent")

// getBoard retrieves the top N board entries.
func getBoard(ctx context.Context, config *Config, stats *Stats) ([]repository.Entry, error) {
	log.Printf("🥇 Getting top %d emoji...", config.TopN)

	client := newHTTPClient(config.Timeout)
	resp, err := client.Get(ctx, config.BaseURL+topPath+"?limit="+strconv.Itoa(config.TopN))
	if err != nil {
		return nil, errors.Wrap(err, "request failed")
	}

	var board []repository.Entry
	if err := readJSON(resp, &board); err != nil {
		return nil, err
	}

	stats.BoardEntries = len(board)
	log.Printf("✅ Retrieved %d board entries", len(board))
	return board, nil
}

// verifyBoard checks the board is ordered with dense ranks and that no
// entry counts fewer uses than this run submitted. seen is keyed by
// normalized emoji. Other clients may have
// added more, so larger counts are fine.
func verifyBoard(board []repository.Entry, seen map[string]int64) error {
	for i, entry := range board {
		if i == 0 {
			if entry.Rank != 1 {
				return errors.Mark(errors.Newf("first entry has rank %d", entry.Rank), ErrInconsistent)
			}
		} else {
			prev := board[i-1]
			switch {
			case entry.Count > prev.Count:
				return errors.Mark(errors.Newf("entry %d counts more than entry %d", i, i-1), ErrInconsistent)
			case entry.Count == prev.Count && entry.Rank != prev.Rank:
				return errors.Mark(errors.Newf("tied entries %d and %d ranked apart", i-1, i), ErrInconsistent)
			case entry.Count < prev.Count && entry.Rank != prev.Rank+1:
				return errors.Mark(errors.Newf("rank gap between entries %d and %d", i-1, i), ErrInconsistent)
			}
		}

		if want := seen[entry.Emoji]; entry.Count < want {
			return errors.Mark(errors.Newf("%s counted %d, submitted %d", entry.Emoji, entry.Count, want), ErrInconsistent)
		}
	}
	return nil
}

// displayBoard shows the board next to the local counts.
func displayBoard(board []repository.Entry, seen map[string]int64) {
	log.Printf("🏆 Top %d emoji:", len(board))
	for _, entry := range board {
		log.Printf("   %d. %s %s - %d uses (%d this run)",
			entry.Rank, entry.Emoji, entry.Bucket, entry.Count, seen[entry.Emoji])
	}
}
