// Package repository keeps the emoji usage board: how often each emoji has
// been seen across analyzed comments, ranked by count.
package repository

import (
	"context"
	"time"

	"github.com/okian/sentimoji/internal/domain/emoji"
)

// Entry is one board row.
type Entry struct {
	Rank     int          `json:"rank"`
	Emoji    string       `json:"emoji"`
	Count    int64        `json:"count"`
	Bucket   emoji.Bucket `json:"bucket"`
	LastSeen time.Time    `json:"lastSeen"`
}

// Store provides read/write access to the usage board.
type Store interface {
	// Add increases the count of e by n and returns the new count.
	Add(ctx context.Context, e string, bucket emoji.Bucket, n int64) (int64, error)

	// AddSummary adds every emoji of an analysis summary.
	AddSummary(ctx context.Context, s emoji.Summary) error

	// Rank returns the current entry for e.
	// Returns ErrNotFound if e has never been seen.
	Rank(ctx context.Context, e string) (Entry, error)

	// TopN returns the n most used emoji, highest count first.
	TopN(ctx context.Context, n int) ([]Entry, error)

	// Count returns the number of distinct emoji on the board.
	Count(ctx context.Context) int
}
