package repository

import "github.com/jonboulle/clockwork"

// Option applies a configuration option to the Board.
type Option func(*Board)

// WithClock sets the clock used for last-seen times.
func WithClock(c clockwork.Clock) Option {
	return func(b *Board) {
		if c != nil {
			b.clock = c
		}
	}
}
