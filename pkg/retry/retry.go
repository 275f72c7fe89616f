// Package retry runs an operation again on transient failures with a
// doubling backoff.
package retry

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
)

// Action tells Do how to treat a failed attempt.
type Action int

const (
	Stop  Action = iota // permanent error, abort immediately
	Retry               // transient error, use normal backoff
	After               // rate-limited, use the longer backoff
)

// Policy bounds the attempts and the waits between them.
type Policy struct {
	MaxAttempts      int
	InitialBackoff   time.Duration
	RateLimitBackoff time.Duration
	OnRetry          func(attempt int, err error, backoff time.Duration)
}

// Classify decides the Action for an error.
type Classify func(err error) Action

// Operation is one attempt.
type Operation[T any] func(ctx context.Context) (T, error)

// ErrPermanent marks errors classified as Stop.
var ErrPermanent = errors.New("permanent failure")

// Do runs op until it succeeds, classify says Stop, attempts run out or ctx
// is done. A MaxAttempts below one is treated as one.
func Do[T any](ctx context.Context, p Policy, classify Classify, op Operation[T]) (T, error) {
	var zero T
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := p.InitialBackoff

	for attempt := 1; ; attempt++ {
		val, err := op(ctx)
		if err == nil {
			return val, nil
		}

		action := classify(err)
		if action == Stop {
			return zero, errors.Mark(err, ErrPermanent)
		}
		if attempt >= attempts {
			return zero, errors.Wrapf(err, "failed after %d attempts", attempts)
		}

		wait := backoff
		if action == After && p.RateLimitBackoff > wait {
			wait = p.RateLimitBackoff
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
			backoff *= 2
		case <-ctx.Done():
			timer.Stop()
			return zero, errors.Wrap(ctx.Err(), "context done during retry")
		}
	}
}
