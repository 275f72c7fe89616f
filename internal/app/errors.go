package service

import "github.com/cockroachdb/errors"

// Sentinel error kinds for the service.
var (
	ErrNotStarted    = errors.New("service not started")
	ErrStopped       = errors.New("service stopped")
	ErrEmptyBatch    = errors.New("empty batch")
	ErrBatchTooLarge = errors.New("batch too large")
	ErrAnalysisPanic = errors.New("analysis panic")
)
