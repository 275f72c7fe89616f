package repository

import "github.com/cockroachdb/errors"

// Sentinel kinds for board errors.
var (
	ErrNotFound     = errors.New("emoji not found")
	ErrInvalidLimit = errors.New("invalid board limit")
	ErrInvalidCount = errors.New("invalid emoji count")
	ErrEmptyEmoji   = errors.New("empty emoji")
)
