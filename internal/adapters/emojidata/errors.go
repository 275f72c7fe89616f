package emojidata

import "github.com/cockroachdb/errors"

// Sentinel kinds for emoji data errors.
var (
	ErrNoPath    = errors.New("emoji file path not set")
	ErrMalformed = errors.New("emoji file malformed")
)
