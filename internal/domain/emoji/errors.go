package emoji

import "github.com/cockroachdb/errors"

// Sentinel kinds for catalog and analysis errors.
var (
	ErrEmptyUnicode  = errors.New("emoji entry has no unicode")
	ErrSourceFailed  = errors.New("emoji source failed")
	ErrClassifyPanic = errors.New("classification panicked")
	ErrExtractPanic  = errors.New("extraction panicked")
)
