package gemini

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
)

// Sentinel kinds for Gemini client errors.
var (
	ErrNotConfigured = errors.New("gemini api key not configured")
	ErrStatus        = errors.New("gemini returned an error status")
	ErrEmptyBody     = errors.New("gemini response body was empty")
	ErrMalformed     = errors.New("gemini response was malformed")
	ErrRateLimited   = errors.New("gemini call rate limited")
	ErrCircuitOpen   = errors.New("gemini circuit open")
)

// StatusError carries a non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("gemini status %d", e.Code)
	}
	return fmt.Sprintf("gemini status %d: %s", e.Code, e.Body)
}

// Reason returns a short metric label for err.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotConfigured):
		return "not_configured"
	case errors.Is(err, ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrStatus):
		return "status"
	case errors.Is(err, ErrEmptyBody), errors.Is(err, ErrMalformed):
		return "malformed"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "transport"
	}
}
