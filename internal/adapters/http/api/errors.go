package api

import "github.com/cockroachdb/errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrBackpressure = errors.New("backpressure")
	ErrNotFound     = errors.New("not found")
	ErrUnavailable  = errors.New("service unavailable")
)

// NewKind returns kind annotated with the operation that produced it.
func NewKind(op string, kind error) error {
	return errors.Wrap(kind, op)
}

// WrapKind wraps cause with op and marks it as kind so errors.Is(err, kind) holds.
func WrapKind(op string, kind, cause error) error {
	if cause == nil {
		return NewKind(op, kind)
	}
	return errors.Mark(errors.Wrapf(cause, "%s: %s", op, kind), kind)
}

// Wrap annotates err with op.
func Wrap(op string, err error) error {
	return errors.Wrap(err, op)
}
