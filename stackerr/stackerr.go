// Package stackerr provides the error-wrapping idiom used at tinystack's
// non-hot-path boundaries (config loading, netlink diagnostics). Hot-path
// drops (malformed frame, TTL exhaustion, no route, flow-control overrun)
// are silent by design and never go through this package.
package stackerr

import "github.com/pkg/errors"

// StackErr distinguishes errors tinystack itself generated from errors
// bubbled up unchanged from a collaborator, so callers that print
// diagnostics can decide whether to add their own framing.
type StackErr struct {
	Err error
}

func (e StackErr) Error() string {
	return e.Err.Error()
}

// Cause implements the github.com/pkg/errors causer interface.
func (e StackErr) Cause() error {
	return e.Err
}

func New(msg string) error {
	return StackErr{Err: errors.New(msg)}
}

func Errorf(format string, args ...interface{}) error {
	return StackErr{Err: errors.Errorf(format, args...)}
}

func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return StackErr{Err: errors.Wrap(err, msg)}
}

func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return StackErr{Err: errors.Wrapf(err, format, args...)}
}
