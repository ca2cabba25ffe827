package pacing

import (
	"github.com/cockroachdb/errors"
)

// Error kinds. Every error returned by this package is marked with exactly one
// of them, so callers can classify failures with errors.Is.
var (
	// ErrResourceCreation is returned when a pool, buffer, semaphore or timeline
	// object could not be allocated. The device is probably unusable.
	ErrResourceCreation = errors.New("resource creation failed")

	// ErrTimeout is returned when a timeline wait exceeded its deadline. The
	// frame that was being acquired cannot proceed.
	ErrTimeout = errors.New("timeline wait timed out")

	// ErrInvalidState is returned for protocol violations: recording begun
	// twice, submitting a frame that was never acquired, skipping a timeline
	// value and so on.
	ErrInvalidState = errors.New("invalid state")
)

func resourceErrorf(cause error, format string, args ...interface{}) error {
	if cause == nil {
		return errors.Mark(errors.Newf(format, args...), ErrResourceCreation)
	}
	return errors.Mark(errors.Wrapf(cause, format, args...), ErrResourceCreation)
}

func invalidStatef(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrInvalidState)
}
