package notify

import (
	"context"
	"errors"
	"fmt"
)

// Adapters report failures as transient or permanent; the retry policy
// keys off that classification. Errors with neither marker default to
// transient, because retrying a recoverable failure is cheap while
// giving up on one loses the message.

type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Transient marks err as worth retrying (network errors, rate limits,
// gateway overload).
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// Transientf is a convenience wrapper for formatted transient errors.
func Transientf(format string, args ...any) error {
	return &transientError{err: fmt.Errorf(format, args...)}
}

// Permanent marks err as unrecoverable (invalid recipient address,
// rejected content). The record fails immediately regardless of the
// remaining attempt budget.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Permanentf is a convenience wrapper for formatted permanent errors.
func Permanentf(format string, args ...any) error {
	return &permanentError{err: fmt.Errorf(format, args...)}
}

// IsPermanent reports whether err was marked unrecoverable.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// IsTransient reports whether err should be retried. Timeouts and
// unclassified errors count as transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if IsPermanent(err) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te *transientError
	if errors.As(err, &te) {
		return true
	}
	// Unclassified adapter errors are retried rather than dropped.
	return true
}
