package llm

import (
	"errors"
)

// Transient/fatal classification for model call failures. The retry loop
// keeps trying transient ones; a fatal one ends the attempt and counts
// toward the loop's consecutive-hard-failure ceiling.

// TransientError marks a failure worth retrying: rate limits, gateway
// errors, timeouts.
type TransientError struct {
	err error
}

func (e *TransientError) Error() string {
	return e.err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.err
}

// NewTransientError wraps an error as transient.
func NewTransientError(err error) error {
	return &TransientError{err: err}
}

// FatalError marks a failure no retry will fix: bad credentials, an
// unknown model, a malformed request.
type FatalError struct {
	err error
}

func (e *FatalError) Error() string {
	return e.err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.err
}

// NewFatalError wraps an error as fatal.
func NewFatalError(err error) error {
	return &FatalError{err: err}
}

// IsTransient reports whether the error is classified transient anywhere
// in its chain.
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

// IsFatal reports whether the error is classified fatal anywhere in its
// chain.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}
