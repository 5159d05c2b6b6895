package resumable

import (
	"errors"
	"fmt"
)

// ErrRetryBudgetExhausted is matched by *RetryBudgetExhaustedError.
var ErrRetryBudgetExhausted = errors.New("retry budget exhausted")

// ErrCancelled is matched by *CancelledError.
var ErrCancelled = errors.New("upload cancelled")

// StatusError is a protocol level failure carrying the remote status code.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// HTTPStatusCode ...
func (e *StatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// RetryBudgetExhaustedError is returned when a retriable error occurs after
// the maximum number of retries was already spent.
type RetryBudgetExhaustedError struct {
	Attempts int
	Last     error
}

func (e *RetryBudgetExhaustedError) Error() string {
	return fmt.Sprintf("no longer attempting to retry after %d retries: %s", e.Attempts, e.Last)
}

// Unwrap ...
func (e *RetryBudgetExhaustedError) Unwrap() error {
	return e.Last
}

// Is ...
func (e *RetryBudgetExhaustedError) Is(target error) bool {
	return target == ErrRetryBudgetExhausted
}

// Phase tells where the upload was when it got cancelled.
type Phase string

// Cancellation phases.
const (
	PhaseSend    Phase = "send"
	PhaseBackoff Phase = "backoff"
)

// CancelledError is returned when the caller's context ends the upload.
type CancelledError struct {
	Phase Phase
	Err   error
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("upload cancelled during %s: %s", e.Phase, e.Err)
}

// Unwrap returns the context error.
func (e *CancelledError) Unwrap() error {
	return e.Err
}

// Is ...
func (e *CancelledError) Is(target error) bool {
	return target == ErrCancelled
}
