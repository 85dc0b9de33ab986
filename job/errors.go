package job

import (
	"fmt"
	"time"
)

// The handle surfaces four error kinds. All of them are returned as typed
// errors so callers can branch with errors.As:
//
//   - *TransportError: the exchange with the service failed or produced
//     data the client cannot interpret. Usually transient; safe to retry
//     at the caller's discretion.
//   - *TimeoutError: a bounded wait elapsed. The wait may be retried.
//   - *InvalidStateError: the request can never succeed in the job's
//     current state, no matter how often it is retried.
//   - *FailureError: the remote execution itself failed; carries the
//     service's error message and code.

// TransportError reports a failed or nonsensical exchange with the service:
// a network or API failure, or server data the client refuses to interpret
// (an unknown status string, a malformed result payload).
type TransportError struct {
	// Op names the operation that failed, e.g. "query status".
	Op string
	// Err is the underlying cause.
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("quanta: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *TransportError) Unwrap() error { return e.Err }

// TimeoutError reports that a bounded wait elapsed before the job reached
// the awaited status.
type TimeoutError struct {
	// Op names the waiting operation.
	Op string
	// Timeout is the bound that elapsed.
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("quanta: %s: timed out after %v", e.Op, e.Timeout)
}

// InvalidStateError reports that the job is in a state where the request
// can never succeed, such as asking a cancelled job for its result.
type InvalidStateError struct {
	// Op names the rejected operation.
	Op string
	// Status is the job status at the time of the call, when known.
	Status Status
	// Reason explains the rejection.
	Reason string
}

func (e *InvalidStateError) Error() string {
	if e.Status == "" {
		return fmt.Sprintf("quanta: %s: %s", e.Op, e.Reason)
	}

	return fmt.Sprintf("quanta: %s: job is %s: %s", e.Op, e.Status, e.Reason)
}

// FailureError reports that remote execution failed. Message and Code come
// from the job's error record; Error renders them in the service's
// documented failure format.
type FailureError struct {
	Message string
	Code    string
}

func (e *FailureError) Error() string {
	if e.Code == "" {
		return e.Message
	}

	return fmt.Sprintf("%s. Error code: %s.", e.Message, e.Code)
}
