package quanta

import (
	"errors"

	"github.com/quantacore/quanta/job"
)

// Configuration errors returned by Open and LoadConfig.
var (
	ErrNoToken          = errors.New("quanta: no API token configured")
	ErrBadEndpoint      = errors.New("quanta: invalid endpoint URL")
	ErrUnknownAccount   = errors.New("quanta: account not found in config file")
	ErrInsecureEndpoint = errors.New("quanta: insecure endpoint")
)

// Typed errors surfaced by job operations, re-exported so callers can
// errors.As against quanta names without importing the job package.
type (
	// TransportError reports a failed or nonsensical exchange with the
	// service; usually transient.
	TransportError = job.TransportError
	// TimeoutError reports that a bounded wait elapsed.
	TimeoutError = job.TimeoutError
	// InvalidStateError reports a request that can never succeed in the
	// job's current state.
	InvalidStateError = job.InvalidStateError
	// FailureError reports that remote execution itself failed.
	FailureError = job.FailureError
)
