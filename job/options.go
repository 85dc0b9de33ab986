package job

import (
	"log/slog"
	"time"
)

// ──────────────────────────────────────────────────
// Handle construction options
// ──────────────────────────────────────────────────

// HandleOption configures a Handle at construction time.
type HandleOption func(*Handle)

// WithLogger sets the logger for handle operations.
func WithLogger(logger *slog.Logger) HandleOption {
	return func(h *Handle) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithStatus seeds the handle's status, typically from the submission
// response. Handles default to StatusInitializing.
func WithStatus(s Status) HandleOption {
	return func(h *Handle) {
		h.status = s
	}
}

// WithKind seeds the job kind before the first full refresh, so a result
// retrieved without an intervening refresh still decodes.
func WithKind(kind string) HandleOption {
	return func(h *Handle) {
		h.attrs.Kind = kind
	}
}

// WithAttributes seeds the handle from a server record already in hand,
// typically a listing or submission response. The record's status, when
// parseable, seeds the handle status the same way WithStatus does; a later
// Refresh still replaces everything wholesale.
func WithAttributes(attrs Attributes) HandleOption {
	return func(h *Handle) {
		h.attrs = attrs
		if st, err := ParseStatus(attrs.Status); err == nil {
			h.status = st
		}
		if h.status == StatusQueued {
			h.queue = attrs.Queue
		}
	}
}

// WithDecoders sets the result decoder registry. Handles default to the
// built-in primitive decoders.
func WithDecoders(r *DecoderRegistry) HandleOption {
	return func(h *Handle) {
		if r != nil {
			h.decoders = r
		}
	}
}

// ──────────────────────────────────────────────────
// Wait options
// ──────────────────────────────────────────────────

// waitOptions collects tuning for the blocking wait operations.
type waitOptions struct {
	timeout  time.Duration
	interval time.Duration
	callback func(Snapshot)
	exchange *Exchange
}

// WaitOption configures WaitForCompletion and WaitForFinalState.
type WaitOption func(*waitOptions)

func newWaitOptions(opts []WaitOption) waitOptions {
	var o waitOptions
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// WithTimeout bounds the wait. Zero (the default) waits indefinitely.
// An elapsed bound surfaces as *TimeoutError; cancellation of the caller's
// context surfaces as ctx.Err().
func WithTimeout(d time.Duration) WaitOption {
	return func(o *waitOptions) {
		o.timeout = d
	}
}

// WithPollInterval sets the status poll cadence for poll-based transports
// and, when a callback is attached, switches the callback to heartbeat
// delivery at the same cadence. Zero (the default) keeps the callback
// change-driven and lets the transport choose its own cadence.
func WithPollInterval(d time.Duration) WaitOption {
	return func(o *waitOptions) {
		o.interval = d
	}
}

// WithCallback attaches a status callback to the wait. The callback runs on
// a goroutine owned by the call, receives coalesced non-final snapshots,
// and is never invoked for the final snapshot; the terminal outcome is the
// foreground call's return value.
func WithCallback(fn func(Snapshot)) WaitOption {
	return func(o *waitOptions) {
		o.callback = fn
	}
}

// WithExchange attaches an externally owned exchange that receives every
// status observation made during the wait. The caller keeps ownership and
// closes it.
func WithExchange(ex *Exchange) WaitOption {
	return func(o *waitOptions) {
		o.exchange = ex
	}
}

// ──────────────────────────────────────────────────
// Result options
// ──────────────────────────────────────────────────

// resultOptions collects tuning for Result.
type resultOptions struct {
	timeout  time.Duration
	interval time.Duration
	partial  bool
	refresh  bool
}

// ResultOption configures Result.
type ResultOption func(*resultOptions)

func newResultOptions(opts []ResultOption) resultOptions {
	var o resultOptions
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// WithResultTimeout bounds the wait for the job to finish. Zero (the
// default) waits indefinitely.
func WithResultTimeout(d time.Duration) ResultOption {
	return func(o *resultOptions) {
		o.timeout = d
	}
}

// WithResultPollInterval sets the status poll cadence for poll-based
// transports while waiting for the job to finish.
func WithResultPollInterval(d time.Duration) ResultOption {
	return func(o *resultOptions) {
		o.interval = d
	}
}

// WithPartial salvages whatever payload a failed job managed to produce:
// the download is attempted even in StatusFailed and a decodable payload
// is returned with Success set to false.
func WithPartial() ResultOption {
	return func(o *resultOptions) {
		o.partial = true
	}
}

// WithRefresh bypasses the result cache and downloads the payload again.
// The service may not allow re-downloading every job's payload.
func WithRefresh() ResultOption {
	return func(o *resultOptions) {
		o.refresh = true
	}
}
