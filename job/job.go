package job

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
)

// Handle is the client-side view of one remote job. It maps server status
// observations onto the lifecycle state machine, waits for completion,
// streams progress to callbacks, and owns the fetch-once discipline for the
// result payload.
//
// A Handle is safe for concurrent field access, but its blocking operations
// are designed to be driven by one goroutine at a time: two goroutines
// waiting on the same handle duplicate network calls rather than corrupt
// state. The handle is a passive value; it holds no goroutines of its own
// outside an active callback wait.
type Handle struct {
	transport Transport
	decoders  *DecoderRegistry
	logger    *slog.Logger

	id string

	mu      sync.Mutex
	status  Status
	queue   *QueueInfo
	attrs   Attributes
	result  *Result
	logs    string
	logsSet bool
}

// New creates a handle for jobID backed by transport. The handle starts in
// StatusInitializing unless WithStatus seeds the submission response status.
func New(transport Transport, jobID string, opts ...HandleOption) *Handle {
	h := &Handle{
		transport: transport,
		decoders:  defaultDecoders,
		logger:    slog.Default(),
		id:        jobID,
		status:    StatusInitializing,
	}
	for _, opt := range opts {
		opt(h)
	}

	return h
}

// ──────────────────────────────────────────────────
// Accessors
// ──────────────────────────────────────────────────

// ID returns the server-assigned job identifier. The client treats it as an
// opaque string.
func (h *Handle) ID() string { return h.id }

// Kind returns the primitive kind the job executes.
func (h *Handle) Kind() string {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.attrs.Kind
}

// Name returns the user-assigned display name, if any.
func (h *Handle) Name() string {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.attrs.Name
}

// Backend returns the backend the job is bound to.
func (h *Handle) Backend() string {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.attrs.Backend
}

// Tags returns a copy of the job's labels.
func (h *Handle) Tags() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]string, len(h.attrs.Tags))
	copy(out, h.attrs.Tags)

	return out
}

// SessionID returns the session the job belongs to, or "".
func (h *Handle) SessionID() string {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.attrs.SessionID
}

// ErrorRecord returns the remote failure report, or nil while none exists.
func (h *Handle) ErrorRecord() *ErrorRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.attrs.Error == nil {
		return nil
	}
	rec := *h.attrs.Error

	return &rec
}

// Attributes returns the last refreshed attribute set. Map and slice fields
// are shared with the handle; treat them as read-only.
func (h *Handle) Attributes() Attributes {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.attrs
}

// Extra returns the raw value of a server attribute the client does not
// model, keyed by its wire name.
func (h *Handle) Extra(key string) (json.RawMessage, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	raw, ok := h.attrs.Extra[key]

	return raw, ok
}

// ExtraAs decodes an unmodeled server attribute into T. ok is false when
// the attribute is absent.
//
// This is a package-level generic function because Go does not allow
// generic methods on non-generic receiver types.
func ExtraAs[T any](h *Handle, key string) (T, bool, error) {
	var v T
	raw, ok := h.Extra(key)
	if !ok {
		return v, false, nil
	}

	if err := json.Unmarshal(raw, &v); err != nil {
		return v, true, &TransportError{Op: "decode attribute " + key, Err: err}
	}

	return v, true, nil
}

// ──────────────────────────────────────────────────
// Status and refresh
// ──────────────────────────────────────────────────

// Status returns the job's current lifecycle status. A final status is
// served from the handle with no network traffic. Otherwise a single
// lightweight status query runs, and the observation that first moves the
// job into a final status triggers the one-time full attribute refresh
// before returning. If that refresh fails, the status transition is kept
// and the error returned; Refresh retries the download.
func (h *Handle) Status(ctx context.Context) (Status, error) {
	h.mu.Lock()
	if h.status.IsFinal() {
		st := h.status
		h.mu.Unlock()

		return st, nil
	}
	h.mu.Unlock()

	upd, err := h.transport.QueryStatus(ctx, h.id)
	if err != nil {
		return "", err
	}

	return h.applyUpdate(ctx, upd)
}

// Refresh downloads the full attribute set and replaces the handle's view
// of the job wholesale. The cached result payload is not touched; result
// caching has its own rule.
func (h *Handle) Refresh(ctx context.Context) error {
	attrs, err := h.transport.DownloadAttributes(ctx, h.id)
	if err != nil {
		return err
	}

	st, err := ParseStatus(attrs.Status)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	// A final handle never regresses, even against stale server reads.
	if h.status.IsFinal() && !st.IsFinal() {
		st = h.status
	}
	h.attrs = attrs
	h.status = st
	if st == StatusQueued {
		h.queue = attrs.Queue
	} else {
		h.queue = nil
	}

	return nil
}

// applyUpdate folds one transport status observation into the handle and
// runs the one-time full refresh when the observation moves the job into a
// final status.
func (h *Handle) applyUpdate(ctx context.Context, upd StatusUpdate) (Status, error) {
	st, err := ParseStatus(upd.Status)
	if err != nil {
		return "", err
	}

	h.mu.Lock()
	if h.status.IsFinal() {
		// Late observations cannot move a finished job.
		st = h.status
		h.mu.Unlock()

		return st, nil
	}
	h.status = st
	if st == StatusQueued {
		h.queue = upd.Queue
	} else {
		h.queue = nil
	}
	h.mu.Unlock()

	if st.IsFinal() {
		h.logger.Debug("job reached final status",
			slog.String("job_id", h.id),
			slog.String("status", string(st)))
		if err := h.Refresh(ctx); err != nil {
			return st, err
		}
	}

	return st, nil
}

// ──────────────────────────────────────────────────
// Queue position and cancellation
// ──────────────────────────────────────────────────

// QueuePosition returns the job's place in the backend queue. ok is false
// whenever the job is not queued or the server reported no position; a
// position is never invented. With refresh true the status is re-queried
// first; a final handle skips the query.
func (h *Handle) QueuePosition(ctx context.Context, refresh bool) (pos int, ok bool, err error) {
	if refresh {
		h.mu.Lock()
		final := h.status.IsFinal()
		h.mu.Unlock()

		if !final {
			upd, err := h.transport.QueryStatus(ctx, h.id)
			if err != nil {
				return 0, false, err
			}
			if _, err := h.applyUpdate(ctx, upd); err != nil {
				return 0, false, err
			}
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.status != StatusQueued || h.queue == nil || h.queue.Position <= 0 {
		return 0, false, nil
	}

	return h.queue.Position, true, nil
}

// Cancel asks the service to cancel the job and returns immediately.
// accepted reports whether the service took the request; false means the
// job had already finished. The handle's own status is left untouched: an
// in-flight wait keeps polling until it observes the outcome, possibly
// StatusCancelled.
func (h *Handle) Cancel(ctx context.Context) (accepted bool, err error) {
	accepted, err = h.transport.Cancel(ctx, h.id)
	if err != nil {
		return false, err
	}
	h.logger.Debug("job cancellation requested",
		slog.String("job_id", h.id),
		slog.Bool("accepted", accepted))

	return accepted, nil
}

// ──────────────────────────────────────────────────
// Logs
// ──────────────────────────────────────────────────

// Logs returns the job's execution log. Once the job is final the log can
// no longer grow, so it is downloaded once and cached.
func (h *Handle) Logs(ctx context.Context) (string, error) {
	h.mu.Lock()
	if h.logsSet {
		logs := h.logs
		h.mu.Unlock()

		return logs, nil
	}
	final := h.status.IsFinal()
	h.mu.Unlock()

	logs, err := h.transport.DownloadLogs(ctx, h.id)
	if err != nil {
		return "", err
	}

	if final {
		h.mu.Lock()
		h.logs, h.logsSet = logs, true
		h.mu.Unlock()
	}

	return logs, nil
}

// QueueInfo returns the cached queue placement without touching the
// network. It is nil whenever the job is not queued.
func (h *Handle) QueueInfo() *QueueInfo {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.queue == nil {
		return nil
	}
	q := *h.queue

	return &q
}
