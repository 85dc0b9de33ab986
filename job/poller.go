package job

import (
	"context"
	"log/slog"
	"slices"
)

// WaitForCompletion blocks until the job reaches a final status, then
// reports whether that status is in required. An empty required set means
// any final status counts.
//
// A handle that is already final returns immediately with zero network
// calls. Otherwise the wait delegates to the transport's long-poll
// primitive; WithTimeout bounds the wait (an elapsed bound is a
// *TimeoutError), and an exchange attached with WithExchange receives every
// intermediate observation. On success the final status is applied to the
// handle, triggering the one-time full refresh.
//
// Transport failures are returned as-is; the poller never retries them.
func (h *Handle) WaitForCompletion(ctx context.Context, required []Status, opts ...WaitOption) (bool, error) {
	h.mu.Lock()
	if h.status.IsFinal() {
		st := h.status
		h.mu.Unlock()

		return statusIn(st, required), nil
	}
	h.mu.Unlock()

	o := newWaitOptions(opts)

	waitCtx := ctx
	if o.timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	h.logger.Debug("waiting for final status",
		slog.String("job_id", h.id),
		slog.Duration("timeout", o.timeout))

	upd, err := h.transport.LongPollFinal(waitCtx, h.id, o.timeout, o.interval, o.exchange)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			// The caller's own cancellation wins over everything else.
			return false, ctx.Err()
		case waitCtx.Err() != nil:
			return false, &TimeoutError{Op: "wait for completion", Timeout: o.timeout}
		default:
			return false, err
		}
	}

	// The wait itself succeeded; the promote refresh runs on the caller's
	// context, free of the already-spent wait bound.
	st, err := h.applyUpdate(ctx, upd)
	if err != nil {
		return false, err
	}

	return statusIn(st, required), nil
}

func statusIn(st Status, set []Status) bool {
	if len(set) == 0 {
		return st.IsFinal()
	}

	return slices.Contains(set, st)
}
