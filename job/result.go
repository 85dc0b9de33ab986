package job

import (
	"context"
	"log/slog"
)

// Result is the decoded outcome of a job. Payload holds the kind-specific
// body produced by the registered decoder (for the built-in kinds,
// *SamplerPayload or *EstimatorPayload); Raw is the payload as downloaded.
// Success is false for payloads salvaged from a failed job.
type Result struct {
	Kind    string
	Success bool
	Payload any
	Raw     []byte
}

// Result returns the job's decoded result, downloading the payload at most
// once. The service may treat the payload as single-read, so once cached it
// is the sole source of truth; WithRefresh forces one re-download.
//
// The call first waits for the job to finish (WithResultTimeout bounds the
// wait). A cancelled job yields *InvalidStateError without any download
// attempt. A failed job yields *FailureError carrying the server's message
// and code, unless WithPartial salvages a decodable payload, returned with
// Success set to false.
func (h *Handle) Result(ctx context.Context, opts ...ResultOption) (*Result, error) {
	o := newResultOptions(opts)

	completed, err := h.WaitForCompletion(ctx, []Status{StatusCompleted},
		WithTimeout(o.timeout), WithPollInterval(o.interval))
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	st := h.status
	cached := h.result
	kind := h.attrs.Kind
	rec := h.attrs.Error
	h.mu.Unlock()

	if st == StatusCancelled {
		return nil, &InvalidStateError{
			Op:     "result",
			Status: st,
			Reason: "job was cancelled; no result was produced",
		}
	}

	if completed {
		if cached != nil && !o.refresh {
			return cached, nil
		}

		res, err := h.download(ctx, kind, true)
		if err != nil {
			return nil, err
		}
		h.storeResult(res)

		return res, nil
	}

	// Failed. Salvage what the job produced when asked to, otherwise
	// surface the remote failure.
	if o.partial {
		if cached != nil && !o.refresh {
			return cached, nil
		}

		res, err := h.download(ctx, kind, false)
		if err == nil {
			h.storeResult(res)

			return res, nil
		}
		h.logger.Debug("partial result unavailable",
			slog.String("job_id", h.id),
			slog.String("error", err.Error()))
	}

	return nil, failureError(rec)
}

// download fetches and decodes the payload through the kind's decoder.
func (h *Handle) download(ctx context.Context, kind string, success bool) (*Result, error) {
	raw, err := h.transport.DownloadResult(ctx, h.id)
	if err != nil {
		return nil, err
	}

	payload, err := h.decoders.Decode(kind, raw)
	if err != nil {
		return nil, err
	}

	return &Result{Kind: kind, Success: success, Payload: payload, Raw: raw}, nil
}

func (h *Handle) storeResult(res *Result) {
	h.mu.Lock()
	h.result = res
	h.mu.Unlock()
}

// failureError renders the remote error record. A job that failed without
// leaving a record still produces a usable error.
func failureError(rec *ErrorRecord) error {
	if rec == nil {
		return &FailureError{Message: "job execution failed"}
	}

	return &FailureError{Message: rec.Message, Code: rec.Code}
}
