package job

import (
	"context"
	"time"
)

// StatusUpdate is one transport-level status observation: the raw server
// status string plus queue placement when the job is queued. Mapping raw
// strings onto Status values stays inside the handle (ParseStatus).
type StatusUpdate struct {
	Status string
	Queue  *QueueInfo
}

// Transport is the narrow surface a handle needs from the API layer.
// api.Client implements it; tests substitute fakes.
//
// Transports own their retry policy. The handle treats every returned
// error as final for that call and never re-issues it on its own.
type Transport interface {
	// QueryStatus fetches the job's current status and queue placement.
	QueryStatus(ctx context.Context, jobID string) (StatusUpdate, error)

	// LongPollFinal blocks until the job reaches a final status, timeout
	// elapses (0 means unbounded), or ctx is done. Implementations publish
	// every status observation into ex when it is non-nil. interval is
	// the cadence for poll-based implementations; push-based ones ignore
	// it, and 0 selects the implementation's default.
	LongPollFinal(ctx context.Context, jobID string, timeout, interval time.Duration, ex *Exchange) (StatusUpdate, error)

	// DownloadAttributes fetches the full server-side attribute set.
	DownloadAttributes(ctx context.Context, jobID string) (Attributes, error)

	// DownloadResult fetches the raw result payload. The service may allow
	// only a limited number of downloads per job; callers cache.
	DownloadResult(ctx context.Context, jobID string) ([]byte, error)

	// DownloadLogs fetches the job's execution log.
	DownloadLogs(ctx context.Context, jobID string) (string, error)

	// Cancel requests cancellation. accepted reports whether the service
	// took the request; false means the job had already reached a final
	// status.
	Cancel(ctx context.Context, jobID string) (accepted bool, err error)
}
