package job

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the client-observed lifecycle status of a remote job.
type Status string

const (
	// StatusInitializing means the service accepted the job and is
	// preparing it for the queue.
	StatusInitializing Status = "initializing"
	// StatusQueued means the job is waiting for backend capacity.
	StatusQueued Status = "queued"
	// StatusRunning means the job is executing on its backend.
	StatusRunning Status = "running"
	// StatusCompleted means the job finished and produced a result payload.
	StatusCompleted Status = "completed"
	// StatusFailed means remote execution failed; an error record is available.
	StatusFailed Status = "failed"
	// StatusCancelled means the job was cancelled before producing a result.
	StatusCancelled Status = "cancelled"
)

// IsFinal reports whether the status is terminal. A job in a final status
// never transitions again, so everything the handle has cached about it is
// fixed for the rest of the handle's lifetime.
func (s Status) IsFinal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}

	return false
}

// FinalStatuses returns the set of terminal statuses.
func FinalStatuses() []Status {
	return []Status{StatusCompleted, StatusFailed, StatusCancelled}
}

// statusAliases maps raw server spellings onto canonical statuses. The
// service renamed a few statuses across API revisions; old and new
// spellings both stay accepted.
var statusAliases = map[string]Status{
	"initializing": StatusInitializing,
	"queued":       StatusQueued,
	"pending":      StatusQueued,
	"running":      StatusRunning,
	"completed":    StatusCompleted,
	"done":         StatusCompleted,
	"failed":       StatusFailed,
	"error":        StatusFailed,
	"cancelled":    StatusCancelled,
	"canceled":     StatusCancelled,
}

// ParseStatus maps a raw server status string onto exactly one Status.
// Unrecognized strings are a hard *TransportError; the client never guesses
// at a status it does not know.
func ParseStatus(raw string) (Status, error) {
	if s, ok := statusAliases[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return s, nil
	}

	return "", &TransportError{
		Op:  "parse status",
		Err: fmt.Errorf("unrecognized server status %q", raw),
	}
}

// ──────────────────────────────────────────────────
// Queue placement and snapshots
// ──────────────────────────────────────────────────

// QueueInfo describes a job's place in the backend queue. It exists only
// while the job is queued.
type QueueInfo struct {
	// Position is the 1-based place in the queue.
	Position int `json:"position"`
	// EstimatedStart is the server's estimate for when execution begins.
	EstimatedStart *time.Time `json:"estimated_start,omitempty"`
	// EstimatedCompletion is the server's estimate for when execution ends.
	EstimatedCompletion *time.Time `json:"estimated_completion,omitempty"`
}

// Equal reports value equality with other. Two nil infos are equal.
func (q *QueueInfo) Equal(other *QueueInfo) bool {
	if q == nil || other == nil {
		return q == other
	}

	return q.Position == other.Position &&
		timePtrEqual(q.EstimatedStart, other.EstimatedStart) &&
		timePtrEqual(q.EstimatedCompletion, other.EstimatedCompletion)
}

// Snapshot is one observation of a job's externally visible progress: the
// status plus queue placement, captured at a single instant. Snapshots are
// the unit handed from the polling path to status callbacks.
type Snapshot struct {
	Status Status
	Queue  *QueueInfo
}

// Equal reports whether two snapshots carry the same status and queue
// placement. Callback dedup in change-driven watches compares with this.
func (s Snapshot) Equal(other Snapshot) bool {
	return s.Status == other.Status && s.Queue.Equal(other.Queue)
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}

	return a.Equal(*b)
}
