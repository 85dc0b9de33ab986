package job

import (
	"encoding/json"
	"time"
)

// ErrorRecord carries the remote failure report for a failed job.
type ErrorRecord struct {
	// Message is the human-readable failure description.
	Message string `json:"message"`
	// Code is the service error code, e.g. "QRT-1217".
	Code string `json:"code"`
}

// Attributes is the full server-side attribute set for a job. A full
// refresh replaces it wholesale; individual fields are never patched.
type Attributes struct {
	// Name is the optional user-assigned display name.
	Name string
	// Kind is the primitive kind the job executes ("sampler", "estimator", ...).
	Kind string
	// Backend is the backend the job is bound to.
	Backend string
	// SessionID groups jobs submitted within one session; empty otherwise.
	SessionID string
	// Tags are user-assigned labels.
	Tags []string
	// Status is the raw server status string at refresh time.
	Status string
	// Queue is the queue placement, present only while queued.
	Queue *QueueInfo
	// Error is the failure record, present once the job has failed.
	Error *ErrorRecord
	// CreatedAt is when the service accepted the job.
	CreatedAt time.Time
	// EndedAt is when the job reached a final status.
	EndedAt *time.Time
	// TimePerStep maps lifecycle step names to the instant each was reached.
	TimePerStep map[string]time.Time
	// ClientVersion records the client stacks that submitted the job.
	ClientVersion map[string]string
	// Extra holds server fields the client does not model, keyed by wire
	// name. Access them through Handle.Extra or ExtraAs.
	Extra map[string]json.RawMessage
}
