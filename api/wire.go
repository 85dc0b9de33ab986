package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/quantacore/quanta/job"
)

// ──────────────────────────────────────────────────
// REST bodies
// ──────────────────────────────────────────────────

// QueuePlacement is the wire form of a job's place in the backend queue.
type QueuePlacement struct {
	Position            int        `json:"position" msgpack:"position"`
	EstimatedStart      *time.Time `json:"estimated_start,omitempty" msgpack:"estimated_start,omitempty"`
	EstimatedCompletion *time.Time `json:"estimated_completion,omitempty" msgpack:"estimated_completion,omitempty"`
}

// QueueInfo converts to the domain type. Nil in, nil out.
func (q *QueuePlacement) QueueInfo() *job.QueueInfo {
	if q == nil {
		return nil
	}

	return &job.QueueInfo{
		Position:            q.Position,
		EstimatedStart:      q.EstimatedStart,
		EstimatedCompletion: q.EstimatedCompletion,
	}
}

// ErrorDetail is the wire form of a service error report.
type ErrorDetail struct {
	Message string `json:"message" msgpack:"message"`
	Code    string `json:"code,omitempty" msgpack:"code,omitempty"`
}

// statusResponse is the body of GET /v1/jobs/{id}/status.
type statusResponse struct {
	Status string          `json:"status"`
	Queue  *QueuePlacement `json:"queue,omitempty"`
}

// logsResponse is the body of GET /v1/jobs/{id}/logs.
type logsResponse struct {
	Logs string `json:"logs"`
}

// listResponse is the body of GET /v1/jobs. Entries stay raw so unmodeled
// fields survive into Attributes.Extra.
type listResponse struct {
	Jobs  []json.RawMessage `json:"jobs"`
	Total int               `json:"total"`
}

// backendsResponse is the body of GET /v1/backends.
type backendsResponse struct {
	Backends []BackendInfo `json:"backends"`
}

// errorResponse is the body the service sends with non-2xx statuses.
type errorResponse struct {
	Error ErrorDetail `json:"error"`
}

// BackendInfo describes one execution backend.
type BackendInfo struct {
	// Name is the backend identifier, e.g. "aurora_27q".
	Name string `json:"name"`
	// Qubits is the backend capacity.
	Qubits int `json:"qubits"`
	// Simulator reports whether the backend is simulated rather than
	// physical hardware.
	Simulator bool `json:"simulator"`
	// Status is the operational state: "online", "maintenance" or "offline".
	Status string `json:"status"`
	// PendingJobs is the backend's current queue depth.
	PendingJobs int `json:"pending_jobs"`
}

// ──────────────────────────────────────────────────
// Job documents
// ──────────────────────────────────────────────────

// jobDetail is the modeled part of a job document, as returned by
// GET /v1/jobs/{id}, POST /v1/jobs, and each GET /v1/jobs entry.
type jobDetail struct {
	ID            string               `json:"id"`
	Name          string               `json:"name,omitempty"`
	Kind          string               `json:"kind"`
	Backend       string               `json:"backend"`
	SessionID     string               `json:"session_id,omitempty"`
	Tags          []string             `json:"tags,omitempty"`
	Status        string               `json:"status"`
	Queue         *QueuePlacement      `json:"queue,omitempty"`
	Error         *ErrorDetail         `json:"error,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	EndedAt       *time.Time           `json:"ended_at,omitempty"`
	TimePerStep   map[string]time.Time `json:"time_per_step,omitempty"`
	ClientVersion map[string]string    `json:"client_version,omitempty"`
}

// jobDetailKeys lists the wire names jobDetail models. Anything else in a
// job document is preserved verbatim in Attributes.Extra.
var jobDetailKeys = map[string]struct{}{
	"id":             {},
	"name":           {},
	"kind":           {},
	"backend":        {},
	"session_id":     {},
	"tags":           {},
	"status":         {},
	"queue":          {},
	"error":          {},
	"created_at":     {},
	"ended_at":       {},
	"time_per_step":  {},
	"client_version": {},
}

// JobRecord pairs a job id with the attribute set the service returned
// for it. Submit and list return records; handles are minted from them.
type JobRecord struct {
	ID         string
	Attributes job.Attributes
}

// decodeJobRecord parses a job document, splitting fields the client does
// not model into Attributes.Extra.
func decodeJobRecord(raw []byte) (JobRecord, error) {
	var d jobDetail
	if err := json.Unmarshal(raw, &d); err != nil {
		return JobRecord{}, fmt.Errorf("decode job document: %w", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return JobRecord{}, fmt.Errorf("decode job document: %w", err)
	}

	var extra map[string]json.RawMessage
	for k, v := range fields {
		if _, known := jobDetailKeys[k]; known {
			continue
		}
		if extra == nil {
			extra = make(map[string]json.RawMessage)
		}
		extra[k] = v
	}

	attrs := job.Attributes{
		Name:          d.Name,
		Kind:          d.Kind,
		Backend:       d.Backend,
		SessionID:     d.SessionID,
		Tags:          d.Tags,
		Status:        d.Status,
		Queue:         d.Queue.QueueInfo(),
		CreatedAt:     d.CreatedAt,
		EndedAt:       d.EndedAt,
		TimePerStep:   d.TimePerStep,
		ClientVersion: d.ClientVersion,
		Extra:         extra,
	}
	if d.Error != nil {
		attrs.Error = &job.ErrorRecord{Message: d.Error.Message, Code: d.Error.Code}
	}

	return JobRecord{ID: d.ID, Attributes: attrs}, nil
}

// ──────────────────────────────────────────────────
// Live-stream frames
// ──────────────────────────────────────────────────

// FrameType discriminates live-stream frames.
type FrameType string

const (
	// FrameAuth carries the client's credentials. It is always the first
	// frame on a stream, and always JSON.
	FrameAuth FrameType = "auth"
	// FrameReady acknowledges auth and fixes the negotiated format.
	FrameReady FrameType = "ready"
	// FrameStatus carries one status observation.
	FrameStatus FrameType = "status"
	// FrameError reports a stream-level failure. The server closes the
	// connection after sending one.
	FrameError FrameType = "error"
	// FramePing and FramePong keep idle streams alive.
	FramePing FrameType = "ping"
	FramePong FrameType = "pong"
)

// Frame is the live-stream message envelope. The auth frame and its ready
// reply are always JSON; every frame after travels in the negotiated
// format.
type Frame struct {
	Type      FrameType       `json:"type" msgpack:"type"`
	Token     string          `json:"token,omitempty" msgpack:"token,omitempty"`
	Format    string          `json:"format,omitempty" msgpack:"format,omitempty"`
	SessionID string          `json:"session_id,omitempty" msgpack:"session_id,omitempty"`
	Status    string          `json:"status,omitempty" msgpack:"status,omitempty"`
	Queue     *QueuePlacement `json:"queue,omitempty" msgpack:"queue,omitempty"`
	Error     *ErrorDetail    `json:"error,omitempty" msgpack:"error,omitempty"`
}

// ──────────────────────────────────────────────────
// Errors
// ──────────────────────────────────────────────────

// APIError is a non-2xx response from the service. Client methods wrap it
// in a *job.TransportError; reach it with errors.As.
type APIError struct {
	// StatusCode is the HTTP status of the response.
	StatusCode int
	// Code is the service error code, when the body carried one.
	Code string
	// Message describes the failure.
	Message string
	// RetryAfter is the server-requested delay from a 429, if any.
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("server returned %d: %s (%s)", e.StatusCode, e.Message, e.Code)
	}

	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// newAPIError builds an APIError from a non-2xx response, honoring a
// Retry-After header when present.
func newAPIError(resp *http.Response, data []byte) *APIError {
	ae := &APIError{
		StatusCode: resp.StatusCode,
		Message:    http.StatusText(resp.StatusCode),
	}

	var body errorResponse
	if err := json.Unmarshal(data, &body); err == nil && body.Error.Message != "" {
		ae.Message = body.Error.Message
		ae.Code = body.Error.Code
	}

	if ra := resp.Header.Get("Retry-After"); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
			ae.RetryAfter = time.Duration(secs) * time.Second
		}
	}

	return ae
}
