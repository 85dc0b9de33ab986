package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/quantacore/quanta/backoff"
	"github.com/quantacore/quanta/job"
	"github.com/quantacore/quanta/middleware"
)

// Default client tuning. Callers override through options.
const (
	DefaultMaxRetries   = 3
	DefaultPollInterval = 5 * time.Second
	DefaultUserAgent    = "quanta-go"
)

// Client talks to the Quanta REST and WebSocket API. It implements
// job.Transport for handles and carries the account-level operations the
// root package builds on.
//
// A Client is safe for concurrent use.
type Client struct {
	baseURL string
	token   string

	http    *http.Client
	logger  *slog.Logger
	chain   middleware.Middleware
	limiter *rate.Limiter

	retry      backoff.Strategy
	maxRetries int

	format       string
	codec        Codec
	callTimeout  time.Duration
	pollInterval time.Duration
	userAgent    string

	tracing bool
	metrics bool
	extraMW []middleware.Middleware
}

var _ job.Transport = (*Client)(nil)

// NewClient creates a Client for the service at baseURL, authenticating
// every call with token.
func NewClient(baseURL, token string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("api: base URL is required")
	}

	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		token:        token,
		http:         &http.Client{},
		logger:       slog.Default(),
		limiter:      rate.NewLimiter(rate.Inf, 0),
		retry:        backoff.DefaultStrategy(),
		maxRetries:   DefaultMaxRetries,
		format:       FormatJSON,
		pollInterval: DefaultPollInterval,
		userAgent:    DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}

	codec, err := GetCodec(c.format)
	if err != nil {
		return nil, fmt.Errorf("api: %w", err)
	}
	c.codec = codec

	mws := []middleware.Middleware{middleware.Logging(c.logger)}
	if c.tracing {
		mws = append(mws, middleware.Tracing())
	}
	if c.metrics {
		mws = append(mws, middleware.Metrics())
	}
	mws = append(mws, middleware.Recover(c.logger))
	if c.callTimeout > 0 {
		mws = append(mws, middleware.Timeout(c.callTimeout, c.logger))
	}
	mws = append(mws, c.extraMW...)
	c.chain = middleware.Chain(mws...)

	return c, nil
}

// ──────────────────────────────────────────────────
// job.Transport
// ──────────────────────────────────────────────────

// QueryStatus implements job.Transport.
func (c *Client) QueryStatus(ctx context.Context, jobID string) (job.StatusUpdate, error) {
	call := &middleware.Call{Method: "query status", Path: "/v1/jobs/{id}/status", JobID: jobID}

	var out statusResponse
	if err := c.invoke(ctx, call, http.MethodGet, c.jobPath(jobID, "/status"), nil, &out); err != nil {
		return job.StatusUpdate{}, err
	}

	return job.StatusUpdate{Status: out.Status, Queue: out.Queue.QueueInfo()}, nil
}

// DownloadAttributes implements job.Transport.
func (c *Client) DownloadAttributes(ctx context.Context, jobID string) (job.Attributes, error) {
	call := &middleware.Call{Method: "refresh attributes", Path: "/v1/jobs/{id}", JobID: jobID}

	var raw []byte
	if err := c.invoke(ctx, call, http.MethodGet, c.jobPath(jobID, ""), nil, &raw); err != nil {
		return job.Attributes{}, err
	}

	rec, err := decodeJobRecord(raw)
	if err != nil {
		return job.Attributes{}, &job.TransportError{Op: call.Method, Err: err}
	}

	return rec.Attributes, nil
}

// DownloadResult implements job.Transport. The payload comes back raw;
// decoding belongs to the handle's kind registry.
func (c *Client) DownloadResult(ctx context.Context, jobID string) ([]byte, error) {
	call := &middleware.Call{Method: "download result", Path: "/v1/jobs/{id}/results", JobID: jobID}

	var raw []byte
	if err := c.invoke(ctx, call, http.MethodGet, c.jobPath(jobID, "/results"), nil, &raw); err != nil {
		return nil, err
	}

	return raw, nil
}

// DownloadLogs implements job.Transport.
func (c *Client) DownloadLogs(ctx context.Context, jobID string) (string, error) {
	call := &middleware.Call{Method: "download logs", Path: "/v1/jobs/{id}/logs", JobID: jobID}

	var out logsResponse
	if err := c.invoke(ctx, call, http.MethodGet, c.jobPath(jobID, "/logs"), nil, &out); err != nil {
		return "", err
	}

	return out.Logs, nil
}

// Cancel implements job.Transport. The service answers 202 when it takes
// the request and 409 when the job has already reached a final status.
func (c *Client) Cancel(ctx context.Context, jobID string) (bool, error) {
	call := &middleware.Call{Method: "cancel job", Path: "/v1/jobs/{id}/cancel", JobID: jobID}

	err := c.invoke(ctx, call, http.MethodPost, c.jobPath(jobID, "/cancel"), nil, nil)
	if err == nil {
		return true, nil
	}

	var ae *APIError
	if errors.As(err, &ae) && ae.StatusCode == http.StatusConflict {
		return false, nil
	}

	return false, err
}

// ──────────────────────────────────────────────────
// Account operations
// ──────────────────────────────────────────────────

// SubmitRequest describes a workload to submit.
type SubmitRequest struct {
	// Kind is the primitive kind to execute, e.g. "sampler".
	Kind string `json:"kind"`
	// Backend is the target backend.
	Backend string `json:"backend"`
	// Name is an optional display name.
	Name string `json:"name,omitempty"`
	// Tags are optional user labels.
	Tags []string `json:"tags,omitempty"`
	// SessionID groups the job into an existing session.
	SessionID string `json:"session_id,omitempty"`
	// Shots is the number of execution shots; 0 lets the service decide.
	Shots int `json:"shots,omitempty"`
	// Params is the kind-specific workload body, passed through verbatim.
	Params json.RawMessage `json:"params,omitempty"`
}

// SubmitJob submits a workload and returns the service's record for the
// accepted job. Retries reuse one idempotency key, so a submission that
// raced a transient failure is never duplicated.
func (c *Client) SubmitJob(ctx context.Context, req SubmitRequest) (JobRecord, error) {
	if req.Kind == "" {
		return JobRecord{}, errors.New("api: submit job: kind is required")
	}
	if req.Backend == "" {
		return JobRecord{}, errors.New("api: submit job: backend is required")
	}

	call := &middleware.Call{Method: "submit job", Path: "/v1/jobs"}

	var raw []byte
	if err := c.invoke(ctx, call, http.MethodPost, "/v1/jobs", req, &raw); err != nil {
		return JobRecord{}, err
	}

	rec, err := decodeJobRecord(raw)
	if err != nil {
		return JobRecord{}, &job.TransportError{Op: call.Method, Err: err}
	}

	return rec, nil
}

// ListQuery filters ListJobs. Zero values mean no filter; Limit 0 lets
// the service pick its default page size.
type ListQuery struct {
	Backend   string
	Status    string
	SessionID string
	Limit     int
	Offset    int
}

// ListJobs returns the account's jobs, newest first.
func (c *Client) ListJobs(ctx context.Context, q ListQuery) ([]JobRecord, error) {
	call := &middleware.Call{Method: "list jobs", Path: "/v1/jobs"}

	vals := url.Values{}
	if q.Backend != "" {
		vals.Set("backend", q.Backend)
	}
	if q.Status != "" {
		vals.Set("status", q.Status)
	}
	if q.SessionID != "" {
		vals.Set("session_id", q.SessionID)
	}
	if q.Limit > 0 {
		vals.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		vals.Set("offset", strconv.Itoa(q.Offset))
	}

	path := "/v1/jobs"
	if len(vals) > 0 {
		path += "?" + vals.Encode()
	}

	var out listResponse
	if err := c.invoke(ctx, call, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}

	records := make([]JobRecord, 0, len(out.Jobs))
	for _, raw := range out.Jobs {
		rec, err := decodeJobRecord(raw)
		if err != nil {
			return nil, &job.TransportError{Op: call.Method, Err: err}
		}
		records = append(records, rec)
	}

	return records, nil
}

// Backends returns the execution backends visible to the account.
func (c *Client) Backends(ctx context.Context) ([]BackendInfo, error) {
	call := &middleware.Call{Method: "list backends", Path: "/v1/backends"}

	var out backendsResponse
	if err := c.invoke(ctx, call, http.MethodGet, "/v1/backends", nil, &out); err != nil {
		return nil, err
	}

	return out.Backends, nil
}

// ──────────────────────────────────────────────────
// Request plumbing
// ──────────────────────────────────────────────────

func (c *Client) jobPath(jobID, suffix string) string {
	return "/v1/jobs/" + url.PathEscape(jobID) + suffix
}

// invoke runs one unary call through the middleware chain: marshal the
// body, round-trip with retries, decode into out. Failures come back as
// *job.TransportError; caller-context cancellation passes through
// unwrapped so errors.Is(err, ctx.Err()) keeps working.
func (c *Client) invoke(ctx context.Context, call *middleware.Call, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return &job.TransportError{Op: call.Method, Err: fmt.Errorf("encode request: %w", err)}
		}
	}

	var idem string
	if method == http.MethodPost {
		idem = uuid.NewString()
	}

	err := c.chain(ctx, call, func(ctx context.Context) error {
		return c.roundTrip(ctx, method, path, payload, idem, out)
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	return &job.TransportError{Op: call.Method, Err: err}
}

// roundTrip issues the request, retrying transient failures within the
// retry budget. All requests are idempotent (GETs, keyed POSTs), so
// retrying is always safe.
func (c *Client) roundTrip(ctx context.Context, method, path string, payload []byte, idem string, out any) error {
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		err := c.once(ctx, method, path, payload, idem, out)
		if err == nil {
			return nil
		}
		if attempt >= c.maxRetries || !retryable(err) {
			return err
		}

		delay := c.retry.Delay(attempt + 1)
		var ae *APIError
		if errors.As(err, &ae) && ae.RetryAfter > 0 {
			delay = ae.RetryAfter
		}

		c.logger.Debug("api call retrying",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("attempt", attempt+1),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// once performs a single HTTP exchange.
func (c *Client) once(ctx context.Context, method, path string, payload []byte, idem string, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idem != "" {
		req.Header.Set("Idempotency-Key", idem)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return newAPIError(resp, data)
	}

	switch dst := out.(type) {
	case nil:
		return nil
	case *[]byte:
		*dst = data
		return nil
	default:
		if err := json.Unmarshal(data, dst); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
}

// retryable reports whether err is worth another attempt: a network-level
// failure, a 429, or a 5xx.
func retryable(err error) bool {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.StatusCode == http.StatusTooManyRequests || ae.StatusCode >= http.StatusInternalServerError
	}

	var ue *url.Error
	return errors.As(err, &ue)
}
