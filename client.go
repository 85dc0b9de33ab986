package quanta

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/quantacore/quanta/api"
	"github.com/quantacore/quanta/job"
)

// Version is the client library version reported in the User-Agent of
// every API call.
const Version = "0.9.0"

// Backend describes one execution backend from the service catalog.
type Backend = api.BackendInfo

// Status is a job lifecycle status.
type Status = job.Status

// Lifecycle statuses, re-exported so most programs only import quanta.
const (
	StatusInitializing = job.StatusInitializing
	StatusQueued       = job.StatusQueued
	StatusRunning      = job.StatusRunning
	StatusCompleted    = job.StatusCompleted
	StatusFailed       = job.StatusFailed
	StatusCancelled    = job.StatusCancelled
)

// Handle is the client-side view of one remote job.
type Handle = job.Handle

// Result is a decoded job result.
type Result = job.Result

// Snapshot is one observation of a job's progress.
type Snapshot = job.Snapshot

// QueueInfo describes a queued job's placement.
type QueueInfo = job.QueueInfo

// Attributes is the full server-side attribute set of a job.
type Attributes = job.Attributes

// Job is the capability set a handle offers to code that only consumes
// job state. *job.Handle implements it; tests can substitute fakes.
type Job interface {
	Status(ctx context.Context) (Status, error)
	Result(ctx context.Context, opts ...job.ResultOption) (*job.Result, error)
	Cancel(ctx context.Context) (bool, error)
	Refresh(ctx context.Context) error
	WaitForFinalState(ctx context.Context, opts ...job.WaitOption) error
}

var _ Job = (*job.Handle)(nil)

// Service is the account-bound entry point to the Quanta runtime. It
// submits workloads, attaches to existing jobs, and lists what the
// account can see. A Service is safe for concurrent use.
type Service struct {
	cfg    Config
	client *api.Client
	logger *slog.Logger
}

// Open resolves the account configuration and returns a connected
// Service. No network traffic happens until the first call.
func Open(opts ...Option) (*Service, error) {
	s := newSettings()
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	cfg, err := resolveConfig(s)
	if err != nil {
		return nil, err
	}

	apiOpts := []api.Option{
		api.WithLogger(s.logger),
		api.WithUserAgent("quanta-go/" + Version),
		api.WithRetry(cfg.MaxRetries, nil),
		api.WithStreamFormat(cfg.StreamFormat),
	}
	if cfg.Timeout > 0 {
		apiOpts = append(apiOpts, api.WithCallTimeout(cfg.Timeout))
	}
	if cfg.RateLimit > 0 {
		apiOpts = append(apiOpts, api.WithRateLimit(cfg.RateLimit, rateBurst(cfg.RateLimit)))
	}
	switch {
	case s.httpClient != nil:
		apiOpts = append(apiOpts, api.WithHTTPClient(s.httpClient))
	case cfg.Insecure:
		apiOpts = append(apiOpts, api.WithHTTPClient(&http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
			},
		}))
	}
	if len(s.mw) > 0 {
		apiOpts = append(apiOpts, api.WithMiddleware(s.mw...))
	}
	if s.tracing {
		apiOpts = append(apiOpts, api.WithTracing())
	}
	if s.metrics {
		apiOpts = append(apiOpts, api.WithMetrics())
	}

	client, err := api.NewClient(cfg.Endpoint, cfg.Token, apiOpts...)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("service opened",
		slog.String("endpoint", cfg.Endpoint),
		slog.String("account", cfg.Account))

	return &Service{cfg: cfg, client: client, logger: s.logger}, nil
}

// Config returns a copy of the resolved configuration.
func (s *Service) Config() Config { return s.cfg }

// Logger returns the service logger.
func (s *Service) Logger() *slog.Logger { return s.logger }

// API returns the underlying API client, for calls the Service does not
// wrap.
func (s *Service) API() *api.Client { return s.client }

// RunRequest describes a primitive workload to execute.
type RunRequest struct {
	// Kind selects the primitive, "sampler" or "estimator", or any kind
	// with a registered result decoder.
	Kind string

	// Backend is the target backend name.
	Backend string

	// Payload is the kind-specific workload body, sent to the service
	// verbatim.
	Payload json.RawMessage

	// Name optionally labels the job.
	Name string

	// Tags optionally label the job for listing filters.
	Tags []string

	// SessionID optionally places the job in an existing session.
	SessionID string

	// Shots overrides the backend's default shot count when positive.
	Shots int
}

// Run submits a workload and returns a live handle seeded with the
// submission response.
func (s *Service) Run(ctx context.Context, req RunRequest) (*job.Handle, error) {
	rec, err := s.client.SubmitJob(ctx, api.SubmitRequest{
		Kind:      req.Kind,
		Backend:   req.Backend,
		Name:      req.Name,
		Tags:      req.Tags,
		SessionID: req.SessionID,
		Shots:     req.Shots,
		Params:    req.Payload,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("job submitted",
		slog.String("job_id", rec.ID),
		slog.String("kind", req.Kind),
		slog.String("backend", req.Backend))

	return s.handleFromRecord(rec), nil
}

// Job attaches to an existing job by id and performs the initial
// refresh, so the returned handle starts from the server's current view.
func (s *Service) Job(ctx context.Context, jobID string) (*job.Handle, error) {
	h := job.New(s.client, jobID, job.WithLogger(s.logger))
	if err := h.Refresh(ctx); err != nil {
		return nil, err
	}

	return h, nil
}

// ListOption filters Jobs.
type ListOption func(*api.ListQuery)

// WithListLimit caps the number of jobs returned.
func WithListLimit(n int) ListOption {
	return func(q *api.ListQuery) { q.Limit = n }
}

// WithListSkip skips the first n jobs, for pagination.
func WithListSkip(n int) ListOption {
	return func(q *api.ListQuery) { q.Offset = n }
}

// WithListBackend restricts the listing to one backend.
func WithListBackend(name string) ListOption {
	return func(q *api.ListQuery) { q.Backend = name }
}

// WithListSession restricts the listing to one session.
func WithListSession(sessionID string) ListOption {
	return func(q *api.ListQuery) { q.SessionID = sessionID }
}

// WithListPending restricts the listing to jobs that have not reached a
// final status.
func WithListPending() ListOption {
	return func(q *api.ListQuery) { q.Status = "pending" }
}

// Jobs lists the account's jobs as live handles, newest first. Each
// handle is seeded with the listed attributes; refresh to bring one up
// to date.
func (s *Service) Jobs(ctx context.Context, opts ...ListOption) ([]*job.Handle, error) {
	var q api.ListQuery
	for _, opt := range opts {
		opt(&q)
	}

	records, err := s.client.ListJobs(ctx, q)
	if err != nil {
		return nil, err
	}

	handles := make([]*job.Handle, 0, len(records))
	for _, rec := range records {
		handles = append(handles, s.handleFromRecord(rec))
	}

	return handles, nil
}

// Backends returns the execution backends visible to the account.
func (s *Service) Backends(ctx context.Context) ([]Backend, error) {
	return s.client.Backends(ctx)
}

// handleFromRecord mints a handle seeded with a record the server
// already returned.
func (s *Service) handleFromRecord(rec api.JobRecord) *job.Handle {
	return job.New(s.client, rec.ID,
		job.WithLogger(s.logger),
		job.WithAttributes(rec.Attributes))
}

// rateBurst sizes the limiter burst, at least one call and up to one
// second's worth.
func rateBurst(rps float64) int {
	if rps < 1 {
		return 1
	}

	return int(rps)
}
